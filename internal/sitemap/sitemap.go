// Package sitemap строит sitemap.xml по протоколу sitemaps.org 0.9.
package sitemap

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/UkralStul/blog-service/internal/domain"
)

const (
	Namespace  = "http://www.sitemaps.org/schemas/sitemap/0.9"
	ChangeFreq = "weekly"
	Priority   = 0.9
	dateLayout = "2006-01-02"
)

// URLSet - корневой элемент sitemap.
type URLSet struct {
	XMLName xml.Name `xml:"urlset"`
	XMLNS   string   `xml:"xmlns,attr"`
	URLs    []URL    `xml:"url"`
}

// URL - одна запись sitemap.
type URL struct {
	Loc        string  `xml:"loc"`
	LastMod    string  `xml:"lastmod"`
	ChangeFreq string  `xml:"changefreq"`
	Priority   float64 `xml:"priority"`
}

// Build собирает записи для всех постов. baseURL - схема и хост без завершающего слэша.
func Build(baseURL string, posts []*domain.Post) *URLSet {
	baseURL = strings.TrimRight(baseURL, "/")
	set := &URLSet{XMLNS: Namespace, URLs: make([]URL, 0, len(posts))}
	for _, p := range posts {
		set.URLs = append(set.URLs, URL{
			Loc:        baseURL + p.URLPath(),
			LastMod:    p.UpdatedAt.UTC().Format(dateLayout),
			ChangeFreq: ChangeFreq,
			Priority:   Priority,
		})
	}
	return set
}

// Write пишет sitemap с XML-заголовком.
func Write(w io.Writer, set *URLSet) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(set); err != nil {
		return fmt.Errorf("failed to encode sitemap: %w", err)
	}
	return enc.Flush()
}
