package storage

import (
	"strings"
	"time"

	"github.com/UkralStul/blog-service/internal/domain"
	"github.com/gosimple/slug"
)

// PreparePost заполняет значения по умолчанию перед сохранением поста:
// slug из заголовка, статус черновика, дату публикации и slug'и меток.
// Повторяющиеся метки схлопываются.
func PreparePost(post *domain.Post) error {
	post.Title = strings.TrimSpace(post.Title)
	if post.Title == "" {
		return domain.NewValidationError("title", "This field is required.")
	}
	if post.Slug == "" {
		post.Slug = slug.Make(post.Title)
	}
	if !slug.IsSlug(post.Slug) {
		return domain.NewValidationError("slug", "Enter a valid slug.")
	}
	if post.Status == "" {
		post.Status = domain.StatusDraft
	}
	if post.Status != domain.StatusDraft && post.Status != domain.StatusPublished {
		return domain.NewValidationError("status", "Select a valid choice.")
	}
	if post.Publish.IsZero() {
		post.Publish = time.Now()
	}
	post.Publish = post.Publish.UTC().Truncate(time.Microsecond)

	seen := make(map[string]bool, len(post.Tags))
	tags := make([]*domain.Tag, 0, len(post.Tags))
	for _, t := range post.Tags {
		if t.Slug == "" {
			t.Slug = slug.Make(t.Name)
		}
		if t.Name == "" {
			t.Name = t.Slug
		}
		if t.Slug == "" || seen[t.Slug] {
			continue
		}
		seen[t.Slug] = true
		tags = append(tags, t)
	}
	post.Tags = tags
	return nil
}

// SameDay сообщает, совпадают ли календарные сутки (UTC) двух моментов.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
