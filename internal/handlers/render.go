package handlers

import (
	"encoding/json"
	"net/http"
)

// Имена шаблонов страниц блога.
const (
	TemplateList    = "blog/post/list.html"
	TemplateDetail  = "blog/post/detail.html"
	TemplateShare   = "blog/post/share.html"
	TemplateComment = "blog/post/comment.html"
)

// Renderer отрисовывает страницу по имени шаблона и контексту.
type Renderer interface {
	Render(w http.ResponseWriter, status int, template string, data map[string]any) error
}

// JSONRenderer отдает имя шаблона и контекст как JSON. HTML-шаблоны
// подключаются отдельной реализацией Renderer.
type JSONRenderer struct{}

type renderedPage struct {
	Template string         `json:"template"`
	Context  map[string]any `json:"context"`
}

func (JSONRenderer) Render(w http.ResponseWriter, status int, template string, data map[string]any) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(renderedPage{Template: template, Context: data})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
