// Package handlers - HTTP-слой блога: маршруты, разбор запросов и отрисовка ответов.
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/UkralStul/blog-service/internal/blog"
	"github.com/UkralStul/blog-service/internal/dataloader"
	"github.com/UkralStul/blog-service/internal/domain"
	"github.com/UkralStul/blog-service/internal/forms"
	"github.com/UkralStul/blog-service/internal/live"
	"github.com/UkralStul/blog-service/internal/sitemap"
	"github.com/UkralStul/blog-service/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// SidebarPosts - сколько последних постов показывать в боковой панели.
const SidebarPosts = 5

// Deps - зависимости HTTP-слоя.
type Deps struct {
	Service  *blog.Service
	Tags     storage.TagStore
	Hub      *live.Hub
	Renderer Renderer
	Log      logrus.FieldLogger
}

type handler struct {
	svc    *blog.Service
	hub    *live.Hub
	render Renderer
	log    logrus.FieldLogger
}

// NewRouter собирает маршруты сервиса.
func NewRouter(d Deps) http.Handler {
	if d.Renderer == nil {
		d.Renderer = JSONRenderer{}
	}
	h := &handler{svc: d.Service, hub: d.Hub, render: d.Renderer, log: d.Log}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: d.Log, NoColor: true}))
	router.Use(middleware.Recoverer)
	router.Use(middleware.StripSlashes)

	router.Get("/health", h.health)
	router.Get("/sitemap.xml", h.sitemap)

	router.Route("/blog", func(r chi.Router) {
		r.Use(dataloader.Middleware(d.Tags))

		r.Get("/", h.postList)
		r.Get("/tag/{tag_slug}", h.postList)
		r.Get("/posts", h.postListStrict)
		r.Get("/{year}/{month}/{day}/{slug}", h.postDetail)
		r.Get("/{post_id}/share", h.postShare)
		r.Post("/{post_id}/share", h.postShare)
		r.Post("/{post_id}/comment", h.postComment)
		r.Get("/{post_id}/comments/live", h.liveComments)
	})

	return router
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *handler) postList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	res, err := h.svc.ListPosts(ctx, chi.URLParam(r, "tag_slug"), r.URL.Query().Get("page"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	data := map[string]any{"posts": res.Posts, "tag": res.Tag}
	if err := h.withSidebar(r, data, res.Posts.Items); err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, TemplateList, data)
}

func (h *handler) postListStrict(w http.ResponseWriter, r *http.Request) {
	page, err := h.svc.ListPostsStrict(r.Context(), r.URL.Query().Get("page"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	data := map[string]any{"posts": page}
	if err := h.withSidebar(r, data, page.Items); err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, TemplateList, data)
}

func (h *handler) postDetail(w http.ResponseWriter, r *http.Request) {
	key, ok := naturalKey(r)
	if !ok {
		h.fail(w, r, domain.ErrNotFound)
		return
	}

	res, err := h.svc.PostDetail(r.Context(), key)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	data := map[string]any{"post": res.Post, "comments": res.Comments, "form": res.Form}
	if err := h.withSidebar(r, data, nil); err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, TemplateDetail, data)
}

func (h *handler) postShare(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	post, err := h.svc.SharedPost(ctx, chi.URLParam(r, "post_id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if r.Method != http.MethodPost {
		h.respond(w, r, http.StatusOK, TemplateShare, map[string]any{
			"post": post, "form": &forms.EmailPostForm{}, "sent": false,
		})
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "malformed form", http.StatusBadRequest)
		return
	}
	form := forms.NewEmailPostForm(r.PostForm)
	sent, err := h.svc.SharePost(ctx, post, form, absoluteURL(r, post.URLPath()))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.respond(w, r, http.StatusOK, TemplateShare, map[string]any{
		"post": post, "form": form, "sent": sent,
	})
}

func (h *handler) postComment(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "malformed form", http.StatusBadRequest)
		return
	}

	res, err := h.svc.SubmitComment(r.Context(), chi.URLParam(r, "post_id"), forms.NewCommentForm(r.PostForm))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	// Комментарий уже сохранен, рассылаем его подписчикам
	if res.Comment != nil && h.hub != nil {
		h.hub.Publish(res.Comment)
	}

	h.respond(w, r, http.StatusOK, TemplateComment, map[string]any{
		"post": res.Post, "form": res.Form, "comment": res.Comment,
	})
}

func (h *handler) liveComments(w http.ResponseWriter, r *http.Request) {
	post, err := h.svc.SharedPost(r.Context(), chi.URLParam(r, "post_id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.hub.Serve(w, r, post.ID)
}

func (h *handler) sitemap(w http.ResponseWriter, r *http.Request) {
	posts, err := h.svc.AllPosts(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	if err := sitemap.Write(w, sitemap.Build(absoluteURL(r, ""), posts)); err != nil {
		h.logger(r).WithError(err).Error("failed to write sitemap")
	}
}

// withSidebar добавляет в контекст боковую панель и догружает метки
// постам страницы и панели одной пачкой.
func (h *handler) withSidebar(r *http.Request, data map[string]any, posts []*domain.Post) error {
	ctx := r.Context()
	sb, err := h.svc.Sidebar(ctx, SidebarPosts)
	if err != nil {
		return err
	}

	if loaders, ok := dataloader.For(ctx); ok {
		all := make([]*domain.Post, 0, len(posts)+len(sb.LatestPosts))
		all = append(all, posts...)
		all = append(all, sb.LatestPosts...)
		if err := loaders.FillTags(ctx, all); err != nil {
			return err
		}
	}

	data["total_posts"] = sb.TotalPosts
	data["latest_posts"] = sb.LatestPosts
	return nil
}

func (h *handler) respond(w http.ResponseWriter, r *http.Request, status int, template string, data map[string]any) {
	if err := h.render.Render(w, status, template, data); err != nil {
		h.logger(r).WithError(err).WithField("template", template).Error("failed to render page")
	}
}

// fail переводит ошибку в HTTP-статус: ErrNotFound - 404, остальное - 500.
func (h *handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, domain.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	h.logger(r).WithError(err).Error("request failed")
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
}

func (h *handler) logger(r *http.Request) logrus.FieldLogger {
	return h.log.WithFields(logrus.Fields{
		"request_id": middleware.GetReqID(r.Context()),
		"path":       r.URL.Path,
	})
}

func naturalKey(r *http.Request) (domain.NaturalKey, bool) {
	var parts [3]int
	for i, name := range []string{"year", "month", "day"} {
		n, err := strconv.Atoi(chi.URLParam(r, name))
		if err != nil {
			return domain.NaturalKey{}, false
		}
		parts[i] = n
	}
	return domain.NaturalKey{Year: parts[0], Month: parts[1], Day: parts[2], Slug: chi.URLParam(r, "slug")}, true
}

// absoluteURL строит полный адрес по схеме и хосту запроса.
func absoluteURL(r *http.Request, path string) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host + path
}
