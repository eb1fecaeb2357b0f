// Package blog - сценарии публикации: список постов, страница поста,
// отправка ссылки другу и прием комментариев.
//
// Service не хранит состояния между запросами: каждый вызов заново читает хранилище.
package blog

import (
	"context"
	"errors"
	"fmt"

	"github.com/UkralStul/blog-service/internal/domain"
	"github.com/UkralStul/blog-service/internal/forms"
	"github.com/UkralStul/blog-service/internal/notify"
	"github.com/UkralStul/blog-service/internal/pagination"
	"github.com/UkralStul/blog-service/internal/storage"
	"github.com/sirupsen/logrus"
)

// PostsPerPage - размер страницы списка постов.
const PostsPerPage = 3

// Service - сценарии публикации.
type Service struct {
	tags     storage.TagStore
	posts    storage.PostStore
	comments storage.CommentStore
	mailer   notify.Sender
	from     string
	log      logrus.FieldLogger
}

// NewService создает Service. from - адрес отправителя писем.
func NewService(store storage.Storage, mailer notify.Sender, from string, log logrus.FieldLogger) *Service {
	return &Service{
		tags:     store,
		posts:    store,
		comments: store,
		mailer:   mailer,
		from:     from,
		log:      log,
	}
}

// publishedSource отдает опубликованные посты пагинатору.
type publishedSource struct {
	posts  storage.PostStore
	filter storage.PostFilter
}

func (s publishedSource) Count(ctx context.Context) (int, error) {
	return s.posts.CountPublishedPosts(ctx, s.filter)
}

func (s publishedSource) Slice(ctx context.Context, offset, limit int) ([]*domain.Post, error) {
	return s.posts.ListPublishedPosts(ctx, s.filter, limit, offset)
}

// PublishedPosts возвращает упорядоченную выборку опубликованных постов,
// при непустом tagSlug - только с этой меткой. Неизвестная метка - domain.ErrNotFound.
func (s *Service) PublishedPosts(ctx context.Context, tagSlug string) (pagination.Source[*domain.Post], *domain.Tag, error) {
	if tagSlug == "" {
		return publishedSource{posts: s.posts}, nil, nil
	}
	tag, err := s.tags.GetTagBySlug(ctx, tagSlug)
	if err != nil {
		return nil, nil, err
	}
	return publishedSource{posts: s.posts, filter: storage.PostFilter{TagID: tag.ID}}, tag, nil
}

// ListResult - данные для страницы списка.
type ListResult struct {
	Posts *pagination.Page[*domain.Post]
	Tag   *domain.Tag
}

// ListPosts - список опубликованных постов с мягкой пагинацией:
// плохой номер страницы дает первую страницу, слишком большой - последнюю.
func (s *Service) ListPosts(ctx context.Context, tagSlug, pageToken string) (*ListResult, error) {
	src, tag, err := s.PublishedPosts(ctx, tagSlug)
	if err != nil {
		return nil, err
	}

	page, err := pagination.Paginate(ctx, src, PostsPerPage, pageToken)
	if err != nil {
		return nil, fmt.Errorf("failed to paginate posts: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"tag":   tagSlug,
		"page":  page.Number,
		"total": page.TotalItems,
	}).Debug("posts listed")
	return &ListResult{Posts: page, Tag: tag}, nil
}

// ListPostsStrict - альтернативный список без фильтра по метке. Токен "last"
// дает последнюю страницу, любой другой неверный номер - domain.ErrNotFound.
func (s *Service) ListPostsStrict(ctx context.Context, pageToken string) (*pagination.Page[*domain.Post], error) {
	p, err := pagination.New[*domain.Post](ctx, publishedSource{posts: s.posts}, PostsPerPage)
	if err != nil {
		return nil, fmt.Errorf("failed to paginate posts: %w", err)
	}

	number := 1
	switch pageToken {
	case "":
	case pagination.LastPage:
		number = p.NumPages()
	default:
		number, err = p.Validate(pageToken)
		if err != nil {
			return nil, fmt.Errorf("invalid page %q: %w", pageToken, domain.ErrNotFound)
		}
	}
	return p.Page(ctx, number)
}

// DetailResult - данные для страницы поста.
type DetailResult struct {
	Post     *domain.Post
	Comments []*domain.Comment
	Form     *forms.CommentForm
}

// PostDetail находит опубликованный пост по естественному ключу и его активные комментарии.
func (s *Service) PostDetail(ctx context.Context, key domain.NaturalKey) (*DetailResult, error) {
	if !key.Valid() {
		return nil, fmt.Errorf("post %s: %w", key, domain.ErrNotFound)
	}

	post, err := s.posts.GetPublishedPost(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrNaturalKeyConflict) {
			s.log.WithError(err).WithField("key", key.String()).Error("natural key is not unique")
		}
		return nil, err
	}

	comments, err := s.comments.ListActiveComments(ctx, post.ID)
	if err != nil {
		return nil, err
	}

	return &DetailResult{Post: post, Comments: comments, Form: &forms.CommentForm{}}, nil
}

// SharedPost возвращает опубликованный пост по id для формы "поделиться".
func (s *Service) SharedPost(ctx context.Context, postID string) (*domain.Post, error) {
	return s.posts.GetPublishedPostByID(ctx, postID)
}

// ShareSubject и ShareBody - шаблон письма "поделиться постом".
func ShareSubject(name, title string) string {
	return fmt.Sprintf("%s recommends you read %s", name, title)
}

func ShareBody(name, title, postURL, comments string) string {
	return fmt.Sprintf("Read %s at %s\n\n %s's comments: %s", title, postURL, name, comments)
}

// SharePost проверяет форму и отправляет письмо получателю.
// Невалидная форма - (false, nil), ошибки остаются в form.Errors.
// Ошибка отправки не повторяется и возвращается как есть (domain.ErrDelivery).
func (s *Service) SharePost(ctx context.Context, post *domain.Post, form *forms.EmailPostForm, postURL string) (bool, error) {
	ok, err := form.IsValid()
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	subject := ShareSubject(form.Name, post.Title)
	body := ShareBody(form.Name, post.Title, postURL, form.Comments)
	if err := s.mailer.Send(ctx, subject, body, s.from, []string{form.To}); err != nil {
		return false, fmt.Errorf("failed to share post %s: %w", post.ID, err)
	}

	s.log.WithFields(logrus.Fields{"post_id": post.ID, "to": form.To}).Info("post shared")
	return true, nil
}

// CommentResult - итог отправки комментария. Comment == nil, если форма не прошла проверку.
type CommentResult struct {
	Post    *domain.Post
	Form    *forms.CommentForm
	Comment *domain.Comment
}

// SubmitComment принимает комментарий к опубликованному посту.
// Комментарий сохраняется целиком или не сохраняется вовсе.
func (s *Service) SubmitComment(ctx context.Context, postID string, form *forms.CommentForm) (*CommentResult, error) {
	post, err := s.posts.GetPublishedPostByID(ctx, postID)
	if err != nil {
		return nil, err
	}

	result := &CommentResult{Post: post, Form: form}
	ok, err := form.IsValid()
	if err != nil {
		return nil, err
	}
	if !ok {
		return result, nil
	}

	comment, err := s.comments.CreateComment(ctx, form.Comment(post.ID))
	if err != nil {
		return nil, fmt.Errorf("failed to save comment: %w", err)
	}
	result.Comment = comment

	s.log.WithFields(logrus.Fields{"post_id": post.ID, "comment_id": comment.ID}).Info("comment added")
	return result, nil
}

// Sidebar - общее число опубликованных постов и последние из них.
type Sidebar struct {
	TotalPosts  int            `json:"totalPosts"`
	LatestPosts []*domain.Post `json:"latestPosts"`
}

// Sidebar собирает данные боковой панели: count последних опубликованных постов.
func (s *Service) Sidebar(ctx context.Context, count int) (*Sidebar, error) {
	total, err := s.posts.CountPublishedPosts(ctx, storage.PostFilter{})
	if err != nil {
		return nil, err
	}
	latest, err := s.posts.ListPublishedPosts(ctx, storage.PostFilter{}, count, 0)
	if err != nil {
		return nil, err
	}
	return &Sidebar{TotalPosts: total, LatestPosts: latest}, nil
}

// AllPosts возвращает все посты для sitemap.
func (s *Service) AllPosts(ctx context.Context) ([]*domain.Post, error) {
	return s.posts.ListAllPosts(ctx)
}

// ModerateComment скрывает или возвращает комментарий.
func (s *Service) ModerateComment(ctx context.Context, commentID string, active bool) (*domain.Comment, error) {
	comment, err := s.comments.SetCommentActive(ctx, commentID, active)
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"comment_id": comment.ID, "active": active}).Info("comment moderated")
	return comment, nil
}
