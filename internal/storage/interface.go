package storage

import (
	"context"

	"github.com/UkralStul/blog-service/internal/domain"
)

// PostFilter - условия выборки опубликованных постов.
type PostFilter struct {
	TagID string
}

// UserStore хранит учетные записи. Уникальность email и username
// обеспечивает хранилище и сообщает о нарушении через domain.ErrDuplicateKey.
type UserStore interface {
	CreateUser(ctx context.Context, user *domain.User) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdateLastLogin(ctx context.Context, userID string) error
}

// TagStore хранит метки постов.
type TagStore interface {
	GetTagBySlug(ctx context.Context, slug string) (*domain.Tag, error)

	// Метод для Dataloader'а
	GetTagsByPostIDs(ctx context.Context, postIDs []string) (map[string][]*domain.Tag, error)
}

// PostStore хранит посты. Выборки Published* никогда не возвращают черновики.
type PostStore interface {
	CreatePost(ctx context.Context, post *domain.Post) (*domain.Post, error)
	GetPostByID(ctx context.Context, id string) (*domain.Post, error)
	GetPublishedPostByID(ctx context.Context, id string) (*domain.Post, error)
	GetPublishedPost(ctx context.Context, key domain.NaturalKey) (*domain.Post, error)

	// Методы для пагинации, сортировка по дате публикации по убыванию.
	// Метки в результат ListPublishedPosts не входят.
	CountPublishedPosts(ctx context.Context, filter PostFilter) (int, error)
	ListPublishedPosts(ctx context.Context, filter PostFilter, limit, offset int) ([]*domain.Post, error)

	// ListAllPosts возвращает все посты независимо от статуса (для sitemap).
	ListAllPosts(ctx context.Context) ([]*domain.Post, error)
}

// CommentStore хранит комментарии. Статус поста при создании не проверяется,
// это делает вызывающая сторона.
type CommentStore interface {
	CreateComment(ctx context.Context, comment *domain.Comment) (*domain.Comment, error)
	GetCommentByID(ctx context.Context, id string) (*domain.Comment, error)
	ListActiveComments(ctx context.Context, postID string) ([]*domain.Comment, error)
	SetCommentActive(ctx context.Context, id string, active bool) (*domain.Comment, error)
}

// Storage определяет контракт для хранилищ.
type Storage interface {
	UserStore
	TagStore
	PostStore
	CommentStore
}
