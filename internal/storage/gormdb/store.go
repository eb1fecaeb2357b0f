package gormdb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/UkralStul/blog-service/internal/domain"
	"github.com/UkralStul/blog-service/internal/storage"
	"github.com/google/uuid"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Store реализует интерфейс Storage поверх gorm (PostgreSQL или SQLite).
type Store struct {
	db *gorm.DB
}

var _ storage.Storage = (*Store)(nil)

// NewPostgres создает хранилище PostgreSQL.
func NewPostgres(dsn string, w logger.Writer) (*Store, error) {
	return New(postgres.Open(dsn), w)
}

// NewSQLite создает хранилище SQLite (файл или "file::memory:").
func NewSQLite(dsn string, w logger.Writer) (*Store, error) {
	return New(sqlite.Open(dsn), w)
}

// New открывает соединение и выполняет миграцию схемы.
// Если w == nil, SQL-логирование отключено.
func New(dialector gorm.Dialector, w logger.Writer) (*Store, error) {
	gormLogger := logger.Discard
	if w != nil {
		gormLogger = logger.New(w, logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		})
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Выполняем миграцию схемы
	if err := db.AutoMigrate(&domain.User{}, &domain.Tag{}, &domain.Post{}, &domain.Comment{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close закрывает пул соединений.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// translate приводит ошибки gorm к доменным.
func translate(err error, format string, args ...any) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		err = domain.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		err = domain.ErrDuplicateKey
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// === User Methods ===

func (s *Store) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var taken int64
		if err := tx.Model(&domain.User{}).
			Where("email = ? OR username = ?", user.Email, user.Username).
			Count(&taken).Error; err != nil {
			return err
		}
		if taken > 0 {
			return gorm.ErrDuplicatedKey
		}

		user.ID = uuid.NewString()
		if user.DateJoined.IsZero() {
			user.DateJoined = time.Now().UTC()
		}
		return tx.Create(user).Error
	})
	if err != nil {
		return nil, translate(err, "failed to create user %s", user.Email)
	}
	return user, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	if err := s.db.WithContext(ctx).First(&user, "email = ?", email).Error; err != nil {
		return nil, translate(err, "failed to find user by email %s", email)
	}
	return &user, nil
}

func (s *Store) UpdateLastLogin(ctx context.Context, userID string) error {
	res := s.db.WithContext(ctx).Model(&domain.User{}).
		Where("id = ?", userID).
		Update("last_login", time.Now().UTC())
	if res.Error != nil {
		return translate(res.Error, "failed to update last login of user %s", userID)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("user with id %s: %w", userID, domain.ErrNotFound)
	}
	return nil
}

// === Tag Methods ===

func (s *Store) GetTagBySlug(ctx context.Context, slug string) (*domain.Tag, error) {
	var tag domain.Tag
	if err := s.db.WithContext(ctx).First(&tag, "slug = ?", slug).Error; err != nil {
		return nil, translate(err, "failed to find tag %s", slug)
	}
	return &tag, nil
}

// tagRow - строка соединения tags и post_tags.
type tagRow struct {
	PostID string
	ID     string
	Name   string
	Slug   string
}

func (s *Store) GetTagsByPostIDs(ctx context.Context, postIDs []string) (map[string][]*domain.Tag, error) {
	result := make(map[string][]*domain.Tag, len(postIDs))
	if len(postIDs) == 0 {
		return result, nil
	}

	// Загружаем все метки для всех переданных постов одним запросом
	var rows []tagRow
	err := s.db.WithContext(ctx).
		Table("tags").
		Select("post_tags.post_id AS post_id, tags.id AS id, tags.name AS name, tags.slug AS slug").
		Joins("JOIN post_tags ON post_tags.tag_id = tags.id").
		Where("post_tags.post_id IN ?", postIDs).
		Order("tags.name ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load tags: %w", err)
	}

	for _, id := range postIDs {
		result[id] = []*domain.Tag{}
	}
	for _, r := range rows {
		result[r.PostID] = append(result[r.PostID], &domain.Tag{ID: r.ID, Name: r.Name, Slug: r.Slug})
	}
	return result, nil
}

// === Post Methods ===

func (s *Store) CreatePost(ctx context.Context, post *domain.Post) (*domain.Post, error) {
	if err := storage.PreparePost(post); err != nil {
		return nil, err
	}

	// Проверка slug'а, создание меток и поста в одной транзакции
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		start, end := post.Key().DayRange()
		var clash int64
		if err := tx.Model(&domain.Post{}).
			Where("slug = ? AND publish >= ? AND publish < ?", post.Slug, start, end).
			Count(&clash).Error; err != nil {
			return err
		}
		if clash > 0 {
			return gorm.ErrDuplicatedKey
		}

		for _, t := range post.Tags {
			var existing domain.Tag
			err := tx.Where("slug = ?", t.Slug).Take(&existing).Error
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				t.ID = uuid.NewString()
				if err := tx.Create(t).Error; err != nil {
					return err
				}
			case err != nil:
				return err
			default:
				*t = existing
			}
		}

		post.ID = uuid.NewString()
		// GORM сам запишет связи в post_tags
		return tx.Create(post).Error
	})
	if err != nil {
		return nil, translate(err, "failed to create post %s", post.Slug)
	}
	return post, nil
}

func (s *Store) GetPostByID(ctx context.Context, id string) (*domain.Post, error) {
	var post domain.Post
	if err := s.db.WithContext(ctx).Preload("Tags").First(&post, "id = ?", id).Error; err != nil {
		return nil, translate(err, "failed to find post %s", id)
	}
	return &post, nil
}

func (s *Store) GetPublishedPostByID(ctx context.Context, id string) (*domain.Post, error) {
	var post domain.Post
	err := s.db.WithContext(ctx).
		Preload("Tags").
		Where("status = ?", domain.StatusPublished).
		First(&post, "id = ?", id).Error
	if err != nil {
		return nil, translate(err, "failed to find published post %s", id)
	}
	return &post, nil
}

func (s *Store) GetPublishedPost(ctx context.Context, key domain.NaturalKey) (*domain.Post, error) {
	start, end := key.DayRange()

	// Берем две записи, чтобы заметить нарушение уникальности
	var posts []*domain.Post
	err := s.db.WithContext(ctx).
		Preload("Tags").
		Where("status = ? AND slug = ? AND publish >= ? AND publish < ?", domain.StatusPublished, key.Slug, start, end).
		Limit(2).
		Find(&posts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find published post %s: %w", key, err)
	}

	switch len(posts) {
	case 0:
		return nil, fmt.Errorf("published post %s: %w", key, domain.ErrNotFound)
	case 1:
		return posts[0], nil
	default:
		return nil, fmt.Errorf("published post %s: %w", key, domain.ErrNaturalKeyConflict)
	}
}

// published строит запрос опубликованных постов с фильтром по метке.
func (s *Store) published(ctx context.Context, filter storage.PostFilter) *gorm.DB {
	query := s.db.WithContext(ctx).
		Model(&domain.Post{}).
		Where("posts.status = ?", domain.StatusPublished)
	if filter.TagID != "" {
		query = query.
			Joins("JOIN post_tags ON post_tags.post_id = posts.id").
			Where("post_tags.tag_id = ?", filter.TagID)
	}
	return query
}

func (s *Store) CountPublishedPosts(ctx context.Context, filter storage.PostFilter) (int, error) {
	var count int64
	if err := s.published(ctx, filter).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count published posts: %w", err)
	}
	return int(count), nil
}

func (s *Store) ListPublishedPosts(ctx context.Context, filter storage.PostFilter, limit, offset int) ([]*domain.Post, error) {
	var posts []*domain.Post
	err := s.published(ctx, filter).
		Select("posts.*").
		Order("posts.publish DESC, posts.created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list published posts: %w", err)
	}
	return posts, nil
}

func (s *Store) ListAllPosts(ctx context.Context) ([]*domain.Post, error) {
	var posts []*domain.Post
	err := s.db.WithContext(ctx).
		Preload("Tags").
		Order("publish DESC, created_at DESC").
		Find(&posts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	return posts, nil
}

// === Comment Methods ===

func (s *Store) CreateComment(ctx context.Context, comment *domain.Comment) (*domain.Comment, error) {
	// Проверяем существование поста и создаем комментарий в одной транзакции
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var exists int64
		if err := tx.Model(&domain.Post{}).Where("id = ?", comment.PostID).Count(&exists).Error; err != nil {
			return err
		}
		if exists == 0 {
			return gorm.ErrRecordNotFound
		}

		comment.ID = uuid.NewString()
		return tx.Create(comment).Error
	})
	if err != nil {
		return nil, translate(err, "failed to create comment for post %s", comment.PostID)
	}
	return comment, nil
}

func (s *Store) GetCommentByID(ctx context.Context, id string) (*domain.Comment, error) {
	var comment domain.Comment
	if err := s.db.WithContext(ctx).First(&comment, "id = ?", id).Error; err != nil {
		return nil, translate(err, "failed to find comment %s", id)
	}
	return &comment, nil
}

func (s *Store) ListActiveComments(ctx context.Context, postID string) ([]*domain.Comment, error) {
	var comments []*domain.Comment
	err := s.db.WithContext(ctx).
		Where("post_id = ? AND active = ?", postID, true).
		Order("created_at ASC").
		Find(&comments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list comments of post %s: %w", postID, err)
	}
	return comments, nil
}

func (s *Store) SetCommentActive(ctx context.Context, id string, active bool) (*domain.Comment, error) {
	var comment domain.Comment
	// Используем транзакцию для атомарности операции чтения-записи
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&comment, "id = ?", id).Error; err != nil {
			return err
		}
		comment.Active = active
		return tx.Save(&comment).Error
	})
	if err != nil {
		return nil, translate(err, "failed to moderate comment %s", id)
	}
	return &comment, nil
}
