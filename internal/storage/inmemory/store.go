package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/UkralStul/blog-service/internal/domain"
	"github.com/UkralStul/blog-service/internal/storage"
	"github.com/google/uuid"
)

// Store реализует интерфейс Storage в памяти.
// Наружу отдаются копии записей, чтобы вызывающий код не менял состояние хранилища.
type Store struct {
	mu             sync.RWMutex
	users          map[string]*domain.User
	usersByEmail   map[string]string // map[email]userID
	usersByName    map[string]string // map[username]userID
	tags           map[string]*domain.Tag
	tagsBySlug     map[string]string // map[slug]tagID
	posts          map[string]*domain.Post
	postTags       map[string][]string // map[postID][]tagID
	comments       map[string]*domain.Comment
	commentsByPost map[string][]string // map[postID][]commentID
}

// New создает новый экземпляр in-memory хранилища.
func New() *Store {
	return &Store{
		users:          make(map[string]*domain.User),
		usersByEmail:   make(map[string]string),
		usersByName:    make(map[string]string),
		tags:           make(map[string]*domain.Tag),
		tagsBySlug:     make(map[string]string),
		posts:          make(map[string]*domain.Post),
		postTags:       make(map[string][]string),
		comments:       make(map[string]*domain.Comment),
		commentsByPost: make(map[string][]string),
	}
}

var _ storage.Storage = (*Store)(nil)

// === User Methods ===

func (s *Store) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.usersByEmail[user.Email]; ok {
		return nil, fmt.Errorf("user with email %s: %w", user.Email, domain.ErrDuplicateKey)
	}
	if _, ok := s.usersByName[user.Username]; ok {
		return nil, fmt.Errorf("user with username %q: %w", user.Username, domain.ErrDuplicateKey)
	}

	u := *user
	u.ID = uuid.NewString()
	if u.DateJoined.IsZero() {
		u.DateJoined = time.Now().UTC()
	}
	s.users[u.ID] = &u
	s.usersByEmail[u.Email] = u.ID
	s.usersByName[u.Username] = u.ID

	*user = u
	return &u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.usersByEmail[email]
	if !ok {
		return nil, fmt.Errorf("user with email %s: %w", email, domain.ErrNotFound)
	}
	u := *s.users[id]
	return &u, nil
}

func (s *Store) UpdateLastLogin(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("user with id %s: %w", userID, domain.ErrNotFound)
	}
	now := time.Now().UTC()
	u.LastLogin = &now
	return nil
}

// === Tag Methods ===

func (s *Store) GetTagBySlug(ctx context.Context, slug string) (*domain.Tag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.tagsBySlug[slug]
	if !ok {
		return nil, fmt.Errorf("tag with slug %s: %w", slug, domain.ErrNotFound)
	}
	t := *s.tags[id]
	return &t, nil
}

func (s *Store) GetTagsByPostIDs(ctx context.Context, postIDs []string) (map[string][]*domain.Tag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make(map[string][]*domain.Tag, len(postIDs))
	for _, pID := range postIDs {
		results[pID] = s.tagsOf(pID)
	}
	return results, nil
}

// tagsOf возвращает копии меток поста, отсортированные по имени. Вызывается под блокировкой.
func (s *Store) tagsOf(postID string) []*domain.Tag {
	ids := s.postTags[postID]
	tags := make([]*domain.Tag, 0, len(ids))
	for _, id := range ids {
		if t, ok := s.tags[id]; ok {
			c := *t
			tags = append(tags, &c)
		}
	}
	sort.Slice(tags, func(i, j int) bool {
		return tags[i].Name < tags[j].Name
	})
	return tags
}

// === Post Methods ===

func (s *Store) CreatePost(ctx context.Context, post *domain.Post) (*domain.Post, error) {
	if err := storage.PreparePost(post); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// slug уникален в пределах даты публикации
	for _, p := range s.posts {
		if p.Slug == post.Slug && storage.SameDay(p.Publish, post.Publish) {
			return nil, fmt.Errorf("post with slug %s on %s: %w", post.Slug, post.Publish.UTC().Format("2006-01-02"), domain.ErrDuplicateKey)
		}
	}

	now := time.Now().UTC()
	post.ID = uuid.NewString()
	post.CreatedAt = now
	post.UpdatedAt = now

	tagIDs := make([]string, 0, len(post.Tags))
	for _, t := range post.Tags {
		id, ok := s.tagsBySlug[t.Slug]
		if !ok {
			id = uuid.NewString()
			s.tags[id] = &domain.Tag{ID: id, Name: t.Name, Slug: t.Slug}
			s.tagsBySlug[t.Slug] = id
		}
		t.ID = id
		tagIDs = append(tagIDs, id)
	}

	p := *post
	p.Tags = nil
	p.Comments = nil
	s.posts[p.ID] = &p
	s.postTags[p.ID] = tagIDs
	return post, nil
}

func (s *Store) GetPostByID(ctx context.Context, id string) (*domain.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	post, ok := s.posts[id]
	if !ok {
		return nil, fmt.Errorf("post with id %s: %w", id, domain.ErrNotFound)
	}
	return s.clonePost(post), nil
}

func (s *Store) GetPublishedPostByID(ctx context.Context, id string) (*domain.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	post, ok := s.posts[id]
	if !ok || !post.IsPublished() {
		return nil, fmt.Errorf("published post with id %s: %w", id, domain.ErrNotFound)
	}
	return s.clonePost(post), nil
}

func (s *Store) GetPublishedPost(ctx context.Context, key domain.NaturalKey) (*domain.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found []*domain.Post
	for _, p := range s.posts {
		if p.IsPublished() && p.Key() == key {
			found = append(found, p)
		}
	}
	switch len(found) {
	case 0:
		return nil, fmt.Errorf("published post %s: %w", key, domain.ErrNotFound)
	case 1:
		return s.clonePost(found[0]), nil
	default:
		return nil, fmt.Errorf("published post %s (%d matches): %w", key, len(found), domain.ErrNaturalKeyConflict)
	}
}

func (s *Store) CountPublishedPosts(ctx context.Context, filter storage.PostFilter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.publishedPosts(filter)), nil
}

func (s *Store) ListPublishedPosts(ctx context.Context, filter storage.PostFilter, limit, offset int) ([]*domain.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	allPosts := s.publishedPosts(filter)

	start := offset
	if start >= len(allPosts) {
		return []*domain.Post{}, nil
	}
	end := start + limit
	if end > len(allPosts) {
		end = len(allPosts)
	}

	// Метки в списке не отдаются, их догружает Dataloader
	page := make([]*domain.Post, 0, end-start)
	for _, p := range allPosts[start:end] {
		c := *p
		page = append(page, &c)
	}
	return page, nil
}

func (s *Store) ListAllPosts(ctx context.Context) ([]*domain.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	allPosts := make([]*domain.Post, 0, len(s.posts))
	for _, p := range s.posts {
		allPosts = append(allPosts, s.clonePost(p))
	}
	sortByPublishDesc(allPosts)
	return allPosts, nil
}

// publishedPosts возвращает опубликованные посты, подходящие под фильтр. Вызывается под блокировкой.
func (s *Store) publishedPosts(filter storage.PostFilter) []*domain.Post {
	posts := make([]*domain.Post, 0, len(s.posts))
	for _, p := range s.posts {
		if !p.IsPublished() {
			continue
		}
		if filter.TagID != "" && !s.hasTag(p.ID, filter.TagID) {
			continue
		}
		posts = append(posts, p)
	}
	sortByPublishDesc(posts)
	return posts
}

func (s *Store) hasTag(postID, tagID string) bool {
	for _, id := range s.postTags[postID] {
		if id == tagID {
			return true
		}
	}
	return false
}

// clonePost копирует пост вместе с метками. Вызывается под блокировкой.
func (s *Store) clonePost(p *domain.Post) *domain.Post {
	c := *p
	c.Tags = s.tagsOf(p.ID)
	return &c
}

// Сортировка стабильна: при равной дате публикации раньше идет более новый по созданию
func sortByPublishDesc(posts []*domain.Post) {
	sort.Slice(posts, func(i, j int) bool {
		if posts[i].Publish.Equal(posts[j].Publish) {
			return posts[i].CreatedAt.After(posts[j].CreatedAt)
		}
		return posts[i].Publish.After(posts[j].Publish)
	})
}

// === Comment Methods ===

func (s *Store) CreateComment(ctx context.Context, comment *domain.Comment) (*domain.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Проверка поста
	if _, ok := s.posts[comment.PostID]; !ok {
		return nil, fmt.Errorf("post with id %s: %w", comment.PostID, domain.ErrNotFound)
	}

	now := time.Now().UTC()
	comment.ID = uuid.NewString()
	comment.CreatedAt = now
	comment.UpdatedAt = now

	c := *comment
	s.comments[c.ID] = &c
	s.commentsByPost[c.PostID] = append(s.commentsByPost[c.PostID], c.ID)

	return comment, nil
}

func (s *Store) GetCommentByID(ctx context.Context, id string) (*domain.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	comment, ok := s.comments[id]
	if !ok {
		return nil, fmt.Errorf("comment with id %s: %w", id, domain.ErrNotFound)
	}
	c := *comment
	return &c, nil
}

func (s *Store) ListActiveComments(ctx context.Context, postID string) ([]*domain.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.commentsByPost[postID]
	comments := make([]*domain.Comment, 0, len(ids))
	for _, id := range ids {
		if c, ok := s.comments[id]; ok && c.Active {
			cc := *c
			comments = append(comments, &cc)
		}
	}
	// Сортируем по времени создания, порядок вставки сохраняется при равных метках
	sort.SliceStable(comments, func(i, j int) bool {
		return comments[i].CreatedAt.Before(comments[j].CreatedAt)
	})
	return comments, nil
}

func (s *Store) SetCommentActive(ctx context.Context, id string, active bool) (*domain.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	comment, ok := s.comments[id]
	if !ok {
		return nil, fmt.Errorf("comment with id %s: %w", id, domain.ErrNotFound)
	}
	comment.Active = active
	comment.UpdatedAt = time.Now().UTC()
	c := *comment
	return &c, nil
}
