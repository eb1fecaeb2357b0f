package main

import (
	"context"
	"fmt"
	"time"

	"github.com/UkralStul/blog-service/internal/domain"
	"github.com/UkralStul/blog-service/internal/storage"
	"github.com/sirupsen/logrus"
)

// seed заполняет пустое хранилище демонстрационными постами.
func seed(ctx context.Context, s storage.Storage, log logrus.FieldLogger) error {
	all, err := s.ListAllPosts(ctx)
	if err != nil {
		return fmt.Errorf("seed: failed to list posts: %w", err)
	}
	if len(all) > 0 {
		log.WithField("posts", len(all)).Debug("seed skipped, storage is not empty")
		return nil
	}

	now := time.Now().UTC()

	// 1. Опубликованный пост с метками и комментариями
	post, err := s.CreatePost(ctx, &domain.Post{
		Title:    "Getting started with Go",
		Body:     "Это содержимое тестового поста. Здесь мы обсуждаем Go и веб-сервисы.",
		AuthorID: "user-1",
		Publish:  now.Add(-48 * time.Hour),
		Status:   domain.StatusPublished,
		Tags:     []*domain.Tag{{Name: "Go"}, {Name: "Web"}},
	})
	if err != nil {
		return fmt.Errorf("seed: failed to create post: %w", err)
	}

	for _, c := range []*domain.Comment{
		{PostID: post.ID, Name: "Alice", Email: "alice@example.com", Body: "Отличный пост! Очень информативно.", Active: true},
		{PostID: post.ID, Name: "Bob", Email: "bob@example.com", Body: "А как насчет производительности?", Active: true},
	} {
		if _, err := s.CreateComment(ctx, c); err != nil {
			return fmt.Errorf("seed: failed to create comment: %w", err)
		}
	}

	// 2. Еще один опубликованный пост
	if _, err := s.CreatePost(ctx, &domain.Post{
		Title:    "Pagination done right",
		Body:     "Пост о постраничном выводе.",
		AuthorID: "user-1",
		Publish:  now.Add(-24 * time.Hour),
		Status:   domain.StatusPublished,
		Tags:     []*domain.Tag{{Name: "Go"}},
	}); err != nil {
		return fmt.Errorf("seed: failed to create post: %w", err)
	}

	// 3. Черновик: в списках и на странице поста его нет
	draft, err := s.CreatePost(ctx, &domain.Post{
		Title:    "Unfinished thoughts",
		Body:     "Этот пост еще не опубликован.",
		AuthorID: "user-admin",
		Status:   domain.StatusDraft,
	})
	if err != nil {
		return fmt.Errorf("seed: failed to create draft: %w", err)
	}

	log.WithFields(logrus.Fields{"post_id": post.ID, "draft_id": draft.ID}).Info("mock data filled")
	return nil
}
