package dataloader

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/UkralStul/blog-service/internal/domain"
	"github.com/UkralStul/blog-service/internal/storage"
	"github.com/graph-gophers/dataloader"
)

type contextKey string

const key = contextKey("dataloaders")

// Loaders содержит все дата-лоадеры приложения.
type Loaders struct {
	TagsByPostID *dataloader.Loader
}

// NewLoaders создает лоадеры на один запрос. Кэш лоадера живет столько же, сколько запрос.
func NewLoaders(store storage.TagStore) *Loaders {
	batchFn := func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		postIDs := keys.Keys()

		// Один запрос к хранилищу на всю пачку
		tagsMap, err := store.GetTagsByPostIDs(ctx, postIDs)
		if err != nil {
			results := make([]*dataloader.Result, len(keys))
			for i := range results {
				results[i] = &dataloader.Result{Error: err}
			}
			return results
		}

		// Результат в том же порядке, что и ключи
		results := make([]*dataloader.Result, len(keys))
		for i, postID := range postIDs {
			tags := tagsMap[postID]
			if tags == nil {
				tags = []*domain.Tag{}
			}
			results[i] = &dataloader.Result{Data: tags}
		}
		return results
	}

	return &Loaders{
		TagsByPostID: dataloader.NewBatchedLoader(batchFn, dataloader.WithWait(time.Millisecond*1)),
	}
}

// Middleware для внедрения лоадеров в контекст запроса.
func Middleware(store storage.TagStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), key, NewLoaders(store))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// For извлекает лоадеры из контекста.
func For(ctx context.Context) (*Loaders, bool) {
	loaders, ok := ctx.Value(key).(*Loaders)
	return loaders, ok
}

// FillTags догружает метки всем постам одной пачкой.
func (l *Loaders) FillTags(ctx context.Context, posts []*domain.Post) error {
	if len(posts) == 0 {
		return nil
	}
	keys := make(dataloader.Keys, len(posts))
	for i, p := range posts {
		keys[i] = dataloader.StringKey(p.ID)
	}

	values, errs := l.TagsByPostID.LoadMany(ctx, keys)()
	for _, err := range errs {
		if err != nil {
			return fmt.Errorf("failed to load tags: %w", err)
		}
	}
	for i, v := range values {
		tags, ok := v.([]*domain.Tag)
		if !ok {
			return fmt.Errorf("unexpected tags type %T for post %s", v, posts[i].ID)
		}
		posts[i].Tags = tags
	}
	return nil
}
