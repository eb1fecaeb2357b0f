package main

import (
	"context"
	"testing"

	"github.com/UkralStul/blog-service/internal/storage"
	"github.com/UkralStul/blog-service/internal/storage/inmemory"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeed(t *testing.T) {
	ctx := context.Background()
	log, _ := test.NewNullLogger()
	store := inmemory.New()

	require.NoError(t, seed(ctx, store, log))
	// Повторный запуск ничего не добавляет
	require.NoError(t, seed(ctx, store, log))

	all, err := store.ListAllPosts(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	published, err := store.CountPublishedPosts(ctx, storage.PostFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, published)

	tag, err := store.GetTagBySlug(ctx, "go")
	require.NoError(t, err)
	count, err := store.CountPublishedPosts(ctx, storage.PostFilter{TagID: tag.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestRootCommand(t *testing.T) {
	root := newRootCommand()
	names := make([]string, 0)
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"serve", "createsuperuser", "moderate"}, names)
}
