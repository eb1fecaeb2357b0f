package pagination

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sevenPosts() []string {
	return []string{"p0", "p1", "p2", "p3", "p4", "p5", "p6"}
}

func TestPaginateSlice_SevenItems(t *testing.T) {
	items := sevenPosts()

	tests := []struct {
		name   string
		token  string
		number int
		want   []string
	}{
		{name: "first page", token: "1", number: 1, want: items[0:3]},
		{name: "second page", token: "2", number: 2, want: items[3:6]},
		{name: "third page", token: "3", number: 3, want: items[6:7]},
		{name: "past the end falls back to last", token: "5", number: 3, want: items[6:7]},
		{name: "not a number falls back to first", token: "x", number: 1, want: items[0:3]},
		{name: "empty token", token: "", number: 1, want: items[0:3]},
		{name: "zero", token: "0", number: 1, want: items[0:3]},
		{name: "negative", token: "-2", number: 1, want: items[0:3]},
		{name: "fraction", token: "2.5", number: 1, want: items[0:3]},
		{name: "surrounding spaces", token: " 2 ", number: 2, want: items[3:6]},
		{name: "number beyond int falls back to last", token: "99999999999999999999", number: 3, want: items[6:7]},
		{name: "signed number beyond int", token: "+99999999999999999999", number: 3, want: items[6:7]},
		{name: "negative beyond int", token: "-99999999999999999999", number: 1, want: items[0:3]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := PaginateSlice(items, 3, tt.token)
			require.NoError(t, err)
			assert.Equal(t, tt.number, page.Number)
			assert.Equal(t, tt.want, page.Items)
			assert.Equal(t, 3, page.TotalPages)
			assert.Equal(t, 7, page.TotalItems)
		})
	}
}

func TestPaginateSlice_OffsetsForEveryValidPage(t *testing.T) {
	items := make([]int, 23)
	for i := range items {
		items[i] = i
	}
	size := 4
	totalPages := 6

	for p := 1; p <= totalPages; p++ {
		page, err := PaginateSlice(items, size, strconv.Itoa(p))
		require.NoError(t, err)
		end := p * size
		if end > len(items) {
			end = len(items)
		}
		assert.Equal(t, items[(p-1)*size:end], page.Items, "page %d", p)
		assert.Equal(t, p < totalPages, page.HasNext)
		assert.Equal(t, p > 1, page.HasPrevious)
	}

	for p := totalPages + 1; p < totalPages+20; p++ {
		page, err := PaginateSlice(items, size, strconv.Itoa(p))
		require.NoError(t, err)
		assert.Equal(t, totalPages, page.Number, "page %d must fall back to the last one", p)
	}
}

func TestPaginateSlice_Empty(t *testing.T) {
	page, err := PaginateSlice([]string{}, 3, "4")
	require.NoError(t, err)
	assert.Equal(t, 1, page.Number)
	assert.Equal(t, 1, page.TotalPages)
	assert.Empty(t, page.Items)
	assert.False(t, page.HasNext)
	assert.False(t, page.HasPrevious)
}

func TestPage_Neighbours(t *testing.T) {
	page, err := PaginateSlice(sevenPosts(), 3, "2")
	require.NoError(t, err)
	assert.Equal(t, 3, page.NextNumber())
	assert.Equal(t, 1, page.PreviousNumber())

	first, err := PaginateSlice(sevenPosts(), 3, "1")
	require.NoError(t, err)
	assert.Equal(t, 0, first.PreviousNumber())
}

func TestPaginator_Validate(t *testing.T) {
	p, err := New[string](context.Background(), SliceSource[string](sevenPosts()), 3)
	require.NoError(t, err)

	n, err := p.Validate("3")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, err = p.Validate("abc")
	assert.ErrorIs(t, err, ErrPageNotAnInteger)

	_, err = p.Validate("4")
	assert.ErrorIs(t, err, ErrEmptyPage)

	_, err = p.Page(context.Background(), 9)
	assert.ErrorIs(t, err, ErrEmptyPage)
}

func TestNew_InvalidPageSize(t *testing.T) {
	_, err := New[string](context.Background(), SliceSource[string](nil), 0)
	assert.Error(t, err)
}

// countingSource считает обращения к хранилищу
type countingSource struct {
	items   []int
	counts  int
	slices  int
	failing bool
}

func (s *countingSource) Count(context.Context) (int, error) {
	s.counts++
	if s.failing {
		return 0, errors.New("boom")
	}
	return len(s.items), nil
}

func (s *countingSource) Slice(ctx context.Context, offset, limit int) ([]int, error) {
	s.slices++
	return SliceSource[int](s.items).Slice(ctx, offset, limit)
}

func TestPaginate_LoadsOnlyRequestedSlice(t *testing.T) {
	src := &countingSource{items: []int{1, 2, 3, 4, 5}}

	page, err := Paginate[int](context.Background(), src, 2, "9")
	require.NoError(t, err)
	assert.Equal(t, []int{5}, page.Items)
	assert.Equal(t, 1, src.counts)
	assert.Equal(t, 1, src.slices)
}

func TestPaginate_SourceError(t *testing.T) {
	_, err := Paginate[int](context.Background(), &countingSource{failing: true}, 2, "1")
	assert.Error(t, err)
}
