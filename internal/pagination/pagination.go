// Package pagination режет упорядоченную выборку на страницы фиксированного размера.
//
// Выборка читается через Source: один подсчет и одна загрузка нужного среза,
// так что весь набор в память не поднимается.
package pagination

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrPageNotAnInteger = errors.New("page number is not an integer")
	ErrEmptyPage        = errors.New("page contains no results")
)

// LastPage - токен, которым строгий режим запрашивает последнюю страницу.
const LastPage = "last"

// Source - упорядоченная выборка, которую можно посчитать и прочитать срезом.
type Source[T any] interface {
	Count(ctx context.Context) (int, error)
	Slice(ctx context.Context, offset, limit int) ([]T, error)
}

// Page - одна страница результатов. Номера страниц начинаются с 1.
type Page[T any] struct {
	Items       []T  `json:"items"`
	Number      int  `json:"number"`
	TotalPages  int  `json:"totalPages"`
	TotalItems  int  `json:"totalItems"`
	HasNext     bool `json:"hasNext"`
	HasPrevious bool `json:"hasPrevious"`
}

// NextNumber возвращает номер следующей страницы или 0.
func (p *Page[T]) NextNumber() int {
	if !p.HasNext {
		return 0
	}
	return p.Number + 1
}

// PreviousNumber возвращает номер предыдущей страницы или 0.
func (p *Page[T]) PreviousNumber() int {
	if !p.HasPrevious {
		return 0
	}
	return p.Number - 1
}

// Paginator знает размер выборки и отдает страницы по номеру.
type Paginator[T any] struct {
	src     Source[T]
	perPage int
	count   int
}

// New считает выборку один раз. perPage должен быть положительным.
func New[T any](ctx context.Context, src Source[T], perPage int) (*Paginator[T], error) {
	if perPage <= 0 {
		return nil, fmt.Errorf("pagination: page size must be positive, got %d", perPage)
	}
	count, err := src.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("pagination: count: %w", err)
	}
	return &Paginator[T]{src: src, perPage: perPage, count: count}, nil
}

// Count возвращает общее число элементов.
func (p *Paginator[T]) Count() int {
	return p.count
}

// NumPages возвращает число страниц. Пустая выборка - одна пустая страница.
func (p *Paginator[T]) NumPages() int {
	if p.count == 0 {
		return 1
	}
	return (p.count + p.perPage - 1) / p.perPage
}

// Validate разбирает токен страницы строго: ErrPageNotAnInteger для всего,
// что не является положительным целым, ErrEmptyPage для номера за последней страницей.
func (p *Paginator[T]) Validate(token string) (int, error) {
	trimmed := strings.TrimSpace(token)
	number, err := strconv.Atoi(trimmed)
	if errors.Is(err, strconv.ErrRange) && isDigits(strings.TrimPrefix(trimmed, "+")) {
		// Положительное число, не влезающее в int, заведомо за последней страницей
		return 0, fmt.Errorf("%w: page %s of %d", ErrEmptyPage, trimmed, p.NumPages())
	}
	if err != nil || number < 1 {
		return 0, fmt.Errorf("%w: %q", ErrPageNotAnInteger, token)
	}
	if number > p.NumPages() {
		return 0, fmt.Errorf("%w: page %d of %d", ErrEmptyPage, number, p.NumPages())
	}
	return number, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Page загружает страницу с номером number, который уже должен быть проверен.
func (p *Paginator[T]) Page(ctx context.Context, number int) (*Page[T], error) {
	if number < 1 || number > p.NumPages() {
		return nil, fmt.Errorf("%w: page %d of %d", ErrEmptyPage, number, p.NumPages())
	}

	items := make([]T, 0)
	if p.count > 0 {
		loaded, err := p.src.Slice(ctx, (number-1)*p.perPage, p.perPage)
		if err != nil {
			return nil, fmt.Errorf("pagination: load page %d: %w", number, err)
		}
		items = append(items, loaded...)
	}

	return &Page[T]{
		Items:       items,
		Number:      number,
		TotalPages:  p.NumPages(),
		TotalItems:  p.count,
		HasNext:     number < p.NumPages(),
		HasPrevious: number > 1,
	}, nil
}

// Resolve переводит токен в номер страницы без ошибок:
// нечисловой или неположительный токен дает первую страницу,
// номер за концом выборки - последнюю.
func (p *Paginator[T]) Resolve(token string) int {
	number, err := p.Validate(token)
	switch {
	case errors.Is(err, ErrPageNotAnInteger):
		return 1
	case errors.Is(err, ErrEmptyPage):
		return p.NumPages()
	}
	return number
}

// Paginate возвращает страницу по токену, никогда не падая на плохом токене.
func Paginate[T any](ctx context.Context, src Source[T], perPage int, token string) (*Page[T], error) {
	p, err := New(ctx, src, perPage)
	if err != nil {
		return nil, err
	}
	return p.Page(ctx, p.Resolve(token))
}

// PaginateSlice - то же самое для среза, уже лежащего в памяти.
func PaginateSlice[T any](items []T, perPage int, token string) (*Page[T], error) {
	return Paginate[T](context.Background(), SliceSource[T](items), perPage, token)
}

// SliceSource - Source поверх среза.
type SliceSource[T any] []T

func (s SliceSource[T]) Count(context.Context) (int, error) {
	return len(s), nil
}

func (s SliceSource[T]) Slice(_ context.Context, offset, limit int) ([]T, error) {
	if offset >= len(s) {
		return []T{}, nil
	}
	end := offset + limit
	if end > len(s) {
		end = len(s)
	}
	return s[offset:end], nil
}
