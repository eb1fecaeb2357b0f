package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/UkralStul/blog-service/internal/blog"
	"github.com/UkralStul/blog-service/internal/domain"
	"github.com/UkralStul/blog-service/internal/live"
	"github.com/UkralStul/blog-service/internal/storage/inmemory"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingStore считает обращения к постам и комментариям.
type countingStore struct {
	*inmemory.Store
	calls atomic.Int32
}

func (s *countingStore) GetPublishedPostByID(ctx context.Context, id string) (*domain.Post, error) {
	s.calls.Add(1)
	return s.Store.GetPublishedPostByID(ctx, id)
}

func (s *countingStore) CreateComment(ctx context.Context, c *domain.Comment) (*domain.Comment, error) {
	s.calls.Add(1)
	return s.Store.CreateComment(ctx, c)
}

type fakeSender struct {
	subjects []string
	bodies   []string
	err      error
}

func (f *fakeSender) Send(_ context.Context, subject, body, _ string, _ []string) error {
	if f.err != nil {
		return f.err
	}
	f.subjects = append(f.subjects, subject)
	f.bodies = append(f.bodies, body)
	return nil
}

type testEnv struct {
	router http.Handler
	store  *countingStore
	sender *fakeSender
	hub    *live.Hub
	hello  *domain.Post
	draft  *domain.Post
}

var base = time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	log, _ := test.NewNullLogger()
	store := &countingStore{Store: inmemory.New()}
	sender := &fakeSender{}
	hub := live.NewHub(log)

	ctx := context.Background()
	env := &testEnv{store: store, sender: sender, hub: hub}
	for i := 1; i <= 4; i++ {
		_, err := store.CreatePost(ctx, &domain.Post{
			Title: fmt.Sprintf("Post %d", i), Body: "body", AuthorID: "a",
			Publish: base.AddDate(0, 0, -i), Status: domain.StatusPublished,
			Tags: []*domain.Tag{{Name: "Go"}},
		})
		require.NoError(t, err)
	}
	var err error
	env.hello, err = store.CreatePost(ctx, &domain.Post{
		Title: "Hello World", Body: "body", AuthorID: "a",
		Publish: base, Status: domain.StatusPublished,
	})
	require.NoError(t, err)
	env.draft, err = store.CreatePost(ctx, &domain.Post{
		Title: "Secret", Body: "body", AuthorID: "a",
		Publish: base, Status: domain.StatusDraft,
	})
	require.NoError(t, err)
	store.calls.Store(0)

	svc := blog.NewService(store, sender, "blog@example.com", log)
	env.router = NewRouter(Deps{Service: svc, Tags: store, Hub: hub, Log: log})
	return env
}

type page struct {
	Template string                     `json:"template"`
	Context  map[string]json.RawMessage `json:"context"`
}

func (e *testEnv) do(t *testing.T, method, target string, form url.Values) (*httptest.ResponseRecorder, page) {
	t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	var p page
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		_ = json.Unmarshal(rec.Body.Bytes(), &p)
	}
	return rec, p
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

type postsPage struct {
	Items []struct {
		Title string        `json:"title"`
		Tags  []*domain.Tag `json:"tags"`
	} `json:"items"`
	Number     int `json:"number"`
	TotalPages int `json:"totalPages"`
}

func TestHealth(t *testing.T) {
	env := newEnv(t)
	rec, _ := env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
}

func TestPostList(t *testing.T) {
	env := newEnv(t)

	for _, target := range []string{"/blog", "/blog/", "/blog?page=abc"} {
		rec, p := env.do(t, http.MethodGet, target, nil)
		require.Equal(t, http.StatusOK, rec.Code, target)
		assert.Equal(t, TemplateList, p.Template)

		posts := decode[postsPage](t, p.Context["posts"])
		assert.Equal(t, 1, posts.Number)
		assert.Equal(t, 2, posts.TotalPages)
		require.Len(t, posts.Items, 3)
		assert.Equal(t, "Hello World", posts.Items[0].Title)
		assert.Empty(t, posts.Items[0].Tags)
		require.Len(t, posts.Items[1].Tags, 1)
		assert.Equal(t, "go", posts.Items[1].Tags[0].Slug)

		assert.Equal(t, 5, decode[int](t, p.Context["total_posts"]))
	}

	_, p := env.do(t, http.MethodGet, "/blog?page=99", nil)
	posts := decode[postsPage](t, p.Context["posts"])
	assert.Equal(t, 2, posts.Number)
	assert.Len(t, posts.Items, 2)
}

func TestPostList_ByTag(t *testing.T) {
	env := newEnv(t)

	rec, p := env.do(t, http.MethodGet, "/blog/tag/go", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	tag := decode[domain.Tag](t, p.Context["tag"])
	assert.Equal(t, "Go", tag.Name)
	posts := decode[postsPage](t, p.Context["posts"])
	assert.Equal(t, "Post 1", posts.Items[0].Title)

	rec, _ = env.do(t, http.MethodGet, "/blog/tag/rust", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPostListStrict(t *testing.T) {
	env := newEnv(t)

	rec, p := env.do(t, http.MethodGet, "/blog/posts?page=last", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decode[postsPage](t, p.Context["posts"]).Number)

	for _, token := range []string{"abc", "3", "0"} {
		rec, _ = env.do(t, http.MethodGet, "/blog/posts?page="+token, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, token)
	}
}

func TestPostDetail(t *testing.T) {
	env := newEnv(t)

	rec, p := env.do(t, http.MethodGet, "/blog/2024/3/10/hello-world", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, TemplateDetail, p.Template)
	post := decode[domain.Post](t, p.Context["post"])
	assert.Equal(t, env.hello.ID, post.ID)
	assert.Contains(t, p.Context, "comments")
	assert.Contains(t, p.Context, "form")
	assert.Contains(t, p.Context, "latest_posts")

	for _, target := range []string{
		"/blog/2024/3/10/secret",
		"/blog/2024/3/11/hello-world",
		"/blog/abc/3/10/hello-world",
		"/blog/2024/2/31/hello-world",
	} {
		rec, _ = env.do(t, http.MethodGet, target, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, target)
	}
}

func TestPostShare(t *testing.T) {
	env := newEnv(t)
	target := "/blog/" + env.hello.ID + "/share"

	rec, p := env.do(t, http.MethodGet, target, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, TemplateShare, p.Template)
	assert.False(t, decode[bool](t, p.Context["sent"]))

	rec, p = env.do(t, http.MethodPost, target, url.Values{
		"name": {"Ann"}, "email": {"ann@example.com"}, "to": {"bob@example.com"}, "comments": {"read it"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[bool](t, p.Context["sent"]))
	require.Len(t, env.sender.subjects, 1)
	assert.Equal(t, "Ann recommends you read Hello World", env.sender.subjects[0])
	assert.Equal(t, "Read Hello World at http://example.com/blog/2024/3/10/hello-world\n\n Ann's comments: read it", env.sender.bodies[0])
}

func TestPostShare_InvalidForm(t *testing.T) {
	env := newEnv(t)

	rec, p := env.do(t, http.MethodPost, "/blog/"+env.hello.ID+"/share", url.Values{"name": {"Ann"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[bool](t, p.Context["sent"]))
	form := decode[struct {
		Errors map[string]string `json:"errors"`
	}](t, p.Context["form"])
	assert.Contains(t, form.Errors, "email")
	assert.Contains(t, form.Errors, "to")
	assert.Empty(t, env.sender.subjects)
}

func TestPostShare_Errors(t *testing.T) {
	env := newEnv(t)

	rec, _ := env.do(t, http.MethodGet, "/blog/"+env.draft.ID+"/share", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	env.sender.err = fmt.Errorf("%w: gateway down", domain.ErrDelivery)
	rec, _ = env.do(t, http.MethodPost, "/blog/"+env.hello.ID+"/share", url.Values{
		"name": {"Ann"}, "email": {"ann@example.com"}, "to": {"bob@example.com"},
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestPostComment(t *testing.T) {
	env := newEnv(t)
	target := "/blog/" + env.hello.ID + "/comment"

	rec, p := env.do(t, http.MethodPost, target, url.Values{
		"name": {"Ann"}, "email": {"ann@example.com"}, "body": {"Great"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, TemplateComment, p.Template)
	comment := decode[*domain.Comment](t, p.Context["comment"])
	require.NotNil(t, comment)
	assert.Equal(t, "Great", comment.Body)

	rec, p = env.do(t, http.MethodPost, target, url.Values{"name": {"Ann"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, decode[*domain.Comment](t, p.Context["comment"]))

	comments, err := env.store.ListActiveComments(context.Background(), env.hello.ID)
	require.NoError(t, err)
	assert.Len(t, comments, 1)

	rec, _ = env.do(t, http.MethodPost, "/blog/"+env.draft.ID+"/comment", url.Values{
		"name": {"Ann"}, "email": {"ann@example.com"}, "body": {"Great"},
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPostComment_GetNotAllowed(t *testing.T) {
	env := newEnv(t)

	rec, _ := env.do(t, http.MethodGet, "/blog/"+env.hello.ID+"/comment", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Zero(t, env.store.calls.Load())
}

func TestSitemap(t *testing.T) {
	env := newEnv(t)

	rec, _ := env.do(t, http.MethodGet, "/sitemap.xml", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/xml")
	body := rec.Body.String()
	assert.Contains(t, body, "<loc>http://example.com/blog/2024/3/10/hello-world</loc>")
	assert.Contains(t, body, "<loc>http://example.com/blog/2024/3/10/secret</loc>")
	assert.Equal(t, 6, strings.Count(body, "<url>"))
}

func TestAbsoluteURL(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "blog.example.com"
	assert.Equal(t, "http://blog.example.com/x", absoluteURL(req, "/x"))

	req.Header.Set("X-Forwarded-Proto", "https")
	assert.Equal(t, "https://blog.example.com/x", absoluteURL(req, "/x"))
}

func TestLiveComments(t *testing.T) {
	env := newEnv(t)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/blog/" + env.hello.ID + "/comments/live"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return env.hub.Subscribers(env.hello.ID) == 1 }, time.Second, 10*time.Millisecond)

	resp, err := http.PostForm(srv.URL+"/blog/"+env.hello.ID+"/comment", url.Values{
		"name": {"Ann"}, "email": {"ann@example.com"}, "body": {"live!"},
	})
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got domain.Comment
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, "live!", got.Body)

	_, resp, err = websocket.DefaultDialer.Dial(strings.Replace(wsURL, env.hello.ID, env.draft.ID, 1), nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

type conflictStore struct {
	*inmemory.Store
}

func (conflictStore) GetPublishedPost(_ context.Context, key domain.NaturalKey) (*domain.Post, error) {
	return nil, fmt.Errorf("published post %s: %w", key, domain.ErrNaturalKeyConflict)
}

func TestPostDetail_NaturalKeyConflict(t *testing.T) {
	log, _ := test.NewNullLogger()
	store := conflictStore{Store: inmemory.New()}
	router := NewRouter(Deps{
		Service: blog.NewService(store, &fakeSender{}, "blog@example.com", log),
		Tags:    store,
		Hub:     live.NewHub(log),
		Log:     log,
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/blog/2024/3/10/hello-world", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
