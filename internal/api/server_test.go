package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/projecthub/internal/catalog"
	"github.com/terra-clan/projecthub/internal/config"
	"github.com/terra-clan/projecthub/internal/kv"
	"github.com/terra-clan/projecthub/internal/models"
	"github.com/terra-clan/projecthub/internal/restapi"
	"github.com/terra-clan/projecthub/internal/review"
	"github.com/terra-clan/projecthub/internal/services"
	"github.com/terra-clan/projecthub/internal/storage"
	"github.com/terra-clan/projecthub/pkg/client"
)

type testEnv struct {
	server *Server
	repo   *storage.MemoryRepository
	client *client.Client
}

func seedTopics() []models.Topic {
	return []models.Topic{
		{ID: "t1", Title: "Campus Navigation App", Description: "Indoor maps", Category: models.CategoryMobile, Difficulty: models.DifficultyIntermediate, Duration: "3 months", Technologies: []string{"Flutter"}, Popularity: 70, Complexity: 6},
		{ID: "t2", Title: "AI Study Buddy", Description: "Chat tutor", Category: models.CategoryAI, Difficulty: models.DifficultyAdvanced, Duration: "4 months", Technologies: []string{"Python", "LLM"}, Popularity: 95, Complexity: 8},
		{ID: "t3", Title: "Library Portal", Description: "Book lending", Category: models.CategoryWeb, Difficulty: models.DifficultyBeginner, Duration: "2 months", Technologies: []string{"Go"}, Popularity: 40, Complexity: 3},
		{ID: "t4", Title: "Sensor Mesh", Description: "Lab telemetry", Category: models.CategoryIoT, Difficulty: models.DifficultyAdvanced, Duration: "5 months", Technologies: []string{"C"}, Popularity: 60, Complexity: 9},
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	repo := storage.NewMemoryRepository()
	for _, topic := range seedTopics() {
		topic := topic
		require.NoError(t, repo.CreateTopic(context.Background(), &topic))
	}

	upstream := restapi.NewServer(config.ServerConfig{AllowedOrigins: []string{"*"}}, repo,
		restapi.NewAuth("web-test-secret-value", time.Hour), false, nil)
	ts := httptest.NewServer(upstream.Router())
	t.Cleanup(ts.Close)

	c := client.NewClient(ts.URL)
	cfg := &config.WebConfig{
		Server:  config.ServerConfig{Port: 8080, AllowedOrigins: []string{"*"}},
		Session: config.SessionConfig{CookieName: "projecthub_session", TTL: time.Hour, Store: config.SessionStoreMemory},
		Catalog: config.CatalogConfig{MaxAge: time.Minute},
	}

	registry := services.NewRegistry()
	registry.Register("upstream", services.NewCheckerFunc("http", c.Health))

	srv := NewServer(cfg, catalog.NewStore(c), review.NewPipeline(c), c, kv.NewMemoryStore(time.Hour), registry)
	srv.now = func() time.Time { return time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC) }

	return &testEnv{server: srv, repo: repo, client: c}
}

// browser carries the session cookie between requests like a real visitor
type browser struct {
	t      *testing.T
	h      http.Handler
	cookie *http.Cookie
}

func (e *testEnv) browser(t *testing.T) *browser {
	return &browser{t: t, h: e.server.Router()}
}

func (b *browser) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	b.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(b.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if b.cookie != nil {
		req.AddCookie(b.cookie)
	}

	rec := httptest.NewRecorder()
	b.h.ServeHTTP(rec, req)

	for _, c := range rec.Result().Cookies() {
		if c.Name == "projecthub_session" {
			b.cookie = c
		}
	}
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	body := struct {
		Data json.RawMessage `json:"data"`
	}{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NoError(t, json.Unmarshal(body.Data, v))
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body apiResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotNil(t, body.Error)
	return body.Error.Code
}

func TestHealthAndReady(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)

	assert.Equal(t, http.StatusOK, b.do(http.MethodGet, "/health", nil).Code)
	assert.Equal(t, http.StatusOK, b.do(http.MethodGet, "/ready", nil).Code)
	assert.Nil(t, b.cookie, "health checks do not open a session")

	env.server.registry.Register("broken", services.NewCheckerFunc("redis", func(ctx context.Context) error {
		return errors.New("connection refused")
	}))
	assert.Equal(t, http.StatusServiceUnavailable, b.do(http.MethodGet, "/ready", nil).Code)
}

func TestSessionCookieIsReused(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)

	b.do(http.MethodGet, "/wishlist", nil)
	require.NotNil(t, b.cookie)
	first := b.cookie.Value
	assert.True(t, b.cookie.HttpOnly)

	rec := b.do(http.MethodGet, "/wishlist", nil)
	assert.Empty(t, rec.Result().Cookies())
	assert.Equal(t, first, b.cookie.Value)

	b.cookie = &http.Cookie{Name: "projecthub_session", Value: "not-a-uuid"}
	b.do(http.MethodGet, "/wishlist", nil)
	assert.NotEqual(t, "not-a-uuid", b.cookie.Value)
}

func TestListTopicsFilterAndSort(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)

	rec := b.do(http.MethodGet, "/topics", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var list TopicList
	decodeData(t, rec, &list)
	require.Len(t, list.Topics, 4)
	assert.Equal(t, "t2", list.Topics[0].ID)
	assert.Empty(t, list.Selected)

	rec = b.do(http.MethodGet, "/topics?category=advanced&difficulty=all", nil)
	decodeData(t, rec, &list)
	assert.Empty(t, list.Topics)

	rec = b.do(http.MethodGet, "/topics?difficulty=advanced&sort=complexity", nil)
	decodeData(t, rec, &list)
	require.Len(t, list.Topics, 2)
	assert.Equal(t, "t2", list.Topics[0].ID)
	assert.Equal(t, "t4", list.Topics[1].ID)

	rec = b.do(http.MethodGet, "/topics?search=LIBRARY", nil)
	decodeData(t, rec, &list)
	require.Len(t, list.Topics, 1)
	assert.Equal(t, "t3", list.Topics[0].ID)
}

// countingSource serves seedTopics and can be switched to fail
type countingSource struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (c *countingSource) ListTopics(ctx context.Context) ([]models.Topic, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return seedTopics(), nil
}

func (c *countingSource) CreateTopic(ctx context.Context, draft models.TopicDraft) (*models.Topic, error) {
	return nil, errors.New("read only")
}

func (c *countingSource) DeleteTopic(ctx context.Context, id string) error {
	return errors.New("read only")
}

func (c *countingSource) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
	c.calls = 0
}

func TestFullWishlistRejectsWithoutCatalogFetch(t *testing.T) {
	env := newTestEnv(t)
	src := &countingSource{}
	cfg := *env.server.config
	cfg.Catalog.MaxAge = 0
	srv := NewServer(&cfg, catalog.NewStore(src), review.NewPipeline(env.client), env.client,
		kv.NewMemoryStore(time.Hour), services.NewRegistry())
	b := &browser{t: t, h: srv.Router()}

	for _, id := range []string{"t1", "t2", "t3"} {
		rec := b.do(http.MethodPost, "/wishlist/toggle", ToggleRequest{TopicID: id})
		require.Equal(t, http.StatusOK, rec.Code)
	}

	src.fail(errors.New("connection refused"))
	rec := b.do(http.MethodPost, "/wishlist/toggle", ToggleRequest{TopicID: "t4"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "limit_reached", errorCode(t, rec))
	assert.Zero(t, src.calls)

	// Deselecting never needs the catalog either
	rec = b.do(http.MethodPost, "/wishlist/toggle", ToggleRequest{TopicID: "t2"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, src.calls)
}

func TestUnreachableUpstreamIsBadGateway(t *testing.T) {
	env := newTestEnv(t)
	dead := httptest.NewServer(http.NotFoundHandler())
	dead.Close()

	c := client.NewClient(dead.URL, client.WithTimeout(2*time.Second))
	srv := NewServer(env.server.config, catalog.NewStore(c), review.NewPipeline(c), c,
		kv.NewMemoryStore(time.Hour), services.NewRegistry())
	b := &browser{t: t, h: srv.Router()}

	rec := b.do(http.MethodGet, "/topics", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "upstream_error", errorCode(t, rec))
}

func TestToggleRespectsLimit(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)

	for _, id := range []string{"t1", "t2", "t3"} {
		rec := b.do(http.MethodPost, "/wishlist/toggle", ToggleRequest{TopicID: id})
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := b.do(http.MethodPost, "/wishlist/toggle", ToggleRequest{TopicID: "t4"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "limit_reached", errorCode(t, rec))

	rec = b.do(http.MethodPost, "/wishlist/toggle", ToggleRequest{TopicID: "t1"})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp ToggleResponse
	decodeData(t, rec, &resp)
	assert.Equal(t, "removed", string(resp.Change))
	assert.Equal(t, 2, resp.Wishlist.Count)
	assert.False(t, resp.Wishlist.Full)

	rec = b.do(http.MethodGet, "/topics", nil)
	var list TopicList
	decodeData(t, rec, &list)
	assert.ElementsMatch(t, []string{"t2", "t3"}, list.Selected)
}

func TestToggleUnknownTopic(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)

	rec := b.do(http.MethodPost, "/wishlist/toggle", ToggleRequest{TopicID: "nope"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = b.do(http.MethodPost, "/wishlist/toggle", ToggleRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWishlistsAreIsolated(t *testing.T) {
	env := newTestEnv(t)
	alice, bob := env.browser(t), env.browser(t)

	alice.do(http.MethodPost, "/wishlist/toggle", ToggleRequest{TopicID: "t1"})

	var w Wishlist
	decodeData(t, bob.do(http.MethodGet, "/wishlist", nil), &w)
	assert.Equal(t, 0, w.Count)

	decodeData(t, alice.do(http.MethodGet, "/wishlist", nil), &w)
	assert.Equal(t, 1, w.Count)

	decodeData(t, alice.do(http.MethodDelete, "/wishlist/t1", nil), &w)
	assert.Equal(t, 0, w.Count)

	alice.do(http.MethodPost, "/wishlist/toggle", ToggleRequest{TopicID: "t2"})
	decodeData(t, alice.do(http.MethodDelete, "/wishlist", nil), &w)
	assert.Equal(t, 0, w.Count)
}

func TestProposalNeedsSelection(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)

	rec := b.do(http.MethodGet, "/proposal", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "empty_selection", errorCode(t, rec))

	rec = b.do(http.MethodPost, "/proposal/submit", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginFailureClearsSession(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)

	rec := b.do(http.MethodPost, "/auth/register", models.RegisterRequest{
		FullName: "Amina Yusuf", Email: "amina@uni.edu", Password: "pw1", ConfirmPassword: "pw1",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var st struct {
		LoggedIn bool `json:"isLoggedIn"`
	}
	decodeData(t, b.do(http.MethodGet, "/auth/status", nil), &st)
	assert.True(t, st.LoggedIn)

	rec = b.do(http.MethodPost, "/auth/login", models.LoginRequest{Email: "amina@uni.edu", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	decodeData(t, b.do(http.MethodGet, "/auth/status", nil), &st)
	assert.False(t, st.LoggedIn)

	rec = b.do(http.MethodPost, "/auth/login", models.LoginRequest{Email: "amina@uni.edu", Password: "pw1"})
	require.Equal(t, http.StatusOK, rec.Code)
	decodeData(t, b.do(http.MethodGet, "/auth/status", nil), &st)
	assert.True(t, st.LoggedIn)

	require.Equal(t, http.StatusOK, b.do(http.MethodPost, "/auth/logout", nil).Code)
	decodeData(t, b.do(http.MethodGet, "/auth/status", nil), &st)
	assert.False(t, st.LoggedIn)
}

func TestRegisterPasswordMismatch(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)

	rec := b.do(http.MethodPost, "/auth/register", models.RegisterRequest{
		FullName: "A", Email: "a@uni.edu", Password: "one", ConfirmPassword: "two",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "password_mismatch", errorCode(t, rec))
}

func TestProposalSubmissionAndReview(t *testing.T) {
	env := newTestEnv(t)
	student := env.browser(t)

	rec := student.do(http.MethodPost, "/auth/register", models.RegisterRequest{
		FullName: "Amina Yusuf", Email: "amina@uni.edu", Password: "pw1", ConfirmPassword: "pw1",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	student.do(http.MethodPost, "/wishlist/toggle", ToggleRequest{TopicID: "t3"})
	student.do(http.MethodPost, "/wishlist/toggle", ToggleRequest{TopicID: "t1"})

	rec = student.do(http.MethodGet, "/proposal", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var gen GeneratedProposal
	decodeData(t, rec, &gen)
	require.Len(t, gen.Document.Topics, 2)
	assert.Equal(t, "1. Library Portal", gen.Document.Topics[0].Heading())
	assert.Contains(t, gen.Markdown, "### 2. Campus Navigation App")
	assert.Equal(t, "March 4, 2026", gen.Document.GeneratedOn)

	rec = student.do(http.MethodGet, "/proposal/print", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "<title>Project Proposal - Amina Yusuf</title>")

	rec = student.do(http.MethodPost, "/proposal/submit", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var submitted models.ProposalRecord
	decodeData(t, rec, &submitted)
	assert.Equal(t, models.ProposalPending, submitted.Status)
	assert.Equal(t, "Amina Yusuf", submitted.User.Name)

	var w Wishlist
	decodeData(t, student.do(http.MethodGet, "/wishlist", nil), &w)
	assert.Equal(t, 0, w.Count)

	admin := env.browser(t)
	rec = admin.do(http.MethodGet, "/admin/proposals?status=pending&search=library", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list AdminProposalList
	decodeData(t, rec, &list)
	require.Len(t, list.Proposals, 1)
	assert.Equal(t, 1, list.Stats.Pending)

	rec = admin.do(http.MethodPut, "/admin/proposals/"+submitted.ID+"/status", models.StatusUpdate{
		Status: models.ProposalApproved, Feedback: "Looks good", ReviewedBy: "Dr. Lee",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var updated models.ProposalRecord
	decodeData(t, rec, &updated)
	assert.Equal(t, models.ProposalApproved, updated.Status)
	require.NotNil(t, updated.AdminFeedback)
	assert.Equal(t, "Dr. Lee", updated.AdminFeedback.ReviewedBy)

	rec = admin.do(http.MethodPut, "/admin/proposals/"+submitted.ID+"/status", models.StatusUpdate{Status: "archived"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = admin.do(http.MethodPut, "/admin/proposals/ghost/status", models.StatusUpdate{Status: models.ProposalRejected})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = admin.do(http.MethodPost, "/admin/proposals/bulk", BulkRequest{
		Action: BulkActionDelete, IDs: []string{submitted.ID, "ghost"},
	})
	require.Equal(t, http.StatusMultiStatus, rec.Code)
	var result review.BulkResult
	decodeData(t, rec, &result)
	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, 1, result.Failed)
	assert.False(t, result.Outcomes[1].OK)

	records, err := env.repo.ListProposals(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestBulkValidation(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)

	rec := b.do(http.MethodPost, "/admin/proposals/bulk", BulkRequest{Action: BulkActionStatus, IDs: []string{"a"}, Status: "done"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = b.do(http.MethodPost, "/admin/proposals/bulk", BulkRequest{Action: "archive", IDs: []string{"a"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = b.do(http.MethodPost, "/admin/proposals/bulk", BulkRequest{Action: BulkActionDelete})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminTopics(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)

	rec := b.do(http.MethodPost, "/admin/topics", models.TopicDraft{Title: "No description"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", errorCode(t, rec))

	rec = b.do(http.MethodPost, "/admin/topics", models.TopicDraft{
		Title:       "Smart Parking",
		Description: "Find free spots",
		Category:    models.CategoryIoT,
		Difficulty:  models.DifficultyBeginner,
		Popularity:  10,
		Complexity:  2,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created models.Topic
	decodeData(t, rec, &created)

	rec = b.do(http.MethodGet, "/admin/topics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list AdminTopicList
	decodeData(t, rec, &list)
	assert.Equal(t, 5, list.Stats.Total)
	assert.Equal(t, 2, list.Stats.ByCategory[models.CategoryIoT])

	rec = b.do(http.MethodDelete, "/admin/topics/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = b.do(http.MethodDelete, "/admin/topics/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAnonymousProposalUsesPlaceholders(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)

	b.do(http.MethodPost, "/wishlist/toggle", ToggleRequest{TopicID: "t2"})

	rec := b.do(http.MethodGet, "/proposal", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var gen GeneratedProposal
	decodeData(t, rec, &gen)
	assert.Equal(t, "Student Name", gen.Document.Student[0].Value)

	// The proposal service rejects a submission without a student name
	rec = b.do(http.MethodPost, "/proposal/submit", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "upstream_error", errorCode(t, rec))

	var w Wishlist
	decodeData(t, b.do(http.MethodGet, "/wishlist", nil), &w)
	assert.Equal(t, 1, w.Count)
}
