package restapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/projecthub/internal/config"
	"github.com/terra-clan/projecthub/internal/models"
	"github.com/terra-clan/projecthub/internal/storage"
	"github.com/terra-clan/projecthub/pkg/client"
)

const testSecret = "restapi-test-secret-value"

func newTestServer(t *testing.T, enforce bool) (*Server, *storage.MemoryRepository) {
	t.Helper()
	repo := storage.NewMemoryRepository()
	srv := NewServer(config.ServerConfig{AllowedOrigins: []string{"*"}}, repo, NewAuth(testSecret, time.Hour), enforce, nil)
	srv.now = func() time.Time { return time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC) }
	return srv, repo
}

func do(t *testing.T, h http.Handler, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func validDraft() models.TopicDraft {
	return models.TopicDraft{
		Title:        "Campus Navigation App",
		Description:  "Indoor maps for the university",
		Category:     models.CategoryMobile,
		Difficulty:   models.DifficultyIntermediate,
		Duration:     "3 months",
		Technologies: []string{"Flutter", "Firebase"},
		Popularity:   70,
		Complexity:   6,
	}
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, false)

	rec := do(t, srv.Router(), http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, srv.Router(), http.MethodGet, "/ready", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateTopicValidation(t *testing.T) {
	srv, _ := newTestServer(t, false)

	draft := validDraft()
	draft.Category = "robotics"
	rec := do(t, srv.Router(), http.MethodPost, "/api/topics", draft, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "validation_error")

	rec = do(t, srv.Router(), http.MethodPost, "/api/topics", validDraft(), "")
	require.Equal(t, http.StatusCreated, rec.Code)

	var body struct {
		Data models.Topic `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Data.ID)
	assert.Equal(t, models.CategoryImage(models.CategoryMobile), body.Data.Image)
}

func TestDeleteMissingTopic(t *testing.T) {
	srv, _ := newTestServer(t, false)

	rec := do(t, srv.Router(), http.MethodDelete, "/api/topics/missing", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRegisterAndLogin(t *testing.T) {
	srv, _ := newTestServer(t, false)

	reg := models.RegisterRequest{
		FullName:        "Amina Yusuf",
		Email:           "Amina@Uni.edu",
		Password:        "hunter22",
		ConfirmPassword: "hunter22",
		Role:            "superuser",
	}
	rec := do(t, srv.Router(), http.MethodPost, "/api/auth/register", reg, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	var body authBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.NotEmpty(t, body.Token)
	assert.Equal(t, models.RoleStudent, body.User.Role)
	assert.NotContains(t, rec.Body.String(), "hunter22")

	rec = do(t, srv.Router(), http.MethodPost, "/api/auth/register", reg, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, srv.Router(), http.MethodPost, "/api/auth/login",
		models.LoginRequest{Email: "amina@uni.edu", Password: "wrong"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid credentials")

	rec = do(t, srv.Router(), http.MethodPost, "/api/auth/login",
		models.LoginRequest{Email: "amina@uni.edu", Password: "hunter22"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Login successful", body.Message)
	require.NotNil(t, body.User.LastLoginAt)

	claims, err := srv.auth.VerifyToken(body.Token)
	require.NoError(t, err)
	assert.Equal(t, body.User.ID, claims.UserID)
}

func TestLoginNormalizesEmail(t *testing.T) {
	srv, _ := newTestServer(t, false)

	rec := do(t, srv.Router(), http.MethodPost, "/api/auth/register", models.RegisterRequest{
		FullName: "Amina Yusuf", Email: " Amina@Uni.edu", Password: "hunter22", ConfirmPassword: "hunter22",
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, srv.Router(), http.MethodPost, "/api/auth/login",
		models.LoginRequest{Email: "  AMINA@uni.edu ", Password: "hunter22"}, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateTopicSplitsTechnologies(t *testing.T) {
	srv, repo := newTestServer(t, false)

	draft := validDraft()
	draft.Technologies = []string{"React, Node.js", " ", ""}
	rec := do(t, srv.Router(), http.MethodPost, "/api/topics", draft, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	topics, err := repo.ListTopics(context.Background())
	require.NoError(t, err)
	require.Len(t, topics, 1)
	assert.Equal(t, []string{"React", "Node.js"}, topics[0].Technologies)
}

func TestRegisterPasswordMismatch(t *testing.T) {
	srv, _ := newTestServer(t, false)

	rec := do(t, srv.Router(), http.MethodPost, "/api/auth/register", models.RegisterRequest{
		FullName: "A", Email: "a@uni.edu", Password: "one", ConfirmPassword: "two",
	}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitProposalTopicCount(t *testing.T) {
	srv, _ := newTestServer(t, false)
	user := models.UserProfile{Name: "Amina Yusuf"}

	rec := do(t, srv.Router(), http.MethodPost, "/api/proposals", models.SubmitProposalRequest{User: user}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	four := make([]models.Topic, 4)
	rec = do(t, srv.Router(), http.MethodPost, "/api/proposals",
		models.SubmitProposalRequest{User: user, SelectedTopics: four}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv.Router(), http.MethodPost, "/api/proposals",
		models.SubmitProposalRequest{User: user, SelectedTopics: []models.Topic{{ID: "t1", Title: "A"}}}, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	var body struct {
		Data models.ProposalRecord `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, models.ProposalPending, body.Data.Status)
	assert.True(t, srv.now().Equal(body.Data.SubmissionDate))
}

func TestUpdateProposalStatus(t *testing.T) {
	srv, repo := newTestServer(t, false)
	require.NoError(t, repo.CreateProposal(context.Background(), &models.ProposalRecord{
		ID:     "abc123",
		User:   models.UserProfile{Name: "Amina Yusuf"},
		Status: models.ProposalPending,
	}))

	rec := do(t, srv.Router(), http.MethodPut, "/api/proposals/admin/update/abc123",
		models.StatusUpdate{Status: "archived"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `unknown proposal status \"archived\"`)

	rec = do(t, srv.Router(), http.MethodPut, "/api/proposals/admin/update/abc123",
		models.StatusUpdate{Status: models.ProposalApproved, Feedback: "Looks good", ReviewedBy: "Dr. Lee"}, "")
	require.Equal(t, http.StatusOK, rec.Code)

	got, err := repo.GetProposal(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, models.ProposalApproved, got.Status)
	require.NotNil(t, got.AdminFeedback)
	assert.Equal(t, "Looks good", got.AdminFeedback.Feedback)
	assert.Equal(t, "Dr. Lee", got.AdminFeedback.ReviewedBy)

	rec = do(t, srv.Router(), http.MethodPut, "/api/proposals/admin/update/abc123",
		models.StatusUpdate{Status: models.ProposalPending}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	got, err = repo.GetProposal(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, models.ProposalPending, got.Status)
	assert.Equal(t, "No feedback provided", got.AdminFeedback.Feedback)
	assert.Equal(t, "Admin", got.AdminFeedback.ReviewedBy)

	rec = do(t, srv.Router(), http.MethodPut, "/api/proposals/admin/update/ghost",
		models.StatusUpdate{Status: models.ProposalApproved}, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEnforcedPermissions(t *testing.T) {
	srv, repo := newTestServer(t, true)

	rec := do(t, srv.Router(), http.MethodGet, "/api/proposals/admin/all", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, srv.Router(), http.MethodGet, "/api/proposals/admin/all", nil, "garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	student := &models.Account{ID: "u1", Email: "s@uni.edu", Role: models.RoleStudent}
	admin := &models.Account{ID: "u2", Email: "a@uni.edu", Role: models.RoleAdmin}
	require.NoError(t, repo.CreateAccount(context.Background(), student))

	studentToken, err := srv.auth.GenerateToken(student)
	require.NoError(t, err)
	adminToken, err := srv.auth.GenerateToken(admin)
	require.NoError(t, err)

	rec = do(t, srv.Router(), http.MethodGet, "/api/proposals/admin/all", nil, studentToken)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, srv.Router(), http.MethodGet, "/api/proposals/admin/all", nil, adminToken)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Reading the catalog needs no token
	rec = do(t, srv.Router(), http.MethodGet, "/api/topics", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRegisterNeverGrantsAdmin(t *testing.T) {
	srv, _ := newTestServer(t, true)

	rec := do(t, srv.Router(), http.MethodPost, "/api/auth/register", models.RegisterRequest{
		FullName:        "Mallory Admin",
		Email:           "mallory@uni.edu",
		Password:        "letmein",
		ConfirmPassword: "letmein",
		Role:            models.RoleAdmin,
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	var body authBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, models.RoleStudent, body.User.Role)

	rec = do(t, srv.Router(), http.MethodGet, "/api/proposals/admin/all", nil, body.Token)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, srv.Router(), http.MethodPost, "/api/topics", validDraft(), body.Token)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestEnsureAdmin(t *testing.T) {
	srv, repo := newTestServer(t, true)
	ctx := context.Background()

	_, err := EnsureAdmin(ctx, repo, "admin@uni.edu", "")
	assert.Error(t, err)

	created, err := EnsureAdmin(ctx, repo, " Admin@Uni.edu ", "s3cret-pass")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = EnsureAdmin(ctx, repo, "admin@uni.edu", "s3cret-pass")
	require.NoError(t, err)
	assert.False(t, created)

	rec := do(t, srv.Router(), http.MethodPost, "/api/auth/login",
		models.LoginRequest{Email: "admin@uni.edu", Password: "s3cret-pass"}, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body authBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, models.RoleAdmin, body.User.Role)

	rec = do(t, srv.Router(), http.MethodGet, "/api/proposals/admin/all", nil, body.Token)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestClientRoundTrip(t *testing.T) {
	srv, _ := newTestServer(t, false)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	ctx := context.Background()
	c := client.NewClient(ts.URL)

	require.NoError(t, c.Health(ctx))

	created, err := c.CreateTopic(ctx, validDraft())
	require.NoError(t, err)

	topics, err := c.ListTopics(ctx)
	require.NoError(t, err)
	require.Len(t, topics, 1)
	assert.Equal(t, created.ID, topics[0].ID)

	auth, err := c.Register(ctx, models.RegisterRequest{
		FullName: "Amina Yusuf", Email: "amina@uni.edu", Password: "pw", ConfirmPassword: "pw",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, auth.Token)

	rec, err := c.SubmitProposal(client.WithToken(ctx, auth.Token), models.SubmitProposalRequest{
		User:           auth.User.Profile(),
		SelectedTopics: topics,
	})
	require.NoError(t, err)

	_, err = c.UpdateProposalStatus(ctx, rec.ID, models.StatusUpdate{Status: models.ProposalInProgress})
	require.NoError(t, err)

	records, err := c.ListProposals(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, models.ProposalInProgress, records[0].Status)

	require.NoError(t, c.DeleteProposal(ctx, rec.ID))
	assert.ErrorIs(t, c.DeleteProposal(ctx, rec.ID), models.ErrNotFound)
	require.NoError(t, c.DeleteTopic(ctx, created.ID))
}

func TestStatsStream(t *testing.T) {
	srv, _ := newTestServer(t, false)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/proposals/admin/stats/stream"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	var msg StatsMessage
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "stats", msg.Type)
	assert.Equal(t, 0, msg.Data.Total)
	assert.Equal(t, 1, srv.Hub().Clients())

	rec := do(t, srv.Router(), http.MethodPost, "/api/proposals", models.SubmitProposalRequest{
		User:           models.UserProfile{Name: "Amina Yusuf"},
		SelectedTopics: []models.Topic{{ID: "t1", Title: "A"}},
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, 1, msg.Data.Total)
	assert.Equal(t, 1, msg.Data.Pending)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return srv.Hub().Clients() == 0 }, 5*time.Second, 10*time.Millisecond)
}
