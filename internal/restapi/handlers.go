package restapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/terra-clan/projecthub/internal/models"
	"github.com/terra-clan/projecthub/internal/review"
	"github.com/terra-clan/projecthub/internal/selection"
	"github.com/terra-clan/projecthub/internal/storage"
)

// Health handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	}, "")
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.registry == nil {
		if err := s.repo.Ping(r.Context()); err != nil {
			respondError(w, http.StatusServiceUnavailable, "not_ready", "service not ready")
			return
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "ready"}, "")
		return
	}

	report, healthy := s.registry.Report(r.Context(), 5*time.Second)
	if !healthy {
		writeJSON(w, http.StatusServiceUnavailable, envelope{
			Success: false,
			Data:    report,
			Error:   &apiError{Code: "not_ready", Message: "service not ready"},
		})
		return
	}
	respondJSON(w, http.StatusOK, report, "")
}

// Topic handlers

func (s *Server) handleListTopics(w http.ResponseWriter, r *http.Request) {
	topics, err := s.repo.ListTopics(r.Context())
	if err != nil {
		slog.Error("failed to list topics", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to list topics")
		return
	}
	respondJSON(w, http.StatusOK, topics, "")
}

func (s *Server) handleCreateTopic(w http.ResponseWriter, r *http.Request) {
	var draft models.TopicDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if err := draft.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}
	draft.ApplyDefaults()

	topic := draft.ToTopic(uuid.New().String())
	if err := s.repo.CreateTopic(r.Context(), topic); err != nil {
		slog.Error("failed to create topic", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to create topic")
		return
	}

	slog.Info("topic created", "topic_id", topic.ID, "title", topic.Title)
	respondJSON(w, http.StatusCreated, topic, "Topic created successfully")
}

func (s *Server) handleDeleteTopic(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.repo.DeleteTopic(r.Context(), id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "topic not found")
			return
		}
		slog.Error("failed to delete topic", "topic_id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to delete topic")
		return
	}

	slog.Info("topic deleted", "topic_id", id)
	respondJSON(w, http.StatusOK, map[string]string{"id": id}, "Topic deleted successfully")
}

// Auth handlers

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "email and password are required")
		return
	}

	account, err := s.repo.GetAccountByEmail(r.Context(), req.Email)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			slog.Error("failed to load account", "error", err)
			respondError(w, http.StatusInternalServerError, "internal_error", "failed to log in")
			return
		}
		respondError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid credentials")
		return
	}

	if err := VerifyPassword(req.Password, account.PasswordHash); err != nil {
		slog.Warn("failed login attempt", "email", req.Email, "remote_addr", r.RemoteAddr)
		respondError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid credentials")
		return
	}

	now := s.now()
	if err := s.repo.UpdateLastLogin(r.Context(), account.ID, now); err != nil {
		slog.Warn("failed to record login", "account_id", account.ID, "error", err)
	} else {
		account.LastLoginAt = &now
	}

	s.respondAuth(w, http.StatusOK, account, "Login successful")
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	switch {
	case strings.TrimSpace(req.FullName) == "":
		respondError(w, http.StatusBadRequest, "validation_error", "full name is required")
		return
	case strings.TrimSpace(req.Email) == "":
		respondError(w, http.StatusBadRequest, "validation_error", "email is required")
		return
	case req.Password == "":
		respondError(w, http.StatusBadRequest, "validation_error", "password is required")
		return
	}
	if req.ConfirmPassword != "" {
		if err := req.CheckPasswords(); err != nil {
			respondError(w, http.StatusBadRequest, "validation_error", err.Error())
			return
		}
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		slog.Error("failed to hash password", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to register")
		return
	}

	now := s.now()
	account := &models.Account{
		ID:           uuid.New().String(),
		FullName:     strings.TrimSpace(req.FullName),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hash,
		Role:         models.RoleStudent,
		StudentID:    req.StudentID,
		Department:   req.Department,
		CreatedAt:    now,
		LastLoginAt:  &now,
	}

	if err := s.repo.CreateAccount(r.Context(), account); err != nil {
		if errors.Is(err, storage.ErrEmailTaken) {
			respondError(w, http.StatusConflict, "email_taken", "an account with this email already exists")
			return
		}
		slog.Error("failed to create account", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to register")
		return
	}

	slog.Info("account registered", "account_id", account.ID, "role", account.Role)
	s.respondAuth(w, http.StatusCreated, account, "Registration successful")
}

// respondAuth writes the login shape, which carries token and user at the top level
func (s *Server) respondAuth(w http.ResponseWriter, status int, account *models.Account, message string) {
	token, err := s.auth.GenerateToken(account)
	if err != nil {
		slog.Error("failed to generate token", "account_id", account.ID, "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to issue token")
		return
	}

	writeJSON(w, status, authBody{
		Success: true,
		Message: message,
		Token:   token,
		User:    account,
	})
}

type authBody struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Token   string          `json:"token"`
	User    *models.Account `json:"user"`
}

// Proposal handlers

func (s *Server) handleSubmitProposal(w http.ResponseWriter, r *http.Request) {
	var req models.SubmitProposalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if n := len(req.SelectedTopics); n == 0 || n > selection.MaxTopics {
		respondError(w, http.StatusBadRequest, "validation_error",
			fmt.Sprintf("a proposal needs between 1 and %d topics", selection.MaxTopics))
		return
	}
	if strings.TrimSpace(req.User.Name) == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "student name is required")
		return
	}

	rec := &models.ProposalRecord{
		ID:                uuid.New().String(),
		User:              req.User,
		SelectedTopics:    req.SelectedTopics,
		GeneratedProposal: req.GeneratedProposal,
		Status:            models.ProposalPending,
		SubmissionDate:    s.now().UTC(),
	}

	if err := s.repo.CreateProposal(r.Context(), rec); err != nil {
		slog.Error("failed to create proposal", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to submit proposal")
		return
	}

	slog.Info("proposal submitted", "proposal_id", rec.ID, "topics", len(rec.SelectedTopics))
	s.notifyChange()
	respondJSON(w, http.StatusCreated, rec, "Proposal submitted successfully")
}

func (s *Server) handleListProposals(w http.ResponseWriter, r *http.Request) {
	records, err := s.repo.ListProposals(r.Context())
	if err != nil {
		slog.Error("failed to list proposals", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to list proposals")
		return
	}
	respondJSON(w, http.StatusOK, records, "")
}

func (s *Server) handleProposalStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.repo.ProposalStats(r.Context())
	if err != nil {
		slog.Error("failed to compute proposal stats", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to compute stats")
		return
	}
	respondJSON(w, http.StatusOK, stats, "")
}

func (s *Server) handleUpdateProposal(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req models.StatusUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	status, err := models.ParseProposalStatus(string(req.Status))
	if err != nil {
		respondError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	feedback := models.AdminFeedback{
		Feedback:   strings.TrimSpace(req.Feedback),
		ReviewedBy: strings.TrimSpace(req.ReviewedBy),
		ReviewedAt: s.now().UTC(),
	}
	if feedback.Feedback == "" {
		feedback.Feedback = review.DefaultFeedback
	}
	if feedback.ReviewedBy == "" {
		feedback.ReviewedBy = review.DefaultReviewer
	}

	rec, err := s.repo.UpdateProposalStatus(r.Context(), id, status, feedback)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "proposal not found")
			return
		}
		slog.Error("failed to update proposal", "proposal_id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to update proposal")
		return
	}

	slog.Info("proposal status updated", "proposal_id", id, "status", status, "reviewed_by", feedback.ReviewedBy)
	s.notifyChange()
	respondJSON(w, http.StatusOK, rec, "Proposal status updated successfully")
}

func (s *Server) handleDeleteProposal(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.repo.DeleteProposal(r.Context(), id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "proposal not found")
			return
		}
		slog.Error("failed to delete proposal", "proposal_id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to delete proposal")
		return
	}

	slog.Info("proposal deleted", "proposal_id", id)
	s.notifyChange()
	respondJSON(w, http.StatusOK, map[string]string{"id": id}, "Proposal deleted successfully")
}
