package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/terra-clan/projecthub/internal/models"
	"github.com/terra-clan/projecthub/internal/selection"
)

// Wishlist is the current selection of a visitor
type Wishlist struct {
	Topics []models.Topic `json:"topics"`
	Count  int            `json:"count"`
	Max    int            `json:"max"`
	Full   bool           `json:"full"`
}

func wishlistView(set *selection.Set) Wishlist {
	return Wishlist{
		Topics: set.Topics(),
		Count:  set.Len(),
		Max:    selection.MaxTopics,
		Full:   set.Full(),
	}
}

// ToggleRequest selects or deselects a catalog topic
type ToggleRequest struct {
	TopicID string `json:"topicId"`
}

// ToggleResponse reports what a toggle did
type ToggleResponse struct {
	Change   selection.Change `json:"change"`
	Wishlist Wishlist         `json:"wishlist"`
}

// Wishlist handlers

func (s *Server) handleGetWishlist(w http.ResponseWriter, r *http.Request) {
	set, err := s.wishlist(r.Context())
	if err != nil {
		respondFailure(w, err, "load wishlist")
		return
	}
	respondJSON(w, http.StatusOK, wishlistView(set), "")
}

func (s *Server) handleToggleWishlist(w http.ResponseWriter, r *http.Request) {
	var req ToggleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.TopicID == "" {
		respondFailure(w, selection.ErrMissingTopicID, "toggle topic")
		return
	}

	set, err := s.wishlist(r.Context())
	if err != nil {
		respondFailure(w, err, "load wishlist")
		return
	}

	// A selected topic may have left the catalog; it can still be deselected
	topic := models.Topic{ID: req.TopicID}
	if !set.Contains(req.TopicID) {
		if set.Full() {
			respondFailure(w, selection.ErrLimitReached, "toggle topic")
			return
		}
		if err := s.catalog.EnsureFresh(r.Context(), s.config.Catalog.MaxAge); err != nil {
			respondFailure(w, err, "load topics")
			return
		}
		if topic, err = s.catalog.Get(req.TopicID); err != nil {
			respondFailure(w, err, "toggle topic")
			return
		}
	}

	change, err := set.Toggle(r.Context(), topic)
	if err != nil {
		respondFailure(w, err, "toggle topic")
		return
	}

	respondJSON(w, http.StatusOK, ToggleResponse{Change: change, Wishlist: wishlistView(set)}, "")
}

func (s *Server) handleRemoveFromWishlist(w http.ResponseWriter, r *http.Request) {
	set, err := s.wishlist(r.Context())
	if err != nil {
		respondFailure(w, err, "load wishlist")
		return
	}

	if err := set.Remove(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondFailure(w, err, "remove topic")
		return
	}
	respondJSON(w, http.StatusOK, wishlistView(set), "")
}

func (s *Server) handleClearWishlist(w http.ResponseWriter, r *http.Request) {
	set, err := s.wishlist(r.Context())
	if err != nil {
		respondFailure(w, err, "load wishlist")
		return
	}

	if err := set.Clear(r.Context()); err != nil {
		respondFailure(w, err, "clear wishlist")
		return
	}
	respondJSON(w, http.StatusOK, wishlistView(set), "")
}

// Auth handlers

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	mirror := s.mirror(r.Context())
	result, err := s.auth.Login(r.Context(), req)
	if err != nil {
		if clearErr := mirror.Clear(r.Context()); clearErr != nil {
			slog.Warn("failed to clear login data", "error", clearErr)
		}
		respondFailure(w, err, "log in")
		return
	}

	if err := mirror.Save(r.Context(), *result, s.now()); err != nil {
		respondFailure(w, err, "save login")
		return
	}

	respondJSON(w, http.StatusOK, result.User, result.Message)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := s.auth.Register(r.Context(), req)
	if err != nil {
		respondFailure(w, err, "register")
		return
	}

	if err := s.mirror(r.Context()).Save(r.Context(), *result, s.now()); err != nil {
		respondFailure(w, err, "save login")
		return
	}

	respondJSON(w, http.StatusCreated, result.User, result.Message)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.mirror(r.Context()).Clear(r.Context()); err != nil {
		respondFailure(w, err, "log out")
		return
	}
	respondJSON(w, http.StatusOK, nil, "Logged out")
}

func (s *Server) handleAuthStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.mirror(r.Context()).Status(r.Context())
	if err != nil {
		respondFailure(w, err, "check login")
		return
	}
	respondJSON(w, http.StatusOK, st, "")
}
