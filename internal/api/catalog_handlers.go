package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/terra-clan/projecthub/internal/catalog"
	"github.com/terra-clan/projecthub/internal/models"
)

// TopicList is the catalog view shown to students
type TopicList struct {
	Topics   []models.Topic `json:"topics"`
	Count    int            `json:"count"`
	Selected []string       `json:"selected"`
}

// AdminTopicList is the catalog view of the admin panel
type AdminTopicList struct {
	Topics []models.Topic `json:"topics"`
	Stats  catalog.Stats  `json:"stats"`
}

func (s *Server) handleListTopics(w http.ResponseWriter, r *http.Request) {
	if err := s.catalog.EnsureFresh(r.Context(), s.config.Catalog.MaxAge); err != nil {
		respondFailure(w, err, "load topics")
		return
	}

	q := r.URL.Query()
	filter := catalog.Filter{
		Search:     q.Get("search"),
		Category:   q.Get("category"),
		Difficulty: q.Get("difficulty"),
	}
	order := catalog.SortOrder(q.Get("sort"))
	if order == "" {
		order = catalog.SortPopular
	}

	set, err := s.wishlist(r.Context())
	if err != nil {
		respondFailure(w, err, "load wishlist")
		return
	}

	topics := s.catalog.List(filter, order)
	selected := make([]string, 0, set.Len())
	for _, t := range set.Topics() {
		selected = append(selected, t.ID)
	}

	respondJSON(w, http.StatusOK, TopicList{
		Topics:   topics,
		Count:    len(topics),
		Selected: selected,
	}, "")
}

// Admin handlers

func (s *Server) handleAdminListTopics(w http.ResponseWriter, r *http.Request) {
	if err := s.catalog.Refresh(r.Context()); err != nil && !isStale(err) {
		respondFailure(w, err, "load topics")
		return
	}

	respondJSON(w, http.StatusOK, AdminTopicList{
		Topics: s.catalog.Topics(),
		Stats:  s.catalog.Stats(),
	}, "")
}

func (s *Server) handleAdminCreateTopic(w http.ResponseWriter, r *http.Request) {
	var draft models.TopicDraft
	if !decodeBody(w, r, &draft) {
		return
	}

	topic, err := s.catalog.Create(s.upstream(r.Context()), draft)
	if err != nil {
		respondFailure(w, err, "create topic")
		return
	}

	respondJSON(w, http.StatusCreated, topic, "Topic added successfully")
}

func (s *Server) handleAdminDeleteTopic(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.catalog.Delete(s.upstream(r.Context()), id); err != nil {
		respondFailure(w, err, "delete topic")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"id": id}, "Topic deleted successfully")
}

func isStale(err error) bool {
	return errors.Is(err, catalog.ErrStaleResponse)
}
