// Package catalog holds the topic catalog fetched from the topic service and
// answers filtered, sorted views of it.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/terra-clan/projecthub/internal/models"
)

// ErrStaleResponse is returned by Refresh when a newer fetch already landed
var ErrStaleResponse = errors.New("catalog response superseded by a newer fetch")

// ErrTopicNotFound is returned when a topic id is not in the catalog
var ErrTopicNotFound = errors.New("topic not found")

// Source is the remote topic service
type Source interface {
	ListTopics(ctx context.Context) ([]models.Topic, error)
	CreateTopic(ctx context.Context, draft models.TopicDraft) (*models.Topic, error)
	DeleteTopic(ctx context.Context, id string) error
}

// Store caches the catalog in memory. Fetches are numbered; a response older
// than the last applied one is dropped so the newest request wins.
type Store struct {
	source Source

	mu        sync.RWMutex
	topics    []models.Topic
	err       error
	fetchedAt time.Time
	issued    uint64
	applied   uint64
}

// NewStore creates an empty catalog over source
func NewStore(source Source) *Store {
	return &Store{source: source}
}

// Refresh fetches the catalog. On failure the catalog is emptied and the
// error is kept until the next successful fetch.
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.Lock()
	s.issued++
	seq := s.issued
	s.mu.Unlock()

	topics, fetchErr := s.source.ListTopics(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if seq < s.applied {
		slog.Debug("dropping stale catalog response", "seq", seq, "applied", s.applied)
		return ErrStaleResponse
	}
	s.applied = seq

	if fetchErr != nil {
		s.topics = nil
		s.err = fmt.Errorf("failed to fetch topics: %w", fetchErr)
		return s.err
	}

	for i := range topics {
		topics[i].Image = topics[i].ImageURL()
	}
	s.topics = topics
	s.err = nil
	s.fetchedAt = time.Now()
	return nil
}

// EnsureFresh refreshes when the catalog is older than maxAge or in error
func (s *Store) EnsureFresh(ctx context.Context, maxAge time.Duration) error {
	s.mu.RLock()
	fresh := s.err == nil && !s.fetchedAt.IsZero() && time.Since(s.fetchedAt) < maxAge
	s.mu.RUnlock()

	if fresh {
		return nil
	}
	err := s.Refresh(ctx)
	if errors.Is(err, ErrStaleResponse) {
		return s.Err()
	}
	return err
}

// Err returns the error of the last applied fetch, if any
func (s *Store) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Topics returns a copy of the catalog in service order
func (s *Store) Topics() []models.Topic {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Topic, len(s.topics))
	copy(out, s.topics)
	return out
}

// Get returns a topic by id
func (s *Store) Get(id string) (models.Topic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.topics {
		if t.ID == id {
			return t, nil
		}
	}
	return models.Topic{}, ErrTopicNotFound
}

// List returns the topics matching filter in the requested order
func (s *Store) List(filter Filter, order SortOrder) []models.Topic {
	return Apply(s.Topics(), filter, order)
}

// Create validates the draft, passes it to the service and refreshes
func (s *Store) Create(ctx context.Context, draft models.TopicDraft) (*models.Topic, error) {
	if err := draft.Validate(); err != nil {
		return nil, err
	}
	draft.ApplyDefaults()

	created, err := s.source.CreateTopic(ctx, draft)
	if err != nil {
		return nil, fmt.Errorf("failed to create topic: %w", err)
	}

	if err := s.Refresh(ctx); err != nil && !errors.Is(err, ErrStaleResponse) {
		slog.Warn("catalog refresh after create failed", "error", err)
	}
	return created, nil
}

// Delete removes a topic through the service and refreshes
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.source.DeleteTopic(ctx, id); err != nil {
		return fmt.Errorf("failed to delete topic: %w", err)
	}

	if err := s.Refresh(ctx); err != nil && !errors.Is(err, ErrStaleResponse) {
		slog.Warn("catalog refresh after delete failed", "error", err)
	}
	return nil
}

// Stats summarizes the catalog for the admin panel
type Stats struct {
	Total      int                     `json:"total"`
	Trending   int                     `json:"trending"`
	ByCategory map[models.Category]int `json:"byCategory"`
}

// Stats counts topics in the current catalog
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{
		Total:      len(s.topics),
		ByCategory: make(map[models.Category]int, len(models.Categories)),
	}
	for _, c := range models.Categories {
		st.ByCategory[c] = 0
	}
	for _, t := range s.topics {
		if t.IsTrending {
			st.Trending++
		}
		st.ByCategory[t.Category]++
	}
	return st
}
