// Package selection implements the wishlist: an ordered set of at most
// MaxTopics topics that is written through to a Port on every change.
package selection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/terra-clan/projecthub/internal/models"
)

// MaxTopics is the wishlist capacity
const MaxTopics = 3

var (
	// ErrLimitReached is returned when adding to a full wishlist
	ErrLimitReached = errors.New("you can only select up to 3 project topics for your proposal")

	// ErrMissingTopicID is returned when toggling a topic without an id
	ErrMissingTopicID = errors.New("topic id is required")
)

// Change describes what a successful Toggle did
type Change string

const (
	Added   Change = "added"
	Removed Change = "removed"
)

// Set is the wishlist of one visitor. It is not safe for concurrent use;
// callers load a Set per request.
type Set struct {
	port   Port
	topics []models.Topic
}

// Load rehydrates the wishlist from port. A stored value that cannot be
// decoded is purged and the wishlist starts empty.
func Load(ctx context.Context, port Port) (*Set, error) {
	s := &Set{port: port}

	data, ok, err := port.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load selection: %w", err)
	}
	if !ok {
		return s, nil
	}

	var topics []models.Topic
	if err := json.Unmarshal(data, &topics); err != nil || !valid(topics) {
		slog.Warn("discarding corrupt selection", "error", err)
		if err := port.Clear(ctx); err != nil {
			return nil, fmt.Errorf("failed to purge corrupt selection: %w", err)
		}
		return s, nil
	}

	s.topics = topics
	return s, nil
}

// valid rejects stored values that could not have been written by a Set.
// An empty array counts as corrupt: an empty wishlist is never stored.
func valid(topics []models.Topic) bool {
	if len(topics) == 0 || len(topics) > MaxTopics {
		return false
	}
	seen := make(map[string]bool, len(topics))
	for _, t := range topics {
		if t.ID == "" || seen[t.ID] {
			return false
		}
		seen[t.ID] = true
	}
	return true
}

// Topics returns a copy of the selected topics in insertion order
func (s *Set) Topics() []models.Topic {
	out := make([]models.Topic, len(s.topics))
	copy(out, s.topics)
	return out
}

// Len returns the number of selected topics
func (s *Set) Len() int {
	return len(s.topics)
}

// Full reports whether the wishlist is at capacity
func (s *Set) Full() bool {
	return len(s.topics) >= MaxTopics
}

// Contains reports whether a topic id is selected
func (s *Set) Contains(id string) bool {
	return s.indexOf(id) >= 0
}

func (s *Set) indexOf(id string) int {
	for i, t := range s.topics {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// Toggle removes the topic when selected and appends it otherwise.
// On a full wishlist an unselected topic is rejected with ErrLimitReached
// and nothing is written.
func (s *Set) Toggle(ctx context.Context, topic models.Topic) (Change, error) {
	if topic.ID == "" {
		return "", ErrMissingTopicID
	}

	if i := s.indexOf(topic.ID); i >= 0 {
		if err := s.commit(ctx, without(s.topics, i)); err != nil {
			return "", err
		}
		return Removed, nil
	}

	if s.Full() {
		return "", ErrLimitReached
	}

	next := make([]models.Topic, 0, len(s.topics)+1)
	next = append(next, s.topics...)
	next = append(next, topic)
	if err := s.commit(ctx, next); err != nil {
		return "", err
	}
	return Added, nil
}

// Remove drops a topic by id; absent ids are a no-op
func (s *Set) Remove(ctx context.Context, id string) error {
	i := s.indexOf(id)
	if i < 0 {
		return nil
	}
	return s.commit(ctx, without(s.topics, i))
}

// Clear empties the wishlist and deletes the stored value
func (s *Set) Clear(ctx context.Context) error {
	return s.commit(ctx, nil)
}

// commit writes next to the port and only then adopts it, so a failed write
// leaves the in-memory set as it was
func (s *Set) commit(ctx context.Context, next []models.Topic) error {
	if len(next) == 0 {
		if err := s.port.Clear(ctx); err != nil {
			return fmt.Errorf("failed to clear selection: %w", err)
		}
		s.topics = nil
		return nil
	}

	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("failed to encode selection: %w", err)
	}
	if err := s.port.Save(ctx, data); err != nil {
		return fmt.Errorf("failed to save selection: %w", err)
	}
	s.topics = next
	return nil
}

func without(topics []models.Topic, i int) []models.Topic {
	out := make([]models.Topic, 0, len(topics)-1)
	out = append(out, topics[:i]...)
	return append(out, topics[i+1:]...)
}
