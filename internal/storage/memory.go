package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/terra-clan/projecthub/internal/models"
)

// MemoryRepository is an in-process Repository for tests and local runs
// without PostgreSQL. Records are copied on the way in and out.
type MemoryRepository struct {
	mu        sync.RWMutex
	topics    []models.Topic
	accounts  map[string]models.Account
	proposals map[string]models.ProposalRecord
}

// NewMemoryRepository creates an empty memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		accounts:  make(map[string]models.Account),
		proposals: make(map[string]models.ProposalRecord),
	}
}

func (m *MemoryRepository) ListTopics(_ context.Context) ([]models.Topic, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append(make([]models.Topic, 0, len(m.topics)), m.topics...), nil
}

func (m *MemoryRepository) CountTopics(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.topics), nil
}

func (m *MemoryRepository) CreateTopic(_ context.Context, t *models.Topic) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.topicIndex(t.ID) >= 0 {
		return fmt.Errorf("failed to create topic: duplicate id %s", t.ID)
	}
	m.topics = append(m.topics, *t)
	return nil
}

func (m *MemoryRepository) UpsertTopic(_ context.Context, t *models.Topic) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if i := m.topicIndex(t.ID); i >= 0 {
		m.topics[i] = *t
		return nil
	}
	m.topics = append(m.topics, *t)
	return nil
}

func (m *MemoryRepository) DeleteTopic(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.topicIndex(id)
	if i < 0 {
		return fmt.Errorf("topic %s: %w", id, models.ErrNotFound)
	}
	m.topics = append(m.topics[:i], m.topics[i+1:]...)
	return nil
}

func (m *MemoryRepository) topicIndex(id string) int {
	for i, t := range m.topics {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (m *MemoryRepository) CreateAccount(_ context.Context, a *models.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := strings.ToLower(a.Email)
	if _, exists := m.accounts[key]; exists {
		return ErrEmailTaken
	}
	stored := *a
	stored.Email = key
	m.accounts[key] = stored
	return nil
}

func (m *MemoryRepository) GetAccountByEmail(_ context.Context, email string) (*models.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.accounts[strings.ToLower(email)]
	if !ok {
		return nil, fmt.Errorf("account %s: %w", email, models.ErrNotFound)
	}
	return &a, nil
}

func (m *MemoryRepository) UpdateLastLogin(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, a := range m.accounts {
		if a.ID == id {
			a.LastLoginAt = &at
			m.accounts[key] = a
			return nil
		}
	}
	return fmt.Errorf("account %s: %w", id, models.ErrNotFound)
}

func (m *MemoryRepository) CreateProposal(_ context.Context, rec *models.ProposalRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.proposals[rec.ID] = *rec
	return nil
}

func (m *MemoryRepository) GetProposal(_ context.Context, id string) (*models.ProposalRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.proposals[id]
	if !ok {
		return nil, fmt.Errorf("proposal %s: %w", id, models.ErrNotFound)
	}
	return &rec, nil
}

func (m *MemoryRepository) ListProposals(_ context.Context) ([]models.ProposalRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	records := make([]models.ProposalRecord, 0, len(m.proposals))
	for _, rec := range m.proposals {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].SubmissionDate.After(records[j].SubmissionDate)
	})
	return records, nil
}

func (m *MemoryRepository) UpdateProposalStatus(_ context.Context, id string, status models.ProposalStatus, fb models.AdminFeedback) (*models.ProposalRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.proposals[id]
	if !ok {
		return nil, fmt.Errorf("proposal %s: %w", id, models.ErrNotFound)
	}
	rec.Status = status
	rec.AdminFeedback = &fb
	m.proposals[id] = rec
	return &rec, nil
}

func (m *MemoryRepository) DeleteProposal(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.proposals[id]; !ok {
		return fmt.Errorf("proposal %s: %w", id, models.ErrNotFound)
	}
	delete(m.proposals, id)
	return nil
}

func (m *MemoryRepository) ProposalStats(_ context.Context) (models.ProposalStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var st models.ProposalStats
	for _, rec := range m.proposals {
		addStatus(&st, rec.Status, 1)
	}
	return st, nil
}

func (m *MemoryRepository) Ping(_ context.Context) error {
	return nil
}

func (m *MemoryRepository) Close() error {
	return nil
}
