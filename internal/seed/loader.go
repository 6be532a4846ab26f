// Package seed loads the initial topic catalog from YAML files.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/terra-clan/projecthub/internal/models"
)

// catalogFile is the on-disk layout of a seed file
type catalogFile struct {
	Topics []topicEntry `yaml:"topics"`
}

type topicEntry struct {
	ID                 string            `yaml:"id"`
	Title              string            `yaml:"title"`
	Description        string            `yaml:"description"`
	Category           models.Category   `yaml:"category"`
	Difficulty         models.Difficulty `yaml:"difficulty"`
	Duration           string            `yaml:"duration"`
	Technologies       []string          `yaml:"technologies"`
	Popularity         int               `yaml:"popularity"`
	Complexity         int               `yaml:"complexity"`
	Resources          int               `yaml:"resources"`
	IsTrending         bool              `yaml:"is_trending"`
	Image              string            `yaml:"image"`
	LearningObjectives []string          `yaml:"learning_objectives"`
	Prerequisites      []string          `yaml:"prerequisites"`
	ExpectedOutcomes   []string          `yaml:"expected_outcomes"`
}

func (e topicEntry) draft() models.TopicDraft {
	return models.TopicDraft{
		Title:              e.Title,
		Description:        e.Description,
		Category:           e.Category,
		Difficulty:         e.Difficulty,
		Duration:           e.Duration,
		Technologies:       e.Technologies,
		Popularity:         e.Popularity,
		Complexity:         e.Complexity,
		Resources:          e.Resources,
		IsTrending:         e.IsTrending,
		Image:              e.Image,
		LearningObjectives: e.LearningObjectives,
		Prerequisites:      e.Prerequisites,
		ExpectedOutcomes:   e.ExpectedOutcomes,
	}
}

// Loader collects seed topics keyed by id, in file order
type Loader struct {
	mu     sync.RWMutex
	topics map[string]*models.Topic
	order  []string
}

// NewLoader creates a new seed loader
func NewLoader() *Loader {
	return &Loader{
		topics: make(map[string]*models.Topic),
	}
}

// LoadFromDir loads every YAML file in dir, in name order
func (l *Loader) LoadFromDir(dir string) error {
	slog.Info("loading seed topics from directory", "dir", dir)

	var files []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			continue
		}
		files = append(files, matches...)
	}
	sort.Strings(files)

	loaded := 0
	for _, file := range files {
		if err := l.LoadFromFile(file); err != nil {
			slog.Warn("failed to load seed file", "file", file, "error", err)
			continue
		}
		loaded++
	}

	slog.Info("seed files loaded", "count", loaded, "total_files", len(files))
	return nil
}

// LoadFromFile loads topics from a single YAML file. Invalid entries are
// skipped with a warning; a file that cannot be parsed is an error.
func (l *Loader) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	for i, entry := range file.Topics {
		id := strings.TrimSpace(entry.ID)
		if id == "" {
			slog.Warn("seed topic without id", "file", path, "index", i)
			continue
		}

		draft := entry.draft()
		if err := draft.Validate(); err != nil {
			slog.Warn("invalid seed topic", "file", path, "id", id, "error", err)
			continue
		}
		draft.ApplyDefaults()

		l.Add(draft.ToTopic(id))
	}

	return nil
}

// Add registers a topic, replacing any earlier topic with the same id
func (l *Loader) Add(topic *models.Topic) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.topics[topic.ID]; !exists {
		l.order = append(l.order, topic.ID)
	}
	l.topics[topic.ID] = topic
}

// Get retrieves a topic by id
func (l *Loader) Get(id string) *models.Topic {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.topics[id]
}

// List returns all loaded topics in load order
func (l *Loader) List() []*models.Topic {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]*models.Topic, 0, len(l.order))
	for _, id := range l.order {
		result = append(result, l.topics[id])
	}
	return result
}

// Target receives seed topics
type Target interface {
	CountTopics(ctx context.Context) (int, error)
	UpsertTopic(ctx context.Context, topic *models.Topic) error
}

// Apply writes the loaded topics into an empty catalog. A catalog that
// already holds topics is left alone.
func (l *Loader) Apply(ctx context.Context, target Target) (int, error) {
	count, err := target.CountTopics(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count topics: %w", err)
	}
	if count > 0 {
		slog.Info("catalog already populated, skipping seed", "topics", count)
		return 0, nil
	}

	applied := 0
	for _, topic := range l.List() {
		if err := target.UpsertTopic(ctx, topic); err != nil {
			return applied, fmt.Errorf("failed to seed topic %s: %w", topic.ID, err)
		}
		applied++
	}

	slog.Info("catalog seeded", "topics", applied)
	return applied, nil
}
