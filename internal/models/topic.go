package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Category is the subject area of a topic
type Category string

const (
	CategoryWeb           Category = "web"
	CategoryMobile        Category = "mobile"
	CategoryAI            Category = "ai"
	CategoryData          Category = "data"
	CategoryIoT           Category = "iot"
	CategoryBlockchain    Category = "blockchain"
	CategoryCybersecurity Category = "cybersecurity"
)

// Categories lists every category in display order
var Categories = []Category{
	CategoryWeb,
	CategoryMobile,
	CategoryAI,
	CategoryData,
	CategoryIoT,
	CategoryBlockchain,
	CategoryCybersecurity,
}

// IsValid reports whether c is one of the known categories
func (c Category) IsValid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Difficulty is the expected skill level for a topic
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

// IsValid reports whether d is one of the known difficulty levels
func (d Difficulty) IsValid() bool {
	return d == DifficultyBeginner || d == DifficultyIntermediate || d == DifficultyAdvanced
}

// DefaultImage is used when neither the topic nor its category has an image
const DefaultImage = "https://images.unsplash.com/photo-1517694712202-14dd9538aa97?w=400&h=250&fit=crop"

var categoryImages = map[Category]string{
	CategoryWeb:           "https://images.unsplash.com/photo-1555066931-4365d14bab8c?w=400&h=250&fit=crop",
	CategoryMobile:        "https://images.unsplash.com/photo-1512941937669-90a1b58e7e9c?w=400&h=250&fit=crop",
	CategoryAI:            "https://images.unsplash.com/photo-1485827404703-89b55fcc595e?w=400&h=250&fit=crop",
	CategoryData:          "https://images.unsplash.com/photo-1551288049-bebda4e38f71?w=400&h=250&fit=crop",
	CategoryIoT:           "https://images.unsplash.com/photo-1558618666-fcd25c85cd64?w=400&h=250&fit=crop",
	CategoryBlockchain:    "https://images.unsplash.com/photo-1639762681485-074b7f938ba0?w=400&h=250&fit=crop",
	CategoryCybersecurity: "https://images.unsplash.com/photo-1550751827-4bd374c3f58b?w=400&h=250&fit=crop",
}

// CategoryImage returns the stock image for a category
func CategoryImage(c Category) string {
	if img, ok := categoryImages[c]; ok {
		return img
	}
	return DefaultImage
}

// Topic is a candidate final-year project exposed by the catalog
type Topic struct {
	ID                 string     `json:"id" yaml:"id"`
	Title              string     `json:"title" yaml:"title"`
	Description        string     `json:"description" yaml:"description"`
	Category           Category   `json:"category" yaml:"category"`
	Difficulty         Difficulty `json:"difficulty" yaml:"difficulty"`
	Duration           string     `json:"duration" yaml:"duration"`
	Technologies       []string   `json:"technologies" yaml:"technologies"`
	Popularity         int        `json:"popularity" yaml:"popularity"`
	Complexity         int        `json:"complexity" yaml:"complexity"`
	Resources          int        `json:"resources,omitempty" yaml:"resources"`
	IsTrending         bool       `json:"isTrending" yaml:"is_trending"`
	Image              string     `json:"image,omitempty" yaml:"image"`
	LearningObjectives []string   `json:"learningObjectives,omitempty" yaml:"learning_objectives"`
	Prerequisites      []string   `json:"prerequisites,omitempty" yaml:"prerequisites"`
	ExpectedOutcomes   []string   `json:"expectedOutcomes,omitempty" yaml:"expected_outcomes"`
}

// UnmarshalJSON accepts both "id" and the document-store style "_id"
func (t *Topic) UnmarshalJSON(data []byte) error {
	type plain Topic
	aux := struct {
		*plain
		MongoID string `json:"_id"`
	}{plain: (*plain)(t)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if t.ID == "" {
		t.ID = aux.MongoID
	}
	return nil
}

// ImageURL returns the topic image, falling back to the category default
func (t *Topic) ImageURL() string {
	if t.Image != "" {
		return t.Image
	}
	return CategoryImage(t.Category)
}

// ErrInvalidTopic is returned when a topic draft fails validation
var ErrInvalidTopic = errors.New("invalid topic")

// TopicDraft is the payload for creating a topic
type TopicDraft struct {
	Title              string     `json:"title"`
	Description        string     `json:"description"`
	Category           Category   `json:"category"`
	Difficulty         Difficulty `json:"difficulty"`
	Duration           string     `json:"duration"`
	Technologies       []string   `json:"technologies"`
	Popularity         int        `json:"popularity"`
	Complexity         int        `json:"complexity"`
	Resources          int        `json:"resources"`
	IsTrending         bool       `json:"isTrending"`
	Image              string     `json:"image,omitempty"`
	LearningObjectives []string   `json:"learningObjectives,omitempty"`
	Prerequisites      []string   `json:"prerequisites,omitempty"`
	ExpectedOutcomes   []string   `json:"expectedOutcomes,omitempty"`
}

// Validate checks the draft before it is sent anywhere
func (d *TopicDraft) Validate() error {
	switch {
	case strings.TrimSpace(d.Title) == "":
		return fmt.Errorf("%w: title is required", ErrInvalidTopic)
	case strings.TrimSpace(d.Description) == "":
		return fmt.Errorf("%w: description is required", ErrInvalidTopic)
	case !d.Category.IsValid():
		return fmt.Errorf("%w: unknown category %q", ErrInvalidTopic, d.Category)
	case !d.Difficulty.IsValid():
		return fmt.Errorf("%w: unknown difficulty %q", ErrInvalidTopic, d.Difficulty)
	case d.Popularity < 0 || d.Popularity > 100:
		return fmt.Errorf("%w: popularity must be between 0 and 100", ErrInvalidTopic)
	case d.Complexity < 1 || d.Complexity > 10:
		return fmt.Errorf("%w: complexity must be between 1 and 10", ErrInvalidTopic)
	}
	return nil
}

// ApplyDefaults fills the image from the category when the draft has none
// and normalizes the technology list: comma separated entries are split,
// trimmed and blanks dropped
func (d *TopicDraft) ApplyDefaults() {
	if d.Image == "" {
		d.Image = CategoryImage(d.Category)
	}

	techs := make([]string, 0, len(d.Technologies))
	for _, entry := range d.Technologies {
		techs = append(techs, SplitList(entry)...)
	}
	d.Technologies = techs
}

// ToTopic builds a Topic carrying the given id
func (d *TopicDraft) ToTopic(id string) *Topic {
	return &Topic{
		ID:                 id,
		Title:              d.Title,
		Description:        d.Description,
		Category:           d.Category,
		Difficulty:         d.Difficulty,
		Duration:           d.Duration,
		Technologies:       d.Technologies,
		Popularity:         d.Popularity,
		Complexity:         d.Complexity,
		Resources:          d.Resources,
		IsTrending:         d.IsTrending,
		Image:              d.Image,
		LearningObjectives: d.LearningObjectives,
		Prerequisites:      d.Prerequisites,
		ExpectedOutcomes:   d.ExpectedOutcomes,
	}
}

// SplitList turns comma separated form input into a trimmed list without blanks
func SplitList(value string) []string {
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			result = append(result, p)
		}
	}
	return result
}
