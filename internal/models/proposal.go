package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// ProposalStatus is the review label of a submitted proposal.
// Any status may be replaced by any other; there is no terminal state.
type ProposalStatus string

const (
	ProposalPending    ProposalStatus = "pending"
	ProposalApproved   ProposalStatus = "approved"
	ProposalRejected   ProposalStatus = "rejected"
	ProposalInProgress ProposalStatus = "in-progress"
	ProposalCompleted  ProposalStatus = "completed"
)

// ProposalStatuses lists every status in dashboard order
var ProposalStatuses = []ProposalStatus{
	ProposalPending,
	ProposalApproved,
	ProposalRejected,
	ProposalInProgress,
	ProposalCompleted,
}

// IsValid reports whether s is a known status
func (s ProposalStatus) IsValid() bool {
	for _, known := range ProposalStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// ParseProposalStatus validates a raw status string
func ParseProposalStatus(raw string) (ProposalStatus, error) {
	s := ProposalStatus(raw)
	if !s.IsValid() {
		return "", fmt.Errorf("unknown proposal status %q", raw)
	}
	return s, nil
}

// AdminFeedback is the reviewer note attached on every status update
type AdminFeedback struct {
	Feedback   string    `json:"feedback"`
	ReviewedBy string    `json:"reviewedBy"`
	ReviewedAt time.Time `json:"reviewedAt"`
}

// ProposalRecord is a submitted proposal as stored by the proposal service
type ProposalRecord struct {
	ID                string            `json:"id"`
	User              UserProfile       `json:"user"`
	SelectedTopics    []Topic           `json:"selectedTopics"`
	GeneratedProposal *ProposalDocument `json:"generatedProposal"`
	Status            ProposalStatus    `json:"status"`
	SubmissionDate    time.Time         `json:"submissionDate"`
	AdminFeedback     *AdminFeedback    `json:"adminFeedback,omitempty"`
}

// UnmarshalJSON accepts both "id" and the document-store style "_id"
func (r *ProposalRecord) UnmarshalJSON(data []byte) error {
	type plain ProposalRecord
	aux := struct {
		*plain
		MongoID string `json:"_id"`
	}{plain: (*plain)(r)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if r.ID == "" {
		r.ID = aux.MongoID
	}
	return nil
}

// StatusUpdate is the body of an admin status change
type StatusUpdate struct {
	Status     ProposalStatus `json:"status"`
	Feedback   string         `json:"feedback"`
	ReviewedBy string         `json:"reviewedBy"`
}

// SubmitProposalRequest creates a new pending proposal record
type SubmitProposalRequest struct {
	User              UserProfile       `json:"user"`
	SelectedTopics    []Topic           `json:"selectedTopics"`
	GeneratedProposal *ProposalDocument `json:"generatedProposal"`
}

// ProposalStats is the per-status breakdown shown on the admin dashboard
type ProposalStats struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Approved   int `json:"approved"`
	Rejected   int `json:"rejected"`
	InProgress int `json:"inProgress"`
	Completed  int `json:"completed"`
}

// ProposalDocument is the formatted proposal derived from a profile and a selection
type ProposalDocument struct {
	Title       string            `json:"title"`
	Subtitle    string            `json:"subtitle"`
	Student     []InfoRow         `json:"student"`
	Topics      []ProposalEntry   `json:"topics"`
	Signatures  [2]SignatureBlock `json:"signatures"`
	GeneratedOn string            `json:"generatedOn"`
}

// InfoRow is one labelled line of the student information table
type InfoRow struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// ProposalEntry is one numbered topic in the proposal
type ProposalEntry struct {
	Number       int    `json:"number"`
	TopicID      string `json:"topicId"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Technologies string `json:"technologies"`
}

// Heading returns the numbered title, e.g. "1. Smart Campus"
func (e ProposalEntry) Heading() string {
	return fmt.Sprintf("%d. %s", e.Number, e.Title)
}

// SignatureBlock is a signature line with its caption and date
type SignatureBlock struct {
	Caption string `json:"caption"`
	Date    string `json:"date"`
}
