// Package review drives the admin side of submitted proposals: status
// updates, bulk actions, deletion and the dashboard projections.
package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/terra-clan/projecthub/internal/models"
	"github.com/terra-clan/projecthub/internal/proposal"
)

// ErrNotFound is returned when the proposal does not exist
var ErrNotFound = models.ErrNotFound

// Defaults applied to reviewer input
const (
	DefaultFeedback = "No feedback provided"
	DefaultReviewer = "Admin"
	BulkFeedback    = "Bulk action"
	AllStatuses     = "all"
	bulkConcurrency = 8
)

// Backend is the proposal service as seen by the pipeline
type Backend interface {
	ListProposals(ctx context.Context) ([]models.ProposalRecord, error)
	SubmitProposal(ctx context.Context, req models.SubmitProposalRequest) (*models.ProposalRecord, error)
	UpdateProposalStatus(ctx context.Context, id string, update models.StatusUpdate) (*models.ProposalRecord, error)
	DeleteProposal(ctx context.Context, id string) error
}

// Pipeline applies review actions through a Backend
type Pipeline struct {
	backend Backend
}

// NewPipeline creates a review pipeline
func NewPipeline(backend Backend) *Pipeline {
	return &Pipeline{backend: backend}
}

// List fetches every submitted proposal
func (p *Pipeline) List(ctx context.Context) ([]models.ProposalRecord, error) {
	records, err := p.backend.ListProposals(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list proposals: %w", err)
	}
	return records, nil
}

// Submit files a new pending proposal
func (p *Pipeline) Submit(ctx context.Context, profile models.UserProfile, topics []models.Topic, doc *models.ProposalDocument) (*models.ProposalRecord, error) {
	if len(topics) == 0 {
		return nil, proposal.ErrEmptySelection
	}

	rec, err := p.backend.SubmitProposal(ctx, models.SubmitProposalRequest{
		User:              profile,
		SelectedTopics:    topics,
		GeneratedProposal: doc,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to submit proposal: %w", err)
	}
	return rec, nil
}

// UpdateStatus relabels one proposal. Empty feedback and reviewer fall back
// to DefaultFeedback and DefaultReviewer.
func (p *Pipeline) UpdateStatus(ctx context.Context, id string, status models.ProposalStatus, feedback, reviewedBy string) (*models.ProposalRecord, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("unknown proposal status %q", status)
	}
	if strings.TrimSpace(feedback) == "" {
		feedback = DefaultFeedback
	}
	if strings.TrimSpace(reviewedBy) == "" {
		reviewedBy = DefaultReviewer
	}

	rec, err := p.backend.UpdateProposalStatus(ctx, id, models.StatusUpdate{
		Status:     status,
		Feedback:   feedback,
		ReviewedBy: reviewedBy,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update proposal %s: %w", id, err)
	}
	return rec, nil
}

// Delete removes one proposal
func (p *Pipeline) Delete(ctx context.Context, id string) error {
	if err := p.backend.DeleteProposal(ctx, id); err != nil {
		return fmt.Errorf("failed to delete proposal %s: %w", id, err)
	}
	return nil
}

// Outcome is the result of one item of a bulk action
type Outcome struct {
	ID    string `json:"id"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// BulkResult reports every item of a bulk action in request order
type BulkResult struct {
	Outcomes  []Outcome `json:"outcomes"`
	Succeeded int       `json:"succeeded"`
	Failed    int       `json:"failed"`
}

// BulkUpdate relabels every id concurrently with the bulk feedback. Every
// item is attempted; successes are never rolled back. The error joins the
// failures, if any.
func (p *Pipeline) BulkUpdate(ctx context.Context, ids []string, status models.ProposalStatus) (*BulkResult, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("unknown proposal status %q", status)
	}
	return p.fanOut(ctx, ids, func(ctx context.Context, id string) error {
		_, err := p.UpdateStatus(ctx, id, status, BulkFeedback, DefaultReviewer)
		return err
	})
}

// BulkDelete deletes every id concurrently with the same semantics as
// BulkUpdate
func (p *Pipeline) BulkDelete(ctx context.Context, ids []string) (*BulkResult, error) {
	return p.fanOut(ctx, ids, p.Delete)
}

func (p *Pipeline) fanOut(ctx context.Context, ids []string, action func(context.Context, string) error) (*BulkResult, error) {
	errs := make([]error, len(ids))

	// Plain group: one failure must not cancel the others
	var g errgroup.Group
	g.SetLimit(bulkConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			errs[i] = action(ctx, id)
			return nil
		})
	}
	_ = g.Wait()

	result := &BulkResult{Outcomes: make([]Outcome, len(ids))}
	for i, id := range ids {
		result.Outcomes[i] = Outcome{ID: id, OK: errs[i] == nil}
		if errs[i] != nil {
			result.Outcomes[i].Error = errs[i].Error()
			result.Failed++
		} else {
			result.Succeeded++
		}
	}

	if err := errors.Join(errs...); err != nil {
		slog.Warn("bulk action partially failed",
			"succeeded", result.Succeeded,
			"failed", result.Failed,
		)
		return result, err
	}
	return result, nil
}

// Stats counts proposals per status
func Stats(records []models.ProposalRecord) models.ProposalStats {
	st := models.ProposalStats{Total: len(records)}
	for _, r := range records {
		switch r.Status {
		case models.ProposalPending:
			st.Pending++
		case models.ProposalApproved:
			st.Approved++
		case models.ProposalRejected:
			st.Rejected++
		case models.ProposalInProgress:
			st.InProgress++
		case models.ProposalCompleted:
			st.Completed++
		}
	}
	return st
}

// Filter narrows the admin list by status and search text and orders it
// newest submission first. The input is not modified.
func Filter(records []models.ProposalRecord, status string, search string) []models.ProposalRecord {
	search = strings.ToLower(strings.TrimSpace(search))

	out := make([]models.ProposalRecord, 0, len(records))
	for _, r := range records {
		if status != "" && status != AllStatuses && string(r.Status) != status {
			continue
		}
		if search != "" && !matches(r, search) {
			continue
		}
		out = append(out, r)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SubmissionDate.After(out[j].SubmissionDate)
	})
	return out
}

func matches(r models.ProposalRecord, search string) bool {
	fields := []string{r.User.Name, r.User.Email}
	if r.GeneratedProposal != nil {
		fields = append(fields, r.GeneratedProposal.Title)
	}
	for _, t := range r.SelectedTopics {
		fields = append(fields, t.Title)
	}

	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), search) {
			return true
		}
	}
	return false
}
