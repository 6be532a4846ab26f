package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/terra-clan/projecthub/internal/models"
	"github.com/terra-clan/projecthub/internal/proposal"
	"github.com/terra-clan/projecthub/internal/review"
)

// GeneratedProposal is the proposal preview with its markdown rendition
type GeneratedProposal struct {
	Document *models.ProposalDocument `json:"document"`
	Markdown string                   `json:"markdown"`
}

// AdminProposalList is the filtered review queue with overall counts
type AdminProposalList struct {
	Proposals []models.ProposalRecord `json:"proposals"`
	Stats     models.ProposalStats    `json:"stats"`
}

// BulkRequest applies one action to many proposals
type BulkRequest struct {
	Action string                `json:"action"`
	IDs    []string              `json:"ids"`
	Status models.ProposalStatus `json:"status,omitempty"`
}

// Bulk actions
const (
	BulkActionStatus = "status"
	BulkActionDelete = "delete"
)

// generate builds the proposal of the current visitor
func (s *Server) generate(ctx context.Context) (models.UserProfile, []models.Topic, *models.ProposalDocument, error) {
	set, err := s.wishlist(ctx)
	if err != nil {
		return models.UserProfile{}, nil, nil, err
	}
	profile, err := s.mirror(ctx).Profile(ctx)
	if err != nil {
		return models.UserProfile{}, nil, nil, err
	}

	topics := set.Topics()
	doc, err := proposal.Generate(profile, topics, s.now())
	if err != nil {
		return models.UserProfile{}, nil, nil, err
	}
	return profile, topics, doc, nil
}

// Proposal handlers

func (s *Server) handleGenerateProposal(w http.ResponseWriter, r *http.Request) {
	_, _, doc, err := s.generate(r.Context())
	if err != nil {
		respondFailure(w, err, "generate proposal")
		return
	}

	respondJSON(w, http.StatusOK, GeneratedProposal{
		Document: doc,
		Markdown: proposal.ToMarkdown(doc),
	}, "")
}

func (s *Server) handlePrintProposal(w http.ResponseWriter, r *http.Request) {
	profile, _, doc, err := s.generate(r.Context())
	if err != nil {
		respondFailure(w, err, "generate proposal")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(proposal.ToPrintableMarkup(doc, profile.Name))); err != nil {
		slog.Debug("failed to write printable proposal", "error", err)
	}
}

func (s *Server) handleSubmitProposal(w http.ResponseWriter, r *http.Request) {
	profile, topics, doc, err := s.generate(r.Context())
	if err != nil {
		respondFailure(w, err, "generate proposal")
		return
	}

	rec, err := s.pipeline.Submit(s.upstream(r.Context()), profile, topics, doc)
	if err != nil {
		respondFailure(w, err, "submit proposal")
		return
	}

	set, err := s.wishlist(r.Context())
	if err == nil {
		err = set.Clear(r.Context())
	}
	if err != nil {
		slog.Warn("failed to clear wishlist after submission", "proposal_id", rec.ID, "error", err)
	}

	respondJSON(w, http.StatusCreated, rec, "Proposal submitted successfully")
}

// Admin handlers

func (s *Server) handleAdminListProposals(w http.ResponseWriter, r *http.Request) {
	records, err := s.pipeline.List(s.upstream(r.Context()))
	if err != nil {
		respondFailure(w, err, "load proposals")
		return
	}

	q := r.URL.Query()
	respondJSON(w, http.StatusOK, AdminProposalList{
		Proposals: review.Filter(records, q.Get("status"), q.Get("search")),
		Stats:     review.Stats(records),
	}, "")
}

func (s *Server) handleAdminUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req models.StatusUpdate
	if !decodeBody(w, r, &req) {
		return
	}
	if _, err := models.ParseProposalStatus(string(req.Status)); err != nil {
		respondError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	rec, err := s.pipeline.UpdateStatus(s.upstream(r.Context()), id, req.Status, req.Feedback, req.ReviewedBy)
	if err != nil {
		respondFailure(w, err, "update proposal")
		return
	}

	respondJSON(w, http.StatusOK, rec, "Proposal status updated successfully")
}

func (s *Server) handleAdminDeleteProposal(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.pipeline.Delete(s.upstream(r.Context()), id); err != nil {
		respondFailure(w, err, "delete proposal")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"id": id}, "Proposal deleted successfully")
}

func (s *Server) handleAdminBulk(w http.ResponseWriter, r *http.Request) {
	var req BulkRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.IDs) == 0 {
		respondError(w, http.StatusBadRequest, "validation_error", "ids are required")
		return
	}

	ctx := s.upstream(r.Context())

	var (
		result *review.BulkResult
		err    error
	)
	switch strings.ToLower(req.Action) {
	case BulkActionStatus:
		if _, err := models.ParseProposalStatus(string(req.Status)); err != nil {
			respondError(w, http.StatusBadRequest, "validation_error", err.Error())
			return
		}
		result, err = s.pipeline.BulkUpdate(ctx, req.IDs, req.Status)
	case BulkActionDelete:
		result, err = s.pipeline.BulkDelete(ctx, req.IDs)
	default:
		respondError(w, http.StatusBadRequest, "validation_error", "unknown bulk action: "+req.Action)
		return
	}

	if err != nil {
		// Partial failures are reported item by item
		respondJSON(w, http.StatusMultiStatus, result, "Some proposals could not be processed")
		return
	}

	respondJSON(w, http.StatusOK, result, "Bulk action completed")
}
