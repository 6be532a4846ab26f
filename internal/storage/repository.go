package storage

import (
	"context"
	"errors"
	"time"

	"github.com/terra-clan/projecthub/internal/models"
)

// ErrEmailTaken is returned when registering an email that already has an account
var ErrEmailTaken = errors.New("an account with this email already exists")

// Repository defines the interface for proposal service persistence.
// Lookups of missing rows return models.ErrNotFound.
type Repository interface {
	// Topics
	ListTopics(ctx context.Context) ([]models.Topic, error)
	CountTopics(ctx context.Context) (int, error)
	CreateTopic(ctx context.Context, topic *models.Topic) error
	UpsertTopic(ctx context.Context, topic *models.Topic) error
	DeleteTopic(ctx context.Context, id string) error

	// Accounts
	CreateAccount(ctx context.Context, account *models.Account) error
	GetAccountByEmail(ctx context.Context, email string) (*models.Account, error)
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error

	// Proposals
	CreateProposal(ctx context.Context, rec *models.ProposalRecord) error
	GetProposal(ctx context.Context, id string) (*models.ProposalRecord, error)
	ListProposals(ctx context.Context) ([]models.ProposalRecord, error)
	UpdateProposalStatus(ctx context.Context, id string, status models.ProposalStatus, feedback models.AdminFeedback) (*models.ProposalRecord, error)
	DeleteProposal(ctx context.Context, id string) error
	ProposalStats(ctx context.Context) (models.ProposalStats, error)

	// Health
	Ping(ctx context.Context) error
	Close() error
}

// addStatus adds n proposals of the given status to st
func addStatus(st *models.ProposalStats, status models.ProposalStatus, n int) {
	switch status {
	case models.ProposalPending:
		st.Pending += n
	case models.ProposalApproved:
		st.Approved += n
	case models.ProposalRejected:
		st.Rejected += n
	case models.ProposalInProgress:
		st.InProgress += n
	case models.ProposalCompleted:
		st.Completed += n
	}
	st.Total += n
}
