package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/terra-clan/projecthub/internal/models"
)

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	DSN         string
	MaxConns    int32
	MinConns    int32
	MaxLifetime time.Duration
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(ctx context.Context, cfg PostgresConfig) (*PostgresRepository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	// Set pool configuration
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	} else {
		poolConfig.MaxConns = 10 // default
	}

	if cfg.MinConns > 0 {
		poolConfig.MinConns = cfg.MinConns
	}

	if cfg.MaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxLifetime
	} else {
		poolConfig.MaxConnLifetime = 30 * time.Minute
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{pool: pool}, nil
}

// Pool exposes the connection pool for migrations
func (r *PostgresRepository) Pool() *pgxpool.Pool {
	return r.pool
}

// Ping checks database connectivity
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the database connection pool
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// --- Topics ---

const topicColumns = `id, title, description, category, difficulty, duration, technologies,
	popularity, complexity, resources, is_trending, image, learning_objectives, prerequisites, expected_outcomes`

// ListTopics returns the catalog in insertion order
func (r *PostgresRepository) ListTopics(ctx context.Context) ([]models.Topic, error) {
	query := `SELECT ` + topicColumns + ` FROM topics ORDER BY created_at, id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list topics: %w", err)
	}
	defer rows.Close()

	topics := make([]models.Topic, 0)
	for rows.Next() {
		var t models.Topic
		var category, difficulty string
		err := rows.Scan(
			&t.ID,
			&t.Title,
			&t.Description,
			&category,
			&difficulty,
			&t.Duration,
			&t.Technologies,
			&t.Popularity,
			&t.Complexity,
			&t.Resources,
			&t.IsTrending,
			&t.Image,
			&t.LearningObjectives,
			&t.Prerequisites,
			&t.ExpectedOutcomes,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan topic: %w", err)
		}
		t.Category = models.Category(category)
		t.Difficulty = models.Difficulty(difficulty)
		topics = append(topics, t)
	}

	return topics, rows.Err()
}

// CountTopics returns the catalog size
func (r *PostgresRepository) CountTopics(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM topics`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count topics: %w", err)
	}
	return n, nil
}

// CreateTopic inserts a new topic
func (r *PostgresRepository) CreateTopic(ctx context.Context, t *models.Topic) error {
	query := `INSERT INTO topics (` + topicColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	if _, err := r.pool.Exec(ctx, query, topicArgs(t)...); err != nil {
		return fmt.Errorf("failed to create topic: %w", err)
	}
	return nil
}

// UpsertTopic inserts a topic or replaces the one with the same id
func (r *PostgresRepository) UpsertTopic(ctx context.Context, t *models.Topic) error {
	query := `INSERT INTO topics (` + topicColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			category = EXCLUDED.category,
			difficulty = EXCLUDED.difficulty,
			duration = EXCLUDED.duration,
			technologies = EXCLUDED.technologies,
			popularity = EXCLUDED.popularity,
			complexity = EXCLUDED.complexity,
			resources = EXCLUDED.resources,
			is_trending = EXCLUDED.is_trending,
			image = EXCLUDED.image,
			learning_objectives = EXCLUDED.learning_objectives,
			prerequisites = EXCLUDED.prerequisites,
			expected_outcomes = EXCLUDED.expected_outcomes`

	if _, err := r.pool.Exec(ctx, query, topicArgs(t)...); err != nil {
		return fmt.Errorf("failed to upsert topic: %w", err)
	}
	return nil
}

func topicArgs(t *models.Topic) []interface{} {
	return []interface{}{
		t.ID,
		t.Title,
		t.Description,
		string(t.Category),
		string(t.Difficulty),
		t.Duration,
		nonNil(t.Technologies),
		t.Popularity,
		t.Complexity,
		t.Resources,
		t.IsTrending,
		t.Image,
		nonNil(t.LearningObjectives),
		nonNil(t.Prerequisites),
		nonNil(t.ExpectedOutcomes),
	}
}

// DeleteTopic deletes a topic by id
func (r *PostgresRepository) DeleteTopic(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM topics WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete topic: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("topic %s: %w", id, models.ErrNotFound)
	}

	return nil
}

// --- Accounts ---

// CreateAccount inserts a new account. Emails are unique regardless of case.
func (r *PostgresRepository) CreateAccount(ctx context.Context, a *models.Account) error {
	query := `
		INSERT INTO accounts (id, full_name, email, password_hash, role, student_id, department, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.pool.Exec(ctx, query,
		a.ID,
		a.FullName,
		strings.ToLower(a.Email),
		a.PasswordHash,
		string(a.Role),
		nullString(a.StudentID),
		nullString(a.Department),
		a.CreatedAt,
	)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrEmailTaken
		}
		return fmt.Errorf("failed to create account: %w", err)
	}

	return nil
}

// GetAccountByEmail retrieves an account by email
func (r *PostgresRepository) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	query := `
		SELECT id, full_name, email, password_hash, role, student_id, department, created_at, last_login_at
		FROM accounts
		WHERE email = $1
	`

	var a models.Account
	var role string
	var studentID, department *string

	err := r.pool.QueryRow(ctx, query, strings.ToLower(email)).Scan(
		&a.ID,
		&a.FullName,
		&a.Email,
		&a.PasswordHash,
		&role,
		&studentID,
		&department,
		&a.CreatedAt,
		&a.LastLoginAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("account %s: %w", email, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	a.Role = models.Role(role)
	if studentID != nil {
		a.StudentID = *studentID
	}
	if department != nil {
		a.Department = *department
	}

	return &a, nil
}

// UpdateLastLogin records a successful login
func (r *PostgresRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	if _, err := r.pool.Exec(ctx, `UPDATE accounts SET last_login_at = $2 WHERE id = $1`, id, at); err != nil {
		return fmt.Errorf("failed to update last_login_at: %w", err)
	}
	return nil
}

// --- Proposals ---

const proposalColumns = `id, user_profile, selected_topics, generated_proposal, status,
	submission_date, feedback, reviewed_by, reviewed_at`

// CreateProposal inserts a submitted proposal
func (r *PostgresRepository) CreateProposal(ctx context.Context, rec *models.ProposalRecord) error {
	userJSON, err := json.Marshal(rec.User)
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}

	topicsJSON, err := json.Marshal(rec.SelectedTopics)
	if err != nil {
		return fmt.Errorf("failed to marshal selected topics: %w", err)
	}

	docJSON, err := json.Marshal(rec.GeneratedProposal)
	if err != nil {
		return fmt.Errorf("failed to marshal generated proposal: %w", err)
	}

	query := `
		INSERT INTO proposals (id, user_profile, selected_topics, generated_proposal, status, submission_date)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err = r.pool.Exec(ctx, query,
		rec.ID,
		userJSON,
		topicsJSON,
		docJSON,
		string(rec.Status),
		rec.SubmissionDate,
	)

	if err != nil {
		return fmt.Errorf("failed to create proposal: %w", err)
	}

	return nil
}

// GetProposal retrieves a proposal by id
func (r *PostgresRepository) GetProposal(ctx context.Context, id string) (*models.ProposalRecord, error) {
	query := `SELECT ` + proposalColumns + ` FROM proposals WHERE id = $1`

	rec, err := scanProposal(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("proposal %s: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get proposal: %w", err)
	}

	return rec, nil
}

// ListProposals returns every proposal, newest first
func (r *PostgresRepository) ListProposals(ctx context.Context) ([]models.ProposalRecord, error) {
	query := `SELECT ` + proposalColumns + ` FROM proposals ORDER BY submission_date DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list proposals: %w", err)
	}
	defer rows.Close()

	records := make([]models.ProposalRecord, 0)
	for rows.Next() {
		rec, err := scanProposal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan proposal: %w", err)
		}
		records = append(records, *rec)
	}

	return records, rows.Err()
}

// UpdateProposalStatus sets status and reviewer feedback in one statement
func (r *PostgresRepository) UpdateProposalStatus(ctx context.Context, id string, status models.ProposalStatus, fb models.AdminFeedback) (*models.ProposalRecord, error) {
	query := `
		UPDATE proposals
		SET status = $2, feedback = $3, reviewed_by = $4, reviewed_at = $5
		WHERE id = $1
		RETURNING ` + proposalColumns

	rec, err := scanProposal(r.pool.QueryRow(ctx, query, id, string(status), fb.Feedback, fb.ReviewedBy, fb.ReviewedAt))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("proposal %s: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to update proposal: %w", err)
	}

	return rec, nil
}

// DeleteProposal deletes a proposal by id
func (r *PostgresRepository) DeleteProposal(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM proposals WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete proposal: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("proposal %s: %w", id, models.ErrNotFound)
	}

	return nil
}

// ProposalStats counts proposals per status
func (r *PostgresRepository) ProposalStats(ctx context.Context) (models.ProposalStats, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM proposals GROUP BY status`)
	if err != nil {
		return models.ProposalStats{}, fmt.Errorf("failed to count proposals: %w", err)
	}
	defer rows.Close()

	var st models.ProposalStats
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return models.ProposalStats{}, fmt.Errorf("failed to scan proposal count: %w", err)
		}
		addStatus(&st, models.ProposalStatus(status), n)
	}

	return st, rows.Err()
}

func scanProposal(row pgx.Row) (*models.ProposalRecord, error) {
	var rec models.ProposalRecord
	var status string
	var userJSON, topicsJSON, docJSON []byte
	var feedback, reviewedBy *string
	var reviewedAt *time.Time

	err := row.Scan(
		&rec.ID,
		&userJSON,
		&topicsJSON,
		&docJSON,
		&status,
		&rec.SubmissionDate,
		&feedback,
		&reviewedBy,
		&reviewedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.Status = models.ProposalStatus(status)

	if err := json.Unmarshal(userJSON, &rec.User); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user: %w", err)
	}
	if err := json.Unmarshal(topicsJSON, &rec.SelectedTopics); err != nil {
		return nil, fmt.Errorf("failed to unmarshal selected topics: %w", err)
	}
	if docJSON != nil {
		if err := json.Unmarshal(docJSON, &rec.GeneratedProposal); err != nil {
			return nil, fmt.Errorf("failed to unmarshal generated proposal: %w", err)
		}
	}

	if reviewedAt != nil {
		rec.AdminFeedback = &models.AdminFeedback{ReviewedAt: *reviewedAt}
		if feedback != nil {
			rec.AdminFeedback.Feedback = *feedback
		}
		if reviewedBy != nil {
			rec.AdminFeedback.ReviewedBy = *reviewedBy
		}
	}

	return &rec, nil
}

// Helper functions for nullable values

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
