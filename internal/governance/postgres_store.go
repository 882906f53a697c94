package governance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// PostgresStore implements Store backed by PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a governance store over an existing connection
// pool.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Compile-time interface check
var _ Store = (*PostgresStore)(nil)

const proposalColumns = `id, title, description, body, author_id, status, outcome_reason,
	voting_start_at, voting_end_at, created_at, updated_at`

func scanProposal(row interface{ Scan(...any) error }) (*Proposal, error) {
	var p Proposal
	err := row.Scan(
		&p.ID, &p.Title, &p.Description, &p.Body, &p.AuthorID, &p.Status,
		&p.OutcomeReason, &p.VotingStartAt, &p.VotingEndAt,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PostgresStore) CreateProposal(ctx context.Context, p *Proposal) error {
	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO proposals (`+proposalColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, p.ID, p.Title, p.Description, p.Body, p.AuthorID, p.Status,
		p.OutcomeReason, p.VotingStartAt, p.VotingEndAt, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrProposalExists
		}
		return fmt.Errorf("failed to create proposal: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetProposal(ctx context.Context, id string) (*Proposal, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+proposalColumns+` FROM proposals WHERE id = $1`, id)
	p, err := scanProposal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProposalNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get proposal: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) UpdateProposal(ctx context.Context, p *Proposal) error {
	p.UpdatedAt = time.Now()
	res, err := s.db.ExecContext(ctx, `
		UPDATE proposals SET
			title = $2, description = $3, body = $4, status = $5,
			outcome_reason = $6, voting_start_at = $7, voting_end_at = $8,
			updated_at = $9
		WHERE id = $1
	`, p.ID, p.Title, p.Description, p.Body, p.Status,
		p.OutcomeReason, p.VotingStartAt, p.VotingEndAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update proposal: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrProposalNotFound
	}
	return nil
}

func (s *PostgresStore) ListProposals(ctx context.Context, filter ListFilter) ([]*Proposal, error) {
	query := `SELECT ` + proposalColumns + ` FROM proposals WHERE 1=1`
	var args []any
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query += " ORDER BY created_at DESC, id"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list proposals: %w", err)
	}
	defer rows.Close()

	var out []*Proposal
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan proposal: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CountByAuthorSince(ctx context.Context, authorID string, since time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM proposals WHERE author_id = $1 AND created_at >= $2
	`, authorID, since).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count proposals: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) CountsByAuthor(ctx context.Context, authorID string) (AuthorCounts, error) {
	var counts AuthorCounts
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE status = 'passed')
		FROM proposals WHERE author_id = $1
	`, authorID).Scan(&counts.Total, &counts.Passed)
	if err != nil {
		return AuthorCounts{}, fmt.Errorf("failed to count author proposals: %w", err)
	}
	return counts, nil
}

func (s *PostgresStore) CreateVote(ctx context.Context, v *Vote) error {
	if v.CastAt.IsZero() {
		v.CastAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO votes (proposal_id, user_id, vote, voting_power, cast_at)
		VALUES ($1, $2, $3, $4, $5)
	`, v.ProposalID, v.UserID, v.Option, v.VotingPower, v.CastAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrAlreadyVoted
		}
		return fmt.Errorf("failed to create vote: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListVotes(ctx context.Context, proposalID string) ([]*Vote, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT proposal_id, user_id, vote, voting_power, cast_at
		FROM votes WHERE proposal_id = $1
		ORDER BY cast_at, user_id
	`, proposalID)
	if err != nil {
		return nil, fmt.Errorf("failed to list votes: %w", err)
	}
	defer rows.Close()

	var out []*Vote
	for rows.Next() {
		var v Vote
		if err := rows.Scan(&v.ProposalID, &v.UserID, &v.Option, &v.VotingPower, &v.CastAt); err != nil {
			return nil, fmt.Errorf("failed to scan vote: %w", err)
		}
		out = append(out, &v)
	}
	return out, rows.Err()
}

func (s *PostgresStore) HasVoted(ctx context.Context, proposalID, userID string) (bool, error) {
	var voted bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM votes WHERE proposal_id = $1 AND user_id = $2)
	`, proposalID, userID).Scan(&voted)
	if err != nil {
		return false, fmt.Errorf("failed to check vote: %w", err)
	}
	return voted, nil
}

func (s *PostgresStore) CountVotesByUserSince(ctx context.Context, userID string, since time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM votes WHERE user_id = $1 AND cast_at >= $2
	`, userID, since).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count votes: %w", err)
	}
	return n, nil
}
