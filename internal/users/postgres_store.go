package users

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// PostgresStore implements Store with PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed user store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Compile-time interface check
var _ Store = (*PostgresStore)(nil)

func (p *PostgresStore) Create(ctx context.Context, profile *Profile) error {
	if profile.Role == "" {
		profile.Role = RoleUser
	}
	err := p.db.QueryRowContext(ctx, `
		INSERT INTO profiles (id, username, email, bio, avatar_url, role, reputation, streak_days, frozen)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`, profile.ID, profile.Username, profile.Email, profile.Bio, profile.AvatarURL,
		string(profile.Role), profile.Reputation, profile.StreakDays, profile.Frozen,
	).Scan(&profile.CreatedAt, &profile.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrUserExists
		}
		return fmt.Errorf("failed to create profile: %w", err)
	}

	_, err = p.db.ExecContext(ctx, `
		INSERT INTO user_stats (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING
	`, profile.ID)
	if err != nil {
		return fmt.Errorf("failed to create user stats: %w", err)
	}
	return nil
}

func (p *PostgresStore) Get(ctx context.Context, id string) (*Profile, error) {
	return p.getWhere(ctx, "id = $1", id)
}

func (p *PostgresStore) GetByUsername(ctx context.Context, username string) (*Profile, error) {
	return p.getWhere(ctx, "username = $1", username)
}

func (p *PostgresStore) getWhere(ctx context.Context, where string, arg any) (*Profile, error) {
	profile := &Profile{}
	var role string
	err := p.db.QueryRowContext(ctx, `
		SELECT id, username, email, COALESCE(bio, ''), COALESCE(avatar_url, ''),
		       role, reputation, streak_days, frozen, created_at, updated_at
		FROM profiles WHERE `+where,
		arg,
	).Scan(&profile.ID, &profile.Username, &profile.Email, &profile.Bio, &profile.AvatarURL,
		&role, &profile.Reputation, &profile.StreakDays, &profile.Frozen,
		&profile.CreatedAt, &profile.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	profile.Role = Role(role)
	return profile, nil
}

func (p *PostgresStore) Update(ctx context.Context, profile *Profile) error {
	res, err := p.db.ExecContext(ctx, `
		UPDATE profiles
		SET username = $2, email = $3, bio = $4, avatar_url = $5, role = $6,
		    reputation = $7, streak_days = $8, frozen = $9, updated_at = NOW()
		WHERE id = $1
	`, profile.ID, profile.Username, profile.Email, profile.Bio, profile.AvatarURL,
		string(profile.Role), profile.Reputation, profile.StreakDays, profile.Frozen)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (p *PostgresStore) List(ctx context.Context, limit int) ([]*Profile, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, username, email, COALESCE(bio, ''), COALESCE(avatar_url, ''),
		       role, reputation, streak_days, frozen, created_at, updated_at
		FROM profiles
		ORDER BY created_at DESC, id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*Profile
	for rows.Next() {
		profile := &Profile{}
		var role string
		if err := rows.Scan(&profile.ID, &profile.Username, &profile.Email, &profile.Bio,
			&profile.AvatarURL, &role, &profile.Reputation, &profile.StreakDays,
			&profile.Frozen, &profile.CreatedAt, &profile.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profile.Role = Role(role)
		profiles = append(profiles, profile)
	}
	return profiles, rows.Err()
}

func (p *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := p.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM profiles`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count profiles: %w", err)
	}
	return n, nil
}

func (p *PostgresStore) AddReputation(ctx context.Context, id string, delta int) (int, error) {
	var total int
	err := p.db.QueryRowContext(ctx, `
		UPDATE profiles
		SET reputation = GREATEST(reputation + $2, 0), updated_at = NOW()
		WHERE id = $1
		RETURNING reputation
	`, id, delta).Scan(&total)
	if err == sql.ErrNoRows {
		return 0, ErrUserNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to add reputation: %w", err)
	}
	return total, nil
}

func (p *PostgresStore) GetStats(ctx context.Context, id string) (*Stats, error) {
	s := &Stats{UserID: id}
	err := p.db.QueryRowContext(ctx, `
		SELECT missions_completed, governance_votes, proposals_created, forum_posts
		FROM user_stats WHERE user_id = $1
	`, id).Scan(&s.MissionsCompleted, &s.GovernanceVotes, &s.ProposalsCreated, &s.ForumPosts)
	if err == sql.ErrNoRows {
		// Profile may exist without a stats row; treat as zeroes.
		if _, perr := p.Get(ctx, id); perr != nil {
			return nil, perr
		}
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user stats: %w", err)
	}
	return s, nil
}

func (p *PostgresStore) IncrementStat(ctx context.Context, id string, field StatField, delta int) error {
	var column string
	switch field {
	case StatMissionsCompleted:
		column = "missions_completed"
	case StatGovernanceVotes:
		column = "governance_votes"
	case StatProposalsCreated:
		column = "proposals_created"
	case StatForumPosts:
		column = "forum_posts"
	default:
		return fmt.Errorf("unknown stat field: %s", field)
	}

	_, err := p.db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO user_stats (user_id, %s) VALUES ($1, GREATEST($2, 0))
		ON CONFLICT (user_id) DO UPDATE SET %s = GREATEST(user_stats.%s + $2, 0)
	`, column, column, column), id, delta)
	if err != nil {
		// FK violation means the profile row is missing.
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to increment %s: %w", column, err)
	}
	return nil
}

func (p *PostgresStore) ListStats(ctx context.Context, limit int) ([]*Stats, error) {
	if limit <= 0 {
		limit = 1000
	}
	rows, err := p.db.QueryContext(ctx, `
		SELECT user_id, missions_completed, governance_votes, proposals_created, forum_posts
		FROM user_stats
		ORDER BY user_id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list user stats: %w", err)
	}
	defer rows.Close()

	var stats []*Stats
	for rows.Next() {
		s := &Stats{}
		if err := rows.Scan(&s.UserID, &s.MissionsCompleted, &s.GovernanceVotes,
			&s.ProposalsCreated, &s.ForumPosts); err != nil {
			return nil, fmt.Errorf("failed to scan user stats: %w", err)
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// isUniqueViolation reports whether err is a Postgres unique constraint error.
func isUniqueViolation(err error) bool {
	pqErr, ok := err.(*pq.Error)
	return ok && pqErr.Code == "23505"
}
