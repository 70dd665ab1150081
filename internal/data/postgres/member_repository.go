package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/splitledger/internal/domain/member"
	"github.com/splitledger/internal/platform/persistence"
)

// MemberRepository implements the member.Directory interface for PostgreSQL
type MemberRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewMemberRepository creates a new PostgreSQL member directory
func NewMemberRepository(logger *slog.Logger, db *persistence.PostgresDB) member.Directory {
	return &MemberRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// Create registers a new member in the directory
func (r *MemberRepository) Create(ctx context.Context, m *member.Member) error {
	query := `
		INSERT INTO members (id, display_name, created_at)
		VALUES ($1, $2, $3)
	`

	if _, err := r.querier.Exec(ctx, query, m.ID, m.DisplayName, m.CreatedAt); err != nil {
		r.logger.Error("Failed to create member", "id", m.ID.String(), "error", err)
		return fmt.Errorf("failed to create member: %w", err)
	}
	return nil
}

// GetByID retrieves a member by ID
func (r *MemberRepository) GetByID(ctx context.Context, id uuid.UUID) (*member.Member, error) {
	query := `
		SELECT id, display_name, created_at
		FROM members
		WHERE id = $1
	`

	var m member.Member
	err := r.querier.QueryRow(ctx, query, id).Scan(&m.ID, &m.DisplayName, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, member.ErrMemberNotFound{MemberID: id}
		}
		r.logger.Error("Failed to get member", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return &m, nil
}

// GetByIDs retrieves a batch of members keyed by ID. Missing IDs are simply
// absent from the map; callers decide whether that is an error.
func (r *MemberRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*member.Member, error) {
	query := `
		SELECT id, display_name, created_at
		FROM members
		WHERE id = ANY($1)
	`

	rows, err := r.querier.Query(ctx, query, ids)
	if err != nil {
		r.logger.Error("Failed to get members by IDs", "error", err)
		return nil, fmt.Errorf("failed to get members by IDs: %w", err)
	}
	defer rows.Close()

	members := make(map[uuid.UUID]*member.Member, len(ids))
	for rows.Next() {
		var m member.Member
		if err := rows.Scan(&m.ID, &m.DisplayName, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members[m.ID] = &m
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate members: %w", err)
	}
	return members, nil
}
