package repository

import (
	"context"
	"fmt"

	"squadvault/database"
	"squadvault/ledger"
	"squadvault/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// SquadRepository implements the SquadRepository interface
type SquadRepository struct {
	q queryable
}

// NewSquadRepository creates a new squad repository
func NewSquadRepository(db *database.DB) *SquadRepository {
	return &SquadRepository{q: db.Pool}
}

// newSquadRepositoryWithTx creates a new squad repository with a transaction
func newSquadRepositoryWithTx(tx queryable) *SquadRepository {
	return &SquadRepository{q: tx}
}

const squadColumns = `id, authority, name, salt, vault_balance, spend_threshold, max_members, created_at_unix, updated_at`

// GetByID retrieves a squad with its roster
func (r *SquadRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Squad, error) {
	return r.get(ctx, `SELECT `+squadColumns+` FROM squads WHERE id = $1`, id)
}

// GetByIDForUpdate retrieves a squad and holds its row lock until the
// transaction ends. The roster is only written under this lock.
func (r *SquadRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Squad, error) {
	return r.get(ctx, `SELECT `+squadColumns+` FROM squads WHERE id = $1 FOR UPDATE`, id)
}

func (r *SquadRepository) get(ctx context.Context, query string, id uuid.UUID) (*models.Squad, error) {
	var squad models.Squad
	err := r.q.QueryRow(ctx, query, id).Scan(
		&squad.ID,
		&squad.Authority,
		&squad.Name,
		&squad.Salt,
		&squad.VaultBalance,
		&squad.SpendThreshold,
		&squad.MaxMembers,
		&squad.CreatedAtUnix,
		&squad.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get squad %s: %w", id, err)
	}

	members, err := r.getMembers(ctx, id)
	if err != nil {
		return nil, err
	}
	squad.Members = members

	return &squad, nil
}

func (r *SquadRepository) getMembers(ctx context.Context, id uuid.UUID) ([]ledger.Identity, error) {
	rows, err := r.q.Query(ctx, `SELECT member FROM squad_members WHERE squad_id = $1 ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get members of squad %s: %w", id, err)
	}
	defer rows.Close()

	members := []ledger.Identity{}
	for rows.Next() {
		var member ledger.Identity
		if err := rows.Scan(&member); err != nil {
			return nil, fmt.Errorf("failed to scan squad member: %w", err)
		}
		members = append(members, member)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate squad members: %w", err)
	}

	return members, nil
}

// Create inserts a new squad and its roster. It reports false without error
// when a squad with the same derived id already exists.
func (r *SquadRepository) Create(ctx context.Context, squad *models.Squad) (bool, error) {
	query := `
		INSERT INTO squads (id, authority, name, salt, vault_balance, spend_threshold, max_members, created_at_unix)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING
		RETURNING updated_at
	`

	err := r.q.QueryRow(ctx, query,
		squad.ID,
		squad.Authority,
		squad.Name,
		squad.Salt,
		squad.VaultBalance,
		squad.SpendThreshold,
		squad.MaxMembers,
		squad.CreatedAtUnix,
	).Scan(&squad.UpdatedAt)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to create squad %s: %w", squad.ID, err)
	}

	if err := r.insertMembers(ctx, squad.ID, squad.Members); err != nil {
		return false, err
	}

	return true, nil
}

// Update persists the vault balance, spend threshold and roster
func (r *SquadRepository) Update(ctx context.Context, squad *models.Squad) error {
	query := `
		UPDATE squads
		SET vault_balance = $2, spend_threshold = $3, max_members = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.q.QueryRow(ctx, query,
		squad.ID,
		squad.VaultBalance,
		squad.SpendThreshold,
		squad.MaxMembers,
	).Scan(&squad.UpdatedAt)
	if err == pgx.ErrNoRows {
		return fmt.Errorf("squad %s not found", squad.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to update squad %s: %w", squad.ID, err)
	}

	// rosters hold at most 32 rows, so rewrite rather than diff
	if _, err := r.q.Exec(ctx, `DELETE FROM squad_members WHERE squad_id = $1`, squad.ID); err != nil {
		return fmt.Errorf("failed to clear members of squad %s: %w", squad.ID, err)
	}
	return r.insertMembers(ctx, squad.ID, squad.Members)
}

func (r *SquadRepository) insertMembers(ctx context.Context, id uuid.UUID, members []ledger.Identity) error {
	for position, member := range members {
		_, err := r.q.Exec(ctx,
			`INSERT INTO squad_members (squad_id, member, position) VALUES ($1, $2, $3)`,
			id, member, position,
		)
		if err != nil {
			return fmt.Errorf("failed to add member %s to squad %s: %w", member.Short(), id, err)
		}
	}
	return nil
}
