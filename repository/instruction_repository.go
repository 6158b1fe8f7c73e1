package repository

import (
	"context"
	"fmt"

	"squadvault/database"
	"squadvault/models"

	"github.com/jackc/pgx/v5"
)

// InstructionRepository implements the InstructionRepository interface.
// The log is append-only; the table rejects updates and deletes.
type InstructionRepository struct {
	q queryable
}

// NewInstructionRepository creates a new instruction log repository
func NewInstructionRepository(db *database.DB) *InstructionRepository {
	return &InstructionRepository{q: db.Pool}
}

// newInstructionRepositoryWithTx creates a new instruction log repository with a transaction
func newInstructionRepositoryWithTx(tx queryable) *InstructionRepository {
	return &InstructionRepository{q: tx}
}

// ReserveSequence allocates the sequence number of the next log row.
// Sequences survive rollback, so a rejected instruction can reuse its
// reservation in a later transaction.
func (r *InstructionRepository) ReserveSequence(ctx context.Context) (int64, error) {
	var sequence int64
	err := r.q.QueryRow(ctx, `SELECT nextval(pg_get_serial_sequence('instruction_log', 'sequence'))`).Scan(&sequence)
	if err != nil {
		return 0, fmt.Errorf("failed to reserve instruction sequence: %w", err)
	}
	return sequence, nil
}

// Append writes a log row; a zero Sequence lets the database assign one
func (r *InstructionRepository) Append(ctx context.Context, record *models.InstructionRecord) error {
	payload := []byte(record.Payload)
	if len(payload) == 0 {
		payload = []byte("{}")
	}

	var row pgx.Row
	if record.Sequence == 0 {
		row = r.q.QueryRow(ctx, `
			INSERT INTO instruction_log (kind, actor, payload, outcome, error_kind, error_detail, timestamp)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING sequence, processed_at
		`, record.Kind, record.Actor, payload, record.Outcome, record.ErrorKind, record.ErrorDetail, record.Timestamp)
	} else {
		row = r.q.QueryRow(ctx, `
			INSERT INTO instruction_log (sequence, kind, actor, payload, outcome, error_kind, error_detail, timestamp)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING sequence, processed_at
		`, record.Sequence, record.Kind, record.Actor, payload, record.Outcome, record.ErrorKind, record.ErrorDetail, record.Timestamp)
	}

	if err := row.Scan(&record.Sequence, &record.ProcessedAt); err != nil {
		return fmt.Errorf("failed to append %s instruction to log: %w", record.Kind, err)
	}
	return nil
}

// GetBySequence retrieves a log row
func (r *InstructionRepository) GetBySequence(ctx context.Context, sequence int64) (*models.InstructionRecord, error) {
	query := `
		SELECT sequence, kind, actor, payload, outcome, error_kind, error_detail, timestamp, processed_at
		FROM instruction_log
		WHERE sequence = $1
	`

	var record models.InstructionRecord
	var payload []byte
	err := r.q.QueryRow(ctx, query, sequence).Scan(
		&record.Sequence,
		&record.Kind,
		&record.Actor,
		&payload,
		&record.Outcome,
		&record.ErrorKind,
		&record.ErrorDetail,
		&record.Timestamp,
		&record.ProcessedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get instruction %d: %w", sequence, err)
	}
	record.Payload = payload

	return &record, nil
}
