package repository

import (
	"context"
	"fmt"

	"squadvault/database"
	"squadvault/ledger"
	"squadvault/models"

	"github.com/jackc/pgx/v5"
)

// StreamRepository implements the StreamRepository interface
type StreamRepository struct {
	q queryable
}

// NewStreamRepository creates a new stream repository
func NewStreamRepository(db *database.DB) *StreamRepository {
	return &StreamRepository{q: db.Pool}
}

// newStreamRepositoryWithTx creates a new stream repository with a transaction
func newStreamRepositoryWithTx(tx queryable) *StreamRepository {
	return &StreamRepository{q: tx}
}

const streamColumns = `
	id, sender, recipient, funding_squad_id, amount_per_second, start_time, end_time,
	total_deposited, total_withdrawn, is_cancelled, cancelled_at, created_at, updated_at
`

func scanStream(row pgx.Row) (*models.PaymentStream, error) {
	var stream models.PaymentStream
	err := row.Scan(
		&stream.ID,
		&stream.Sender,
		&stream.Recipient,
		&stream.FundingSquadID,
		&stream.AmountPerSecond,
		&stream.StartTime,
		&stream.EndTime,
		&stream.TotalDeposited,
		&stream.TotalWithdrawn,
		&stream.IsCancelled,
		&stream.CancelledAt,
		&stream.CreatedAt,
		&stream.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &stream, nil
}

// GetByID retrieves a stream by its ID
func (r *StreamRepository) GetByID(ctx context.Context, id int64) (*models.PaymentStream, error) {
	stream, err := scanStream(r.q.QueryRow(ctx, `SELECT `+streamColumns+` FROM payment_streams WHERE id = $1`, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get stream %d: %w", id, err)
	}
	return stream, nil
}

// GetByIDForUpdate retrieves a stream and locks it for the rest of the transaction
func (r *StreamRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.PaymentStream, error) {
	stream, err := scanStream(r.q.QueryRow(ctx, `SELECT `+streamColumns+` FROM payment_streams WHERE id = $1 FOR UPDATE`, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock stream %d: %w", id, err)
	}
	return stream, nil
}

// Create inserts a new stream and assigns its ID
func (r *StreamRepository) Create(ctx context.Context, stream *models.PaymentStream) error {
	query := `
		INSERT INTO payment_streams
		(sender, recipient, funding_squad_id, amount_per_second, start_time, end_time, total_deposited, total_withdrawn)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`

	err := r.q.QueryRow(ctx, query,
		stream.Sender,
		stream.Recipient,
		stream.FundingSquadID,
		stream.AmountPerSecond,
		stream.StartTime,
		stream.EndTime,
		stream.TotalDeposited,
		stream.TotalWithdrawn,
	).Scan(&stream.ID, &stream.CreatedAt, &stream.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create stream from %s: %w", stream.Sender.Short(), err)
	}

	return nil
}

// Update persists withdrawal and cancellation state
func (r *StreamRepository) Update(ctx context.Context, stream *models.PaymentStream) error {
	query := `
		UPDATE payment_streams
		SET total_withdrawn = $2, is_cancelled = $3, cancelled_at = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.q.QueryRow(ctx, query,
		stream.ID,
		stream.TotalWithdrawn,
		stream.IsCancelled,
		stream.CancelledAt,
	).Scan(&stream.UpdatedAt)
	if err == pgx.ErrNoRows {
		return fmt.Errorf("stream %d not found", stream.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to update stream %d: %w", stream.ID, err)
	}

	return nil
}

// ListByParticipant returns streams where the identity is sender or recipient, newest first
func (r *StreamRepository) ListByParticipant(ctx context.Context, participant ledger.Identity, limit int) ([]*models.PaymentStream, error) {
	query := `SELECT ` + streamColumns + `
		FROM payment_streams
		WHERE sender = $1 OR recipient = $1
		ORDER BY id DESC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, participant, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list streams of %s: %w", participant.Short(), err)
	}
	defer rows.Close()

	var streams []*models.PaymentStream
	for rows.Next() {
		stream, err := scanStream(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stream: %w", err)
		}
		streams = append(streams, stream)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate streams: %w", err)
	}

	return streams, nil
}
