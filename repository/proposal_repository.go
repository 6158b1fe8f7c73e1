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

// ProposalRepository implements the ProposalRepository interface
type ProposalRepository struct {
	q queryable
}

// NewProposalRepository creates a new proposal repository
func NewProposalRepository(db *database.DB) *ProposalRepository {
	return &ProposalRepository{q: db.Pool}
}

// newProposalRepositoryWithTx creates a new proposal repository with a transaction
func newProposalRepositoryWithTx(tx queryable) *ProposalRepository {
	return &ProposalRepository{q: tx}
}

const proposalColumns = `
	id, squad_id, proposer, title, description, amount, recipient, deadline, status,
	yes_votes, no_votes, quorum, created_at_unix, resolved_at, executed_at, updated_at
`

func scanProposal(row pgx.Row) (*models.Proposal, error) {
	var p models.Proposal
	err := row.Scan(
		&p.ID,
		&p.SquadID,
		&p.Proposer,
		&p.Title,
		&p.Description,
		&p.Amount,
		&p.Recipient,
		&p.Deadline,
		&p.Status,
		&p.YesVotes,
		&p.NoVotes,
		&p.Quorum,
		&p.CreatedAtUnix,
		&p.ResolvedAt,
		&p.ExecutedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByID retrieves a proposal with its electorate and votes
func (r *ProposalRepository) GetByID(ctx context.Context, id int64) (*models.Proposal, error) {
	return r.get(ctx, `SELECT `+proposalColumns+` FROM proposals WHERE id = $1`, id)
}

// GetByIDForUpdate retrieves a proposal and locks it for the rest of the transaction
func (r *ProposalRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Proposal, error) {
	return r.get(ctx, `SELECT `+proposalColumns+` FROM proposals WHERE id = $1 FOR UPDATE`, id)
}

func (r *ProposalRepository) get(ctx context.Context, query string, id int64) (*models.Proposal, error) {
	proposal, err := scanProposal(r.q.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get proposal %d: %w", id, err)
	}

	if err := r.loadBallots(ctx, proposal); err != nil {
		return nil, err
	}
	return proposal, nil
}

// loadBallots fills in the electorate snapshot and the votes cast so far
func (r *ProposalRepository) loadBallots(ctx context.Context, p *models.Proposal) error {
	rows, err := r.q.Query(ctx, `
		SELECT voter FROM proposal_eligible_voters
		WHERE proposal_id = $1
		ORDER BY position
	`, p.ID)
	if err != nil {
		return fmt.Errorf("failed to get electorate of proposal %d: %w", p.ID, err)
	}

	p.EligibleVoters = []ledger.Identity{}
	for rows.Next() {
		var voter ledger.Identity
		if err := rows.Scan(&voter); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan eligible voter: %w", err)
		}
		p.EligibleVoters = append(p.EligibleVoters, voter)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate eligible voters: %w", err)
	}

	rows, err = r.q.Query(ctx, `
		SELECT voter, choice, cast_at FROM proposal_votes
		WHERE proposal_id = $1
		ORDER BY cast_at, created_at
	`, p.ID)
	if err != nil {
		return fmt.Errorf("failed to get votes of proposal %d: %w", p.ID, err)
	}
	defer rows.Close()

	p.Votes = []models.Vote{}
	for rows.Next() {
		vote := models.Vote{ProposalID: p.ID}
		if err := rows.Scan(&vote.Voter, &vote.Choice, &vote.CastAt); err != nil {
			return fmt.Errorf("failed to scan vote: %w", err)
		}
		p.Votes = append(p.Votes, vote)
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate votes: %w", err)
	}

	return nil
}

// Create inserts a new proposal with its electorate and assigns its ID
func (r *ProposalRepository) Create(ctx context.Context, p *models.Proposal) error {
	query := `
		INSERT INTO proposals
		(squad_id, proposer, title, description, amount, recipient, deadline, status,
		 yes_votes, no_votes, quorum, created_at_unix)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, updated_at
	`

	err := r.q.QueryRow(ctx, query,
		p.SquadID,
		p.Proposer,
		p.Title,
		p.Description,
		p.Amount,
		p.Recipient,
		p.Deadline,
		p.Status,
		p.YesVotes,
		p.NoVotes,
		p.Quorum,
		p.CreatedAtUnix,
	).Scan(&p.ID, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create proposal for squad %s: %w", p.SquadID, err)
	}

	for position, voter := range p.EligibleVoters {
		_, err := r.q.Exec(ctx,
			`INSERT INTO proposal_eligible_voters (proposal_id, voter, position) VALUES ($1, $2, $3)`,
			p.ID, voter, position,
		)
		if err != nil {
			return fmt.Errorf("failed to record eligible voter %s for proposal %d: %w", voter.Short(), p.ID, err)
		}
	}

	return nil
}

// Update persists status, tallies and resolution timestamps
func (r *ProposalRepository) Update(ctx context.Context, p *models.Proposal) error {
	query := `
		UPDATE proposals
		SET status = $2, yes_votes = $3, no_votes = $4, resolved_at = $5, executed_at = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.q.QueryRow(ctx, query,
		p.ID,
		p.Status,
		p.YesVotes,
		p.NoVotes,
		p.ResolvedAt,
		p.ExecutedAt,
	).Scan(&p.UpdatedAt)
	if err == pgx.ErrNoRows {
		return fmt.Errorf("proposal %d not found", p.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to update proposal %d: %w", p.ID, err)
	}

	return nil
}

// RecordVote stores a single ballot. The primary key rejects a second vote
// by the same voter even if the engine check were bypassed.
func (r *ProposalRepository) RecordVote(ctx context.Context, vote models.Vote) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO proposal_votes (proposal_id, voter, choice, cast_at)
		VALUES ($1, $2, $3, $4)
	`, vote.ProposalID, vote.Voter, vote.Choice, vote.CastAt)
	if err != nil {
		return fmt.Errorf("failed to record vote by %s on proposal %d: %w", vote.Voter.Short(), vote.ProposalID, err)
	}
	return nil
}

// ListBySquad returns the most recent proposals of a squad
func (r *ProposalRepository) ListBySquad(ctx context.Context, squadID uuid.UUID, limit int) ([]*models.Proposal, error) {
	query := `SELECT ` + proposalColumns + `
		FROM proposals
		WHERE squad_id = $1
		ORDER BY id DESC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, squadID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list proposals of squad %s: %w", squadID, err)
	}

	var proposals []*models.Proposal
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan proposal: %w", err)
		}
		proposals = append(proposals, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate proposals: %w", err)
	}

	// ballots need their own queries, which cannot run while rows is open
	for _, p := range proposals {
		if err := r.loadBallots(ctx, p); err != nil {
			return nil, err
		}
	}

	return proposals, nil
}
