package testutil

import (
	"squadvault/engine"
	"squadvault/ledger"
	"squadvault/models"
)

// TestIdentity returns a deterministic identity whose first byte is b
func TestIdentity(b byte) ledger.Identity {
	var id ledger.Identity
	id[0] = b
	return id
}

// CreateTestSquad builds a squad owned by authority with the given extra members
func CreateTestSquad(authority ledger.Identity, salt string, threshold ledger.Amount, members ...ledger.Identity) *models.Squad {
	squad, err := engine.InitializeSquad(engine.SquadInit{
		Authority:      authority,
		Name:           "test squad",
		Salt:           salt,
		InitialMembers: members,
		SpendThreshold: threshold,
		Now:            1_700_000_000,
	})
	if err != nil {
		panic(err)
	}
	return &squad
}

// CreateTestStream builds a wallet-funded stream of rate units per second
func CreateTestStream(sender, recipient ledger.Identity, rate ledger.Amount, start, end int64) *models.PaymentStream {
	return &models.PaymentStream{
		Sender:          sender,
		Recipient:       recipient,
		AmountPerSecond: rate,
		StartTime:       start,
		EndTime:         end,
		TotalDeposited:  rate * ledger.Amount(end-start),
	}
}

// CreateTestProposal builds an active proposal whose electorate is the squad roster
func CreateTestProposal(squad *models.Squad, recipient ledger.Identity, amount ledger.Amount, deadline int64) *models.Proposal {
	electorate := append([]ledger.Identity(nil), squad.Members...)
	return &models.Proposal{
		SquadID:        squad.ID,
		Proposer:       squad.Authority,
		Title:          "test proposal",
		Amount:         amount,
		Recipient:      recipient,
		Deadline:       deadline,
		Status:         models.ProposalStatusActive,
		Quorum:         uint32(len(electorate)),
		EligibleVoters: electorate,
		Votes:          []models.Vote{},
		CreatedAtUnix:  deadline - 3600,
	}
}
