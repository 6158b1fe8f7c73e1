package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVaultAudit_Drift(t *testing.T) {
	tests := []struct {
		name     string
		audit    VaultAudit
		expected int64
	}{
		{
			name:     "consistent vault",
			audit:    VaultAudit{VaultBalance: 300, LedgerSum: 300, EntryCount: 1},
			expected: 0,
		},
		{
			name:     "balance ahead of ledger",
			audit:    VaultAudit{VaultBalance: 300},
			expected: 300,
		},
		{
			name:     "ledger ahead of balance",
			audit:    VaultAudit{VaultBalance: 100, LedgerSum: 250, EntryCount: 2},
			expected: -150,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.audit.Drift())
		})
	}
}

func TestVaultAudit_DriftOnIndexedAudits(t *testing.T) {
	bySquad := map[string]VaultAudit{
		"a": {SquadID: "a", VaultBalance: 10, LedgerSum: 10},
		"b": {SquadID: "b", VaultBalance: 40, LedgerSum: 10},
	}

	assert.Zero(t, bySquad["a"].Drift())
	assert.Equal(t, int64(30), bySquad["b"].Drift())
}
