package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"squadvault/ledger"
	"squadvault/models"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveInstruction(t *testing.T) {
	m := New()

	m.ObserveInstruction(models.InstructionDeposit, models.InstructionOutcomeCommitted, "", 3*time.Millisecond)
	m.ObserveInstruction(models.InstructionDeposit, models.InstructionOutcomeCommitted, "", 0)
	m.ObserveInstruction(models.InstructionWithdraw, models.InstructionOutcomeRejected, ledger.KindVoteRequired, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.instructions.WithLabelValues("deposit", "committed", "")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.instructions.WithLabelValues("withdraw", "rejected", "VoteRequired")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.instructionDuration))
}

func TestReportVaultAudit(t *testing.T) {
	m := New()

	m.ReportVaultAudit([]models.VaultAudit{
		{SquadID: "a", VaultBalance: 100, LedgerSum: 100},
		{SquadID: "b", VaultBalance: 100, LedgerSum: 70},
	})
	assert.Equal(t, 1.0, testutil.ToFloat64(m.driftedSquads))
	assert.Equal(t, 30.0, testutil.ToFloat64(m.vaultDrift.WithLabelValues("b")))
	assert.Greater(t, testutil.ToFloat64(m.lastAudit), 0.0)

	// a clean audit clears earlier drift series
	m.ReportVaultAudit([]models.VaultAudit{{SquadID: "b", VaultBalance: 70, LedgerSum: 70}})
	assert.Equal(t, 0.0, testutil.ToFloat64(m.driftedSquads))
	assert.Equal(t, 0, testutil.CollectAndCount(m.vaultDrift))
}

func TestInstrumentHandler(t *testing.T) {
	m := New()

	router := mux.NewRouter()
	router.Use(m.InstrumentHandler)
	router.HandleFunc("/v1/squads/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}).Methods(http.MethodGet)
	router.Handle("/metrics", m.Handler())

	for _, id := range []string{"one", "two"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/squads/"+id, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/v1/squads/{id}", "404")))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "squadvault_http_requests_total"))
}
