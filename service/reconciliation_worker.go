package service

import (
	"context"
	"fmt"
	"time"

	"squadvault/models"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// ReconciliationWorker periodically checks that every vault balance equals
// the sum of its ledger entries. It only reads; deadline and stream
// transitions stay lazy.
type ReconciliationWorker struct {
	auditor  VaultAuditor
	reporter ReconciliationReporter
}

// NewReconciliationWorker creates a new reconciliation worker. reporter may be nil.
func NewReconciliationWorker(auditor VaultAuditor, reporter ReconciliationReporter) *ReconciliationWorker {
	return &ReconciliationWorker{
		auditor:  auditor,
		reporter: reporter,
	}
}

// Start schedules the audit with a cron spec such as "@every 5m" and
// returns a function that stops the schedule and waits for a running audit.
func (w *ReconciliationWorker) Start(ctx context.Context, schedule string) (func(), error) {
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		if _, err := w.RunOnce(ctx); err != nil {
			log.WithError(err).Error("Vault reconciliation failed")
		}
	}); err != nil {
		return nil, fmt.Errorf("failed to schedule reconciliation %q: %w", schedule, err)
	}

	c.Start()
	log.WithField("schedule", schedule).Info("Reconciliation worker started")

	stopped := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			log.Info("Reconciliation worker shutting down (context cancelled)...")
			<-c.Stop().Done()
		case <-stopped:
		}
	}()

	return func() {
		close(stopped)
		<-c.Stop().Done()
		log.Info("Reconciliation worker stopped")
	}, nil
}

// RunOnce audits every vault and returns the squads whose balance drifted
// from their ledger.
func (w *ReconciliationWorker) RunOnce(ctx context.Context) ([]models.VaultAudit, error) {
	started := time.Now()

	audits, err := w.auditor.AuditVaults(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to audit vaults: %w", err)
	}

	var drifted []models.VaultAudit
	for _, audit := range audits {
		if audit.Drift() == 0 {
			continue
		}
		drifted = append(drifted, audit)
		log.WithFields(log.Fields{
			"squad_id":      audit.SquadID,
			"vault_balance": audit.VaultBalance,
			"ledger_sum":    audit.LedgerSum,
			"entries":       audit.EntryCount,
			"drift":         audit.Drift(),
		}).Error("Vault balance does not match its ledger")
	}

	if w.reporter != nil {
		w.reporter.ReportVaultAudit(audits)
	}

	log.WithFields(log.Fields{
		"squads":   len(audits),
		"drifted":  len(drifted),
		"duration": time.Since(started).String(),
	}).Info("Completed vault reconciliation")

	return drifted, nil
}
