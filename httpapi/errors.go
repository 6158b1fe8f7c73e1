package httpapi

import (
	"encoding/json"
	"net/http"

	"squadvault/ledger"

	log "github.com/sirupsen/logrus"
)

// errorResponse is the body of every non-2xx response
type errorResponse struct {
	Error   ledger.Kind `json:"error"`
	Message string      `json:"message"`
}

// statusForKind maps a failure kind to its HTTP status
func statusForKind(kind ledger.Kind) int {
	switch kind {
	case ledger.KindUnauthorized, ledger.KindNotMember, ledger.KindCannotRemoveAuthority:
		return http.StatusForbidden
	case ledger.KindInvalidAmount,
		ledger.KindInvalidRate,
		ledger.KindInvalidWindow,
		ledger.KindInvalidDeadline,
		ledger.KindInvalidThreshold,
		ledger.KindInvalidMembership,
		ledger.KindInvalidName,
		ledger.KindInvalidRecipient,
		ledger.KindInvalidChoice,
		ledger.KindInvalidInstruction,
		ledger.KindUnknownInstruction,
		ledger.KindArithmeticOverflow:
		return http.StatusBadRequest
	case ledger.KindAccountNotFound:
		return http.StatusNotFound
	case ledger.KindAlreadyVoted,
		ledger.KindAlreadyMember,
		ledger.KindAlreadyCancelled,
		ledger.KindAlreadyExecuted,
		ledger.KindAlreadyInitialized,
		ledger.KindMembershipFull,
		ledger.KindProposalNotActive,
		ledger.KindProposalNotPassed,
		ledger.KindDeadlinePassed,
		ledger.KindVotingOpen:
		return http.StatusConflict
	case ledger.KindInsufficientFunds, ledger.KindVoteRequired, ledger.KindNothingToWithdraw:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.WithError(err).Warn("Failed to write response body")
	}
}

// writeError reports err by kind. Infrastructure failures never leak their
// message to the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := ledger.KindOf(err)
	status := statusForKind(kind)

	message := err.Error()
	if kind == ledger.KindInternal {
		message = "internal error"
		log.WithFields(log.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
			"error":  err,
		}).Error("Request failed")
	}

	writeJSON(w, status, errorResponse{Error: kind, Message: message})
}

func writeStatus(w http.ResponseWriter, status int, kind ledger.Kind, message string) {
	writeJSON(w, status, errorResponse{Error: kind, Message: message})
}
