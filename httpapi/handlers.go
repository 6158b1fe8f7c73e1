package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"squadvault/ledger"
	"squadvault/models"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

const maxInstructionBody = 64 << 10

type handlers struct {
	dispatcher InstructionDispatcher
	queries    Queries
}

type instructionRequest struct {
	Kind   models.InstructionKind `json:"kind"`
	Params json.RawMessage        `json:"params"`
}

func (h *handlers) submitInstruction(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		writeStatus(w, http.StatusUnauthorized, ledger.KindUnauthorized, "missing actor")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxInstructionBody+1))
	if err != nil {
		writeStatus(w, http.StatusBadRequest, ledger.KindInvalidInstruction, "unreadable body")
		return
	}
	if len(body) > maxInstructionBody {
		writeStatus(w, http.StatusRequestEntityTooLarge, ledger.KindInvalidInstruction, "instruction too large")
		return
	}

	var req instructionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeStatus(w, http.StatusBadRequest, ledger.KindInvalidInstruction, "malformed instruction envelope")
		return
	}

	ins, err := models.DecodeInstruction(req.Kind, req.Params)
	if err != nil {
		writeError(w, r, err)
		return
	}

	receipt, err := h.dispatcher.Dispatch(r.Context(), actor, ins)
	if err != nil {
		writeError(w, r, err)
		return
	}

	log.WithFields(log.Fields{
		"kind":     receipt.Kind,
		"sequence": receipt.Sequence,
		"actor":    actor.Short(),
	}).Debug("Instruction accepted over HTTP")
	writeJSON(w, http.StatusOK, receipt)
}

func (h *handlers) getSquad(w http.ResponseWriter, r *http.Request) {
	id, ok := squadIDParam(w, r)
	if !ok {
		return
	}
	squad, err := h.queries.GetSquad(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, squad)
}

func (h *handlers) listSquadProposals(w http.ResponseWriter, r *http.Request) {
	id, ok := squadIDParam(w, r)
	if !ok {
		return
	}
	proposals, err := h.queries.ListSquadProposals(r.Context(), id, limitParam(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, proposals)
}

func (h *handlers) getStream(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Param(w, r, "id")
	if !ok {
		return
	}

	var at int64
	if raw := r.URL.Query().Get("at"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 0 {
			writeStatus(w, http.StatusBadRequest, ledger.KindInvalidInstruction, "at must be a unix timestamp")
			return
		}
		at = parsed
	}

	view, err := h.queries.GetStream(r.Context(), id, at)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *handlers) getProposal(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Param(w, r, "id")
	if !ok {
		return
	}
	proposal, err := h.queries.GetProposal(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, proposal)
}

func (h *handlers) getWallet(w http.ResponseWriter, r *http.Request) {
	owner, ok := identityParam(w, r)
	if !ok {
		return
	}
	wallet, err := h.queries.GetWallet(r.Context(), owner)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, wallet)
}

func (h *handlers) listStreams(w http.ResponseWriter, r *http.Request) {
	owner, ok := identityParam(w, r)
	if !ok {
		return
	}
	streams, err := h.queries.ListStreams(r.Context(), owner, limitParam(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, streams)
}

func (h *handlers) getLedgerEntries(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	accountType := models.AccountType(vars["accountType"])
	switch accountType {
	case models.AccountTypeWallet, models.AccountTypeSquad, models.AccountTypeStream:
	default:
		writeStatus(w, http.StatusBadRequest, ledger.KindInvalidInstruction, "account type must be wallet, squad or stream")
		return
	}

	entries, err := h.queries.GetLedgerEntries(r.Context(), accountType, vars["accountID"], limitParam(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *handlers) getInstruction(w http.ResponseWriter, r *http.Request) {
	sequence, ok := int64Param(w, r, "sequence")
	if !ok {
		return
	}
	record, err := h.queries.GetInstruction(r.Context(), sequence)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func squadIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeStatus(w, http.StatusBadRequest, ledger.KindInvalidInstruction, "squad id must be a uuid")
		return uuid.Nil, false
	}
	return id, true
}

func identityParam(w http.ResponseWriter, r *http.Request) (ledger.Identity, bool) {
	id, err := ledger.ParseIdentity(mux.Vars(r)["identity"])
	if err != nil {
		writeStatus(w, http.StatusBadRequest, ledger.KindInvalidInstruction, "identity must be 64 hex characters")
		return ledger.Identity{}, false
	}
	return id, true
}

func int64Param(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	v, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil {
		writeStatus(w, http.StatusBadRequest, ledger.KindInvalidInstruction, name+" must be an integer")
		return 0, false
	}
	return v, true
}

// limitParam returns the requested page size; the query layer clamps it
func limitParam(r *http.Request) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil {
		return 0
	}
	return limit
}
