package handlers

import (
	"encoding/json"
	"net/http"

	"msp-ledger-service/internal/services"
)

// AdminHandler serves the /apis endpoints used by the reconciliation job and
// back-office tooling: full-record lookups, line retrieval, and the
// unconditional status update.
type AdminHandler struct {
	transactionService *services.TransactionService
}

func NewAdminHandler(transactionService *services.TransactionService) *AdminHandler {
	return &AdminHandler{transactionService: transactionService}
}

func (h *AdminHandler) RetrieveByStatus(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")

	records, err := h.transactionService.ListByStatus(status)
	if err != nil {
		respondWithServiceError(w, err, "")
		return
	}

	out := make([]TransactionResponse, 0, len(records))
	for _, t := range records {
		out = append(out, toTransactionResponse(t))
	}
	respondWithData(w, http.StatusOK, out, "success")
}

func (h *AdminHandler) RetrieveByTrnID(w http.ResponseWriter, r *http.Request) {
	trnID := r.URL.Query().Get("trn_id")

	rec, err := h.transactionService.GetByTrnID(trnID)
	if err != nil {
		respondWithServiceError(w, err, trnID)
		return
	}

	respondWithData(w, http.StatusOK, toTransactionResponse(rec), "success")
}

func (h *AdminHandler) RetrieveDebitLines(w http.ResponseWriter, r *http.Request) {
	trnID := r.URL.Query().Get("trn_id")

	lines, err := h.transactionService.DebitLines(trnID)
	if err != nil {
		respondWithServiceError(w, err, trnID)
		return
	}

	respondWithData(w, http.StatusOK, toDebitLineResponses(lines), "success")
}

func (h *AdminHandler) RetrieveCreditLines(w http.ResponseWriter, r *http.Request) {
	trnID := r.URL.Query().Get("trn_id")

	lines, err := h.transactionService.CreditLines(trnID)
	if err != nil {
		respondWithServiceError(w, err, trnID)
		return
	}

	respondWithData(w, http.StatusOK, toCreditLineResponses(lines), "success")
}

// UpdateStatus sets the status from any state; used to mark 'success' or to
// record a failure reason.
func (h *AdminHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid or empty JSON input")
		return
	}

	if err := h.transactionService.UpdateStatus(req.TrnID, req.Status, req.FailReason); err != nil {
		respondWithServiceError(w, err, req.TrnID)
		return
	}

	respondWithData(w, http.StatusOK, map[string]string{"trn_id": req.TrnID, "status": req.Status}, "success")
}

// ConfirmCancel finalizes a cancellation after the downstream reverse
// accounting has completed: 'cancel' becomes 'canceled'.
func (h *AdminHandler) ConfirmCancel(w http.ResponseWriter, r *http.Request) {
	var req TrnIDRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid or empty JSON input")
		return
	}

	if err := h.transactionService.ConfirmCancel(req.TrnID); err != nil {
		respondWithServiceError(w, err, req.TrnID)
		return
	}

	respondWithData(w, http.StatusOK, map[string]string{"trn_id": req.TrnID, "status": "canceled"}, "success")
}
