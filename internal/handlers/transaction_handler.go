package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"msp-ledger-service/internal/apperrors"
	"msp-ledger-service/internal/config"
	"msp-ledger-service/internal/services"
	"msp-ledger-service/internal/signature"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report field names as they appear on the wire.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type TransactionHandler struct {
	transactionService *services.TransactionService
	cfg                *config.Config
}

func NewTransactionHandler(transactionService *services.TransactionService, cfg *config.Config) *TransactionHandler {
	return &TransactionHandler{
		transactionService: transactionService,
		cfg:                cfg,
	}
}

// Upload receives an MSP payload and stores the header plus its debit and
// credit lines. The whole insert is atomic; a duplicate trn_id yields 409.
func (h *TransactionHandler) Upload(w http.ResponseWriter, r *http.Request) {
	var req UploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid or empty JSON input")
		return
	}

	if err := validate.Struct(req); err != nil {
		respondWithError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	if h.cfg.Signature.Enabled {
		if req.KeyCode == "" || req.SignDate == "" || req.Sign == "" {
			respondWithError(w, http.StatusBadRequest, "Missing required fields: keyCode, signDate, or sign")
			return
		}
		if req.KeyCode != h.cfg.Signature.KeyCode {
			respondWithError(w, http.StatusBadRequest, "Invalid keyCode")
			return
		}
		if !signature.Verify(req.Sign, req.KeyCode, req.SignDate, strings.TrimSpace(req.TrnID)) {
			respondWithError(w, http.StatusBadRequest, "Invalid signature")
			return
		}
	}

	trnID, err := h.transactionService.Upload(toUploadInput(req))
	if err != nil {
		respondWithServiceError(w, err, strings.TrimSpace(req.TrnID))
		return
	}

	respondWithData(w, http.StatusCreated, map[string]string{"trn_id": trnID}, "MSP transaction uploaded successfully")
}

// GetStatus returns the processing status for a trn_id.
func (h *TransactionHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	var req TrnIDRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid or empty JSON input")
		return
	}

	rec, err := h.transactionService.GetByTrnID(req.TrnID)
	if err != nil {
		respondWithServiceError(w, err, req.TrnID)
		return
	}

	respondWithData(w, http.StatusOK, toStatusResponse(rec, false), "success")
}

// Cancel moves a 'wait' or 'success' transaction to 'cancel'.
func (h *TransactionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	var req TrnIDRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid or empty JSON input")
		return
	}

	if err := h.transactionService.Cancel(req.TrnID); err != nil {
		respondWithServiceError(w, err, req.TrnID)
		return
	}

	respondWithData(w, http.StatusOK, map[string]string{"trn_id": req.TrnID, "status": "cancel"}, "success")
}

// SearchByDate returns records whose business date (or creation date) falls
// inside an inclusive range.
func (h *TransactionHandler) SearchByDate(w http.ResponseWriter, r *http.Request) {
	var req SearchByDateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid or empty JSON input")
		return
	}
	if req.Data == nil {
		respondWithError(w, http.StatusBadRequest, "Missing 'Data' object")
		return
	}

	records, err := h.transactionService.SearchByDate(req.Data.DateField, req.Data.StartDate, req.Data.EndDate)
	if err != nil {
		respondWithServiceError(w, err, "")
		return
	}

	respondWithData(w, http.StatusOK, toStatusResponses(records, true), "success")
}

// RetrieveByStatus lists records in a given status.
func (h *TransactionHandler) RetrieveByStatus(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")

	records, err := h.transactionService.ListByStatus(status)
	if err != nil {
		respondWithServiceError(w, err, "")
		return
	}

	respondWithData(w, http.StatusOK, toStatusResponses(records, false), "success")
}

func toUploadInput(req UploadRequest) services.UploadInput {
	in := services.UploadInput{
		TrnID:      req.TrnID,
		TrnDesc:    req.TrnDesc,
		Currency:   req.Currency,
		AccBook:    req.AccBook,
		BisDate:    req.BisDate,
		Status:     req.Status,
		CreateDate: req.CreateDate,
		ExRate:     flexPtr(req.ExRate),
	}
	for _, d := range req.Debit {
		in.Debit = append(in.Debit, services.LineInput{
			Account:     string(d.Account),
			Amount:      string(d.Amount),
			AmountLocal: flexPtr(d.AmountLAK),
			Desc:        d.Desc,
		})
	}
	for _, c := range req.Credit {
		in.Credit = append(in.Credit, services.LineInput{
			Account:     string(c.Account),
			Amount:      string(c.Amount),
			AmountLocal: flexPtr(c.AmountLAK),
			Desc:        c.Desc,
		})
	}
	return in
}

func flexPtr(f *FlexString) *string {
	if f == nil {
		return nil
	}
	s := string(*f)
	return &s
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "Invalid request payload"
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return "Missing or invalid fields: " + strings.Join(fields, ", ")
}

func respondWithServiceError(w http.ResponseWriter, err error, trnID string) {
	var ve *apperrors.ValidationError
	switch {
	case errors.As(err, &ve):
		if ve.Data != nil {
			respondWithJSON(w, http.StatusBadRequest, map[string]interface{}{
				"error": ve.Message,
				"data":  ve.Data,
			})
			return
		}
		respondWithError(w, http.StatusBadRequest, ve.Message)
	case errors.Is(err, apperrors.ErrNotFound):
		respondWithError(w, http.StatusNotFound, fmt.Sprintf("No MSP transaction found with trn_id '%s'", trnID))
	case errors.Is(err, apperrors.ErrDuplicate):
		respondWithError(w, http.StatusConflict, fmt.Sprintf("Duplicate entry: trn_id '%s' already exists", trnID))
	default:
		respondWithError(w, http.StatusInternalServerError, err.Error())
	}
}
