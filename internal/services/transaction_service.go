package services

import (
	"database/sql"
	"strings"

	"github.com/shopspring/decimal"

	"msp-ledger-service/internal/apperrors"
	"msp-ledger-service/internal/config"
	"msp-ledger-service/internal/models"
	"msp-ledger-service/internal/repositories"
)

var decimalOne = decimal.NewFromInt(1)

type TransactionService struct {
	repo  repositories.TransactionRepository
	rules config.ValidationConfig
}

func NewTransactionService(repo repositories.TransactionRepository, rules config.ValidationConfig) *TransactionService {
	return &TransactionService{
		repo:  repo,
		rules: rules,
	}
}

// UploadInput is the parsed upload payload. Amounts stay as strings until
// validation so that parse failures surface as client errors.
type UploadInput struct {
	TrnID      string
	TrnDesc    string
	Currency   string
	AccBook    string
	BisDate    string
	Status     string
	CreateDate string
	ExRate     *string
	Debit      []LineInput
	Credit     []LineInput
}

type LineInput struct {
	Account     string
	Amount      string
	AmountLocal *string
	Desc        string
}

// Upload validates a staged transaction and writes the header plus all
// debit/credit lines in one database transaction. Nothing is persisted on
// any validation or insert failure.
func (s *TransactionService) Upload(in UploadInput) (string, error) {
	trnID := strings.TrimSpace(in.TrnID)

	isLocal := !s.rules.CurrencyRules || in.Currency == s.rules.LocalCurrency

	exRate, err := s.resolveExchangeRate(in.ExRate, isLocal)
	if err != nil {
		return "", err
	}

	totalDebit := decimal.Zero
	debitLines := make([]*models.DebitLine, 0, len(in.Debit))
	for _, item := range in.Debit {
		if item.Account == "" || item.Amount == "" {
			return "", apperrors.Validationf("a debit entry is missing 'dr_ac' or 'dr_amt'")
		}
		amt, err := parseAmount(item.Amount)
		if err != nil {
			return "", apperrors.Validationf("invalid amount format in entries: %q", item.Amount)
		}
		totalDebit = totalDebit.Add(amt)

		lak, err := resolveLocalAmount(item.AmountLocal, amt, isLocal, "dr_amt_lak", "dr_amt")
		if err != nil {
			return "", err
		}

		debitLines = append(debitLines, &models.DebitLine{
			TrnID:     trnID,
			Account:   strings.TrimSpace(item.Account),
			Amount:    amt,
			AmountLAK: lak,
			Desc:      nullString(item.Desc),
		})
	}

	totalCredit := decimal.Zero
	creditLines := make([]*models.CreditLine, 0, len(in.Credit))
	for _, item := range in.Credit {
		if item.Account == "" || item.Amount == "" {
			return "", apperrors.Validationf("a credit entry is missing 'cr_ac' or 'cr_amt'")
		}
		amt, err := parseAmount(item.Amount)
		if err != nil {
			return "", apperrors.Validationf("invalid amount format in entries: %q", item.Amount)
		}
		totalCredit = totalCredit.Add(amt)

		lak, err := resolveLocalAmount(item.AmountLocal, amt, isLocal, "cr_amt_lak", "cr_amt")
		if err != nil {
			return "", err
		}

		creditLines = append(creditLines, &models.CreditLine{
			TrnID:     trnID,
			Account:   strings.TrimSpace(item.Account),
			Amount:    amt,
			AmountLAK: lak,
			Desc:      nullString(item.Desc),
		})
	}

	if !totalDebit.Equal(totalCredit) {
		return "", &apperrors.ValidationError{
			Message: "debit and credit totals do not match",
			Data: map[string]string{
				"total_debit":  totalDebit.String(),
				"total_credit": totalCredit.String(),
			},
		}
	}

	header := &models.Transaction{
		TrnID:      trnID,
		TrnDesc:    in.TrnDesc,
		Currency:   in.Currency,
		AccBook:    in.AccBook,
		BisDate:    in.BisDate,
		Status:     in.Status,
		CreateDate: in.CreateDate,
		ExRate:     exRate,
	}
	if err := s.repo.CreateWithLines(header, debitLines, creditLines); err != nil {
		return "", err
	}
	return trnID, nil
}

func (s *TransactionService) resolveExchangeRate(raw *string, isLocal bool) (decimal.Decimal, error) {
	if raw == nil {
		if isLocal {
			return decimalOne, nil
		}
		return decimal.Zero, apperrors.Validationf("missing required field: ex_rate (required for foreign currency)")
	}
	rate, err := parseAmount(*raw)
	if err != nil {
		return decimal.Zero, apperrors.Validationf("invalid ex_rate: %q", *raw)
	}
	if !isLocal && rate.Equal(decimalOne) {
		return decimal.Zero, apperrors.Validationf("ex_rate must not be 1 for foreign currency")
	}
	return rate, nil
}

func resolveLocalAmount(raw *string, original decimal.Decimal, isLocal bool, lakField, amtField string) (decimal.Decimal, error) {
	if raw == nil {
		if isLocal {
			return original, nil
		}
		return decimal.Zero, apperrors.Validationf("missing '%s' for foreign currency entry", lakField)
	}
	lak, err := parseAmount(*raw)
	if err != nil {
		return decimal.Zero, apperrors.Validationf("invalid amount format in entries: %q", *raw)
	}
	if !isLocal && lak.Equal(original) {
		return decimal.Zero, apperrors.Validationf("%s must be different from %s for foreign currency", lakField, amtField)
	}
	return lak, nil
}

// GetByTrnID returns the full staged transaction for trnID.
func (s *TransactionService) GetByTrnID(trnID string) (*models.Transaction, error) {
	if trnID == "" {
		return nil, apperrors.Validationf("missing required field: trn_id")
	}
	return s.repo.GetByTrnID(trnID)
}

// ListByStatus returns records in the given status, which must appear in
// the query allow-list.
func (s *TransactionService) ListByStatus(status string) ([]*models.Transaction, error) {
	if status == "" {
		return nil, apperrors.Validationf("missing required parameter: status")
	}
	if !models.ValidStatus(status, models.QueryStatuses) {
		return nil, apperrors.Validationf("invalid status %q", status)
	}
	return s.repo.ListByStatus(status)
}

// SearchByDate returns records whose date falls within [startDate, endDate].
// dateField selects the business date (default) or the creation date.
func (s *TransactionService) SearchByDate(dateField, startDate, endDate string) ([]*models.Transaction, error) {
	if startDate == "" || endDate == "" {
		return nil, apperrors.Validationf("missing date range")
	}
	switch dateField {
	case "":
		dateField = "bis_date"
	case "bis_date", "create_date":
	default:
		return nil, apperrors.Validationf("invalid dateField %q: must be 'bis_date' or 'create_date'", dateField)
	}
	return s.repo.ListByDateRange(dateField, startDate, endDate)
}

// DebitLines returns the debit legs of a staged transaction.
func (s *TransactionService) DebitLines(trnID string) ([]*models.DebitLine, error) {
	if trnID == "" {
		return nil, apperrors.Validationf("missing required field: trn_id")
	}
	if _, err := s.repo.GetByTrnID(trnID); err != nil {
		return nil, err
	}
	return s.repo.GetDebitLines(trnID)
}

// CreditLines returns the credit legs of a staged transaction.
func (s *TransactionService) CreditLines(trnID string) ([]*models.CreditLine, error) {
	if trnID == "" {
		return nil, apperrors.Validationf("missing required field: trn_id")
	}
	if _, err := s.repo.GetByTrnID(trnID); err != nil {
		return nil, err
	}
	return s.repo.GetCreditLines(trnID)
}

// UpdateStatus sets the status unconditionally, from any state. An empty
// failReason leaves the stored reason untouched.
func (s *TransactionService) UpdateStatus(trnID, status, failReason string) error {
	if trnID == "" || status == "" {
		return apperrors.Validationf("missing required fields: trn_id, status")
	}
	if !models.ValidStatus(status, models.KnownStatuses) {
		return apperrors.Validationf("invalid status %q", status)
	}
	if _, err := s.repo.GetByTrnID(trnID); err != nil {
		return err
	}
	var reason *string
	if failReason != "" {
		reason = &failReason
	}
	return s.repo.UpdateStatus(trnID, status, reason)
}

// Cancel moves a transaction to 'cancel'. Only 'wait' and 'success' records
// can be canceled.
func (s *TransactionService) Cancel(trnID string) error {
	if trnID == "" {
		return apperrors.Validationf("missing required field: trn_id")
	}
	rec, err := s.repo.GetByTrnID(trnID)
	if err != nil {
		return err
	}
	if rec.Status == models.StatusCancel {
		return apperrors.Validationf("already canceled")
	}
	if rec.Status != models.StatusWait && rec.Status != models.StatusSuccess {
		return apperrors.Validationf("cannot cancel in current status '%s'", rec.Status)
	}
	return s.repo.UpdateStatus(trnID, models.StatusCancel, nil)
}

// ConfirmCancel moves a transaction from 'cancel' to 'canceled' once the
// reverse accounting has been completed downstream.
func (s *TransactionService) ConfirmCancel(trnID string) error {
	if trnID == "" {
		return apperrors.Validationf("missing required field: trn_id")
	}
	rec, err := s.repo.GetByTrnID(trnID)
	if err != nil {
		return err
	}
	if rec.Status != models.StatusCancel {
		return apperrors.Validationf("cannot confirm cancel: current status is '%s', expected 'cancel'", rec.Status)
	}
	return s.repo.UpdateStatus(trnID, models.StatusCanceled, nil)
}

// parseAmount parses an exact decimal, tolerating thousands separators.
func parseAmount(raw string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(raw), ",", ""))
}

func nullString(v string) sql.NullString {
	if v == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: v, Valid: true}
}
