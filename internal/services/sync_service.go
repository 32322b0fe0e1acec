package services

import (
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"msp-ledger-service/internal/models"
	"msp-ledger-service/internal/repositories"
)

const failReasonMaxLen = 250

// SyncService posts staged 'wait' transactions into the external general
// ledger. One run is a single sequential pass; a failing record is left in
// 'wait' with its fail_reason recorded and is retried on the next run.
type SyncService struct {
	staging  repositories.TransactionRepository
	ledger   repositories.LedgerRepository
	officeID string
	userID   string
}

func NewSyncService(staging repositories.TransactionRepository, ledger repositories.LedgerRepository, officeID, userID string) *SyncService {
	return &SyncService{
		staging:  staging,
		ledger:   ledger,
		officeID: officeID,
		userID:   userID,
	}
}

type SyncSummary struct {
	Processed int
	Posted    int
	Skipped   int
	Failed    int
}

// Run processes every 'wait' record once, ordered by trn_id. Per-record
// failures never abort the batch.
func (s *SyncService) Run() (*SyncSummary, error) {
	records, err := s.staging.ListWaiting()
	if err != nil {
		return nil, fmt.Errorf("list waiting records: %w", err)
	}

	summary := &SyncSummary{}
	if len(records) == 0 {
		log.Println("No pending 'wait' records found")
		return summary, nil
	}
	log.Printf("Found %d pending records", len(records))

	for _, rec := range records {
		summary.Processed++
		switch s.processRecord(rec) {
		case outcomePosted:
			summary.Posted++
		case outcomeSkipped:
			summary.Skipped++
		case outcomeFailed:
			summary.Failed++
		}
	}
	return summary, nil
}

type outcome int

const (
	outcomePosted outcome = iota
	outcomeSkipped
	outcomeFailed
)

func (s *SyncService) processRecord(rec *models.Transaction) outcome {
	log.Printf("Processing %s...", rec.TrnID)

	exists, err := s.ledger.HasEntryForReference(rec.TrnID)
	if err != nil {
		s.recordFailure(rec.TrnID, fmt.Errorf("ledger idempotency check: %w", err))
		return outcomeFailed
	}
	if exists {
		// Already posted by an earlier run; stop retrying.
		log.Printf("  - skipped: %s already exists in gen_jn", rec.TrnID)
		if err := s.staging.UpdateStatus(rec.TrnID, models.StatusSuccess, nil); err != nil {
			log.Printf("  - failed to mark %s success: %v", rec.TrnID, err)
			return outcomeFailed
		}
		return outcomeSkipped
	}

	posting, err := s.buildPosting(rec)
	if err != nil {
		s.recordFailure(rec.TrnID, err)
		return outcomeFailed
	}

	certifyID, err := s.ledger.PostJournal(posting)
	if err != nil {
		s.recordFailure(rec.TrnID, err)
		return outcomeFailed
	}
	log.Printf("  - success: %s inserted with certify ID %s", rec.TrnID, certifyID)

	if err := s.staging.UpdateStatus(rec.TrnID, models.StatusSuccess, nil); err != nil {
		// The ledger rows are committed; the idempotency check will catch
		// this record on the next run and mark it success then.
		log.Printf("  - failed to mark %s success: %v", rec.TrnID, err)
		return outcomeFailed
	}
	return outcomePosted
}

func (s *SyncService) buildPosting(rec *models.Transaction) (*models.Posting, error) {
	debits, err := s.staging.GetDebitLines(rec.TrnID)
	if err != nil {
		return nil, fmt.Errorf("fetch debit lines: %w", err)
	}
	credits, err := s.staging.GetCreditLines(rec.TrnID)
	if err != nil {
		return nil, fmt.Errorf("fetch credit lines: %w", err)
	}
	if len(debits) == 0 && len(credits) == 0 {
		return nil, fmt.Errorf("no debit or credit lines recorded for %s", rec.TrnID)
	}

	sumAmt := decimal.Zero
	for _, d := range debits {
		sumAmt = sumAmt.Add(d.Amount)
	}

	// Fallback only; uploads never store a zero rate.
	rate := rec.ExRate
	if rate.IsZero() {
		rate = decimalOne
	}

	bisDate, err := parseBisDate(rec.BisDate)
	if err != nil {
		return nil, fmt.Errorf("parse bis_date %q: %w", rec.BisDate, err)
	}

	entries := make([]*models.LedgerEntry, 0, len(debits)+len(credits))
	for _, d := range debits {
		e := s.baseEntry(rec, sumAmt, rate)
		e.Side = models.SideDebit
		e.Descrip = lineDesc(d.Desc.String, d.Desc.Valid, rec.TrnDesc)
		e.CodeDr = d.Account
		e.AcCode = d.Account
		e.AmtDr = d.AmountLAK
		e.AmtFcyDr = d.Amount
		e.AmountDr = d.Amount.Div(rate)
		entries = append(entries, e)
	}
	for _, c := range credits {
		e := s.baseEntry(rec, sumAmt, rate)
		e.Side = models.SideCredit
		e.Descrip = lineDesc(c.Desc.String, c.Desc.Valid, rec.TrnDesc)
		e.CodeCr = c.Account
		e.AcCode = c.Account
		e.AmtCr = c.AmountLAK
		e.AmtFcyCr = c.Amount
		e.AmountCr = c.Amount.Div(rate)
		entries = append(entries, e)
	}

	return &models.Posting{
		Book:          rec.AccBook,
		Year:          bisDate.Year(),
		Month:         int(bisDate.Month()),
		CompanyPrefix: s.companyPrefix(),
		Entries:       entries,
	}, nil
}

func (s *SyncService) baseEntry(rec *models.Transaction, sumAmt, rate decimal.Decimal) *models.LedgerEntry {
	return &models.LedgerEntry{
		DateWork: rec.BisDate,
		AcName:   rec.TrnDesc,
		Book:     rec.AccBook,
		ReferNo:  rec.TrnID,
		Amount:   sumAmt,
		Currency: rec.Currency,
		Rate:     rate,
		LastUser: s.userID,
		Company:  s.officeID,
		OfficeID: s.officeID,
	}
}

func (s *SyncService) companyPrefix() string {
	if len(s.officeID) < 2 {
		return s.officeID
	}
	return s.officeID[:2]
}

func (s *SyncService) recordFailure(trnID string, cause error) {
	log.Printf("  - error processing %s: %v", trnID, cause)
	reason := cause.Error()
	if len(reason) > failReasonMaxLen {
		reason = reason[:failReasonMaxLen]
	}
	if err := s.staging.SetFailReason(trnID, reason); err != nil {
		log.Printf("  - failed to record fail_reason for %s: %v", trnID, err)
	}
}

func lineDesc(desc string, valid bool, fallback string) string {
	if valid && desc != "" {
		return desc
	}
	return fallback
}

// parseBisDate accepts a plain date or a datetime stored in bis_date.
func parseBisDate(raw string) (time.Time, error) {
	if len(raw) >= 10 {
		raw = raw[:10]
	}
	return time.Parse("2006-01-02", raw)
}
