// Package memory provides an in-memory TransactionRepository used by tests
// and local development without a MySQL instance.
package memory

import (
	"sort"
	"sync"

	"msp-ledger-service/internal/apperrors"
	"msp-ledger-service/internal/models"
	"msp-ledger-service/internal/repositories"
)

type StagingRepository struct {
	mu           sync.RWMutex
	transactions map[string]*models.Transaction
	debits       map[string][]*models.DebitLine
	credits      map[string][]*models.CreditLine
}

var _ repositories.TransactionRepository = (*StagingRepository)(nil)

func NewStagingRepository() *StagingRepository {
	return &StagingRepository{
		transactions: make(map[string]*models.Transaction),
		debits:       make(map[string][]*models.DebitLine),
		credits:      make(map[string][]*models.CreditLine),
	}
}

func (r *StagingRepository) CreateWithLines(t *models.Transaction, debits []*models.DebitLine, credits []*models.CreditLine) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.transactions[t.TrnID]; ok {
		return apperrors.ErrDuplicate
	}
	cp := *t
	r.transactions[t.TrnID] = &cp
	r.debits[t.TrnID] = append([]*models.DebitLine(nil), debits...)
	r.credits[t.TrnID] = append([]*models.CreditLine(nil), credits...)
	return nil
}

func (r *StagingRepository) GetByTrnID(trnID string) (*models.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.transactions[trnID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *StagingRepository) ListByStatus(status string) ([]*models.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*models.Transaction
	for _, t := range r.transactions {
		if t.Status == status {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TrnID < out[j].TrnID })
	return out, nil
}

func (r *StagingRepository) ListByDateRange(dateField, startDate, endDate string) ([]*models.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	field := func(t *models.Transaction) string {
		if dateField == "create_date" {
			return datePart(t.CreateDate)
		}
		return datePart(t.BisDate)
	}
	var out []*models.Transaction
	for _, t := range r.transactions {
		d := field(t)
		if d >= startDate && d <= endDate {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return field(out[i]) < field(out[j]) })
	return out, nil
}

func (r *StagingRepository) ListWaiting() ([]*models.Transaction, error) {
	return r.ListByStatus(models.StatusWait)
}

func (r *StagingRepository) GetDebitLines(trnID string) ([]*models.DebitLine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*models.DebitLine(nil), r.debits[trnID]...), nil
}

func (r *StagingRepository) GetCreditLines(trnID string) ([]*models.CreditLine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*models.CreditLine(nil), r.credits[trnID]...), nil
}

func (r *StagingRepository) UpdateStatus(trnID, status string, failReason *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.transactions[trnID]
	if !ok {
		return apperrors.ErrNotFound
	}
	t.Status = status
	if failReason != nil {
		t.FailReason.String = *failReason
		t.FailReason.Valid = true
	}
	return nil
}

func (r *StagingRepository) SetFailReason(trnID, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.transactions[trnID]
	if !ok {
		return apperrors.ErrNotFound
	}
	t.FailReason.String = reason
	t.FailReason.Valid = true
	return nil
}

func datePart(v string) string {
	if len(v) >= 10 {
		return v[:10]
	}
	return v
}
