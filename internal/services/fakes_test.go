package services_test

import (
	"fmt"

	"msp-ledger-service/internal/models"
	"msp-ledger-service/internal/repositories"
)

// fakeLedgerRepo is an in-memory LedgerRepository mirroring the certify
// sequencing of the real one, with an injectable posting failure.
type fakeLedgerRepo struct {
	entries []*models.LedgerEntry
	refs    map[string]bool
	seqs    map[string]int
	postErr error
}

var _ repositories.LedgerRepository = (*fakeLedgerRepo)(nil)

func newFakeLedgerRepo() *fakeLedgerRepo {
	return &fakeLedgerRepo{
		refs: make(map[string]bool),
		seqs: make(map[string]int),
	}
}

func (r *fakeLedgerRepo) HasEntryForReference(trnID string) (bool, error) {
	return r.refs[trnID], nil
}

func (r *fakeLedgerRepo) PostJournal(p *models.Posting) (string, error) {
	if r.postErr != nil {
		return "", r.postErr
	}
	key := fmt.Sprintf("%s:%02d:%02d:%s", p.Book, p.Year%100, p.Month, p.CompanyPrefix)
	r.seqs[key]++
	certifyID := repositories.CertifyID(p.Book, p.Year, p.Month, r.seqs[key])
	for _, e := range p.Entries {
		e.Certify = certifyID
		r.entries = append(r.entries, e)
		r.refs[e.ReferNo] = true
	}
	return certifyID, nil
}

func (r *fakeLedgerRepo) entriesFor(trnID string) []*models.LedgerEntry {
	var out []*models.LedgerEntry
	for _, e := range r.entries {
		if e.ReferNo == trnID {
			out = append(out, e)
		}
	}
	return out
}
