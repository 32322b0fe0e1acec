package repositories

import (
	"database/sql"
	"fmt"

	"msp-ledger-service/internal/models"
)

type LedgerRepository interface {
	HasEntryForReference(trnID string) (bool, error)
	PostJournal(p *models.Posting) (string, error)
}

type ledgerRepository struct {
	db *sql.DB
}

func NewLedgerRepository(db *sql.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) HasEntryForReference(trnID string) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM gen_jn WHERE refer_no = $1 AND source = $2`
	if err := r.db.QueryRow(query, trnID, models.LedgerSourceTag).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// PostJournal inserts every entry of one staged transaction under a single
// database transaction, minting the next certify ID for the posting's
// (book, year, month, company-prefix) scope. The sequence lookup runs under
// an advisory transaction lock so concurrent sync runs cannot mint the same
// number.
func (r *ledgerRepository) PostJournal(p *models.Posting) (certifyID string, err error) {
	tx, err := r.db.Begin()
	if err != nil {
		return "", fmt.Errorf("begin ledger transaction: %w", err)
	}
	defer tx.Rollback()

	lockKey := fmt.Sprintf("gen_jn:%s:%02d%02d:%s", p.Book, p.Year%100, p.Month, p.CompanyPrefix)
	if _, err := tx.Exec(`SELECT pg_advisory_xact_lock(hashtext($1))`, lockKey); err != nil {
		return "", fmt.Errorf("acquire certify lock: %w", err)
	}

	seq, err := r.maxSequence(tx, p)
	if err != nil {
		return "", fmt.Errorf("query certify sequence: %w", err)
	}
	certifyID = CertifyID(p.Book, p.Year, p.Month, seq+1)

	for _, e := range p.Entries {
		e.Certify = certifyID
		if err := insertEntry(tx, e); err != nil {
			return "", fmt.Errorf("insert ledger entry for %s: %w", e.ReferNo, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit ledger transaction: %w", err)
	}
	return certifyID, nil
}

// maxSequence returns the highest 7-digit certify suffix already used in the
// posting's scope, or 0 when the scope is empty.
func (r *ledgerRepository) maxSequence(tx *sql.Tx, p *models.Posting) (int, error) {
	var seq int
	query := `
		SELECT COALESCE(MAX(CAST(RIGHT(certify, 7) AS INTEGER)), 0)
		FROM gen_jn
		WHERE book = $1
		  AND EXTRACT(YEAR FROM date_work) = $2
		  AND EXTRACT(MONTH FROM date_work) = $3
		  AND LEFT(company, 2) = $4
		  AND RIGHT(certify, 7) ~ '^[0-9]{7}$'
	`
	err := tx.QueryRow(query, p.Book, p.Year, p.Month, p.CompanyPrefix).Scan(&seq)
	if err != nil {
		return 0, err
	}
	return seq, nil
}

func insertEntry(tx *sql.Tx, e *models.LedgerEntry) error {
	query := `
		INSERT INTO gen_jn (
			date_work, ac_name, book, certify, refer_no, descrip,
			amount, curr, rate, code_dr, code_cr, ac_code,
			amt_dr, amt_cr, amt_fcy_dr, amt_fcy_cr, amount_dr, amount_cr,
			last_update, last_user, company, office_id, source
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11, $12,
			$13, $14, $15, $16, $17, $18,
			NOW(), $19, $20, $21, $22
		)
	`
	_, err := tx.Exec(query,
		e.DateWork,
		e.AcName,
		e.Book,
		e.Certify,
		e.ReferNo,
		e.Descrip,
		e.Amount,
		e.Currency,
		e.Rate,
		e.CodeDr,
		e.CodeCr,
		e.AcCode,
		e.AmtDr,
		e.AmtCr,
		e.AmtFcyDr,
		e.AmtFcyCr,
		e.AmountDr,
		e.AmountCr,
		e.LastUser,
		e.Company,
		e.OfficeID,
		models.LedgerSourceTag,
	)
	return err
}

// CertifyID builds the ledger document number: book code, two-digit year,
// two-digit month, then a zero-padded 7-digit running number.
func CertifyID(book string, year, month, seq int) string {
	return fmt.Sprintf("%s%02d%02d%07d", book, year%100, month, seq)
}
