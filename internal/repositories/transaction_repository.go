package repositories

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"msp-ledger-service/internal/apperrors"
	"msp-ledger-service/internal/models"
)

type TransactionRepository interface {
	CreateWithLines(t *models.Transaction, debits []*models.DebitLine, credits []*models.CreditLine) error
	GetByTrnID(trnID string) (*models.Transaction, error)
	ListByStatus(status string) ([]*models.Transaction, error)
	ListByDateRange(dateField, startDate, endDate string) ([]*models.Transaction, error)
	ListWaiting() ([]*models.Transaction, error)
	GetDebitLines(trnID string) ([]*models.DebitLine, error)
	GetCreditLines(trnID string) ([]*models.CreditLine, error)
	UpdateStatus(trnID, status string, failReason *string) error
	SetFailReason(trnID, reason string) error
}

type transactionRepository struct {
	db *sql.DB
}

func NewTransactionRepository(db *sql.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

const transactionColumns = `
	id, trn_id, trn_desc, currency, acc_book, bis_date,
	status, fail_reason, ex_rate, create_date, update_date
`

// CreateWithLines writes the header and every line in one database
// transaction. Nothing survives a failed insert; a duplicate trn_id maps to
// apperrors.ErrDuplicate.
func (r *transactionRepository) CreateWithLines(t *models.Transaction, debits []*models.DebitLine, credits []*models.CreditLine) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := insertTransaction(tx, t); err != nil {
		return err
	}
	for _, l := range debits {
		if err := insertDebitLine(tx, l); err != nil {
			return err
		}
	}
	for _, l := range credits {
		if err := insertCreditLine(tx, l); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func insertTransaction(tx *sql.Tx, t *models.Transaction) error {
	query := `
		INSERT INTO msp (trn_id, trn_desc, currency, acc_book, status, bis_date, create_date, ex_rate)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := tx.Exec(query,
		t.TrnID,
		t.TrnDesc,
		t.Currency,
		t.AccBook,
		t.Status,
		t.BisDate,
		t.CreateDate,
		t.ExRate,
	)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
			return apperrors.ErrDuplicate
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = id
	return nil
}

func insertDebitLine(tx *sql.Tx, l *models.DebitLine) error {
	query := `INSERT INTO tbl_dr (trn_id, dr_ac, dr_amt, dr_amt_lak, dr_desc) VALUES (?, ?, ?, ?, ?)`
	_, err := tx.Exec(query, l.TrnID, l.Account, l.Amount, l.AmountLAK, l.Desc)
	return err
}

func insertCreditLine(tx *sql.Tx, l *models.CreditLine) error {
	query := `INSERT INTO tbl_cr (trn_id, cr_ac, cr_amt, cr_amt_lak, cr_desc) VALUES (?, ?, ?, ?, ?)`
	_, err := tx.Exec(query, l.TrnID, l.Account, l.Amount, l.AmountLAK, l.Desc)
	return err
}

func (r *transactionRepository) GetByTrnID(trnID string) (*models.Transaction, error) {
	t := &models.Transaction{}
	query := `SELECT ` + transactionColumns + ` FROM msp WHERE trn_id = ?`
	err := r.db.QueryRow(query, trnID).Scan(
		&t.ID,
		&t.TrnID,
		&t.TrnDesc,
		&t.Currency,
		&t.AccBook,
		&t.BisDate,
		&t.Status,
		&t.FailReason,
		&t.ExRate,
		&t.CreateDate,
		&t.UpdateDate,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *transactionRepository) ListByStatus(status string) ([]*models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM msp WHERE status = ? ORDER BY trn_id`
	return r.list(query, status)
}

// ListByDateRange filters on a date column with inclusive bounds. dateField
// must be validated by the caller against the known date columns; it is
// interpolated into the query text.
func (r *transactionRepository) ListByDateRange(dateField, startDate, endDate string) ([]*models.Transaction, error) {
	query := fmt.Sprintf(
		`SELECT `+transactionColumns+` FROM msp WHERE DATE(%s) BETWEEN ? AND ? ORDER BY %s`,
		dateField, dateField,
	)
	return r.list(query, startDate, endDate)
}

func (r *transactionRepository) ListWaiting() ([]*models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM msp WHERE status = ? ORDER BY trn_id`
	return r.list(query, models.StatusWait)
}

func (r *transactionRepository) list(query string, args ...any) ([]*models.Transaction, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.Transaction
	for rows.Next() {
		t := &models.Transaction{}
		err := rows.Scan(
			&t.ID,
			&t.TrnID,
			&t.TrnDesc,
			&t.Currency,
			&t.AccBook,
			&t.BisDate,
			&t.Status,
			&t.FailReason,
			&t.ExRate,
			&t.CreateDate,
			&t.UpdateDate,
		)
		if err != nil {
			return nil, err
		}
		records = append(records, t)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func (r *transactionRepository) GetDebitLines(trnID string) ([]*models.DebitLine, error) {
	query := `SELECT id, trn_id, dr_ac, dr_amt, dr_amt_lak, dr_desc FROM tbl_dr WHERE trn_id = ? ORDER BY id`
	rows, err := r.db.Query(query, trnID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []*models.DebitLine
	for rows.Next() {
		l := &models.DebitLine{}
		if err := rows.Scan(&l.ID, &l.TrnID, &l.Account, &l.Amount, &l.AmountLAK, &l.Desc); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

func (r *transactionRepository) GetCreditLines(trnID string) ([]*models.CreditLine, error) {
	query := `SELECT id, trn_id, cr_ac, cr_amt, cr_amt_lak, cr_desc FROM tbl_cr WHERE trn_id = ? ORDER BY id`
	rows, err := r.db.Query(query, trnID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []*models.CreditLine
	for rows.Next() {
		l := &models.CreditLine{}
		if err := rows.Scan(&l.ID, &l.TrnID, &l.Account, &l.Amount, &l.AmountLAK, &l.Desc); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

func (r *transactionRepository) UpdateStatus(trnID, status string, failReason *string) error {
	var err error
	if failReason != nil {
		_, err = r.db.Exec(
			`UPDATE msp SET status = ?, fail_reason = ?, update_date = NOW() WHERE trn_id = ?`,
			status, *failReason, trnID,
		)
	} else {
		_, err = r.db.Exec(
			`UPDATE msp SET status = ?, update_date = NOW() WHERE trn_id = ?`,
			status, trnID,
		)
	}
	return err
}

// SetFailReason records a posting failure without changing the status, so
// the record stays eligible for the next sync run.
func (r *transactionRepository) SetFailReason(trnID, reason string) error {
	_, err := r.db.Exec(
		`UPDATE msp SET fail_reason = ?, update_date = NOW() WHERE trn_id = ?`,
		reason, trnID,
	)
	return err
}
