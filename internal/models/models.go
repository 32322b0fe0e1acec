package models

import (
	"database/sql"

	"github.com/shopspring/decimal"
)

// Transaction represents a staged accounting transaction awaiting posting
// to the general ledger.
type Transaction struct {
	ID         int64           `db:"id" json:"-"`
	TrnID      string          `db:"trn_id" json:"trn_id"`
	TrnDesc    string          `db:"trn_desc" json:"trn_desc"`
	Currency   string          `db:"currency" json:"currency"`
	AccBook    string          `db:"acc_book" json:"acc_book"`
	BisDate    string          `db:"bis_date" json:"bis_date"`
	Status     string          `db:"status" json:"status"`
	FailReason sql.NullString  `db:"fail_reason" json:"fail_reason"`
	ExRate     decimal.Decimal `db:"ex_rate" json:"ex_rate"`
	CreateDate string          `db:"create_date" json:"create_date"`
	UpdateDate sql.NullString  `db:"update_date" json:"update_date"`
}

// DebitLine is a single debit leg of a staged transaction.
type DebitLine struct {
	ID        int64           `db:"id" json:"-"`
	TrnID     string          `db:"trn_id" json:"trn_id"`
	Account   string          `db:"dr_ac" json:"dr_ac"`
	Amount    decimal.Decimal `db:"dr_amt" json:"dr_amt"`
	AmountLAK decimal.Decimal `db:"dr_amt_lak" json:"dr_amt_lak"`
	Desc      sql.NullString  `db:"dr_desc" json:"dr_desc"`
}

// CreditLine is a single credit leg of a staged transaction.
type CreditLine struct {
	ID        int64           `db:"id" json:"-"`
	TrnID     string          `db:"trn_id" json:"trn_id"`
	Account   string          `db:"cr_ac" json:"cr_ac"`
	Amount    decimal.Decimal `db:"cr_amt" json:"cr_amt"`
	AmountLAK decimal.Decimal `db:"cr_amt_lak" json:"cr_amt_lak"`
	Desc      sql.NullString  `db:"cr_desc" json:"cr_desc"`
}

// EntrySide distinguishes debit rows from credit rows in the ledger.
type EntrySide string

const (
	SideDebit  EntrySide = "debit"
	SideCredit EntrySide = "credit"
)

// LedgerEntry is one gen_jn row in the external general ledger. Debit rows
// carry the debit amount columns, credit rows the credit columns; the
// remaining side is zero. Rows are written once and never updated.
type LedgerEntry struct {
	Side       EntrySide
	DateWork   string
	AcName     string
	Book       string
	Certify    string
	ReferNo    string
	Descrip    string
	Amount     decimal.Decimal // informational: total debit of the transaction
	Currency   string
	Rate       decimal.Decimal
	CodeDr     string
	CodeCr     string
	AcCode     string
	AmtDr      decimal.Decimal // local-currency amount, debit side
	AmtCr      decimal.Decimal
	AmtFcyDr   decimal.Decimal // original-currency amount, debit side
	AmtFcyCr   decimal.Decimal
	AmountDr   decimal.Decimal // original amount / rate, debit side
	AmountCr   decimal.Decimal
	LastUser   string
	Company    string
	OfficeID   string
}

// Posting groups the ledger rows of one staged transaction. The repository
// mints the certify ID and stamps it on every entry before insert.
type Posting struct {
	Book          string
	Year          int
	Month         int
	CompanyPrefix string
	Entries       []*LedgerEntry
}

// Transaction status constants
const (
	StatusWait     = "wait"
	StatusPending  = "pending"
	StatusSuccess  = "success"
	StatusFail     = "fail"
	StatusCancel   = "cancel"
	StatusCanceled = "canceled"
)

// QueryStatuses is the allow-list accepted by the status lookup endpoints.
var QueryStatuses = []string{StatusWait, StatusCancel, StatusPending, StatusSuccess, StatusFail}

// KnownStatuses covers every state the staging store can hold.
var KnownStatuses = []string{StatusWait, StatusPending, StatusSuccess, StatusFail, StatusCancel, StatusCanceled}

// ValidStatus reports whether status appears in the given allow-list.
func ValidStatus(status string, allowed []string) bool {
	for _, s := range allowed {
		if s == status {
			return true
		}
	}
	return false
}

// LedgerSourceTag marks gen_jn rows inserted by this system. Its presence
// alongside a matching refer_no is the idempotency marker for the sync job.
const LedgerSourceTag = "API"
