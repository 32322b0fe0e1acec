package handlers

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"msp-ledger-service/internal/models"
)

// FlexString accepts both JSON strings and bare numbers. Legacy clients
// send amounts and rates in either form.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	*f = FlexString(b)
	return nil
}

type UploadRequest struct {
	KeyCode    string      `json:"keyCode"`
	SignDate   string      `json:"signDate"`
	Sign       string      `json:"sign"`
	TrnID      string      `json:"trn_id" validate:"required"`
	TrnDesc    string      `json:"trn_desc" validate:"required"`
	Currency   string      `json:"currency" validate:"required"`
	AccBook    string      `json:"acc_book" validate:"required"`
	BisDate    string      `json:"bis_date" validate:"required"`
	Status     string      `json:"status" validate:"required"`
	CreateDate string      `json:"create_date" validate:"required"`
	ExRate     *FlexString `json:"ex_rate"`
	Debit      []DebitEntryRequest  `json:"debit" validate:"required,min=1,dive"`
	Credit     []CreditEntryRequest `json:"credit" validate:"required,min=1,dive"`
}

type DebitEntryRequest struct {
	Account   FlexString  `json:"dr_ac" validate:"required"`
	Amount    FlexString  `json:"dr_amt" validate:"required"`
	AmountLAK *FlexString `json:"dr_amt_lak"`
	Desc      string      `json:"dr_desc"`
}

type CreditEntryRequest struct {
	Account   FlexString  `json:"cr_ac" validate:"required"`
	Amount    FlexString  `json:"cr_amt" validate:"required"`
	AmountLAK *FlexString `json:"cr_amt_lak"`
	Desc      string      `json:"cr_desc"`
}

type TrnIDRequest struct {
	TrnID string `json:"trn_id"`
}

type UpdateStatusRequest struct {
	TrnID      string `json:"trn_id"`
	Status     string `json:"status"`
	FailReason string `json:"fail_reason"`
}

type SearchByDateRequest struct {
	Data *SearchByDateCriteria `json:"Data"`
}

type SearchByDateCriteria struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	DateField string `json:"dateField"`
}

// StatusResponse is the status projection returned by the tracking
// endpoints. BisDate is only populated by the date-range search.
type StatusResponse struct {
	TrnID      string  `json:"trn_id"`
	Status     string  `json:"status"`
	FailReason *string `json:"fail_reason"`
	BisDate    string  `json:"bis_date,omitempty"`
	CreateDate string  `json:"create_date"`
	UpdateDate *string `json:"update_date"`
}

// TransactionResponse is the full header projection.
type TransactionResponse struct {
	TrnID      string          `json:"trn_id"`
	TrnDesc    string          `json:"trn_desc"`
	Currency   string          `json:"currency"`
	AccBook    string          `json:"acc_book"`
	BisDate    string          `json:"bis_date"`
	Status     string          `json:"status"`
	FailReason *string         `json:"fail_reason"`
	ExRate     decimal.Decimal `json:"ex_rate"`
	CreateDate string          `json:"create_date"`
	UpdateDate *string         `json:"update_date"`
}

type LineResponse struct {
	TrnID     string          `json:"trn_id"`
	Account   string          `json:"account"`
	Amount    decimal.Decimal `json:"amount"`
	AmountLAK decimal.Decimal `json:"amount_lak"`
	Desc      *string         `json:"desc"`
}

func toStatusResponse(t *models.Transaction, withBisDate bool) StatusResponse {
	resp := StatusResponse{
		TrnID:      t.TrnID,
		Status:     t.Status,
		FailReason: nullable(t.FailReason.String, t.FailReason.Valid),
		CreateDate: t.CreateDate,
		UpdateDate: nullable(t.UpdateDate.String, t.UpdateDate.Valid),
	}
	if withBisDate {
		resp.BisDate = t.BisDate
	}
	return resp
}

func toStatusResponses(records []*models.Transaction, withBisDate bool) []StatusResponse {
	out := make([]StatusResponse, 0, len(records))
	for _, t := range records {
		out = append(out, toStatusResponse(t, withBisDate))
	}
	return out
}

func toTransactionResponse(t *models.Transaction) TransactionResponse {
	return TransactionResponse{
		TrnID:      t.TrnID,
		TrnDesc:    t.TrnDesc,
		Currency:   t.Currency,
		AccBook:    t.AccBook,
		BisDate:    t.BisDate,
		Status:     t.Status,
		FailReason: nullable(t.FailReason.String, t.FailReason.Valid),
		ExRate:     t.ExRate,
		CreateDate: t.CreateDate,
		UpdateDate: nullable(t.UpdateDate.String, t.UpdateDate.Valid),
	}
}

func toDebitLineResponses(lines []*models.DebitLine) []LineResponse {
	out := make([]LineResponse, 0, len(lines))
	for _, l := range lines {
		out = append(out, LineResponse{
			TrnID:     l.TrnID,
			Account:   l.Account,
			Amount:    l.Amount,
			AmountLAK: l.AmountLAK,
			Desc:      nullable(l.Desc.String, l.Desc.Valid),
		})
	}
	return out
}

func toCreditLineResponses(lines []*models.CreditLine) []LineResponse {
	out := make([]LineResponse, 0, len(lines))
	for _, l := range lines {
		out = append(out, LineResponse{
			TrnID:     l.TrnID,
			Account:   l.Account,
			Amount:    l.Amount,
			AmountLAK: l.AmountLAK,
			Desc:      nullable(l.Desc.String, l.Desc.Valid),
		})
	}
	return out
}

func nullable(v string, valid bool) *string {
	if !valid {
		return nil
	}
	return &v
}
