package services_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"msp-ledger-service/internal/apperrors"
	"msp-ledger-service/internal/config"
	"msp-ledger-service/internal/models"
	"msp-ledger-service/internal/repositories/memory"
	"msp-ledger-service/internal/services"
)

func newTestService(t *testing.T) (*services.TransactionService, *memory.StagingRepository) {
	t.Helper()
	repo := memory.NewStagingRepository()
	svc := services.NewTransactionService(repo, config.ValidationConfig{
		CurrencyRules: true,
		LocalCurrency: "LAK",
	})
	return svc, repo
}

func strPtr(s string) *string { return &s }

func lakUpload(trnID string) services.UploadInput {
	return services.UploadInput{
		TrnID:      trnID,
		TrnDesc:    "Office supplies",
		Currency:   "LAK",
		AccBook:    "123",
		BisDate:    "2025-01-01",
		Status:     models.StatusWait,
		CreateDate: "2025-01-01 10:00:00",
		Debit:      []services.LineInput{{Account: "111", Amount: "1000", Desc: "test"}},
		Credit:     []services.LineInput{{Account: "222", Amount: "1000", Desc: "test"}},
	}
}

func usdUpload(trnID string) services.UploadInput {
	return services.UploadInput{
		TrnID:      trnID,
		TrnDesc:    "Consulting fee",
		Currency:   "USD",
		AccBook:    "123",
		BisDate:    "2025-01-01",
		Status:     models.StatusWait,
		CreateDate: "2025-01-01 10:00:00",
		ExRate:     strPtr("21000"),
		Debit:      []services.LineInput{{Account: "111", Amount: "100", AmountLocal: strPtr("2100000")}},
		Credit:     []services.LineInput{{Account: "222", Amount: "100", AmountLocal: strPtr("2100000")}},
	}
}

func TestUpload_LocalCurrencyDefaults(t *testing.T) {
	svc, repo := newTestService(t)

	trnID, err := svc.Upload(lakUpload("T1"))
	require.NoError(t, err)
	assert.Equal(t, "T1", trnID)

	rec, err := repo.GetByTrnID("T1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusWait, rec.Status)
	assert.True(t, rec.ExRate.Equal(decimal.NewFromInt(1)), "ex_rate should default to 1, got %s", rec.ExRate)

	debits, _ := repo.GetDebitLines("T1")
	require.Len(t, debits, 1)
	assert.True(t, debits[0].AmountLAK.Equal(debits[0].Amount), "dr_amt_lak should default to dr_amt")

	credits, _ := repo.GetCreditLines("T1")
	require.Len(t, credits, 1)
	assert.True(t, credits[0].AmountLAK.Equal(credits[0].Amount), "cr_amt_lak should default to cr_amt")
}

func TestUpload_TrimsIdentifierAndAccounts(t *testing.T) {
	svc, repo := newTestService(t)

	in := lakUpload("  T1  ")
	in.Debit[0].Account = " 111 "

	trnID, err := svc.Upload(in)
	require.NoError(t, err)
	assert.Equal(t, "T1", trnID)

	debits, _ := repo.GetDebitLines("T1")
	require.Len(t, debits, 1)
	assert.Equal(t, "111", debits[0].Account)
}

func TestUpload_ThousandsSeparatorsStripped(t *testing.T) {
	svc, repo := newTestService(t)

	in := lakUpload("T1")
	in.Debit = []services.LineInput{{Account: "111", Amount: "1,000.50"}}
	in.Credit = []services.LineInput{{Account: "222", Amount: "1000.50"}}

	_, err := svc.Upload(in)
	require.NoError(t, err)

	debits, _ := repo.GetDebitLines("T1")
	assert.True(t, debits[0].Amount.Equal(decimal.RequireFromString("1000.50")))
}

func TestUpload_UnbalancedTotalsRejected(t *testing.T) {
	svc, _ := newTestService(t)

	in := lakUpload("T1")
	in.Credit = []services.LineInput{{Account: "222", Amount: "999.99"}}

	_, err := svc.Upload(in)
	var ve *apperrors.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "1000", ve.Data["total_debit"])
	assert.Equal(t, "999.99", ve.Data["total_credit"])
}

func TestUpload_InvalidAmountRejected(t *testing.T) {
	svc, _ := newTestService(t)

	in := lakUpload("T1")
	in.Debit = []services.LineInput{{Account: "111", Amount: "abc"}}

	_, err := svc.Upload(in)
	assert.True(t, apperrors.IsValidation(err))
}

func TestUpload_MissingLineFieldsRejected(t *testing.T) {
	svc, _ := newTestService(t)

	in := lakUpload("T1")
	in.Debit = []services.LineInput{{Account: "", Amount: "1000"}}

	_, err := svc.Upload(in)
	assert.True(t, apperrors.IsValidation(err))
}

func TestUpload_ForeignCurrencyRules(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*services.UploadInput)
		wantErr bool
	}{
		{
			name:   "valid foreign upload",
			mutate: func(in *services.UploadInput) {},
		},
		{
			name:    "missing ex_rate",
			mutate:  func(in *services.UploadInput) { in.ExRate = nil },
			wantErr: true,
		},
		{
			name:    "ex_rate equal to 1",
			mutate:  func(in *services.UploadInput) { in.ExRate = strPtr("1.00") },
			wantErr: true,
		},
		{
			name: "missing local amount",
			mutate: func(in *services.UploadInput) {
				in.Debit = []services.LineInput{{Account: "111", Amount: "100"}}
			},
			wantErr: true,
		},
		{
			name: "local amount equals original",
			mutate: func(in *services.UploadInput) {
				in.Debit = []services.LineInput{{Account: "111", Amount: "100", AmountLocal: strPtr("100")}}
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo := newTestService(t)

			in := usdUpload("T1")
			tt.mutate(&in)

			_, err := svc.Upload(in)
			if tt.wantErr {
				assert.True(t, apperrors.IsValidation(err), "expected validation error, got %v", err)
				return
			}
			require.NoError(t, err)
			rec, _ := repo.GetByTrnID("T1")
			assert.True(t, rec.ExRate.Equal(decimal.RequireFromString("21000")))
		})
	}
}

func TestUpload_CurrencyRulesDisabled(t *testing.T) {
	repo := memory.NewStagingRepository()
	svc := services.NewTransactionService(repo, config.ValidationConfig{
		CurrencyRules: false,
		LocalCurrency: "LAK",
	})

	// Foreign currency without rate or local amounts: accepted with defaults
	// when the legacy behavior is configured.
	in := usdUpload("T1")
	in.ExRate = nil
	in.Debit = []services.LineInput{{Account: "111", Amount: "100"}}
	in.Credit = []services.LineInput{{Account: "222", Amount: "100"}}

	_, err := svc.Upload(in)
	require.NoError(t, err)

	rec, _ := repo.GetByTrnID("T1")
	assert.True(t, rec.ExRate.Equal(decimal.NewFromInt(1)))
}

func TestUpload_DuplicateLeavesExistingUntouched(t *testing.T) {
	svc, repo := newTestService(t)

	_, err := svc.Upload(lakUpload("T1"))
	require.NoError(t, err)

	second := lakUpload("T1")
	second.TrnDesc = "Different description"
	_, err = svc.Upload(second)
	assert.ErrorIs(t, err, apperrors.ErrDuplicate)

	rec, _ := repo.GetByTrnID("T1")
	assert.Equal(t, "Office supplies", rec.TrnDesc)
}

func TestListByStatus_AllowList(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.ListByStatus("")
	assert.True(t, apperrors.IsValidation(err))

	_, err = svc.ListByStatus("canceled")
	assert.True(t, apperrors.IsValidation(err), "'canceled' is not a queryable status")

	_, err = svc.ListByStatus("bogus")
	assert.True(t, apperrors.IsValidation(err))

	for _, status := range models.QueryStatuses {
		_, err := svc.ListByStatus(status)
		assert.NoError(t, err, "status %q should be queryable", status)
	}
}

func TestSearchByDate(t *testing.T) {
	svc, _ := newTestService(t)

	for i, day := range []string{"2025-01-03", "2025-01-01", "2025-01-05"} {
		in := lakUpload(string(rune('A' + i)))
		in.BisDate = day
		_, err := svc.Upload(in)
		require.NoError(t, err)
	}

	records, err := svc.SearchByDate("", "2025-01-01", "2025-01-03")
	require.NoError(t, err)
	require.Len(t, records, 2)
	// Inclusive bounds, ascending by date.
	assert.Equal(t, "2025-01-01", records[0].BisDate)
	assert.Equal(t, "2025-01-03", records[1].BisDate)

	_, err = svc.SearchByDate("", "", "2025-01-03")
	assert.True(t, apperrors.IsValidation(err))

	_, err = svc.SearchByDate("status", "2025-01-01", "2025-01-03")
	assert.True(t, apperrors.IsValidation(err), "only date columns are searchable")

	byCreate, err := svc.SearchByDate("create_date", "2025-01-01", "2025-01-01")
	require.NoError(t, err)
	assert.Len(t, byCreate, 3)
}

func TestUpdateStatus(t *testing.T) {
	svc, repo := newTestService(t)
	_, err := svc.Upload(lakUpload("T1"))
	require.NoError(t, err)

	err = svc.UpdateStatus("missing", models.StatusSuccess, "")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	err = svc.UpdateStatus("T1", "bogus", "")
	assert.True(t, apperrors.IsValidation(err))

	err = svc.UpdateStatus("T1", models.StatusFail, "ledger rejected entry")
	require.NoError(t, err)

	rec, _ := repo.GetByTrnID("T1")
	assert.Equal(t, models.StatusFail, rec.Status)
	assert.Equal(t, "ledger rejected entry", rec.FailReason.String)

	// Any-state transition: fail back to wait is allowed here.
	require.NoError(t, svc.UpdateStatus("T1", models.StatusWait, ""))
}

func TestCancel(t *testing.T) {
	svc, repo := newTestService(t)
	_, err := svc.Upload(lakUpload("T1"))
	require.NoError(t, err)

	// wait -> cancel
	require.NoError(t, svc.Cancel("T1"))
	rec, _ := repo.GetByTrnID("T1")
	assert.Equal(t, models.StatusCancel, rec.Status)

	// already cancel
	err = svc.Cancel("T1")
	assert.True(t, apperrors.IsValidation(err))

	// success -> cancel
	_, err = svc.Upload(lakUpload("T2"))
	require.NoError(t, err)
	require.NoError(t, svc.UpdateStatus("T2", models.StatusSuccess, ""))
	require.NoError(t, svc.Cancel("T2"))

	// pending is not cancelable
	_, err = svc.Upload(lakUpload("T3"))
	require.NoError(t, err)
	require.NoError(t, svc.UpdateStatus("T3", models.StatusPending, ""))
	err = svc.Cancel("T3")
	assert.True(t, apperrors.IsValidation(err))

	assert.ErrorIs(t, svc.Cancel("missing"), apperrors.ErrNotFound)
}

func TestConfirmCancel(t *testing.T) {
	svc, repo := newTestService(t)
	_, err := svc.Upload(lakUpload("T1"))
	require.NoError(t, err)

	// Not in cancel yet.
	err = svc.ConfirmCancel("T1")
	assert.True(t, apperrors.IsValidation(err))

	require.NoError(t, svc.Cancel("T1"))
	require.NoError(t, svc.ConfirmCancel("T1"))

	rec, _ := repo.GetByTrnID("T1")
	assert.Equal(t, models.StatusCanceled, rec.Status)

	// canceled is terminal for this endpoint.
	err = svc.ConfirmCancel("T1")
	assert.True(t, apperrors.IsValidation(err))

	assert.ErrorIs(t, svc.ConfirmCancel("missing"), apperrors.ErrNotFound)
}

func TestGetByTrnID(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.GetByTrnID("")
	assert.True(t, apperrors.IsValidation(err))

	_, err = svc.GetByTrnID("missing")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}
