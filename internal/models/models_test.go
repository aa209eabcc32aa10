package models

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestParsePolarity(t *testing.T) {
	tests := []struct {
		in     string
		want   Polarity
		wantOK bool
	}{
		{"income", PolarityIncome, true},
		{" Credit ", PolarityIncome, true},
		{"EXPENSES", PolarityExpense, true},
		{"debit", PolarityExpense, true},
		{"sideways", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParsePolarity(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseTxType(t *testing.T) {
	tests := []struct {
		in     string
		want   TxType
		wantOK bool
	}{
		{"credit", TxCredit, true},
		{"received", TxCredit, true},
		{"CRDT", TxCredit, true},
		{"spent", TxDebit, true},
		{"Expense", TxDebit, true},
		{"refund", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseTxType(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTxType_Polarity(t *testing.T) {
	assert.Equal(t, PolarityIncome, TxCredit.Polarity())
	assert.Equal(t, PolarityExpense, TxDebit.Polarity())
	assert.False(t, TxType("transfer").Valid())
	assert.False(t, Polarity("neutral").Valid())
}

func TestNewCategoryFromTemplate(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.FixedZone("IST", 5*3600+1800))
	tmpl := CategoryTemplate{ID: uuid.New(), Name: "Transport", Polarity: PolarityExpense, Icon: "🚗"}

	c := NewCategoryFromTemplate("t1", tmpl, now)

	assert.NotEqual(t, uuid.Nil, c.ID)
	assert.Equal(t, "t1", c.TenantID)
	if assert.NotNil(t, c.TemplateID) {
		assert.Equal(t, tmpl.ID, *c.TemplateID)
	}
	assert.Equal(t, time.UTC, c.CreatedAt.Location())
	assert.True(t, c.IsActive())
	assert.False(t, c.IsCustom())

	c.Tombstone = NewTombstone(now, "a1")
	assert.False(t, c.IsActive())
	assert.Equal(t, "a1", c.Tombstone.DeletedBy)
}

func TestCategoryNames(t *testing.T) {
	cats := []CategoryInstance{{Name: "Food & Dining"}, {Name: "Other"}}
	assert.Equal(t, []string{"Food & Dining", "Other"}, CategoryNames(cats))
	assert.Empty(t, CategoryNames(nil))
}

func TestMatchMethod_IsFuzzy(t *testing.T) {
	assert.True(t, MatchSynonym.IsFuzzy())
	assert.True(t, MatchSubstring.IsFuzzy())
	assert.False(t, MatchExact.IsFuzzy())
	assert.False(t, MatchFallback.IsFuzzy())
	assert.False(t, MatchCreated.IsFuzzy())
}

func TestOutcome_UserMessage(t *testing.T) {
	record := &TransactionRecord{Type: TxDebit, Money: NewMoney(decimal.NewFromInt(250), "INR")}
	other := &CategoryInstance{Name: "Other"}

	tests := []struct {
		name    string
		outcome Outcome
		want    string
	}{
		{
			name:    "saved with notice",
			outcome: Outcome{Kind: OutcomeSaved, Record: record, Category: other, Notice: "Category 'Pilates' not found, saved under 'Other'"},
			want:    "Saved debit 250.00 INR under Other. Category 'Pilates' not found, saved under 'Other'",
		},
		{
			name:    "saved without category",
			outcome: Outcome{Kind: OutcomeSaved, Record: record},
			want:    "Saved debit 250.00 INR",
		},
		{
			name:    "validation",
			outcome: Outcome{Kind: OutcomeValidationFailed, Reason: "amount must be greater than zero"},
			want:    "That transaction looks invalid: amount must be greater than zero",
		},
		{
			name:    "provider details stay internal",
			outcome: Outcome{Kind: OutcomeProviderUnavailable, Err: errors.New("quota exceeded for key AIza...")},
			want:    "Something went wrong on our side. Please try again later.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.outcome.UserMessage())
		})
	}

	assert.Equal(t, Outcome{Kind: OutcomeTranscriptionFailed}.UserMessage(), Outcome{Kind: OutcomeNoTransactionFound}.UserMessage())
}

func TestOutcomeKind_String(t *testing.T) {
	assert.Equal(t, "saved", OutcomeSaved.String())
	assert.Equal(t, "persistence_failed", OutcomePersistenceFailed.String())
	assert.Equal(t, "outcome(42)", OutcomeKind(42).String())
}

func TestPayload_RawText(t *testing.T) {
	assert.Equal(t, "lunch", Payload{Text: "lunch", Caption: "ignored"}.RawText())
	assert.Equal(t, "dinner", Payload{Caption: "dinner"}.RawText())
	assert.Empty(t, Payload{}.RawText())
}
