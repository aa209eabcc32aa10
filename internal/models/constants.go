package models

// Polarity is the direction of a category: money coming in or going out.
type Polarity string

const (
	PolarityIncome  Polarity = "income"
	PolarityExpense Polarity = "expense"
)

// Valid reports whether p is one of the known polarities.
func (p Polarity) Valid() bool {
	return p == PolarityIncome || p == PolarityExpense
}

// ParsePolarity maps loose user or model input onto a Polarity.
func ParsePolarity(s string) (Polarity, bool) {
	switch normalizeWord(s) {
	case "income", "in", "credit":
		return PolarityIncome, true
	case "expense", "expenses", "out", "debit":
		return PolarityExpense, true
	}
	return "", false
}

// TxType is the direction of a single transaction.
type TxType string

const (
	TxCredit TxType = "credit"
	TxDebit  TxType = "debit"
)

// Valid reports whether t is one of the known transaction types.
func (t TxType) Valid() bool {
	return t == TxCredit || t == TxDebit
}

// Polarity returns the category polarity that matches the transaction direction.
func (t TxType) Polarity() Polarity {
	if t == TxCredit {
		return PolarityIncome
	}
	return PolarityExpense
}

// ParseTxType maps the vocabulary extraction backends tend to emit onto a TxType.
func ParseTxType(s string) (TxType, bool) {
	switch normalizeWord(s) {
	case "credit", "cr", "income", "in", "received", "crdt":
		return TxCredit, true
	case "debit", "dr", "expense", "out", "spent", "dbit":
		return TxDebit, true
	}
	return "", false
}

// Default names and limits shared across packages.
const (
	DefaultFallbackCategory = "Other"
	DefaultCurrency         = "INR"
	DefaultCategoryIcon     = "📦"
	MaxCategoryNameLength   = 50
)
