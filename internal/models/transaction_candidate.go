package models

import (
	"time"

	"github.com/google/uuid"
)

// TransactionCandidate is a transaction inferred from raw input that has not been
// persisted yet. The normalizer always fills every field.
type TransactionCandidate struct {
	Type          TxType
	Money         Money
	Date          time.Time
	CategoryLabel string
	Vendor        string
	Description   string
	RawInput      string
}

// TransactionRecord is the persisted form of a transaction. CategoryID is nil only
// when the tenant has no fallback category to resolve into.
type TransactionRecord struct {
	ID          uuid.UUID
	TenantID    string
	ActorID     string
	Money       Money
	Type        TxType
	CategoryID  *uuid.UUID
	Date        time.Time
	Description string
	Vendor      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CreatedBy   string
	UpdatedBy   string
}
