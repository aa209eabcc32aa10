package models

import "fmt"

// MatchMethod records how a free-text category label was turned into a category.
type MatchMethod string

const (
	MatchExact     MatchMethod = "exact"
	MatchSynonym   MatchMethod = "synonym"
	MatchSubstring MatchMethod = "substring"
	MatchFallback  MatchMethod = "fallback"
	MatchCreated   MatchMethod = "created"
	// MatchNone means no category could be resolved, not even the fallback.
	MatchNone MatchMethod = "none"
)

// IsFuzzy reports whether the label was mapped to a category with a different name.
func (m MatchMethod) IsFuzzy() bool {
	return m == MatchSynonym || m == MatchSubstring
}

// OutcomeKind enumerates what happened to one message or one candidate.
type OutcomeKind int

const (
	OutcomeSaved OutcomeKind = iota
	OutcomeNoTransactionFound
	OutcomeValidationFailed
	OutcomeProviderUnavailable
	OutcomeTranscriptionFailed
	OutcomePersistenceFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSaved:
		return "saved"
	case OutcomeNoTransactionFound:
		return "no_transaction_found"
	case OutcomeValidationFailed:
		return "validation_failed"
	case OutcomeProviderUnavailable:
		return "provider_unavailable"
	case OutcomeTranscriptionFailed:
		return "transcription_failed"
	case OutcomePersistenceFailed:
		return "persistence_failed"
	}
	return fmt.Sprintf("outcome(%d)", int(k))
}

// Outcome is what the transport layer relays back to the sender. Only the fields
// relevant to Kind are set.
type Outcome struct {
	Kind OutcomeKind

	// Saved
	Record              *TransactionRecord
	Category            *CategoryInstance
	Method              MatchMethod
	WasFallbackCategory bool
	ProvisioningDefect  bool
	Notice              string

	// Failures
	Reason  string
	Backend string
	Err     error
}

// IsSuccess reports whether a record was persisted.
func (o Outcome) IsSuccess() bool {
	return o.Kind == OutcomeSaved
}

// UserMessage renders the text shown to the end user for this outcome.
func (o Outcome) UserMessage() string {
	switch o.Kind {
	case OutcomeSaved:
		msg := "Saved"
		if o.Record != nil {
			msg = fmt.Sprintf("Saved %s %s", o.Record.Type, o.Record.Money)
		}
		if o.Category != nil {
			msg += " under " + o.Category.Name
		}
		if o.Notice != "" {
			msg += ". " + o.Notice
		}
		return msg
	case OutcomeNoTransactionFound, OutcomeTranscriptionFailed:
		return "I couldn't find a transaction in that message. Try rephrasing, e.g. \"spent 250 on lunch\"."
	case OutcomeValidationFailed:
		return "That transaction looks invalid: " + o.Reason
	default:
		return "Something went wrong on our side. Please try again later."
	}
}
