package logging

// Standardized field names for structured logging.
const (
	FieldTenantID       = "tenant_id"
	FieldActorID        = "actor_id"
	FieldBackend        = "backend"
	FieldOperation      = "operation"
	FieldInputKind      = "input_kind"
	FieldCategory       = "category"
	FieldCategoryID     = "category_id"
	FieldLabel          = "label"
	FieldMatchMethod    = "match_method"
	FieldOutcome        = "outcome"
	FieldCandidateIndex = "candidate_index"
	FieldReason         = "reason"
	FieldDuration       = "duration_ms"
	FieldCount          = "count"
)
