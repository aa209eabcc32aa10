// Package pipeline is the entry point the transport layer calls: it turns one
// inbound message into zero or more saved transactions.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"fjacquet/spendlog/internal/backend"
	"fjacquet/spendlog/internal/coordinator"
	"fjacquet/spendlog/internal/logging"
	"fjacquet/spendlog/internal/models"
	"fjacquet/spendlog/internal/normalizer"
	"fjacquet/spendlog/internal/pipelineerror"
)

// Catalog is the catalog surface used for prompts and administration.
type Catalog interface {
	ListActive(ctx context.Context, tenantID string) ([]models.CategoryInstance, error)
	CreateCustom(ctx context.Context, tenantID, name string, polarity models.Polarity, icon string) (models.CategoryInstance, error)
	SoftDelete(ctx context.Context, categoryID uuid.UUID, tenantID, actorID string) error
	InitializeForNewTenant(ctx context.Context, tenantID string) (int, error)
}

// Saver persists one candidate.
type Saver interface {
	Save(ctx context.Context, c models.TransactionCandidate, tenantID, actorID string) (*coordinator.Result, error)
}

// Options configures a Processor.
type Options struct {
	// Workers bounds how many candidates of one message are saved at once.
	Workers int
	Icons   coordinator.IconPicker
	Logger  logging.Logger
}

// Processor wires the registry, normalizer and coordinator together. It is
// safe for concurrent use; each message is independent.
type Processor struct {
	registry   *backend.Registry
	catalog    Catalog
	normalizer *normalizer.Normalizer
	saver      Saver
	workers    int
	icons      coordinator.IconPicker
	logger     logging.Logger
}

// NewProcessor creates a Processor.
func NewProcessor(registry *backend.Registry, catalog Catalog, n *normalizer.Normalizer, saver Saver, opts Options) *Processor {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNopLogger()
	}
	return &Processor{
		registry:   registry,
		catalog:    catalog,
		normalizer: n,
		saver:      saver,
		workers:    opts.Workers,
		icons:      opts.Icons,
		logger:     opts.Logger,
	}
}

// ProcessInput extracts transactions from one message and saves each of
// them. It never returns an error: every failure becomes an Outcome.
func (p *Processor) ProcessInput(ctx context.Context, tenantID, actorID string, kind models.InputKind, payload models.Payload) []models.Outcome {
	start := time.Now()
	log := p.logger.WithFields(
		logging.F(logging.FieldTenantID, tenantID),
		logging.F(logging.FieldActorID, actorID),
		logging.F(logging.FieldInputKind, string(kind)),
	)

	// The backend is captured once so a concurrent switch cannot split a
	// transcribe-then-extract call across two backends.
	b := p.registry.Active()
	if b == nil {
		log.WithError(pipelineerror.ErrNoBackends).Error("No extraction backend available")
		return []models.Outcome{{Kind: models.OutcomeProviderUnavailable, Err: pipelineerror.ErrNoBackends}}
	}
	log = log.WithField(logging.FieldBackend, b.Name())

	active, err := p.catalog.ListActive(ctx, tenantID)
	if err != nil {
		log.WithError(err).Error("Failed to load category catalog")
		return []models.Outcome{{Kind: models.OutcomePersistenceFailed, Backend: b.Name(), Err: err}}
	}
	names := models.CategoryNames(active)

	raw, rawInput, err := p.extract(ctx, b, kind, payload, names)
	if err != nil {
		outcome := failureOutcome(b.Name(), err)
		log.WithError(err).Warn("Extraction failed", logging.F(logging.FieldOutcome, outcome.Kind.String()))
		return []models.Outcome{outcome}
	}

	res := p.normalizer.Normalize(raw, rawInput)
	if len(res.Candidates) == 0 {
		log.Info("No transaction found in message",
			logging.F("dropped", res.Dropped),
			logging.F(logging.FieldDuration, time.Since(start).Milliseconds()))
		return []models.Outcome{{Kind: models.OutcomeNoTransactionFound, Backend: b.Name(), Err: res.Err}}
	}

	outcomes := p.SaveCandidates(ctx, tenantID, actorID, res.Candidates)
	for i := range outcomes {
		outcomes[i].Backend = b.Name()
	}
	log.Info("Processed message",
		logging.F(logging.FieldCount, len(outcomes)),
		logging.F(logging.FieldDuration, time.Since(start).Milliseconds()))
	return outcomes
}

func (p *Processor) extract(ctx context.Context, b backend.Backend, kind models.InputKind, payload models.Payload, names []string) (raw, rawInput string, err error) {
	switch kind {
	case models.InputText:
		text := strings.TrimSpace(payload.Text)
		if text == "" {
			return "", "", fmt.Errorf("%w: empty text", pipelineerror.ErrUnsupportedInput)
		}
		raw, err = b.ExtractFromText(ctx, text, "", names)
		return raw, text, err
	case models.InputImage:
		if len(payload.Image) == 0 {
			return "", "", fmt.Errorf("%w: empty image", pipelineerror.ErrUnsupportedInput)
		}
		raw, err = b.ExtractFromImage(ctx, payload.Image, payload.MIMEType, payload.Caption, names)
		return raw, payload.Caption, err
	case models.InputAudio:
		if payload.AudioPath == "" {
			return "", "", fmt.Errorf("%w: missing audio file", pipelineerror.ErrUnsupportedInput)
		}
		raw, err = backend.ExtractFromAudio(ctx, b, payload.AudioPath, payload.Caption, names)
		return raw, payload.Caption, err
	}
	return "", "", fmt.Errorf("%w: input kind %q", pipelineerror.ErrUnsupportedInput, kind)
}

// SaveCandidates saves every candidate independently and returns one outcome
// per candidate, in input order. A failing candidate never stops the others.
func (p *Processor) SaveCandidates(ctx context.Context, tenantID, actorID string, candidates []models.TransactionCandidate) []models.Outcome {
	outcomes := make([]models.Outcome, len(candidates))

	var g errgroup.Group
	g.SetLimit(p.workers)
	for i, c := range candidates {
		g.Go(func() error {
			res, err := p.saver.Save(ctx, c, tenantID, actorID)
			outcomes[i] = saveOutcome(res, err)
			if err != nil {
				p.logger.WithError(err).WithFields(
					logging.F(logging.FieldTenantID, tenantID),
					logging.F(logging.FieldCandidateIndex, i),
					logging.F(logging.FieldOutcome, outcomes[i].Kind.String()),
					logging.F(logging.FieldReason, outcomes[i].Reason),
				).Warn("Candidate not saved")
			}
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func saveOutcome(res *coordinator.Result, err error) models.Outcome {
	if err != nil {
		var verr *pipelineerror.ValidationError
		if errors.As(err, &verr) {
			return models.Outcome{Kind: models.OutcomeValidationFailed, Reason: verr.Field + " " + verr.Reason, Err: err}
		}
		return models.Outcome{Kind: models.OutcomePersistenceFailed, Err: err}
	}
	record := res.Record
	return models.Outcome{
		Kind:                models.OutcomeSaved,
		Record:              &record,
		Category:            res.Category,
		Method:              res.Method,
		WasFallbackCategory: res.WasFallback,
		ProvisioningDefect:  res.ProvisioningDefect,
		Notice:              res.Notice,
	}
}

func failureOutcome(backendName string, err error) models.Outcome {
	switch {
	case pipelineerror.IsTranscriptionFailed(err):
		return models.Outcome{Kind: models.OutcomeTranscriptionFailed, Backend: backendName, Err: err}
	case errors.Is(err, pipelineerror.ErrUnsupportedInput):
		return models.Outcome{Kind: models.OutcomeNoTransactionFound, Backend: backendName, Err: err}
	}
	return models.Outcome{Kind: models.OutcomeProviderUnavailable, Backend: backendName, Err: err}
}

// SwitchBackend makes name the active backend. Unknown names are ignored and
// report false.
func (p *Processor) SwitchBackend(name string) bool {
	return p.registry.SetActive(name)
}

// ActiveBackend returns the name of the backend new messages will use.
func (p *Processor) ActiveBackend() string {
	if b := p.registry.Active(); b != nil {
		return b.Name()
	}
	return ""
}

// BackendNames lists the registered backends in registration order.
func (p *Processor) BackendNames() []string {
	return p.registry.Names()
}

// HealthAll probes every registered backend.
func (p *Processor) HealthAll(ctx context.Context) map[string]backend.HealthStatus {
	return p.registry.HealthAll(ctx)
}

// CreateCategory adds a custom category, picking its icon from the synonym
// table. Creating an existing name returns the existing category.
func (p *Processor) CreateCategory(ctx context.Context, tenantID, name string, polarity models.Polarity) (models.CategoryInstance, error) {
	icon := models.DefaultCategoryIcon
	if p.icons != nil {
		icon = p.icons.IconFor(name)
	}
	return p.catalog.CreateCustom(ctx, tenantID, name, polarity, icon)
}

// SoftDeleteCategory tombstones a category owned by tenantID.
func (p *Processor) SoftDeleteCategory(ctx context.Context, categoryID uuid.UUID, tenantID, actorID string) error {
	return p.catalog.SoftDelete(ctx, categoryID, tenantID, actorID)
}

// InitializeTenant copies the category templates into a new tenant.
func (p *Processor) InitializeTenant(ctx context.Context, tenantID string) (int, error) {
	return p.catalog.InitializeForNewTenant(ctx, tenantID)
}

// ListCategories returns the tenant's active categories.
func (p *Processor) ListCategories(ctx context.Context, tenantID string) ([]models.CategoryInstance, error) {
	return p.catalog.ListActive(ctx, tenantID)
}
