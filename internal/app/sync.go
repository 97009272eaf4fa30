package app

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jsamuelsen/quotedeck/internal/domain"
	"github.com/jsamuelsen/quotedeck/internal/platform/logging"
	"github.com/jsamuelsen/quotedeck/internal/platform/telemetry"
	"github.com/jsamuelsen/quotedeck/internal/ports"
)

const (
	instrumentationName = "github.com/jsamuelsen/quotedeck/internal/app"

	originLocal  = "local"
	originRemote = "remote"
)

// SyncReport describes the outcome of one sync cycle.
type SyncReport struct {
	CorrelationID   string        `json:"correlation_id"`
	StartedAt       time.Time     `json:"started_at"`
	Duration        time.Duration `json:"duration"`
	RemoteAvailable bool          `json:"remote_available"`
	Updated         bool          `json:"updated"`
	Additions       int           `json:"additions"`
	Removals        int           `json:"removals"`
	Changes         int           `json:"changes"`
	CollectionSize  int           `json:"collection_size"`
	QuarantineSize  int           `json:"quarantine_size"`
}

// SyncEngineConfig contains configuration for the sync engine.
type SyncEngineConfig struct {
	Store   ports.StateStore
	Source  ports.CollectionSource
	Codec   ports.CollectionCodec
	Deck    *DeckManager
	Metrics *telemetry.Metrics
	Logger  *slog.Logger
}

// SyncEngine reconciles the local collection with the remote one.
type SyncEngine struct {
	store   ports.StateStore
	source  ports.CollectionSource
	codec   ports.CollectionCodec
	deck    *DeckManager
	metrics *telemetry.Metrics
	logger  *slog.Logger
	tracer  trace.Tracer

	mu   sync.RWMutex
	last *SyncReport
}

// NewSyncEngine creates a sync engine.
// Panics if Store, Source, Codec, or Deck is nil.
func NewSyncEngine(cfg SyncEngineConfig) *SyncEngine {
	switch {
	case cfg.Store == nil:
		panic("SyncEngine: Store is required")
	case cfg.Source == nil:
		panic("SyncEngine: Source is required")
	case cfg.Codec == nil:
		panic("SyncEngine: Codec is required")
	case cfg.Deck == nil:
		panic("SyncEngine: Deck is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &SyncEngine{
		store:   cfg.Store,
		source:  cfg.Source,
		codec:   cfg.Codec,
		deck:    cfg.Deck,
		metrics: cfg.Metrics,
		logger:  logger.With(slog.String("component", "app.SyncEngine")),
		tracer:  otel.Tracer(instrumentationName),
	}
}

// loaded is one side of a sync: a decoded document, or why there is none.
type loaded struct {
	collection *domain.Collection
	quarantine *domain.Quarantine
	err        error
}

// Sync returns the freshest collection available. It never fails: an
// unreachable or unparseable remote leaves the local copy in charge, and
// persistence failures are logged while the freshest collection is still
// returned.
func (e *SyncEngine) Sync(ctx context.Context) *domain.Collection {
	start := time.Now()

	id := logging.CorrelationIDFromContext(ctx)
	if id == "" {
		id = uuid.NewString()
		ctx = logging.WithCorrelationID(ctx, id)
	}

	ctx, span := e.tracer.Start(ctx, "sync", trace.WithAttributes(attribute.String("correlation_id", id)))
	defer span.End()

	logger := e.logger.With(slog.String("correlation_id", id))
	report := &SyncReport{CorrelationID: id, StartedAt: start}

	// neither loader returns an error; failures travel inside loaded
	local, remote, _ := Parallel2(ctx,
		func(ctx context.Context) (loaded, error) { return e.loadLocal(ctx, logger), nil },
		func(ctx context.Context) (loaded, error) { return e.loadRemote(ctx, logger), nil },
	)

	quarantine := local.quarantine.Union(remote.quarantine)
	e.persistQuarantine(ctx, logger, quarantine)

	result := local.collection
	outcome := telemetry.SyncUnchanged
	report.RemoteAvailable = remote.err == nil

	var added, removed []string

	switch {
	case remote.err != nil:
		outcome = telemetry.SyncUnavailable
		logger.InfoContext(ctx, "remote unavailable, using local collection", slog.Any("reason", remote.err))

	case remote.collection.Len() == 0:
		outcome = telemetry.SyncUnavailable
		report.RemoteAvailable = false
		logger.InfoContext(ctx, "remote collection was empty, using local collection")

	case local.collection.Equal(remote.collection):
		logger.InfoContext(ctx, "local and remote collections are the same",
			slog.Int("quotes", local.collection.Len()))

	default:
		diff := domain.DiffCollections(local.collection, remote.collection)
		logDiff(ctx, logger, local.collection, remote.collection, diff)

		if local.collection.Len() == 0 {
			logger.InfoContext(ctx, "local collection was empty")
		}

		e.persistCollection(ctx, logger, remote.collection)

		result = remote.collection
		outcome = telemetry.SyncUpdated
		added, removed = diff.Additions, diff.Removals

		report.Updated = true
		report.Additions = len(diff.Additions)
		report.Removals = len(diff.Removals)
		report.Changes = len(diff.Changes)
	}

	var deckErr error

	switch {
	case report.Updated:
		deckErr = e.deck.Reconcile(ctx, added, removed, result.Keys())
	case local.err != nil:
		// no usable collection on either side; keep the deck as it is
		logger.WarnContext(ctx, "no usable collection, deck left unchanged")
	default:
		deckErr = e.deck.Refill(ctx, result.Keys())
	}

	if deckErr != nil {
		logger.ErrorContext(ctx, "failed to update deck", slog.Any("error", deckErr))
	}

	report.Duration = time.Since(start)
	report.CollectionSize = result.Len()
	report.QuarantineSize = quarantine.Len()

	e.metrics.ObserveSync(outcome, report.Duration, report.Additions, report.Removals, report.Changes)
	e.metrics.SetCollection(report.CollectionSize, report.QuarantineSize)

	span.SetAttributes(
		attribute.String("sync.result", outcome),
		attribute.Int("sync.collection_size", report.CollectionSize),
	)

	e.mu.Lock()
	e.last = report
	e.mu.Unlock()

	return result
}

// LastReport returns a copy of the most recent sync report, or nil before
// the first sync.
func (e *SyncEngine) LastReport() *SyncReport {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.last == nil {
		return nil
	}

	r := *e.last

	return &r
}

func (e *SyncEngine) loadLocal(ctx context.Context, logger *slog.Logger) loaded {
	text, err := e.store.ReadCollection(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "failed to read local collection", slog.Any("error", err))
		return emptyLoaded(err)
	}

	c, q, err := e.codec.Decode(text)
	if err != nil {
		logger.ErrorContext(ctx, "local collection is malformed", slog.Any("error", err))
		return emptyLoaded(err)
	}

	return loaded{collection: c, quarantine: tagOrigin(q, originLocal)}
}

func (e *SyncEngine) loadRemote(ctx context.Context, logger *slog.Logger) loaded {
	ctx, span := e.tracer.Start(ctx, "fetch collection")
	defer span.End()

	logger.InfoContext(ctx, "updating quotes from remote")

	text, err := e.source.FetchCollection(ctx)
	if err != nil {
		span.RecordError(err)
		return emptyLoaded(err)
	}

	c, q, err := e.codec.Decode(text)
	if err != nil {
		span.RecordError(err)
		return emptyLoaded(err)
	}

	return loaded{collection: c, quarantine: tagOrigin(q, originRemote)}
}

func (e *SyncEngine) persistQuarantine(ctx context.Context, logger *slog.Logger, q *domain.Quarantine) {
	text := ""

	if q.Len() > 0 {
		logger.WarnContext(ctx, "quarantined records found", slog.Int("count", q.Len()))

		for _, r := range q.Records() {
			logger.DebugContext(ctx, "quarantined record",
				slog.String("key", r.Key),
				slog.String("origin", r.Origin),
				slog.Any("reasons", r.Reasons),
			)
		}

		var err error

		text, err = e.codec.EncodeQuarantine(q)
		if err != nil {
			logger.ErrorContext(ctx, "failed to encode quarantine", slog.Any("error", err))
			return
		}
	}

	current, err := e.store.ReadQuarantine(ctx)
	if err == nil && current == text {
		return
	}

	if err := e.store.WriteQuarantine(ctx, text); err != nil {
		logger.ErrorContext(ctx, "failed to write quarantine", slog.Any("error", err))
	}
}

func (e *SyncEngine) persistCollection(ctx context.Context, logger *slog.Logger, c *domain.Collection) {
	text, err := e.codec.Encode(c)
	if err != nil {
		logger.ErrorContext(ctx, "failed to encode collection", slog.Any("error", err))
		return
	}

	if err := e.store.WriteCollection(ctx, text); err != nil {
		logger.ErrorContext(ctx, "failed to write collection", slog.Any("error", err))
	}
}

func emptyLoaded(err error) loaded {
	return loaded{collection: domain.NewCollection(), quarantine: domain.NewQuarantine(), err: err}
}

func tagOrigin(q *domain.Quarantine, origin string) *domain.Quarantine {
	for _, r := range q.Records() {
		r.Origin = origin
	}

	return q
}

// logDiff writes one info line per added or removed quote and two per
// changed quote, old then new.
func logDiff(ctx context.Context, logger *slog.Logger, old, updated *domain.Collection, diff *domain.Diff) {
	for _, key := range diff.Additions {
		q, _ := updated.Get(key)
		logger.InfoContext(ctx, describeQuote("+", key, q))
	}

	for _, key := range diff.Removals {
		q, _ := old.Get(key)
		logger.InfoContext(ctx, describeQuote("-", key, q))
	}

	for _, ch := range diff.Changes {
		logger.InfoContext(ctx, describeQuote("-", ch.Key, ch.Old))
		logger.InfoContext(ctx, describeQuote("+", ch.Key, ch.New))
	}
}

// describeQuote renders "+ [key] submitter; attribution; source: text".
func describeQuote(sign, key string, q *domain.Quote) string {
	parts := []string{q.Submitter}

	if q.Attribution != nil && *q.Attribution != "" {
		parts = append(parts, *q.Attribution)
	}

	if q.Source != nil && *q.Source != "" {
		parts = append(parts, *q.Source)
	}

	return sign + " [" + key + "] " + strings.Join(parts, "; ") + ": " + q.Text
}
