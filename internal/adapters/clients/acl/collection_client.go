package acl

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/jsamuelsen/quotedeck/internal/adapters/clients"
	"github.com/jsamuelsen/quotedeck/internal/platform/logging"
)

const (
	// CollectionSourceName names the remote in errors and readiness output.
	CollectionSourceName = "collection-source"

	// DefaultMaxDocumentBytes bounds a fetched document.
	DefaultMaxDocumentBytes = 8 << 20
)

// CollectionClientConfig contains configuration for the collection client.
type CollectionClientConfig struct {
	// Client points at the document itself; requests use an empty path.
	Client *clients.Client

	// MaxBytes bounds the document size. Zero means DefaultMaxDocumentBytes.
	MaxBytes int64

	Logger *slog.Logger
}

// CollectionClient fetches the canonical collection as raw text.
// It implements ports.CollectionSource and ports.HealthChecker.
type CollectionClient struct {
	client   *clients.Client
	maxBytes int64
	logger   *slog.Logger
}

// NewCollectionClient creates a collection client.
// Panics if Client is nil.
func NewCollectionClient(cfg CollectionClientConfig) *CollectionClient {
	if cfg.Client == nil {
		panic("CollectionClient: Client is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxDocumentBytes
	}

	return &CollectionClient{
		client:   cfg.Client,
		maxBytes: maxBytes,
		logger:   logger,
	}
}

// FetchCollection returns the remote document text.
func (c *CollectionClient) FetchCollection(ctx context.Context) (string, error) {
	const operation = "fetch collection"

	c.logger.Log(ctx, logging.LevelTrace, "starting request")

	resp, err := c.client.Get(ctx, "")
	if err != nil {
		return "", MapHTTPError(nil, err, CollectionSourceName, operation, "")
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.Log(ctx, logging.LevelTrace, "request complete", slog.Int("status", resp.StatusCode))

	if resp.StatusCode != http.StatusOK {
		c.logger.WarnContext(ctx, "collection source error", slog.Int("status_code", resp.StatusCode))

		return "", MapHTTPError(resp, nil, CollectionSourceName, operation, "")
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return "", MapHTTPError(nil, fmt.Errorf("reading body: %w", err), CollectionSourceName, operation, "")
	}

	if int64(len(body)) > c.maxBytes {
		return "", MapHTTPError(nil,
			fmt.Errorf("document exceeds %d bytes", c.maxBytes), CollectionSourceName, operation, "")
	}

	c.logger.DebugContext(ctx, "fetched collection", slog.Int("bytes", len(body)))

	return string(body), nil
}

// Name implements ports.HealthChecker.
func (c *CollectionClient) Name() string {
	return CollectionSourceName
}

// Check reports the remote as failing while its circuit is open.
// It makes no request, so readiness probes never hit the remote.
func (c *CollectionClient) Check(_ context.Context) error {
	if state := c.client.CircuitState(); state == clients.StateOpen {
		return fmt.Errorf("%w: recent fetches failed", clients.ErrCircuitOpen)
	}

	return nil
}
