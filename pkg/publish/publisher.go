package publish

import (
	"context"
	"errors"
	"fmt"
	"strings"

	apperrors "wgharvest/pkg/errors"
	"wgharvest/pkg/logger"
	"wgharvest/pkg/metrics"
	"wgharvest/pkg/retry"
)

// Metadata describes the archive being delivered
type Metadata struct {
	CampaignID    string
	CategoryCount int
	FileCount     int
	Categories    []string
}

// Publisher delivers a finished archive somewhere
type Publisher interface {
	Name() string
	Publish(ctx context.Context, archivePath string, meta Metadata) error
}

// StatusError is returned when a destination answers with a failure status
type StatusError struct {
	Destination string
	StatusCode  int
	Description string
}

func (e *StatusError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("%s returned status %d", e.Destination, e.StatusCode)
	}
	return fmt.Sprintf("%s returned status %d: %s", e.Destination, e.StatusCode, e.Description)
}

// RetryIf retries failures a later attempt can fix. Rejections such as a
// bad token or unknown chat are final.
func RetryIf(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return apperrors.IsRetryableStatusCode(statusErr.StatusCode)
	}
	return retry.DefaultRetryIf(err)
}

// Multi delivers to every destination and fails if any of them fails.
// Each destination is retried on its own.
type Multi struct {
	publishers []Publisher
	retry      *retry.Config
	metrics    *metrics.Metrics
	logger     logger.Logger
}

// NewMulti creates a fan-out publisher. maxAttempts below 1 means one try.
func NewMulti(publishers []Publisher, maxAttempts int, m *metrics.Metrics, log logger.Logger) *Multi {
	if log == nil {
		log = logger.GetLogger()
	}
	log = log.WithField("component", "publish")
	return &Multi{
		publishers: publishers,
		retry: &retry.Config{
			MaxAttempts: maxAttempts,
			Backoff:     retry.DefaultExponentialBackoff(),
			RetryIf:     RetryIf,
			Logger:      log,
		},
		metrics: m,
		logger:  log,
	}
}

// WithBackoff replaces the retry backoff, for tests
func (m *Multi) WithBackoff(b retry.BackoffStrategy) *Multi {
	m.retry.Backoff = b
	return m
}

func (m *Multi) Name() string {
	names := make([]string, 0, len(m.publishers))
	for _, p := range m.publishers {
		names = append(names, p.Name())
	}
	return strings.Join(names, ",")
}

func (m *Multi) Publish(ctx context.Context, archivePath string, meta Metadata) error {
	var errs []error
	for _, p := range m.publishers {
		err := retry.Do(ctx, func(ctx context.Context) error {
			return p.Publish(ctx, archivePath, meta)
		}, m.retry)
		m.metrics.Publish(p.Name(), err)

		if err != nil {
			m.logger.WithError(err).WithField("destination", p.Name()).Error("Publish failed")
			errs = append(errs, apperrors.Publish(p.Name(), err))
			continue
		}
		m.logger.WithField("destination", p.Name()).Info("Archive published")
	}
	return errors.Join(errs...)
}

// Caption renders the Markdown message sent with the archive
func Caption(meta Metadata) string {
	var b strings.Builder
	b.WriteString("**New ProtonVPN WireGuard**\n\n")
	b.WriteString("Organized by Country Folders\n")
	fmt.Fprintf(&b, "**Countries:** %d\n", meta.CategoryCount)
	fmt.Fprintf(&b, "**Total Files:** %d\n", meta.FileCount)
	b.WriteString("**Format:** .conf (Windows)\n\n")
	b.WriteString("Files are sorted into folders inside the ZIP.")
	return b.String()
}
