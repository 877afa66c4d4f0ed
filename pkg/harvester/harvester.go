package harvester

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"wgharvest/pkg/archive"
	apperrors "wgharvest/pkg/errors"
	"wgharvest/pkg/ledger"
	"wgharvest/pkg/logger"
	"wgharvest/pkg/metrics"
	"wgharvest/pkg/pace"
	"wgharvest/pkg/portal"
	"wgharvest/pkg/publish"
	"wgharvest/pkg/session"
)

// Termination names why the session loop stopped
type Termination string

const (
	Exhausted             Termination = "exhausted"
	SessionCeilingReached Termination = "session_ceiling_reached"
	Aborted               Termination = "aborted"
)

// Observer is told about session progress, e.g. to drive terminal output
type Observer interface {
	SessionStarted(attempt int)
	SessionFinished(attempt, fetched, failed int, outcome string)
	CoolingDown(d time.Duration)
}

// Options wires the harvester to its collaborators
type Options struct {
	Launcher    portal.Launcher
	Credentials portal.Credentials
	Ledger      *ledger.Store
	Archive     *archive.Builder
	// Publisher may be nil, in which case the archive is only written
	Publisher publish.Publisher
	Pacer     *pace.Pacer

	ArtifactCap  int
	Ceiling      int
	FetchRetries int
	RetryDelay   time.Duration
	// KeepOnFailure skips cleanup and ledger reset when publishing fails
	KeepOnFailure bool

	Metrics  *metrics.Metrics
	Logger   logger.Logger
	Observer Observer
}

// Report summarizes a run
type Report struct {
	CampaignID     string
	Termination    Termination
	Sessions       int
	FailedSessions int
	Fetched        int
	Archive        *archive.Result
	Published      bool
	PublishErr     error
	Cleaned        bool
	Duration       time.Duration
}

// Harvester runs sessions until the catalog is exhausted or the session
// ceiling is reached, then archives, publishes and resets the campaign.
type Harvester struct {
	opts   Options
	logger logger.Logger
}

// New validates opts and creates a harvester
func New(opts Options) (*Harvester, error) {
	var errs []error
	if opts.Launcher == nil {
		errs = append(errs, errors.New("launcher is required"))
	}
	if opts.Ledger == nil {
		errs = append(errs, errors.New("ledger is required"))
	}
	if opts.Archive == nil {
		errs = append(errs, errors.New("archive builder is required"))
	}
	if opts.ArtifactCap < 1 {
		errs = append(errs, fmt.Errorf("artifact cap must be at least 1, got %d", opts.ArtifactCap))
	}
	if opts.Ceiling < 1 {
		errs = append(errs, fmt.Errorf("session ceiling must be at least 1, got %d", opts.Ceiling))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	if opts.Pacer == nil {
		opts.Pacer = pace.NoDelay()
	}
	if opts.Logger == nil {
		opts.Logger = logger.GetLogger()
	}

	return &Harvester{
		opts:   opts,
		logger: opts.Logger.WithField("component", "harvester"),
	}, nil
}

// Run executes one campaign. A persistence failure or ctx cancellation
// stops it early without archiving; the ledger keeps whatever was saved.
func (h *Harvester) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	report := &Report{CampaignID: uuid.NewString()}
	log := h.logger.WithField("campaign", report.CampaignID)

	logger.LogComponentStart(log, "harvester", map[string]interface{}{
		"artifact_cap": h.opts.ArtifactCap,
		"ceiling":      h.opts.Ceiling,
		"cooldown":     h.opts.Pacer.CooldownDuration(),
	})

	set := h.opts.Ledger.Load()
	h.opts.Metrics.Ledger(set.Len())
	if set.Len() > 0 {
		log.WithField("entries", set.Len()).Info("Resuming campaign from ledger")
	}

	sessionOpts := session.Options{
		Credentials:  h.opts.Credentials,
		Ledger:       h.opts.Ledger,
		Pacer:        h.opts.Pacer,
		ArtifactCap:  h.opts.ArtifactCap,
		FetchRetries: h.opts.FetchRetries,
		RetryDelay:   h.opts.RetryDelay,
		Metrics:      h.opts.Metrics,
		Logger:       log,
	}

	exhausted, sessionCeilingReached := false, false
	for attempt := 1; ; attempt++ {
		if h.opts.Observer != nil {
			h.opts.Observer.SessionStarted(attempt)
		}

		res, updated, err := session.Run(ctx, h.opts.Launcher, sessionOpts, set)
		set = updated
		report.Sessions = attempt
		report.Fetched += len(res.Fetched)
		if res.Err != nil {
			report.FailedSessions++
		}

		logger.LogSession(log.WithError(res.Err), attempt, len(res.Fetched), len(res.Failed), res.Exhausted, res.Outcome)
		if h.opts.Observer != nil {
			h.opts.Observer.SessionFinished(attempt, len(res.Fetched), len(res.Failed), res.Outcome)
		}

		if err != nil {
			if ctx.Err() != nil || apperrors.IsFatal(err) {
				return h.abort(report, start, err)
			}
			log.WithError(err).Warn("Session ended with error")
		}

		exhausted = res.Exhausted
		sessionCeilingReached = !exhausted && attempt >= h.opts.Ceiling
		if exhausted || sessionCeilingReached {
			break
		}

		if h.opts.Observer != nil {
			h.opts.Observer.CoolingDown(h.opts.Pacer.CooldownDuration())
		}
		if err := h.opts.Pacer.Cooldown(ctx); err != nil {
			return h.abort(report, start, err)
		}
	}

	report.Termination = Exhausted
	if sessionCeilingReached {
		report.Termination = SessionCeilingReached
		log.WithField("ceiling", h.opts.Ceiling).Warn("Session ceiling reached before the catalog was exhausted")
	}

	if err := h.finalize(ctx, report, log); err != nil {
		return h.abort(report, start, err)
	}

	report.Duration = time.Since(start)
	h.opts.Metrics.RunFinished(string(report.Termination))
	logger.LogComponentStop(log, "harvester", string(report.Termination))
	return report, nil
}

func (h *Harvester) abort(report *Report, start time.Time, err error) (*Report, error) {
	report.Termination = Aborted
	report.Duration = time.Since(start)
	h.opts.Metrics.RunFinished(string(Aborted))
	h.logger.WithField("campaign", report.CampaignID).WithError(err).Error("Harvest aborted")
	return report, err
}

// Finalize archives whatever is in the working directory, publishes it and
// resets the campaign. It is what Run does after its session loop and can
// be called on its own to flush a campaign left by an interrupted run.
func (h *Harvester) Finalize(ctx context.Context) (*Report, error) {
	report := &Report{CampaignID: uuid.NewString()}
	err := h.finalize(ctx, report, h.logger.WithField("campaign", report.CampaignID))
	return report, err
}

func (h *Harvester) finalize(ctx context.Context, report *Report, log logger.Logger) error {
	res, err := h.opts.Archive.Build()
	if err != nil {
		return err
	}
	if res == nil {
		log.Info("Nothing fetched, skipping archive and publish")
		return nil
	}
	report.Archive = res
	h.opts.Metrics.Archive(res.FileCount(), res.CategoryCount())

	if h.opts.Publisher != nil {
		meta := publish.Metadata{
			CampaignID:    report.CampaignID,
			CategoryCount: res.CategoryCount(),
			FileCount:     res.FileCount(),
			Categories:    res.CategoryNames(),
		}
		report.PublishErr = h.opts.Publisher.Publish(ctx, res.Path, meta)
		report.Published = report.PublishErr == nil
		if report.PublishErr != nil {
			log.WithError(report.PublishErr).Error("Publishing the archive failed")
		}
	}

	if report.PublishErr != nil && h.opts.KeepOnFailure {
		log.WithField("archive", res.Path).Warn("Keeping working directory and ledger for a later retry")
		return nil
	}

	if err := h.opts.Archive.Cleanup(res); err != nil {
		return err
	}
	report.Cleaned = true
	h.opts.Metrics.Ledger(0)
	return nil
}
