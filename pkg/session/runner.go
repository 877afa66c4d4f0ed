package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wgharvest/pkg/classify"
	apperrors "wgharvest/pkg/errors"
	"wgharvest/pkg/ledger"
	"wgharvest/pkg/logger"
	"wgharvest/pkg/metrics"
	"wgharvest/pkg/pace"
	"wgharvest/pkg/portal"
	"wgharvest/pkg/retry"
)

// Options configures a Runner
type Options struct {
	Credentials portal.Credentials
	Ledger      *ledger.Store
	Pacer       *pace.Pacer
	// ArtifactCap bounds fetches per session
	ArtifactCap int
	// FetchRetries is the number of extra attempts per entry; 0 skips a
	// failed entry until the next session
	FetchRetries int
	RetryDelay   time.Duration
	Metrics      *metrics.Metrics
	Logger       logger.Logger
}

// Runner drives one authenticated session against the portal
type Runner struct {
	driver portal.Driver
	opts   Options
	logger logger.Logger

	state   State
	current ledger.Set
	result  Result
}

// New creates a runner over driver. The runner does not own the driver
// until Close is called.
func New(driver portal.Driver, opts Options) *Runner {
	if opts.Pacer == nil {
		opts.Pacer = pace.NoDelay()
	}
	if opts.Logger == nil {
		opts.Logger = logger.GetLogger()
	}
	return &Runner{
		driver: driver,
		opts:   opts,
		logger: opts.Logger.WithField("component", "session"),
		state:  StateNew,
	}
}

// State returns the current lifecycle state
func (r *Runner) State() State {
	return r.state
}

// Result returns the session summary so far
func (r *Runner) Result() Result {
	res := r.result
	res.State = r.state
	return res
}

// Authenticate logs in. Any failure makes the session unusable and is
// reported as false.
func (r *Runner) Authenticate(ctx context.Context) bool {
	if err := r.driver.Authenticate(ctx, r.opts.Credentials); err != nil {
		r.result.Err = apperrors.Session("authenticate", err)
		r.logger.WithError(err).Warn("Login failed")
		return false
	}
	r.state = StateAuthenticated
	r.logger.Debug("Logged in")
	return true
}

// OpenCatalog navigates to the download listing. Any failure is reported
// as false.
func (r *Runner) OpenCatalog(ctx context.Context) bool {
	if r.state != StateAuthenticated {
		r.result.Err = apperrors.Session("open catalog", errors.New("not authenticated"))
		return false
	}
	if err := r.driver.OpenCatalog(ctx); err != nil {
		r.result.Err = apperrors.Session("open catalog", err)
		r.logger.WithError(err).Warn("Could not open download catalog")
		return false
	}
	r.state = StateBrowsingCatalog
	r.logger.Debug("Catalog open")
	return true
}

// IterateCatalog walks groups and entries in portal order, fetching every
// entry not in set until the session cap is met. Each fetch is persisted
// before the next one starts. exhausted is true only when the whole
// catalog was walked without a cap stop and without leaving any entry
// behind. The returned error is either a persistence failure or the
// context error; everything else is absorbed.
func (r *Runner) IterateCatalog(ctx context.Context, set ledger.Set) (bool, ledger.Set, error) {
	if set == nil {
		set = ledger.NewSet()
	}
	r.current = set.Clone()

	if r.state != StateBrowsingCatalog {
		return false, r.current, nil
	}

	groups, err := r.driver.Groups(ctx)
	if err != nil {
		r.logger.WithError(err).Warn("Could not list catalog groups")
		return false, r.current, ctx.Err()
	}

	leftBehind := false
	for _, group := range groups {
		entries, err := r.driver.Entries(ctx, group)
		if err != nil {
			if ctx.Err() != nil {
				return false, r.current, ctx.Err()
			}
			r.logger.WithError(err).WithField("group", group.Name).Warn("Could not list group entries")
			leftBehind = true
			continue
		}

		drained := true
		for _, entry := range entries {
			if err := ctx.Err(); err != nil {
				return false, r.current, err
			}

			if r.current.Has(entry.ID) {
				r.result.Skipped++
				r.opts.Metrics.Fetch(metrics.FetchSkipped)
				continue
			}
			drained = false

			if len(r.result.Fetched) >= r.opts.ArtifactCap {
				r.result.CapReached = true
				r.logger.WithField("cap", r.opts.ArtifactCap).Info("Session cap reached")
				return false, r.current, nil
			}

			ok, err := r.fetch(ctx, entry)
			if err != nil {
				return false, r.current, err
			}
			if !ok {
				leftBehind = true
			}
		}

		if drained {
			r.result.DrainedGroups = append(r.result.DrainedGroups, group.Name)
			r.logger.WithField("group", group.Name).Debug("Group fully drained")
		}
	}

	r.result.Exhausted = !leftBehind
	return r.result.Exhausted, r.current, nil
}

// fetch downloads one entry, records it and waits out the inter-fetch delay.
// ok is false when the entry is left for a later session.
func (r *Runner) fetch(ctx context.Context, entry portal.Entry) (bool, error) {
	r.state = StateFetching
	defer func() {
		if r.state == StateFetching {
			r.state = StateBrowsingCatalog
		}
	}()

	name, err := retry.DoWithResult(ctx, func(ctx context.Context) (string, error) {
		name, err := r.driver.Fetch(ctx, entry)
		if err != nil {
			return "", apperrors.Fetch("fetch "+entry.ID, err)
		}
		return name, nil
	}, &retry.Config{
		MaxAttempts: r.opts.FetchRetries + 1,
		Backoff:     &retry.ConstantBackoff{Delay: r.opts.RetryDelay},
		Logger:      r.logger,
	})
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		r.result.Failed = append(r.result.Failed, entry.ID)
		r.opts.Metrics.Fetch(metrics.FetchFailed)
		logger.LogFetch(r.logger, entry.ID, entry.Group, "", err)
		return false, nil
	}

	r.current.Add(entry.ID)
	if r.opts.Ledger != nil {
		if err := r.opts.Ledger.Save(r.current); err != nil {
			return false, err
		}
	}
	r.result.Fetched = append(r.result.Fetched, entry.ID)
	r.opts.Metrics.Fetch(metrics.FetchOK)
	r.opts.Metrics.Ledger(r.current.Len())
	logger.LogFetch(r.logger, entry.ID, classify.Category(name), name, nil)

	if err := r.opts.Pacer.AfterFetch(ctx); err != nil {
		return true, err
	}
	return true, nil
}

// Logout ends the portal session, trying the direct logout first and the
// account menu second. Failures are logged only.
func (r *Runner) Logout(ctx context.Context) {
	if r.state == StateLoggedOut || r.state == StateClosed {
		return
	}
	defer func() {
		if p := recover(); p != nil {
			r.logger.WithField("panic", fmt.Sprint(p)).Warn("Driver panicked during logout")
		}
		r.state = StateLoggedOut
	}()

	if err := r.driver.Logout(ctx); err != nil {
		r.logger.WithError(err).Debug("Direct logout failed, trying account menu")
		if err := r.driver.LogoutFallback(ctx); err != nil {
			r.logger.WithError(err).Warn("Logout failed")
		}
	}
}

// Close releases the driver. A panicking driver still ends up closed as far
// as the runner is concerned.
func (r *Runner) Close() {
	if r.state == StateClosed {
		return
	}
	defer func() {
		if p := recover(); p != nil {
			r.logger.WithField("panic", fmt.Sprint(p)).Warn("Driver panicked during close")
		}
		r.state = StateClosed
	}()
	if err := r.driver.Close(); err != nil {
		r.logger.WithError(err).Warn("Failed to close portal driver")
	}
}

// Run launches a driver and performs one full session: login, catalog walk,
// logout and teardown. The driver is closed on every path, including a
// panic inside it or inside its logout. The returned set holds every identifier persisted so far.
func Run(ctx context.Context, launcher portal.Launcher, opts Options, set ledger.Set) (res Result, updated ledger.Set, err error) {
	if set == nil {
		set = ledger.NewSet()
	}
	updated = set

	driver, err := launcher.Launch(ctx)
	if err != nil {
		res = Result{State: StateClosed, Outcome: OutcomeLaunchFailed, Err: apperrors.Session("launch", err)}
		opts.Metrics.Session(res.Outcome)
		return res, updated, ctx.Err()
	}

	r := New(driver, opts)
	defer func() {
		if p := recover(); p != nil {
			r.result.Err = apperrors.Session("session", fmt.Errorf("panic: %v", p))
			r.result.Outcome = OutcomeError
			err = nil
		}
		// a cancelled ctx must not prevent logging out
		logoutCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		r.Logout(logoutCtx)
		cancel()
		r.Close()

		if r.current != nil {
			updated = r.current
		}
		res = r.Result()
		opts.Metrics.Session(res.Outcome)
	}()

	switch {
	case !r.Authenticate(ctx):
		r.result.Outcome = OutcomeAuthFailed
		return res, updated, ctx.Err()
	case !r.OpenCatalog(ctx):
		r.result.Outcome = OutcomeCatalogFailed
		return res, updated, ctx.Err()
	}

	exhausted, _, err := r.IterateCatalog(ctx, set)
	switch {
	case err != nil:
		r.result.Outcome = OutcomeError
		r.result.Err = err
	case exhausted:
		r.result.Outcome = OutcomeExhausted
	default:
		r.result.Outcome = OutcomePartial
	}
	return res, updated, err
}
