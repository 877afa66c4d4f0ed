package harvester

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"wgharvest/pkg/archive"
	apperrors "wgharvest/pkg/errors"
	"wgharvest/pkg/ledger"
	"wgharvest/pkg/logger"
	"wgharvest/pkg/metrics"
	"wgharvest/pkg/pace"
	"wgharvest/pkg/portal"
	"wgharvest/pkg/publish"
	"wgharvest/pkg/storage"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// recordingPublisher captures what it was asked to publish and the ledger
// as it stood at that moment
type recordingPublisher struct {
	store       *ledger.Store
	err         error
	calls       int
	meta        publish.Metadata
	ledgerAtPub ledger.Set
	entries     []string
}

func (p *recordingPublisher) Name() string { return "recording" }

func (p *recordingPublisher) Publish(ctx context.Context, archivePath string, meta publish.Metadata) error {
	p.calls++
	p.meta = meta
	p.ledgerAtPub = p.store.Load()

	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return err
	}
	defer r.Close()
	for _, f := range r.File {
		p.entries = append(p.entries, f.Name)
	}
	return p.err
}

type recordingObserver struct {
	mu       sync.Mutex
	started  []int
	outcomes []string
	cooldown int
}

func (o *recordingObserver) SessionStarted(attempt int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.started = append(o.started, attempt)
}

func (o *recordingObserver) SessionFinished(attempt, fetched, failed int, outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, outcome)
}

func (o *recordingObserver) CoolingDown(d time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.cooldown++
}

type fixture struct {
	portal    *portal.MockPortal
	workdir   *storage.Manager
	store     *ledger.Store
	publisher *recordingPublisher
	observer  *recordingObserver
	sleeps    []time.Duration
	opts      Options
}

func newFixture(t *testing.T, cap, ceiling int, groups ...portal.MockGroup) *fixture {
	t.Helper()
	root := t.TempDir()

	workdir, err := storage.NewManager(filepath.Join(root, "downloaded_configs"), ".conf")
	require.NoError(t, err)
	store := ledger.NewStore(filepath.Join(root, "downloaded_wg_ids.json"), logger.NewNopLogger())
	builder := archive.NewBuilder(workdir, store, filepath.Join(root, "configs.zip"), logger.NewNopLogger())

	f := &fixture{
		portal:    portal.NewMockPortal(workdir, groups...),
		workdir:   workdir,
		store:     store,
		publisher: &recordingPublisher{store: store},
		observer:  &recordingObserver{},
	}
	pacer := pace.New(time.Minute, 2*time.Minute, 2*time.Minute).WithSleep(func(ctx context.Context, d time.Duration) error {
		f.sleeps = append(f.sleeps, d)
		return ctx.Err()
	})

	f.opts = Options{
		Launcher:    f.portal,
		Credentials: portal.Credentials{Username: "user", Password: "pass"},
		Ledger:      store,
		Archive:     builder,
		Publisher:   f.publisher,
		Pacer:       pacer,
		ArtifactCap: cap,
		Ceiling:     ceiling,
		Metrics:     metrics.New(),
		Logger:      logger.NewNopLogger(),
		Observer:    f.observer,
	}
	return f
}

func ids(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s-%d", prefix, i+1)
	}
	return out
}

func (f *fixture) run(t *testing.T, ctx context.Context) (*Report, error) {
	t.Helper()
	h, err := New(f.opts)
	require.NoError(t, err)
	return h.Run(ctx)
}

func TestRunUntilExhausted(t *testing.T) {
	f := newFixture(t, 20, 20,
		portal.NewMockGroup("United States", ids("us", 15)...),
		portal.NewMockGroup("Switzerland", ids("ch", 10)...),
	)

	report, err := f.run(t, context.Background())
	require.NoError(t, err)

	assert.Equal(t, Exhausted, report.Termination)
	assert.Equal(t, 2, report.Sessions)
	assert.Equal(t, 25, report.Fetched)
	assert.NotEmpty(t, report.CampaignID)

	require.Equal(t, 1, f.publisher.calls)
	assert.Equal(t, 25, f.publisher.meta.FileCount)
	assert.Equal(t, 2, f.publisher.meta.CategoryCount)
	assert.Equal(t, []string{"CH", "US"}, f.publisher.meta.Categories)
	assert.Equal(t, report.CampaignID, f.publisher.meta.CampaignID)
	assert.Len(t, f.publisher.entries, 25)
	assert.Equal(t, ledger.NewSet(f.portal.CatalogIDs()...), f.publisher.ledgerAtPub,
		"ledger at exhaustion holds every catalog id")

	assert.True(t, report.Published)
	assert.True(t, report.Cleaned)
	assert.Equal(t, 0, f.store.Load().Len())
	n, _ := f.workdir.Count()
	assert.Equal(t, 0, n)

	for _, id := range f.portal.CatalogIDs() {
		assert.Equal(t, 1, f.portal.FetchCount(id), id)
	}
	assert.Equal(t, 1, f.observer.cooldown, "cool-down only between sessions")
	assert.Equal(t, []string{"partial", "exhausted"}, f.observer.outcomes)
	assert.Equal(t, 0, f.portal.OpenDrivers())
}

func TestCooldownBetweenSessionsOnly(t *testing.T) {
	f := newFixture(t, 1, 5, portal.NewMockGroup("Germany", "de-1", "de-2"))

	_, err := f.run(t, context.Background())
	require.NoError(t, err)

	var cooldowns int
	for _, d := range f.sleeps {
		if d == 2*time.Minute {
			cooldowns++
		}
	}
	// session 1 stops at de-2, session 2 fetches it and exhausts
	assert.Equal(t, 2, len(f.observer.started))
	assert.Equal(t, 1, f.observer.cooldown)
	assert.GreaterOrEqual(t, cooldowns, 1)
}

func TestSessionCeilingStillArchives(t *testing.T) {
	f := newFixture(t, 2, 2, portal.NewMockGroup("Japan", ids("jp", 5)...))

	report, err := f.run(t, context.Background())
	require.NoError(t, err)

	assert.Equal(t, SessionCeilingReached, report.Termination)
	assert.Equal(t, 2, report.Sessions)
	assert.Equal(t, 4, report.Fetched)
	require.NotNil(t, report.Archive)
	assert.Equal(t, 4, report.Archive.FileCount())
	assert.Equal(t, 1, f.publisher.calls)
	assert.Equal(t, 0, f.store.Load().Len())
}

func TestCeilingWithNoProgress(t *testing.T) {
	f := newFixture(t, 20, 3, portal.NewMockGroup("Italy", "it-1"))
	f.portal.FailAuth[1] = true
	f.portal.FailAuth[2] = true
	f.portal.FailAuth[3] = true
	require.NoError(t, f.store.Save(ledger.NewSet("previous")))

	report, err := f.run(t, context.Background())
	require.NoError(t, err)

	assert.Equal(t, SessionCeilingReached, report.Termination)
	assert.Equal(t, 3, report.Sessions)
	assert.Equal(t, 3, report.FailedSessions)
	assert.Nil(t, report.Archive)
	assert.Equal(t, 0, f.publisher.calls)
	assert.True(t, f.store.Load().Has("previous"), "ledger untouched without artifacts")
	assert.Equal(t, 0, f.portal.OpenDrivers())
}

func TestNothingNewSkipsArchive(t *testing.T) {
	f := newFixture(t, 20, 20, portal.NewMockGroup("Sweden", "se-1", "se-2"))
	require.NoError(t, f.store.Save(ledger.NewSet("se-1", "se-2")))

	report, err := f.run(t, context.Background())
	require.NoError(t, err)

	assert.Equal(t, Exhausted, report.Termination)
	assert.Nil(t, report.Archive)
	assert.Equal(t, 0, f.publisher.calls)
	assert.Equal(t, 0, f.portal.FetchCount("se-1"))
	assert.Equal(t, 2, f.store.Load().Len())
}

func TestPublishFailureResetsByDefault(t *testing.T) {
	f := newFixture(t, 20, 20, portal.NewMockGroup("France", "fr-1"))
	f.publisher.err = errors.New("telegram down")

	report, err := f.run(t, context.Background())
	require.NoError(t, err, "publish failure is not fatal")

	assert.False(t, report.Published)
	assert.Error(t, report.PublishErr)
	assert.True(t, report.Cleaned)
	assert.Equal(t, 0, f.store.Load().Len())

	_, statErr := os.Stat(report.Archive.Path)
	assert.NoError(t, statErr, "archive kept on disk")
}

func TestPublishFailureKeepsStateWhenConfigured(t *testing.T) {
	f := newFixture(t, 20, 20, portal.NewMockGroup("France", "fr-1", "fr-2"))
	f.publisher.err = errors.New("telegram down")
	f.opts.KeepOnFailure = true

	report, err := f.run(t, context.Background())
	require.NoError(t, err)

	assert.False(t, report.Cleaned)
	assert.Equal(t, 2, f.store.Load().Len())
	n, _ := f.workdir.Count()
	assert.Equal(t, 2, n)

	// a later Finalize flushes the kept campaign
	f.publisher.err = nil
	h, err := New(f.opts)
	require.NoError(t, err)
	report, err = h.Finalize(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Published)
	assert.True(t, report.Cleaned)
	assert.Equal(t, 0, f.store.Load().Len())
}

func TestCancellationDuringCooldown(t *testing.T) {
	f := newFixture(t, 1, 5, portal.NewMockGroup("Norway", "no-1", "no-2", "no-3"))
	ctx, cancel := context.WithCancel(context.Background())
	f.opts.Pacer = pace.New(0, 0, time.Hour).WithSleep(func(ctx context.Context, d time.Duration) error {
		if d == time.Hour {
			cancel()
		}
		return ctx.Err()
	})

	report, err := f.run(t, ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, Aborted, report.Termination)
	assert.Equal(t, 0, f.publisher.calls, "no archive after cancellation")
	assert.Equal(t, ledger.NewSet("no-1"), f.store.Load(), "persisted progress survives")
}

func TestLedgerFailureAborts(t *testing.T) {
	f := newFixture(t, 20, 20, portal.NewMockGroup("Poland", "pl-1", "pl-2"))
	require.NoError(t, os.MkdirAll(filepath.Join(f.store.Path(), "blocker"), 0755))

	report, err := f.run(t, context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsFatal(err))
	assert.Equal(t, Aborted, report.Termination)
	assert.Equal(t, 1, report.Sessions)
	assert.Equal(t, 0, f.publisher.calls)
	assert.Equal(t, 0, f.portal.OpenDrivers())
}

func TestPanickingSessionIsRetried(t *testing.T) {
	f := newFixture(t, 20, 3, portal.NewMockGroup("Belgium", "be-1", "be-2"))
	f.portal.PanicFetch["be-2"] = true

	f.opts.Pacer = pace.New(0, 0, time.Minute).WithSleep(func(ctx context.Context, d time.Duration) error {
		if d == time.Minute {
			delete(f.portal.PanicFetch, "be-2")
		}
		return nil
	})

	report, err := f.run(t, context.Background())
	require.NoError(t, err)
	assert.Equal(t, Exhausted, report.Termination)
	assert.Equal(t, 2, report.Sessions)
	assert.Equal(t, 1, report.FailedSessions)
	assert.Len(t, f.publisher.entries, 2)
}

func TestNewValidates(t *testing.T) {
	_, err := New(Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "launcher is required")
	assert.Contains(t, err.Error(), "session ceiling must be at least 1")
}
