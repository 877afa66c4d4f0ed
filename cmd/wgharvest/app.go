package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"wgharvest/internal/browser"
	"wgharvest/pkg/archive"
	"wgharvest/pkg/auth"
	"wgharvest/pkg/config"
	"wgharvest/pkg/harvester"
	"wgharvest/pkg/ledger"
	"wgharvest/pkg/logger"
	"wgharvest/pkg/metrics"
	"wgharvest/pkg/pace"
	"wgharvest/pkg/portal"
	"wgharvest/pkg/publish"
	"wgharvest/pkg/storage"
)

// app holds the components shared by the commands
type app struct {
	cfg       *config.Config
	log       logger.Logger
	metrics   *metrics.Metrics
	workdir   *storage.Manager
	ledger    *ledger.Store
	archive   *archive.Builder
	publisher publish.Publisher
}

// collectFlags gathers the flags the user actually set, keyed by name, in
// the shape config.MergeCommandLineFlags expects
func collectFlags(cmd *cobra.Command) map[string]interface{} {
	flags := make(map[string]interface{})
	cmd.Flags().Visit(func(f *pflag.Flag) {
		switch f.Value.Type() {
		case "int":
			if v, err := cmd.Flags().GetInt(f.Name); err == nil {
				flags[f.Name] = v
			}
		case "bool":
			if v, err := cmd.Flags().GetBool(f.Name); err == nil {
				flags[f.Name] = v
			}
		case "duration":
			if v, err := cmd.Flags().GetDuration(f.Name); err == nil {
				flags[f.Name] = v
			}
		default:
			flags[f.Name] = f.Value.String()
		}
	})
	return flags
}

// loadConfig loads configuration and initializes the global logger
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configFile, collectFlags(cmd))
	if err != nil {
		return nil, err
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, nil
}

// newApp loads configuration and builds the storage, ledger, archive and
// publish components
func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return newAppFromConfig(cfg, logger.GetLogger())
}

func newAppFromConfig(cfg *config.Config, log logger.Logger) (*app, error) {
	workdir, err := storage.NewManager(cfg.Output.WorkingDir, cfg.Output.Extension)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare working directory: %w", err)
	}

	m := metrics.New()
	store := ledger.NewStore(cfg.Output.LedgerFile, log)

	publisher, err := publish.FromConfig(cfg.Publish, m, log)
	if err != nil {
		return nil, fmt.Errorf("failed to configure publishers: %w", err)
	}

	return &app{
		cfg:       cfg,
		log:       log,
		metrics:   m,
		workdir:   workdir,
		ledger:    store,
		archive:   archive.NewBuilder(workdir, store, cfg.Output.ArchiveFile, log),
		publisher: publisher,
	}, nil
}

// credentials resolves the portal login from config, environment and the
// credential stores
func (a *app) credentials() (portal.Credentials, error) {
	username := a.cfg.Credentials.Username
	if username == "" {
		username = a.cfg.Credentials.Account
	}
	creds := portal.Credentials{Username: username, Password: a.cfg.Credentials.Password}
	if creds.Valid() {
		return creds, nil
	}

	manager, err := auth.NewManager()
	if err != nil {
		a.log.WithError(err).Debug("Credential stores unavailable")
		return creds, auth.ErrCredentialsNotFound
	}
	return manager.Resolve(username, a.cfg.Credentials.Password)
}

// harvester builds an orchestrator around launcher
func (a *app) harvester(launcher portal.Launcher, creds portal.Credentials, observer harvester.Observer) (*harvester.Harvester, error) {
	s := a.cfg.Session
	return harvester.New(harvester.Options{
		Launcher:      launcher,
		Credentials:   creds,
		Ledger:        a.ledger,
		Archive:       a.archive,
		Publisher:     a.publisher,
		Pacer:         pace.New(s.FetchDelayMin, s.FetchDelayMax, s.Cooldown),
		ArtifactCap:   s.ArtifactCap,
		Ceiling:       s.Ceiling,
		FetchRetries:  s.FetchRetries,
		RetryDelay:    5 * time.Second,
		KeepOnFailure: a.cfg.Publish.KeepOnFailure,
		Metrics:       a.metrics,
		Logger:        a.log,
		Observer:      observer,
	})
}

// run performs one full campaign with the browser driver
func (a *app) run(ctx context.Context, creds portal.Credentials, observer harvester.Observer) (*harvester.Report, error) {
	launcher, err := browser.NewLauncher(a.cfg.Portal, a.workdir, a.log)
	if err != nil {
		return nil, err
	}
	h, err := a.harvester(launcher, creds, observer)
	if err != nil {
		return nil, err
	}

	report, runErr := h.Run(ctx)
	a.writeMetrics()
	return report, runErr
}

func (a *app) writeMetrics() {
	if err := a.metrics.WriteTextfile(a.cfg.Metrics.TextfilePath); err != nil {
		a.log.WithError(err).Warn("Failed to write metrics textfile")
	}
}

// reportRows renders a run report for ui.PrintPanel
func reportRows(r *harvester.Report) [][2]string {
	if r == nil {
		return nil
	}
	rows := [][2]string{
		{"Campaign", r.CampaignID},
		{"Result", string(r.Termination)},
		{"Sessions", fmt.Sprintf("%d (%d failed)", r.Sessions, r.FailedSessions)},
		{"Fetched", fmt.Sprintf("%d", r.Fetched)},
	}
	if r.Archive != nil {
		rows = append(rows,
			[2]string{"Archive", r.Archive.Path},
			[2]string{"Files", fmt.Sprintf("%d in %d countries", r.Archive.FileCount(), r.Archive.CategoryCount())},
		)
	} else if r.Termination != harvester.Aborted {
		rows = append(rows, [2]string{"Archive", "nothing new"})
	}
	switch {
	case r.PublishErr != nil:
		rows = append(rows, [2]string{"Published", "failed: " + r.PublishErr.Error()})
	case r.Published:
		rows = append(rows, [2]string{"Published", "yes"})
	}
	if r.Duration > 0 {
		rows = append(rows, [2]string{"Duration", r.Duration.Round(time.Second).String()})
	}
	return rows
}
