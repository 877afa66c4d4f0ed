package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"wgharvest/pkg/logger"
	"wgharvest/pkg/portal"
	"wgharvest/pkg/ui"
)

// scheduleCmd represents the schedule command
var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run campaigns on a cron schedule",
	Long: `Stay in the foreground and start a campaign every time the cron expression
fires. A campaign that is still running when the next one is due is not
started twice.

The expression uses the standard five fields (minute hour day month weekday)
and comes from schedule.cron in the config file or --cron.`,
	Example: `  # Every Monday at 03:00
  wgharvest schedule --cron "0 3 * * 1"

  # Run one campaign right away, then follow the schedule
  wgharvest schedule --now`,
	Args: cobra.NoArgs,
	RunE: runSchedule,
}

var runNow bool

func init() {
	addRunFlags(scheduleCmd)
	scheduleCmd.Flags().String("cron", "", "cron expression (minute hour dom month dow)")
	scheduleCmd.Flags().BoolVar(&runNow, "now", false, "start a campaign immediately")
	rootCmd.AddCommand(scheduleCmd)
}

// cronLogger adapts the application logger to cron.Logger
type cronLogger struct {
	log logger.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.log.WithFields(pairs(keysAndValues)).Debug(msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.log.WithError(err).WithFields(pairs(keysAndValues)).Error(msg)
}

func pairs(kv []interface{}) map[string]interface{} {
	fields := make(map[string]interface{}, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		fields[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return fields
}

// newScheduler parses expr with the five-field parser and wraps jobs so a
// panic is logged and overlapping runs are skipped
func newScheduler(expr string, log logger.Logger, job func()) (*cron.Cron, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	cl := cronLogger{log: log.WithField("component", "scheduler")}
	c := cron.New(
		cron.WithParser(parser),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	if _, err := c.AddFunc(expr, job); err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return c, nil
}

func runSchedule(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	creds, err := a.credentials()
	if err != nil {
		return fmt.Errorf("no VPN credentials: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// SkipIfStillRunning only guards cron-started jobs; the --now run shares
	// this lock with them
	var mu sync.Mutex
	campaign := func() {
		if !mu.TryLock() {
			a.log.Warn("Previous campaign still running, skipping")
			return
		}
		defer mu.Unlock()
		runScheduled(ctx, a, creds)
	}

	c, err := newScheduler(a.cfg.Schedule.Cron, a.log, campaign)
	if err != nil {
		return err
	}

	ui.PrintInfo("Schedule", a.cfg.Schedule.Cron)
	c.Start()

	var wg sync.WaitGroup
	if runNow {
		wg.Add(1)
		go func() {
			defer wg.Done()
			campaign()
		}()
	}

	<-ctx.Done()
	ui.PrintWarning("Stopping scheduler")
	<-c.Stop().Done()
	wg.Wait()
	return nil
}

func runScheduled(ctx context.Context, a *app, creds portal.Credentials) {
	if ctx.Err() != nil {
		return
	}
	report, err := a.run(ctx, creds, nil)
	if report != nil {
		ui.PrintPanel("Campaign summary", reportRows(report))
	}
	if err != nil && ctx.Err() == nil {
		a.log.WithError(err).Error("Scheduled campaign failed")
	}
}
