// Package logger provides structured logging for wgharvest.
//
// It wraps zerolog behind a small Logger interface so components can take
// a logger as a dependency and tests can swap in NewNopLogger or
// NewTestLogger.
//
//	if err := logger.Initialize(&cfg.Logging); err != nil {
//	    return err
//	}
//	log := logger.GetLogger().WithField("campaign", id)
//	log.Info("Harvest started")
//
// Console output is colourised and goes to stderr. When a log file is
// configured every event is also appended there.
package logger
