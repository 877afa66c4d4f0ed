package publish

import (
	"fmt"

	"wgharvest/pkg/config"
	"wgharvest/pkg/logger"
	"wgharvest/pkg/metrics"
	"wgharvest/pkg/ui"
)

// FromConfig builds the publisher for cfg: every configured remote
// destination plus a terminal notice when none is configured or desktop
// notifications are on.
func FromConfig(cfg config.PublishConfig, m *metrics.Metrics, log logger.Logger) (*Multi, error) {
	var publishers []Publisher

	if cfg.Telegram.Enabled() {
		publishers = append(publishers, NewTelegram(cfg.Telegram))
	}
	if cfg.S3.Enabled() {
		s3, err := NewS3(cfg.S3)
		if err != nil {
			return nil, fmt.Errorf("s3 publisher: %w", err)
		}
		publishers = append(publishers, s3)
	}
	if len(publishers) == 0 || cfg.Desktop {
		publishers = append(publishers, NewNotice(ui.NewNotifier(cfg.Desktop)))
	}

	return NewMulti(publishers, cfg.MaxAttempts, m, log), nil
}
