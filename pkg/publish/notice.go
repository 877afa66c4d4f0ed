package publish

import (
	"context"
	"fmt"

	"wgharvest/pkg/ui"
)

// Notice announces the archive on the terminal and, when enabled, on the
// desktop. It is the fallback when no remote destination is configured.
type Notice struct {
	notifier *ui.Notifier
}

// NewNotice creates a notice publisher
func NewNotice(notifier *ui.Notifier) *Notice {
	if notifier == nil {
		notifier = ui.NewNotifier(false)
	}
	return &Notice{notifier: notifier}
}

func (n *Notice) Name() string {
	if n.notifier.Desktop() {
		return "desktop"
	}
	return "log"
}

func (n *Notice) Publish(ctx context.Context, archivePath string, meta Metadata) error {
	msg := fmt.Sprintf("%s ready: %d files across %d countries", archivePath, meta.FileCount, meta.CategoryCount)
	return n.notifier.SendSuccess("Harvest complete", msg)
}
