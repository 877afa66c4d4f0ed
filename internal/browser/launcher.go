package browser

import (
	"context"
	"fmt"
	"os"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"wgharvest/pkg/config"
	"wgharvest/pkg/logger"
	"wgharvest/pkg/portal"
	"wgharvest/pkg/storage"
)

const (
	windowWidth  = 1920
	windowHeight = 1080
)

// Launcher starts a fresh Chrome for every session
type Launcher struct {
	cfg     config.PortalConfig
	workdir *storage.Manager
	logger  logger.Logger
}

// NewLauncher creates a launcher whose drivers deliver downloads into workdir
func NewLauncher(cfg config.PortalConfig, workdir *storage.Manager, log logger.Logger) (*Launcher, error) {
	if workdir == nil {
		return nil, fmt.Errorf("browser launcher needs a working directory")
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &Launcher{
		cfg:     cfg,
		workdir: workdir,
		logger:  log.WithField("component", "browser"),
	}, nil
}

// chrome builds the launcher with the flags a container or CI runner needs
func (l *Launcher) chrome() *launcher.Launcher {
	c := launcher.New().
		Headless(l.cfg.Headless).
		NoSandbox(true).
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("window-size", fmt.Sprintf("%d,%d", windowWidth, windowHeight))

	if l.cfg.BrowserBin != "" {
		c = c.Bin(l.cfg.BrowserBin)
	} else if bin, ok := launcher.LookPath(); ok {
		c = c.Bin(bin)
	}
	return c
}

// Launch starts Chrome, connects to it and opens a blank page
func (l *Launcher) Launch(ctx context.Context) (portal.Driver, error) {
	chrome := l.chrome().Context(ctx)
	controlURL, err := chrome.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chrome: %w", err)
	}

	// the connection outlives ctx so a cancelled run can still log out
	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		chrome.Kill()
		chrome.Cleanup()
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = browser.Close()
		chrome.Cleanup()
		return nil, fmt.Errorf("open page: %w", err)
	}
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:  windowWidth,
		Height: windowHeight,
	}); err != nil {
		l.logger.WithError(err).Debug("Could not set viewport")
	}

	staging, err := os.MkdirTemp("", "wgharvest-download-*")
	if err != nil {
		_ = browser.Close()
		chrome.Cleanup()
		return nil, fmt.Errorf("create download staging dir: %w", err)
	}

	l.logger.WithField("headless", l.cfg.Headless).Debug("Browser started")
	return &Driver{
		cfg:     l.cfg,
		chrome:  chrome,
		browser: browser,
		page:    page,
		staging: staging,
		workdir: l.workdir,
		logger:  l.logger,
	}, nil
}
