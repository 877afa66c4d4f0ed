package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"wgharvest/pkg/config"
	apperrors "wgharvest/pkg/errors"
	"wgharvest/pkg/logger"
	"wgharvest/pkg/portal"
	"wgharvest/pkg/storage"
)

// settle is the pause after clicks that trigger client-side rendering
const settle = 500 * time.Millisecond

// Driver drives one logged-in ProtonVPN dashboard session
type Driver struct {
	cfg     config.PortalConfig
	chrome  *launcher.Launcher
	browser *rod.Browser
	page    *rod.Page
	staging string
	workdir *storage.Manager
	logger  logger.Logger
	closed  bool
}

func (d *Driver) nav(ctx context.Context) *rod.Page {
	return d.page.Context(ctx).Timeout(d.cfg.NavigationTimeout)
}

// Authenticate fills the two-step login form
func (d *Driver) Authenticate(ctx context.Context, creds portal.Credentials) error {
	if !creds.Valid() {
		return apperrors.Session("login", errors.New("username and password are required"))
	}

	page := d.nav(ctx)
	if err := page.Navigate(d.cfg.LoginURL); err != nil {
		return apperrors.Transient("open login page", err)
	}
	if err := page.WaitLoad(); err != nil {
		d.logger.WithError(err).Debug("Login page did not report load, continuing")
	}

	steps := []struct {
		selector string
		text     string
	}{
		{selUsername, creds.Username},
		{selSubmit, ""},
		{selPassword, creds.Password},
		{selSubmit, ""},
	}
	for _, step := range steps {
		el, err := d.nav(ctx).Element(step.selector)
		if err != nil {
			return apperrors.Transient("login: find "+step.selector, err)
		}
		if step.text != "" {
			err = el.Input(step.text)
		} else {
			err = el.Click(proto.InputMouseButtonLeft, 1)
		}
		if err != nil {
			return apperrors.Transient("login: "+step.selector, err)
		}
		sleep(ctx, settle)
	}

	if _, err := d.nav(ctx).Element(selNavigation); err != nil {
		return apperrors.Session("login", fmt.Errorf("dashboard did not load: %w", err))
	}
	return nil
}

// OpenCatalog navigates to Downloads and selects the WireGuard tab and
// platform
func (d *Driver) OpenCatalog(ctx context.Context) error {
	for _, sel := range []string{selDownloadsNav, selWireGuardTab, selPlatformRadio} {
		if err := d.click(ctx, sel); err != nil {
			return apperrors.Transient("open catalog", err)
		}
		if sel == selDownloadsNav {
			// the tab strip sits above the fold after navigation
			if _, err := d.page.Context(ctx).Eval(`() => window.scrollTo(0, 0)`); err != nil {
				d.logger.WithError(err).Debug("Could not scroll to top")
			}
		}
		sleep(ctx, 2*settle)
	}
	return nil
}

// Groups lists the per-country <details> blocks
func (d *Driver) Groups(ctx context.Context) ([]portal.Group, error) {
	if _, err := d.nav(ctx).Element(selCountry); err != nil {
		return nil, apperrors.Transient("list countries", err)
	}
	els, err := d.page.Context(ctx).Elements(selCountry)
	if err != nil {
		return nil, apperrors.Transient("list countries", err)
	}

	groups := make([]portal.Group, 0, len(els))
	for i, el := range els {
		name := fmt.Sprintf("group-%d", i+1)
		if has, summary, err := el.Has(selCountryName); err == nil && has {
			if text, err := summary.Text(); err == nil {
				if n := countryName(text); n != "" {
					name = n
				}
			}
		}
		groups = append(groups, portal.Group{Name: name, Ref: el})
	}
	return groups, nil
}

// Entries expands the group and returns one entry per server row. The
// first row is the table header.
func (d *Driver) Entries(ctx context.Context, group portal.Group) ([]portal.Entry, error) {
	el, ok := group.Ref.(*rod.Element)
	if !ok {
		return nil, fmt.Errorf("group %q has no element", group.Name)
	}
	el = el.Context(ctx)

	if _, err := el.Eval(`() => this.open = true`); err != nil {
		return nil, apperrors.Transient("expand "+group.Name, err)
	}
	sleep(ctx, settle)

	rows, err := el.Elements(selRow)
	if err != nil {
		return nil, apperrors.Transient("list rows of "+group.Name, err)
	}
	if len(rows) <= 1 {
		return nil, nil
	}

	entries := make([]portal.Entry, 0, len(rows)-1)
	for _, row := range rows[1:] {
		has, cell, err := row.Has(selServerID)
		if err != nil || !has {
			continue
		}
		text, err := cell.Text()
		if err != nil {
			continue
		}
		id := strings.TrimSpace(text)
		if id == "" {
			continue
		}
		entries = append(entries, portal.Entry{ID: id, Group: group.Name, Ref: row})
	}
	return entries, nil
}

// Fetch clicks the row's download button, confirms the modal and moves the
// finished download into the working directory
func (d *Driver) Fetch(ctx context.Context, entry portal.Entry) (string, error) {
	row, ok := entry.Ref.(*rod.Element)
	if !ok {
		return "", fmt.Errorf("entry %s has no row", entry.ID)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, d.cfg.FetchTimeout)
	defer cancel()

	has, btn, err := row.Context(fetchCtx).Has(selRowButton)
	if err != nil || !has {
		return "", apperrors.Transient("find download button for "+entry.ID, errors.Join(err, errors.New("no button")))
	}
	if err := btn.ScrollIntoView(); err != nil {
		return "", apperrors.Transient("scroll to "+entry.ID, err)
	}

	wait := d.browser.Context(fetchCtx).WaitDownload(d.staging)

	if err := btn.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return "", apperrors.Transient("click download for "+entry.ID, err)
	}
	if err := d.confirm(fetchCtx); err != nil {
		return "", err
	}

	info := wait()
	if err := fetchCtx.Err(); err != nil {
		return "", apperrors.Transient("wait for download of "+entry.ID, err)
	}
	if info == nil || info.SuggestedFilename == "" {
		return "", apperrors.Transient("wait for download of "+entry.ID, errors.New("download did not start"))
	}

	name, err := d.workdir.Place(filepath.Join(d.staging, info.GUID), info.SuggestedFilename)
	if err != nil {
		return "", apperrors.Fetch("store download of "+entry.ID, err)
	}
	d.logger.WithField("file", name).Debug("Download landed")
	return name, nil
}

// confirm clicks the modal's confirm button and waits for the backdrop to go
func (d *Driver) confirm(ctx context.Context) error {
	page := d.page.Context(ctx)

	btn, err := page.Element(selConfirm)
	if err != nil {
		return apperrors.Transient("find confirm button", err)
	}
	if err := btn.WaitEnabled(); err != nil {
		return apperrors.Transient("confirm button", err)
	}
	if err := btn.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return apperrors.Transient("click confirm", err)
	}

	if has, backdrop, err := page.Has(selModalBackdrop); err == nil && has {
		if err := backdrop.WaitInvisible(); err != nil {
			return apperrors.Transient("wait for modal to close", err)
		}
	}
	return nil
}

// Logout opens the logout URL directly
func (d *Driver) Logout(ctx context.Context) error {
	page := d.nav(ctx)
	if err := page.Navigate(d.cfg.LogoutURL); err != nil {
		return apperrors.Transient("logout", err)
	}
	sleep(ctx, 2*settle)
	return nil
}

// LogoutFallback signs out through the account menu
func (d *Driver) LogoutFallback(ctx context.Context) error {
	for _, sel := range []string{selAccountMenu, selMenuSignOut} {
		if err := d.click(ctx, sel); err != nil {
			return apperrors.Transient("logout via menu", err)
		}
		sleep(ctx, 2*settle)
	}
	return nil
}

// Close shuts Chrome down and removes its profile and staging directories
func (d *Driver) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true

	err := d.browser.Close()
	d.chrome.Kill()
	d.chrome.Cleanup()
	if rmErr := os.RemoveAll(d.staging); rmErr != nil {
		err = errors.Join(err, rmErr)
	}
	return err
}

func (d *Driver) click(ctx context.Context, selector string) error {
	el, err := d.nav(ctx).Element(selector)
	if err != nil {
		return fmt.Errorf("element %s not found: %w", selector, err)
	}
	if err := el.WaitVisible(); err != nil {
		return fmt.Errorf("element %s not visible: %w", selector, err)
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

// countryName takes the first line of a <summary>, which also holds the
// server count
func countryName(summary string) string {
	first, _, _ := strings.Cut(summary, "\n")
	return strings.TrimSpace(first)
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
