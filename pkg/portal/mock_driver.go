package portal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"wgharvest/pkg/storage"
)

// ErrMock is returned by injected failures
var ErrMock = errors.New("mock portal failure")

// MockEntry is a catalog row served by MockPortal
type MockEntry struct {
	ID       string
	FileName string
	Content  string
}

// MockGroup is a catalog group served by MockPortal
type MockGroup struct {
	Name    string
	Entries []MockEntry
}

// NewMockGroup builds a group whose entries download as wg-<id>.conf
func NewMockGroup(name string, ids ...string) MockGroup {
	g := MockGroup{Name: name}
	for _, id := range ids {
		g.Entries = append(g.Entries, MockEntry{
			ID:       id,
			FileName: "wg-" + id + ".conf",
			Content:  "[Interface]\n# " + id + "\n",
		})
	}
	return g
}

// MockPortal simulates the portal across sessions. It implements Launcher
// and writes fetched files into the working directory.
type MockPortal struct {
	mu      sync.Mutex
	catalog []MockGroup
	workdir *storage.Manager

	// Failure injection, keyed by 1-based session number where noted
	FailLaunch  map[int]bool
	FailAuth    map[int]bool
	FailOpen    map[int]bool
	FailGroups  map[int]bool
	FailEntries map[string]bool // group name
	FailFetch   map[string]int  // entry id -> remaining failures
	PanicFetch  map[string]bool // entry id
	PanicAuth   map[int]bool
	FailLogout  bool
	FailMenu    bool
	PanicLogout bool

	sessions   int
	open       int
	fetches    map[string]int
	fetchOrder []string
	logouts    []string
}

// NewMockPortal creates a portal serving groups
func NewMockPortal(workdir *storage.Manager, groups ...MockGroup) *MockPortal {
	return &MockPortal{
		catalog:     groups,
		workdir:     workdir,
		FailLaunch:  map[int]bool{},
		FailAuth:    map[int]bool{},
		FailOpen:    map[int]bool{},
		FailGroups:  map[int]bool{},
		FailEntries: map[string]bool{},
		FailFetch:   map[string]int{},
		PanicFetch:  map[string]bool{},
		PanicAuth:   map[int]bool{},
		fetches:     map[string]int{},
	}
}

// Launch starts a new mock session
func (p *MockPortal) Launch(ctx context.Context) (Driver, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.sessions++
	if p.FailLaunch[p.sessions] {
		return nil, fmt.Errorf("launch session %d: %w", p.sessions, ErrMock)
	}
	p.open++
	return &MockDriver{portal: p, session: p.sessions}, nil
}

// AddGroup appends a group, simulating the portal listing new servers
func (p *MockPortal) AddGroup(g MockGroup) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.catalog = append(p.catalog, g)
}

// CatalogIDs returns every entry id in catalog order
func (p *MockPortal) CatalogIDs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	var ids []string
	for _, g := range p.catalog {
		for _, e := range g.Entries {
			ids = append(ids, e.ID)
		}
	}
	return ids
}

// Sessions returns how many sessions were launched
func (p *MockPortal) Sessions() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sessions
}

// OpenDrivers returns drivers launched but not yet closed
func (p *MockPortal) OpenDrivers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.open
}

// FetchCount returns how many times id was fetched successfully
func (p *MockPortal) FetchCount(id string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fetches[id]
}

// FetchOrder returns successfully fetched ids in order
func (p *MockPortal) FetchOrder() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.fetchOrder...)
}

// Logouts returns the logout path used by each session: "direct", "menu"
// or "failed"
func (p *MockPortal) Logouts() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.logouts...)
}

// MockDriver is one scripted session against a MockPortal
type MockDriver struct {
	portal        *MockPortal
	session       int
	authenticated bool
	catalogOpen   bool
	closed        bool
}

func (d *MockDriver) Authenticate(ctx context.Context, creds Credentials) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p := d.portal
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.PanicAuth[d.session] {
		panic("mock portal: connection lost during login")
	}
	if p.FailAuth[d.session] || !creds.Valid() {
		return fmt.Errorf("login: %w", ErrMock)
	}
	d.authenticated = true
	return nil
}

func (d *MockDriver) OpenCatalog(ctx context.Context) error {
	p := d.portal
	p.mu.Lock()
	defer p.mu.Unlock()

	if !d.authenticated {
		return errors.New("open catalog: not logged in")
	}
	if p.FailOpen[d.session] {
		return fmt.Errorf("open catalog: %w", ErrMock)
	}
	d.catalogOpen = true
	return nil
}

func (d *MockDriver) Groups(ctx context.Context) ([]Group, error) {
	p := d.portal
	p.mu.Lock()
	defer p.mu.Unlock()

	if !d.catalogOpen {
		return nil, errors.New("list groups: catalog not open")
	}
	if p.FailGroups[d.session] {
		return nil, fmt.Errorf("list groups: %w", ErrMock)
	}

	groups := make([]Group, 0, len(p.catalog))
	for i, g := range p.catalog {
		groups = append(groups, Group{Name: g.Name, Ref: i})
	}
	return groups, nil
}

func (d *MockDriver) Entries(ctx context.Context, group Group) ([]Entry, error) {
	p := d.portal
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.FailEntries[group.Name] {
		return nil, fmt.Errorf("list entries of %s: %w", group.Name, ErrMock)
	}
	idx, ok := group.Ref.(int)
	if !ok || idx < 0 || idx >= len(p.catalog) {
		return nil, fmt.Errorf("unknown group %q", group.Name)
	}

	src := p.catalog[idx].Entries
	entries := make([]Entry, 0, len(src))
	for _, e := range src {
		entries = append(entries, Entry{ID: e.ID, Group: group.Name, Ref: e})
	}
	return entries, nil
}

func (d *MockDriver) Fetch(ctx context.Context, entry Entry) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p := d.portal
	p.mu.Lock()

	if p.PanicFetch[entry.ID] {
		p.mu.Unlock()
		panic("mock portal: page crashed while fetching " + entry.ID)
	}
	if p.FailFetch[entry.ID] > 0 {
		p.FailFetch[entry.ID]--
		p.mu.Unlock()
		return "", fmt.Errorf("fetch %s: %w", entry.ID, ErrMock)
	}
	src, ok := entry.Ref.(MockEntry)
	p.mu.Unlock()

	if !ok {
		return "", fmt.Errorf("fetch %s: entry has no download", entry.ID)
	}

	name, err := p.workdir.Save(strings.NewReader(src.Content), src.FileName)
	if err != nil {
		return "", err
	}

	p.mu.Lock()
	p.fetches[entry.ID]++
	p.fetchOrder = append(p.fetchOrder, entry.ID)
	p.mu.Unlock()
	return name, nil
}

func (d *MockDriver) Logout(ctx context.Context) error {
	p := d.portal
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.PanicLogout {
		p.logouts = append(p.logouts, "panic")
		panic("mock portal: connection lost during logout")
	}
	if p.FailLogout {
		return fmt.Errorf("logout: %w", ErrMock)
	}
	p.logouts = append(p.logouts, "direct")
	return nil
}

func (d *MockDriver) LogoutFallback(ctx context.Context) error {
	p := d.portal
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.FailMenu {
		p.logouts = append(p.logouts, "failed")
		return fmt.Errorf("logout via menu: %w", ErrMock)
	}
	p.logouts = append(p.logouts, "menu")
	return nil
}

func (d *MockDriver) Close() error {
	p := d.portal
	p.mu.Lock()
	defer p.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true
	p.open--
	return nil
}
