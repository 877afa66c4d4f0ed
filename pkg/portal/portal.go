// Package portal defines what the harvester needs from the VPN account
// portal. A Driver drives one logged-in browser session; a Launcher starts
// a fresh Driver for every session.
package portal

import (
	"context"
	"fmt"
)

// Credentials for the portal account
type Credentials struct {
	Username string
	Password string
}

// Valid reports whether both fields are set
func (c Credentials) Valid() bool {
	return c.Username != "" && c.Password != ""
}

func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{Username: %s, Password: ***}", c.Username)
}

// Group is one top-level section of the catalog, usually a country
type Group struct {
	Name string
	Ref  any
}

// Entry is one fetchable artifact listed under a group
type Entry struct {
	ID    string
	Group string
	Ref   any
}

// Driver is a single portal session. Methods return an error for any
// failure; callers decide whether the failure ends the session.
type Driver interface {
	Authenticate(ctx context.Context, creds Credentials) error
	OpenCatalog(ctx context.Context) error
	Groups(ctx context.Context) ([]Group, error)
	Entries(ctx context.Context, group Group) ([]Entry, error)
	// Fetch triggers the download for entry, waits until the file has landed
	// in the working directory and returns its file name.
	Fetch(ctx context.Context, entry Entry) (string, error)
	Logout(ctx context.Context) error
	// LogoutFallback logs out through the account menu
	LogoutFallback(ctx context.Context) error
	// Close releases the browser. It is safe to call more than once.
	Close() error
}

// Launcher creates one Driver per session
type Launcher interface {
	Launch(ctx context.Context) (Driver, error)
}

// LauncherFunc adapts a function to the Launcher interface
type LauncherFunc func(ctx context.Context) (Driver, error)

func (f LauncherFunc) Launch(ctx context.Context) (Driver, error) {
	return f(ctx)
}
