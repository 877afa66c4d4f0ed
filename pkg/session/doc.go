// Package session runs one logged-in pass over the portal catalog.
//
// A session moves through NEW, AUTHENTICATED, BROWSING_CATALOG, FETCHING,
// LOGGED_OUT and CLOSED. Run always ends in CLOSED: the browser is released
// whether the session finished, failed to log in, or panicked.
//
// Only two things stop a session with an error: a ledger write failure and
// context cancellation. Every other problem is logged, recorded in the
// Result and left for the next session to retry.
package session
