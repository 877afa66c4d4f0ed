package session

// State is the lifecycle position of one portal session
type State int

const (
	StateNew State = iota
	StateAuthenticated
	StateBrowsingCatalog
	StateFetching
	StateLoggedOut
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StateAuthenticated:
		return "AUTHENTICATED"
	case StateBrowsingCatalog:
		return "BROWSING_CATALOG"
	case StateFetching:
		return "FETCHING"
	case StateLoggedOut:
		return "LOGGED_OUT"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Outcome labels for a finished session
const (
	OutcomeExhausted     = "exhausted"
	OutcomePartial       = "partial"
	OutcomeAuthFailed    = "auth_failed"
	OutcomeCatalogFailed = "catalog_failed"
	OutcomeLaunchFailed  = "launch_failed"
	OutcomeError         = "error"
)

// Result summarizes one session
type Result struct {
	State         State
	Outcome       string
	Exhausted     bool
	CapReached    bool
	Fetched       []string
	Failed        []string
	Skipped       int
	DrainedGroups []string
	// Err is the error that ended the session early, if any
	Err error
}
