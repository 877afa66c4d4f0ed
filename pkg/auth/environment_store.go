package auth

import (
	"os"
	"time"
)

// Environment variable pairs read by EnvironmentStore, in order of
// preference. The unprefixed pair matches existing CI secrets.
var envPairs = [][2]string{
	{"VPN_USERNAME", "VPN_PASSWORD"},
	{"WGHARVEST_VPN_USERNAME", "WGHARVEST_VPN_PASSWORD"},
}

// EnvironmentStore implements a read-only CredentialStore over environment
// variables
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(account *Account) error {
	return ErrStoreUnavailable
}

// Retrieve returns the account set in the environment. A non-empty
// username must match it.
func (e *EnvironmentStore) Retrieve(username string) (*Account, error) {
	user, pass, ok := lookupEnvPair()
	if !ok {
		return nil, ErrCredentialsNotFound
	}
	if username != "" && username != user {
		return nil, ErrCredentialsNotFound
	}

	return &Account{
		Username:     user,
		Password:     pass,
		LastModified: time.Now(),
	}, nil
}

// List returns a single account if environment variables are set
func (e *EnvironmentStore) List() ([]*Account, error) {
	account, err := e.Retrieve("")
	if err != nil {
		return []*Account{}, nil
	}
	return []*Account{account}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(username string) error {
	return ErrStoreUnavailable
}

// Exists checks if environment credentials exist
func (e *EnvironmentStore) Exists(username string) bool {
	_, err := e.Retrieve(username)
	return err == nil
}

func lookupEnvPair() (string, string, bool) {
	for _, pair := range envPairs {
		user, pass := os.Getenv(pair[0]), os.Getenv(pair[1])
		if user != "" && pass != "" {
			return user, pass, true
		}
	}
	return "", "", false
}
