package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sort"
	"time"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = "wgharvest"
	keyringPrefix  = "vpn_"
	// go-keyring cannot enumerate, so known usernames live under one entry
	keyringIndex   = "accounts"
	keyringProbe   = "probe"
)

// keyringSecret is what gets stored per account; the username is the key
type keyringSecret struct {
	Password string    `json:"password"`
	Modified time.Time `json:"modified"`
}

// KeyringStore keeps portal accounts in the system keychain
type KeyringStore struct{}

// NewKeyringStore fails when the keychain cannot be written
func NewKeyringStore() (*KeyringStore, error) {
	if err := keyring.Set(keyringService, keyringProbe, "ok"); err != nil {
		return nil, fmt.Errorf("keyring not available: %w", err)
	}
	_ = keyring.Delete(keyringService, keyringProbe)
	return &KeyringStore{}, nil
}

func (k *KeyringStore) Store(account *Account) error {
	if account == nil || account.Username == "" {
		return ErrInvalidCredentials
	}

	data, err := json.Marshal(keyringSecret{Password: account.Password, Modified: account.LastModified})
	if err != nil {
		return fmt.Errorf("encode keyring entry: %w", err)
	}
	if err := keyring.Set(keyringService, keyringPrefix+account.Username, string(data)); err != nil {
		return fmt.Errorf("write keyring entry: %w", err)
	}

	users := k.index()
	for _, u := range users {
		if u == account.Username {
			return nil
		}
	}
	return k.writeIndex(append(users, account.Username))
}

func (k *KeyringStore) Retrieve(username string) (*Account, error) {
	if username == "" {
		return nil, ErrInvalidCredentials
	}

	data, err := keyring.Get(keyringService, keyringPrefix+username)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, ErrCredentialsNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read keyring entry: %w", err)
	}

	var secret keyringSecret
	if err := json.Unmarshal([]byte(data), &secret); err != nil {
		return nil, fmt.Errorf("decode keyring entry: %w", err)
	}
	return &Account{Username: username, Password: secret.Password, LastModified: secret.Modified}, nil
}

// List returns the indexed accounts that still have a keychain entry
func (k *KeyringStore) List() ([]*Account, error) {
	accounts := []*Account{}
	for _, u := range k.index() {
		if account, err := k.Retrieve(u); err == nil {
			accounts = append(accounts, account)
		}
	}
	return accounts, nil
}

func (k *KeyringStore) Delete(username string) error {
	if username == "" {
		return ErrInvalidCredentials
	}

	err := keyring.Delete(keyringService, keyringPrefix+username)
	if errors.Is(err, keyring.ErrNotFound) {
		return ErrCredentialsNotFound
	}
	if err != nil {
		return fmt.Errorf("delete keyring entry: %w", err)
	}

	users := k.index()
	kept := users[:0]
	for _, u := range users {
		if u != username {
			kept = append(kept, u)
		}
	}
	return k.writeIndex(kept)
}

func (k *KeyringStore) Exists(username string) bool {
	if username == "" {
		return false
	}
	_, err := keyring.Get(keyringService, keyringPrefix+username)
	return err == nil
}

// index returns known usernames; a missing or unreadable index is empty
func (k *KeyringStore) index() []string {
	data, err := keyring.Get(keyringService, keyringIndex)
	if err != nil {
		return nil
	}
	var users []string
	if json.Unmarshal([]byte(data), &users) != nil {
		return nil
	}
	return users
}

func (k *KeyringStore) writeIndex(users []string) error {
	if len(users) == 0 {
		err := keyring.Delete(keyringService, keyringIndex)
		if err != nil && !errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("clear keyring index: %w", err)
		}
		return nil
	}

	sort.Strings(users)
	data, err := json.Marshal(users)
	if err != nil {
		return fmt.Errorf("encode keyring index: %w", err)
	}
	if err := keyring.Set(keyringService, keyringIndex, string(data)); err != nil {
		return fmt.Errorf("write keyring index: %w", err)
	}
	return nil
}

// IsKeyringAvailable reports whether a system keychain is likely reachable.
// On Linux that needs a D-Bus session for the Secret Service.
func IsKeyringAvailable() bool {
	switch runtime.GOOS {
	case "darwin", "windows":
		return true
	case "linux", "freebsd", "openbsd":
		return os.Getenv("DBUS_SESSION_BUS_ADDRESS") != ""
	default:
		return false
	}
}
