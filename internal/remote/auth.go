package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/petervdpas/sudoku/internal/storage"
)

// Identity is the signed-in backend user.
type Identity struct {
	UserID       string    `json:"userId"`
	Token        string    `json:"token"`
	RefreshToken string    `json:"refreshToken"`
	Expiry       time.Time `json:"expiry"`
}

// Store keeps the serialized identity between runs.
type Store interface {
	String(key string) (string, error)
	SetString(key, v string) error
	Delete(key string) error
}

// Auth is the identity provider. It restores the persisted identity on
// construction.
type Auth struct {
	base
	store Store

	mu      sync.RWMutex
	current *Identity
}

func NewAuth(baseURL string, timeout time.Duration, store Store) (*Auth, error) {
	a := &Auth{base: newBase(baseURL, timeout), store: store}

	raw, err := store.String(storage.KeyRemoteIdentity)
	if err != nil {
		return nil, fmt.Errorf("load identity: %w", err)
	}
	if raw != "" {
		var id Identity
		if err := json.Unmarshal([]byte(raw), &id); err != nil {
			log.Warnw("discarding unreadable identity", "err", err)
			_ = store.Delete(storage.KeyRemoteIdentity)
		} else if id.UserID != "" {
			a.current = &id
		}
	}
	return a, nil
}

// CurrentIdentity returns a copy of the signed-in identity, or nil when
// nobody is signed in or the backend is disabled.
func (a *Auth) CurrentIdentity() *Identity {
	if !a.Enabled() {
		return nil
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.current == nil {
		return nil
	}
	id := *a.current
	return &id
}

// SignIn replaces the current identity and persists it.
func (a *Auth) SignIn(id Identity) error {
	if id.UserID == "" {
		return fmt.Errorf("sign in: empty user id")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.save(id); err != nil {
		return err
	}
	a.current = &id
	return nil
}

// SignOut clears the identity in memory and in storage. The in-memory
// identity is cleared even when the storage write fails.
func (a *Auth) SignOut() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.current = nil
	if err := a.store.Delete(storage.KeyRemoteIdentity); err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	return nil
}

func (a *Auth) save(id Identity) error {
	data, err := json.Marshal(id)
	if err != nil {
		return err
	}
	if err := a.store.SetString(storage.KeyRemoteIdentity, string(data)); err != nil {
		return fmt.Errorf("save identity: %w", err)
	}
	return nil
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type refreshResponse struct {
	Token        string    `json:"token"`
	RefreshToken string    `json:"refreshToken"`
	Expiry       time.Time `json:"expiry"`
}

// ForceRefresh exchanges the refresh token of id for a new token pair.
// A 401 or 403 from the backend yields ErrCredentialInvalid; other failures
// are returned wrapped. The new pair is stored only if id is still the
// current identity.
func (a *Auth) ForceRefresh(ctx context.Context, id Identity) error {
	if !a.Enabled() {
		return nil
	}

	body, err := json.Marshal(refreshRequest{RefreshToken: id.RefreshToken})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/auth/refresh", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	setAuthHeader(req.Header, id.Token)

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("refresh: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("refresh %s: %w", id.UserID, ErrCredentialInvalid)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return statusError("refresh", resp)
	}

	var out refreshResponse
	if err := readJSON(resp, &out); err != nil {
		return fmt.Errorf("refresh: decode: %w", err)
	}
	if out.Token == "" {
		return fmt.Errorf("refresh: empty token in response")
	}

	next := id
	next.Token = out.Token
	if out.RefreshToken != "" {
		next.RefreshToken = out.RefreshToken
	}
	next.Expiry = out.Expiry

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current == nil || a.current.UserID != id.UserID {
		log.Infow("dropping refresh for replaced identity", "user", id.UserID)
		return nil
	}
	if err := a.save(next); err != nil {
		return err
	}
	a.current = &next
	return nil
}
