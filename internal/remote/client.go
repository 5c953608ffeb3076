// Package remote talks to the account backend: credential refresh and the
// saved-game stream.
package remote

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	logging "github.com/ipfs/go-log/v2"

	"github.com/petervdpas/sudoku/internal/util"
)

var log = logging.Logger("sudoku/remote")

var (
	// ErrCredentialInvalid means the backend rejected the refresh token.
	ErrCredentialInvalid = errors.New("credential rejected by backend")
	// ErrSyncIncomplete means the game stream ended before its done frame.
	ErrSyncIncomplete = errors.New("sync stream ended early")
)

// base holds what every backend client shares. An empty baseURL disables
// the backend.
type base struct {
	baseURL string
	timeout time.Duration
	client  *http.Client
}

func newBase(baseURL string, timeout time.Duration) base {
	if timeout <= 0 {
		timeout = util.DefaultFetchTimeout
	}
	return base{
		baseURL: util.NormalizeURL(baseURL),
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
	}
}

// Enabled reports whether a backend is configured.
func (b *base) Enabled() bool {
	return b.baseURL != ""
}

// readJSON reads resp.Body and unmarshals JSON into v.
func readJSON(resp *http.Response, v any) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	return json.Unmarshal(body, v)
}

// setAuthHeader sets Bearer authorization if token is non-empty.
func setAuthHeader(h http.Header, token string) {
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
}

func statusError(op string, resp *http.Response) error {
	return fmt.Errorf("%s: unexpected status %s", op, resp.Status)
}
