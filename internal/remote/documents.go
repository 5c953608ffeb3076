package remote

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"github.com/petervdpas/sudoku/internal/util"
)

const maxFrameSize = 1 << 20

// SavedGame is one game record as the backend streams it. Payload is opaque.
type SavedGame struct {
	ID        string    `json:"id"`
	Payload   string    `json:"payload"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type frame struct {
	SavedGame
	Done bool `json:"done"`
}

// Documents is the remote saved-game store.
type Documents struct {
	base
	dialer websocket.Dialer
}

func NewDocuments(baseURL string, timeout time.Duration) *Documents {
	d := &Documents{base: newBase(baseURL, timeout)}
	d.dialer = websocket.Dialer{
		HandshakeTimeout: d.timeout,
		ReadBufferSize:   65536,
		WriteBufferSize:  1024,
	}
	return d
}

// SyncDown streams the saved games of id.UserID. The server sends one game
// per text frame and a final {"done":true}; a stream that ends before that,
// cleanly or not, returns ErrSyncIncomplete. Returns nil, nil when the
// backend is disabled.
func (d *Documents) SyncDown(ctx context.Context, id Identity) ([]SavedGame, error) {
	if !d.Enabled() {
		return nil, nil
	}

	target := fmt.Sprintf("%s/games/stream?user=%s", util.WebsocketURL(d.baseURL), url.QueryEscape(id.UserID))
	header := http.Header{}
	setAuthHeader(header, id.Token)

	conn, resp, err := d.dialer.DialContext(ctx, target, header)
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, fmt.Errorf("sync %s: %w", id.UserID, ErrCredentialInvalid)
		}
		return nil, fmt.Errorf("sync dial: %w", err)
	}
	defer conn.Close()
	conn.SetReadLimit(maxFrameSize)

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	var games []SavedGame
	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("sync after %d games: %w: %w", len(games), ErrSyncIncomplete, err)
		}
		if f.Done {
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return games, nil
		}
		if f.ID == "" {
			log.Warnw("skipping game frame without id", "user", id.UserID)
			continue
		}
		games = append(games, f.SavedGame)
	}
}
