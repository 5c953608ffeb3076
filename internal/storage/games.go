package storage

import (
	"fmt"
	"time"
)

// tsLayout is fixed-width so stored timestamps compare correctly as text.
const tsLayout = "2006-01-02T15:04:05.000000000Z"

// SavedGame is the local copy of a game document pulled from the backend.
// Payload is opaque to this package.
type SavedGame struct {
	ID        string
	UserID    string
	Payload   string
	UpdatedAt time.Time
}

// UpsertSavedGames stores games in one transaction. A row is only replaced
// when the incoming copy is at least as new as the stored one.
func (d *DB) UpsertSavedGames(games []SavedGame) (int, error) {
	if len(games) == 0 {
		return 0, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	tx, err := d.db.Begin()
	if err != nil {
		return 0, err
	}
	stmt, err := tx.Prepare(`
		INSERT INTO saved_games (id, user_id, payload, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, id) DO UPDATE SET
			payload    = excluded.payload,
			updated_at = excluded.updated_at
		WHERE excluded.updated_at >= saved_games.updated_at`)
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	defer stmt.Close()

	n := 0
	for _, g := range games {
		if g.ID == "" || g.UserID == "" {
			_ = tx.Rollback()
			return 0, fmt.Errorf("saved game missing id or user")
		}
		res, err := stmt.Exec(g.ID, g.UserID, g.Payload, g.UpdatedAt.UTC().Format(tsLayout))
		if err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("upsert saved game %s: %w", g.ID, err)
		}
		if c, _ := res.RowsAffected(); c > 0 {
			n++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return n, nil
}

// SavedGames lists the games for one user, newest first.
func (d *DB) SavedGames(userID string) ([]SavedGame, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	rows, err := d.db.Query(`
		SELECT id, user_id, payload, updated_at
		FROM saved_games WHERE user_id = ?
		ORDER BY updated_at DESC, id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SavedGame
	for rows.Next() {
		var g SavedGame
		var ts string
		if err := rows.Scan(&g.ID, &g.UserID, &g.Payload, &ts); err != nil {
			return nil, err
		}
		g.UpdatedAt, _ = time.Parse(tsLayout, ts)
		out = append(out, g)
	}
	return out, rows.Err()
}
