package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
)

// Persisted scalar keys.
const (
	KeyDarkMode            = "darkMode"
	KeyUseSystemAppearance = "useSystemAppearance"
	KeyBejMode             = "bejMode"
	KeyHighContrastMode    = "highContrastMode"
	KeyBoardColor          = "sudokuBoardColor"
	KeyLastBackgroundTime  = "lastBackgroundTime"
	KeyRemoteIdentity      = "remoteIdentity"
)

// Defaults holds the value reported for a key that was never written.
var Defaults = map[string]string{
	KeyDarkMode:            "false",
	KeyUseSystemAppearance: "false",
	KeyBejMode:             "false",
	KeyHighContrastMode:    "false",
	KeyBoardColor:          "blue",
	KeyLastBackgroundTime:  "0",
	KeyRemoteIdentity:      "",
}

// raw returns the stored value for key, or its default when unset.
func (d *DB) raw(key string) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var v string
	err := d.db.QueryRow(`SELECT value FROM prefs WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return Defaults[key], nil
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", key, err)
	}
	return v, nil
}

func (d *DB) put(key, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	_, err := d.db.Exec(`
		INSERT INTO prefs (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			value      = excluded.value,
			updated_at = CURRENT_TIMESTAMP`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// Delete removes key so later reads see its default.
func (d *DB) Delete(key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, err := d.db.Exec(`DELETE FROM prefs WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (d *DB) Bool(key string) (bool, error) {
	v, err := d.raw(key)
	if err != nil {
		return false, err
	}
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", key, err)
	}
	return b, nil
}

func (d *DB) SetBool(key string, v bool) error {
	return d.put(key, strconv.FormatBool(v))
}

func (d *DB) String(key string) (string, error) {
	return d.raw(key)
}

func (d *DB) SetString(key, v string) error {
	return d.put(key, v)
}

func (d *DB) Float(key string) (float64, error) {
	v, err := d.raw(key)
	if err != nil {
		return 0, err
	}
	if v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return f, nil
}

func (d *DB) SetFloat(key string, v float64) error {
	return d.put(key, strconv.FormatFloat(v, 'f', -1, 64))
}

// Prefs returns every stored key with defaults filled in for unset ones.
func (d *DB) Prefs() (map[string]string, error) {
	out := make(map[string]string, len(Defaults))
	for k, v := range Defaults {
		out[k] = v
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	rows, err := d.db.Query(`SELECT key, value FROM prefs ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}
