package store

import (
	"database/sql"
	"errors"
	"time"
)

// GetPreference returns the value stored under key. ok is false when the
// key has never been set.
func (s *Store) GetPreference(key string) (value string, ok bool, err error) {
	err = s.db.QueryRow(`SELECT value FROM preferences WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, wrapErr("get preference "+key, err)
	}
	return value, true, nil
}

// SetPreference stores value under key, replacing any previous value.
func (s *Store) SetPreference(key, value string) error {
	query := `
		INSERT INTO preferences (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	if _, err := s.db.Exec(query, key, value, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return wrapErr("set preference "+key, err)
	}
	return nil
}

// DeletePreference removes key. Deleting a missing key is not an error.
func (s *Store) DeletePreference(key string) error {
	if _, err := s.db.Exec(`DELETE FROM preferences WHERE key = ?`, key); err != nil {
		return wrapErr("delete preference "+key, err)
	}
	return nil
}

// ListPreferences returns every stored preference.
func (s *Store) ListPreferences() (map[string]string, error) {
	rows, err := s.db.Query(`SELECT key, value FROM preferences ORDER BY key`)
	if err != nil {
		return nil, wrapErr("list preferences", err)
	}
	defer rows.Close()

	prefs := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, wrapErr("scan preference", err)
		}
		prefs[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("iterate preferences", err)
	}
	return prefs, nil
}

// Get implements brew.Preferences. Read failures look like a missing key.
func (s *Store) Get(key string) (string, bool) {
	value, ok, err := s.GetPreference(key)
	if err != nil {
		return "", false
	}
	return value, ok
}

// Set implements brew.Preferences.
func (s *Store) Set(key, value string) error {
	return s.SetPreference(key, value)
}
