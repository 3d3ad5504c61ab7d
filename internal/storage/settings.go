package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"maps"
)

func loadSettings(ctx context.Context, db *sql.DB) (map[string]json.RawMessage, error) {
	rows, err := db.QueryContext(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return nil, fmt.Errorf("query settings: %w", err)
	}
	defer rows.Close()

	settings := make(map[string]json.RawMessage)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		settings[key] = json.RawMessage(value)
	}
	return settings, rows.Err()
}

// Settings returns a copy of every setting.
func (s *Store) Settings() map[string]json.RawMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.settings)
}

// Setting returns the raw JSON value stored under key.
func (s *Store) Setting(key string) (json.RawMessage, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.settings[key]
	return v, ok
}

// SettingString returns the setting under key when it holds a JSON string,
// and "" otherwise.
func (s *Store) SettingString(key string) string {
	raw, ok := s.Setting(key)
	if !ok {
		return ""
	}
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}
	return v
}

// SetSetting stores value, encoded as JSON, under key.
func (s *Store) SetSetting(ctx context.Context, key string, value any) error {
	if key == "" {
		return invalid("key", "must not be empty")
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return invalid("value", "not encodable: %v", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, string(raw),
	)
	if err != nil {
		return fmt.Errorf("save setting %s: %w", key, err)
	}
	s.settings[key] = raw
	return nil
}

// DeleteSetting removes key. Removing an absent key is not an error.
func (s *Store) DeleteSetting(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx, `DELETE FROM settings WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete setting %s: %w", key, err)
	}
	delete(s.settings, key)
	return nil
}
