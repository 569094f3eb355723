package db

import "context"

// GetSetting fetches a single settings entry.
func (q *Queries) GetSetting(ctx context.Context, key string) (Setting, error) {
	var s Setting
	err := q.db.QueryRow(ctx,
		`SELECT key, value, updated_at FROM site_settings WHERE key = $1`, key).
		Scan(&s.Key, &s.Value, &s.UpdatedAt)
	return s, err
}

// ListSettings returns all settings entries sorted by key.
func (q *Queries) ListSettings(ctx context.Context) ([]Setting, error) {
	rows, err := q.db.Query(ctx,
		`SELECT key, value, updated_at FROM site_settings ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var settings []Setting
	for rows.Next() {
		var s Setting
		if err := rows.Scan(&s.Key, &s.Value, &s.UpdatedAt); err != nil {
			return nil, err
		}
		settings = append(settings, s)
	}
	return settings, rows.Err()
}

// UpsertSetting creates or replaces a settings entry.
func (q *Queries) UpsertSetting(ctx context.Context, key, value string) (Setting, error) {
	var s Setting
	err := q.db.QueryRow(ctx,
		`INSERT INTO site_settings (key, value) VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
		 RETURNING key, value, updated_at`, key, value).
		Scan(&s.Key, &s.Value, &s.UpdatedAt)
	return s, err
}

// DeleteSetting removes a settings entry.
func (q *Queries) DeleteSetting(ctx context.Context, key string) (int64, error) {
	tag, err := q.db.Exec(ctx, `DELETE FROM site_settings WHERE key = $1`, key)
	return tag.RowsAffected(), err
}
