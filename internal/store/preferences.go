package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"
)

// Prefs is a string key-value namespace kept in the preferences table.
type Prefs struct {
	store     *Store
	namespace string
}

func (s *Store) Prefs(namespace string) *Prefs {
	return &Prefs{store: s, namespace: namespace}
}

func (p *Prefs) Namespace() string { return p.namespace }

func (p *Prefs) get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := p.store.db.QueryRowContext(ctx,
		`SELECT value FROM preferences WHERE namespace = ? AND key = ?`, p.namespace, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get preference %s/%s: %w", p.namespace, key, err)
	}
	return value, true, nil
}

// String returns the value for key, or fallback when it was never written.
func (p *Prefs) String(ctx context.Context, key, fallback string) (string, error) {
	v, ok, err := p.get(ctx, key)
	if err != nil || !ok {
		return fallback, err
	}
	return v, nil
}

// Bool returns the boolean value for key, or fallback when it was never written.
func (p *Prefs) Bool(ctx context.Context, key string, fallback bool) (bool, error) {
	v, ok, err := p.get(ctx, key)
	if err != nil || !ok {
		return fallback, err
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback, fmt.Errorf("preference %s/%s: %w", p.namespace, key, err)
	}
	return b, nil
}

// Put writes all values in a single transaction.
func (p *Prefs) Put(ctx context.Context, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	tx, err := p.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin preferences: %w", err)
	}
	for _, k := range keys {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO preferences (namespace, key, value) VALUES (?, ?, ?)
			 ON CONFLICT(namespace, key) DO UPDATE SET value = excluded.value`,
			p.namespace, k, values[k],
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("put preference %s/%s: %w", p.namespace, k, err)
		}
	}
	return tx.Commit()
}

// All returns every key-value pair in the namespace.
func (p *Prefs) All(ctx context.Context) (map[string]string, error) {
	rows, err := p.store.db.QueryContext(ctx,
		`SELECT key, value FROM preferences WHERE namespace = ? ORDER BY key`, p.namespace,
	)
	if err != nil {
		return nil, fmt.Errorf("list preferences %s: %w", p.namespace, err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}
