// Package tags keeps named groups of node public keys in a sqlite database.
package tags

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/iksnae/corebos/internal"
	"github.com/iksnae/corebos/internal/credentials"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS tags (
	alias      TEXT PRIMARY KEY,
	icon       TEXT NOT NULL DEFAULT '',
	is_avoided INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS tag_nodes (
	alias      TEXT NOT NULL REFERENCES tags(alias) ON DELETE CASCADE,
	public_key TEXT NOT NULL,
	PRIMARY KEY (alias, public_key)
);`

// Tag is a named set of node public keys.
type Tag struct {
	Alias     string   `json:"alias" yaml:"alias"`
	Icon      string   `json:"icon,omitempty" yaml:"icon,omitempty"`
	IsAvoided bool     `json:"is_avoided,omitempty" yaml:"is_avoided,omitempty"`
	Nodes     []string `json:"nodes" yaml:"nodes"`
}

// Adjustment describes changes to one tag. Nil IsAvoided leaves the flag as is.
type Adjustment struct {
	Tag       string
	Add       []string
	Remove    []string
	Icon      *string // nil leaves the icon as is; "" clears it
	IsAvoided *bool
}

// Store reads and writes tags
type Store struct {
	db *sql.DB
}

// Open opens or creates the tag database at path
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	s, err := New(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an open database, creating the tables when missing
func New(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create tag tables: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// List returns every tag ordered by alias
func (s *Store) List(ctx context.Context) ([]Tag, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT alias, icon, is_avoided FROM tags ORDER BY alias")
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	tags := []Tag{}
	for rows.Next() {
		var tag Tag
		if err := rows.Scan(&tag.Alias, &tag.Icon, &tag.IsAvoided); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	for i := range tags {
		if tags[i].Nodes, err = s.nodes(ctx, s.db, tags[i].Alias); err != nil {
			return nil, err
		}
	}
	return tags, nil
}

// Get returns one tag
func (s *Store) Get(ctx context.Context, alias string) (Tag, error) {
	return s.get(ctx, s.db, normalizeAlias(alias))
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func (s *Store) get(ctx context.Context, q querier, alias string) (Tag, error) {
	tag := Tag{Alias: alias}
	err := q.QueryRowContext(ctx, "SELECT icon, is_avoided FROM tags WHERE alias = ?", alias).Scan(&tag.Icon, &tag.IsAvoided)
	if errors.Is(err, sql.ErrNoRows) {
		return Tag{}, internal.Errorf(internal.KindInvalidArgument, "ExpectedExistingTag", "no tag named %q", alias)
	}
	if err != nil {
		return Tag{}, fmt.Errorf("query failed: %w", err)
	}

	if tag.Nodes, err = s.nodes(ctx, q, alias); err != nil {
		return Tag{}, err
	}
	return tag, nil
}

func (s *Store) nodes(ctx context.Context, q querier, alias string) ([]string, error) {
	rows, err := q.QueryContext(ctx, "SELECT public_key FROM tag_nodes WHERE alias = ? ORDER BY rowid", alias)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	nodes := []string{}
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		nodes = append(nodes, key)
	}
	return nodes, rows.Err()
}

// Adjust creates the tag when missing and applies adj in one transaction.
func (s *Store) Adjust(ctx context.Context, adj Adjustment) (Tag, error) {
	alias := normalizeAlias(adj.Tag)
	if alias == "" {
		return Tag{}, internal.Errorf(internal.KindInvalidArgument, "ExpectedTagNameToAdjustTag", "a tag name is required")
	}
	for _, key := range append(append([]string{}, adj.Add...), adj.Remove...) {
		if !credentials.IsPublicKey(key) {
			return Tag{}, internal.Errorf(internal.KindInvalidPublicKey, "ExpectedPublicKeyToAdjustTag", "%q is not a node public key", key)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Tag{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "INSERT INTO tags (alias) VALUES (?) ON CONFLICT (alias) DO NOTHING", alias); err != nil {
		return Tag{}, fmt.Errorf("failed to create tag: %w", err)
	}
	if adj.Icon != nil {
		if _, err := tx.ExecContext(ctx, "UPDATE tags SET icon = ? WHERE alias = ?", *adj.Icon, alias); err != nil {
			return Tag{}, fmt.Errorf("failed to set icon: %w", err)
		}
	}
	if adj.IsAvoided != nil {
		if _, err := tx.ExecContext(ctx, "UPDATE tags SET is_avoided = ? WHERE alias = ?", *adj.IsAvoided, alias); err != nil {
			return Tag{}, fmt.Errorf("failed to set avoid flag: %w", err)
		}
	}
	for _, key := range adj.Add {
		if _, err := tx.ExecContext(ctx, "INSERT OR IGNORE INTO tag_nodes (alias, public_key) VALUES (?, ?)", alias, strings.ToLower(key)); err != nil {
			return Tag{}, fmt.Errorf("failed to add node: %w", err)
		}
	}
	for _, key := range adj.Remove {
		if _, err := tx.ExecContext(ctx, "DELETE FROM tag_nodes WHERE alias = ? AND public_key = ?", alias, strings.ToLower(key)); err != nil {
			return Tag{}, fmt.Errorf("failed to remove node: %w", err)
		}
	}

	tag, err := s.get(ctx, tx, alias)
	if err != nil {
		return Tag{}, err
	}
	if err := tx.Commit(); err != nil {
		return Tag{}, fmt.Errorf("failed to commit tag: %w", err)
	}

	internal.LogDebug("Tag %s now has %d nodes", alias, len(tag.Nodes))
	return tag, nil
}

func normalizeAlias(alias string) string {
	return strings.ToLower(strings.TrimSpace(alias))
}
