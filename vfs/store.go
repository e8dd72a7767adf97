//
// Copyright 2024-2026 The Riftfs Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//

package vfs

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/riftfs/riftfs/domain"
)

const storeSchema = `
CREATE TABLE IF NOT EXISTS vnodes (
	path  TEXT PRIMARY KEY,
	hash  BLOB NOT NULL,
	size  INTEGER NOT NULL,
	mode  INTEGER NOT NULL,
	mtime INTEGER NOT NULL,
	kind  INTEGER NOT NULL
);`

// manifestStore persists the manifest to a sqlite file so the virtual tree
// survives daemon restarts. Mutations are written through as they happen;
// load() runs once during service setup.
type manifestStore struct {
	db *sql.DB
}

func openManifestStore(path string) (*manifestStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening manifest store %s: %w", path, err)
	}

	// The store is only touched from within manifest write sections, so a
	// single connection avoids sqlite's multi-writer contention entirely.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(storeSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating manifest schema: %w", err)
	}
	return &manifestStore{db: db}, nil
}

func (s *manifestStore) load() ([]domain.VnodeEntry, error) {
	rows, err := s.db.Query(
		`SELECT path, hash, size, mode, mtime, kind FROM vnodes ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("loading manifest: %w", err)
	}
	defer rows.Close()

	var out []domain.VnodeEntry
	for rows.Next() {
		var e domain.VnodeEntry
		var hash []byte
		var kind int64
		if err := rows.Scan(&e.Path, &hash, &e.Size, &e.Mode, &e.Mtime, &kind); err != nil {
			return nil, fmt.Errorf("scanning manifest row: %w", err)
		}
		if len(hash) != len(e.ContentHash) {
			return nil, fmt.Errorf("manifest row %s: malformed content hash", e.Path)
		}
		copy(e.ContentHash[:], hash)
		e.Kind = domain.VnodeKind(kind)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *manifestStore) upsert(e domain.VnodeEntry) error {
	_, err := s.db.Exec(
		`INSERT INTO vnodes (path, hash, size, mode, mtime, kind)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET
		 hash = excluded.hash, size = excluded.size, mode = excluded.mode,
		 mtime = excluded.mtime, kind = excluded.kind`,
		e.Path, e.ContentHash[:], e.Size, e.Mode, e.Mtime, int64(e.Kind))
	if err != nil {
		return fmt.Errorf("persisting vnode %s: %w", e.Path, err)
	}
	return nil
}

func (s *manifestStore) remove(path string) error {
	if _, err := s.db.Exec(`DELETE FROM vnodes WHERE path = ?`, path); err != nil {
		return fmt.Errorf("removing vnode %s: %w", path, err)
	}
	return nil
}

// snapshot replaces the whole persisted table with the given entries in one
// transaction. Used on shutdown and after bulk mutations (rename).
func (s *manifestStore) snapshot(entries []domain.VnodeEntry) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("starting snapshot: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM vnodes`); err != nil {
		return fmt.Errorf("clearing manifest table: %w", err)
	}
	stmt, err := tx.Prepare(
		`INSERT INTO vnodes (path, hash, size, mode, mtime, kind)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing snapshot insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.Exec(
			e.Path, e.ContentHash[:], e.Size, e.Mode, e.Mtime, int64(e.Kind)); err != nil {
			return fmt.Errorf("snapshotting vnode %s: %w", e.Path, err)
		}
	}
	return tx.Commit()
}

func (s *manifestStore) close() error {
	return s.db.Close()
}
