// Package mdgstore persists the MDG's "priors" (§4.E serialization) as a
// SQLite database rather than a single flat blob, mirroring the teacher's
// internal/storage.DB: WAL mode, a busy-timeout pragma, and a
// schema_version table guarding compatibility, so a version mismatch is
// recoverable (§4.E: "a version mismatch ... causes the prior to be
// discarded and a remark emitted") without the caller needing to parse an
// entire bespoke binary format just to find out it's stale.
package mdgstore

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	_ "modernc.org/sqlite"

	"incdriver/internal/errdefs"
	"incdriver/internal/logging"
	"incdriver/internal/mdg"
)

// FormatVersion is the current on-disk schema version. A stored priors
// database with a different major version is discarded wholesale, per
// §4.E; mdgstore does not attempt schema migration the way the teacher's
// storage package does for its own longer-lived schema, because a priors
// store is disposable: the worst case of discarding it is a cold-start
// build, never data loss.
const FormatVersion = 1

// Store wraps a SQLite database holding one MDG snapshot plus the
// compiler version and format version it was written under.
type Store struct {
	conn   *sql.DB
	path   string
	logger *logging.Logger
}

// Open opens or creates the priors database at path.
func Open(path string, logger *logging.Logger) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating priors directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening priors database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := conn.Exec(p); err != nil {
			conn.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	s := &Store{conn: conn, path: path, logger: logger}
	if err := s.createSchema(); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) createSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS schema_version (
			format_version INTEGER NOT NULL,
			compiler_version TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS strings (
			id INTEGER PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS nodes (
			id INTEGER PRIMARY KEY,
			aspect INTEGER NOT NULL,
			tag INTEGER NOT NULL,
			context TEXT NOT NULL,
			name TEXT NOT NULL,
			has_source INTEGER NOT NULL,
			source TEXT NOT NULL,
			has_fingerprint INTEGER NOT NULL,
			fingerprint BLOB NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS edges (
			def_id INTEGER NOT NULL,
			use_id INTEGER NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.conn.Exec(stmt); err != nil {
			return fmt.Errorf("creating priors schema: %w", err)
		}
	}
	return nil
}

var zstdEncoder, _ = zstd.NewWriter(nil)
var zstdDecoder, _ = zstd.NewReader(nil)

// Write persists snapshot as the new priors, replacing whatever was there
// before, inside a single transaction so a crash mid-write leaves the
// previous build's priors intact rather than a half-written graph (§3
// "Lifetimes & ownership": "The build record is written at the very end of
// a successful build ... between writes it is immutable" — the same
// all-or-nothing guarantee applies to the MDG priors).
func (s *Store) Write(snapshot mdg.Snapshot, compilerVersion string) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("beginning priors write transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"schema_version", "nodes", "edges"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clearing priors table %s: %w", table, err)
		}
	}

	if _, err := tx.Exec("INSERT INTO schema_version (format_version, compiler_version) VALUES (?, ?)", FormatVersion, compilerVersion); err != nil {
		return fmt.Errorf("writing priors schema_version: %w", err)
	}

	for i, n := range snapshot.Nodes {
		fp := zstdEncoder.EncodeAll([]byte(n.Fingerprint), nil)
		if _, err := tx.Exec(
			`INSERT INTO nodes (id, aspect, tag, context, name, has_source, source, has_fingerprint, fingerprint)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			i, n.Aspect, n.Tag, n.Context, n.Name, boolToInt(n.HasSource), n.Source, boolToInt(n.HasFingerprint), fp,
		); err != nil {
			return fmt.Errorf("writing priors node %d: %w", i, err)
		}
	}
	for _, e := range snapshot.Edges {
		if _, err := tx.Exec("INSERT INTO edges (def_id, use_id) VALUES (?, ?)", e.Def, e.Use); err != nil {
			return fmt.Errorf("writing priors edge: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing priors write: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Read loads the current MDG snapshot and the compiler_version it was
// written under. If the priors database has no schema_version row (an
// empty/never-written store), it returns ok=false rather than an error.
func (s *Store) Read() (mdg.Snapshot, string, bool, error) {
	var formatVersion int
	var compilerVersion string
	err := s.conn.QueryRow("SELECT format_version, compiler_version FROM schema_version LIMIT 1").Scan(&formatVersion, &compilerVersion)
	if err == sql.ErrNoRows {
		return mdg.Snapshot{}, "", false, nil
	}
	if err != nil {
		return mdg.Snapshot{}, "", false, fmt.Errorf("reading priors schema_version: %w", err)
	}
	if formatVersion != FormatVersion {
		if s.logger != nil {
			s.logger.Remark(logging.EventDiscardingPriors, map[string]interface{}{"reason": "format version mismatch", "found": formatVersion, "want": FormatVersion})
		}
		return mdg.Snapshot{}, compilerVersion, false, nil
	}

	rows, err := s.conn.Query("SELECT aspect, tag, context, name, has_source, source, has_fingerprint, fingerprint FROM nodes ORDER BY id")
	if err != nil {
		return mdg.Snapshot{}, compilerVersion, false, errdefs.Wrap(errdefs.ErrGraphParse, "reading priors nodes", err)
	}
	var snapshot mdg.Snapshot
	for rows.Next() {
		var sn mdg.SnapshotNode
		var hasSource, hasFingerprint int
		var fp []byte
		if err := rows.Scan(&sn.Aspect, &sn.Tag, &sn.Context, &sn.Name, &hasSource, &sn.Source, &hasFingerprint, &fp); err != nil {
			rows.Close()
			return mdg.Snapshot{}, compilerVersion, false, errdefs.Wrap(errdefs.ErrGraphParse, "scanning priors node row", err)
		}
		sn.HasSource = hasSource != 0
		sn.HasFingerprint = hasFingerprint != 0
		if sn.HasFingerprint {
			decoded, err := zstdDecoder.DecodeAll(fp, nil)
			if err != nil {
				rows.Close()
				return mdg.Snapshot{}, compilerVersion, false, errdefs.Wrap(errdefs.ErrGraphParse, "decompressing priors fingerprint", err)
			}
			sn.Fingerprint = string(decoded)
		}
		snapshot.Nodes = append(snapshot.Nodes, sn)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return mdg.Snapshot{}, compilerVersion, false, errdefs.Wrap(errdefs.ErrGraphParse, "iterating priors nodes", err)
	}

	edgeRows, err := s.conn.Query("SELECT def_id, use_id FROM edges")
	if err != nil {
		return mdg.Snapshot{}, compilerVersion, false, errdefs.Wrap(errdefs.ErrGraphParse, "reading priors edges", err)
	}
	defer edgeRows.Close()
	for edgeRows.Next() {
		var e mdg.SnapshotEdge
		if err := edgeRows.Scan(&e.Def, &e.Use); err != nil {
			return mdg.Snapshot{}, compilerVersion, false, errdefs.Wrap(errdefs.ErrGraphParse, "scanning priors edge row", err)
		}
		snapshot.Edges = append(snapshot.Edges, e)
	}
	if err := edgeRows.Err(); err != nil {
		return mdg.Snapshot{}, compilerVersion, false, errdefs.Wrap(errdefs.ErrGraphParse, "iterating priors edges", err)
	}

	return snapshot, compilerVersion, true, nil
}
