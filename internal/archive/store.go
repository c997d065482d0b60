package archive

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/metamindiq/quantum-sync/internal/codec"
	"github.com/metamindiq/quantum-sync/internal/registry"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	state_id    TEXT PRIMARY KEY,
	created_at  TEXT NOT NULL,
	collapsed   INTEGER NOT NULL DEFAULT 0,
	data_json   TEXT NOT NULL,
	archived_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS commit_log (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	version_id  TEXT NOT NULL,
	parent_id   TEXT,
	op          TEXT NOT NULL,
	created_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_commit_version ON commit_log(version_id);
`

// #endregion schema

// #region store

// Store is a SQLite write-through archive of serialized snapshots and the
// commit log. It is a consumer-side sink: archived rows carry only the wire
// form (id, timestamp, collapsed, data), so entanglement and observables
// must be re-registered after any restore. The engine itself keeps no
// durability guarantee.
type Store struct {
	db *sql.DB
}

var _ registry.Sink = (*Store)(nil)

// Open opens or creates the archive database and runs migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate archive: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// #endregion store

// #region save

// SaveSnapshot upserts one snapshot row.
func (s *Store) SaveSnapshot(snap codec.Snapshot) error {
	dataJSON, err := json.Marshal(snap.Data)
	if err != nil {
		return fmt.Errorf("marshal snapshot %s: %w", snap.ID, err)
	}

	collapsed := 0
	if snap.Collapsed {
		collapsed = 1
	}
	_, err = s.db.Exec(
		`INSERT INTO snapshots (state_id, created_at, collapsed, data_json, archived_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(state_id) DO UPDATE SET
		   collapsed = excluded.collapsed,
		   data_json = excluded.data_json,
		   archived_at = excluded.archived_at`,
		snap.ID,
		snap.Timestamp.UTC().Format(time.RFC3339Nano),
		collapsed,
		string(dataJSON),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert snapshot %s: %w", snap.ID, err)
	}
	return nil
}

// SaveCommit appends one commit row.
func (s *Store) SaveCommit(c registry.Commit) error {
	var parentPtr interface{}
	if c.ParentID != "" {
		parentPtr = c.ParentID
	}
	_, err := s.db.Exec(
		`INSERT INTO commit_log (version_id, parent_id, op, created_at)
		 VALUES (?, ?, ?, ?)`,
		c.VersionID, parentPtr, c.Op, c.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert commit %s: %w", c.VersionID, err)
	}
	return nil
}

// #endregion save

// #region read

// Get retrieves one archived snapshot by state id.
func (s *Store) Get(id string) (codec.Snapshot, error) {
	var snap codec.Snapshot
	var createdStr, dataJSON string
	var collapsed int

	err := s.db.QueryRow(
		`SELECT state_id, created_at, collapsed, data_json FROM snapshots WHERE state_id = ?`, id,
	).Scan(&snap.ID, &createdStr, &collapsed, &dataJSON)
	if err != nil {
		return codec.Snapshot{}, fmt.Errorf("get snapshot %s: %w", id, err)
	}

	snap.Timestamp, _ = time.Parse(time.RFC3339Nano, createdStr)
	snap.Collapsed = collapsed != 0
	if err := json.Unmarshal([]byte(dataJSON), &snap.Data); err != nil {
		return codec.Snapshot{}, fmt.Errorf("unmarshal snapshot %s: %w", id, err)
	}
	return snap, nil
}

// List returns archived snapshots in commit order (oldest first), capped at
// limit when limit > 0.
func (s *Store) List(limit int) ([]codec.Snapshot, error) {
	q := `SELECT state_id, created_at, collapsed, data_json FROM snapshots ORDER BY created_at ASC`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var out []codec.Snapshot
	for rows.Next() {
		var snap codec.Snapshot
		var createdStr, dataJSON string
		var collapsed int
		if err := rows.Scan(&snap.ID, &createdStr, &collapsed, &dataJSON); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snap.Timestamp, _ = time.Parse(time.RFC3339Nano, createdStr)
		snap.Collapsed = collapsed != 0
		if err := json.Unmarshal([]byte(dataJSON), &snap.Data); err != nil {
			return nil, fmt.Errorf("unmarshal snapshot %s: %w", snap.ID, err)
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

// CommitEntry is one row of the commit log.
type CommitEntry struct {
	VersionID string
	ParentID  string
	Op        string
	CreatedAt time.Time
}

// Commits returns commit log rows in append order, capped at limit when
// limit > 0.
func (s *Store) Commits(limit int) ([]CommitEntry, error) {
	q := `SELECT version_id, parent_id, op, created_at FROM commit_log ORDER BY id ASC`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("list commits: %w", err)
	}
	defer rows.Close()

	var out []CommitEntry
	for rows.Next() {
		var e CommitEntry
		var parent sql.NullString
		var createdStr string
		if err := rows.Scan(&e.VersionID, &parent, &e.Op, &createdStr); err != nil {
			return nil, fmt.Errorf("scan commit: %w", err)
		}
		if parent.Valid {
			e.ParentID = parent.String
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		out = append(out, e)
	}
	return out, rows.Err()
}

// #endregion read
