package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	_ "modernc.org/sqlite"

	"github.com/ppiankov/paramwatch/internal/calldata"
	"github.com/ppiankov/paramwatch/internal/model"
	"github.com/ppiankov/paramwatch/internal/params"
)

// ErrNotFound is returned when a grant or parameter index has no snapshot.
var ErrNotFound = errors.New("store: not found")

const schema = `
CREATE TABLE IF NOT EXISTS grants (
	grant_key   TEXT PRIMARY KEY,
	entity      TEXT NOT NULL,
	app         TEXT NOT NULL,
	role        TEXT NOT NULL,
	params_hash TEXT NOT NULL,
	policy_hash TEXT NOT NULL DEFAULT '',
	updated_at  TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS grant_params (
	grant_key TEXT NOT NULL,
	idx       INTEGER NOT NULL,
	word      TEXT NOT NULL,
	PRIMARY KEY (grant_key, idx)
);`

// Snapshot describes one stored grant.
type Snapshot struct {
	Grant      model.Grant `json:"grant"`
	Length     int         `json:"length"`
	ParamsHash common.Hash `json:"params_hash"`
	PolicyHash string      `json:"policy_hash,omitempty"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// Store keeps the last known parameter list of each grant, readable the
// way the ACL exposes it: a length and one parameter per index.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates a snapshot database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}
	// One connection keeps ":memory:" databases coherent and serializes
	// writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate store %s: %w", path, err)
	}
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put replaces the stored program of a grant. An empty program records a
// grant without parameters.
func (s *Store) Put(ctx context.Context, g model.Grant, prog params.Program, policyHash string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	key := g.Key()
	if _, err := tx.ExecContext(ctx, "DELETE FROM grant_params WHERE grant_key = ?", key); err != nil {
		return fmt.Errorf("clear params of %s: %w", key, err)
	}
	for i := range prog {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO grant_params (grant_key, idx, word) VALUES (?, ?, ?)",
			key, i, params.WordHex(&prog[i])); err != nil {
			return fmt.Errorf("write param %d of %s: %w", i, key, err)
		}
	}

	_, err = tx.ExecContext(ctx, `
INSERT INTO grants (grant_key, entity, app, role, params_hash, policy_hash, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(grant_key) DO UPDATE SET
	params_hash = excluded.params_hash,
	policy_hash = excluded.policy_hash,
	updated_at  = excluded.updated_at`,
		key, g.Entity.Hex(), g.App.Hex(), g.Role.Hex(),
		calldata.ParamsHash(prog).Hex(), policyHash, s.now().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("write grant %s: %w", key, err)
	}

	return tx.Commit()
}

// Revoke deletes a grant and its parameters.
func (s *Store) Revoke(ctx context.Context, g model.Grant) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	key := g.Key()
	res, err := tx.ExecContext(ctx, "DELETE FROM grants WHERE grant_key = ?", key)
	if err != nil {
		return fmt.Errorf("delete grant %s: %w", key, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, g)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM grant_params WHERE grant_key = ?", key); err != nil {
		return fmt.Errorf("delete params of %s: %w", key, err)
	}
	return tx.Commit()
}

// ParamsLength mirrors ACL.getPermissionParamsLength.
func (s *Store) ParamsLength(ctx context.Context, g model.Grant) (int, error) {
	if _, err := s.Get(ctx, g); err != nil {
		return 0, err
	}
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM grant_params WHERE grant_key = ?", g.Key()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count params of %s: %w", g, err)
	}
	return n, nil
}

// Param mirrors ACL.getPermissionParam.
func (s *Store) Param(ctx context.Context, g model.Grant, index int) (params.Param, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		"SELECT word FROM grant_params WHERE grant_key = ? AND idx = ?", g.Key(), index).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return params.Param{}, fmt.Errorf("%w: param %d of %s", ErrNotFound, index, g)
		}
		return params.Param{}, fmt.Errorf("read param %d of %s: %w", index, g, err)
	}
	return decodeStored(raw)
}

// Program returns the full stored program in index order.
func (s *Store) Program(ctx context.Context, g model.Grant) (params.Program, error) {
	if _, err := s.Get(ctx, g); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT word FROM grant_params WHERE grant_key = ? ORDER BY idx", g.Key())
	if err != nil {
		return nil, fmt.Errorf("read params of %s: %w", g, err)
	}
	defer rows.Close()

	var prog params.Program
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan param of %s: %w", g, err)
		}
		w, err := params.ParseWord(raw)
		if err != nil {
			return nil, fmt.Errorf("corrupt param of %s: %w", g, err)
		}
		prog = append(prog, w)
	}
	return prog, rows.Err()
}

// Get returns the snapshot metadata of a grant.
func (s *Store) Get(ctx context.Context, g model.Grant) (Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT g.entity, g.app, g.role, g.params_hash, g.policy_hash, g.updated_at,
	(SELECT COUNT(*) FROM grant_params p WHERE p.grant_key = g.grant_key)
FROM grants g WHERE g.grant_key = ?`, g.Key())
	snap, err := scanSnapshot(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Snapshot{}, fmt.Errorf("%w: %s", ErrNotFound, g)
		}
		return Snapshot{}, fmt.Errorf("read grant %s: %w", g, err)
	}
	return snap, nil
}

// List returns all snapshots ordered by grant key.
func (s *Store) List(ctx context.Context) ([]Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT g.entity, g.app, g.role, g.params_hash, g.policy_hash, g.updated_at,
	(SELECT COUNT(*) FROM grant_params p WHERE p.grant_key = g.grant_key)
FROM grants g ORDER BY g.grant_key`)
	if err != nil {
		return nil, fmt.Errorf("list grants: %w", err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan grant: %w", err)
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(r scanner) (Snapshot, error) {
	var entity, app, role, paramsHash, policyHash, updated string
	var snap Snapshot
	if err := r.Scan(&entity, &app, &role, &paramsHash, &policyHash, &updated, &snap.Length); err != nil {
		return Snapshot{}, err
	}
	snap.Grant = model.Grant{
		Entity: common.HexToAddress(entity),
		App:    common.HexToAddress(app),
		Role:   common.HexToHash(role),
	}
	snap.ParamsHash = common.HexToHash(paramsHash)
	snap.PolicyHash = policyHash
	t, err := time.Parse(time.RFC3339Nano, updated)
	if err != nil {
		return Snapshot{}, fmt.Errorf("parse updated_at %q: %w", updated, err)
	}
	snap.UpdatedAt = t
	return snap, nil
}

func decodeStored(raw string) (params.Param, error) {
	w, err := params.ParseWord(raw)
	if err != nil {
		return params.Param{}, fmt.Errorf("corrupt param: %w", err)
	}
	return params.DecodeWord(&w)
}
