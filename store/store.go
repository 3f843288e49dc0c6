// Package store persists parsed logs in a SQL database so that runs from many
// log files can be queried together. SQLite and PostgreSQL are supported.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"  // postgres driver
	_ "modernc.org/sqlite" // pure go sqlite driver

	"kastelo.dev/etslog"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Store struct {
	db     *sql.DB
	driver string
}

// Open connects to the database. The schema is not touched; see Migrate.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	switch driver {
	case DriverSQLite, DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		// Every connection to an in-memory database is a new database.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return &Store{db: db, driver: driver}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates the tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	id := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if s.driver == DriverPostgres {
		id = "BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY"
	}

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS imports (
			id ` + id + `,
			source TEXT NOT NULL,
			imported_at TIMESTAMP NOT NULL,
			site_count INTEGER NOT NULL,
			test_count INTEGER NOT NULL,
			requirement_count INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS requirements (
			import_id BIGINT NOT NULL REFERENCES imports(id),
			idx INTEGER NOT NULL,
			requirement_id TEXT NOT NULL,
			decimal_position INTEGER NOT NULL,
			min_limit DOUBLE PRECISION,
			max_limit DOUBLE PRECISION,
			unit TEXT NOT NULL,
			name TEXT NOT NULL,
			PRIMARY KEY (import_id, idx)
		)`,
		`CREATE TABLE IF NOT EXISTS runs (
			import_id BIGINT NOT NULL REFERENCES imports(id),
			run INTEGER NOT NULL,
			test INTEGER NOT NULL,
			site_number INTEGER NOT NULL,
			time_completed TEXT NOT NULL,
			serial_number TEXT NOT NULL,
			passed BOOLEAN NOT NULL,
			bin_number INTEGER NOT NULL,
			unknown1 TEXT NOT NULL,
			unknown2 TEXT NOT NULL,
			unknown3 TEXT NOT NULL,
			unknown4 TEXT NOT NULL,
			PRIMARY KEY (import_id, run)
		)`,
		`CREATE TABLE IF NOT EXISTS measurements (
			import_id BIGINT NOT NULL REFERENCES imports(id),
			run INTEGER NOT NULL,
			idx INTEGER NOT NULL,
			requirement_id TEXT NOT NULL,
			issue TEXT NOT NULL,
			passed BOOLEAN NOT NULL,
			value DOUBLE PRECISION NOT NULL,
			PRIMARY KEY (import_id, run, idx)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_serial ON runs(serial_number)`,
		`CREATE INDEX IF NOT EXISTS idx_measurements_requirement ON measurements(requirement_id)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Save stores res in one transaction and returns the id of the import. The
// layout must have been derived from res.
func (s *Store) Save(ctx context.Context, res *etslog.Results, lay etslog.Layout) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var importID int64
	err = tx.QueryRowContext(ctx,
		s.rebind(`INSERT INTO imports (source, imported_at, site_count, test_count, requirement_count) VALUES (?, ?, ?, ?, ?) RETURNING id`),
		res.Path, time.Now().UTC(), lay.SiteCount, lay.TestCount, lay.RequirementCount,
	).Scan(&importID)
	if err != nil {
		return 0, fmt.Errorf("insert import: %w", err)
	}

	reqStmt, err := tx.PrepareContext(ctx, s.rebind(`INSERT INTO requirements
		(import_id, idx, requirement_id, decimal_position, min_limit, max_limit, unit, name)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return 0, fmt.Errorf("prepare requirements: %w", err)
	}
	defer reqStmt.Close()
	for i, cfg := range res.Configs {
		if _, err := reqStmt.ExecContext(ctx, importID, i, cfg.RequirementID, cfg.DecimalPosition,
			nullFloat(cfg.Min), nullFloat(cfg.Max), cfg.Unit, cfg.Name); err != nil {
			return 0, fmt.Errorf("insert requirement %d: %w", i, err)
		}
	}

	runStmt, err := tx.PrepareContext(ctx, s.rebind(`INSERT INTO runs
		(import_id, run, test, site_number, time_completed, serial_number, passed, bin_number, unknown1, unknown2, unknown3, unknown4)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return 0, fmt.Errorf("prepare runs: %w", err)
	}
	defer runStmt.Close()

	measStmt, err := tx.PrepareContext(ctx, s.rebind(`INSERT INTO measurements
		(import_id, run, idx, requirement_id, issue, passed, value)
		VALUES (?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return 0, fmt.Errorf("prepare measurements: %w", err)
	}
	defer measStmt.Close()

	for run, sum := range res.Summaries {
		if _, err := runStmt.ExecContext(ctx, importID, run, lay.TestIndex(run), sum.SiteNumber, sum.TimeCompleted,
			sum.SerialNumber, sum.Passed, sum.BinNumber, sum.Unknown1, sum.Unknown2, sum.Unknown3, sum.Unknown4); err != nil {
			return 0, fmt.Errorf("insert run %d: %w", run, err)
		}
		for i, m := range res.Blocks[run] {
			if _, err := measStmt.ExecContext(ctx, importID, run, i, m.RequirementID, m.Issue, m.Passed, m.Value); err != nil {
				return 0, fmt.Errorf("insert measurement %d of run %d: %w", i, run, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return importID, nil
}

// Run is a stored test summary together with its position in the import.
type Run struct {
	Run  int
	Test int
	etslog.TestSummary
}

// Runs returns the runs of an import in log order.
func (s *Store) Runs(ctx context.Context, importID int64) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT run, test, site_number, time_completed, serial_number,
		passed, bin_number, unknown1, unknown2, unknown3, unknown4
		FROM runs WHERE import_id = ? ORDER BY run`), importID)
	if err != nil {
		return nil, fmt.Errorf("select runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.Run, &r.Test, &r.SiteNumber, &r.TimeCompleted, &r.SerialNumber,
			&r.Passed, &r.BinNumber, &r.Unknown1, &r.Unknown2, &r.Unknown3, &r.Unknown4); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Requirements returns the requirement definitions of an import in log
// order.
func (s *Store) Requirements(ctx context.Context, importID int64) ([]etslog.ConfigDefinition, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT requirement_id, decimal_position, min_limit, max_limit, unit, name
		FROM requirements WHERE import_id = ? ORDER BY idx`), importID)
	if err != nil {
		return nil, fmt.Errorf("select requirements: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var cfgs []etslog.ConfigDefinition
	for rows.Next() {
		var cfg etslog.ConfigDefinition
		var min, max sql.NullFloat64
		if err := rows.Scan(&cfg.RequirementID, &cfg.DecimalPosition, &min, &max, &cfg.Unit, &cfg.Name); err != nil {
			return nil, fmt.Errorf("scan requirement: %w", err)
		}
		cfg.Min = etslog.Limit{Value: min.Float64, Valid: min.Valid}
		cfg.Max = etslog.Limit{Value: max.Float64, Valid: max.Valid}
		cfgs = append(cfgs, cfg)
	}
	return cfgs, rows.Err()
}

func nullFloat(l etslog.Limit) sql.NullFloat64 {
	return sql.NullFloat64{Float64: l.Value, Valid: l.Valid}
}

// rebind turns ? placeholders into $n for postgres.
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
