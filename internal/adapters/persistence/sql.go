package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"  // postgres driver
	_ "modernc.org/sqlite" // sqlite driver

	"github.com/okian/inkscore/internal/domain/model"
)

// sqlDriverNames maps storage drivers to database/sql driver names.
var sqlDriverNames = map[string]string{
	DriverSQLite:   "sqlite",
	DriverPostgres: "postgres",
}

// SQLBackend stores the state in three tables. Save replaces every row in
// one transaction.
type SQLBackend struct {
	db      *sql.DB
	dialect string
}

// OpenSQL connects to dsn with the sqlite or postgres driver and creates
// the schema if needed.
func OpenSQL(ctx context.Context, driver, dsn string) (*SQLBackend, error) {
	name, ok := sqlDriverNames[driver]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
	db, err := sql.Open(name, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		// One connection keeps ":memory:" databases alive and serialises writers.
		db.SetMaxOpenConns(1)
	}
	b := &SQLBackend{db: db, dialect: driver}
	if err := b.createSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return b, nil
}

// NewSQLBackend wraps an existing handle. dialect is DriverSQLite or DriverPostgres.
func NewSQLBackend(ctx context.Context, db *sql.DB, dialect string) (*SQLBackend, error) {
	b := &SQLBackend{db: db, dialect: dialect}
	if err := b.createSchema(ctx); err != nil {
		return nil, err
	}
	return b, nil
}

// createSchema is safe to call repeatedly.
func (b *SQLBackend) createSchema(ctx context.Context) error {
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := b.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS contestant (
    position INTEGER NOT NULL,
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    category TEXT NOT NULL,
    email TEXT NOT NULL,
    phone TEXT NOT NULL,
    registered_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS judge (
    position INTEGER NOT NULL,
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    email TEXT NOT NULL,
    years_experience INTEGER NOT NULL,
    specialty TEXT NOT NULL,
    registered_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS evaluation (
    position INTEGER NOT NULL,
    id TEXT PRIMARY KEY,
    judge_id TEXT NOT NULL,
    judge_name TEXT NOT NULL,
    contestant_id TEXT NOT NULL,
    contestant_name TEXT NOT NULL,
    category TEXT NOT NULL,
    criteria_scores TEXT NOT NULL,
    total_score DOUBLE PRECISION NOT NULL,
    evaluated_at TEXT NOT NULL,
    UNIQUE (judge_id, contestant_id, category)
);
`

// rebind rewrites ? placeholders to $n for postgres.
func (b *SQLBackend) rebind(q string) string {
	if b.dialect != DriverPostgres {
		return q
	}
	var sb strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: timestamp %q: %w", ErrCorrupt, s, err)
	}
	return t, nil
}

func (b *SQLBackend) Save(ctx context.Context, state model.State) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"evaluation", "judge", "contestant"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	insContestant := b.rebind(`INSERT INTO contestant (position, id, name, category, email, phone, registered_at) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	for i, c := range state.Contestants {
		if _, err := tx.ExecContext(ctx, insContestant, i, c.ID, c.Name, c.Category, c.Email, c.Phone, formatTime(c.RegisteredAt)); err != nil {
			return fmt.Errorf("insert contestant %s: %w", c.ID, err)
		}
	}

	insJudge := b.rebind(`INSERT INTO judge (position, id, name, email, years_experience, specialty, registered_at) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	for i, j := range state.Judges {
		if _, err := tx.ExecContext(ctx, insJudge, i, j.ID, j.Name, j.Email, j.YearsExperience, j.Specialty, formatTime(j.RegisteredAt)); err != nil {
			return fmt.Errorf("insert judge %s: %w", j.ID, err)
		}
	}

	insEvaluation := b.rebind(`INSERT INTO evaluation (position, id, judge_id, judge_name, contestant_id, contestant_name, category, criteria_scores, total_score, evaluated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	for i, e := range state.Evaluations {
		scores, err := json.Marshal(e.CriteriaScores)
		if err != nil {
			return fmt.Errorf("encode scores of %s: %w", e.ID, err)
		}
		if _, err := tx.ExecContext(ctx, insEvaluation, i, e.ID, e.JudgeID, e.JudgeName, e.ContestantID, e.ContestantName,
			e.Category, string(scores), e.TotalScore, formatTime(e.Timestamp)); err != nil {
			return fmt.Errorf("insert evaluation %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (b *SQLBackend) Load(ctx context.Context) (model.State, error) {
	state := emptyState()

	rows, err := b.db.QueryContext(ctx, `SELECT id, name, category, email, phone, registered_at FROM contestant ORDER BY position`)
	if err != nil {
		return model.State{}, fmt.Errorf("query contestants: %w", err)
	}
	for rows.Next() {
		var c model.Contestant
		var at string
		if err := rows.Scan(&c.ID, &c.Name, &c.Category, &c.Email, &c.Phone, &at); err != nil {
			_ = rows.Close()
			return model.State{}, fmt.Errorf("scan contestant: %w", err)
		}
		if c.RegisteredAt, err = parseTime(at); err != nil {
			_ = rows.Close()
			return model.State{}, err
		}
		state.Contestants = append(state.Contestants, c)
	}
	if err := closeRows(rows); err != nil {
		return model.State{}, err
	}

	rows, err = b.db.QueryContext(ctx, `SELECT id, name, email, years_experience, specialty, registered_at FROM judge ORDER BY position`)
	if err != nil {
		return model.State{}, fmt.Errorf("query judges: %w", err)
	}
	for rows.Next() {
		var j model.Judge
		var at string
		if err := rows.Scan(&j.ID, &j.Name, &j.Email, &j.YearsExperience, &j.Specialty, &at); err != nil {
			_ = rows.Close()
			return model.State{}, fmt.Errorf("scan judge: %w", err)
		}
		if j.RegisteredAt, err = parseTime(at); err != nil {
			_ = rows.Close()
			return model.State{}, err
		}
		state.Judges = append(state.Judges, j)
	}
	if err := closeRows(rows); err != nil {
		return model.State{}, err
	}

	rows, err = b.db.QueryContext(ctx, `SELECT id, judge_id, judge_name, contestant_id, contestant_name, category, criteria_scores, total_score, evaluated_at FROM evaluation ORDER BY position`)
	if err != nil {
		return model.State{}, fmt.Errorf("query evaluations: %w", err)
	}
	for rows.Next() {
		var e model.Evaluation
		var scores, at string
		if err := rows.Scan(&e.ID, &e.JudgeID, &e.JudgeName, &e.ContestantID, &e.ContestantName, &e.Category, &scores, &e.TotalScore, &at); err != nil {
			_ = rows.Close()
			return model.State{}, fmt.Errorf("scan evaluation: %w", err)
		}
		if err := json.Unmarshal([]byte(scores), &e.CriteriaScores); err != nil {
			_ = rows.Close()
			return model.State{}, fmt.Errorf("%w: scores of %s: %w", ErrCorrupt, e.ID, err)
		}
		if e.Timestamp, err = parseTime(at); err != nil {
			_ = rows.Close()
			return model.State{}, err
		}
		state.Evaluations = append(state.Evaluations, e)
	}
	if err := closeRows(rows); err != nil {
		return model.State{}, err
	}

	return state, nil
}

func closeRows(rows *sql.Rows) error {
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return fmt.Errorf("iterate rows: %w", err)
	}
	return rows.Close()
}

func (b *SQLBackend) Close() error { return b.db.Close() }
