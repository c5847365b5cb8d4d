package workouts

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strconv"

	"github.com/2beens/tricoach/internal/telemetry/tracing"
	"github.com/2beens/tricoach/internal/training"
	"github.com/2beens/tricoach/pkg"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

//go:embed schema.sql
var Schema string

var workoutColumns = []string{
	"workout_date", "sport", "session_type", "duration", "distance", "intensity",
	"avg_hr", "avg_power", "pace", "load", "ef", "decoupling",
}

// Repo keeps the workout log in Postgres. Cells are stored as text, the same
// way a spreadsheet holds them, and validated when read.
// Every write bumps a single version counter used for optimistic replace-all.
type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

// Migrate creates the workout tables if they do not exist yet.
func (r *Repo) Migrate(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("create workout schema: %w", err)
	}
	return nil
}

func (r *Repo) Append(ctx context.Context, row training.Row) (_ training.Row, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.append")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return training.Row{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var seq int
	if err := tx.QueryRow(
		ctx,
		`INSERT INTO workout
				(workout_date, sport, session_type, duration, distance, intensity, avg_hr, avg_power, pace, load, ef, decoupling)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			RETURNING seq;`,
		rowArgs(row)...,
	).Scan(&seq); err != nil {
		return training.Row{}, fmt.Errorf("insert workout: %w", err)
	}

	if _, err := tx.Exec(ctx, `UPDATE workout_log_version SET version = version + 1 WHERE id = 1;`); err != nil {
		return training.Row{}, fmt.Errorf("bump version: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return training.Row{}, fmt.Errorf("commit: %w", err)
	}

	span.SetAttributes(attribute.Int("workout.seq", seq))
	row.Seq = seq
	return row, nil
}

// List returns all rows in insertion order, together with the log version they belong to.
func (r *Repo) List(ctx context.Context) (_ []training.Row, version string, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return nil, "", fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var v int64
	if err := tx.QueryRow(ctx, `SELECT version FROM workout_log_version WHERE id = 1;`).Scan(&v); err != nil {
		return nil, "", fmt.Errorf("read version: %w", err)
	}

	rows, err := tx.Query(
		ctx,
		`SELECT
				seq, workout_date, sport, session_type, duration, distance, intensity,
				avg_hr, avg_power, pace, load, ef, decoupling
			FROM workout
			ORDER BY seq;`,
	)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()

	workoutRows, err := r.rows2workouts(rows)
	if err != nil {
		return nil, "", err
	}

	span.SetAttributes(attribute.Int("workouts.count", len(workoutRows)))
	return workoutRows, strconv.FormatInt(v, 10), nil
}

// ReplaceAll swaps the whole log for rows, provided nothing was written since
// expectedVersion was read. Otherwise training.ErrVersionConflict is returned.
func (r *Repo) ReplaceAll(ctx context.Context, rows []training.Row, expectedVersion string) (_ string, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.replaceall")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("workouts.count", len(rows)))
	span.SetAttributes(attribute.String("expected_version", expectedVersion))

	expected, err := strconv.ParseInt(expectedVersion, 10, 64)
	if err != nil {
		return "", training.ErrVersionConflict
	}

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var newVersion int64
	err = tx.QueryRow(
		ctx,
		`UPDATE workout_log_version SET version = version + 1 WHERE id = 1 AND version = $1 RETURNING version;`,
		expected,
	).Scan(&newVersion)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", training.ErrVersionConflict
	}
	if err != nil {
		return "", conflictOr(err, "bump version")
	}

	if _, err := tx.Exec(ctx, `DELETE FROM workout;`); err != nil {
		return "", conflictOr(err, "clear workouts")
	}

	values := make([][]any, 0, len(rows))
	for _, row := range rows {
		values = append(values, rowArgs(row))
	}
	copied, err := tx.CopyFrom(ctx, pgx.Identifier{"workout"}, workoutColumns, pgx.CopyFromRows(values))
	if err != nil {
		return "", conflictOr(err, "copy workouts")
	}
	if int(copied) != len(rows) {
		return "", fmt.Errorf("copied %d of %d workouts", copied, len(rows))
	}

	if err := tx.Commit(ctx); err != nil {
		return "", conflictOr(err, "commit")
	}

	return strconv.FormatInt(newVersion, 10), nil
}

func (r *Repo) rows2workouts(rows pgx.Rows) ([]training.Row, error) {
	var workoutRows []training.Row
	for rows.Next() {
		var row training.Row
		if err := rows.Scan(
			&row.Seq, &row.Date, &row.Sport, &row.Type, &row.Duration, &row.Distance, &row.Intensity,
			&row.AvgHR, &row.AvgPower, &row.Pace, &row.Load, &row.EF, &row.Decoupling,
		); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		workoutRows = append(workoutRows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return workoutRows, nil
}

func rowArgs(row training.Row) []any {
	return []any{
		row.Date, row.Sport, row.Type, row.Duration, row.Distance, row.Intensity,
		row.AvgHR, row.AvgPower, row.Pace, row.Load, row.EF, row.Decoupling,
	}
}

func conflictOr(err error, op string) error {
	if pkg.IsSerializationError(err) {
		return training.ErrVersionConflict
	}
	return fmt.Errorf("%s: %w", op, err)
}
