package workouts

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/2beens/tricoach/internal/training"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"
)

type rowAppender interface {
	Append(ctx context.Context, row training.Row) (training.Row, error)
}

type ImportResult struct {
	Imported int                   `json:"imported"`
	Skipped  []training.SkippedRow `json:"skipped"`
	// EFDropped lists imported rows whose logged EF was ignored while nothing
	// in the row lets it be derived again, so they carry no EF after import.
	EFDropped []DroppedEF `json:"efDropped"`
}

type DroppedEF struct {
	Seq      int    `json:"seq"`
	Date     string `json:"date"`
	StoredEF string `json:"storedEf"`
	Reason   string `json:"reason"`
}

type Importer struct {
	store         rowAppender
	scaling       training.EFScaling
	retryAttempts uint64
	retryInterval time.Duration
	dryRun        bool
}

func NewImporter(store rowAppender, scaling training.EFScaling, retryAttempts uint64, dryRun bool) *Importer {
	return &Importer{
		store:         store,
		scaling:       scaling.WithDefaults(),
		retryAttempts: retryAttempts,
		retryInterval: 500 * time.Millisecond,
		dryRun:        dryRun,
	}
}

// Import reads a CSV workout log and appends every valid row in file order.
// Both older layouts are accepted: Date,Sport,Duration,Intensity and
// Date,Discipline,Type,EF,Decoupling. Invalid rows are reported and skipped.
// A logged EF is never imported, it is derived from heart rate and output.
func (im *Importer) Import(ctx context.Context, r io.Reader) (ImportResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	cells, err := reader.ReadAll()
	if err != nil {
		return ImportResult{}, fmt.Errorf("read csv: %w", err)
	}

	rows := ParseTable(cells)
	storedEF := make(map[int]string, len(rows))
	for _, row := range rows {
		if strings.TrimSpace(row.EF) != "" {
			storedEF[row.Seq] = strings.TrimSpace(row.EF)
		}
	}

	records, skipped := training.ValidateAll(rows)
	result := ImportResult{Skipped: skipped, EFDropped: []DroppedEF{}}
	if result.Skipped == nil {
		result.Skipped = []training.SkippedRow{}
	}

	for _, rec := range records {
		if stored, ok := storedEF[rec.Seq]; ok {
			if _, err := rec.EfficiencyFactor(im.scaling); err != nil {
				result.EFDropped = append(result.EFDropped, DroppedEF{
					Seq:      rec.Seq,
					Date:     rec.Date.Format(training.DateLayout),
					StoredEF: stored,
					Reason:   err.Error(),
				})
			}
		}
		if im.dryRun {
			result.Imported++
			continue
		}
		if err := im.appendWithRetry(ctx, rec.ToRow(im.scaling)); err != nil {
			return result, fmt.Errorf("append row %d (%s): %w", rec.Seq, rec.Date.Format(training.DateLayout), err)
		}
		result.Imported++
	}

	return result, nil
}

func (im *Importer) appendWithRetry(ctx context.Context, row training.Row) error {
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = im.retryInterval
	b := backoff.WithContext(backoff.WithMaxRetries(expBackoff, im.retryAttempts), ctx)

	return backoff.RetryNotify(func() error {
		_, err := im.store.Append(ctx, row)
		return err
	}, b, func(err error, next time.Duration) {
		log.Warnf("append failed, retrying in %s: %s", next, err)
	})
}
