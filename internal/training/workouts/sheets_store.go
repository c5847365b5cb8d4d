package workouts

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/2beens/tricoach/internal/telemetry/tracing"
	"github.com/2beens/tricoach/internal/training"

	"github.com/cespare/xxhash/v2"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const (
	valueInputRaw         = "RAW"
	valueRenderFormatted  = "FORMATTED_VALUE"
	insertDataOptionsRows = "INSERT_ROWS"
)

// SheetsStore keeps the workout log in a Google Sheets range, one session per line.
// The version of the log is a hash of the cells as last read.
type SheetsStore struct {
	service       *sheets.Service
	spreadsheetID string
	readRange     string
	sheetName     string

	// serializes writes issued by this process, the sheet itself has no transactions
	mutex sync.Mutex
}

func NewSheetsStore(ctx context.Context, credentialsPath, spreadsheetID, readRange string) (*SheetsStore, error) {
	credentials, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("read sheets credentials: %w", err)
	}

	service, err := sheets.NewService(ctx, option.WithCredentialsJSON(credentials))
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets client: %w", err)
	}

	return NewSheetsStoreWithService(service, spreadsheetID, readRange), nil
}

func NewSheetsStoreWithService(service *sheets.Service, spreadsheetID, readRange string) *SheetsStore {
	sheetName := readRange
	if i := strings.Index(readRange, "!"); i >= 0 {
		sheetName = readRange[:i]
	}
	return &SheetsStore{
		service:       service,
		spreadsheetID: spreadsheetID,
		readRange:     readRange,
		sheetName:     sheetName,
	}
}

func (s *SheetsStore) Append(ctx context.Context, row training.Row) (_ training.Row, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "sheets.workouts.append")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	s.mutex.Lock()
	defer s.mutex.Unlock()

	cells, err := s.readCells(ctx)
	if err != nil {
		return training.Row{}, err
	}

	header, headerLines := training.RowColumns, 0
	if len(cells) > 0 && isHeader(cells[0]) {
		header, headerLines = cells[0], 1
	} else if len(cells) == 0 {
		headerLines = 1
		if _, err := s.service.Spreadsheets.Values.Update(
			s.spreadsheetID,
			s.sheetName+"!A1",
			&sheets.ValueRange{Values: toSheetValues([][]string{training.RowColumns})},
		).ValueInputOption(valueInputRaw).Context(ctx).Do(); err != nil {
			return training.Row{}, fmt.Errorf("write header: %w", err)
		}
		log.Debugf("sheets store: header written to %s", s.sheetName)
	}

	resp, err := s.service.Spreadsheets.Values.Append(
		s.spreadsheetID,
		s.readRange,
		&sheets.ValueRange{Values: toSheetValues([][]string{lineForHeader(header, row)})},
	).ValueInputOption(valueInputRaw).InsertDataOption(insertDataOptionsRows).Context(ctx).Do()
	if err != nil {
		return training.Row{}, fmt.Errorf("append row: %w", err)
	}

	if resp.Updates != nil {
		if line, ok := lineNumber(resp.Updates.UpdatedRange); ok {
			row.Seq = line - headerLines
		}
	}
	span.SetAttributes(attribute.Int("workout.seq", row.Seq))

	return row, nil
}

func (s *SheetsStore) List(ctx context.Context) (_ []training.Row, version string, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "sheets.workouts.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	cells, err := s.readCells(ctx)
	if err != nil {
		return nil, "", err
	}

	rows := ParseTable(cells)
	span.SetAttributes(attribute.Int("workouts.count", len(rows)))
	return rows, cellsVersion(cells), nil
}

func (s *SheetsStore) ReplaceAll(ctx context.Context, rows []training.Row, expectedVersion string) (_ string, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "sheets.workouts.replaceall")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("workouts.count", len(rows)))

	s.mutex.Lock()
	defer s.mutex.Unlock()

	cells, err := s.readCells(ctx)
	if err != nil {
		return "", err
	}
	if cellsVersion(cells) != expectedVersion {
		return "", training.ErrVersionConflict
	}

	// one update covering both the new table and the old extent, so a failed
	// write leaves the previous log in place
	table := RowsToTable(rows)
	if _, err := s.service.Spreadsheets.Values.Update(
		s.spreadsheetID,
		s.sheetName+"!A1",
		&sheets.ValueRange{Values: toSheetValues(padTable(table, cells))},
	).ValueInputOption(valueInputRaw).Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("write rows: %w", err)
	}

	return cellsVersion(table), nil
}

func (s *SheetsStore) readCells(ctx context.Context) ([][]string, error) {
	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, s.readRange).
		ValueRenderOption(valueRenderFormatted).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("read range %s: %w", s.readRange, err)
	}

	cells := make([][]string, 0, len(resp.Values))
	for _, line := range resp.Values {
		values := make([]string, len(line))
		for i, v := range line {
			values[i] = fmt.Sprint(v)
		}
		cells = append(cells, values)
	}
	return cells, nil
}

// lineForHeader lays the row out in the column order the sheet already uses.
func lineForHeader(header []string, row training.Row) []string {
	columns := canonicalColumns(header)
	values := row.Values()
	line := make([]string, len(columns))
	for i, c := range columns {
		if pos := columnPosition(c); pos >= 0 {
			line[i] = values[pos]
		}
	}
	return line
}

// padTable blanks every cell of previous that table does not overwrite.
func padTable(table, previous [][]string) [][]string {
	width := 0
	for _, lines := range [][][]string{table, previous} {
		for _, line := range lines {
			width = max(width, len(line))
		}
	}
	height := max(len(table), len(previous))

	padded := make([][]string, height)
	for i := range padded {
		line := make([]string, width)
		if i < len(table) {
			copy(line, table[i])
		}
		padded[i] = line
	}
	return padded
}

func toSheetValues(table [][]string) [][]interface{} {
	values := make([][]interface{}, 0, len(table))
	for _, line := range table {
		l := make([]interface{}, len(line))
		for i, cell := range line {
			l[i] = cell
		}
		values = append(values, l)
	}
	return values
}

// cellsVersion hashes the visible content. Trailing blank lines and cells are
// excluded, the Sheets API drops them on read.
func cellsVersion(cells [][]string) string {
	end := len(cells)
	for end > 0 && isBlank(cells[end-1]) {
		end--
	}

	h := xxhash.New()
	for _, line := range cells[:end] {
		last := len(line)
		for last > 0 && strings.TrimSpace(line[last-1]) == "" {
			last--
		}
		for _, cell := range line[:last] {
			_, _ = h.WriteString(strings.TrimSpace(cell))
			_, _ = h.WriteString("\x1f")
		}
		_, _ = h.WriteString("\x1e")
	}
	return strconv.FormatUint(h.Sum64(), 16)
}

// lineNumber extracts the first line number of an A1 range such as "Log!A15:L15".
func lineNumber(a1Range string) (int, bool) {
	if i := strings.LastIndex(a1Range, "!"); i >= 0 {
		a1Range = a1Range[i+1:]
	}
	if i := strings.Index(a1Range, ":"); i >= 0 {
		a1Range = a1Range[:i]
	}
	digits := strings.TrimLeft(a1Range, "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz$")
	n, err := strconv.Atoi(digits)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
