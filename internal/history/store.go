// Package history persists the workout log as a flat CSV file and merges
// newly imported batches into it.
package history

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ahatch/schwinn-dashboard/internal/workout"
)

// dateLayouts are the formats accepted when reading dates back out of a
// CSV. New files always write the first layout; the others cover logs
// written by earlier versions of the tooling.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"1/2/2006",
}

// Store owns the historical CSV. It performs no locking; callers
// serialize access to the file.
type Store struct {
	path string
	log  *zap.Logger
}

// NewStore returns a Store backed by the CSV at path.
func NewStore(path string, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{path: path, log: log}
}

// Path returns the location of the backing CSV.
func (s *Store) Path() string { return s.path }

// Load reads the historical log. A missing or empty file yields an empty
// log. Rows with unparseable dates are dropped and logged. The result is
// sorted ascending by date.
func (s *Store) Load() ([]workout.Record, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening history file: %w", err)
	}
	defer f.Close()

	records, err := DecodeCSV(f)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading history file %s: %w", s.path, err)
	}
	sortByDate(records)
	s.log.Debug("history loaded", zap.Int("rows", len(records)))
	return records, nil
}

// Save writes the log atomically: the rows go to a temp file in the
// destination directory which is then renamed over the live file, so a
// failed write never truncates existing history.
func (s *Store) Save(records []workout.Record) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating history directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".workout-history-*.csv")
	if err != nil {
		return fmt.Errorf("creating temp history file: %w", err)
	}
	tmpName := tmp.Name()

	if err := EncodeCSV(tmp, records); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing history file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp history file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing history file: %w", err)
	}
	return nil
}

// Merge combines the existing log with a new batch. Records are keyed by
// date; a batch record replaces an existing one with the same date. The
// result is sorted ascending by date. Merge is pure and idempotent.
func Merge(existing, batch []workout.Record) []workout.Record {
	byDate := make(map[time.Time]workout.Record, len(existing)+len(batch))
	for _, r := range existing {
		byDate[r.Date] = r
	}
	for _, r := range batch {
		byDate[r.Date] = r
	}

	merged := make([]workout.Record, 0, len(byDate))
	for _, r := range byDate {
		merged = append(merged, r)
	}
	sortByDate(merged)
	return merged
}

func sortByDate(records []workout.Record) {
	sort.Slice(records, func(i, j int) bool {
		return records[i].Date.Before(records[j].Date)
	})
}

// DecodeCSV reads workout rows from r. The header must contain every
// required column (extra columns are ignored, order does not matter).
// Rows whose date fails to parse are silently dropped, matching how
// earlier tooling coerced and discarded bad dates. io.EOF is returned
// for a completely empty stream.
func DecodeCSV(r io.Reader) ([]workout.Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, err
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}
	var missing []string
	for _, col := range workout.Columns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns in historical CSV: %s", strings.Join(missing, ", "))
	}

	var records []workout.Record
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		rec, ok := rowToRecord(row, index)
		if !ok {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// EncodeCSV writes the fixed header plus one row per record to w.
func EncodeCSV(w io.Writer, records []workout.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(workout.Columns); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			r.Date.Format(dateLayouts[0]),
			formatFloat(r.Distance),
			formatFloat(r.AvgSpeed),
			strconv.Itoa(r.WorkoutTime),
			formatFloat(r.TotalCalories),
			strconv.Itoa(r.HeartRate),
			strconv.Itoa(r.RPM),
			strconv.Itoa(r.Level),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func rowToRecord(row []string, index map[string]int) (workout.Record, bool) {
	field := func(name string) string {
		i := index[name]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	date, ok := parseDate(field("Workout_Date"))
	if !ok {
		return workout.Record{}, false
	}

	rec := workout.Record{
		Date:          date,
		Distance:      parseFloat(field("Distance")),
		AvgSpeed:      parseFloat(field("Avg_Speed")),
		WorkoutTime:   parseInt(field("Workout_Time")),
		TotalCalories: parseFloat(field("Total_Calories")),
		HeartRate:     parseInt(field("Heart_Rate")),
		RPM:           parseInt(field("RPM")),
		Level:         parseInt(field("Level")),
	}
	return rec, true
}

func parseDate(value string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return workout.Day(t.Year(), t.Month(), t.Day()), true
		}
	}
	return time.Time{}, false
}

func parseFloat(value string) float64 {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	return f
}

// parseInt accepts float-formatted integers ("132.0") since pandas-era
// files stored integer columns that way once a NaN forced a float dtype.
func parseInt(value string) int {
	if i, err := strconv.Atoi(value); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return int(f)
	}
	return 0
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
