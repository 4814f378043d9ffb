// Package dat extracts workout records from the Schwinn .DAT export
// format: a device-written envelope with JSON workout summaries embedded
// between stretches of binary framing.
package dat

import (
	"bytes"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/ahatch/schwinn-dashboard/internal/workout"
)

// headerLines is the fixed number of device header lines preceding the
// first workout block in every export.
const headerLines = 8

// Stats reports what the scanner saw in one payload.
type Stats struct {
	Objects int // JSON objects successfully decoded
	Skipped int // object candidates that failed to decode or validate
}

// Extractor scans raw export payloads for workout blocks.
type Extractor struct {
	log *zap.Logger
}

// New returns an Extractor logging skipped blocks to log.
func New(log *zap.Logger) *Extractor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Extractor{log: log}
}

// block mirrors one embedded JSON workout summary as the bike writes it.
type block struct {
	WorkoutDate struct {
		Month int `json:"Month"`
		Day   int `json:"Day"`
		Year  int `json:"Year"`
	} `json:"workoutDate"`
	Distance         float64 `json:"distance"`
	AverageSpeed     float64 `json:"averageSpeed"`
	TotalWorkoutTime struct {
		Hours   int `json:"Hours"`
		Minutes int `json:"Minutes"`
	} `json:"totalWorkoutTime"`
	TotalCalories float64 `json:"totalCalories"`
	AvgHeartRate  int     `json:"avgHeartRate"`
	AvgRpm        int     `json:"avgRpm"`
	AvgLevel      int     `json:"avgLevel"`
}

// Extract scans data for embedded JSON workout objects and converts each
// valid one into a Record. Malformed candidates are skipped and counted;
// extraction never aborts. Records come back in payload order.
func (e *Extractor) Extract(data []byte) ([]workout.Record, Stats) {
	payload := stripHeader(data)

	var (
		records []workout.Record
		stats   Stats
	)

	cursor := 0
	for {
		start := bytes.IndexByte(payload[cursor:], '{')
		if start < 0 {
			break
		}
		start += cursor

		raw, consumed, err := decodeOne(payload[start:])
		if err != nil {
			// Not a JSON object here; resume scanning one byte later.
			cursor = start + 1
			continue
		}
		cursor = start + consumed

		rec, err := recordFromRaw(raw)
		if err != nil {
			stats.Skipped++
			e.log.Warn("skipping malformed workout block",
				zap.Int("offset", start),
				zap.Error(err))
			continue
		}
		stats.Objects++
		records = append(records, rec)
	}

	return records, stats
}

// decodeOne decodes exactly one JSON value at the start of data and
// reports how many bytes it consumed.
func decodeOne(data []byte) (json.RawMessage, int, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return nil, 0, err
	}
	return raw, int(dec.InputOffset()), nil
}

func recordFromRaw(raw json.RawMessage) (workout.Record, error) {
	var b block
	if err := json.Unmarshal(raw, &b); err != nil {
		return workout.Record{}, err
	}
	return b.record()
}

// record converts the raw block into a Record, deriving total minutes
// from the hours/minutes pair the bike reports. Calories pass through
// unchanged; the device value is authoritative.
func (b block) record() (workout.Record, error) {
	if !validDate(b.WorkoutDate.Year, b.WorkoutDate.Month, b.WorkoutDate.Day) {
		return workout.Record{}, workout.ErrInvalidDate
	}
	rec := workout.Record{
		Date:          workout.Day(b.WorkoutDate.Year, time.Month(b.WorkoutDate.Month), b.WorkoutDate.Day),
		Distance:      b.Distance,
		AvgSpeed:      b.AverageSpeed,
		WorkoutTime:   b.TotalWorkoutTime.Hours*60 + b.TotalWorkoutTime.Minutes,
		TotalCalories: b.TotalCalories,
		HeartRate:     b.AvgHeartRate,
		RPM:           b.AvgRpm,
		Level:         b.AvgLevel,
	}
	if err := rec.Validate(); err != nil {
		return workout.Record{}, err
	}
	return rec, nil
}

// validDate rejects dates that time.Date would silently normalize,
// such as Month 13 or February 30.
func validDate(year, month, day int) bool {
	if year <= 0 || month < 1 || month > 12 || day < 1 || day > 31 {
		return false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return t.Year() == year && int(t.Month()) == month && t.Day() == day
}

// stripHeader drops the fixed device header lines so header bytes that
// happen to contain braces never reach the scanner.
func stripHeader(data []byte) []byte {
	rest := data
	for i := 0; i < headerLines; i++ {
		idx := bytes.IndexByte(rest, '\n')
		if idx < 0 {
			return nil
		}
		rest = rest[idx+1:]
	}
	return rest
}
