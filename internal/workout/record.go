// Package workout defines the workout record model shared by the
// extractor, the history store, and the HTTP layer.
package workout

import (
	"errors"
	"time"
)

// Column names of the historical CSV, in file order. The order is part of
// the on-disk format and must not change.
var Columns = []string{
	"Workout_Date",
	"Distance",
	"Avg_Speed",
	"Workout_Time",
	"Total_Calories",
	"Heart_Rate",
	"RPM",
	"Level",
}

// GraphableFields are the numeric columns the dashboard can chart.
var GraphableFields = Columns[1:]

// ErrInvalidDate is returned when a record carries a zero or impossible date.
var ErrInvalidDate = errors.New("workout: invalid date")

// Record is one bike session. Date is the unique key: merging a record
// with the same date as an existing one replaces the old row.
type Record struct {
	Date          time.Time `json:"workout_date"`
	Distance      float64   `json:"distance"`
	AvgSpeed      float64   `json:"avg_speed"`
	WorkoutTime   int       `json:"workout_time"` // total minutes
	TotalCalories float64   `json:"total_calories"`
	HeartRate     int       `json:"heart_rate"`
	RPM           int       `json:"rpm"`
	Level         int       `json:"level"`
}

// Validate reports whether the record satisfies the model invariants.
func (r Record) Validate() error {
	if r.Date.IsZero() {
		return ErrInvalidDate
	}
	if r.Distance < 0 || r.AvgSpeed < 0 || r.WorkoutTime < 0 || r.TotalCalories < 0 ||
		r.HeartRate < 0 || r.RPM < 0 || r.Level < 0 {
		return errors.New("workout: negative field value")
	}
	return nil
}

// Day truncates a timestamp to a naive calendar date in UTC. All record
// dates are stored this way so date equality is day equality.
func Day(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Filter returns the records whose date falls inside the inclusive
// [start, end] range. A zero start or end leaves that side unbounded.
// The input order is preserved.
func Filter(records []Record, start, end time.Time) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if !start.IsZero() && r.Date.Before(start) {
			continue
		}
		if !end.IsZero() && r.Date.After(end) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Summary aggregates a set of records for the dashboard header.
type Summary struct {
	Count         int     `json:"count"`
	TotalDistance float64 `json:"total_distance"`
	TotalCalories float64 `json:"total_calories"`
	TotalMinutes  int     `json:"total_minutes"`
	AvgSpeed      float64 `json:"avg_speed"`
	AvgHeartRate  float64 `json:"avg_heart_rate"`
}

// Summarize computes aggregate stats over the given records.
func Summarize(records []Record) Summary {
	s := Summary{Count: len(records)}
	if len(records) == 0 {
		return s
	}
	var speedSum, hrSum float64
	for _, r := range records {
		s.TotalDistance += r.Distance
		s.TotalCalories += r.TotalCalories
		s.TotalMinutes += r.WorkoutTime
		speedSum += r.AvgSpeed
		hrSum += float64(r.HeartRate)
	}
	s.AvgSpeed = speedSum / float64(len(records))
	s.AvgHeartRate = hrSum / float64(len(records))
	return s
}

// LastNDays filters records to the trailing window ending at now,
// matching the dashboard's "last 30 days" view.
func LastNDays(records []Record, n int, now time.Time) []Record {
	cutoff := now.AddDate(0, 0, -n)
	return Filter(records, cutoff, time.Time{})
}
