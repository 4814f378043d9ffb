// Package importer orchestrates one import: extract workout records from
// an input, merge them into the historical log, and persist the result.
package importer

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ahatch/schwinn-dashboard/internal/dat"
	"github.com/ahatch/schwinn-dashboard/internal/history"
	"github.com/ahatch/schwinn-dashboard/internal/observability"
	"github.com/ahatch/schwinn-dashboard/internal/workout"
)

// ErrNoWorkouts is returned when an export contains no decodable workout
// blocks at all.
var ErrNoWorkouts = errors.New("no workout objects found in DAT file")

// Import sources, used as metric labels and in log fields.
const (
	SourceUpload     = "upload"
	SourceDisk       = "disk"
	SourceHistoryCSV = "history_csv"
	SourceCLI        = "cli"
)

// Result summarizes one completed import.
type Result struct {
	JobID    string
	Source   string
	Imported int // records extracted from the input
	Skipped  int // malformed blocks skipped
	Rows     int // total rows in the log after the merge
	Duration time.Duration
}

// Service runs imports against a single history store. All mutating
// operations are serialized with an internal mutex since the store itself
// performs no locking.
type Service struct {
	extractor *dat.Extractor
	store     *history.Store
	log       *zap.Logger

	mu  sync.Mutex
	now func() time.Time
}

// NewService builds a Service around store.
func NewService(store *history.Store, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		extractor: dat.New(log),
		store:     store,
		log:       log,
		now:       time.Now,
	}
}

// ImportDAT extracts workout records from a raw export payload and merges
// them into the log. An export with zero decodable blocks yields
// ErrNoWorkouts and leaves the log untouched.
func (s *Service) ImportDAT(r io.Reader, source string) (Result, error) {
	payload, err := io.ReadAll(r)
	if err != nil {
		return Result{}, fmt.Errorf("reading export: %w", err)
	}
	return s.importPayload(payload, source)
}

// ImportDATFile imports the export at path. A missing or unreadable file
// is surfaced to the caller unchanged.
func (s *Service) ImportDATFile(path, source string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, err
	}
	defer f.Close()
	return s.ImportDAT(f, source)
}

func (s *Service) importPayload(payload []byte, source string) (Result, error) {
	start := s.now()
	jobID := uuid.NewString()

	s.log.Info("starting import",
		zap.String("job_id", jobID),
		zap.String("source", source),
		zap.String("size", humanize.Bytes(uint64(len(payload)))))

	batch, stats := s.extractor.Extract(payload)
	observability.RecordExtraction(stats.Objects, stats.Skipped)
	if len(batch) == 0 {
		return Result{JobID: jobID, Source: source, Skipped: stats.Skipped}, ErrNoWorkouts
	}

	rows, err := s.mergeAndSave(batch)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		JobID:    jobID,
		Source:   source,
		Imported: len(batch),
		Skipped:  stats.Skipped,
		Rows:     rows,
		Duration: s.now().Sub(start),
	}
	s.finish(res)
	return res, nil
}

// ImportHistoryCSV merges a previously exported history CSV into the log.
// The upload must carry every required column.
func (s *Service) ImportHistoryCSV(r io.Reader) (Result, error) {
	start := s.now()
	jobID := uuid.NewString()

	batch, err := history.DecodeCSV(r)
	if err != nil {
		return Result{}, err
	}

	rows, err := s.mergeAndSave(batch)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		JobID:    jobID,
		Source:   SourceHistoryCSV,
		Imported: len(batch),
		Rows:     rows,
		Duration: s.now().Sub(start),
	}
	s.finish(res)
	return res, nil
}

func (s *Service) mergeAndSave(batch []workout.Record) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.store.Load()
	if err != nil {
		return 0, err
	}
	merged := history.Merge(existing, batch)
	if err := s.store.Save(merged); err != nil {
		return 0, err
	}
	observability.RecordHistorySize(len(merged))
	return len(merged), nil
}

func (s *Service) finish(res Result) {
	observability.ImportLatency.WithLabelValues(res.Source).Observe(res.Duration.Seconds())
	observability.RecordImportCompleted(s.now())
	s.log.Info("import complete",
		zap.String("job_id", res.JobID),
		zap.String("source", res.Source),
		zap.Int("imported", res.Imported),
		zap.Int("skipped", res.Skipped),
		zap.Int("rows", res.Rows),
		zap.Duration("duration", res.Duration))
}

// Records returns the current log sorted ascending by date.
func (s *Service) Records() ([]workout.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Load()
}

// ExportCSV renders the current log in the on-disk CSV format.
func (s *Service) ExportCSV() ([]byte, error) {
	records, err := s.Records()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := history.EncodeCSV(&buf, records); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// HistoryPath exposes the CSV location for display and download handlers.
func (s *Service) HistoryPath() string { return s.store.Path() }
