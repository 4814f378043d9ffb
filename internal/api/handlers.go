// Package api exposes the dashboard pages and JSON endpoints.
package api

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/ahatch/schwinn-dashboard/internal/importer"
	"github.com/ahatch/schwinn-dashboard/internal/workout"
)

//go:embed templates/index.html
var templateFS embed.FS

var indexTmpl = template.Must(template.New("index.html").Funcs(template.FuncMap{
	"date": func(t time.Time) string { return t.Format("2006-01-02") },
	"num":  formatNumber,
}).ParseFS(templateFS, "templates/index.html"))

// defaultFields are charted when the user has not picked any.
var defaultFields = []string{"Distance", "Avg_Speed", "Workout_Time"}

// Options carries handler tunables.
type Options struct {
	DATFile        string // on-disk export imported when no upload is supplied
	MaxUploadBytes int64
}

// Handler coordinates HTTP requests with the import service.
type Handler struct {
	svc  *importer.Service
	log  *zap.Logger
	opts Options
}

// NewHandler builds a Handler.
func NewHandler(svc *importer.Service, log *zap.Logger, opts Options) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 5 << 20
	}
	return &Handler{svc: svc, log: log, opts: opts}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/", h.index)
	mux.HandleFunc("/api/workouts", h.listWorkouts)
	mux.HandleFunc("/download-history", h.downloadHistory)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) index(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	var message string
	if r.Method == http.MethodPost {
		message = h.handleImport(w, r)
	}

	records, err := h.svc.Records()
	if err != nil {
		h.log.Error("loading history failed", zap.Error(err))
		http.Error(w, "unable to load workout history", http.StatusInternalServerError)
		return
	}

	view, err := h.buildIndexView(r, records, message)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var buf bytes.Buffer
	if err := indexTmpl.Execute(&buf, view); err != nil {
		h.log.Error("rendering dashboard failed", zap.Error(err))
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

// handleImport processes one POST: an uploaded history CSV, an uploaded
// DAT export, or as a fallback the configured on-disk export. It always
// returns a flash message for the page; failures never abort rendering.
func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request) string {
	r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(h.opts.MaxUploadBytes); err != nil {
		h.log.Warn("rejecting oversized or malformed upload", zap.Error(err))
		return fmt.Sprintf("Unable to read upload: %v", err)
	}

	if file, header, err := r.FormFile("history_csv_file"); err == nil && header.Filename != "" {
		defer file.Close()
		res, err := h.svc.ImportHistoryCSV(file)
		if err != nil {
			h.log.Error("history CSV import failed", zap.String("file", header.Filename), zap.Error(err))
			return fmt.Sprintf("Unable to import %s: %v", header.Filename, err)
		}
		return fmt.Sprintf("Uploaded %s and merged %d historical rows.", header.Filename, res.Imported)
	}

	if file, header, err := r.FormFile("dat_file"); err == nil && header.Filename != "" {
		defer file.Close()
		res, err := h.svc.ImportDAT(file, importer.SourceUpload)
		if err != nil {
			h.log.Error("DAT upload import failed", zap.String("file", header.Filename), zap.Error(err))
			return fmt.Sprintf("Unable to parse DAT file %s: %v", header.Filename, err)
		}
		return fmt.Sprintf("Uploaded %s and merged %d workouts.", header.Filename, res.Imported)
	}

	if _, err := os.Stat(h.opts.DATFile); err == nil {
		res, err := h.svc.ImportDATFile(h.opts.DATFile, importer.SourceDisk)
		if err != nil {
			h.log.Error("disk import failed", zap.String("file", h.opts.DATFile), zap.Error(err))
			return fmt.Sprintf("Unable to parse DAT file: %v", err)
		}
		return fmt.Sprintf("Loaded %s from disk and merged %d workouts.", h.opts.DATFile, res.Imported)
	}

	h.log.Warn("import attempted without DAT file available")
	return "No upload provided and no DAT file found on disk."
}

func (h *Handler) listWorkouts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	records, err := h.svc.Records()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	start, end, err := dateRange(r.FormValue("start_date"), r.FormValue("end_date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	filtered := workout.Filter(records, start, end)

	writeJSON(w, http.StatusOK, WorkoutListResponse{
		Records: filtered,
		Summary: workout.Summarize(filtered),
	})
}

func (h *Handler) downloadHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	csvBytes, err := h.svc.ExportCSV()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename=Workout_History.csv`)
	_, _ = w.Write(csvBytes)
}

// WorkoutListResponse is the payload for GET /api/workouts.
type WorkoutListResponse struct {
	Records []workout.Record `json:"records"`
	Summary workout.Summary  `json:"summary"`
}

type indexView struct {
	Message         string
	Fields          []string
	SelectedFields  map[string]bool
	StartDate       string
	EndDate         string
	MinDate         string
	MaxDate         string
	Records         []workout.Record // descending for the table
	Summary         workout.Summary
	RecordCount     int
	HistoricalCount int
	HistoryFile     string
	ChartData       template.JS
}

func (h *Handler) buildIndexView(r *http.Request, records []workout.Record, message string) (indexView, error) {
	startRaw := r.FormValue("start_date")
	endRaw := r.FormValue("end_date")
	start, end, err := dateRange(startRaw, endRaw)
	if err != nil {
		return indexView{}, err
	}

	selected := map[string]bool{}
	for _, f := range r.Form["fields"] {
		for _, known := range workout.GraphableFields {
			if f == known {
				selected[f] = true
			}
		}
	}
	if len(selected) == 0 {
		for _, f := range defaultFields {
			selected[f] = true
		}
	}

	filtered := workout.Filter(records, start, end)

	chart, err := chartData(filtered, selected)
	if err != nil {
		return indexView{}, err
	}

	view := indexView{
		Message:         message,
		Fields:          workout.GraphableFields,
		SelectedFields:  selected,
		StartDate:       startRaw,
		EndDate:         endRaw,
		Records:         descending(filtered),
		Summary:         workout.Summarize(filtered),
		RecordCount:     len(filtered),
		HistoricalCount: len(records),
		HistoryFile:     h.svc.HistoryPath(),
		ChartData:       chart,
	}
	if len(records) > 0 {
		view.MinDate = records[0].Date.Format("2006-01-02")
		view.MaxDate = records[len(records)-1].Date.Format("2006-01-02")
	}
	return view, nil
}

// chartData serializes the filtered records and selected fields for the
// inline chart script.
func chartData(records []workout.Record, selected map[string]bool) (template.JS, error) {
	fields := make([]string, 0, len(selected))
	for _, f := range workout.GraphableFields {
		if selected[f] {
			fields = append(fields, f)
		}
	}
	payload := struct {
		Records []workout.Record `json:"records"`
		Fields  []string         `json:"fields"`
	}{Records: records, Fields: fields}

	raw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return template.JS(raw), nil
}

func descending(records []workout.Record) []workout.Record {
	out := make([]workout.Record, len(records))
	for i, r := range records {
		out[len(records)-1-i] = r
	}
	return out
}

// dateRange parses the inclusive filter bounds; empty values leave the
// corresponding side unbounded.
func dateRange(startRaw, endRaw string) (time.Time, time.Time, error) {
	var start, end time.Time
	if startRaw != "" {
		t, err := time.Parse("2006-01-02", startRaw)
		if err != nil {
			return start, end, errors.New("invalid start_date, want YYYY-MM-DD")
		}
		start = t
	}
	if endRaw != "" {
		t, err := time.Parse("2006-01-02", endRaw)
		if err != nil {
			return start, end, errors.New("invalid end_date, want YYYY-MM-DD")
		}
		end = t
	}
	return start, end, nil
}

func formatNumber(v float64) string {
	return fmt.Sprintf("%.1f", v)
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
