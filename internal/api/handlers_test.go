package api

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/ahatch/schwinn-dashboard/internal/history"
	"github.com/ahatch/schwinn-dashboard/internal/importer"
)

const testDAT = "header\nheader\nheader\nheader\nheader\nheader\nheader\nheader\n" +
	`{"workoutDate":{"Month":1,"Day":1,"Year":2024},"distance":3.2,"averageSpeed":14.2,"totalWorkoutTime":{"Hours":0,"Minutes":40},"totalCalories":200,"avgHeartRate":130,"avgRpm":75,"avgLevel":5}` + "\n" +
	`{"workoutDate":{"Month":1,"Day":2,"Year":2024},"distance":4.1,"averageSpeed":15.0,"totalWorkoutTime":{"Hours":0,"Minutes":45},"totalCalories":220,"avgHeartRate":135,"avgRpm":78,"avgLevel":6}`

func newTestHandler(t *testing.T) (*Handler, *importer.Service) {
	t.Helper()
	store := history.NewStore(filepath.Join(t.TempDir(), "Workout_History.csv"), zap.NewNop())
	svc := importer.NewService(store, zap.NewNop())
	h := NewHandler(svc, zap.NewNop(), Options{
		DATFile:        filepath.Join(t.TempDir(), "missing.DAT"),
		MaxUploadBytes: 1 << 20,
	})
	return h, svc
}

func multipartBody(t *testing.T, field, filename, content string) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("creating form file: %v", err)
	}
	if _, err := fw.Write([]byte(content)); err != nil {
		t.Fatalf("writing form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("closing multipart writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestHealthz(t *testing.T) {
	h, _ := newTestHandler(t)
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"status":"ok"`) {
		t.Fatalf("unexpected body: %s", rr.Body.String())
	}
}

func TestIndexRendersEmptyDashboard(t *testing.T) {
	h, _ := newTestHandler(t)

	rr := httptest.NewRecorder()
	h.index(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}
	body := rr.Body.String()
	if !strings.Contains(body, "Schwinn Workout Dashboard") {
		t.Fatal("missing page title")
	}
	if !strings.Contains(body, "0 workouts on record") {
		t.Fatalf("expected empty record count, body: %s", body)
	}
}

func TestUploadDATMergesWorkouts(t *testing.T) {
	h, svc := newTestHandler(t)

	body, contentType := multipartBody(t, "dat_file", "AARON.DAT", testDAT)
	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set("Content-Type", contentType)

	rr := httptest.NewRecorder()
	h.index(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), "merged 2 workouts") {
		t.Fatalf("missing merge message, body: %s", rr.Body.String())
	}

	records, err := svc.Records()
	if err != nil {
		t.Fatalf("loading records: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
}

func TestUploadHistoryCSVMissingColumnsReportsError(t *testing.T) {
	h, _ := newTestHandler(t)

	body, contentType := multipartBody(t, "history_csv_file", "bad.csv", "Workout_Date,Distance\n2024-01-01,3.2\n")
	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set("Content-Type", contentType)

	rr := httptest.NewRecorder()
	h.index(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "missing required columns") {
		t.Fatalf("expected missing-column message, body: %s", rr.Body.String())
	}
}

func TestUploadDATWithoutWorkoutsReportsError(t *testing.T) {
	h, _ := newTestHandler(t)

	body, contentType := multipartBody(t, "dat_file", "empty.DAT", "header\nonly\n")
	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set("Content-Type", contentType)

	rr := httptest.NewRecorder()
	h.index(rr, req)

	if !strings.Contains(rr.Body.String(), "Unable to parse DAT file") {
		t.Fatalf("expected parse failure message, body: %s", rr.Body.String())
	}
}

func TestPostWithoutUploadOrDiskFile(t *testing.T) {
	h, _ := newTestHandler(t)

	body, contentType := multipartBody(t, "unrelated", "x", "y")
	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set("Content-Type", contentType)

	rr := httptest.NewRecorder()
	h.index(rr, req)

	if !strings.Contains(rr.Body.String(), "No upload provided and no DAT file found on disk.") {
		t.Fatalf("expected no-upload message, body: %s", rr.Body.String())
	}
}

func TestListWorkoutsFiltersInclusive(t *testing.T) {
	h, svc := newTestHandler(t)
	if _, err := svc.ImportDAT(strings.NewReader(testDAT), importer.SourceUpload); err != nil {
		t.Fatalf("seeding history: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/workouts?start_date=2024-01-02&end_date=2024-01-02", nil)
	rr := httptest.NewRecorder()
	h.listWorkouts(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}

	var resp WorkoutListResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.Records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(resp.Records))
	}
	if resp.Records[0].Distance != 4.1 {
		t.Fatalf("unexpected record: %+v", resp.Records[0])
	}
	if resp.Summary.Count != 1 {
		t.Fatalf("unexpected summary: %+v", resp.Summary)
	}
}

func TestListWorkoutsRejectsBadDate(t *testing.T) {
	h, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/workouts?start_date=01-02-2024", nil)
	rr := httptest.NewRecorder()
	h.listWorkouts(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rr.Code)
	}
}

func TestDownloadHistory(t *testing.T) {
	h, svc := newTestHandler(t)
	if _, err := svc.ImportDAT(strings.NewReader(testDAT), importer.SourceUpload); err != nil {
		t.Fatalf("seeding history: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/download-history", nil)
	rr := httptest.NewRecorder()
	h.downloadHistory(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rr.Code)
	}
	if got := rr.Header().Get("Content-Type"); got != "text/csv" {
		t.Fatalf("unexpected content type %q", got)
	}
	if !strings.Contains(rr.Header().Get("Content-Disposition"), "Workout_History.csv") {
		t.Fatal("missing attachment disposition")
	}
	if !strings.HasPrefix(rr.Body.String(), "Workout_Date,Distance,Avg_Speed,") {
		t.Fatalf("unexpected CSV body: %s", rr.Body.String())
	}
}

func TestIndexShowsImportedRows(t *testing.T) {
	h, svc := newTestHandler(t)
	if _, err := svc.ImportDAT(strings.NewReader(testDAT), importer.SourceUpload); err != nil {
		t.Fatalf("seeding history: %v", err)
	}

	rr := httptest.NewRecorder()
	h.index(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	body := rr.Body.String()
	if !strings.Contains(body, "2 workouts on record") {
		t.Fatalf("expected record count, body: %s", body)
	}
	// Table is newest-first.
	first := strings.Index(body, "<td>2024-01-02</td>")
	second := strings.Index(body, "<td>2024-01-01</td>")
	if first == -1 || second == -1 || first > second {
		t.Fatalf("expected descending table order, body: %s", body)
	}
}
