package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/KaramelBytes/tabloom/internal/loader"
	"github.com/KaramelBytes/tabloom/internal/logging"
)

const salesCSV = "Category,Region,Sales,Profit\n" +
	"Furniture,West,100,10\n" +
	"Technology,East,50.5,5\n" +
	"Furniture,East,20,-2\n"

func upload(t *testing.T, h http.Handler, filename, body string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte(body))
	mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func newTestServer(t *testing.T) (*Server, http.Handler) {
	t.Helper()
	s := NewServer(Config{})
	return s, s.Router()
}

func TestIndexWithoutSession(t *testing.T) {
	_, h := newTestServer(t)
	rec := get(h, "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `action="/upload"`) || strings.Contains(body, `action="/analyze"`) {
		t.Fatalf("expected only the upload form")
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("security headers missing")
	}
}

func TestUploadAndAnalyze(t *testing.T) {
	s, h := newTestServer(t)
	rec := upload(t, h, "sales.csv", salesCSV)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("upload status = %d: %s", rec.Code, rec.Body.String())
	}
	if s.current() == nil || s.current().Table.Len() != 3 {
		t.Fatal("session not stored")
	}

	body := get(h, "/").Body.String()
	for _, want := range []string{"sales.csv (csv): 3 rows, 4 columns", `<option value="Category"`, "Technology"} {
		if !strings.Contains(body, want) {
			t.Errorf("index missing %q", want)
		}
	}

	rec = get(h, "/analyze?group_by=Category&agg=Sales:sum&chart=pie")
	if rec.Code != http.StatusOK {
		t.Fatalf("analyze status = %d: %s", rec.Code, rec.Body.String())
	}
	body = rec.Body.String()
	for _, want := range []string{"<td>Furniture</td><td>120</td>", "<td>Technology</td><td>50.5</td>", "Category Analysis", "/plot?", "/download/xlsx?", "Summary Statistics"} {
		if !strings.Contains(body, want) {
			t.Errorf("analyze missing %q", want)
		}
	}
}

func TestPlotAndDownloads(t *testing.T) {
	_, h := newTestServer(t)
	upload(t, h, "sales.csv", salesCSV)
	q := "?group_by=Region&agg=Profit:sum&chart=bar"

	rec := get(h, "/plot"+q)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "echarts.min.js") {
		t.Fatalf("plot: %d", rec.Code)
	}

	cases := []struct {
		kind, mime, file string
	}{
		{"xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "data_download.xlsx"},
		{"html", "text/html", "plot.html"},
		{"svg", "image/svg+xml", "plot.svg"},
	}
	for _, tc := range cases {
		rec := get(h, "/download/"+tc.kind+q)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status %d: %s", tc.kind, rec.Code, rec.Body.String())
		}
		if got := rec.Header().Get("Content-Type"); got != tc.mime {
			t.Errorf("%s: content type %q", tc.kind, got)
		}
		if got := rec.Header().Get("Content-Disposition"); got != `attachment; filename="`+tc.file+`"` {
			t.Errorf("%s: disposition %q", tc.kind, got)
		}
	}

	rec = get(h, "/download/xlsx"+q)
	tbl, err := loader.Load(rec.Body.Bytes(), loader.XLSX, loader.Options{})
	if err != nil {
		t.Fatalf("downloaded workbook does not load: %v", err)
	}
	if got := strings.Join(tbl.Row(0), ","); got != "West,10" {
		t.Fatalf("row 0 = %s", got)
	}

	if rec := get(h, "/download/pdf"+q); rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown download kind: %d", rec.Code)
	}
}

func TestErrorsKeepSession(t *testing.T) {
	s, h := newTestServer(t)
	upload(t, h, "sales.csv", salesCSV)
	first := s.current()

	rec := upload(t, h, "broken.xlsx", "PK\x03\x04not really a workbook")
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "FMT") {
		t.Fatalf("bad upload: %d", rec.Code)
	}
	if s.current() != first {
		t.Fatal("a failed upload must keep the previous session")
	}

	rec = get(h, "/analyze?group_by=Ship+Mode")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing column status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "SCH") || !strings.Contains(body, "Ship Mode") || !strings.Contains(body, "Available columns") {
		t.Fatalf("schema error not rendered inline")
	}
	if !strings.Contains(body, "sales.csv (csv)") {
		t.Fatal("session info should still be shown")
	}

	rec = get(h, "/analyze?group_by=Category&agg=Region:sum")
	if !strings.Contains(rec.Body.String(), "AGG") {
		t.Fatalf("aggregation error not shown: %d", rec.Code)
	}

	rec = get(h, "/plot?group_by=Category&chart=radar")
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "EXP") {
		t.Fatalf("unsupported chart: %d %s", rec.Code, rec.Body.String())
	}
}

func TestNoSessionAndLimits(t *testing.T) {
	s := NewServer(Config{MaxUploadBytes: 64})
	h := s.Router()

	req := httptest.NewRequest(http.MethodGet, "/analyze?group_by=A", nil)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusConflict {
		t.Fatalf("no session status = %d", rec.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || resp.Code != "ERR" {
		t.Fatalf("json error = %+v, %v", resp, err)
	}

	rec = upload(t, h, "big.csv", "A,B\n"+strings.Repeat("1,2\n", 100))
	if rec.Code != http.StatusRequestEntityTooLarge || !strings.Contains(rec.Body.String(), "RES") {
		t.Fatalf("oversized upload: %d", rec.Code)
	}
	if s.current() != nil {
		t.Fatal("oversized upload must not create a session")
	}
}

func TestNegativeLimitDisablesUploadCheck(t *testing.T) {
	s := NewServer(Config{MaxUploadBytes: -1})
	rec := upload(t, s.Router(), "sales.csv", salesCSV)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("upload status = %d: %s", rec.Code, rec.Body.String())
	}
	if s.current() == nil || s.current().Table.Len() != 3 {
		t.Fatal("upload without a limit should load every row")
	}
}

func TestBoxPlotUsesRawRows(t *testing.T) {
	_, h := newTestServer(t)
	upload(t, h, "sales.csv", salesCSV)
	rec := get(h, "/plot?group_by=Category&agg=Total=Sales:sum&chart=box")
	if rec.Code != http.StatusOK {
		t.Fatalf("plot: %d %s", rec.Code, rec.Body.String())
	}
	// Furniture rows hold Sales 100 and 20; the summary would give 120.
	if body := rec.Body.String(); !strings.Contains(body, `"name":"Furniture","value":[20,40,60,80,100]`) {
		t.Fatalf("box plot not drawn from raw rows:\n%s", body)
	}
}

// brokenWriter accepts headers but fails every body write.
type brokenWriter struct{ header http.Header }

func (w *brokenWriter) Header() http.Header { return w.header }
func (w *brokenWriter) WriteHeader(int) {}
func (w *brokenWriter) Write([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestWriteFailuresAreLogged(t *testing.T) {
	var logs bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(logging.New(&logs, "info", "text"))
	t.Cleanup(func() { slog.SetDefault(prev) })

	_, h := newTestServer(t)
	upload(t, h, "sales.csv", salesCSV)

	paths := []string{"/plot?group_by=Region&agg=Profit:sum", "/download/xlsx?group_by=Region", "/"}
	for _, path := range paths {
		logs.Reset()
		h.ServeHTTP(&brokenWriter{header: http.Header{}}, httptest.NewRequest(http.MethodGet, path, nil))
		if !strings.Contains(logs.String(), "write response") || !strings.Contains(logs.String(), "connection reset") {
			t.Errorf("%s: write failure not logged:\n%s", path, logs.String())
		}
	}

	logs.Reset()
	req := httptest.NewRequest(http.MethodGet, "/analyze?group_by=Ship+Mode", nil)
	req.Header.Set("Accept", "application/json")
	h.ServeHTTP(&brokenWriter{header: http.Header{}}, req)
	if !strings.Contains(logs.String(), "write response") {
		t.Errorf("json error write failure not logged:\n%s", logs.String())
	}
}

func TestAssetOrigin(t *testing.T) {
	cases := map[string]string{
		"https://go-echarts.github.io/go-echarts-assets/assets/": "https://go-echarts.github.io",
		"http://localhost:9000/":                                 "http://localhost:9000",
		"/static/":                                               "",
	}
	for in, want := range cases {
		if got := assetOrigin(in); got != want {
			t.Errorf("assetOrigin(%q) = %q, want %q", in, got, want)
		}
	}
}
