package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/KaramelBytes/tabloom/internal/aggregate"
	"github.com/KaramelBytes/tabloom/internal/export"
	"github.com/KaramelBytes/tabloom/internal/loader"
	"github.com/KaramelBytes/tabloom/internal/logging"
	"github.com/KaramelBytes/tabloom/internal/pipeline"
	"github.com/KaramelBytes/tabloom/internal/stats"
	"github.com/KaramelBytes/tabloom/internal/table"
	"github.com/go-chi/chi/v5"
)

// multipart framing allowance on top of the file limit
const formOverhead = 1 << 20

var errNoSession = errors.New("no file uploaded yet")

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, s.newPage(s.current(), r.URL.Query()))
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	limit := s.cfg.MaxUploadBytes
	if limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit+formOverhead)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			err = &table.ResourceError{What: "upload size", Limit: limit}
		} else {
			err = fmt.Errorf("invalid upload form: %w", err)
		}
		s.respondError(w, r, err)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, fmt.Errorf("no file provided: %w", err))
		return
	}
	defer file.Close()

	var src io.Reader = file
	if limit > 0 {
		src = io.LimitReader(file, limit+1)
	}
	data, err := io.ReadAll(src)
	if err != nil {
		s.respondError(w, r, fmt.Errorf("read upload: %w", err))
		return
	}
	opt := pipeline.Options{
		MaxUploadBytes: limit,
		Loader: loader.Options{
			MaxRows:   s.cfg.MaxRows,
			SheetName: r.FormValue("sheet"),
		},
	}
	sess, err := pipeline.Open(header.Filename, data, opt)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.replace(sess)
	logging.WithFields(r.Context(), "session", sess.ID.String(), "file", sess.Filename).
		Info("upload loaded", "format", sess.Format, "rows", sess.Table.Len(), "cols", sess.Table.Width())
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	sess := s.current()
	if sess == nil {
		s.respondError(w, r, errNoSession)
		return
	}
	q := r.URL.Query()
	page := s.newPage(sess, q)
	req, err := s.requestFromQuery(q)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	res, err := sess.Run(req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	page.Summary = tableView(res.Summary, 0)
	page.Chart = res.Chart
	if c, ok := sess.Table.Column(req.GroupBy[0]); ok {
		page.Describe = describeView(stats.Describe(c))
	}
	query := q.Encode()
	page.PlotURL = "/plot?" + query
	page.Downloads = []link{
		{Label: "Download data (XLSX)", URL: "/download/xlsx?" + query},
		{Label: "Download chart (HTML)", URL: "/download/html?" + query},
	}
	if res.Chart.Kind != export.Box {
		page.Downloads = append(page.Downloads, link{Label: "Download chart (SVG)", URL: "/download/svg?" + query})
	}
	s.render(w, r, http.StatusOK, page)
}

func (s *Server) handlePlot(w http.ResponseWriter, r *http.Request) {
	art, err := s.artifact(r, "html")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", art.MIMEType+"; charset=utf-8")
	writeBody(w, r, art.Data)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	art, err := s.artifact(r, chi.URLParam(r, "kind"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", art.MIMEType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", art.Filename))
	writeBody(w, r, art.Data)
}

// writeBody sends data after the headers. A failed write usually means the
// client went away; it is logged because the status is already sent.
func writeBody(w http.ResponseWriter, r *http.Request, data []byte) {
	if _, err := w.Write(data); err != nil {
		logging.FromContext(r.Context()).Warn("write response", "path", r.URL.Path, "bytes", len(data), "error", err)
	}
}

// artifact recomputes the summary from the session table and exports it.
func (s *Server) artifact(r *http.Request, kind string) (*export.Artifact, error) {
	sess := s.current()
	if sess == nil {
		return nil, errNoSession
	}
	req, err := s.requestFromQuery(r.URL.Query())
	if err != nil {
		return nil, err
	}
	res, err := sess.Run(req)
	if err != nil {
		return nil, err
	}
	switch kind {
	case "xlsx":
		return res.Spreadsheet()
	case "html":
		return res.ChartDocument(export.ChartOptions{AssetsHost: s.cfg.AssetsHost})
	case "svg":
		return res.ChartImage()
	}
	return nil, &table.ExportError{Msg: fmt.Sprintf("unknown download %q (use xlsx, html or svg)", kind)}
}

// requestFromQuery reads group_by, agg, count_all, order, drop_null_keys,
// chart, x, y, color and title. group_by and agg may repeat.
func (s *Server) requestFromQuery(q url.Values) (pipeline.Request, error) {
	var req pipeline.Request
	for _, g := range q["group_by"] {
		if g = strings.TrimSpace(g); g != "" {
			req.GroupBy = append(req.GroupBy, g)
		}
	}
	var aggs []string
	for _, a := range q["agg"] {
		if a = strings.TrimSpace(a); a != "" {
			aggs = append(aggs, a)
		}
	}
	spec, err := aggregate.ParseSpec(aggs)
	if err != nil {
		return req, err
	}
	req.Aggregations = spec
	req.CountAll = q.Get("count_all") != ""
	req.DropNullKeys = q.Get("drop_null_keys") != ""

	req.Order = s.cfg.GroupOrder
	if o := q.Get("order"); o != "" {
		if req.Order, err = aggregate.ParseOrder(o); err != nil {
			return req, err
		}
	}
	req.Chart.Kind = s.cfg.DefaultChart
	if k := q.Get("chart"); k != "" {
		if req.Chart.Kind, err = export.ParseChartKind(k); err != nil {
			return req, err
		}
	}
	req.Chart.X = q.Get("x")
	if y := strings.TrimSpace(q.Get("y")); y != "" {
		req.Chart.Y = strings.Split(y, ",")
	}
	req.Chart.Color = q.Get("color")
	req.Chart.Title = q.Get("title")
	return req, nil
}
