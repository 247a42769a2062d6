package http

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"bucks2bar/internal/core"
	"bucks2bar/internal/eventloop"
	"bucks2bar/internal/form"
	applog "bucks2bar/internal/log"
	"bucks2bar/internal/middleware/trace"
	"bucks2bar/internal/services"
)

type monthRow struct {
	Month          string
	IncomeID       string
	ExpenseID      string
	Income         string
	Expense        string
	IncomeInvalid  bool
	ExpenseInvalid bool
}

type tooltipRow struct {
	Month   string
	Income  string
	Expense string
}

type chartPanel struct {
	OOB          bool
	HasChart     bool
	Revision     int
	IncomeTotal  float64
	ExpenseTotal float64
	Net          float64
	LastSaved    string
	Pending      bool
	Invalid      string
	Tooltips     []tooltipRow
}

type pageData struct {
	Rows   []monthRow
	Chart  chartPanel
	WaitMs int64
}

func buildRows(st services.State) []monthRow {
	rows := make([]monthRow, 0, core.MonthCount)
	for m := 1; m <= core.MonthCount; m++ {
		inc := core.FieldID(core.Income, m)
		exp := core.FieldID(core.Expense, m)
		rows = append(rows, monthRow{
			Month:          core.Months[m-1],
			IncomeID:       inc,
			ExpenseID:      exp,
			Income:         st.Values[inc],
			Expense:        st.Values[exp],
			IncomeInvalid:  st.IsInvalid(inc),
			ExpenseInvalid: st.IsInvalid(exp),
		})
	}
	return rows
}

func (s *Server) buildChartPanel(ctx context.Context, st services.State) chartPanel {
	income, expense := st.Series.Totals()
	panel := chartPanel{
		Revision:     st.Revision,
		IncomeTotal:  income,
		ExpenseTotal: expense,
		Net:          income - expense,
		LastSaved:    lastSavedLabel(st.LastSync, s.now()),
		Pending:      st.Pending,
		Invalid:      strings.Join(st.Invalid, " "),
	}
	w, err := s.session.Chart(ctx)
	if err != nil {
		return panel
	}
	panel.HasChart = true
	for i, label := range w.Labels() {
		panel.Tooltips = append(panel.Tooltips, tooltipRow{
			Month:   label,
			Income:  w.Tooltip(0, i),
			Expense: w.Tooltip(1, i),
		})
	}
	return panel
}

func (s *Server) pageData(ctx context.Context, st services.State) pageData {
	return pageData{
		Rows:   buildRows(st),
		Chart:  s.buildChartPanel(ctx, st),
		WaitMs: s.wait.Milliseconds(),
	}
}

// renderFragment executes a named template into b's body.
func (s *Server) renderFragment(w http.ResponseWriter, r *http.Request, b *HTMXResponseBuilder, name string, data any) {
	if s.templates == nil {
		s.logger.ErrorContext(r.Context(), "Templates not loaded", applog.FieldPath, r.URL.Path)
		InternalServerError("Templates not loaded").Write(w)
		return
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.ErrorContext(r.Context(), "Template execution failed",
			applog.FieldError, err,
			"template", name)
		InternalServerError("Rendering failed").Write(w)
		return
	}
	b.BodyHTML(buf.String()).Write(w)
}

// sessionError maps session failures to responses.
func (s *Server) sessionError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, form.ErrUnknownField), errors.Is(err, core.ErrInvalidMonth):
		NotFoundError(err.Error()).Write(w)
	case errors.Is(err, eventloop.ErrStopped):
		ServiceUnavailableError("Shutting down").
			TriggerErrorNotification("The server is shutting down").
			Write(w)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		ServiceUnavailableError("Request cancelled").Write(w)
	default:
		s.logger.ErrorContext(r.Context(), "Session operation failed",
			applog.FieldError, err,
			applog.FieldPath, r.URL.Path)
		msg := "Unexpected error"
		if id := trace.GetRequestID(r.Context()); id != "" {
			msg += " (ref " + id + ")"
		}
		InternalServerError(msg).TriggerErrorNotification(msg).Write(w)
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	st, err := s.session.State(r.Context())
	if err != nil {
		s.sessionError(w, r, err)
		return
	}
	s.renderFragment(w, r, NewHTMXResponse(), "index.html", s.pageData(r.Context(), st))
}

// handleInput records a keystroke. The sync runs once the debounce wait
// elapses; the page is told when to refresh the chart.
func (s *Server) handleInput(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	value, ok, err := ParseFieldValue(r, id)
	if err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}
	if !ok {
		BadRequestError("Missing value").Write(w)
		return
	}
	if err := s.session.Input(r.Context(), id, value); err != nil {
		s.sessionError(w, r, err)
		return
	}
	NewHTMXResponse().
		Status(http.StatusNoContent).
		TriggerInputQueued(id, s.wait.Milliseconds()).
		Write(w)
}

// handleCommit flushes a pending sync on blur or Enter and returns the
// refreshed chart panel.
func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	value, ok, err := ParseFieldValue(r, id)
	if err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}
	var v *string
	if ok {
		v = &value
	}
	if err := s.session.Commit(r.Context(), id, v); err != nil {
		s.sessionError(w, r, err)
		return
	}
	s.writeChartPanel(w, r, NewHTMXResponse())
}

func (s *Server) handleChartPanel(w http.ResponseWriter, r *http.Request) {
	s.writeChartPanel(w, r, NewHTMXResponse())
}

func (s *Server) writeChartPanel(w http.ResponseWriter, r *http.Request, b *HTMXResponseBuilder) {
	st, err := s.session.State(r.Context())
	if err != nil {
		s.sessionError(w, r, err)
		return
	}
	s.renderFragment(w, r, b.TriggerChartUpdated(st.Revision), "chart_panel", s.buildChartPanel(r.Context(), st))
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.session.Reset(r.Context()); err != nil {
		s.sessionError(w, r, err)
		return
	}
	s.writeInputs(w, r)
}

func (s *Server) handleClearStorage(w http.ResponseWriter, r *http.Request) {
	if err := s.session.Clear(r.Context()); err != nil {
		s.sessionError(w, r, err)
		return
	}
	s.writeInputs(w, r)
}

// writeInputs returns the input grid with the chart panel swapped out of band.
func (s *Server) writeInputs(w http.ResponseWriter, r *http.Request) {
	st, err := s.session.State(r.Context())
	if err != nil {
		s.sessionError(w, r, err)
		return
	}
	data := s.pageData(r.Context(), st)
	data.Chart.OOB = true
	b := NewHTMXResponse().TriggerChartUpdated(st.Revision).TriggerFormReset()
	s.renderFragment(w, r, b, "inputs_swap", data)
}

func (s *Server) handleChartPNG(w http.ResponseWriter, r *http.Request) {
	chart, err := s.session.Chart(r.Context())
	if errors.Is(err, services.ErrNoChart) {
		NotFoundError("No chart rendered yet").Write(w)
		return
	}
	if err != nil {
		s.sessionError(w, r, err)
		return
	}
	png := chart.PNG()
	if len(png) == 0 {
		NotFoundError("No chart rendered yet").Write(w)
		return
	}

	b := NewHTMXResponse().
		Header("Content-Type", "image/png").
		Header("Cache-Control", "no-store").
		Header("ETag", `"rev-`+strconv.Itoa(chart.Revision())+`"`).
		Body(png)
	if r.URL.Query().Get("download") != "" {
		b.Header("Content-Disposition", `attachment; filename="`+core.ExportFilename(s.now())+`"`)
	}
	b.Write(w)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshots.Load(r.Context())
	if !ok {
		NewHTMXResponse().
			Status(http.StatusNotFound).
			BodyJSON(map[string]string{"error": "no saved data"}).
			Write(w)
		return
	}
	NewHTMXResponse().Header("Cache-Control", "no-store").BodyJSON(snap).Write(w)
}

func (s *Server) handleUsername(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}
	msg, valid := usernameMessage(sanitizeInput(r.Form.Get("username")))
	data := struct {
		Message string
		Valid   bool
	}{msg, valid}
	s.renderFragment(w, r, NewHTMXResponse(), "username_message", data)
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewHTMXResponse().BodyJSON(map[string]any{
		"status":    "ok",
		"timestamp": s.now().Format(time.RFC3339),
		"uptime":    s.now().Sub(s.started).Round(time.Second).String(),
	}).Write(w)
}

// handleReady checks templates and that the event loop still answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if st, err := s.session.State(ctx); err != nil {
		checks["event_loop"] = "failed: " + err.Error()
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["event_loop"] = "ok"
		checks["chart_revision"] = st.Revision
	}

	traceMetrics := s.tracer.GetMetrics()
	limitMetrics := s.limiter.GetMetrics()
	secMetrics := s.detector.GetMetrics()
	checks["metrics"] = map[string]any{
		"total_requests":      traceMetrics.TotalRequests,
		"average_response_ms": traceMetrics.AverageResponseTime.Milliseconds(),
		"rate_limit_hits":     limitMetrics.TotalHits,
		"rate_limit_clients":  limitMetrics.ClientCount,
		"suspicious_requests": secMetrics.SuspiciousRequests,
		"blocked_requests":    secMetrics.BlockedRequests,
	}

	NewHTMXResponse().
		Status(httpStatus).
		BodyJSON(map[string]any{
			"status":    status,
			"timestamp": s.now().Format(time.RFC3339),
			"checks":    checks,
		}).
		Write(w)
}
