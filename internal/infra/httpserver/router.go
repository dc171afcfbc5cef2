package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	appreports "github.com/bryanwahyu/healthmate/internal/application/reports"
	appvitals "github.com/bryanwahyu/healthmate/internal/application/vitals"
	"github.com/bryanwahyu/healthmate/internal/domain/analysis"
	"github.com/bryanwahyu/healthmate/internal/domain/insight"
	"github.com/bryanwahyu/healthmate/internal/domain/reports"
	"github.com/bryanwahyu/healthmate/internal/domain/vitals"
	"github.com/bryanwahyu/healthmate/internal/middleware"
)

const (
	msgAnalysisUnavailable = "analysis temporarily unavailable"
	multipartMemory        = 8 << 20
)

// ReportService is what the router needs from the reports use-cases.
type ReportService interface {
	Upload(ctx context.Context, cmd appreports.UploadCommand) (*reports.Report, error)
	List(ctx context.Context, owner string, f reports.Filter) (*reports.PaginatedResult, error)
	Get(ctx context.Context, owner string, id reports.ID) (*reports.Report, error)
	Reanalyze(ctx context.Context, owner string, id reports.ID, wait bool) (*appreports.ReanalyzeResult, error)
	Stats(ctx context.Context, owner string) (*reports.Stats, error)
	Update(ctx context.Context, owner string, id reports.ID, cmd appreports.UpdateCommand) (*reports.Report, error)
	Delete(ctx context.Context, owner string, id reports.ID) error
}

// VitalsService is what the router needs from the vitals use-cases.
type VitalsService interface {
	Add(ctx context.Context, owner string, r vitals.Reading) (*vitals.Entry, error)
	List(ctx context.Context, owner string, f vitals.Filter) (*vitals.PaginatedResult, error)
	Get(ctx context.Context, owner string, id vitals.ID) (*vitals.Entry, error)
	Insights(ctx context.Context, owner string, id vitals.ID) (*appvitals.Insights, error)
	Stats(ctx context.Context, owner string) (*vitals.Stats, error)
	Update(ctx context.Context, owner string, id vitals.ID, p appvitals.Patch) (*vitals.Entry, error)
	Delete(ctx context.Context, owner string, id vitals.ID) error
}

type Options struct {
	Reports ReportService
	Vitals  VitalsService
	// Checkers back /ready.
	Checkers map[string]middleware.HealthChecker
	// APIKeys maps owner ID to key. Empty disables auth.
	APIKeys     map[string]string
	RateLimiter *middleware.RateLimiter
	CORSOrigins []string
	MaxUpload   int64
	Logger      zerolog.Logger
}

type Router struct {
	reports   ReportService
	vitals    VitalsService
	maxUpload int64
	logger    zerolog.Logger
}

func NewRouter(opt Options) http.Handler {
	r := &Router{reports: opt.Reports, vitals: opt.Vitals, maxUpload: opt.MaxUpload, logger: opt.Logger}
	if r.maxUpload <= 0 {
		r.maxUpload = appreports.DefaultMaxSize
	}

	mux := chi.NewRouter()
	mux.Use(middleware.LoggingMiddleware(opt.Logger))
	mux.Use(middleware.MetricsMiddleware)
	if len(opt.CORSOrigins) > 0 {
		mux.Use(cors.Handler(cors.Options{
			AllowedOrigins: opt.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
			MaxAge:         300,
		}))
	}
	if len(opt.APIKeys) > 0 {
		mux.Use(middleware.APIKeyAuth(opt.APIKeys))
	}

	mux.Get("/health", middleware.LivenessHandler)
	mux.Get("/ready", middleware.HealthHandler(opt.Checkers))
	mux.Get("/metrics", middleware.MetricsHandler)

	mux.Route("/v1/{owner}", func(rt chi.Router) {
		rt.Use(middleware.RequireOwner)
		if opt.RateLimiter != nil {
			rt.Use(middleware.RateLimitMiddleware(opt.RateLimiter))
		}

		rt.Post("/reports", r.wrap(r.handleUploadReport))
		rt.Get("/reports", r.wrap(r.handleListReports))
		rt.Get("/reports/stats", r.wrap(r.handleReportStats))
		rt.Get("/reports/{id}", r.wrap(r.handleGetReport))
		rt.Put("/reports/{id}", r.wrap(r.handleUpdateReport))
		rt.Delete("/reports/{id}", r.wrap(r.handleDeleteReport))
		rt.Post("/reports/{id}/analyze", r.wrap(r.handleReanalyzeReport))

		rt.Post("/vitals", r.wrap(r.handleAddVitals))
		rt.Get("/vitals", r.wrap(r.handleListVitals))
		rt.Get("/vitals/stats", r.wrap(r.handleVitalsStats))
		rt.Post("/vitals/insights", r.wrap(r.handleVitalsInsights))
		rt.Get("/vitals/{id}", r.wrap(r.handleGetVitals))
		rt.Put("/vitals/{id}", r.wrap(r.handleUpdateVitals))
		rt.Delete("/vitals/{id}", r.wrap(r.handleDeleteVitals))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// badRequest marks malformed input that never reached a service.
type badRequest struct{ msg string }

func (e badRequest) Error() string { return e.msg }

func badRequestf(format string, args ...any) error {
	return badRequest{msg: fmt.Sprintf(format, args...)}
}

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}
		var br badRequest
		var tooLarge *http.MaxBytesError
		switch {
		case errors.Is(err, reports.ErrNotFound), errors.Is(err, vitals.ErrNotFound), errors.Is(err, analysis.ErrRecordNotFound):
			http.Error(w, "not found", http.StatusNotFound)
		case errors.As(err, &br), errors.Is(err, reports.ErrInvalid), errors.Is(err, vitals.ErrInvalid):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, analysis.ErrQuotaExceeded):
			http.Error(w, "ai quota exceeded", http.StatusTooManyRequests)
		case errors.Is(err, reports.ErrTooLarge), errors.As(err, &tooLarge):
			http.Error(w, "file too large", http.StatusRequestEntityTooLarge)
		case errors.Is(err, reports.ErrUnsupportedMedia):
			http.Error(w, "only PDF and image files are accepted", http.StatusUnsupportedMediaType)
		default:
			r.logger.Error().Err(err).Str("method", req.Method).Str("path", req.URL.Path).Msg("request failed")
			http.Error(w, "internal server error", http.StatusInternalServerError)
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// POST /v1/{owner}/reports (multipart: file, title, reportType, reportDate, notes)
func (r *Router) handleUploadReport(w http.ResponseWriter, req *http.Request) error {
	owner := chi.URLParam(req, "owner")
	// headroom for the other form fields
	req.Body = http.MaxBytesReader(w, req.Body, r.maxUpload+1<<20)
	if err := req.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		return badRequestf("invalid multipart form: %v", err)
	}
	defer req.MultipartForm.RemoveAll()

	file, header, err := req.FormFile("file")
	if err != nil {
		return badRequestf("file is required")
	}
	defer file.Close()

	date, err := middleware.ParseDate(req.FormValue("reportDate"))
	if err != nil {
		return badRequest{msg: err.Error()}
	}
	if date == nil {
		return badRequestf("reportDate is required")
	}

	rep, err := r.reports.Upload(req.Context(), appreports.UploadCommand{
		OwnerID:    owner,
		Title:      middleware.SanitizeString(req.FormValue("title")),
		Type:       reports.Type(req.FormValue("reportType")),
		ReportDate: *date,
		Notes:      middleware.SanitizeString(req.FormValue("notes")),
		Size:       header.Size,
		Body:       file,
	})
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusCreated, map[string]any{
		"message": "report uploaded, analysis started",
		"report":  rep,
	})
}

// GET /v1/{owner}/reports?type=&from=&to=&page=&limit=
func (r *Router) handleListReports(w http.ResponseWriter, req *http.Request) error {
	owner := chi.URLParam(req, "owner")
	q := req.URL.Query()
	from, to, err := dateRange(q.Get("from"), q.Get("to"))
	if err != nil {
		return err
	}

	list, err := r.reports.List(req.Context(), owner, reports.Filter{
		Type:     reports.Type(q.Get("type")),
		From:     from,
		To:       to,
		Page:     middleware.ParsePage(q.Get("page")),
		PageSize: middleware.ValidateLimit(q.Get("limit"), 20),
	})
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}

// GET /v1/{owner}/reports/stats
func (r *Router) handleReportStats(w http.ResponseWriter, req *http.Request) error {
	st, err := r.reports.Stats(req.Context(), chi.URLParam(req, "owner"))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, st)
}

// GET /v1/{owner}/reports/{id}
func (r *Router) handleGetReport(w http.ResponseWriter, req *http.Request) error {
	id, err := recordID(req)
	if err != nil {
		return err
	}
	rep, err := r.reports.Get(req.Context(), chi.URLParam(req, "owner"), reports.ID(id))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, rep)
}

// PUT /v1/{owner}/reports/{id}
// Body: any of {"title", "reportType", "reportDate", "notes"}.
func (r *Router) handleUpdateReport(w http.ResponseWriter, req *http.Request) error {
	id, err := recordID(req)
	if err != nil {
		return err
	}
	var body struct {
		Title      *string       `json:"title"`
		ReportType *reports.Type `json:"reportType"`
		ReportDate *string       `json:"reportDate"`
		Notes      *string       `json:"notes"`
	}
	if err := json.NewDecoder(io.LimitReader(req.Body, 1<<16)).Decode(&body); err != nil {
		return badRequestf("invalid JSON body: %v", err)
	}

	cmd := appreports.UpdateCommand{Type: body.ReportType}
	if body.Title != nil {
		cmd.Title = lo.ToPtr(middleware.SanitizeString(*body.Title))
	}
	if body.Notes != nil {
		cmd.Notes = lo.ToPtr(middleware.SanitizeString(*body.Notes))
	}
	if body.ReportDate != nil {
		if cmd.ReportDate, err = middleware.ParseDate(*body.ReportDate); err != nil {
			return badRequest{msg: err.Error()}
		}
	}

	rep, err := r.reports.Update(req.Context(), chi.URLParam(req, "owner"), reports.ID(id), cmd)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]any{"message": "report updated", "report": rep})
}

// DELETE /v1/{owner}/reports/{id}
func (r *Router) handleDeleteReport(w http.ResponseWriter, req *http.Request) error {
	id, err := recordID(req)
	if err != nil {
		return err
	}
	if err := r.reports.Delete(req.Context(), chi.URLParam(req, "owner"), reports.ID(id)); err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]any{"message": "report deleted"})
}

// POST /v1/{owner}/reports/{id}/analyze[?wait=true]
func (r *Router) handleReanalyzeReport(w http.ResponseWriter, req *http.Request) error {
	id, err := recordID(req)
	if err != nil {
		return err
	}
	wait, _ := strconv.ParseBool(req.URL.Query().Get("wait"))

	res, err := r.reports.Reanalyze(req.Context(), chi.URLParam(req, "owner"), reports.ID(id), wait)
	if err != nil {
		return err
	}
	switch {
	case res.Outcome == nil:
		return writeJSON(w, http.StatusAccepted, map[string]any{"message": "analysis started", "report": res.Report})
	case !res.Outcome.Succeeded():
		return writeJSON(w, http.StatusServiceUnavailable, map[string]any{"message": msgAnalysisUnavailable, "report": res.Report})
	default:
		return writeJSON(w, http.StatusOK, map[string]any{"degraded": res.Outcome.Degraded, "report": res.Report})
	}
}

// vitalsBody accepts record_date as YYYY-MM-DD or RFC3339.
type vitalsBody struct {
	RecordDate string `json:"record_date"`
	vitals.Reading
}

// POST /v1/{owner}/vitals
func (r *Router) handleAddVitals(w http.ResponseWriter, req *http.Request) error {
	var body vitalsBody
	if err := json.NewDecoder(io.LimitReader(req.Body, 1<<20)).Decode(&body); err != nil {
		return badRequestf("invalid JSON body: %v", err)
	}
	date, err := middleware.ParseDate(body.RecordDate)
	if err != nil {
		return badRequest{msg: err.Error()}
	}
	if date == nil {
		return badRequestf("record_date is required")
	}
	reading := body.Reading
	reading.RecordDate = *date
	reading.Notes = middleware.SanitizeString(reading.Notes)

	e, err := r.vitals.Add(req.Context(), chi.URLParam(req, "owner"), reading)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusCreated, map[string]any{"message": "vitals added", "vitals": e})
}

// GET /v1/{owner}/vitals?from=&to=&page=&limit=
func (r *Router) handleListVitals(w http.ResponseWriter, req *http.Request) error {
	q := req.URL.Query()
	from, to, err := dateRange(q.Get("from"), q.Get("to"))
	if err != nil {
		return err
	}
	list, err := r.vitals.List(req.Context(), chi.URLParam(req, "owner"), vitals.Filter{
		From:     from,
		To:       to,
		Page:     middleware.ParsePage(q.Get("page")),
		PageSize: middleware.ValidateLimit(q.Get("limit"), 50),
	})
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}

// GET /v1/{owner}/vitals/stats
func (r *Router) handleVitalsStats(w http.ResponseWriter, req *http.Request) error {
	st, err := r.vitals.Stats(req.Context(), chi.URLParam(req, "owner"))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, st)
}

// GET /v1/{owner}/vitals/{id}
func (r *Router) handleGetVitals(w http.ResponseWriter, req *http.Request) error {
	id, err := recordID(req)
	if err != nil {
		return err
	}
	e, err := r.vitals.Get(req.Context(), chi.URLParam(req, "owner"), vitals.ID(id))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, e)
}

// vitalsPatch is the PUT body; absent keys keep the stored value.
type vitalsPatch struct {
	RecordDate    *string               `json:"record_date"`
	BloodPressure *vitals.BloodPressure `json:"blood_pressure"`
	BloodSugar    *vitals.BloodSugar    `json:"blood_sugar"`
	Weight        *vitals.Weight        `json:"weight"`
	Height        *vitals.Height        `json:"height"`
	HeartRate     *vitals.HeartRate     `json:"heart_rate"`
	Temperature   *vitals.Temperature   `json:"temperature"`
	OxygenLevel   *vitals.Oxygen        `json:"oxygen_level"`
	Notes         *string               `json:"notes"`
	Symptoms      *[]string             `json:"symptoms"`
}

// PUT /v1/{owner}/vitals/{id}
func (r *Router) handleUpdateVitals(w http.ResponseWriter, req *http.Request) error {
	id, err := recordID(req)
	if err != nil {
		return err
	}
	var body vitalsPatch
	if err := json.NewDecoder(io.LimitReader(req.Body, 1<<20)).Decode(&body); err != nil {
		return badRequestf("invalid JSON body: %v", err)
	}

	p := appvitals.Patch{
		BloodPressure: body.BloodPressure,
		BloodSugar:    body.BloodSugar,
		Weight:        body.Weight,
		Height:        body.Height,
		HeartRate:     body.HeartRate,
		Temperature:   body.Temperature,
		OxygenLevel:   body.OxygenLevel,
		Symptoms:      body.Symptoms,
	}
	if body.Notes != nil {
		p.Notes = lo.ToPtr(middleware.SanitizeString(*body.Notes))
	}
	if body.RecordDate != nil {
		if p.RecordDate, err = middleware.ParseDate(*body.RecordDate); err != nil {
			return badRequest{msg: err.Error()}
		}
	}

	e, err := r.vitals.Update(req.Context(), chi.URLParam(req, "owner"), vitals.ID(id), p)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]any{"message": "vitals updated", "vitals": e})
}

// DELETE /v1/{owner}/vitals/{id}
func (r *Router) handleDeleteVitals(w http.ResponseWriter, req *http.Request) error {
	id, err := recordID(req)
	if err != nil {
		return err
	}
	if err := r.vitals.Delete(req.Context(), chi.URLParam(req, "owner"), vitals.ID(id)); err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]any{"message": "vitals deleted"})
}

// POST /v1/{owner}/vitals/insights
// Body (optional): {"vitalId": "<id>"}; without it the latest reading is used.
func (r *Router) handleVitalsInsights(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		VitalID string `json:"vitalId"`
	}
	if err := json.NewDecoder(io.LimitReader(req.Body, 1<<16)).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		return badRequestf("invalid JSON body: %v", err)
	}
	if body.VitalID != "" {
		if err := middleware.ValidateRecordID(body.VitalID); err != nil {
			return badRequest{msg: err.Error()}
		}
	}

	res, err := r.vitals.Insights(req.Context(), chi.URLParam(req, "owner"), vitals.ID(body.VitalID))
	if err != nil {
		return err
	}
	if !res.Outcome.Succeeded() {
		return writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"message":  msgAnalysisUnavailable,
			"vital_id": res.Entry.ID,
		})
	}
	return writeJSON(w, http.StatusOK, struct {
		VitalID  vitals.ID       `json:"vital_id"`
		Insights *insight.Result `json:"insights"`
		Degraded bool            `json:"degraded"`
	}{res.Entry.ID, res.Outcome.Result, res.Outcome.Degraded})
}

func recordID(req *http.Request) (string, error) {
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateRecordID(id); err != nil {
		return "", badRequest{msg: err.Error()}
	}
	return id, nil
}

func dateRange(fromStr, toStr string) (from, to *time.Time, err error) {
	if from, err = middleware.ParseDate(fromStr); err != nil {
		return nil, nil, badRequest{msg: err.Error()}
	}
	if to, err = middleware.ParseDate(toStr); err != nil {
		return nil, nil, badRequest{msg: err.Error()}
	}
	if from != nil && to != nil && to.Before(*from) {
		return nil, nil, badRequestf("to is before from")
	}
	return from, to, nil
}
