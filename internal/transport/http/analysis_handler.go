package http

import (
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"fermcli/internal/dataprocessing"
	apierrors "fermcli/internal/errors"
	"fermcli/internal/exporter"
	"fermcli/internal/fermentation"
	"fermcli/internal/middleware"
	"fermcli/internal/services"
	api "fermcli/pkg/contracts/api/v1"
)

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	multipartMemory = 8 << 20
)

// AnalysisHandler serves analysis requests.
type AnalysisHandler struct {
	service      *services.AnalysisService
	validator    *middleware.RequestValidator
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
}

// NewAnalysisHandler creates a new analysis handler
func NewAnalysisHandler(service *services.AnalysisService, validator *middleware.RequestValidator, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		service:      service,
		validator:    validator,
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("handler", "analysis")),
	}
}

// Routes returns the analysis routes
func (h *AnalysisHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Analyze)
	r.Post("/sheets", h.AnalyzeSheet)
	r.Post("/tables/{table}", h.AnalyzeTable)
	return r
}

// Analyze handles POST /api/analysis
func (h *AnalysisHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	run, err := h.run(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, run.Response())
}

// AnalyzeTable handles POST /api/analysis/tables/{table} and responds
// with one result table as CSV.
func (h *AnalysisHandler) AnalyzeTable(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "table")
	if !knownTable(name) {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("table",
			"table must be one of: "+strings.Join(fermentation.TableNames(), ", ")))
		return
	}

	run, err := h.run(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	table, ok := run.Result.Table(name)
	if !ok {
		h.errorHandler.HandleError(w, r, apierrors.NotFoundError(name+" table for a single-lot run"))
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+".csv"))
	w.Header().Set("X-Run-ID", run.ID)
	if err := exporter.WriteTableTo(w, table); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to stream table",
			slog.String("table", name),
			slog.String("error", err.Error()))
	}
}

// AnalyzeSheet handles POST /api/analysis/sheets
func (h *AnalysisHandler) AnalyzeSheet(w http.ResponseWriter, r *http.Request) {
	var req api.SheetAnalysisRequest
	if err := h.validator.DecodeJSON(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	run, err := h.service.AnalyzeSheet(r.Context(), req)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, run.Response())
}

// Schemas handles GET /api/schemas
func (h *AnalysisHandler) Schemas(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.Schemas())
}

// run reads the log and options from any supported body and analyzes it.
func (h *AnalysisHandler) run(r *http.Request) (*services.Run, error) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		mediaType = ""
	}

	var (
		raw   fermentation.RawTable
		label string
		opts  api.AnalysisOptions
	)

	switch {
	case mediaType == "application/json":
		var req api.AnalysisRequest
		if err := h.validator.DecodeJSON(r, &req); err != nil {
			return nil, err
		}
		raw = fermentation.RawTable{Columns: req.Columns}
		for _, row := range req.Rows {
			raw.Rows = append(raw.Rows, fermentation.RawRow(row))
		}
		label = "request"
		opts = req.AnalysisOptions
		if err := mergeQueryOptions(&opts, r); err != nil {
			return nil, err
		}

	case mediaType == "multipart/form-data":
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			return nil, bodyError(err)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			return nil, apierrors.ErrValidation("file", "file is required")
		}
		defer file.Close()
		format, err := dataprocessing.FormatForPath(header.Filename)
		if err != nil {
			return nil, err
		}
		if raw, err = dataprocessing.Parse(file, format, r.FormValue("sheet")); err != nil {
			return nil, err
		}
		label = header.Filename
		if opts, err = optionsFromValues(r.FormValue); err != nil {
			return nil, err
		}

	case mediaType == "text/csv" || mediaType == contentTypeXLSX:
		format := dataprocessing.FormatCSV
		if mediaType == contentTypeXLSX {
			format = dataprocessing.FormatXLSX
		}
		if raw, err = dataprocessing.Parse(r.Body, format, r.URL.Query().Get("sheet")); err != nil {
			return nil, bodyError(err)
		}
		label = "upload." + format
		if opts, err = optionsFromValues(r.URL.Query().Get); err != nil {
			return nil, err
		}

	default:
		return nil, apierrors.NewWithDetails(http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE",
			"Unsupported content type", map[string]interface{}{
				"content_type": r.Header.Get("Content-Type"),
				"allowed":      []string{"application/json", "multipart/form-data", "text/csv", contentTypeXLSX},
			})
	}

	if err := h.validator.ValidateStruct(opts); err != nil {
		return nil, err
	}
	return h.service.Analyze(r.Context(), label, raw, opts)
}

// optionsFromValues reads analysis options from form or query values.
func optionsFromValues(get func(string) string) (api.AnalysisOptions, error) {
	opts := api.AnalysisOptions{
		Schema: get("schema"),
		Lot:    get("lot"),
	}
	var err error
	if opts.RapidDropThreshold, err = floatValue(get, "threshold"); err != nil {
		return opts, err
	}
	if opts.HighTempThreshold, err = floatValue(get, "high_temp"); err != nil {
		return opts, err
	}
	return opts, nil
}

// mergeQueryOptions fills options absent from a JSON body from the query string.
func mergeQueryOptions(opts *api.AnalysisOptions, r *http.Request) error {
	q, err := optionsFromValues(r.URL.Query().Get)
	if err != nil {
		return err
	}
	if opts.Schema == "" {
		opts.Schema = q.Schema
	}
	if opts.Lot == "" {
		opts.Lot = q.Lot
	}
	if opts.RapidDropThreshold == nil {
		opts.RapidDropThreshold = q.RapidDropThreshold
	}
	if opts.HighTempThreshold == nil {
		opts.HighTempThreshold = q.HighTempThreshold
	}
	return nil
}

func floatValue(get func(string) string, key string) (*float64, error) {
	s := strings.TrimSpace(get(key))
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, apierrors.ErrValidation(key, key+" must be a number")
	}
	return &v, nil
}

// bodyError keeps size-limit errors intact so they map to 413.
func bodyError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return maxErr
	}
	return err
}

func knownTable(name string) bool {
	for _, t := range fermentation.TableNames() {
		if t == name {
			return true
		}
	}
	return false
}
