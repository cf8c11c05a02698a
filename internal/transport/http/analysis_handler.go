package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"qpcrcli/internal/dataprocessing"
	"qpcrcli/internal/ddct"
	apierrors "qpcrcli/internal/errors"
	"qpcrcli/internal/exporter"
	"qpcrcli/internal/services"
	"qpcrcli/pkg/contracts/domain"
)

// ContentTypeXLSX is the media type of the result workbook.
const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// AnalysisServiceInterface is the part of the analysis service the handler needs
type AnalysisServiceInterface interface {
	AnalyzeUpload(ctx context.Context, req services.UploadRequest) (*services.UploadResult, error)
}

// AnalysisDefaults are applied before the form fields of a request.
type AnalysisDefaults struct {
	Options ddct.Options
	Sheet   string
}

// AnalyzeForm holds the optional form fields of an analysis request. Absent
// fields keep the server defaults.
type AnalyzeForm struct {
	Control          string   `form:"control"`
	Reference        string   `form:"reference"`
	ControlColumn    string   `form:"control_col"`
	ReferenceColumn  string   `form:"ref_col"`
	SampleColumn     string   `form:"sample_col"`
	CqColumn         string   `form:"cq_col"`
	WellColumn       string   `form:"well_col"`
	Sheet            string   `form:"sheet"`
	Method           string   `form:"method" validate:"omitempty,oneof=mad iqr zscore"`
	Threshold        *float64 `form:"threshold" validate:"omitempty,gte=0"`
	MinReps          *int     `form:"min_reps" validate:"omitempty,min=1"`
	CaseSensitive    *bool    `form:"case_sensitive"`
	ExcludeReference *bool    `form:"exclude_ref"`
	OutlierFilter    *bool    `form:"filter"`
	RecordOutliers   *bool    `form:"record_outliers"`
}

// PreviewResponse is the JSON body of a preview request
type PreviewResponse struct {
	Report   domain.AnalysisReport `json:"report"`
	Wells    []domain.WellResult   `json:"wells"`
	Samples  []domain.SampleResult `json:"samples"`
	Outliers []domain.OutlierWell  `json:"outliers,omitempty"`
}

// AnalysisHandler serves plate uploads
type AnalysisHandler struct {
	service      AnalysisServiceInterface
	defaults     AnalysisDefaults
	maxMemory    int64
	validate     *validator.Validate
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewAnalysisHandler creates a new analysis handler. maxMemory bounds the
// part of a multipart upload kept in memory.
func NewAnalysisHandler(service AnalysisServiceInterface, defaults AnalysisDefaults, maxMemory int64, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *AnalysisHandler {
	if maxMemory <= 0 {
		maxMemory = 32 << 20
	}
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string { return f.Tag.Get("form") })
	return &AnalysisHandler{
		service:      service,
		defaults:     defaults,
		maxMemory:    maxMemory,
		validate:     v,
		logger:       logger.With(slog.String("component", "analysis_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the analysis routes
func (h *AnalysisHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Analyze)
	r.Post("/preview", h.Preview)
	return r
}

// Analyze handles POST /api/analyze and answers with the result workbook
func (h *AnalysisHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	req, ok := h.parseUpload(w, r)
	if !ok {
		return
	}
	defer closeReader(req)

	res, err := h.service.AnalyzeUpload(r.Context(), req)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	filename := filepath.Base(exporter.DefaultOutputPath(req.Name, exporter.FormatXLSX))
	w.Header().Set("Content-Type", ContentTypeXLSX)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(res.Workbook)))
	w.Header().Set("X-Run-ID", res.Report.RunID)
	w.Header().Set("X-Rows-Dropped", strconv.Itoa(res.Report.RowsDropped))
	w.Header().Set("X-Outliers-Removed", strconv.Itoa(res.Report.OutliersRemoved))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(res.Workbook); err != nil {
		h.logger.WarnContext(r.Context(), "Failed to send workbook", slog.String("error", err.Error()))
	}
}

// Preview handles POST /api/analyze/preview and answers with the tables as JSON
func (h *AnalysisHandler) Preview(w http.ResponseWriter, r *http.Request) {
	req, ok := h.parseUpload(w, r)
	if !ok {
		return
	}
	defer closeReader(req)
	req.SkipWorkbook = true

	res, err := h.service.AnalyzeUpload(r.Context(), req)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, PreviewResponse{
		Report:   res.Report,
		Wells:    res.Result.Wells,
		Samples:  res.Result.Samples,
		Outliers: res.Result.Outliers,
	})
}

// parseUpload reads the multipart form. On failure it has already answered.
func (h *AnalysisHandler) parseUpload(w http.ResponseWriter, r *http.Request) (services.UploadRequest, bool) {
	if err := r.ParseMultipartForm(h.maxMemory); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			h.errorHandler.HandleError(w, r, apierrors.ErrPayloadTooLarge)
		case errors.Is(err, http.ErrNotMultipart):
			h.errorHandler.HandleError(w, r, apierrors.ErrUnsupportedMedia)
		default:
			h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		}
		return services.UploadRequest{}, false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrMissingFile)
		return services.UploadRequest{}, false
	}

	form, err := parseForm(r)
	if err == nil {
		err = h.validateForm(form)
	}
	if err != nil {
		file.Close()
		h.errorHandler.HandleError(w, r, err)
		return services.UploadRequest{}, false
	}

	sheet := h.defaults.Sheet
	if form.Sheet != "" {
		sheet = form.Sheet
	}
	return services.UploadRequest{
		Reader:  file,
		Name:    filepath.Base(header.Filename),
		Sheet:   dataprocessing.ParseSheetSelector(sheet),
		Options: form.apply(h.defaults.Options),
	}, true
}

func (h *AnalysisHandler) validateForm(form AnalyzeForm) error {
	err := h.validate.Struct(form)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apierrors.InvalidRequestWithError(err)
	}
	fields := make([]apierrors.ValidationError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, apierrors.ValidationError{
			Field:   fe.Field(),
			Message: fmt.Sprintf("failed %s %s", fe.Tag(), fe.Param()),
		})
	}
	return apierrors.NewValidationErrors(fields)
}

// parseForm reads the typed form fields; a malformed number or boolean is a
// validation error naming the field.
func parseForm(r *http.Request) (AnalyzeForm, error) {
	form := AnalyzeForm{
		Control:         r.FormValue("control"),
		Reference:       r.FormValue("reference"),
		ControlColumn:   r.FormValue("control_col"),
		ReferenceColumn: r.FormValue("ref_col"),
		SampleColumn:    r.FormValue("sample_col"),
		CqColumn:        r.FormValue("cq_col"),
		WellColumn:      r.FormValue("well_col"),
		Sheet:           strings.TrimSpace(r.FormValue("sheet")),
		Method:          strings.ToLower(strings.TrimSpace(r.FormValue("method"))),
	}

	var err error
	if form.Threshold, err = optionalFloat(r, "threshold"); err != nil {
		return form, err
	}
	if form.MinReps, err = optionalInt(r, "min_reps"); err != nil {
		return form, err
	}
	bools := []struct {
		name   string
		target **bool
	}{
		{"case_sensitive", &form.CaseSensitive},
		{"exclude_ref", &form.ExcludeReference},
		{"filter", &form.OutlierFilter},
		{"record_outliers", &form.RecordOutliers},
	}
	for _, b := range bools {
		if *b.target, err = optionalBool(r, b.name); err != nil {
			return form, err
		}
	}
	return form, nil
}

// apply overlays the present form fields on base.
func (f AnalyzeForm) apply(base ddct.Options) ddct.Options {
	opts := base
	setString(&opts.ControlPattern, f.Control)
	setString(&opts.ReferencePattern, f.Reference)
	setString(&opts.Columns.Control, f.ControlColumn)
	setString(&opts.Columns.Reference, f.ReferenceColumn)
	setString(&opts.Columns.Sample, f.SampleColumn)
	setString(&opts.Columns.Cq, f.CqColumn)
	setString(&opts.Columns.Well, f.WellColumn)
	if f.Method != "" {
		if m, err := ddct.ParseMethod(f.Method); err == nil {
			opts.OutlierMethod = m
		}
	}
	if f.Threshold != nil {
		opts.OutlierThreshold = *f.Threshold
	}
	if f.MinReps != nil {
		opts.MinReps = *f.MinReps
	}
	if f.CaseSensitive != nil {
		opts.CaseSensitive = *f.CaseSensitive
	}
	if f.ExcludeReference != nil {
		opts.ExcludeReferenceInSamples = *f.ExcludeReference
	}
	if f.OutlierFilter != nil {
		opts.OutlierFilter = *f.OutlierFilter
	}
	if f.RecordOutliers != nil {
		opts.RecordOutliers = *f.RecordOutliers
	}
	return opts
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func optionalFloat(r *http.Request, name string) (*float64, error) {
	raw := strings.TrimSpace(r.FormValue(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, apierrors.ErrValidation(name, "must be a number")
	}
	return &v, nil
}

func optionalInt(r *http.Request, name string) (*int, error) {
	raw := strings.TrimSpace(r.FormValue(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, apierrors.ErrValidation(name, "must be an integer")
	}
	return &v, nil
}

func optionalBool(r *http.Request, name string) (*bool, error) {
	raw := strings.TrimSpace(r.FormValue(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, apierrors.ErrValidation(name, "must be true or false")
	}
	return &v, nil
}

func closeReader(req services.UploadRequest) {
	if c, ok := req.Reader.(interface{ Close() error }); ok {
		c.Close()
	}
}
