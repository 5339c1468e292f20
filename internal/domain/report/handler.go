package report

import (
	"mime"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ehr/examreport/internal/domain/examination"
	"github.com/ehr/examreport/internal/platform/apierr"
)

type Handler struct {
	svc    *Service
	logger zerolog.Logger
}

func NewHandler(svc *Service, logger zerolog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/generate_report", h.GenerateReport)
	api.GET("/generate_pdf_report", h.GeneratePDFReport)
}

func (h *Handler) GenerateReport(c echo.Context) error {
	return h.serve(c, FormatDOCX)
}

func (h *Handler) GeneratePDFReport(c echo.Context) error {
	header := c.Response().Header()
	header.Set("Cache-Control", "no-cache, no-store, must-revalidate")
	header.Set("Pragma", "no-cache")
	header.Set("Expires", "0")
	return h.serve(c, FormatPDF)
}

func (h *Handler) serve(c echo.Context, format Format) error {
	pid := c.QueryParam("patientId")
	if pid == "" {
		return apierr.New(http.StatusBadRequest, apierr.ReasonBadRequest, "patientId query parameter is required.")
	}

	doc, err := h.svc.Generate(c.Request().Context(), pid, format)
	if err != nil {
		if he, ok := examination.MapError(err); ok {
			return he
		}
		h.logger.Error().Err(err).Str("patient_id", pid).Msg("report generation failed")
		return apierr.New(http.StatusInternalServerError, apierr.ReasonReportFailed, "Failed to generate report.")
	}

	c.Response().Header().Set(echo.HeaderContentDisposition,
		mime.FormatMediaType("attachment", map[string]string{"filename": doc.Filename()}))
	return c.Blob(http.StatusOK, doc.ContentType(), doc.Data)
}
