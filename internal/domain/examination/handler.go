package examination

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ehr/examreport/internal/platform/apierr"
	"github.com/ehr/examreport/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/generate_patient_id", h.GeneratePatientID)
	api.POST("/submit_patient", h.SubmitPatient)
	api.GET("/patients", h.ListPatients)
	api.GET("/patients/:id", h.GetPatient)
}

type submitRequest struct {
	PatientID    string `json:"patientId"`
	CapturedDate string `json:"captured_date"`
	Submissions
}

func (h *Handler) GeneratePatientID(c echo.Context) error {
	pid, err := h.svc.IssuePatientID(c.Request().Context())
	if err != nil {
		return HTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"patientId": pid, "success": true})
}

func (h *Handler) SubmitPatient(c echo.Context) error {
	var req submitRequest
	if err := c.Bind(&req); err != nil {
		return apierr.New(http.StatusBadRequest, apierr.ReasonBadRequest, "Invalid request data")
	}

	rec, err := h.svc.Submit(c.Request().Context(), req.PatientID, req.CapturedDate, req.Submissions)
	if err != nil {
		return HTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"message":   "Patient data submitted successfully.",
		"patientId": rec.PatientID,
		"success":   true,
	})
}

func (h *Handler) ListPatients(c echo.Context) error {
	pg := pagination.FromContext(c)
	records, total, err := h.svc.ListRecords(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return HTTPError(err)
	}

	patients := make([]Presentation, 0, len(records))
	for _, rec := range records {
		patients = append(patients, Translate(rec))
	}
	return c.JSON(http.StatusOK, map[string]any{
		"patients":   patients,
		"pagination": pg.Page(total),
	})
}

func (h *Handler) GetPatient(c echo.Context) error {
	rec, err := h.svc.GetRecord(c.Request().Context(), c.Param("id"))
	if err != nil {
		return HTTPError(err)
	}
	return c.JSON(http.StatusOK, Translate(rec))
}

// HTTPError converts a domain error into the structured API error. Errors
// it does not recognise are returned unchanged.
func HTTPError(err error) error {
	if he, ok := MapError(err); ok {
		return he
	}
	return err
}

// MapError translates known domain errors. Storage details never reach the
// client.
func MapError(err error) (*echo.HTTPError, bool) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		if len(verr.Missing) > 0 {
			return apierr.New(http.StatusBadRequest, apierr.ReasonValidation, verr.Error()), true
		}
		return apierr.WithFields(http.StatusBadRequest, apierr.ReasonValidation, "Required fields are missing", verr.Fields), true
	case errors.Is(err, ErrRecordNotFound):
		return apierr.New(http.StatusNotFound, apierr.ReasonNotFound, "Patient record not found."), true
	case errors.Is(err, ErrIDExhausted):
		return apierr.New(http.StatusInternalServerError, apierr.ReasonIDGeneration, "Failed to generate patient ID"), true
	case errors.Is(err, ErrDuplicateRecord):
		return apierr.New(http.StatusConflict, apierr.ReasonConflict, "Patient record already exists"), true
	case errors.Is(err, context.DeadlineExceeded):
		return apierr.New(http.StatusGatewayTimeout, apierr.ReasonTimeout, "Storage did not respond in time"), true
	}

	var serr *StorageError
	if errors.As(err, &serr) {
		return apierr.New(http.StatusInternalServerError, apierr.ReasonStorage, "Failed to access patient records"), true
	}
	return nil, false
}
