package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// AccessEntry describes one request that touched student health records.
type AccessEntry struct {
	Resource   string
	PatientID  string
	Action     string // read, create, delete
	IPAddress  string
	UserAgent  string
	Path       string
	Method     string
	RequestID  string
	StatusCode int
}

// Audit logs every request under /api/ together with the patient it
// concerns. The entry is written after the handler has run so the final
// status is known.
func Audit(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			path := req.URL.Path
			if !strings.HasPrefix(path, "/api/") {
				return next(c)
			}

			err := next(c)

			entry := AccessEntry{
				Resource:   resourceOf(path),
				PatientID:  patientOf(c),
				Action:     actionOf(req.Method),
				IPAddress:  c.RealIP(),
				UserAgent:  req.UserAgent(),
				Path:       path,
				Method:     req.Method,
				StatusCode: c.Response().Status,
			}
			if rid, ok := c.Get("request_id").(string); ok {
				entry.RequestID = rid
			}
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					entry.StatusCode = he.Code
				} else {
					entry.StatusCode = http.StatusInternalServerError
				}
			}

			logger.Info().
				Str("type", "record_access").
				Str("request_id", entry.RequestID).
				Str("resource", entry.Resource).
				Str("patient_id", entry.PatientID).
				Str("action", entry.Action).
				Str("method", entry.Method).
				Str("path", entry.Path).
				Str("remote_ip", entry.IPAddress).
				Str("user_agent", entry.UserAgent).
				Int("status", entry.StatusCode).
				Msg("record_access")

			return err
		}
	}
}

func actionOf(method string) string {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return "create"
	case http.MethodDelete:
		return "delete"
	default:
		return "read"
	}
}

// resourceOf returns the first path segment after /api/.
//
//	/api/patients/PID-1     -> patients
//	/api/generate_report    -> generate_report
func resourceOf(path string) string {
	seg, _, _ := strings.Cut(strings.TrimPrefix(path, "/api/"), "/")
	if seg == "" {
		return "unknown"
	}
	return seg
}

// patientOf finds the patient a request concerns: the :id path parameter,
// then the patientId query parameter.
func patientOf(c echo.Context) string {
	if strings.HasPrefix(c.Request().URL.Path, "/api/patients/") {
		if id := c.Param("id"); id != "" {
			return id
		}
		rest := strings.TrimPrefix(c.Request().URL.Path, "/api/patients/")
		id, _, _ := strings.Cut(rest, "/")
		return id
	}
	return c.QueryParam("patientId")
}
