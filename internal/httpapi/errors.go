package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/astarworks/flextable/pkg/types"
)

// errorBody is the JSON shape of every non-2xx response.
type errorBody struct {
	Error errorInfo `json:"error"`
}

type errorInfo struct {
	Code    string             `json:"code"`
	Message string             `json:"message"`
	Fields  []types.FieldError `json:"fields,omitempty"`
}

// classify maps an engine error onto a status code and error payload.
// Validation failures carry the complete field list.
func classify(err error) (int, errorInfo) {
	if ve, ok := types.AsValidation(err); ok {
		return http.StatusBadRequest, errorInfo{
			Code:    "VALIDATION_FAILED",
			Message: "request failed validation",
			Fields:  ve.Fields,
		}
	}
	switch {
	case errors.Is(err, types.ErrNotFound), errors.Is(err, types.ErrPropertyNotFound):
		return http.StatusNotFound, errorInfo{Code: "NOT_FOUND", Message: err.Error()}
	case errors.Is(err, types.ErrVersionConflict):
		return http.StatusConflict, errorInfo{Code: "VERSION_CONFLICT", Message: err.Error()}
	case errors.Is(err, types.ErrPermissionDenied):
		return http.StatusForbidden, errorInfo{Code: "PERMISSION_DENIED", Message: err.Error()}
	case errors.Is(err, types.ErrBackendUnavailable), errors.Is(err, types.ErrDetached):
		return http.StatusServiceUnavailable, errorInfo{Code: "BACKEND_UNAVAILABLE", Message: err.Error()}
	default:
		return http.StatusInternalServerError, errorInfo{Code: "INTERNAL", Message: err.Error()}
	}
}

func writeError(c *gin.Context, err error) {
	status, info := classify(err)
	c.JSON(status, errorBody{Error: info})
}

// badRequest reports a malformed request body or query parameter.
func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, errorBody{Error: errorInfo{
		Code: "BAD_REQUEST", Message: err.Error(),
	}})
}
