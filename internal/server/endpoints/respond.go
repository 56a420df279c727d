package endpoints

import (
	"encoding/json"
	"net/http"

	"github.com/promptlab/promptlab/internal/fault"
)

// ErrorResponse is a standard error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// writeFault maps a categorized error onto an HTTP status and machine code.
func writeFault(w http.ResponseWriter, err error) {
	status, code := faultStatus(fault.KindOf(err))
	writeJSON(w, status, ErrorResponse{Error: fault.DetailOf(err), Code: code})
}

func faultStatus(kind fault.Kind) (int, string) {
	switch kind {
	case fault.Validation:
		return http.StatusBadRequest, "VALIDATION"
	case fault.DuplicateName:
		return http.StatusConflict, "DUPLICATE_NAME"
	case fault.NotFound:
		return http.StatusNotFound, "NOT_FOUND"
	case fault.ServiceUnavailable:
		return http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE"
	case fault.Timeout:
		return http.StatusGatewayTimeout, "TIMEOUT"
	case fault.AlreadyInProgress:
		return http.StatusConflict, "ALREADY_IN_PROGRESS"
	case fault.MalformedResponse:
		return http.StatusBadGateway, "MALFORMED_RESPONSE"
	case fault.StructuralImport:
		return http.StatusBadRequest, "STRUCTURAL_IMPORT"
	default:
		return http.StatusInternalServerError, ""
	}
}
