// internal/adapters/in/http/handlers/helpers.go
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"ayyooya/internal/application/usecase"
	"ayyooya/internal/domain/common"
)

const maxJSONBody = 1 << 20

// maxUploadBody caps multipart requests (slip or product photos).
const maxUploadBody = 32 << 20

type errorBody struct {
	Error            string   `json:"error"`
	Code             string   `json:"code"`
	FailedProductIDs []string `json:"failedProductIds,omitempty"`
	Order            any      `json:"order,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func statusOf(code common.Code) int {
	switch code {
	case common.CodeValidation:
		return http.StatusBadRequest
	case common.CodeNotFound:
		return http.StatusNotFound
	case common.CodeConflict, common.CodeBusy:
		return http.StatusConflict
	case common.CodeUnauthenticated:
		return http.StatusUnauthorized
	case common.CodeForbidden:
		return http.StatusForbidden
	case common.CodeBackend:
		return http.StatusBadGateway
	case common.CodePartial:
		return http.StatusMultiStatus
	default:
		return http.StatusInternalServerError
	}
}

func writeErr(w http.ResponseWriter, err error) {
	code := common.CodeOf(err)
	body := errorBody{Error: err.Error(), Code: string(code)}
	var pf *usecase.PartialFailure
	if errors.As(err, &pf) {
		body.FailedProductIDs = pf.ProductIDs
	}
	writeJSON(w, statusOf(code), body)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: msg, Code: string(common.CodeValidation)})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	if err := dec.Decode(v); err != nil {
		badRequest(w, fmt.Sprintf("invalid json: %v", err))
		return false
	}
	return true
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	return err == nil && b
}
