package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/KOFI-GYIMAH/github-popularity/pkg/errors"
)

const dateLayout = "2006-01-02"

func writeSuccess(w http.ResponseWriter, data interface{}, message ...string) {
	writeResponse(w, http.StatusOK, data, message...)
}

func writeResponse(w http.ResponseWriter, status int, data interface{}, message ...string) {
	resp := APIResponse{
		Status: "success",
		Data:   data,
	}
	if len(message) > 0 {
		resp.Message = message[0]
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

func invalidRequest(detail string) error {
	return errors.New(errors.RefInvalidRequest, "Invalid Request Data", detail, nil, errors.LevelError)
}

// * validateQuery normalizes since to YYYY-MM-DD and rejects a blank language.
// * language itself is returned untouched.
func validateQuery(since, language string) (string, string, error) {
	if since == "" {
		return "", "", invalidRequest("Missing required parameter: 'since'.")
	}

	date, err := time.Parse(dateLayout, since)
	if err != nil {
		return "", "", invalidRequest("Invalid value ('" + since + "') for parameter 'since'. Expected format: YYYY-MM-DD.")
	}

	if strings.TrimSpace(language) == "" {
		return "", "", invalidRequest("Missing required parameter: 'language'.")
	}

	return date.Format(dateLayout), language, nil
}
