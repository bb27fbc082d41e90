package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"pandachat/internal/apperr"
	"pandachat/internal/storage"
)

// apiResponse is the uniform envelope for non-streaming endpoints. The HTTP
// status always mirrors the numeric code.
type apiResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data any    `json:"data"`
}

func writeSuccess(w http.ResponseWriter, data any) {
	if data == nil {
		data = struct{}{}
	}
	writeJSON(w, http.StatusOK, apiResponse{Code: 200, Msg: "success", Data: data})
}

func writeError(w http.ResponseWriter, logger zerolog.Logger, err error) {
	if ae, ok := apperr.As(err); ok {
		data := ae.Data
		if data == nil {
			data = struct{}{}
		}
		if ae.Code >= 500 {
			logger.Error().Err(err).Msg("request failed")
		}
		writeJSON(w, ae.Code, apiResponse{Code: ae.Code, Msg: ae.Msg, Data: data})
		return
	}

	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeJSON(w, 404, apiResponse{Code: 404, Msg: apperr.NotFound.Msg, Data: struct{}{}})
	case errors.Is(err, storage.ErrConflict):
		writeJSON(w, 409, apiResponse{Code: 409, Msg: apperr.Conflict.Msg, Data: struct{}{}})
	default:
		logger.Error().Err(err).Msg("unhandled error")
		writeJSON(w, 500, apiResponse{Code: 500, Msg: apperr.InternalError.Msg, Data: struct{}{}})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperr.New(apperr.BadRequest, "invalid json body")
	}
	return nil
}
