package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/akolanti/filebook/internal/adapter"
	"github.com/akolanti/filebook/internal/auth"
	"github.com/akolanti/filebook/internal/domain/filebookModel"
	"github.com/akolanti/filebook/pkg/logger_i"
)

var logRH = logger_i.NewLogger("RequestHandler")

func writeJsonResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// the status line is already out, nothing left to tell the client
		logRH.Error("Error encoding response", "error", err)
	}
}

func WriteErrorResponse(w http.ResponseWriter, httpCode int, id string, message string) {
	writeJsonResponse(w, httpCode, adapter.BadRequest(id, message, httpCode))
}

// writeError maps err onto the envelope. Internal causes are logged, never sent.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code, body := adapter.ToErrorResponse(logger_i.TraceID(r.Context()), err)
	log := logRH.WithContext(r.Context())
	if code >= http.StatusInternalServerError {
		log.Error("request failed", "path", r.URL.Path, "error", err)
	} else {
		log.Info("request rejected", "path", r.URL.Path, "code", code, "error", err)
	}
	writeJsonResponse(w, code, body)
}

func decodeJSON(r *http.Request, dst any) error {
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			logRH.Error("Couldn't close the request body", "error", err)
		}
	}(r.Body)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return filebookModel.Validation("Bad Request")
	}
	return nil
}

// sessionOf is only reached behind the auth middleware; a missing session
// means the route was mounted without it.
func sessionOf(r *http.Request) (filebookModel.Session, error) {
	session, ok := auth.SessionFrom(r.Context())
	if !ok {
		return filebookModel.Session{}, filebookModel.NewError(filebookModel.KindUnauthorized, "Unauthorized", nil)
	}
	return session, nil
}
