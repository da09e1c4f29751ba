package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/hlog"

	"postservice/posts"
)

// envelope is the shape of every response body.
type envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Post    interface{} `json:"post,omitempty"`
	Comment interface{} `json:"comment,omitempty"`
}

const internalErrorMessage = "Internal Server Error"

func writeJSON(rw http.ResponseWriter, r *http.Request, status int, body envelope) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	if err := json.NewEncoder(rw).Encode(body); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("Failed to encode response")
	}
}

func writeOK(rw http.ResponseWriter, r *http.Request, body envelope) {
	body.Success = true
	writeJSON(rw, r, http.StatusOK, body)
}

func writeFailure(rw http.ResponseWriter, r *http.Request, status int, message string) {
	writeJSON(rw, r, status, envelope{Success: false, Message: message})
}

// handleManagerError maps manager errors to responses. forbiddenMessage is
// what the caller sees when the role or ownership check failed.
func handleManagerError(rw http.ResponseWriter, r *http.Request, err error, forbiddenMessage string) {
	switch {
	case posts.IsForbidden(err):
		writeFailure(rw, r, http.StatusForbidden, forbiddenMessage)
	case posts.IsNotFound(err):
		message := "Post not found"
		if errors.Is(err, posts.ErrCommentNotFound) {
			message = "Comment not found"
		}
		hlog.FromRequest(r).Debug().Err(err).Msg("Not found")
		writeFailure(rw, r, http.StatusNotFound, message)
	case posts.IsConflict(err):
		writeFailure(rw, r, http.StatusConflict, "Post was modified concurrently, retry")
	default:
		// details stay in the log
		hlog.FromRequest(r).Error().Err(err).Msg("Request failed")
		writeFailure(rw, r, http.StatusInternalServerError, internalErrorMessage)
	}
}
