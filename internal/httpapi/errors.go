// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Pitchside Contributors

package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/samber/oops"

	"github.com/pitchside/pitchside/internal/auth"
	"github.com/pitchside/pitchside/internal/config"
	"github.com/pitchside/pitchside/pkg/errutil"
)

// Client-facing messages that are not owned by the auth package.
const (
	MsgUserNotFound    = "User not found"
	MsgEmailRegistered = "Email already registered"
	MsgInternalError   = "internal server error"
)

// CodeInternal is the error_code of every 500 response.
const CodeInternal = "INTERNAL_ERROR"

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Detail    string `json:"detail"`
	ErrorCode string `json:"error_code,omitempty"`
}

// validationCodePrefixes mark error codes caused by bad client input.
var validationCodePrefixes = []string{
	"USER_INVALID_",
	"HTTP_INVALID_",
	"SESSION_FILTER_INVALID",
}

func errorCode(err error) string {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	code, _ := any(oopsErr.Code()).(string)
	return code
}

func isValidation(code string) bool {
	for _, prefix := range validationCodePrefixes {
		if strings.HasPrefix(code, prefix) {
			return true
		}
	}
	return false
}

// errorResponse maps err to a status code and body. Internal details never
// reach the body; 500s carry only CodeInternal.
func errorResponse(err error) (int, errorBody) {
	code := errorCode(err)

	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, errorBody{Detail: auth.MsgInvalidCredentials}
	case errors.Is(err, auth.ErrUnauthenticated):
		return http.StatusUnauthorized, errorBody{Detail: auth.PublicMessage(err, auth.MsgInvalidSession)}
	case errors.Is(err, auth.ErrForbidden):
		return http.StatusForbidden, errorBody{Detail: auth.PublicMessage(err, auth.MsgForbidden)}
	case errors.Is(err, auth.ErrNotFound):
		return http.StatusNotFound, errorBody{Detail: MsgUserNotFound}
	case errors.Is(err, auth.ErrDuplicateEmail):
		return http.StatusBadRequest, errorBody{Detail: MsgEmailRegistered}
	case isValidation(code):
		detail := err.Error()
		if oopsErr, ok := oops.AsOops(err); ok {
			detail = auth.PublicMessage(err, oopsErr.Error())
		}
		return http.StatusUnprocessableEntity, errorBody{Detail: detail, ErrorCode: code}
	}
	return http.StatusInternalServerError, errorBody{Detail: MsgInternalError, ErrorCode: CodeInternal}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := errorResponse(err)
	if status == http.StatusInternalServerError {
		errutil.LogErrorContext(r.Context(), s.logger, "request failed", err)
	}
	if status == http.StatusUnauthorized && s.cfg.TokenLocation == config.TokenInHeader {
		w.Header().Set("WWW-Authenticate", sessionScheme)
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v) //nolint:errcheck // the status line is already written
}

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return oops.Code("HTTP_INVALID_BODY").Errorf("invalid JSON body: %v", err)
	}
	return nil
}
