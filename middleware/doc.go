// Copyright (c) 2025 the Friend Challenge authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and helper functions.

# Request Logging

Wrap handlers with request logging:

	mux.HandleFunc("GET /groups/{code}", middleware.WithLogging(handler))

Logs request start (method, path, remote) and completion (duration_ms).

# JSON Helpers

Write JSON responses:

	middleware.JSONResponse(w, http.StatusOK, data)
	middleware.ErrorResponse(w, http.StatusNotFound, models.KindNotFound, "Group not found")

ErrorResponse emits the {error, message} body clients branch on: the
error field carries a stable kind (not_found, forbidden, ...) and the
message is human-readable.

Parse JSON request bodies:

	var req models.JoinGroupRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, models.KindBadRequest, "Invalid JSON")
		return
	}

# Client IP Extraction

Get the original client IP (handles X-Forwarded-For, X-Real-IP):

	ip := middleware.GetClientIP(r)

Forwarded to Turnstile during CAPTCHA verification.
*/
package middleware
