// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for reading the dashboard selection out of
// requests. The selected tab and pane always come from the URL, never from
// server state.

package http

import (
	"net/http"
	"net/url"
	"strings"

	"otchet/internal/view"
)

// SelectionParams holds the requested tab and pane.
type SelectionParams struct {
	PeriodID string
	View     string
}

// ParseSelection reads ?period= and ?view= from the query. Missing values
// stay empty; the handler falls back to the first tab and the report pane.
func ParseSelection(query url.Values) SelectionParams {
	return SelectionParams{
		PeriodID: sanitizeInput(query.Get("period")),
		View:     strings.ToLower(sanitizeInput(query.Get("view"))),
	}
}

// ViewOrDefault returns the requested pane, or the report pane when none
// was asked for.
func (p SelectionParams) ViewOrDefault() string {
	if p.View == "" {
		return view.ViewReport
	}
	return p.View
}

// PageURL is the bookmarkable dashboard address of a selection.
func PageURL(periodID, viewKey string) string {
	q := url.Values{}
	if periodID != "" {
		q.Set("period", periodID)
	}
	if viewKey != "" && viewKey != view.ViewReport {
		q.Set("view", viewKey)
	}
	if len(q) == 0 {
		return "/"
	}
	return "/?" + q.Encode()
}

// RequireMethod checks if the request method matches the expected method(s).
// Returns an error response builder if the method doesn't match.
func RequireMethod(r *http.Request, methods ...string) *HTMXResponseBuilder {
	for _, m := range methods {
		if r.Method == m {
			return nil
		}
	}
	return MethodNotAllowedError(strings.Join(methods, ", "))
}

// RequireGET accepts GET and HEAD; every dashboard route is read-only.
func RequireGET(r *http.Request) *HTMXResponseBuilder {
	return RequireMethod(r, http.MethodGet, http.MethodHead)
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
