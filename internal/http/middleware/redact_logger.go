// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file holds the scrubbing rules applied by Logger before anything from
// the request reaches the access log. Riders reach the service from a QR
// code on a phone and may paste contact details into query strings, so the
// query, the referer and selected headers are redacted:
//
//   - UUID-like identifiers become [REDACTED:id]
//   - email addresses become [REDACTED:email]
//   - phone numbers become [REDACTED:phone]
//   - Authorization, Cookie and Set-Cookie (plus configured headers) are
//     replaced by [REDACTED]
//
// Bodies are never logged.
package middleware

import (
	"net/http"
	"regexp"
	"strings"
)

var (
	uuidRE  = regexp.MustCompile(`(?i)\b[0-9a-f]{8}\-[0-9a-f]{4}\-[1-5][0-9a-f]{3}\-[89ab][0-9a-f]{3}\-[0-9a-f]{12}\b`)
	emailRE = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
	// digits only, so UUID hex runs never match
	phoneRE = regexp.MustCompile(`\b(?:\+?\d{1,3}[ .-]?)?(?:\(?\d{2,4}\)?[ .-]?)?\d{3,4}[ .-]?\d{4}\b`)
)

// RedactOptions configures extra scrubbing for Logger.
//
// MaskHeaders lists additional header names (case-insensitive) whose values
// are fully masked. LogHeaders, when true, adds the scrubbed request
// headers to every access log line.
type RedactOptions struct {
	MaskHeaders []string
	LogHeaders  bool
}

// redactor applies the scrubbing rules. The zero value masks the built-in
// sensitive headers only.
type redactor struct {
	mask       map[string]struct{}
	logHeaders bool
}

func newRedactor(opts RedactOptions) *redactor {
	r := &redactor{
		mask: map[string]struct{}{
			"authorization": {},
			"cookie":        {},
			"set-cookie":    {},
		},
		logHeaders: opts.LogHeaders,
	}
	for _, h := range opts.MaskHeaders {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			r.mask[h] = struct{}{}
		}
	}
	return r
}

// String scrubs identifiers, emails and phone numbers from s. UUIDs go
// first so the phone pattern never eats their digit groups.
func (r *redactor) String(s string) string {
	if s == "" {
		return s
	}
	s = uuidRE.ReplaceAllString(s, "[REDACTED:id]")
	s = emailRE.ReplaceAllString(s, "[REDACTED:email]")
	return phoneRE.ReplaceAllString(s, "[REDACTED:phone]")
}

// Headers returns a scrubbed copy of h, one joined value per name.
func (r *redactor) Headers(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, vv := range h {
		if _, ok := r.mask[strings.ToLower(k)]; ok {
			out[k] = "[REDACTED]"
			continue
		}
		out[k] = r.String(strings.Join(vv, ", "))
	}
	return out
}
