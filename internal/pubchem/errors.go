// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pubchem

import (
	"errors"
	"fmt"

	"github.com/pdiddy/pubchem-fetch/internal/httputil"
)

// ErrMalformedPayload marks a response whose body cannot be turned into a
// record. It is permanent: retrying the same request returns the same body.
var ErrMalformedPayload = errors.New("malformed payload")

// malformed builds a permanent ErrMalformedPayload error.
func malformed(format string, args ...any) error {
	return httputil.Permanent(fmt.Errorf("%w: %s", ErrMalformedPayload, fmt.Sprintf(format, args...)))
}

// RequestError describes a request that did not produce a usable HTTP 200:
// the transport failed (StatusCode 0), the body could not be read, or
// PubChem answered with another status. All are transient.
type RequestError struct {
	URL        string
	StatusCode int
	Err        error
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("request %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("PubChem returned HTTP %d for %s", e.StatusCode, e.URL)
}

// Unwrap returns the transport error, if any.
func (e *RequestError) Unwrap() error { return e.Err }

// ErrorClass reports the error as transient.
func (e *RequestError) ErrorClass() httputil.Class { return httputil.ClassTransient }

// statusCode extracts the HTTP status from err, or 0.
func statusCode(err error) int {
	var re *RequestError
	if errors.As(err, &re) {
		return re.StatusCode
	}
	return 0
}
