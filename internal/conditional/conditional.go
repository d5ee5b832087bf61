// Package conditional decides whether a client's cached copy of a resource
// is still valid.
//
// Validators are compared as exact strings. When a request carries both
// If-None-Match and If-Modified-Since, a match on either one is enough:
// the policy is permissive and does not require the two
// validators to agree.
package conditional

import "net/http"

// Validators are the cache validators a client sent.
type Validators struct {
	IfNoneMatch        string
	HasIfNoneMatch     bool
	IfModifiedSince    string
	HasIfModifiedSince bool
}

// FromHeader extracts the validators present in h.
func FromHeader(h http.Header) Validators {
	var v Validators
	if vals := h.Values("If-None-Match"); len(vals) > 0 {
		v.IfNoneMatch, v.HasIfNoneMatch = vals[0], true
	}
	if vals := h.Values("If-Modified-Since"); len(vals) > 0 {
		v.IfModifiedSince, v.HasIfModifiedSince = vals[0], true
	}
	return v
}

// IsClientCached reports whether the client's copy, described by req, is
// current for a resource with the given ETag and Last-Modified values.
// Without any validator the answer is always false.
func IsClientCached(req Validators, etag, lastModified string) bool {
	switch {
	case req.HasIfNoneMatch && req.HasIfModifiedSince:
		return req.IfNoneMatch == etag || req.IfModifiedSince == lastModified
	case req.HasIfNoneMatch:
		return req.IfNoneMatch == etag
	case req.HasIfModifiedSince:
		return req.IfModifiedSince == lastModified
	default:
		return false
	}
}
