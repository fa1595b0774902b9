package providers

import (
	"errors"
	"fmt"
	"strings"

	"learncards/internal/util"
)

type ErrorType string

const (
	ErrorConfig    ErrorType = "config"
	ErrorParse     ErrorType = "parse"
	ErrorQuota     ErrorType = "quota"
	ErrorRate      ErrorType = "rate"
	ErrorAuth      ErrorType = "auth"
	ErrorTransient ErrorType = "transient"
	ErrorPermanent ErrorType = "permanent"
	ErrorContext   ErrorType = "context"
)

// ConfigurationError is returned before any network call when a profile
// cannot be used, e.g. it has no API key.
type ConfigurationError struct {
	Profile string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("API key not configured for %s profile: %s", e.Profile, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return util.ErrConfiguration }

// UpstreamError covers non-2xx replies and envelopes without content.
type UpstreamError struct {
	Status int
	Body   string
	Err    error
}

func (e *UpstreamError) Error() string {
	if e.Status > 0 {
		return strings.TrimSpace(fmt.Sprintf("Provider API Error: %d %s", e.Status, e.Body))
	}
	if e.Err != nil {
		return "Provider request failed: " + e.Err.Error()
	}
	return "Provider API Error: " + e.Body
}

func (e *UpstreamError) Unwrap() []error {
	if e.Err != nil {
		return []error{util.ErrUpstream, e.Err}
	}
	return []error{util.ErrUpstream}
}

// ParseError means the HTTP call succeeded but the reply held no card array.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return "JSON parse error: " + e.Err.Error()
	}
	return "JSON parse error"
}

func (e *ParseError) Unwrap() error { return util.ErrParse }

func ClassifyError(err error) ErrorType {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, util.ErrConfiguration):
		return ErrorConfig
	case errors.Is(err, util.ErrParse):
		return ErrorParse
	}
	var up *UpstreamError
	if errors.As(err, &up) && (up.Status == 401 || up.Status == 403) {
		return ErrorAuth
	}
	e := strings.ToLower(err.Error())
	switch {
	case strings.Contains(e, "quota"), strings.Contains(e, "credit"), strings.Contains(e, "insufficient_quota"):
		return ErrorQuota
	case strings.Contains(e, "rate"), strings.Contains(e, "429"):
		return ErrorRate
	case strings.Contains(e, "context length"), strings.Contains(e, "too long"):
		return ErrorContext
	case strings.Contains(e, "timeout"), strings.Contains(e, "deadline"), strings.Contains(e, "temporarily"), strings.Contains(e, "unavailable"):
		return ErrorTransient
	default:
		return ErrorPermanent
	}
}
