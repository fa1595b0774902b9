package util

import "errors"

var (
	ErrNoExtractableText = errors.New("no extractable text found in document")

	ErrConfiguration = errors.New("configuration error")
	ErrUpstream      = errors.New("upstream provider error")
	ErrParse         = errors.New("JSON parse error")
	ErrMedia         = errors.New("media processing error")
	ErrValidation    = errors.New("validation error")
	ErrNotFound      = errors.New("not found")
)
