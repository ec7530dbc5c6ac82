package assistant

import "errors"

var (
	// ErrValidation is returned for malformed requests: bad field lengths,
	// wrong file counts, oversized files.
	ErrValidation = errors.New("assistant: invalid request")

	// ErrNoDocuments is returned by Chat when the session has no uploaded
	// documents yet.
	ErrNoDocuments = errors.New("assistant: upload documents first")

	// ErrRatingsUnavailable is returned by Ratings when the configured sink
	// cannot be read back.
	ErrRatingsUnavailable = errors.New("assistant: rating sink does not support listing")
)
