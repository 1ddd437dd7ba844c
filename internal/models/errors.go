package models

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by the server, the client and the media extractor.
var (
	ErrValidation             = errors.New("validation error")
	ErrInvalidParameter       = fmt.Errorf("%w: invalid parameter", ErrValidation)
	ErrNotFound               = errors.New("not found")
	ErrAlreadyTranscribed     = errors.New("video already transcribed")
	ErrUpstreamUnavailable    = errors.New("upstream unavailable")
	ErrInvalidAudio           = errors.New("invalid audio")
	ErrTranscriptNotReady     = errors.New("video transcription was not generated yet")
	ErrMediaEngineUnavailable = errors.New("media engine unavailable")
)

// Error codes are the stable, client-facing names of the taxonomy.
const (
	CodeValidation             = "validation_error"
	CodeInvalidParameter       = "invalid_parameter"
	CodeNotFound               = "not_found"
	CodeAlreadyTranscribed     = "already_transcribed"
	CodeUpstreamUnavailable    = "upstream_unavailable"
	CodeInvalidAudio           = "invalid_audio"
	CodeTranscriptNotReady     = "transcript_not_ready"
	CodeMediaEngineUnavailable = "media_engine_unavailable"
	CodeInternal               = "internal_error"
)

var codeOrder = []struct {
	err  error
	code string
}{
	// ErrInvalidParameter wraps ErrValidation, so it is checked first.
	{ErrInvalidParameter, CodeInvalidParameter},
	{ErrValidation, CodeValidation},
	{ErrNotFound, CodeNotFound},
	{ErrAlreadyTranscribed, CodeAlreadyTranscribed},
	{ErrTranscriptNotReady, CodeTranscriptNotReady},
	{ErrInvalidAudio, CodeInvalidAudio},
	{ErrUpstreamUnavailable, CodeUpstreamUnavailable},
	{ErrMediaEngineUnavailable, CodeMediaEngineUnavailable},
}

// Code returns the stable code for err, or CodeInternal.
func Code(err error) string {
	for _, c := range codeOrder {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeInternal
}

// ErrorForCode maps a code back to its sentinel error, or nil when unknown.
func ErrorForCode(code string) error {
	for _, c := range codeOrder {
		if c.code == code {
			return c.err
		}
	}
	return nil
}
