// Package schema validates event payloads before they are published.
package schema

import (
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog/log"

	"upload-ai-service/internal/models"
)

// Validator checks required fields of outgoing events.
type Validator struct{}

func New() *Validator {
	return &Validator{}
}

// Validate returns an error describing the first problem found in event.
func (v *Validator) Validate(event any) error {
	var err error
	switch ev := event.(type) {
	case models.TranscriptEvent:
		err = validateTranscript(ev)
	case *models.TranscriptEvent:
		err = validateTranscript(*ev)
	case models.CompletionEvent:
		err = validateCompletion(ev)
	case *models.CompletionEvent:
		err = validateCompletion(*ev)
	default:
		err = fmt.Errorf("unsupported event type %T", event)
	}
	if err != nil {
		return fmt.Errorf("%w: %w", models.ErrValidation, err)
	}

	log.Debug().Interface("event", event).Msg("Event schema validated")
	return nil
}

func validateTranscript(ev models.TranscriptEvent) error {
	var errs []error
	if ev.EventType != models.EventVideoTranscribed {
		errs = append(errs, fmt.Errorf("eventType must be %q", models.EventVideoTranscribed))
	}
	if ev.VideoID == "" {
		errs = append(errs, errors.New("videoId is required"))
	}
	if ev.Provider == "" {
		errs = append(errs, errors.New("provider is required"))
	}
	if ev.Timestamp <= 0 {
		errs = append(errs, errors.New("timestamp is required"))
	}
	return errors.Join(errs...)
}

func validateCompletion(ev models.CompletionEvent) error {
	var errs []error
	if ev.EventType != models.EventCompletionFinished {
		errs = append(errs, fmt.Errorf("eventType must be %q", models.EventCompletionFinished))
	}
	if ev.VideoID == "" {
		errs = append(errs, errors.New("videoId is required"))
	}
	if math.IsNaN(ev.Temperature) || ev.Temperature < 0 || ev.Temperature > 1 {
		errs = append(errs, errors.New("temperature must be within [0, 1]"))
	}
	if ev.Chunks < 0 {
		errs = append(errs, errors.New("chunks must not be negative"))
	}
	if ev.Timestamp <= 0 {
		errs = append(errs, errors.New("timestamp is required"))
	}
	return errors.Join(errs...)
}
