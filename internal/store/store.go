// Package store holds video records and their transcripts.
package store

import (
	"context"

	"upload-ai-service/internal/models"
)

// Store is the Transcript Store. Implementations are safe for concurrent use.
type Store interface {
	// CreateVideo registers a new record with no transcript.
	CreateVideo(ctx context.Context, name, sourcePath string) (models.VideoRecord, error)

	// SetTranscript stores the transcript of a video exactly once.
	// Returns models.ErrNotFound for unknown ids and models.ErrAlreadyTranscribed
	// when a transcript is already present.
	SetTranscript(ctx context.Context, videoID, text string) error

	// GetVideo returns the record or models.ErrNotFound.
	GetVideo(ctx context.Context, videoID string) (models.VideoRecord, error)

	// Ping reports whether the store can serve requests.
	Ping(ctx context.Context) error

	// Close releases resources held by the store.
	Close() error
}
