package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"upload-ai-service/internal/models"
)

// Memory is an in-process Store. Records live for the lifetime of the process.
type Memory struct {
	mu     sync.RWMutex
	videos map[string]models.VideoRecord
	now    func() time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		videos: make(map[string]models.VideoRecord),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (m *Memory) CreateVideo(ctx context.Context, name, sourcePath string) (models.VideoRecord, error) {
	v := models.VideoRecord{
		ID:         uuid.NewString(),
		Name:       name,
		SourcePath: sourcePath,
		CreatedAt:  m.now(),
	}

	m.mu.Lock()
	m.videos[v.ID] = v
	m.mu.Unlock()

	return v, nil
}

func (m *Memory) SetTranscript(ctx context.Context, videoID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.videos[videoID]
	if !ok {
		return fmt.Errorf("video %s: %w", videoID, models.ErrNotFound)
	}
	if v.Transcribed() {
		return fmt.Errorf("video %s: %w", videoID, models.ErrAlreadyTranscribed)
	}
	v.Transcript = text
	m.videos[videoID] = v
	return nil
}

func (m *Memory) GetVideo(ctx context.Context, videoID string) (models.VideoRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.videos[videoID]
	if !ok {
		return models.VideoRecord{}, fmt.Errorf("video %s: %w", videoID, models.ErrNotFound)
	}
	return v, nil
}

func (m *Memory) Ping(ctx context.Context) error { return nil }

func (m *Memory) Close() error { return nil }
