package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"upload-ai-service/internal/models"
)

const createVideosTable = `
CREATE TABLE IF NOT EXISTS videos (
	id            UUID PRIMARY KEY,
	name          TEXT NOT NULL,
	path          TEXT NOT NULL,
	transcription TEXT,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Postgres is a Store backed by a PostgreSQL table.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to dbURL and ensures the videos table exists.
func NewPostgres(ctx context.Context, dbURL string) (*Postgres, error) {
	if dbURL == "" {
		return nil, errors.New("postgres store: POSTGRES_URL is required")
	}

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, createVideosTable); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create videos table: %w", err)
	}

	log.Info().Msg("Postgres transcript store initialized")
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) CreateVideo(ctx context.Context, name, sourcePath string) (models.VideoRecord, error) {
	v := models.VideoRecord{
		ID:         uuid.NewString(),
		Name:       name,
		SourcePath: sourcePath,
	}
	err := p.pool.QueryRow(ctx,
		`INSERT INTO videos (id, name, path) VALUES ($1, $2, $3) RETURNING created_at`,
		v.ID, v.Name, v.SourcePath,
	).Scan(&v.CreatedAt)
	if err != nil {
		return models.VideoRecord{}, fmt.Errorf("insert video: %w", err)
	}
	return v, nil
}

func (p *Postgres) SetTranscript(ctx context.Context, videoID, text string) error {
	if err := checkID(videoID); err != nil {
		return err
	}
	tag, err := p.pool.Exec(ctx,
		`UPDATE videos SET transcription = $2 WHERE id = $1 AND transcription IS NULL`,
		videoID, text,
	)
	if err != nil {
		return fmt.Errorf("update transcription: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	// Nothing updated: either the id is unknown or the transcript is already set.
	if _, err := p.GetVideo(ctx, videoID); err != nil {
		return err
	}
	return fmt.Errorf("video %s: %w", videoID, models.ErrAlreadyTranscribed)
}

func (p *Postgres) GetVideo(ctx context.Context, videoID string) (models.VideoRecord, error) {
	if err := checkID(videoID); err != nil {
		return models.VideoRecord{}, err
	}
	var (
		v          models.VideoRecord
		transcript *string
	)
	err := p.pool.QueryRow(ctx,
		`SELECT id::text, name, path, transcription, created_at FROM videos WHERE id = $1`,
		videoID,
	).Scan(&v.ID, &v.Name, &v.SourcePath, &transcript, &v.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.VideoRecord{}, fmt.Errorf("video %s: %w", videoID, models.ErrNotFound)
	}
	if err != nil {
		return models.VideoRecord{}, fmt.Errorf("select video: %w", err)
	}
	if transcript != nil {
		v.Transcript = *transcript
	}
	return v, nil
}

// checkID rejects ids the uuid column could never hold, as unknown ids.
func checkID(videoID string) error {
	if _, err := uuid.Parse(videoID); err != nil {
		return fmt.Errorf("video %s: %w", videoID, models.ErrNotFound)
	}
	return nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
