package service

import (
	"context"
	"errors"

	"app/internal/model"
	"app/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// VideoService manages the shared video catalog. Watchers only ever see
// active videos; admins see everything.
type VideoService interface {
	CreateVideo(ctx context.Context, v *model.Video) (*model.Video, error)
	GetVideo(ctx context.Context, id string) (*model.Video, error)
	// ListVideos returns active videos only unless includeInactive is set.
	ListVideos(ctx context.Context, includeInactive bool) ([]model.Video, error)
	UpdateVideo(ctx context.Context, v *model.Video) (*model.Video, error)
	DeleteVideo(ctx context.Context, id string) error
}

type videoService struct {
	repo   repository.VideoRepository
	logger zerolog.Logger
}

// NewVideoService creates a new VideoService with a scoped logger.
func NewVideoService(repo repository.VideoRepository, logger zerolog.Logger) VideoService {
	return &videoService{
		repo:   repo,
		logger: logger.With().Str("service", "VideoService").Logger(),
	}
}

func (s *videoService) CreateVideo(ctx context.Context, v *model.Video) (*model.Video, error) {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	if v.DurationSeconds <= 0 {
		return nil, ErrInvalidAmount
	}
	if err := s.repo.Create(ctx, v); err != nil {
		s.logger.Error().Err(err).Str("title", v.Title).Msg("Failed to create video")
		return nil, err
	}
	return v, nil
}

func (s *videoService) GetVideo(ctx context.Context, id string) (*model.Video, error) {
	v, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	return v, err
}

func (s *videoService) ListVideos(ctx context.Context, includeInactive bool) ([]model.Video, error) {
	return s.repo.List(ctx, !includeInactive)
}

func (s *videoService) UpdateVideo(ctx context.Context, v *model.Video) (*model.Video, error) {
	if err := s.repo.Update(ctx, v); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		s.logger.Error().Err(err).Str("video_id", v.ID).Msg("Failed to update video")
		return nil, err
	}
	return v, nil
}

func (s *videoService) DeleteVideo(ctx context.Context, id string) error {
	err := s.repo.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
