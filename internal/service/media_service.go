package service

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// MediaService manages the S3-backed object store: deposit proof screenshots
// uploaded by users and video files uploaded by admins. Browsers talk to S3
// directly through presigned URLs; the API never proxies file bytes.
type MediaService interface {
	// InitiateProofUpload returns the storage path for a deposit proof and a
	// presigned PUT URL the client uploads it to.
	InitiateProofUpload(ctx context.Context, accountID, filename string) (storagePath, uploadURL string, err error)
	// InitiateVideoUpload returns the storage path for a video file and a
	// presigned PUT URL.
	InitiateVideoUpload(ctx context.Context, videoID, filename string) (storagePath, uploadURL string, err error)
	// VerifyUploaded checks that the object actually landed in the bucket.
	VerifyUploaded(ctx context.Context, storagePath string) error
	// DownloadURL generates a short-lived GET URL for the given object.
	DownloadURL(ctx context.Context, storagePath string) (string, error)
	// DeleteVideoAssets removes every object stored under the video's prefix.
	DeleteVideoAssets(ctx context.Context, videoID string) error
}

type mediaService struct {
	s3Client      *s3.Client
	presignClient *s3.PresignClient
	bucketName    string
	logger        zerolog.Logger
}

// NewMediaService creates a new MediaService.
func NewMediaService(s3Client *s3.Client, bucketName string, logger zerolog.Logger) MediaService {
	return &mediaService{
		s3Client:      s3Client,
		presignClient: s3.NewPresignClient(s3Client),
		bucketName:    bucketName,
		logger:        logger.With().Str("service", "MediaService").Logger(),
	}
}

func (s *mediaService) InitiateProofUpload(ctx context.Context, accountID, filename string) (string, string, error) {
	storagePath := fmt.Sprintf("proofs/%s/%s%s", accountID, uuid.NewString(), path.Ext(filename))
	uploadURL, err := s.presignedPutURL(ctx, storagePath)
	if err != nil {
		return "", "", err
	}
	return storagePath, uploadURL, nil
}

func (s *mediaService) InitiateVideoUpload(ctx context.Context, videoID, filename string) (string, string, error) {
	storagePath := fmt.Sprintf("videos/%s/source%s", videoID, path.Ext(filename))
	uploadURL, err := s.presignedPutURL(ctx, storagePath)
	if err != nil {
		return "", "", err
	}
	return storagePath, uploadURL, nil
}

func (s *mediaService) VerifyUploaded(ctx context.Context, storagePath string) error {
	_, err := s.s3Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(storagePath),
	})
	if err != nil {
		s.logger.Error().Err(err).Str("storage_path", storagePath).Msg("File not found in S3 at expected path")
		return fmt.Errorf("file not found in storage: %w", err)
	}
	return nil
}

func (s *mediaService) DownloadURL(ctx context.Context, storagePath string) (string, error) {
	resp, err := s.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(storagePath),
	}, s3.WithPresignExpires(15*time.Minute))
	if err != nil {
		s.logger.Error().Err(err).Str("storage_path", storagePath).Msg("Failed to generate presigned URL")
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}
	return resp.URL, nil
}

func (s *mediaService) DeleteVideoAssets(ctx context.Context, videoID string) error {
	prefix := fmt.Sprintf("videos/%s/", videoID)
	paginator := s3.NewListObjectsV2Paginator(s.s3Client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucketName),
		Prefix: aws.String(prefix),
	})
	var toDelete []types.ObjectIdentifier
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			s.logger.Error().Err(err).Str("prefix", prefix).Msg("Failed to list S3 objects for deletion")
			break
		}
		for _, obj := range page.Contents {
			toDelete = append(toDelete, types.ObjectIdentifier{Key: obj.Key})
		}
	}
	if len(toDelete) == 0 {
		return nil
	}
	if _, err := s.s3Client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(s.bucketName),
		Delete: &types.Delete{Objects: toDelete, Quiet: aws.Bool(true)},
	}); err != nil {
		s.logger.Error().Err(err).Str("video_id", videoID).Msg("Failed to delete objects from S3")
		return err
	}
	return nil
}

func (s *mediaService) presignedPutURL(ctx context.Context, objectKey string) (string, error) {
	request, err := s.presignClient.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(objectKey),
	}, s3.WithPresignExpires(15*time.Minute))
	if err != nil {
		s.logger.Error().Err(err).Str("object_key", objectKey).Msg("Failed to generate presigned PUT URL")
		return "", fmt.Errorf("failed to generate presigned PUT URL: %w", err)
	}
	return request.URL, nil
}
