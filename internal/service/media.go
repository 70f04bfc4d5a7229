package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"babagram/internal/config"
	"babagram/internal/model"
)

// presignTTL is how long a presigned upload URL stays valid.
const presignTTL = 15 * time.Minute

// s3DeleteBatch is the maximum number of keys per DeleteObjects call.
const s3DeleteBatch = 1000

// ErrMediaNotConfigured is returned when R2 credentials are missing.
var ErrMediaNotConfigured = errors.New("media storage is not configured")

// MediaStore removes stored objects. Implemented by MediaService.
type MediaStore interface {
	DeleteObjects(ctx context.Context, keys []string) error
}

// MediaService handles media uploads to Cloudflare R2 through the S3 API.
type MediaService struct {
	s3Client  *s3.Client
	presigner *s3.PresignClient
	bucket    string
	publicURL string
	log       zerolog.Logger
}

// NewMediaService constructs an S3-compatible client for Cloudflare R2.
func NewMediaService(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*MediaService, error) {
	if cfg.R2AccountID == "" || cfg.R2AccessKeyID == "" || cfg.R2SecretAccessKey == "" || cfg.R2BucketName == "" || cfg.R2PublicURL == "" {
		return nil, ErrMediaNotConfigured
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(
		ctx,
		awsconfig.WithRegion("auto"),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.R2AccessKeyID, cfg.R2SecretAccessKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config for R2: %w", err)
	}

	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.R2AccountID)
	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	return &MediaService{
		s3Client:  s3Client,
		presigner: s3.NewPresignClient(s3Client),
		bucket:    cfg.R2BucketName,
		publicURL: strings.TrimSuffix(cfg.R2PublicURL, "/"),
		log:       log.With().Str("component", "media").Logger(),
	}, nil
}

// PresignUpload returns a presigned PUT URL for one post, video or story
// media file. The client uploads directly and then references PublicURL/Key.
func (s *MediaService) PresignUpload(ctx context.Context, req model.PresignUploadRequest) (*model.PresignUploadResponse, error) {
	contentType := normalizeContentType(req.ContentType)
	kind := model.MediaKind(contentType)
	if kind == "" {
		return nil, model.ErrInvalidMediaType
	}
	if kind == model.MediaImage && req.FileSize > model.MaxStoryImageSizeBytes {
		return nil, model.ErrFileTooLarge
	}

	key := fmt.Sprintf("%s/%s%s", model.ContentMediaFolder, uuid.NewString(), extensionFor(contentType))
	signed, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(key),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String(model.MediaCacheControl),
	}, s3.WithPresignExpires(presignTTL))
	if err != nil {
		return nil, fmt.Errorf("presign upload: %w", err)
	}

	return &model.PresignUploadResponse{
		UploadURL:  signed.URL,
		PublicURL:  s.objectURL(key),
		Key:        key,
		MediaType:  kind,
		ExpiresInS: int(presignTTL.Seconds()),
	}, nil
}

// UploadStoryImage validates the upload, fits it into the story frame as
// JPEG and stores it.
func (s *MediaService) UploadStoryImage(ctx context.Context, file multipart.File, header *multipart.FileHeader) (*model.MediaRef, error) {
	data, _, err := readAndValidateImage(file, header, model.MaxStoryImageSizeBytes)
	if err != nil {
		return nil, err
	}

	jpegBytes, err := fitToJPEG(data, model.StoryImageMaxWidth, model.StoryImageMaxHeight, 85)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidMediaType, err)
	}

	key := fmt.Sprintf("%s/%s.jpg", model.StoryFolder, uuid.NewString())
	if err := s.putObject(ctx, key, jpegBytes, model.MimeJPEG, model.MediaCacheControl); err != nil {
		return nil, err
	}
	return &model.MediaRef{URL: s.objectURL(key), Key: key, Type: model.MediaImage}, nil
}

// DeleteObjects removes objects by key in batches. Missing keys are not an error.
func (s *MediaService) DeleteObjects(ctx context.Context, keys []string) error {
	ids := make([]types.ObjectIdentifier, 0, len(keys))
	for _, k := range keys {
		if k != "" {
			ids = append(ids, types.ObjectIdentifier{Key: aws.String(k)})
		}
	}

	for start := 0; start < len(ids); start += s3DeleteBatch {
		batch := ids[start:min(start+s3DeleteBatch, len(ids))]
		out, err := s.s3Client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &types.Delete{Objects: batch, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return fmt.Errorf("failed to delete from r2: %w", err)
		}
		for _, e := range out.Errors {
			s.log.Warn().Str("key", aws.ToString(e.Key)).Str("code", aws.ToString(e.Code)).Msg("object not deleted")
		}
	}
	return nil
}

func (s *MediaService) objectURL(key string) string {
	return s.publicURL + "/" + key
}

// readAndValidateImage loads the upload into memory with size and type checks.
func readAndValidateImage(file multipart.File, header *multipart.FileHeader, maxSize int64) ([]byte, string, error) {
	if header.Size > maxSize {
		return nil, "", model.ErrFileTooLarge
	}

	data, err := io.ReadAll(io.LimitReader(file, maxSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > maxSize {
		return nil, "", model.ErrFileTooLarge
	}

	contentType := normalizeContentType(header.Header.Get("Content-Type"))
	if contentType == "" && len(data) > 0 {
		contentType = normalizeContentType(http.DetectContentType(data[:min(len(data), 512)]))
	}
	if !model.IsAllowedImageType(contentType) {
		return nil, "", model.ErrInvalidMediaType
	}
	return data, contentType, nil
}

// fitToJPEG scales the image down to fit within width x height, keeping the
// aspect ratio, and encodes it as JPEG.
func fitToJPEG(data []byte, width, height, quality int) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	b := img.Bounds()
	if b.Dx() > width || b.Dy() > height {
		img = imaging.Fit(img, width, height, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// putObject uploads bytes to R2 with metadata.
func (s *MediaService) putObject(ctx context.Context, key string, body []byte, contentType, cacheControl string) error {
	_, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(body),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String(cacheControl),
	})
	if err != nil {
		return fmt.Errorf("failed to upload to r2: %w", err)
	}
	return nil
}

func normalizeContentType(ct string) string {
	if idx := strings.Index(ct, ";"); idx != -1 {
		ct = ct[:idx]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}

func extensionFor(contentType string) string {
	switch contentType {
	case model.MimeJPEG:
		return ".jpg"
	case model.MimePNG:
		return ".png"
	case model.MimeGIF:
		return ".gif"
	case model.MimeWebP:
		return ".webp"
	case model.MimeMP4:
		return ".mp4"
	case model.MimeMOV:
		return ".mov"
	}
	return ""
}
