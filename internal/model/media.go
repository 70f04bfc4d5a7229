package model

import "errors"

const (
	MaxStoryImageSizeBytes = 10 * 1024 * 1024
	StoryImageMaxWidth     = 1080
	StoryImageMaxHeight    = 1920
	StoryFolder            = "stories"
	ContentMediaFolder     = "media"
	MediaCacheControl      = "public, max-age=31536000"
	MaxPresignBatch        = 10
)

// Media kinds
const (
	MediaImage = "image"
	MediaVideo = "video"
)

// Supported upload content types
const (
	MimeJPEG = "image/jpeg"
	MimePNG  = "image/png"
	MimeGIF  = "image/gif"
	MimeWebP = "image/webp"
	MimeMP4  = "video/mp4"
	MimeMOV  = "video/quicktime"
)

var allowedImageTypes = map[string]struct{}{
	MimeJPEG: {},
	MimePNG:  {},
	MimeGIF:  {},
	MimeWebP: {},
}

var allowedVideoTypes = map[string]struct{}{
	MimeMP4: {},
	MimeMOV: {},
}

// Error codes for HTTP responses
const (
	CodeFileTooLarge     = "FILE_TOO_LARGE"
	CodeInvalidMediaType = "INVALID_MEDIA_TYPE"
)

// Domain errors for media operations
var (
	ErrFileTooLarge     = errors.New("file too large")
	ErrInvalidMediaType = errors.New("invalid media type")
)

// MediaRef points at an object in the bucket. Key is kept so the object can
// be removed when the owning content is hard deleted.
type MediaRef struct {
	URL  string `bson:"url" json:"url" validate:"required,url"`
	Key  string `bson:"key,omitempty" json:"key,omitempty"`
	Type string `bson:"type" json:"type" validate:"required,oneof=image video"`
}

// UploadResult represents the uploaded object location.
type UploadResult struct {
	URL string `json:"url"`
	Key string `json:"key"`
}

// PresignUploadRequest asks for a presigned PUT URL for one media file.
type PresignUploadRequest struct {
	ContentType string `json:"contentType" validate:"required"`
	FileSize    int64  `json:"fileSize" validate:"gte=0"`
}

// PresignUploadResponse returns upload details for direct-to-bucket uploads.
type PresignUploadResponse struct {
	UploadURL  string `json:"uploadUrl"`
	PublicURL  string `json:"publicUrl"`
	Key        string `json:"key"`
	MediaType  string `json:"mediaType"`
	ExpiresInS int    `json:"expiresIn"`
}

// PresignUploadBatchRequest requests several presigned URLs in one call.
type PresignUploadBatchRequest struct {
	Items []PresignUploadRequest `json:"items" validate:"required,min=1,max=10,dive"`
}

// PresignUploadBatchResponse holds one presigned URL per requested item.
type PresignUploadBatchResponse struct {
	Items []PresignUploadResponse `json:"items"`
}

// IsAllowedImageType reports if the provided content type is a supported image.
func IsAllowedImageType(contentType string) bool {
	_, ok := allowedImageTypes[contentType]
	return ok
}

// MediaKind classifies an upload content type, or returns "" if unsupported.
func MediaKind(contentType string) string {
	if _, ok := allowedImageTypes[contentType]; ok {
		return MediaImage
	}
	if _, ok := allowedVideoTypes[contentType]; ok {
		return MediaVideo
	}
	return ""
}
