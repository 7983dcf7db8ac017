package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	config "github.com/maheshrc27/postflow-publisher/configs"
	"github.com/maheshrc27/postflow-publisher/internal/models"
	"github.com/maheshrc27/postflow-publisher/internal/provider"
)

const presignExpiry = time.Hour

// MediaService turns stored media references into URLs a platform can fetch.
type MediaService interface {
	Resolve(ctx context.Context, refs models.MediaList) ([]provider.Media, error)
	ResolveURL(ctx context.Context, ref models.MediaRef) (string, error)
}

type presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

type mediaService struct {
	bucket    string
	publicURL string
	presign   presigner
}

// NewMediaService builds the R2 backed resolver. Without a public bucket URL,
// objects are served through presigned GET requests.
func NewMediaService(ctx context.Context, cfg config.R2) (MediaService, error) {
	s := &mediaService{
		bucket:    cfg.BucketName,
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
	}
	if cfg.AccountID == "" {
		return s, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID))
	})
	s.presign = s3.NewPresignClient(client)
	return s, nil
}

func (s *mediaService) Resolve(ctx context.Context, refs models.MediaList) ([]provider.Media, error) {
	media := make([]provider.Media, 0, len(refs))
	for _, ref := range refs {
		u, err := s.ResolveURL(ctx, ref)
		if err != nil {
			return nil, err
		}
		kind := ref.Type
		if kind == "" {
			kind = ClassifyPath(ref.Path)
		}
		media = append(media, provider.Media{Type: kind, URL: u, AltText: ref.AltText})
	}
	return media, nil
}

func (s *mediaService) ResolveURL(ctx context.Context, ref models.MediaRef) (string, error) {
	if ref.URL != "" {
		return ref.URL, nil
	}
	if ref.Path == "" {
		return "", errors.New("media has neither url nor path")
	}

	key := strings.TrimLeft(ref.Path, "/")
	if s.publicURL != "" {
		return s.publicURL + "/" + key, nil
	}
	if s.presign == nil {
		return "", errors.New("media storage is not configured")
	}

	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		slog.Info(err.Error())
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return req.URL, nil
}

// ClassifyPath maps a stored object's extension to photo, video or gif.
func ClassifyPath(p string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(p), "."))
	return classify(filetype.GetType(ext))
}

func classify(t types.Type) string {
	switch {
	case t == types.Unknown:
		return ""
	case t.MIME.Value == "image/gif":
		return models.MediaTypeGif
	case t.MIME.Type == "image":
		return models.MediaTypePhoto
	case t.MIME.Type == "video":
		return models.MediaTypeVideo
	}
	return ""
}
