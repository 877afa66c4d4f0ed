package publish

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"wgharvest/pkg/config"
)

// S3 uploads the archive to an S3-compatible bucket
type S3 struct {
	client *miniogo.Client
	bucket string
	prefix string
	now    func() time.Time
}

// NewS3 creates an S3 publisher from cfg
func NewS3(cfg config.S3Config) (*S3, error) {
	client, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &S3{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		now:    time.Now,
	}, nil
}

func (s *S3) Name() string {
	return "s3"
}

// ObjectKey returns {prefix}/{yyyy}/{mm}/{dd}/{campaign}-{archive name}
func (s *S3) ObjectKey(archivePath string, meta Metadata) string {
	name := filepath.Base(archivePath)
	if meta.CampaignID != "" {
		name = meta.CampaignID + "-" + name
	}
	return path.Join(s.prefix, s.now().UTC().Format("2006/01/02"), name)
}

func (s *S3) Publish(ctx context.Context, archivePath string, meta Metadata) error {
	key := s.ObjectKey(archivePath, meta)

	_, err := s.client.FPutObject(ctx, s.bucket, key, archivePath, miniogo.PutObjectOptions{
		ContentType: "application/zip",
		UserMetadata: map[string]string{
			"campaign":   meta.CampaignID,
			"files":      strconv.Itoa(meta.FileCount),
			"categories": strconv.Itoa(meta.CategoryCount),
		},
	})
	if err != nil {
		resp := miniogo.ToErrorResponse(err)
		if resp.StatusCode != 0 {
			return &StatusError{Destination: s.Name(), StatusCode: resp.StatusCode, Description: resp.Code}
		}
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}
