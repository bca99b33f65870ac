package aws_client

import (
	"context"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

type S3Client interface {
	Upload(ctx context.Context, uploadContainer s3manager.UploadInput) error
}

type s3Client struct {
	Uploader *s3manager.Uploader
	Config   *aws.Config
	Session  *session.Session
}

func NewS3Client(config *aws.Config) S3Client {
	s := session.Must(session.NewSession(config))
	return &s3Client{
		Uploader: s3manager.NewUploader(s),
		Config:   config,
		Session:  s,
	}
}

// NewR2Client creates an S3Client configured for Cloudflare R2
func NewR2Client(accountID, accessKeyID, accessKeySecret string) S3Client {
	awsCfg := &aws.Config{
		// Use the R2 endpoint format
		Endpoint:    aws.String("https://" + accountID + ".r2.cloudflarestorage.com"),
		Region:      aws.String("auto"), // R2 uses "auto" region
		Credentials: credentials.NewStaticCredentials(accessKeyID, accessKeySecret, ""),
		// This is important for R2 compatibility
		S3ForcePathStyle: aws.Bool(true),
	}

	return NewS3Client(awsCfg)
}

// Upload streams the input body to the bucket. The s3manager uploader chunks
// the reader, so the payload is never fully materialized here.
func (s *s3Client) Upload(ctx context.Context, uploadContainer s3manager.UploadInput) error {
	_, err := s.Uploader.UploadWithContext(ctx, &uploadContainer)
	return err
}
