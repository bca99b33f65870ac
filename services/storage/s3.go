package storage

import (
	"context"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/pkg/errors"

	"github.com/vaulty/mailvault/interfaces"
	"github.com/vaulty/mailvault/internal/enum"
	"github.com/vaulty/mailvault/services/storage/aws_client"
)

type s3Backend struct {
	client aws_client.S3Client
	kind   enum.StorageBackendKind
}

// NewS3Backend builds an S3 backend from an address's credential token.
// Token format: "accessKeyID:secretAccessKey:region".
func NewS3Backend(token string) (interfaces.StorageBackend, error) {
	parts := strings.SplitN(token, ":", 3)
	if len(parts) != 3 {
		return nil, &Error{
			Kind:    ErrorKindCredentialExpired,
			Backend: enum.StorageBackendS3.String(),
			Err:     errors.New("malformed s3 credential token"),
		}
	}

	client := aws_client.NewS3Client(&aws.Config{
		Region:      aws.String(parts[2]),
		Credentials: credentials.NewStaticCredentials(parts[0], parts[1], ""),
	})

	return &s3Backend{client: client, kind: enum.StorageBackendS3}, nil
}

// NewR2Backend builds a Cloudflare R2 backend from an address's credential
// token. Token format: "accountID:accessKeyID:secretAccessKey".
func NewR2Backend(token string) (interfaces.StorageBackend, error) {
	parts := strings.SplitN(token, ":", 3)
	if len(parts) != 3 {
		return nil, &Error{
			Kind:    ErrorKindCredentialExpired,
			Backend: enum.StorageBackendR2.String(),
			Err:     errors.New("malformed r2 credential token"),
		}
	}

	client := aws_client.NewR2Client(parts[0], parts[1], parts[2])

	return &s3Backend{client: client, kind: enum.StorageBackendR2}, nil
}

func (b *s3Backend) Kind() string {
	return b.kind.String()
}

// UploadStream writes body to the destination path. The first path segment
// is the bucket, the remainder the object key.
func (b *s3Backend) UploadStream(ctx context.Context, path string, body io.Reader) error {
	trimmed := strings.TrimPrefix(path, "/")
	bucket, key, ok := strings.Cut(trimmed, "/")
	if !ok || bucket == "" || key == "" {
		return &Error{
			Kind:    ErrorKindBadInput,
			Backend: b.Kind(),
			Err:     errors.Errorf("destination path %q has no bucket/key split", path),
		}
	}

	err := b.client.Upload(ctx, s3manager.UploadInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   body,
	})
	if err != nil {
		return b.mapError(err)
	}
	return nil
}

// mapError folds awserr codes onto the common taxonomy.
func (b *s3Backend) mapError(err error) error {
	var reqErr awserr.RequestFailure
	if errors.As(err, &reqErr) {
		switch reqErr.StatusCode() {
		case 400:
			return &Error{Kind: ErrorKindBadInput, Backend: b.Kind(), Status: 400, Err: err}
		case 401, 403:
			return &Error{Kind: ErrorKindCredentialExpired, Backend: b.Kind(), Status: reqErr.StatusCode(), Err: err}
		case 409:
			return &Error{Kind: ErrorKindPathConflict, Backend: b.Kind(), Status: 409, Err: err}
		case 429, 503:
			return &Error{Kind: ErrorKindRateLimited, Backend: b.Kind(), Status: reqErr.StatusCode(), Err: err}
		}
	}

	var aerr awserr.Error
	if errors.As(err, &aerr) {
		switch aerr.Code() {
		case "ExpiredToken", "InvalidAccessKeyId", "SignatureDoesNotMatch", "InvalidClientTokenId", "AccessDenied":
			return &Error{Kind: ErrorKindCredentialExpired, Backend: b.Kind(), Err: err}
		case "Throttling", "ThrottlingException", "SlowDown", "RequestLimitExceeded":
			return &Error{Kind: ErrorKindRateLimited, Backend: b.Kind(), Err: err}
		case "InvalidArgument", "InvalidRequest", "MissingParameter", "NoSuchBucket":
			return &Error{Kind: ErrorKindBadInput, Backend: b.Kind(), Err: err}
		case "BucketAlreadyExists", "BucketAlreadyOwnedByYou", "OperationAborted":
			return &Error{Kind: ErrorKindPathConflict, Backend: b.Kind(), Err: err}
		}
	}

	return &Error{Kind: ErrorKindInternal, Backend: b.Kind(), Err: err}
}
