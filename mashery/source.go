package mashery

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/bonobo-ops/keytools"
)

// S3Getter is the part of the S3 client needed to read exports from S3
type S3Getter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// IsS3Source returns whether the given export source is an s3:// URL
func IsS3Source(source string) bool {
	return strings.HasPrefix(source, "s3://")
}

// OpenSource opens a keys export which is either a local path or an s3://bucket/key URL. The S3 client
// may be nil for local paths.
func OpenSource(ctx context.Context, s3c S3Getter, source string) (io.ReadCloser, error) {
	if !IsS3Source(source) {
		f, err := os.Open(source)
		if err != nil {
			return nil, fmt.Errorf("error opening keys file: %w", err)
		}
		return f, nil
	}

	bucket, key, err := keytools.ParseS3URL(source)
	if err != nil {
		return nil, err
	}
	if s3c == nil {
		return nil, fmt.Errorf("no S3 client to fetch keys from %s", source)
	}

	out, err := s3c.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)})
	if err != nil {
		return nil, fmt.Errorf("error fetching keys from %s: %w", source, err)
	}
	return out.Body, nil
}
