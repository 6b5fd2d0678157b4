package s3infra

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/go-api-magiclink/internal/domain"
)

// templatePrefix is where email templates live in the bucket.
const templatePrefix = "templates/"

// maxTemplateSize caps how much of an object is read into memory.
const maxTemplateSize = 1 << 20

type getObjectAPI interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// TemplateStore reads email templates from templates/<key>.html in a bucket.
type TemplateStore struct {
	client getObjectAPI
	bucket string
}

func NewTemplateStore(client getObjectAPI, bucket string) *TemplateStore {
	return &TemplateStore{client: client, bucket: bucket}
}

// Template returns the template text. A missing object yields domain.ErrNotFound
// so callers can fall back to another source.
func (s *TemplateStore) Template(ctx context.Context, key string) (string, error) {
	objectKey := templatePrefix + key + ".html"
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return "", fmt.Errorf("s3 template %q: %w", objectKey, domain.ErrNotFound)
		}
		return "", fmt.Errorf("s3 get object: %w", err)
	}
	defer out.Body.Close()

	b, err := io.ReadAll(io.LimitReader(out.Body, maxTemplateSize))
	if err != nil {
		return "", fmt.Errorf("read s3 template %q: %w", objectKey, err)
	}
	return string(b), nil
}
