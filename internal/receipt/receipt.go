// Package receipt hands out presigned upload URLs for grocery receipts and
// reads line items back from uploaded ones.
package receipt

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/textract"
)

// ExpiresIn is how long an upload URL stays valid.
const ExpiresIn = 300 * time.Second

var (
	ErrMissingFileName = errors.New("fileName is required")
	ErrNoBucket        = errors.New("receipts bucket not configured")
)

// Presigner is the part of s3.PresignClient used here.
type Presigner interface {
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Upload describes a presigned PUT.
type Upload struct {
	UploadURL string `json:"uploadUrl"`
	S3Key     string `json:"s3Key"`
	ExpiresIn int    `json:"expiresIn"`
}

// Options configures NewClient.
type Options struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// Service presigns receipt uploads into one bucket and parses them.
type Service struct {
	presigner Presigner
	analyzer  ExpenseAnalyzer
	bucket    string
	now       func() time.Time
}

// NewService creates a Service over an existing presigner and analyzer. A nil
// analyzer disables Parse.
func NewService(p Presigner, a ExpenseAnalyzer, bucket string) *Service {
	return &Service{presigner: p, analyzer: a, bucket: bucket, now: time.Now}
}

// NewClient builds an S3 presign client and a Textract client from opts. A
// custom endpoint switches S3 to path-style addressing so MinIO and R2 work;
// Textract always talks to AWS.
func NewClient(ctx context.Context, opts Options) (*Service, error) {
	if opts.Bucket == "" {
		return nil, ErrNoBucket
	}
	region := opts.Region
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if opts.AccessKey != "" && opts.SecretKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewService(s3.NewPresignClient(client), textract.NewFromConfig(cfg), opts.Bucket), nil
}

// Key returns the object key for a receipt uploaded at t.
func Key(userID, fileName string, t time.Time) string {
	name := path.Base(strings.ReplaceAll(fileName, "\\", "/"))
	return fmt.Sprintf("receipts/%s/%s-%s", userID, t.UTC().Format("20060102-150405"), name)
}

// Presign returns a PUT URL for fileName under the user's receipts prefix.
func (s *Service) Presign(ctx context.Context, userID, fileName, contentType string) (Upload, error) {
	if strings.TrimSpace(fileName) == "" {
		return Upload{}, ErrMissingFileName
	}
	if contentType == "" {
		contentType = "image/jpeg"
	}

	key := Key(userID, fileName, s.now())
	req, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(ExpiresIn))
	if err != nil {
		return Upload{}, fmt.Errorf("failed to presign upload: %w", err)
	}

	return Upload{
		UploadURL: req.URL,
		S3Key:     key,
		ExpiresIn: int(ExpiresIn.Seconds()),
	}, nil
}
