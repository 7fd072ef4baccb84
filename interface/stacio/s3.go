package stacio

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Config configures the access to s3 buckets.
// Without keys, buckets are accessed anonymously (public buckets such as maxar-opendata)
type S3Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
}

// S3Reader reads s3://bucket/key documents
type S3Reader struct {
	downloader *manager.Downloader
}

// NewS3Reader creates a reader from the config
func NewS3Reader(ctx context.Context, c S3Config) (*S3Reader, error) {
	region := c.Region
	if region == "" {
		region = "us-west-2"
	}
	var creds aws.CredentialsProvider = aws.AnonymousCredentials{}
	if c.AccessKeyID != "" {
		creds = credentials.NewStaticCredentialsProvider(c.AccessKeyID, c.SecretAccessKey, "")
	}
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(creds),
		config.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("NewS3Reader.LoadDefaultConfig: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if c.Endpoint != "" {
			o.BaseEndpoint = aws.String(c.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Reader{downloader: manager.NewDownloader(client)}, nil
}

// Read implements Reader
func (r *S3Reader) Read(ctx context.Context, href string) ([]byte, error) {
	u, err := url.Parse(href)
	if err != nil || u.Scheme != "s3" {
		return nil, fmt.Errorf("S3Reader: invalid uri %s", href)
	}
	buf := manager.NewWriteAtBuffer(nil)
	_, err = r.downloader.Download(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(u.Host),
		Key:    aws.String(strings.TrimPrefix(u.Path, "/")),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, ErrNotFound{Href: href}
		}
		return nil, fmt.Errorf("S3Reader.Download(%s): %w", href, err)
	}
	return buf.Bytes(), nil
}
