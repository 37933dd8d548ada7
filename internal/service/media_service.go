package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/h2non/filetype"

	config "github.com/wyatts97/schedx/configs"
	"github.com/wyatts97/schedx/internal/models"
)

// MediaFetcher resolves a stored media asset to its raw bytes and MIME type
// so the publish client can upload it to the platform.
type MediaFetcher interface {
	FetchAsset(ctx context.Context, asset *models.MediaAsset) ([]byte, string, error)
}

type R2Service struct {
	config config.Config
}

func NewR2Service(cfg config.Config) *R2Service {
	return &R2Service{config: cfg}
}

func (r *R2Service) r2Client(ctx context.Context) (*s3.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(r.config.R2.AccessKey, r.config.R2.SecretKey, "")),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", r.config.R2.AccountID))
	}), nil
}

// FetchAsset downloads the asset from R2 and sniffs its content type from the
// bytes rather than trusting the stored extension.
func (r *R2Service) FetchAsset(ctx context.Context, asset *models.MediaAsset) ([]byte, string, error) {
	client, err := r.r2Client(ctx)
	if err != nil {
		return nil, "", err
	}

	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.config.R2.BucketName),
		Key:    aws.String(asset.FileName),
	})
	if err != nil {
		slog.Info(err.Error())
		return nil, "", err
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		slog.Info(err.Error())
		return nil, "", err
	}

	mimeType := asset.FileType
	if kind, err := filetype.Match(data); err == nil && kind != filetype.Unknown {
		mimeType = kind.MIME.Value
	}

	return data, mimeType, nil
}
