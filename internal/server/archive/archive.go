// Package archive exports tally and token-audit snapshots to S3-compatible
// object storage using presigned PUT URLs.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	sc "github.com/blindvote/blindvote/internal/server/config"
	"github.com/google/uuid"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/blindvote/blindvote/internal/netx"
)

type Service struct {
	config *sc.Config
}

func NewService(config *sc.Config) *Service {
	return &Service{config: config}
}

// StorageKey builds a date-partitioned object key for one election snapshot.
func StorageKey(kind string, electionID int64) string {
	d := time.Now()
	return fmt.Sprintf("%s/%d/%d/%d/election-%d-%v.json", kind, d.Year(), d.Month(), d.Day(), electionID, uuid.New())
}

func (s *Service) getPresignClient() (*s3.PresignClient, error) {
	cfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion(s.config.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
	})

	return s3.NewPresignClient(client), nil
}

// presignPut is a seam for tests.
var presignPut = func(ctx context.Context, pc *s3.PresignClient, bucket, key string) (string, error) {
	req, err := pc.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(15*time.Minute))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

// Export serializes the snapshot as JSON and uploads it under a fresh
// date-partitioned key. Returns the object key.
func (s *Service) Export(ctx context.Context, kind string, electionID int64, snapshot any) (string, error) {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return "", err
	}

	presignClient, err := s.getPresignClient()
	if err != nil {
		return "", err
	}

	key := StorageKey(kind, electionID)

	url, err := presignPut(ctx, presignClient, s.config.S3Bucket, key)
	if err != nil {
		return "", err
	}

	if err := netx.UploadToS3PresignedURL(ctx, url, payload); err != nil {
		return "", err
	}

	return key, nil
}

// ExportTally uploads a tally snapshot.
func (s *Service) ExportTally(ctx context.Context, electionID int64, result any) (string, error) {
	return s.Export(ctx, "tallies", electionID, result)
}

// ExportAudit uploads a token-audit snapshot.
func (s *Service) ExportAudit(ctx context.Context, electionID int64, summary any) (string, error) {
	return s.Export(ctx, "audits", electionID, summary)
}
