package storage

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"mindhub/config"
)

// ObjectStore ist der Teil des S3-Clients, den das Report-Archiv braucht.
type ObjectStore interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// NewS3Client erstellt einen S3-Client für einen S3-kompatiblen Endpunkt.
func NewS3Client(ctx context.Context, cfg *config.Config) (*s3.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.ReportS3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.ReportS3Key, cfg.ReportS3Secret, "")),
	)
	if err != nil {
		return nil, err
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.ReportS3URL)
		o.UsePathStyle = true
	}), nil
}

const reportPrefix = "sync-reports/"

// ReportArchive legt Sync-Reports als JSON im Bucket ab und behält nur die neuesten.
type ReportArchive struct {
	client ObjectStore
	bucket string
	keep   int
	logger *zap.Logger
}

func NewReportArchive(client ObjectStore, bucket string, keep int, logger *zap.Logger) *ReportArchive {
	return &ReportArchive{client: client, bucket: bucket, keep: keep, logger: logger}
}

// Store lädt den Report hoch und rotiert danach. Fehler bei der Rotation werden nur geloggt.
func (a *ReportArchive) Store(ctx context.Context, report []byte, at time.Time) (string, error) {
	key := reportPrefix + at.UTC().Format("2006-01-02T15-04-05Z") + ".json"
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(report),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("upload report %s: %w", key, err)
	}
	a.logger.Info("Sync-Report archiviert", zap.String("key", key))

	if _, err := a.Rotate(ctx); err != nil {
		a.logger.Warn("Rotation der Sync-Reports fehlgeschlagen", zap.Error(err))
	}
	return key, nil
}

// Rotate löscht alle bis auf die neuesten keep Reports und gibt die Anzahl gelöschter Objekte zurück.
func (a *ReportArchive) Rotate(ctx context.Context) (int, error) {
	output, err := a.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(a.bucket),
		Prefix: aws.String(reportPrefix),
	})
	if err != nil {
		return 0, err
	}
	if a.keep <= 0 || len(output.Contents) <= a.keep {
		return 0, nil
	}

	objects := output.Contents
	sort.Slice(objects, func(i, j int) bool {
		return aws.ToTime(objects[i].LastModified).After(aws.ToTime(objects[j].LastModified))
	})

	deleted := 0
	for _, obj := range objects[a.keep:] {
		_, err := a.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(a.bucket),
			Key:    obj.Key,
		})
		if err != nil {
			a.logger.Warn("Konnte alten Report nicht löschen", zap.String("key", aws.ToString(obj.Key)), zap.Error(err))
			continue
		}
		a.logger.Debug("Alten Report gelöscht", zap.String("key", aws.ToString(obj.Key)))
		deleted++
	}
	return deleted, nil
}
