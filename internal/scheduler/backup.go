package scheduler

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

const backupTimeout = 5 * time.Minute

// Checkpointer flushes the WAL so the database file on disk is complete.
type Checkpointer interface {
	WALCheckpoint() error
	Path() string
}

// BackupJob uploads the database file to S3.
type BackupJob struct {
	db     Checkpointer
	bucket string
	region string
	log    zerolog.Logger
}

// NewBackupJob creates the nightly backup job.
func NewBackupJob(db Checkpointer, bucket, region string, log zerolog.Logger) *BackupJob {
	return &BackupJob{
		db:     db,
		bucket: bucket,
		region: region,
		log:    log.With().Str("component", "backup").Logger(),
	}
}

// Name identifies the job in scheduler logs.
func (j *BackupJob) Name() string { return "db-backup" }

// Run checkpoints the WAL and uploads the database file. A missing bucket
// turns the job into a no-op so local setups run without S3.
func (j *BackupJob) Run() error {
	if j.bucket == "" {
		j.log.Debug().Msg("No backup bucket configured, skipping")
		return nil
	}

	if err := j.db.WALCheckpoint(); err != nil {
		return fmt.Errorf("checkpointing before backup: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), backupTimeout)
	defer cancel()

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(j.region))
	if err != nil {
		return fmt.Errorf("loading aws config: %w", err)
	}

	f, err := os.Open(j.db.Path())
	if err != nil {
		return fmt.Errorf("opening database file: %w", err)
	}
	defer f.Close()

	key := fmt.Sprintf("backups/watchmystocks-%s.db", time.Now().UTC().Format("2006-01-02"))
	uploader := manager.NewUploader(s3.NewFromConfig(cfg))
	_, err = uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(j.bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	if err != nil {
		return fmt.Errorf("uploading backup: %w", err)
	}

	j.log.Info().Str("bucket", j.bucket).Str("key", key).Msg("Database backup uploaded")
	return nil
}
