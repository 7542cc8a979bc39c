package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"erlobby/internal/pkg/logx"
)

// uploadTimeout bounds a single snapshot upload.
const uploadTimeout = 30 * time.Second

// S3Config holds the settings of the S3-compatible backup bucket.
type S3Config struct {
	BucketName      string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Prefix          string
}

// Uploader is the subset of the S3 upload manager used by Mirror.
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// NewS3Uploader builds an upload manager for an S3-compatible endpoint with static credentials.
func NewS3Uploader(ctx context.Context, cfg S3Config) (Uploader, error) {
	sdkCfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
		config.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("loading AWS SDK config: %w", err)
	}

	client := s3.NewFromConfig(sdkCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = true
	})

	return manager.NewUploader(client), nil
}

// Mirror wraps a Store and uploads a copy of every successfully saved snapshot.
//
// Uploads run on a background goroutine so a slow bucket never delays the caller.
// Pending uploads are coalesced per object: only the newest snapshot of each file is sent.
type Mirror struct {
	Store

	uploader Uploader
	bucket   string
	prefix   string

	mu      sync.Mutex
	pending map[string][]byte
	wake    chan struct{}
	done    chan struct{}
	closed  bool

	logger zerolog.Logger
}

// NewMirror starts a Mirror in front of inner uploading to bucket under prefix.
func NewMirror(inner Store, uploader Uploader, bucket, prefix string) *Mirror {
	m := &Mirror{
		Store:    inner,
		uploader: uploader,
		bucket:   bucket,
		prefix:   prefix,
		pending:  make(map[string][]byte),
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
		logger:   logx.Component("s3_mirror").With().Str("bucket", bucket).Logger(),
	}

	go m.run()

	return m
}

// SaveHistory saves through the wrapped store and queues an upload on success.
func (m *Mirror) SaveHistory(ctx context.Context, history []ChatMessage) error {
	if err := m.Store.SaveHistory(ctx, history); err != nil {
		return err
	}
	if history == nil {
		history = []ChatMessage{}
	}
	m.enqueue(HistoryFileName, history)
	return nil
}

// SaveRecords saves through the wrapped store and queues an upload on success.
func (m *Mirror) SaveRecords(ctx context.Context, records Records) error {
	if err := m.Store.SaveRecords(ctx, records); err != nil {
		return err
	}
	if records == nil {
		records = Records{}
	}
	m.enqueue(RecordsFileName, records)
	return nil
}

// enqueue encodes v now, so the caller may keep mutating it, and wakes the uploader.
func (m *Mirror) enqueue(name string, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		m.logger.Error().Err(err).Str("file", name).Msg("Failed to encode snapshot for upload")
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	m.pending[m.prefix+name] = data

	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// run uploads pending snapshots until Close is called, then drains what is left.
func (m *Mirror) run() {
	defer close(m.done)

	for range m.wake {
		m.flush()
	}
}

// flush uploads every pending snapshot once.
func (m *Mirror) flush() {
	m.mu.Lock()
	batch := m.pending
	m.pending = make(map[string][]byte)
	m.mu.Unlock()

	for key, data := range batch {
		ctx, cancel := context.WithTimeout(context.Background(), uploadTimeout)
		_, err := m.uploader.Upload(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(m.bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(data),
			ContentType: aws.String("application/json"),
		})
		cancel()

		if err != nil {
			m.logger.Warn().Err(err).Str("key", key).Msg("Snapshot upload failed; the next save retries it")
			continue
		}
		m.logger.Debug().Str("key", key).Int("bytes", len(data)).Msg("Snapshot uploaded")
	}
}

// Close stops accepting snapshots, finishes queued uploads and closes the wrapped store.
func (m *Mirror) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	close(m.wake)
	m.mu.Unlock()

	<-m.done

	// Anything enqueued between the last wake-up and close.
	m.flush()

	return m.Store.Close()
}
