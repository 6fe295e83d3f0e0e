// Package archive stores composed source units in object storage, zstd compressed.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"codearena/internal/common/storage"
	appErr "codearena/pkg/errors"

	"github.com/klauspost/compress/zstd"
)

const (
	contentType = "application/zstd"
	// maxSourceBytes bounds decompressed reads.
	maxSourceBytes = 16 << 20
)

// Archive writes and reads composed sources.
type Archive struct {
	storage storage.ObjectStorage
	bucket  string
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// New creates an archive for a bucket.
func New(objectStorage storage.ObjectStorage, bucket string) (*Archive, error) {
	if objectStorage == nil {
		return nil, fmt.Errorf("object storage is nil")
	}
	if bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder failed: %w", err)
	}
	decoder, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxSourceBytes))
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder failed: %w", err)
	}
	return &Archive{storage: objectStorage, bucket: bucket, encoder: encoder, decoder: decoder}, nil
}

// Key builds the object key for a submission.
// Keys are grouped by day: sources/2026/10/17/<submissionID>.zst.
func Key(submissionID string, at time.Time) string {
	return fmt.Sprintf("sources/%s/%s.zst", at.UTC().Format("2006/01/02"), submissionID)
}

// Put compresses and uploads source under key.
func (a *Archive) Put(ctx context.Context, key, source string) error {
	compressed := a.encoder.EncodeAll([]byte(source), nil)
	if err := a.storage.PutObject(ctx, a.bucket, key, bytes.NewReader(compressed), int64(len(compressed)), contentType); err != nil {
		return appErr.Wrapf(err, appErr.ServiceUnavailable, "archive source failed")
	}
	return nil
}

// Get downloads and decompresses the source under key.
func (a *Archive) Get(ctx context.Context, key string) (string, error) {
	reader, err := a.storage.GetObject(ctx, a.bucket, key)
	if err != nil {
		if storage.IsNotFound(err) {
			return "", appErr.New(appErr.NotFound).WithMessage("archived source not found")
		}
		return "", appErr.Wrapf(err, appErr.ServiceUnavailable, "download archived source failed")
	}
	defer reader.Close()

	compressed, err := io.ReadAll(io.LimitReader(reader, maxSourceBytes))
	if err != nil {
		if storage.IsNotFound(err) {
			return "", appErr.New(appErr.NotFound).WithMessage("archived source not found")
		}
		return "", appErr.Wrapf(err, appErr.ServiceUnavailable, "read archived source failed")
	}
	plain, err := a.decoder.DecodeAll(compressed, nil)
	if err != nil {
		return "", appErr.Wrapf(err, appErr.InternalServerError, "decompress archived source failed")
	}
	return string(plain), nil
}

// Close releases encoder and decoder resources.
func (a *Archive) Close() error {
	a.decoder.Close()
	return a.encoder.Close()
}
