package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var contentTypes = map[string]string{
	".html":    "text/html; charset=utf-8",
	".xlsx":    "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".parquet": "application/vnd.apache.parquet",
}

type Publisher struct {
	Store  ObjectStore
	Logger *slog.Logger
}

// Publish uploads local report files for one run and verifies each upload by
// size. It stops at the first failure and returns what was uploaded so far.
func (p *Publisher) Publish(ctx context.Context, runID string, generatedAt time.Time, files []string) ([]ObjectInfo, error) {
	if p.Store == nil {
		return nil, fmt.Errorf("object store is required")
	}
	published := make([]ObjectInfo, 0, len(files))
	for _, file := range files {
		info, err := p.publishFile(ctx, runID, generatedAt, file)
		if err != nil {
			return published, err
		}
		published = append(published, info)
		if p.Logger != nil {
			p.Logger.InfoContext(ctx, "report published", slog.String("key", info.Key), slog.Int64("size", info.Size))
		}
	}
	return published, nil
}

func (p *Publisher) publishFile(ctx context.Context, runID string, generatedAt time.Time, file string) (ObjectInfo, error) {
	key, err := BuildReportKey(runID, generatedAt, filepath.Base(file))
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("build report key: %w", err)
	}

	handle, err := os.Open(file)
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("open report %q: %w", file, err)
	}
	defer func() { _ = handle.Close() }()
	stat, err := handle.Stat()
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("stat report %q: %w", file, err)
	}

	contentType := contentTypes[strings.ToLower(filepath.Ext(file))]
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if _, err := p.Store.Put(ctx, key, handle, stat.Size(), PutOptions{
		ContentType: contentType,
		Metadata: map[string]string{
			"run-id":       runID,
			"generated-at": generatedAt.UTC().Format(time.RFC3339),
		},
	}); err != nil {
		return ObjectInfo{}, fmt.Errorf("upload report %q: %w", file, err)
	}

	info, err := p.Store.Stat(ctx, key)
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("verify report upload %q: %w", key, err)
	}
	if info.Size != stat.Size() {
		return ObjectInfo{}, fmt.Errorf("report upload %q size mismatch: local=%d remote=%d", key, stat.Size(), info.Size)
	}
	return info, nil
}
