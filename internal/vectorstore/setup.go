// Package vectorstore creates a remote vector store and fills it with the
// files of a local directory.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/katakuxiko/kbrelay/internal/pdf"
)

const (
	DefaultName         = "Local knowledge base"
	DefaultPollInterval = 2 * time.Second

	statusInProgress = "in_progress"
)

// API is the part of *openai.Client the uploader uses.
type API interface {
	CreateVectorStore(ctx context.Context, request openai.VectorStoreRequest) (openai.VectorStore, error)
	CreateFile(ctx context.Context, request openai.FileRequest) (openai.File, error)
	CreateVectorStoreFileBatch(ctx context.Context, vectorStoreID string, request openai.VectorStoreFileBatchRequest) (openai.VectorStoreFileBatch, error)
	RetrieveVectorStoreFileBatch(ctx context.Context, vectorStoreID, batchID string) (openai.VectorStoreFileBatch, error)
}

// Options controls one setup run; zero values take the defaults.
type Options struct {
	Dir          string
	Name         string
	PollInterval time.Duration
}

// Result reports what a run created, even when it failed part way.
type Result struct {
	VectorStoreID string
	BatchID       string
	Status        string
	Counts        openai.VectorStoreFileCount
	Uploaded      []string
	Skipped       []string
}

type Uploader struct {
	api API
	log *zap.Logger
}

// NewUploader wraps an OpenAI client for the setup run.
func NewUploader(api API, log *zap.Logger) *Uploader {
	return &Uploader{api: api, log: log}
}

// Run creates the vector store, uploads every regular file in opts.Dir and
// waits for the batch to finish. Nothing is rolled back on failure.
func (u *Uploader) Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Name == "" {
		opts.Name = DefaultName
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}

	vs, err := u.api.CreateVectorStore(ctx, openai.VectorStoreRequest{Name: opts.Name})
	if err != nil {
		return nil, fmt.Errorf("create vector store: %w", err)
	}
	res := &Result{VectorStoreID: vs.ID}
	u.log.Info("vector store created", zap.String("vector_store_id", vs.ID), zap.String("name", opts.Name))

	files, err := ListFiles(opts.Dir)
	if err != nil {
		return res, err
	}
	if len(files) == 0 {
		u.log.Warn("no files found", zap.String("dir", opts.Dir))
		return res, nil
	}

	var fileIDs []string
	for _, path := range files {
		if pdf.IsPDF(path) {
			info, err := pdf.Inspect(path)
			if err != nil {
				u.log.Warn("skipping unreadable pdf", zap.String("file", path), zap.Error(err))
				res.Skipped = append(res.Skipped, path)
				continue
			}
			if !info.HasText {
				u.log.Warn("pdf has no extractable text, file search may not index it",
					zap.String("file", path), zap.Int("pages", info.Pages))
			}
		}

		f, err := u.api.CreateFile(ctx, openai.FileRequest{
			FileName: filepath.Base(path),
			FilePath: path,
			Purpose:  string(openai.PurposeAssistants),
		})
		if err != nil {
			return res, fmt.Errorf("upload %s: %w", path, err)
		}
		u.log.Info("file uploaded", zap.String("file", path), zap.String("file_id", f.ID))
		fileIDs = append(fileIDs, f.ID)
		res.Uploaded = append(res.Uploaded, path)
	}
	if len(fileIDs) == 0 {
		u.log.Warn("nothing to index, every file was skipped", zap.String("dir", opts.Dir))
		return res, nil
	}

	batch, err := u.api.CreateVectorStoreFileBatch(ctx, vs.ID, openai.VectorStoreFileBatchRequest{FileIDs: fileIDs})
	if err != nil {
		return res, fmt.Errorf("create file batch: %w", err)
	}
	res.BatchID = batch.ID

	batch, err = u.poll(ctx, vs.ID, batch, opts.PollInterval)
	res.Status = batch.Status
	res.Counts = batch.FileCounts
	if err != nil {
		return res, err
	}

	u.log.Info("file batch finished",
		zap.String("batch_id", batch.ID),
		zap.String("status", batch.Status),
		zap.Int("completed", batch.FileCounts.Completed),
		zap.Int("failed", batch.FileCounts.Failed),
		zap.Int("cancelled", batch.FileCounts.Cancelled),
		zap.Int("total", batch.FileCounts.Total))
	return res, nil
}

func (u *Uploader) poll(ctx context.Context, vsID string, batch openai.VectorStoreFileBatch, every time.Duration) (openai.VectorStoreFileBatch, error) {
	t := time.NewTicker(every)
	defer t.Stop()

	for batch.Status == statusInProgress {
		select {
		case <-ctx.Done():
			return batch, fmt.Errorf("waiting for batch %s: %w", batch.ID, ctx.Err())
		case <-t.C:
		}
		next, err := u.api.RetrieveVectorStoreFileBatch(ctx, vsID, batch.ID)
		if err != nil {
			return batch, fmt.Errorf("retrieve batch %s: %w", batch.ID, err)
		}
		batch = next
		u.log.Debug("batch status",
			zap.String("status", batch.Status),
			zap.Int("in_progress", batch.FileCounts.InProgress))
	}
	return batch, nil
}

// ListFiles returns the regular, non-hidden files directly inside dir,
// sorted by name.
func ListFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("docs directory %q does not exist", dir)
		}
		return nil, fmt.Errorf("read docs directory: %w", err)
	}

	var out []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		// follow symlinks like a stat would
		fi, err := os.Stat(path)
		if err != nil || !fi.Mode().IsRegular() {
			continue
		}
		out = append(out, path)
	}
	return out, nil
}
