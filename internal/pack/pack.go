// Package pack builds the two-entry tar archive (Dockerfile + source file)
// that becomes a submission's build context, on a dedicated worker pool kept
// off the HTTP request-handling path.
package pack

import (
	"archive/tar"
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/alitto/pond"

	"github.com/akshayaggarwal99/codebox/internal/config"
	"github.com/akshayaggarwal99/codebox/internal/submission"
)

// Packer runs tar-building work on a single background goroutine, backed by
// github.com/alitto/pond rather than a hand-rolled goroutine+channel pair.
type Packer struct {
	pool *pond.WorkerPool
}

// NewPacker starts the pool. Call Close when the server shuts down.
func NewPacker() *Packer {
	return &Packer{pool: pond.New(1, 64)}
}

// Close drains and stops the pool, blocking until the in-flight pack (if
// any) finishes.
func (p *Packer) Close() {
	p.pool.StopAndWait()
}

type packResult struct {
	buf *bytes.Buffer
	err error
}

// Pack renders sub's build context for the given language as a tar archive,
// running the actual tar construction on the pool. Returns ctx.Err() as soon
// as the caller's context is cancelled, whether or not the pool has started
// the job; a job already running is not interrupted and its result is
// discarded.
func (p *Packer) Pack(ctx context.Context, spec config.LanguageSpec, sub submission.Submission) (*bytes.Buffer, error) {
	resultCh := make(chan packResult, 1)
	p.pool.Submit(func() {
		buf, err := buildTar(spec, sub)
		resultCh <- packResult{buf: buf, err: err}
	})

	select {
	case res := <-resultCh:
		return res.buf, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func buildTar(spec config.LanguageSpec, sub submission.Submission) (*bytes.Buffer, error) {
	dockerfile, err := os.ReadFile(spec.RecipePath)
	if err != nil {
		return nil, fmt.Errorf("read recipe %s: %w", spec.RecipePath, err)
	}

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)

	entries := []struct {
		name string
		data []byte
	}{
		{name: "Dockerfile", data: dockerfile},
		{name: spec.SourceFilename, data: []byte(sub.Code)},
	}

	now := time.Now()
	for _, e := range entries {
		hdr := &tar.Header{
			Name:    e.name,
			Mode:    0644,
			Size:    int64(len(e.data)),
			ModTime: now,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return nil, fmt.Errorf("tar header %s: %w", e.name, err)
		}
		if _, err := tw.Write(e.data); err != nil {
			return nil, fmt.Errorf("tar write %s: %w", e.name, err)
		}
	}

	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("tar close: %w", err)
	}
	return &buf, nil
}
