package pdb

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pokemon-vct/pokemon/internal/structure"
)

// DefaultBaseURL is the RCSB file download service.
const DefaultBaseURL = "https://files.rcsb.org/download"

// Client downloads PDB entries.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	logger  *zap.Logger
}

// NewClient creates a client for the RCSB download service.
func NewClient() *Client {
	return &Client{
		BaseURL: DefaultBaseURL,
		HTTP:    &http.Client{Timeout: 10 * time.Minute},
		logger:  zap.NewNop(),
	}
}

// SetLogger sets the logger for download progress.
func (c *Client) SetLogger(l *zap.Logger) {
	c.logger = l
}

// URL returns the download URL of a PDB entry.
func (c *Client) URL(id string) string {
	return fmt.Sprintf("%s/%s.pdb", strings.TrimRight(c.BaseURL, "/"), strings.ToUpper(id))
}

// Download fetches entry id to destPath. An existing file is left untouched.
func (c *Client) Download(ctx context.Context, id, destPath string) error {
	if info, err := os.Stat(destPath); err == nil {
		c.logger.Info("already downloaded, skipping",
			zap.String("file", filepath.Base(destPath)),
			zap.String("size", formatSize(info.Size())))
		return nil
	}

	url := c.URL(id)
	c.logger.Info("downloading", zap.String("url", url))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download %s: HTTP error: %s", id, resp.Status)
	}

	tmpPath := destPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}

	pw := &progressWriter{
		total:     resp.ContentLength,
		lastPrint: time.Now(),
		logger:    c.logger,
	}
	_, err = io.Copy(f, io.TeeReader(resp.Body, pw))
	f.Close()

	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("download failed: %w", err)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename file: %w", err)
	}

	c.logger.Info("done", zap.String("file", filepath.Base(destPath)), zap.String("size", formatSize(pw.downloaded)))
	return nil
}

// Fetch downloads entry id into dir as <id>.pdb and writes its Cα
// coordinates to <dir>/<id>, the layout read by structure.DirSource.
func (c *Client) Fetch(ctx context.Context, id, dir string) (int, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create directory %s: %w", dir, err)
	}

	pdbPath := filepath.Join(dir, id+".pdb")
	if err := c.Download(ctx, id, pdbPath); err != nil {
		return 0, err
	}

	in, err := os.Open(pdbPath)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", pdbPath, err)
	}
	defer in.Close()

	coords, err := ParseCA(in, id)
	if err != nil {
		return 0, fmt.Errorf("structure %s: %w", id, err)
	}
	if len(coords) == 0 {
		return 0, fmt.Errorf("structure %s: no Cα atoms found", id)
	}

	out, err := os.Create(filepath.Join(dir, id))
	if err != nil {
		return 0, fmt.Errorf("create coordinate file: %w", err)
	}
	if err := structure.WriteCoordinates(out, coords); err != nil {
		out.Close()
		return 0, fmt.Errorf("write coordinates: %w", err)
	}
	if err := out.Close(); err != nil {
		return 0, fmt.Errorf("write coordinates: %w", err)
	}
	return len(coords), nil
}

// progressWriter logs download progress about once a second.
type progressWriter struct {
	total      int64
	downloaded int64
	lastPrint  time.Time
	logger     *zap.Logger
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n := len(p)
	pw.downloaded += int64(n)

	if time.Since(pw.lastPrint) > time.Second {
		fields := []zap.Field{zap.String("downloaded", formatSize(pw.downloaded))}
		if pw.total > 0 {
			fields = append(fields,
				zap.String("total", formatSize(pw.total)),
				zap.Float64("pct", float64(pw.downloaded)/float64(pw.total)*100))
		}
		pw.logger.Debug("progress", fields...)
		pw.lastPrint = time.Now()
	}

	return n, nil
}

// formatSize formats bytes as human-readable size.
func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
