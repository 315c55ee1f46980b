// Package models fetches the multilingual whisper ggml models used by both
// recognition engines.
package models

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

const defaultBaseURL = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main"

// Sizes lists the multilingual model sizes that can be downloaded. The
// English-only ".en" variants are omitted since they cannot recognize
// Japanese.
var Sizes = []string{"tiny", "base", "small", "medium", "large-v3"}

// FileName returns the ggml file name for a model size.
func FileName(size string) string {
	return "ggml-" + size + ".bin"
}

// Downloader fetches models over HTTP.
type Downloader struct {
	Client  *http.Client
	BaseURL string
	Out     io.Writer // progress output
}

// NewDownloader returns a Downloader for the HuggingFace whisper.cpp repo
// that prints progress to stdout.
func NewDownloader() *Downloader {
	return &Downloader{Client: http.DefaultClient, BaseURL: defaultBaseURL, Out: os.Stdout}
}

// Download fetches the model for size into destDir and returns its path.
// An existing non-empty file is kept.
func (d *Downloader) Download(ctx context.Context, size, destDir string) (string, error) {
	if !validSize(size) {
		return "", fmt.Errorf("unknown model size %q (supported: %s)", size, strings.Join(Sizes, ", "))
	}
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", fmt.Errorf("creating models dir: %w", err)
	}

	name := FileName(size)
	destPath := filepath.Join(destDir, name)

	if info, err := os.Stat(destPath); err == nil && info.Size() > 0 {
		fmt.Fprintf(d.Out, "  Whisper model already exists: %s (%.0f MB)\n", destPath, float64(info.Size())/(1024*1024))
		return destPath, nil
	}

	url := d.BaseURL + "/" + name
	fmt.Fprintf(d.Out, "  Downloading whisper model from HuggingFace...\n")
	fmt.Fprintf(d.Out, "  URL: %s\n", url)
	fmt.Fprintf(d.Out, "  Destination: %s\n", destPath)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	resp, err := d.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("downloading whisper model: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download failed: HTTP %d", resp.StatusCode)
	}

	// Write to temp file first, then rename (atomic)
	tmpPath := destPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}

	pw := &progressWriter{
		writer: f,
		out:    d.Out,
		total:  resp.ContentLength,
		label:  name,
	}

	written, err := io.Copy(pw, resp.Body)
	f.Close()
	if err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("writing model file: %w", err)
	}
	if resp.ContentLength > 0 && written != resp.ContentLength {
		os.Remove(tmpPath)
		return "", fmt.Errorf("writing model file: got %d of %d bytes", written, resp.ContentLength)
	}

	fmt.Fprintf(d.Out, "\n  Downloaded %.1f MB\n", float64(written)/(1024*1024))

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("moving model file: %w", err)
	}
	return destPath, nil
}

func validSize(size string) bool {
	for _, s := range Sizes {
		if s == size {
			return true
		}
	}
	return false
}

// SizeFromPath extracts the model size from a ggml file path, e.g.
// "/x/ggml-small.bin" -> "small".
func SizeFromPath(path string) (string, bool) {
	base := filepath.Base(path)
	if !strings.HasPrefix(base, "ggml-") || !strings.HasSuffix(base, ".bin") {
		return "", false
	}
	size := strings.TrimSuffix(strings.TrimPrefix(base, "ggml-"), ".bin")
	return size, validSize(size)
}

// progressWriter wraps an io.Writer and prints download progress.
type progressWriter struct {
	writer  io.Writer
	out     io.Writer
	total   int64
	written int64
	label   string
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n, err := pw.writer.Write(p)
	pw.written += int64(n)
	if pw.total > 0 {
		pct := float64(pw.written) / float64(pw.total) * 100
		fmt.Fprintf(pw.out, "\r  %s: %.1f MB / %.1f MB (%.0f%%)",
			pw.label,
			float64(pw.written)/(1024*1024),
			float64(pw.total)/(1024*1024),
			pct)
	} else {
		fmt.Fprintf(pw.out, "\r  %s: %.1f MB downloaded",
			pw.label,
			float64(pw.written)/(1024*1024))
	}
	return n, err
}
