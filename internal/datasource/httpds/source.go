package httpds

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/zeebo/xxh3"
	"go.uber.org/zap"

	"sblar/internal/datasource/file"
)

// Source is a remote submission. The body is downloaded once, on the first
// Open, into a temporary file that later Opens read again. Close removes it.
type Source struct {
	client *Client
	url    string
	dir    string

	mu       sync.Mutex
	path     string
	checksum string
	size     int64
}

// NewSource returns a Source for url. dir holds the download; "" means
// os.TempDir.
func NewSource(c *Client, url, dir string) *Source {
	return &Source{client: c, url: url, dir: dir}
}

// Location returns the URL.
func (s *Source) Location() string { return s.url }

// Open downloads the submission if needed and opens the local copy.
func (s *Source) Open(ctx context.Context) (io.ReadCloser, error) {
	p, err := s.fetch(ctx)
	if err != nil {
		return nil, err
	}
	return file.NewLocal(p).Open(ctx)
}

// Head returns up to n leading bytes. Before the download it asks the
// server for just those bytes.
func (s *Source) Head(ctx context.Context, n int) ([]byte, error) {
	s.mu.Lock()
	p := s.path
	s.mu.Unlock()
	if p != "" {
		return file.NewLocal(p).Head(n)
	}
	return s.client.FetchFirstBytes(ctx, s.url, n)
}

// Checksum returns the xxh3 digest of the downloaded body.
func (s *Source) Checksum(ctx context.Context) (string, error) {
	if _, err := s.fetch(ctx); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checksum, nil
}

// Size is the number of bytes downloaded, 0 before the first Open.
func (s *Source) Size() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}

// Close removes the local copy.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.path == "" {
		return nil
	}
	err := os.Remove(s.path)
	s.path = ""
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *Source) fetch(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.path != "" {
		return s.path, nil
	}

	resp, err := s.client.Get(ctx, s.url, nil)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", s.url, err)
	}
	defer resp.Body.Close()

	f, err := os.CreateTemp(s.dir, "sblar-*-"+SafeFilenameFromURL(s.url))
	if err != nil {
		return "", fmt.Errorf("download %s: %w", s.url, err)
	}
	h := xxh3.New()
	n, err := io.Copy(io.MultiWriter(f, h), resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("download %s: %w", s.url, err)
	}

	s.path = f.Name()
	s.size = n
	s.checksum = file.FormatSum(h.Sum64())
	s.client.log.Info("downloaded submission",
		zap.String("url", s.url),
		zap.String("path", s.path),
		zap.Int64("bytes", n),
	)
	return s.path, nil
}
