package httpds

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// FetchFirstBytes returns up to n leading bytes of url. A Range header asks
// for just those bytes; the read is capped anyway for servers that ignore it.
func (c *Client) FetchFirstBytes(ctx context.Context, url string, n int) ([]byte, error) {
	if n <= 0 {
		return nil, fmt.Errorf("httpds: n must be > 0, got %d", n)
	}
	h := http.Header{}
	h.Set("Range", fmt.Sprintf("bytes=0-%d", n-1))

	resp, err := c.Get(ctx, url, h)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	buf := make([]byte, n)
	k, err := io.ReadFull(resp.Body, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, fmt.Errorf("httpds: read %s: %w", url, err)
	}
	return buf[:k], nil
}
