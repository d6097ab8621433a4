package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/itssu4012650/ur-mwe/pkg/buffer"
)

// probe learns the content length and whether the server honours byte ranges.
// HEAD is tried first; servers that reject it get a one-byte ranged GET.
func (d *Download) probe(ctx context.Context) error {
	req, err := d.newRequest(ctx, http.MethodHead)
	if err != nil {
		return fmt.Errorf("create request failed: %w", err)
	}

	resp, err := d.client().Do(req)
	if err == nil {
		resp.Body.Close()
		if isSuccess(resp.StatusCode) && resp.ContentLength > 0 {
			d.setInfo(resp.ContentLength, strings.EqualFold(resp.Header.Get("Accept-Ranges"), "bytes"))
			return nil
		}
	}

	req, err = d.newRequest(ctx, http.MethodGet)
	if err != nil {
		return fmt.Errorf("create request failed: %w", err)
	}
	req.Header.Set("Range", "bytes=0-0")

	resp, err = d.client().Do(req)
	if err != nil {
		return fmt.Errorf("probe request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusPartialContent:
		total, ok := parseContentRange(resp.Header.Get("Content-Range"))
		d.setInfo(total, ok)
	case isSuccess(resp.StatusCode):
		d.setInfo(resp.ContentLength, false)
	default:
		return fmt.Errorf("%w: %s", ErrBadStatus, resp.Status)
	}
	return nil
}

// fetchRange downloads bytes [start, end] and writes them at the same offset of f.
func (d *Download) fetchRange(ctx context.Context, f *os.File, start, end int64) error {
	req, err := d.newRequest(ctx, http.MethodGet)
	if err != nil {
		return fmt.Errorf("create request failed: %w", err)
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", start, end))

	resp, err := d.client().Do(req)
	if err != nil {
		return fmt.Errorf("range request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return errRangeIgnored
	}
	if resp.StatusCode != http.StatusPartialContent {
		return fmt.Errorf("%w: range %d-%d: %s", ErrBadStatus, start, end, resp.Status)
	}

	buf := buffer.Get()
	defer buffer.Put(buf)

	offset := start
	limit := end - start + 1
	body := io.LimitReader(resp.Body, limit)
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			if _, err := f.WriteAt(buf[:n], offset); err != nil {
				return fmt.Errorf("write at %d failed: %w", offset, err)
			}
			offset += int64(n)
			d.downloaded.Add(int64(n))
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return fmt.Errorf("read range %d-%d failed: %w", start, end, readErr)
		}
	}

	if offset != end+1 {
		return fmt.Errorf("range %d-%d truncated at %d: %w", start, end, offset, io.ErrUnexpectedEOF)
	}
	return nil
}

// fetchWhole streams the full body into f.
func (d *Download) fetchWhole(ctx context.Context, f *os.File) error {
	req, err := d.newRequest(ctx, http.MethodGet)
	if err != nil {
		return fmt.Errorf("create request failed: %w", err)
	}

	resp, err := d.client().Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		return fmt.Errorf("%w: %s", ErrBadStatus, resp.Status)
	}
	if d.Size() <= 0 && resp.ContentLength > 0 {
		d.setInfo(resp.ContentLength, false)
	}

	buf := buffer.Get()
	defer buffer.Put(buf)

	if _, err := io.CopyBuffer(&countingWriter{w: f, d: d}, resp.Body, buf); err != nil {
		return fmt.Errorf("copy failed: %w", err)
	}
	return nil
}

type countingWriter struct {
	w io.Writer
	d *Download
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.d.downloaded.Add(int64(n))
	return n, err
}

// parseContentRange extracts the complete length from "bytes 0-0/12345".
func parseContentRange(v string) (int64, bool) {
	v = strings.TrimSpace(v)
	if !strings.HasPrefix(v, "bytes ") {
		return -1, false
	}
	slash := strings.LastIndex(v, "/")
	if slash == -1 || slash == len(v)-1 {
		return -1, false
	}
	total, err := strconv.ParseInt(v[slash+1:], 10, 64)
	if err != nil || total <= 0 {
		return -1, false
	}
	return total, true
}

// splitRanges divides size bytes into n contiguous inclusive ranges.
func splitRanges(size int64, n int) [][2]int64 {
	if n < 1 {
		n = 1
	}
	if int64(n) > size {
		n = int(size)
	}
	part := size / int64(n)
	ranges := make([][2]int64, 0, n)
	var start int64
	for i := 0; i < n; i++ {
		end := start + part - 1
		if i == n-1 {
			end = size - 1
		}
		ranges = append(ranges, [2]int64{start, end})
		start = end + 1
	}
	return ranges
}

func isSuccess(code int) bool {
	return code >= 200 && code < 300
}
