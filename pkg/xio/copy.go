package xio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
)

// ErrTooLarge is returned by ReadAll when the reader holds more than the limit.
var ErrTooLarge = errors.New("content exceeds size limit")

type readerFunc func(p []byte) (n int, err error)

func (rf readerFunc) Read(p []byte) (n int, err error) { return rf(p) }

// contextReader stops reading from src once ctx is done.
func contextReader(ctx context.Context, src io.Reader) io.Reader {
	return readerFunc(func(p []byte) (int, error) {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		default:
			return src.Read(p)
		}
	})
}

func copyContext(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	return io.Copy(dst, contextReader(ctx, src))
}

// ReadAll reads src until EOF, failing with ErrTooLarge past limit bytes.
func ReadAll(ctx context.Context, src io.Reader, limit int64) ([]byte, error) {
	var buf bytes.Buffer
	n, err := copyContext(ctx, &buf, io.LimitReader(src, limit+1))
	if err != nil {
		return nil, err
	}
	if n > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, limit)
	}
	return buf.Bytes(), nil
}
