package restyutil

import (
	"compress/flate"
	"compress/gzip"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
)

// decodingTransport inflates response bodies. net/http only does this on
// its own when it added Accept-Encoding itself, a caller that pins the
// header to a browser's value gets the raw bytes back.
type decodingTransport struct {
	next http.RoundTripper
}

func NewDecodingTransport(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return decodingTransport{next: next}
}

type decodedBody struct {
	io.Reader
	closers []io.Closer
}

func (b decodedBody) Close() error {
	var first error
	for _, c := range b.closers {
		err := c.Close()
		if err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (t decodingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	res, err := t.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	encoding := strings.ToLower(strings.TrimSpace(res.Header.Get("Content-Encoding")))
	var reader io.Reader
	closers := []io.Closer{res.Body}
	switch encoding {
	case "", "identity":
		return res, nil
	case "br":
		reader = brotli.NewReader(res.Body)
	case "deflate":
		fr := flate.NewReader(res.Body)
		reader = fr
		closers = append([]io.Closer{fr}, closers...)
	case "gzip", "x-gzip":
		gr, err := gzip.NewReader(res.Body)
		if err != nil {
			res.Body.Close()
			return nil, fmt.Errorf("decode gzip body: %w", err)
		}
		reader = gr
		closers = append([]io.Closer{gr}, closers...)
	default:
		return res, nil
	}

	res.Body = decodedBody{Reader: reader, closers: closers}
	res.Header.Del("Content-Encoding")
	res.Header.Del("Content-Length")
	res.ContentLength = -1
	res.Uncompressed = true
	return res, nil
}
