package cnavi

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"mime/multipart"
	"net/http/cookiejar"
	"net/url"
	"slices"
	"time"

	"cnavi/lib/restyutil"
	"cnavi/lib/telemetry"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"
)

const DefaultEntryUrl = "https://cnavi.waseda.jp/index.php"

const (
	report_session_post          = "session.post"
	report_session_login         = "session.login"
	report_session_select_course = "session.select-course"
)

// Encoding is the body encoding of a POST step.
type Encoding int

const (
	EncodingURL Encoding = iota + 1
	EncodingMultipart
)

func (e Encoding) String() string {
	switch e {
	case EncodingURL:
		return "application/x-www-form-urlencoded"
	case EncodingMultipart:
		return "multipart/form-data"
	}
	return fmt.Sprintf("Encoding(%d)", int(e))
}

type SessionOptions struct {
	// EntryUrl is the single endpoint every step talks to, defaults to
	// DefaultEntryUrl.
	EntryUrl           string
	Timeout            time.Duration
	InsecureSkipVerify bool
	Proxy              string
	// RequestsPerSecond paces requests, 0 disables pacing.
	RequestsPerSecond float64
	Fields            Fields
	Tel               telemetry.API
	// HttpDump receives every exchange when debug logging is on, can be nil.
	HttpDump restyutil.InstrumentOutput
}

// Session replays the portal's form sequence. It is not safe for concurrent
// use, every step depends on the previous response.
type Session struct {
	entry  *url.URL
	http   *resty.Client
	fields Fields
	tel    telemetry.API

	// loginCache survives for the whole run, courseCache only until the next
	// course is selected.
	loginCache  map[string]string
	courseCache map[string]string
}

// browserHeaders mimics the browser the replay sequence was recorded with,
// the portal may vary its behavior by client fingerprint.
func browserHeaders(entry *url.URL) map[string]string {
	return map[string]string{
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,image/apng,*/*;q=0.8,application/signed-exchange;v=b3",
		"Accept-Encoding":           "gzip, deflate, br",
		"Accept-Language":           "en-US,en;q=0.9",
		"Cache-Control":             "max-age=0",
		"Content-Type":              "application/x-www-form-urlencoded",
		"Origin":                    fmt.Sprintf("%s://%s", entry.Scheme, entry.Host),
		"Referer":                   entry.String(),
		"Sec-Fetch-Site":            "same-origin",
		"Sec-Fetch-Mode":            "navigate",
		"User-Agent":                "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_14_6) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/78.0.3904.97 Safari/537.36",
		"Upgrade-Insecure-Requests": "1",
	}
}

func NewSession(opts SessionOptions) (*Session, error) {
	if opts.EntryUrl == "" {
		opts.EntryUrl = DefaultEntryUrl
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Fields.Version == 0 {
		opts.Fields = DefaultFields()
	}
	if opts.Tel == nil {
		opts.Tel = telemetry.SlogAPI{}
	}
	tel := telemetry.NewScopedAPI("cnavi", opts.Tel)

	entry, err := url.Parse(opts.EntryUrl)
	if err != nil {
		return nil, fmt.Errorf("parse entry url: %w", err)
	}

	httpClient := resty.New()
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	httpClient.SetCookieJar(jar)
	httpClient.SetHeaders(browserHeaders(entry))
	httpClient.SetTimeout(opts.Timeout)
	httpClient.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(entry.Hostname()))

	// network failures get exactly one more attempt
	httpClient.SetRetryCount(1)
	httpClient.SetRetryWaitTime(time.Second)

	if opts.InsecureSkipVerify {
		httpClient.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	if opts.Proxy != "" {
		httpClient.SetProxy(opts.Proxy)
	}
	// wrapped last, resty only configures TLS and proxies on *http.Transport
	httpClient.SetTransport(restyutil.NewDecodingTransport(httpClient.GetClient().Transport))

	if opts.RequestsPerSecond > 0 {
		limiter := rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 2)
		httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return limiter.Wait(req.Context())
		})
	}

	telemetry.InstrumentResty(httpClient, "cnavi/http", tel)
	restyutil.InstrumentClient(httpClient, opts.HttpDump, opts.Fields.Login.Credentials.Secret)

	return &Session{
		entry:       entry,
		http:        httpClient,
		fields:      opts.Fields,
		tel:         tel,
		loginCache:  map[string]string{},
		courseCache: map[string]string{},
	}, nil
}

// CachedField returns a value kept from an earlier step.
func (s *Session) CachedField(name string) (string, bool) {
	if value, ok := s.courseCache[name]; ok {
		return value, true
	}
	value, ok := s.loginCache[name]
	return value, ok
}

// parseDocument converts body to UTF-8 before parsing. Parts of the portal
// still serve Shift_JIS, the declared or sniffed charset is used and
// anything undecided is read as UTF-8.
func parseDocument(body []byte, contentType string) (*goquery.Document, error) {
	var reader io.Reader = bytes.NewReader(body)
	enc, name, certain := charset.DetermineEncoding(body, contentType)
	if certain || name != "windows-1252" {
		reader = enc.NewDecoder().Reader(reader)
	}
	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

func parseResponse(res *resty.Response) (*goquery.Document, error) {
	return parseDocument(res.Body(), res.Header().Get("Content-Type"))
}

func (s *Session) get(ctx context.Context) (*goquery.Document, error) {
	res, err := s.http.R().
		SetContext(ctx).
		Get(s.entry.String())
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: %w", ErrTransport, s.entry, err)
	}
	return parseResponse(res)
}

// multipartBody encodes params in key order with a freshly generated
// boundary and returns the matching content type.
func multipartBody(params url.Values) ([]byte, string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, k := range keys {
		for _, v := range params[k] {
			err := writer.WriteField(k, v)
			if err != nil {
				return nil, "", err
			}
		}
	}
	err := writer.Close()
	if err != nil {
		return nil, "", err
	}
	return body.Bytes(), writer.FormDataContentType(), nil
}

func (s *Session) post(ctx context.Context, encoding Encoding, params url.Values) (*goquery.Document, error) {
	req := s.http.R().SetContext(ctx)

	switch encoding {
	case EncodingURL:
		req.SetFormDataFromValues(params)
	case EncodingMultipart:
		body, contentType, err := multipartBody(params)
		if err != nil {
			return nil, fmt.Errorf("encode multipart: %w", err)
		}
		req.SetHeader("Content-Type", contentType).SetBody(body)
	default:
		s.tel.ReportBroken(report_session_post, ErrInvalidEncoding, encoding)
		return nil, fmt.Errorf("%w: %s", ErrInvalidEncoding, encoding)
	}

	res, err := req.Post(s.entry.String())
	if err != nil {
		return nil, fmt.Errorf("%w: POST %s: %w", ErrTransport, s.entry, err)
	}
	return parseResponse(res)
}
