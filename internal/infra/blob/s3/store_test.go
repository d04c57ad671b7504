package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awsS3 "github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/xpingli/qiime2/internal/blob/core"
)

// mockRoundTripper fakes the S3 subset the store uses, so the adapter is
// exercised without network access.
type mockRoundTripper struct{ state map[string]stored }

type stored struct {
	body        []byte
	contentType string
}

func (m *mockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	parts := strings.SplitN(strings.TrimPrefix(req.URL.Path, "/"), "/", 2)
	key := ""
	if len(parts) == 2 {
		key = parts[1]
	}
	if req.Method == http.MethodGet && strings.Contains(req.URL.RawQuery, "list-type=2") {
		prefix := req.URL.Query().Get("prefix")
		cont := req.URL.Query().Get("continuation-token")
		var keys []string
		for k := range m.state {
			if prefix == "" || strings.HasPrefix(k, prefix) {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		var b strings.Builder
		b.WriteString("<?xml version=\"1.0\"?><ListBucketResult>")
		if cont == "" && len(keys) > 1 {
			// First page holds one item and advertises a continuation token.
			k := keys[0]
			st := m.state[k]
			b.WriteString("<IsTruncated>true</IsTruncated><NextContinuationToken>tok123</NextContinuationToken>")
			b.WriteString("<Contents><Key>")
			b.WriteString(k)
			b.WriteString("</Key><Size>")
			b.WriteString(fmt.Sprintf("%d", len(st.body)))
			b.WriteString("</Size><LastModified>2024-01-01T00:00:00Z</LastModified></Contents>")
		} else {
			b.WriteString("<IsTruncated>false</IsTruncated>")
			start := 0
			if cont != "" && len(keys) > 1 {
				start = 1
			}
			for _, k := range keys[start:] {
				st := m.state[k]
				b.WriteString("<Contents><Key>")
				b.WriteString(k)
				b.WriteString("</Key><Size>")
				b.WriteString(fmt.Sprintf("%d", len(st.body)))
				b.WriteString("</Size><LastModified>2024-01-01T00:00:00Z</LastModified></Contents>")
			}
		}
		b.WriteString("</ListBucketResult>")
		return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(b.String())), Header: http.Header{"Content-Type": {"application/xml"}}}, nil
	}
	switch req.Method {
	case http.MethodHead:
		if st, ok := m.state[key]; ok {
			return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(bytes.NewReader(nil)), Header: http.Header{
				"Content-Length": {fmt.Sprintf("%d", len(st.body))},
				"Content-Type":   {st.contentType},
				"ETag":           {"\"etag123\""},
				"Last-Modified":  {time.Now().UTC().Format(http.TimeFormat)},
			}}, nil
		}
		return &http.Response{StatusCode: http.StatusNotFound, Body: io.NopCloser(bytes.NewReader(nil)), Header: http.Header{}}, nil
	case http.MethodPut:
		body, _ := io.ReadAll(req.Body)
		if dec, ok := decodeChunked(body); ok { // handle aws-chunked payloads
			body = dec
		}
		if _, exists := m.state[key]; !exists {
			m.state[key] = stored{body: body, contentType: req.Header.Get("Content-Type")}
		}
		return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(bytes.NewReader(nil)), Header: http.Header{"ETag": {"\"etag\""}}}, nil
	case http.MethodGet:
		if st, ok := m.state[key]; ok {
			return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(bytes.NewReader(st.body)), Header: http.Header{
				"Content-Length": {fmt.Sprintf("%d", len(st.body))},
				"Content-Type":   {st.contentType},
				"Last-Modified":  {time.Now().UTC().Format(http.TimeFormat)},
				"ETag":           {"\"etag\""},
			}}, nil
		}
		return &http.Response{StatusCode: http.StatusNotFound, Body: io.NopCloser(bytes.NewReader(nil)), Header: http.Header{}}, nil
	case http.MethodDelete:
		delete(m.state, key)
		return &http.Response{StatusCode: http.StatusNoContent, Body: io.NopCloser(bytes.NewReader(nil)), Header: http.Header{}}, nil
	}
	return &http.Response{StatusCode: http.StatusNotImplemented, Body: io.NopCloser(bytes.NewReader(nil)), Header: http.Header{}}, nil
}

// decodeChunked unwraps a minimal single-chunk aws-chunked payload:
// <hex>\r\n<body>\r\n0\r\n...
func decodeChunked(b []byte) ([]byte, bool) {
	parts := strings.Split(string(b), "\r\n")
	if len(parts) < 3 {
		return nil, false
	}
	n, err := strconv.ParseInt(parts[0], 16, 64)
	if err != nil || n <= 0 {
		return nil, false
	}
	if int64(len(parts[1])) != n || parts[2] != "0" {
		return nil, false
	}
	return []byte(parts[1]), true
}

func newMockStore(t *testing.T) *Store {
	t.Helper()
	rt := &mockRoundTripper{state: make(map[string]stored)}
	cfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion("us-east-1"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("AKIA", "SECRET", "")),
	)
	if err != nil {
		t.Fatalf("cfg: %v", err)
	}
	client := awsS3.NewFromConfig(cfg, func(o *awsS3.Options) {
		o.BaseEndpoint = aws.String("https://mock.s3.local")
		o.HTTPClient = &http.Client{Transport: rt}
		o.UsePathStyle = true
	})
	return &Store{client: client, bucket: "test-bucket", presign: awsS3.NewPresignClient(client)}
}

func TestStoreMockedArchiveFlow(t *testing.T) {
	store := newMockStore(t)
	ctx := context.Background()

	info, err := store.Put(ctx, "archives/a.qza", bytes.NewReader([]byte("archive-bytes")), core.PutOptions{ContentType: "application/zip"})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Key != "archives/a.qza" || info.ContentType != "application/zip" || info.Size == 0 {
		t.Fatalf("unexpected info %#v", info)
	}
	if _, err := store.Put(ctx, "archives/a.qza", bytes.NewReader([]byte("ignored")), core.PutOptions{}); err == nil {
		t.Fatalf("expected create-only violation on duplicate put")
	}
	if _, err := store.Head(ctx, "archives/a.qza"); err != nil {
		t.Fatalf("head: %v", err)
	}
	_, rc, err := store.Get(ctx, "archives/a.qza")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(data) != "archive-bytes" {
		t.Fatalf("get mismatch: %q", string(data))
	}
	list, err := store.List(ctx, "archives/")
	if err != nil || len(list) != 1 {
		t.Fatalf("list: %v %+v", err, list)
	}
	if url, err := store.PresignURL(ctx, "archives/a.qza", core.SignedURLOptions{}); err != nil || url == "" {
		t.Fatalf("presign: %v %s", err, url)
	}
	if ok, err := store.Delete(ctx, "archives/a.qza"); err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
}

func TestStoreMissingObjectErrors(t *testing.T) {
	store := newMockStore(t)
	ctx := context.Background()
	if _, err := store.Head(ctx, "archives/missing.qza"); err == nil {
		t.Fatalf("expected head error for missing key")
	}
	if _, _, err := store.Get(ctx, "archives/missing.qza"); err == nil {
		t.Fatalf("expected get error for missing key")
	}
	if _, err := store.PresignURL(ctx, "archives/a.qza", core.SignedURLOptions{Method: "PUT"}); err == nil {
		t.Fatalf("expected presign unsupported error")
	}
}

func TestStoreListPaginationAndPresignExpiry(t *testing.T) {
	store := newMockStore(t)
	ctx := context.Background()
	if _, err := store.Put(ctx, "archives/a.qza", bytes.NewReader([]byte("one")), core.PutOptions{}); err != nil {
		t.Fatalf("put a: %v", err)
	}
	if _, err := store.Put(ctx, "archives/b.qza", bytes.NewReader([]byte("two")), core.PutOptions{}); err != nil {
		t.Fatalf("put b: %v", err)
	}
	list, err := store.List(ctx, "archives/")
	if err != nil || len(list) != 2 {
		t.Fatalf("expected two items via pagination: %v %+v", err, list)
	}
	if list[0].Key > list[1].Key {
		t.Fatalf("list not sorted: %+v", list)
	}
	if empty, err := store.List(ctx, "no-such-prefix/"); err != nil || len(empty) != 0 {
		t.Fatalf("expected empty list: %v %+v", err, empty)
	}
	if url, err := store.PresignURL(ctx, "archives/a.qza", core.SignedURLOptions{Expiry: 30 * time.Second}); err != nil || url == "" {
		t.Fatalf("presign custom expiry: %v %s", err, url)
	}
}

func TestNewConfig(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatalf("expected error for missing bucket")
	}
	s, err := New(context.Background(), Config{
		Bucket:          "bkt",
		Region:          "us-east-1",
		Endpoint:        "https://mock.s3.local",
		PathStyle:       true,
		AccessKeyID:     "AKIA",
		SecretAccessKey: "SECRET",
	})
	if err != nil {
		t.Fatalf("New with static credentials: %v", err)
	}
	if s.Driver() != core.DriverS3 {
		t.Fatalf("expected DriverS3, got %s", s.Driver())
	}
}

func TestOpenFromEnv(t *testing.T) {
	t.Setenv("QIIME2_BLOB_S3_BUCKET", "")
	if _, err := OpenFromEnv(context.Background()); err == nil || !strings.Contains(err.Error(), "QIIME2_BLOB_S3_BUCKET") {
		t.Fatalf("expected missing bucket error naming the variable, got %v", err)
	}

	t.Setenv("QIIME2_BLOB_S3_BUCKET", "env-bucket")
	t.Setenv("QIIME2_BLOB_S3_REGION", "us-east-1")
	t.Setenv("QIIME2_BLOB_S3_PATH_STYLE", "true")
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIA")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "SECRET")
	s, err := OpenFromEnv(context.Background())
	if err != nil {
		t.Fatalf("OpenFromEnv: %v", err)
	}
	if s.bucket != "env-bucket" {
		t.Fatalf("expected env bucket, got %s", s.bucket)
	}
}

func TestFromHeadNilBranches(t *testing.T) {
	store := newMockStore(t)
	info := store.fromHead("k", 10, nil, aws.String("\"etagval\""), map[string]string{"x": "y"}, nil)
	if info.ETag != "etagval" || info.ContentType != "" || info.Key != "k" || info.Size != 10 {
		t.Fatalf("unexpected info: %+v", info)
	}
	if info.LastModified.IsZero() {
		t.Fatalf("expected fallback last-modified timestamp")
	}
}

func TestDecodeChunkedHelper(t *testing.T) {
	if _, ok := decodeChunked([]byte("not-chunked")); ok {
		t.Fatalf("plain payload must not decode")
	}
	if _, ok := decodeChunked([]byte("5\r\nabc\r\n0\r\n")); ok {
		t.Fatalf("size mismatch must not decode")
	}
	if b, ok := decodeChunked([]byte("5\r\nhello\r\n0\r\n")); !ok || string(b) != "hello" {
		t.Fatalf("expected decoded hello, got %q %v", b, ok)
	}
}
