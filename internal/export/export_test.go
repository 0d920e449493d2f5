package export

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awsS3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvandessel/osteon/internal/store"
	"github.com/nvandessel/osteon/internal/tissue"
)

func testRun() *store.Run {
	return &store.Run{
		ID:            "run-1",
		Scenario:      "growth plate/young",
		Days:          30,
		Steps:         30,
		FinalStrength: 0.61,
		Config:        tissue.DefaultConfig(),
		Report:        tissue.Report{Day: 30, Steps: 30, Strength: 0.61, Stage: "secondary"},
	}
}

func TestExporter_Key(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		run    *store.Run
		want   string
	}{
		{name: "no prefix", run: testRun(), want: "growth_plate_young/run-1.json"},
		{name: "prefix trimmed", prefix: "/reports/", run: testRun(), want: "reports/growth_plate_young/run-1.json"},
		{name: "unnamed scenario", run: &store.Run{ID: "x"}, want: "unnamed/x.json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewExporter(nil, tt.prefix).Key(tt.run))
		})
	}
}

func TestExporter_Disabled(t *testing.T) {
	e := NewExporter(nil, "")
	assert.False(t, e.Enabled())
	key, err := e.ExportRun(context.Background(), testRun())
	require.NoError(t, err)
	assert.Empty(t, key)

	var nilExporter *Exporter
	assert.False(t, nilExporter.Enabled())
}

func TestExporter_FS(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewFSSink(dir)
	require.NoError(t, err)
	e := NewExporter(sink, "runs")

	key, err := e.ExportRun(context.Background(), testRun())
	require.NoError(t, err)
	assert.Equal(t, "runs/growth_plate_young/run-1.json", key)

	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(key)))
	require.NoError(t, err)
	var got store.Run
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "run-1", got.ID)
	assert.Equal(t, 0.61, got.FinalStrength)
	assert.Equal(t, tissue.DefaultConfig(), got.Config)
}

func TestExporter_RequiresID(t *testing.T) {
	sink, err := NewFSSink(t.TempDir())
	require.NoError(t, err)
	_, err = NewExporter(sink, "").ExportRun(context.Background(), &store.Run{})
	assert.Error(t, err)
}

func TestFSSink_RejectsBadKeys(t *testing.T) {
	sink, err := NewFSSink(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()
	for _, key := range []string{"", "  ", "../escape.json", "/abs.json"} {
		assert.Error(t, sink.Put(ctx, key, []byte("{}")), "key %q", key)
	}
}

func TestFSSink_Overwrites(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewFSSink(dir)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, sink.Put(ctx, "a/b.json", []byte("1")))
	require.NoError(t, sink.Put(ctx, "a/b.json", []byte("2")))

	data, err := os.ReadFile(filepath.Join(dir, "a", "b.json"))
	require.NoError(t, err)
	assert.Equal(t, "2", string(data))

	entries, err := os.ReadDir(filepath.Join(dir, "a"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files are renamed away")
}

func TestFSSink_CanceledContext(t *testing.T) {
	sink, err := NewFSSink(t.TempDir())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sink.Put(ctx, "k.json", nil), context.Canceled)
}

// mockRoundTripper records PUT requests in place of a real S3 endpoint.
type mockRoundTripper struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func (m *mockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodPut {
		return &http.Response{StatusCode: 501, Body: io.NopCloser(bytes.NewReader(nil)), Header: http.Header{}}, nil
	}
	body, _ := io.ReadAll(req.Body)
	m.mu.Lock()
	m.objects[strings.TrimPrefix(req.URL.Path, "/")] = body
	m.types[strings.TrimPrefix(req.URL.Path, "/")] = req.Header.Get("Content-Type")
	m.mu.Unlock()
	return &http.Response{StatusCode: 200, Body: io.NopCloser(bytes.NewReader(nil)), Header: http.Header{"ETag": {"\"etag\""}}}, nil
}

func newMockS3Sink(t *testing.T) (*S3Sink, *mockRoundTripper) {
	t.Helper()
	rt := &mockRoundTripper{objects: make(map[string][]byte), types: make(map[string]string)}
	cfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion("us-east-1"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("AKIA", "SECRET", "")),
	)
	require.NoError(t, err)
	client := awsS3.NewFromConfig(cfg, func(o *awsS3.Options) {
		o.BaseEndpoint = aws.String("https://mock.s3.local")
		o.HTTPClient = &http.Client{Transport: rt}
		o.UsePathStyle = true
	})
	return &S3Sink{client: client, bucket: "reports"}, rt
}

func TestExporter_S3(t *testing.T) {
	sink, rt := newMockS3Sink(t)
	e := NewExporter(sink, "osteon")

	key, err := e.ExportRun(context.Background(), testRun())
	require.NoError(t, err)

	rt.mu.Lock()
	defer rt.mu.Unlock()
	body, ok := rt.objects["reports/"+key]
	require.True(t, ok, "objects: %v", rt.objects)
	assert.Contains(t, string(body), `"id": "run-1"`)
	assert.Equal(t, "application/json", rt.types["reports/"+key])
}

func TestNewS3Sink_RequiresBucket(t *testing.T) {
	_, err := NewS3Sink(context.Background(), S3Config{})
	assert.ErrorContains(t, err, "bucket")
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	sink, err := Open(ctx, Options{})
	require.NoError(t, err)
	assert.Nil(t, sink)

	sink, err = Open(ctx, Options{Driver: "none", Dir: t.TempDir()})
	require.NoError(t, err)
	assert.Nil(t, sink)

	sink, err = Open(ctx, Options{Driver: "fs", Dir: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, "fs", sink.Driver())

	sink, err = Open(ctx, Options{Driver: "fs"})
	assert.Error(t, err)
	assert.Nil(t, sink)

	t.Setenv("AWS_ACCESS_KEY_ID", "AKIA")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "SECRET")
	sink, err = Open(ctx, Options{Driver: "s3", Bucket: "b", Endpoint: "http://localhost:9000", PathStyle: true})
	require.NoError(t, err)
	assert.Equal(t, "s3", sink.Driver())

	_, err = Open(ctx, Options{Driver: "gcs"})
	assert.Error(t, err)
}
