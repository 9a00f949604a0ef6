package restyutil

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
)

type memoryOutput struct {
	mutex sync.Mutex
	files map[string]string
}

func (m *memoryOutput) Write(id string, contents string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.files[id] = contents
}

func withLogLevel(t *testing.T, level slog.Level) {
	previous := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: level})))
	t.Cleanup(func() { slog.SetDefault(previous) })
}

func TestInstrumentClient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Portal", "cnavi")
		w.Write([]byte("dashboard"))
	}))
	defer server.Close()

	output := &memoryOutput{files: map[string]string{}}
	client := resty.New()
	InstrumentClient(client, output, "password")

	withLogLevel(t, slog.LevelWarn)
	_, err := client.R().Get(server.URL)
	require.NoError(t, err)
	require.Empty(t, output.files)

	withLogLevel(t, slog.LevelDebug)
	_, err = client.R().
		SetFormDataFromValues(url.Values{"id": {"student"}, "password": {"hunter2"}}).
		Post(server.URL)
	require.NoError(t, err)

	require.Len(t, output.files, 1)
	dump := output.files["1"]
	require.True(t, strings.HasPrefix(dump, "---- REQUEST ----\n\nPOST "+server.URL))
	require.Contains(t, dump, "id=student")
	require.Contains(t, dump, "password=%3CREDACTED%3E")
	require.NotContains(t, dump, "hunter2")
	require.Contains(t, dump, "X-Portal: cnavi")
	require.True(t, strings.HasSuffix(dump, "dashboard"))
}

func TestInstrumentClientNilOutput(t *testing.T) {
	client := resty.New()
	InstrumentClient(client, nil)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()
	_, err := client.R().Get(server.URL)
	require.NoError(t, err)
}

func TestFilesystemOutput(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "http")
	output, err := NewFilesystemOutput(dir)
	require.NoError(t, err)
	output.Write("1", "contents")
	contents, err := os.ReadFile(filepath.Join(dir, "1"))
	require.NoError(t, err)
	require.Equal(t, "contents", string(contents))

	// a new run starts from an empty directory
	_, err = NewFilesystemOutput(dir)
	require.NoError(t, err)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}
