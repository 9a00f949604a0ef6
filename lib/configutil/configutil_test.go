package configutil

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	BaseUrl string   `json:"base_url"`
	Timeout int      `json:"timeout_seconds"`
	Proxy   string   `json:"proxy"`
	Rate    *float64 `json:"rate"`
	Nested  testSub  `json:"nested"`
}

type testSub struct {
	Endpoint string `json:"endpoint"`
}

func writeFile(t *testing.T, path, contents string) {
	err := os.WriteFile(path, []byte(contents), 0600)
	if err != nil {
		t.Fatal(err)
	}
}

func TestReadConfig(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "cnavi.json5"), `{
		// comments are allowed
		base_url: "https://example.test/index.php",
		timeout_seconds: 10,
	}`)
	writeFile(t, filepath.Join(dir, "cnavi.local.json5"), `{
		timeout_seconds: 5,
		nested: { endpoint: "localhost:4317" },
	}`)

	config, err := ReadConfig[testConfig](filepath.Join(dir, "cnavi.json5"))
	require.NoError(t, err)
	require.Equal(t, testConfig{
		BaseUrl: "https://example.test/index.php",
		Timeout: 5,
		Nested:  testSub{Endpoint: "localhost:4317"},
	}, config)

	_, err = ReadConfig[testConfig](filepath.Join(dir, "missing.json5"))
	require.True(t, os.IsNotExist(err))

	writeFile(t, filepath.Join(dir, "broken.json5"), `{ base_url: `)
	_, err = ReadConfig[testConfig](filepath.Join(dir, "broken.json5"))
	require.Error(t, err)
	require.False(t, os.IsNotExist(err))
}

func TestLayer(t *testing.T) {
	defaults := testConfig{
		BaseUrl: "https://default.test/index.php",
		Timeout: 30,
	}
	name := fmt.Sprintf("configutil-test-%d.json5", time.Now().UnixNano())

	config, err := Layer(defaults, name, t.TempDir())
	require.NoError(t, err)
	require.Equal(t, defaults, config)

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, name), `{ proxy: "http://proxy.test:8080" }`)

	config, err = Layer(defaults, name, t.TempDir(), dir)
	require.NoError(t, err)
	require.Equal(t, testConfig{
		BaseUrl: "https://default.test/index.php",
		Timeout: 30,
		Proxy:   "http://proxy.test:8080",
	}, config)

	writeFile(t, filepath.Join(dir, name), `{ timeout_seconds: 0, rate: 0 }`)
	config, err = Layer(defaults, name, t.TempDir(), dir)
	require.NoError(t, err)
	require.Equal(t, 30, config.Timeout)
	require.NotNil(t, config.Rate)
	require.Zero(t, *config.Rate)
}
