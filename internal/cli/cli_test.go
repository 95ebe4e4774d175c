package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mev-engine/ton-mev-lab/internal/config"
	"github.com/mev-engine/ton-mev-lab/pkg/interfaces"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixture = "../../pkg/pipeline/testdata/stonfi_raw.ndjson"

func TestCLICommands(t *testing.T) {
	setupTestEnvironment(t)
	defer cleanupTestEnvironment(t)

	tests := []struct {
		name           string
		args           []string
		expectedOutput string
	}{
		{name: "help command", args: []string{"--help"}, expectedOutput: "Available Commands"},
		{name: "analyze help", args: []string{"analyze", "--help"}, expectedOutput: "Reconstruct swaps"},
		{name: "fetch help", args: []string{"fetch", "--help"}, expectedOutput: "Page backwards"},
		{name: "serve help", args: []string{"serve", "--help"}, expectedOutput: "JSON API"},
		{name: "inspect help", args: []string{"inspect", "--help"}, expectedOutput: "terminal browser"},
		{name: "status help", args: []string{"status", "--help"}, expectedOutput: "running serve instance"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, err := executeCommand(tt.args...)
			assert.NoError(t, err)
			assert.Contains(t, output, tt.expectedOutput)
		})
	}
}

func TestRootCommand(t *testing.T) {
	assert.Equal(t, "ton-mev", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Version)

	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"analyze", "fetch", "serve", "inspect", "status"} {
		assert.True(t, names[want], want)
	}
}

func TestAnalyzeCommand(t *testing.T) {
	setupTestEnvironment(t)
	defer cleanupTestEnvironment(t)

	t.Run("json report", func(t *testing.T) {
		output, err := executeCommand("analyze", "--input", fixture, "--format", "json")
		require.NoError(t, err)

		var report struct {
			Summary interfaces.Summary `json:"summary"`
		}
		require.NoError(t, json.Unmarshal([]byte(output), &report))
		assert.Equal(t, 3, report.Summary.TotalSwaps)
		assert.Equal(t, 1, report.Summary.Victims)
	})

	t.Run("text report to file", func(t *testing.T) {
		dir := t.TempDir()
		out := filepath.Join(dir, "report.txt")
		records := filepath.Join(dir, "records.ndjson")

		output, err := executeCommand("analyze", "-i", fixture, "-o", out, "--records-out", records)
		require.NoError(t, err)
		assert.Empty(t, output)

		data, err := os.ReadFile(out)
		require.NoError(t, err)
		assert.Contains(t, string(data), "STON.fi TON/USDT swap analysis")
		assert.NotContains(t, string(data), "\x1b[", "files get the plain report")

		data, err = os.ReadFile(records)
		require.NoError(t, err)
		assert.Equal(t, 3, strings.Count(string(data), "\n"))
	})

	t.Run("missing input", func(t *testing.T) {
		_, err := executeCommand("analyze", "--input", filepath.Join(t.TempDir(), "nope.ndjson"))
		require.Error(t, err)
		assert.True(t, errors.Is(err, config.ErrInvalidConfig))
	})

	t.Run("cross block without blocks", func(t *testing.T) {
		_, err := executeCommand("analyze", "-i", fixture, "--cross-block", "--block-source", "none")
		require.Error(t, err)
		assert.True(t, errors.Is(err, config.ErrInvalidConfig))
	})
}

func TestFetchCommand(t *testing.T) {
	setupTestEnvironment(t)
	defer cleanupTestEnvironment(t)

	var gotPath string
	tonapi := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"transactions":[{"hash":"a","lt":100,"utime":1700000000}]}`))
	}))
	defer tonapi.Close()

	out := filepath.Join(t.TempDir(), "raw.ndjson")
	output, err := executeCommand("fetch", "--base-url", tonapi.URL, "--account", "EQrouter", "--out", out, "--limit", "10")
	require.NoError(t, err)
	assert.Contains(t, output, "wrote 1 transactions from 1 pages")
	assert.Contains(t, output, "short_page")
	assert.Equal(t, "/v2/blockchain/accounts/EQrouter/transactions", gotPath)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"hash":"a"`)
}

func TestStatusCommand(t *testing.T) {
	setupTestEnvironment(t)
	defer cleanupTestEnvironment(t)

	t.Run("offline status", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		setupTestServerConfig(server.URL)
		server.Close()

		output, err := executeCommand("status")
		assert.NoError(t, err)
		assert.Contains(t, output, "offline")
	})

	t.Run("online status", func(t *testing.T) {
		server := createMockAPIServer(t)
		defer server.Close()
		setupTestServerConfig(server.URL)

		output, err := executeCommand("status")
		assert.NoError(t, err)
		assert.Contains(t, output, "ready")
		assert.Contains(t, output, "Triples:     2")
		assert.Contains(t, output, "swaps.ndjson")
	})

	t.Run("json output", func(t *testing.T) {
		server := createMockAPIServer(t)
		defer server.Close()
		setupTestServerConfig(server.URL)

		output, err := executeCommand("status", "--json")
		assert.NoError(t, err)
		assert.Contains(t, output, `"status": "ready"`)
		assert.Contains(t, output, `"version": "1.2.3"`)
	})
}

func TestStatusURL(t *testing.T) {
	setupTestEnvironment(t)
	defer cleanupTestEnvironment(t)

	viper.Set("server.host", "0.0.0.0")
	viper.Set("server.port", 9090)
	assert.Equal(t, "http://localhost:9090/api/v1/status", statusURL())

	viper.Set("server.host", "10.1.2.3")
	assert.Equal(t, "http://10.1.2.3:9090/api/v1/status", statusURL())
}

func TestConfigurationFile(t *testing.T) {
	setupTestEnvironment(t)
	defer cleanupTestEnvironment(t)

	configFile := filepath.Join(t.TempDir(), "test-config.yaml")
	configContent := `
logging:
  level: error
analysis:
  input: ` + fixture + `
  format: json
`
	require.NoError(t, os.WriteFile(configFile, []byte(configContent), 0o644))
	viper.SetConfigFile(configFile)

	output, err := executeCommand("analyze")
	require.NoError(t, err)
	assert.Contains(t, output, `"total_swaps": 3`)
}

// Helper functions

func setupTestEnvironment(t *testing.T) {
	viper.Reset()
	viper.Set("logging.level", "error")
}

func cleanupTestEnvironment(t *testing.T) {
	viper.Reset()
}

func executeCommand(args ...string) (string, error) {
	buf := new(bytes.Buffer)

	testRootCmd := &cobra.Command{
		Use:           "ton-mev",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	for _, cmd := range []*cobra.Command{analyzeCmd, fetchCmd, serveCmd, inspectCmd, statusCmd} {
		resetFlags(cmd)
		testRootCmd.AddCommand(cmd)
	}

	testRootCmd.SetOut(buf)
	testRootCmd.SetErr(buf)
	testRootCmd.SetArgs(args)

	err := testRootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

// resetFlags undoes what earlier executions parsed into the shared commands
func resetFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	})
}

func createMockAPIServer(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/status", func(w http.ResponseWriter, r *http.Request) {
		status := interfaces.StatusResponse{
			Status:     "ready",
			Version:    "1.2.3",
			Input:      "swaps.ndjson",
			AnalyzedAt: time.Now().UTC(),
			Swaps:      120,
			Triples:    2,
			Victims:    2,
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(status); err != nil {
			t.Errorf("Failed to encode status: %v", err)
		}
	})

	return httptest.NewServer(mux)
}

func setupTestServerConfig(serverURL string) {
	parts := strings.Split(strings.TrimPrefix(serverURL, "http://"), ":")
	if len(parts) == 2 {
		viper.Set("server.host", parts[0])
		viper.Set("server.port", parts[1])
	}
}

type closeErrWriter struct {
	bytes.Buffer
	closeErr error
	closed   int
}

func (w *closeErrWriter) Close() error {
	w.closed++
	return w.closeErr
}

func TestCloseAfter(t *testing.T) {
	diskFull := errors.New("no space left on device")
	writeFailed := errors.New("short write")

	tests := []struct {
		name     string
		writeErr error
		closeErr error
		want     error
	}{
		{name: "ok"},
		{name: "close fails", closeErr: diskFull, want: diskFull},
		{name: "write fails first", writeErr: writeFailed, closeErr: diskFull, want: writeFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &closeErrWriter{closeErr: tt.closeErr}
			err := closeAfter(w, func(out io.Writer) error {
				_, _ = io.WriteString(out, "report")
				return tt.writeErr
			})
			if tt.want != nil {
				assert.True(t, errors.Is(err, tt.want))
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, 1, w.closed)
			assert.Equal(t, "report", w.String())
		})
	}
}
