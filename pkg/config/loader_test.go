package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macropower/reap/api/v1beta1"
	"github.com/macropower/reap/api/v1beta1/configs"
	"github.com/macropower/reap/pkg/config"
	"github.com/macropower/reap/pkg/hnr"
)

const validConfig = `apiVersion: reap.jacobcolvin.com/v1beta1
kind: Configuration
strategies:
  - name: seeded
    filter: torrent.category != "keep"
    remove: ratio > 2 or seeding_time > 86400
  - name: hnr
    hnr:
      host: https://tracker.example.org/api/hnr
      api_token: secret
      timeout: 5s
`

func TestNewLoaderFromFile(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		setupFile func(t *testing.T) string
		wantErr   bool
	}{
		"valid file": {
			setupFile: func(t *testing.T) string {
				t.Helper()

				return createTempFile(t, validConfig)
			},
			wantErr: false,
		},
		"non-existent file": {
			setupFile: func(t *testing.T) string {
				t.Helper()

				return "/non/existent/file.yaml"
			},
			wantErr: true,
		},
		"directory instead of file": {
			setupFile: func(t *testing.T) string {
				t.Helper()

				return t.TempDir()
			},
			wantErr: true,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			path := tc.setupFile(t)

			got, err := config.NewLoaderFromFile(path, configs.New, configs.DefaultValidator)
			if tc.wantErr {
				require.Error(t, err)
				assert.Nil(t, got)
			} else {
				require.NoError(t, err)
				assert.NotNil(t, got)
			}
		})
	}
}

func TestLoader_Validate(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		input  string
		errMsg string
	}{
		"valid config": {
			input: validConfig,
		},
		"invalid yaml": {
			input: `apiVersion: reap.jacobcolvin.com/v1beta1
kind: Configuration
strategies: [unclosed
`,
			errMsg: "sequence end token ']' not found",
		},
		"missing required fields": {
			input: `strategies: []
`,
			errMsg: "missing properties 'apiVersion', 'kind'",
		},
		"unknown field": {
			input: `apiVersion: reap.jacobcolvin.com/v1beta1
kind: Configuration
strategies:
  - name: seeded
    remvoe: ratio > 2
`,
			errMsg: "remvoe",
		},
		"bad timeout": {
			input: `apiVersion: reap.jacobcolvin.com/v1beta1
kind: Configuration
strategies:
  - name: hnr
    hnr:
      host: https://tracker.example.org
      api_token: secret
      timeout: soon
`,
			errMsg: "timeout",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			cl := config.NewLoaderFromBytes([]byte(tc.input), configs.New, configs.DefaultValidator)

			err := cl.Validate()
			if tc.errMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.errMsg)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestLoader_Load(t *testing.T) {
	t.Parallel()

	cl := config.NewLoaderFromBytes([]byte(validConfig), configs.New, configs.DefaultValidator)

	cfg, err := cl.Load()
	require.NoError(t, err)

	assert.Equal(t, v1beta1.APIVersion, cfg.GetAPIVersion())
	assert.Equal(t, "Configuration", cfg.GetKind())
	require.Len(t, cfg.Strategies, 2)

	seeded := cfg.Strategy("seeded")
	require.NotNil(t, seeded)
	assert.Equal(t, "ratio > 2 or seeding_time > 86400", seeded.Remove)
	assert.Equal(t, `torrent.category != "keep"`, seeded.Filter)
	assert.Nil(t, seeded.HNR)

	remote := cfg.Strategy("hnr")
	require.NotNil(t, remote)
	require.NotNil(t, remote.HNR)
	assert.Equal(t, "https://tracker.example.org/api/hnr", remote.HNR.Host)
	assert.Equal(t, 5*time.Second, remote.HNR.Timeout)

	// Defaults are filled in by Load.
	assert.Equal(t, hnr.DefaultSatisfiedCodes, remote.HNR.SatisfiedCodes)
	assert.Equal(t, hnr.DefaultBatchSize, remote.HNR.BatchSize)
	assert.Equal(t, hnr.DefaultConcurrency, remote.HNR.Concurrency)
}

func TestLoader_LoadErrors(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		input  string
		opts   []config.LoaderOpt
		errMsg string
	}{
		"invalid yaml": {
			input: `apiVersion: reap.jacobcolvin.com/v1beta1
strategies: [unclosed
`,
			errMsg: "sequence end token ']' not found",
		},
		"wrong kind": {
			input: `apiVersion: reap.jacobcolvin.com/v1beta1
kind: Policy
strategies: []
`,
			opts:   []config.LoaderOpt{config.WithKinds(configs.ValidKinds...)},
			errMsg: `kind "Policy"`,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			cl := config.NewLoaderFromBytes([]byte(tc.input), configs.New, configs.DefaultValidator, tc.opts...)

			cfg, err := cl.Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errMsg)
			assert.Nil(t, cfg)
		})
	}
}

func TestLoader_WithValidator(t *testing.T) {
	t.Parallel()

	input := `apiVersion: reap.jacobcolvin.com/v1beta1
kind: Configuration
anything: goes
`

	cl := config.NewLoaderFromBytes([]byte(input), configs.New, configs.DefaultValidator, config.WithValidator(nil))
	require.NotNil(t, cl)

	err := cl.Validate()
	require.NoError(t, err)
}

func TestLoadConfiguration(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		input  string
		errMsg string
	}{
		"valid": {
			input: validConfig,
		},
		"schema error is annotated": {
			input: `apiVersion: reap.jacobcolvin.com/v1beta1
kind: Configuration
strategies:
  - name: seeded
    delete_data: "yes"
`,
			errMsg: "$.strategies[0].delete_data",
		},
		"strategy errors are aggregated": {
			input: `apiVersion: reap.jacobcolvin.com/v1beta1
kind: Configuration
strategies:
  - name: seeded
  - name: seeded
    remove: ratio > 1
`,
			errMsg: "2 errors occurred",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			cfg, err := config.LoadConfiguration(createTempFile(t, tc.input))
			if tc.errMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.errMsg)
				assert.Nil(t, cfg)

				return
			}

			require.NoError(t, err)
			assert.Len(t, cfg.Strategies, 2)
		})
	}
}

func TestLoader_RoundTrip(t *testing.T) {
	t.Parallel()

	configPath := filepath.Join(t.TempDir(), "config.yaml")

	err := configs.WriteDefault(configPath, false)
	require.NoError(t, err)

	cfg, err := config.LoadConfiguration(configPath)
	require.NoError(t, err)

	data, err := cfg.MarshalYAML()
	require.NoError(t, err)

	cl := config.NewLoaderFromBytes(data, configs.New, configs.DefaultValidator)
	require.NoError(t, cl.Validate())

	cfg2, err := cl.Load()
	require.NoError(t, err)
	assert.Equal(t, cfg, cfg2)
}

// createTempFile creates a temporary file with the given content.
func createTempFile(t *testing.T, content string) string {
	t.Helper()

	tmpFile, err := os.CreateTemp(t.TempDir(), "config-*.yaml")
	require.NoError(t, err)

	_, err = tmpFile.WriteString(content)
	require.NoError(t, err)

	err = tmpFile.Close()
	require.NoError(t, err)

	return tmpFile.Name()
}
