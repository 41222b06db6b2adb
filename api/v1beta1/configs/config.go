// Package configs provides the Configuration kind for reap.
package configs

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/invopop/jsonschema"

	_ "embed"

	"github.com/macropower/reap/api"
	"github.com/macropower/reap/api/v1beta1"
	"github.com/macropower/reap/pkg/hnr"
	"github.com/macropower/reap/pkg/yaml"
)

//go:generate go run ../../../internal/schemagen -root ../../.. -o configs.v1beta1.json

var (
	//go:embed config.yaml
	defaultConfigYAML []byte

	//go:embed configs.v1beta1.json
	schemaJSON []byte

	// ValidKinds contains the valid kind values for reap configurations.
	ValidKinds = []string{"Configuration"}

	// DefaultValidator validates configuration against the JSON schema.
	DefaultValidator = yaml.MustNewValidator("/configs.v1beta1.json", schemaJSON)

	// ErrInvalidStrategy is returned by [Config.Validate] for each invalid strategy.
	ErrInvalidStrategy = errors.New("invalid strategy")

	// Compile-time interface checks.
	_ v1beta1.Object = (*Config)(nil)
)

// Config represents the reap configuration.
//
//nolint:recvcheck // Must satisfy the jsonschema interface.
type Config struct {
	v1beta1.TypeMeta `json:",inline"`

	// Strategies are applied in order to every snapshot.
	Strategies []*Strategy `json:"strategies" jsonschema:"title=Strategies"`
}

// Strategy selects torrents for removal. Exactly one of Remove or HNR decides
// which torrents are removed.
type Strategy struct {
	// HNR delegates the decision to a remote hit-and-run tracking service.
	// When set, Remove is ignored.
	HNR *HNR `json:"hnr,omitempty" jsonschema:"title=HNR"`
	// Name identifies the strategy in logs, metrics and reports.
	Name string `json:"name" jsonschema:"title=Name,minLength=1"`
	// Filter is a CEL expression selecting the candidate torrents. Torrents
	// it rejects are never removed by this strategy.
	Filter string `json:"filter,omitempty" jsonschema:"title=Filter"`
	// Remove is a condition expression, e.g. "ratio > 2 or seeding_time > 86400".
	Remove string `json:"remove,omitempty" jsonschema:"title=Remove"`
	// DeleteData asks the client to delete downloaded data with the torrent.
	DeleteData bool `json:"delete_data,omitempty" jsonschema:"title=Delete Data"`
	// CaseSensitiveKeywords only accepts lowercase "and" / "or".
	CaseSensitiveKeywords bool `json:"case_sensitive_keywords,omitempty" jsonschema:"title=Case Sensitive Keywords"`
}

// HNR configures the remote hit-and-run lookup.
type HNR struct {
	// Host is the lookup endpoint URL.
	Host string `json:"host" jsonschema:"title=Host,format=uri"`
	// APIToken is sent as a bearer token.
	APIToken string `json:"api_token,omitempty" jsonschema:"title=API Token"`
	// APITokenEnv names an environment variable holding the token.
	// It is used when APIToken is empty.
	APITokenEnv string `json:"api_token_env,omitempty" jsonschema:"title=API Token Environment Variable"`
	// SatisfiedCodes are the status codes meaning the obligation is met.
	SatisfiedCodes []int `json:"satisfied_codes,omitempty" jsonschema:"title=Satisfied Codes"`
	BatchSize      int   `json:"batch_size,omitempty" jsonschema:"title=Batch Size,minimum=1"`
	// Concurrency bounds the number of batches in flight.
	Concurrency       int     `json:"concurrency,omitempty" jsonschema:"title=Concurrency,minimum=1"`
	RequestsPerSecond float64 `json:"requests_per_second,omitempty" jsonschema:"title=Requests Per Second,minimum=0"`
	// Timeout bounds each batch request, e.g. "30s".
	Timeout time.Duration `json:"timeout,omitempty" jsonschema:"title=Timeout,type=string,pattern=^([0-9]+(ns|us|ms|s|m|h))+$"`
}

// New creates a new [Config] with default values.
func New() *Config {
	c := &Config{
		TypeMeta: v1beta1.TypeMeta{
			APIVersion: v1beta1.APIVersion,
			Kind:       "Configuration",
		},
	}
	c.EnsureDefaults()

	return c
}

// EnsureDefaults initializes nil fields to their default values.
func (c *Config) EnsureDefaults() {
	for _, s := range c.Strategies {
		if s != nil && s.HNR != nil {
			s.HNR.EnsureDefaults()
		}
	}
}

// Validate checks every strategy, returning all problems at once.
func (c *Config) Validate() error {
	var merr *multierror.Error

	seen := make(map[string]bool, len(c.Strategies))

	for i, s := range c.Strategies {
		if s == nil {
			merr = multierror.Append(merr, fmt.Errorf("%w: strategies[%d] is empty", ErrInvalidStrategy, i))
			continue
		}

		if s.Name != "" && seen[s.Name] {
			merr = multierror.Append(merr, fmt.Errorf("%w: strategies[%d]: duplicate name %q", ErrInvalidStrategy, i, s.Name))
		}

		seen[s.Name] = true

		err := s.Validate()
		if err != nil {
			merr = multierror.Append(merr, fmt.Errorf("%w: strategies[%d]: %w", ErrInvalidStrategy, i, err))
		}
	}

	return merr.ErrorOrNil()
}

// Strategy returns the strategy called name, or nil.
func (c *Config) Strategy(name string) *Strategy {
	for _, s := range c.Strategies {
		if s != nil && s.Name == name {
			return s
		}
	}

	return nil
}

func (c Config) JSONSchemaExtend(jss *jsonschema.Schema) {
	v1beta1.ExtendSchemaWithEnums(jss, v1beta1.ValidAPIVersions, ValidKinds)
}

// Validate checks the strategy on its own.
func (s *Strategy) Validate() error {
	if s.Name == "" {
		return errors.New("name is required")
	}

	if s.HNR != nil {
		err := s.HNR.Validate()
		if err != nil {
			return fmt.Errorf("%s: hnr: %w", s.Name, err)
		}

		return nil
	}

	if s.Remove == "" {
		return fmt.Errorf("%s: one of remove or hnr is required", s.Name)
	}

	return nil
}

// EnsureDefaults fills unset fields from the [hnr] package defaults.
func (h *HNR) EnsureDefaults() {
	if len(h.SatisfiedCodes) == 0 {
		h.SatisfiedCodes = append([]int(nil), hnr.DefaultSatisfiedCodes...)
	}

	if h.BatchSize == 0 {
		h.BatchSize = hnr.DefaultBatchSize
	}

	if h.Concurrency == 0 {
		h.Concurrency = hnr.DefaultConcurrency
	}

	if h.Timeout == 0 {
		h.Timeout = hnr.DefaultTimeout
	}
}

// Validate checks the host and token.
func (h *HNR) Validate() error {
	u, err := url.Parse(h.Host)
	if err != nil {
		return fmt.Errorf("host: %w", err)
	}

	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("host %q: must be an http or https URL", h.Host)
	}

	if h.APIToken == "" && h.APITokenEnv == "" {
		return errors.New("one of api_token or api_token_env is required")
	}

	return nil
}

// Token returns the API token, reading [HNR.APITokenEnv] if needed.
func (h *HNR) Token() (string, error) {
	if h.APIToken != "" {
		return h.APIToken, nil
	}

	token, ok := os.LookupEnv(h.APITokenEnv)
	if !ok || token == "" {
		return "", fmt.Errorf("api token: $%s is not set", h.APITokenEnv)
	}

	return token, nil
}

// ClientOpts converts the configuration to [hnr.ClientOpt]s.
func (h *HNR) ClientOpts() []hnr.ClientOpt {
	opts := []hnr.ClientOpt{}

	if len(h.SatisfiedCodes) > 0 {
		opts = append(opts, hnr.WithSatisfiedCodes(h.SatisfiedCodes...))
	}

	if h.BatchSize > 0 {
		opts = append(opts, hnr.WithBatchSize(h.BatchSize))
	}

	if h.Concurrency > 0 {
		opts = append(opts, hnr.WithConcurrency(h.Concurrency))
	}

	if h.RequestsPerSecond > 0 {
		opts = append(opts, hnr.WithRateLimit(h.RequestsPerSecond))
	}

	if h.Timeout > 0 {
		opts = append(opts, hnr.WithTimeout(h.Timeout))
	}

	return opts
}

// MarshalYAML serializes the config to YAML.
func (c Config) MarshalYAML() ([]byte, error) {
	type alias Config

	b, err := yaml.Marshal(alias(c))
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}

	return b, nil
}

// WriteDefault writes the embedded default config.yaml to the specified path.
func WriteDefault(path string, force bool) error {
	err := api.WriteDefaultFile(path, defaultConfigYAML, force, "configuration")
	if err != nil {
		return fmt.Errorf("write default config: %w", err)
	}

	return nil
}

// WriteSchema writes the embedded JSON schema to path, replacing any
// existing file.
func WriteSchema(path string) error {
	err := os.WriteFile(path, schemaJSON, 0o600)
	if err != nil {
		return fmt.Errorf("write schema: %w", err)
	}

	return nil
}

// GetPath returns the path to the user configuration file.
func GetPath() string {
	return api.GetConfigPath("config.yaml")
}
