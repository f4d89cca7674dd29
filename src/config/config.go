// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package config

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/H0llyW00dzZ/netconf-tls-client/src/internal/helper/gc"
	"github.com/H0llyW00dzZ/netconf-tls-client/src/transport/nctls"
)

// EnvFile names the environment variable consulted when no path is given.
const EnvFile = "NETCONF_TLS_CONFIG_FILE"

const (
	defaultTimeout     = 30 * time.Second
	defaultAcceptRate  = 10
	defaultAcceptBurst = 5
)

var (
	// ErrInvalid indicates a configuration file that does not match the schema.
	ErrInvalid = errors.New("config: invalid configuration")

	// ErrUnsupportedFormat indicates a file extension with no known format.
	ErrUnsupportedFormat = errors.New("config: unsupported file format")
)

//go:embed schema.json
var schemaJSON string

// Format is a configuration file format.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
	FormatTOML
)

func (f Format) String() string {
	switch f {
	case FormatYAML:
		return "YAML"
	case FormatTOML:
		return "TOML"
	default:
		return "JSON"
	}
}

// Role holds the paths of one option set. Empty values are left unset.
type Role struct {
	Cert    string `json:"cert,omitempty" yaml:"cert,omitempty" toml:"cert,omitempty"`
	Key     string `json:"key,omitempty" yaml:"key,omitempty" toml:"key,omitempty"`
	CAFile  string `json:"caFile,omitempty" yaml:"caFile,omitempty" toml:"caFile,omitempty"`
	CADir   string `json:"caDir,omitempty" yaml:"caDir,omitempty" toml:"caDir,omitempty"`
	CRLFile string `json:"crlFile,omitempty" yaml:"crlFile,omitempty" toml:"crlFile,omitempty"`
	CRLDir  string `json:"crlDir,omitempty" yaml:"crlDir,omitempty" toml:"crlDir,omitempty"`
}

// IsZero reports whether no path is set.
func (r Role) IsZero() bool { return r == Role{} }

// Client holds defaults for outbound sessions.
type Client struct {
	Host           string   `json:"host,omitempty" yaml:"host,omitempty" toml:"host,omitempty"`
	Port           int      `json:"port,omitempty" yaml:"port,omitempty" toml:"port,omitempty"`
	TimeoutSeconds int      `json:"timeoutSeconds,omitempty" yaml:"timeoutSeconds,omitempty" toml:"timeoutSeconds,omitempty"`
	SchemaDir      string   `json:"schemaDir,omitempty" yaml:"schemaDir,omitempty" toml:"schemaDir,omitempty"`
	Capabilities   []string `json:"capabilities,omitempty" yaml:"capabilities,omitempty" toml:"capabilities,omitempty"`
	MaxHelloBytes  int      `json:"maxHelloBytes,omitempty" yaml:"maxHelloBytes,omitempty" toml:"maxHelloBytes,omitempty"`
}

// Timeout returns the establishment timeout.
func (c Client) Timeout() time.Duration { return time.Duration(c.TimeoutSeconds) * time.Second }

// CallHome holds the call-home listener settings.
type CallHome struct {
	Addresses   []string `json:"addresses,omitempty" yaml:"addresses,omitempty" toml:"addresses,omitempty"`
	AcceptRate  float64  `json:"acceptRate,omitempty" yaml:"acceptRate,omitempty" toml:"acceptRate,omitempty"`
	AcceptBurst int      `json:"acceptBurst,omitempty" yaml:"acceptBurst,omitempty" toml:"acceptBurst,omitempty"`
	MetricsAddr string   `json:"metricsAddr,omitempty" yaml:"metricsAddr,omitempty" toml:"metricsAddr,omitempty"`
	WatchCRL    bool     `json:"watchCRL,omitempty" yaml:"watchCRL,omitempty" toml:"watchCRL,omitempty"`
}

// Log holds the logger settings.
type Log struct {
	Level  string `json:"level,omitempty" yaml:"level,omitempty" toml:"level,omitempty"`
	Format string `json:"format,omitempty" yaml:"format,omitempty" toml:"format,omitempty"`
}

// Config is the client configuration.
type Config struct {
	Initiator Role     `json:"initiator" yaml:"initiator" toml:"initiator"`
	Responder Role     `json:"responder" yaml:"responder" toml:"responder"`
	Client    Client   `json:"client" yaml:"client" toml:"client"`
	CallHome  CallHome `json:"callhome" yaml:"callhome" toml:"callhome"`
	Log       Log      `json:"log" yaml:"log" toml:"log"`

	// Path is the file the configuration was read from, if any.
	Path string `json:"-" yaml:"-" toml:"-"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Client.TimeoutSeconds <= 0 {
		c.Client.TimeoutSeconds = int(defaultTimeout / time.Second)
	}
	if c.CallHome.AcceptRate <= 0 {
		c.CallHome.AcceptRate = defaultAcceptRate
	}
	if c.CallHome.AcceptBurst <= 0 {
		c.CallHome.AcceptBurst = defaultAcceptBurst
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// DetectFormat returns the format implied by the extension of path.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

func unmarshal(data []byte, v any, f Format) error {
	var err error
	switch f {
	case FormatYAML:
		err = yaml.Unmarshal(data, v)
	case FormatTOML:
		err = toml.Unmarshal(data, v)
	default:
		err = json.Unmarshal(data, v)
	}
	if err != nil {
		return fmt.Errorf("failed to parse %s config file: %w", f, err)
	}
	return nil
}

// Load reads the configuration at path, or at the file named by
// NETCONF_TLS_CONFIG_FILE when path is empty. With neither, it returns [Default].
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvFile)
	}
	if path == "" {
		return Default(), nil
	}

	f, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}

	data, err := gc.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.Path = path
	cfg.resolve(filepath.Dir(path))
	return cfg, nil
}

// ParseFile is Parse with the format taken from name's extension.
func ParseFile(name string, data []byte) (*Config, error) {
	f, err := DetectFormat(name)
	if err != nil {
		return nil, err
	}
	return Parse(data, f)
}

// Parse validates and decodes data. Relative paths are left as written.
func Parse(data []byte, f Format) (*Config, error) {
	var doc map[string]any
	if err := unmarshal(data, &doc, f); err != nil {
		return nil, err
	}
	if doc == nil {
		doc = map[string]any{}
	}
	if err := validate(doc); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := unmarshal(data, cfg, f); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

var compiledSchema = func() *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	if err != nil {
		panic(fmt.Sprintf("config: embedded schema: %v", err))
	}
	return s
}()

func validate(doc map[string]any) error {
	result, err := compiledSchema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
}

// resolve makes relative paths relative to dir.
func (c *Config) resolve(dir string) {
	for _, r := range []*Role{&c.Initiator, &c.Responder} {
		for _, p := range []*string{&r.Cert, &r.Key, &r.CAFile, &r.CADir, &r.CRLFile, &r.CRLDir} {
			*p = resolvePath(dir, *p)
		}
	}
	c.Client.SchemaDir = resolvePath(dir, c.Client.SchemaDir)
}

func resolvePath(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

// Apply sets the configured paths on the registry's option sets. Pairs
// that are entirely empty are skipped, leaving the current values in place.
func (c *Config) Apply(reg *nctls.Registry) error {
	for _, rc := range []struct {
		role Role
		opts *nctls.OptionSet
	}{
		{c.Initiator, reg.Initiator()},
		{c.Responder, reg.Responder()},
	} {
		if err := rc.role.apply(rc.opts); err != nil {
			return fmt.Errorf("config: %s: %w", rc.opts.Role(), err)
		}
	}
	return nil
}

func (r Role) apply(opts *nctls.OptionSet) error {
	if r.Cert != "" || r.Key != "" {
		if err := opts.SetCertKeyPaths(r.Cert, r.Key); err != nil {
			return err
		}
	}
	if r.CAFile != "" || r.CADir != "" {
		if err := opts.SetTrustedCAPaths(r.CAFile, r.CADir); err != nil {
			return err
		}
	}
	if r.CRLFile != "" || r.CRLDir != "" {
		if err := opts.SetCRLPaths(r.CRLFile, r.CRLDir); err != nil {
			return err
		}
	}
	return nil
}
