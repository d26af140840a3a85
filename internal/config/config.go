// Package config loads carlog settings: defaults, then a YAML file checked
// against an embedded CUE schema, then CARLOG_* environment overrides.
// Command-line flags are applied by the caller on top.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueyaml "cuelang.org/go/encoding/yaml"
	"gopkg.in/yaml.v3"

	"github.com/roach88/carlog/internal/ir"
	"github.com/roach88/carlog/internal/signing"
)

//go:embed schema.cue
var schemaSource string

// Environment variables read by Load.
const (
	EnvURL    = "CARLOG_URL"
	EnvDB     = "CARLOG_DB"
	EnvListen = "CARLOG_LISTEN"
	EnvKeyDir = "CARLOG_KEY_DIR"
)

// Config is the full carlog configuration.
type Config struct {
	Node   NodeConfig   `yaml:"node"`
	Client ClientConfig `yaml:"client"`
	Log    LogConfig    `yaml:"log"`
}

// NodeConfig configures `carlog serve`.
type NodeConfig struct {
	Listen        string `yaml:"listen"`
	Database      string `yaml:"database"`
	Family        string `yaml:"family"`
	QueueSize     int    `yaml:"queue_size"`
	LenientCreate bool   `yaml:"lenient_create"`
	MaxBodyBytes  int64  `yaml:"max_body_bytes"`
}

// ClientConfig configures the client commands.
type ClientConfig struct {
	URL     string   `yaml:"url"`
	KeyDir  string   `yaml:"key_dir"`
	KeyName string   `yaml:"key_name"`
	Timeout Duration `yaml:"timeout"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Duration is a time.Duration written as "10s" in YAML.
type Duration time.Duration

// UnmarshalYAML parses a Go duration string.
func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	var s string
	if err := n.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", n.Line, err)
	}
	*d = Duration(v)
	return nil
}

// MarshalYAML writes the duration string.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Node: NodeConfig{
			Listen:       "127.0.0.1:8008",
			Database:     "carlog.db",
			Family:       ir.FamilyName,
			QueueSize:    256,
			MaxBodyBytes: 10 << 20,
		},
		Client: ClientConfig{
			URL:     "http://127.0.0.1:8008",
			KeyDir:  signing.DefaultKeyDir(),
			KeyName: "default",
			Timeout: Duration(10 * time.Second),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// DefaultPath is the file Load reads when the caller names none and the
// file exists: ~/.carlog/config.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".carlog", "config.yaml")
}

// Load builds the configuration. An empty path means DefaultPath if it
// exists, otherwise defaults and environment only. A named file that does
// not exist is an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		if p := DefaultPath(); p != "" {
			if _, err := os.Stat(p); err == nil {
				path = p
			}
		}
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := Parse(path, data, &cfg); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg, os.LookupEnv)
	return cfg, nil
}

// Parse validates data against the schema and merges it into cfg. Fields
// absent from data keep their current values.
func Parse(filename string, data []byte, cfg *Config) error {
	if err := Validate(filename, data); err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("decode config %s: %w", filename, err)
	}
	return nil
}

// Validate checks a YAML document against the embedded schema.
func Validate(filename string, data []byte) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	file, err := cueyaml.Extract(filename, data)
	if err != nil {
		return &Error{Field: "yaml", Message: err.Error()}
	}
	doc := ctx.BuildFile(file)
	if err := doc.Err(); err != nil {
		return fromCUE(err)
	}

	if err := def.Unify(doc).Validate(cue.Concrete(true)); err != nil {
		return fromCUE(err)
	}
	return nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvURL); ok && v != "" {
		cfg.Client.URL = v
	}
	if v, ok := lookup(EnvDB); ok && v != "" {
		cfg.Node.Database = v
	}
	if v, ok := lookup(EnvListen); ok && v != "" {
		cfg.Node.Listen = v
	}
	if v, ok := lookup(EnvKeyDir); ok && v != "" {
		cfg.Client.KeyDir = v
	}
}

// Check validates values set after Load, such as flag overrides.
func (c Config) Check() error {
	var errs []error
	if c.Node.QueueSize <= 0 {
		errs = append(errs, &Error{Field: "node.queue_size", Message: "must be positive, got " + strconv.Itoa(c.Node.QueueSize)})
	}
	if c.Node.Family == "" {
		errs = append(errs, &Error{Field: "node.family", Message: "is required"})
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, &Error{Field: "log.level", Message: fmt.Sprintf("unknown level %q", c.Log.Level)})
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, &Error{Field: "log.format", Message: fmt.Sprintf("unknown format %q", c.Log.Format)})
	}
	return errors.Join(errs...)
}
