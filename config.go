package mailmerge

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config describes one merge job. It is read from YAML or TOML by
// [LoadConfig].
type Config struct {
	Template string      `yaml:"template" toml:"template"`
	Data     string      `yaml:"data" toml:"data"`
	Sheet    string      `yaml:"sheet" toml:"sheet"`
	Query    string      `yaml:"query" toml:"query"`
	Output   string      `yaml:"output" toml:"output"`
	Strategy Strategy    `yaml:"strategy" toml:"strategy"`
	Workers  int         `yaml:"workers" toml:"workers"`
	OnError  ErrorPolicy `yaml:"on_error" toml:"on_error"`
	Reserved []string    `yaml:"reserved" toml:"reserved"`
	Syntax   Syntax      `yaml:"syntax" toml:"syntax"`
	Document Document    `yaml:"document" toml:"document"`
	Report   Format      `yaml:"report" toml:"report"`
	LogLevel string      `yaml:"log_level" toml:"log_level"`
}

// Document configures the HTML page the documents are written into.
type Document struct {
	Title     string `yaml:"title" toml:"title"`
	Lang      string `yaml:"lang" toml:"lang"`
	Separator string `yaml:"separator" toml:"separator"`
}

// DefaultConfig returns the configuration used for fields a config file
// leaves out.
func DefaultConfig() *Config {
	return &Config{
		Output:   "mailing.html",
		Strategy: Segmented,
		Workers:  1,
		OnError:  Abort,
		Reserved: slices.Clone(DefaultReserved),
		Syntax:   DefaultSyntax,
		Document: Document{
			Title:     defaultTitle,
			Lang:      defaultLang,
			Separator: defaultSeparator,
		},
		Report:   Table,
		LogLevel: "info",
	}
}

// LoadConfig reads the file at path over [DefaultConfig]. The format is
// chosen by extension: .yaml, .yml or .toml.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := DefaultConfig()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	default:
		return nil, fmt.Errorf("%w: unknown config extension %q", ErrInvalidConfig, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the enumerated fields and the worker count. Paths are
// not checked.
func (c *Config) Validate() error {
	var errs []error
	if _, err := ParseStrategy(string(c.Strategy)); err != nil {
		errs = append(errs, err)
	}
	if _, err := ParseErrorPolicy(string(c.OnError)); err != nil {
		errs = append(errs, err)
	}
	if _, err := ParseFormat(string(c.Report)); err != nil {
		errs = append(errs, err)
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1, got %d", c.Workers))
	}
	if c.Syntax.Open == "" || c.Syntax.Close == "" {
		errs = append(errs, fmt.Errorf("%w: open and close markers must be non-empty", ErrInvalidSyntax))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Scanner returns a scanner for the configured syntax.
func (c *Config) Scanner() (*Scanner, error) {
	return NewScanner(c.Syntax)
}

// SourceOptions returns the options for opening the configured data.
func (c *Config) SourceOptions() []SourceOption {
	opts := []SourceOption{WithReserved(c.Reserved...)}
	if c.Sheet != "" {
		opts = append(opts, WithSheet(c.Sheet))
	}
	return opts
}

// DocumentOptions returns the options for the output sink.
func (c *Config) DocumentOptions() []DocumentOption {
	return []DocumentOption{
		WithTitle(c.Document.Title),
		WithLang(c.Document.Lang),
		WithSeparator(c.Document.Separator),
	}
}

// MergeOptions returns the options for a [Merger].
func (c *Config) MergeOptions() []Option {
	return []Option{
		WithStrategy(c.Strategy),
		WithErrorPolicy(c.OnError),
		WithWorkers(c.Workers),
	}
}
