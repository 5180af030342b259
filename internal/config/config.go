package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/gregLibert/mifare-tools/pkg/mifare"
	"github.com/gregLibert/mifare-tools/pkg/reader"
)

const GeometryAuto = "auto"

type Config struct {
	Reader ReaderConfig `yaml:"reader"`
	Card   CardConfig   `yaml:"card"`
	Log    LogConfig    `yaml:"log"`
}

type ReaderConfig struct {
	Index *int   `yaml:"index"`
	Name  string `yaml:"name"`
}

type CardConfig struct {
	Geometry string `yaml:"geometry"`
	KeyA     string `yaml:"key_a"`
	KeyB     string `yaml:"key_b"`
	KeyFile  string `yaml:"key_file"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default is the configuration used when no file is given: first reader,
// layout from the ATR, transport key A.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func Load(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)

	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}
	cfg.applyDefaults()
	cfg.Card.KeyFile = resolvePath(filepath.Dir(path), cfg.Card.KeyFile)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Reader.Index == nil {
		zero := 0
		c.Reader.Index = &zero
	}
	if strings.TrimSpace(c.Card.Geometry) == "" {
		c.Card.Geometry = GeometryAuto
	}
	if strings.TrimSpace(c.Card.KeyA) == "" && strings.TrimSpace(c.Card.KeyFile) == "" {
		c.Card.KeyA = mifare.DefaultKey.String()
	}
	if strings.TrimSpace(c.Log.Level) == "" {
		c.Log.Level = "info"
	}
	if strings.TrimSpace(c.Log.Format) == "" {
		c.Log.Format = "text"
	}
}

func (c *Config) Validate() error {
	if c.Reader.Index != nil && *c.Reader.Index < 0 {
		return fmt.Errorf("config.reader.index must be >= 0")
	}
	if _, _, err := c.Geometry(); err != nil {
		return fmt.Errorf("config.card.geometry: %w", err)
	}
	if strings.TrimSpace(c.Card.KeyA) != "" && strings.TrimSpace(c.Card.KeyFile) != "" {
		return fmt.Errorf("config.card.key_a and config.card.key_file are mutually exclusive")
	}
	if strings.TrimSpace(c.Card.KeyFile) != "" {
		if err := validateReadableFile(c.Card.KeyFile, "config.card.key_file"); err != nil {
			return err
		}
	} else if _, err := mifare.ParseKey(c.Card.KeyA); err != nil {
		return fmt.Errorf("config.card.key_a: %w", err)
	}
	if strings.TrimSpace(c.Card.KeyB) != "" {
		if _, err := mifare.ParseKey(c.Card.KeyB); err != nil {
			return fmt.Errorf("config.card.key_b: %w", err)
		}
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("config.log.level: %w", err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("config.log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

// Selector returns the reader selection.
func (c *Config) Selector() reader.Selector {
	sel := reader.Selector{Name: strings.TrimSpace(c.Reader.Name)}
	if c.Reader.Index != nil {
		sel.Index = *c.Reader.Index
	}
	return sel
}

// Geometry returns the configured card layout. auto is true when the layout
// is to be taken from the ATR.
func (c *Config) Geometry() (g mifare.Geometry, auto bool, err error) {
	name := strings.ToLower(strings.TrimSpace(c.Card.Geometry))
	if name == "" || name == GeometryAuto {
		return mifare.Geometry{}, true, nil
	}
	g, err = mifare.GeometryByName(name)
	return g, false, err
}

// KeyA returns key A, read from key_file when set.
func (c *Config) KeyA() (mifare.Key, error) {
	if strings.TrimSpace(c.Card.KeyFile) == "" {
		return mifare.ParseKey(c.Card.KeyA)
	}
	content, err := os.ReadFile(c.Card.KeyFile)
	if err != nil {
		return mifare.Key{}, fmt.Errorf("read key file: %w", err)
	}
	key, err := mifare.ParseKey(string(content))
	if err != nil {
		return mifare.Key{}, fmt.Errorf("key file %s: %w", c.Card.KeyFile, err)
	}
	return key, nil
}

// KeyB returns key B; ok is false when none is configured.
func (c *Config) KeyB() (key mifare.Key, ok bool, err error) {
	if strings.TrimSpace(c.Card.KeyB) == "" {
		return mifare.Key{}, false, nil
	}
	key, err = mifare.ParseKey(c.Card.KeyB)
	return key, err == nil, err
}

// ConfigureLogger applies the level and format to log.
func (c *Config) ConfigureLogger(log *logrus.Logger) error {
	level, err := logrus.ParseLevel(c.Log.Level)
	if err != nil {
		return err
	}
	log.SetLevel(level)
	if c.Log.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return nil
}

func resolvePath(baseDir, path string) string {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" || filepath.IsAbs(trimmed) {
		return trimmed
	}
	return filepath.Clean(filepath.Join(baseDir, trimmed))
}

func validateReadableFile(path string, field string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s must point to a file, got directory", field)
	}
	return nil
}
