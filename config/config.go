package config

import (
	"bookload/logging"
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	EnvPrefix = "DB_TP"
	EnvFile   = ".env"

	DefaultInputFile    = "Amazon_BooksDataset.csv"
	DefaultDatabaseFile = "amazon_books.db"
)

type Config struct {
	InputFile    string `mapstructure:"file_name"`
	DatabaseFile string `mapstructure:"database_name"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
	Tracing   bool   `mapstructure:"tracing"`

	// BatchSize is the number of records committed together. 0 commits every write on its own.
	BatchSize       int  `mapstructure:"batch_size"`
	ContinueOnError bool `mapstructure:"continue_on_error"`

	ThousandsSeparator string `mapstructure:"thousands_separator"`
	Delimiter          string `mapstructure:"delimiter"`
}

var defaults = map[string]any{
	"file_name":           DefaultInputFile,
	"database_name":       DefaultDatabaseFile,
	"log_level":           logging.LevelInfo,
	"log_format":          "text",
	"tracing":             false,
	"batch_size":          0,
	"continue_on_error":   false,
	"thousands_separator": ",",
	"delimiter":           ",",
}

// Load builds the configuration from defaults, an optional .env file in the working directory,
// DB_TP_* environment variables and finally any flag in flags whose name matches a key
// (dashes standing in for underscores) and was set on the command line.
func Load(flags *pflag.FlagSet) (*Config, error) {
	return load(EnvFile, flags)
}

func load(envFile string, flags *pflag.FlagSet) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading %s: %w", envFile, err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if flags != nil {
		var bindErr error
		flags.VisitAll(func(f *pflag.Flag) {
			key := strings.ReplaceAll(f.Name, "-", "_")
			if _, known := defaults[key]; !known {
				return
			}
			if err := v.BindPFlag(key, f); err != nil {
				bindErr = errors.Join(bindErr, err)
			}
		})
		if bindErr != nil {
			return nil, bindErr
		}
	}

	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           cfg,
	})
	if err != nil {
		return nil, err
	}

	if err := decoder.Decode(v.AllSettings()); err != nil {
		return nil, fmt.Errorf("decoding configuration: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if !logging.ValidLevel(c.LogLevel) {
		c.LogLevel = logging.LevelInfo
	}

	if c.BatchSize < 0 {
		return fmt.Errorf("batch size must not be negative, got %d", c.BatchSize)
	}

	if utf8.RuneCountInString(c.ThousandsSeparator) != 1 {
		return fmt.Errorf("thousands separator must be a single character, got %q", c.ThousandsSeparator)
	}

	if utf8.RuneCountInString(c.Delimiter) != 1 {
		return fmt.Errorf("delimiter must be a single character, got %q", c.Delimiter)
	}

	switch c.DelimiterRune() {
	case '\r', '\n', '"', utf8.RuneError:
		return fmt.Errorf("%q cannot be used as a delimiter", c.Delimiter)
	}

	return nil
}

func (c *Config) SeparatorRune() rune {
	r, _ := utf8.DecodeRuneInString(c.ThousandsSeparator)
	return r
}

func (c *Config) DelimiterRune() rune {
	r, _ := utf8.DecodeRuneInString(c.Delimiter)
	return r
}
