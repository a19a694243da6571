package remotequery

import (
	"flag"
	"strings"

	"github.com/friendsofgo/errors"
)

const (
	// DefaultChunkSize is the page size used when no Take was specified and
	// while streaming.
	DefaultChunkSize = 500

	// DefaultStreamThreshold is the number of consecutive under-filled pages
	// after which the pager abandons server filtering.
	DefaultStreamThreshold = 2
)

var (
	// DefaultColumns is the column set requested when the engine cannot
	// prove which properties the query reads.
	DefaultColumns = []string{"Id", "Name", "ParentId", "Type", "Status"}

	// DefaultKeyColumns are always requested.
	DefaultKeyColumns = []string{"Id"}
)

// Config holds engine configuration.
// Use NewConfig() to create a config with sensible defaults, then customize
// using the With* methods or load it from YAML.
//
// Example:
//
//	cfg := remotequery.NewConfig().WithChunkSize(1000).WithStreamThreshold(3)
type Config struct {
	// ChunkSize is the page size for unbounded and streaming requests.
	ChunkSize int `yaml:"chunk_size"`

	// StreamThreshold is the number of consecutive under-filled pages that
	// triggers the streaming fallback.
	StreamThreshold int `yaml:"stream_threshold"`

	// MaxRecordsExamined aborts an evaluation that would receive more records
	// than this. 0 disables the safeguard.
	MaxRecordsExamined int `yaml:"max_records_examined"`

	// DefaultColumns is requested when the needed columns cannot be proven.
	DefaultColumns []string `yaml:"default_columns"`

	// KeyColumns are added to every request.
	KeyColumns []string `yaml:"key_columns"`
}

// NewConfig creates a Config with sensible defaults:
// - ChunkSize: 500
// - StreamThreshold: 2
// - MaxRecordsExamined: unlimited
func NewConfig() *Config {
	return &Config{
		ChunkSize:       DefaultChunkSize,
		StreamThreshold: DefaultStreamThreshold,
		DefaultColumns:  append([]string(nil), DefaultColumns...),
		KeyColumns:      append([]string(nil), DefaultKeyColumns...),
	}
}

// WithChunkSize sets the chunk size and returns the config for chaining.
func (c *Config) WithChunkSize(size int) *Config {
	if size > 0 {
		c.ChunkSize = size
	}
	return c
}

// WithStreamThreshold sets the stream threshold and returns the config for chaining.
func (c *Config) WithStreamThreshold(n int) *Config {
	if n > 0 {
		c.StreamThreshold = n
	}
	return c
}

// WithMaxRecordsExamined sets the examined-records safeguard and returns the config for chaining.
func (c *Config) WithMaxRecordsExamined(n int) *Config {
	if n >= 0 {
		c.MaxRecordsExamined = n
	}
	return c
}

// WithDefaultColumns replaces the fallback column set.
func (c *Config) WithDefaultColumns(cols ...string) *Config {
	c.DefaultColumns = cols
	return c
}

// RegisterFlagsWithPrefix adds the flags required to config this to the given FlagSet.
func (c *Config) RegisterFlagsWithPrefix(prefix string, f *flag.FlagSet) {
	f.IntVar(&c.ChunkSize, prefix+"chunk-size", DefaultChunkSize, "Page size used for unbounded queries and while streaming.")
	f.IntVar(&c.StreamThreshold, prefix+"stream-threshold", DefaultStreamThreshold, "Consecutive under-filled pages before falling back to a streamed scan.")
	f.IntVar(&c.MaxRecordsExamined, prefix+"max-records-examined", 0, "Abort a query after examining this many records. 0 disables the limit.")
	f.Func(prefix+"default-columns", "Comma separated columns requested when the needed columns cannot be proven.", func(s string) error {
		c.DefaultColumns = splitColumns(s)
		return nil
	})
	f.Func(prefix+"key-columns", "Comma separated columns added to every request.", func(s string) error {
		c.KeyColumns = splitColumns(s)
		return nil
	})

	if c.DefaultColumns == nil {
		c.DefaultColumns = append([]string(nil), DefaultColumns...)
	}
	if c.KeyColumns == nil {
		c.KeyColumns = append([]string(nil), DefaultKeyColumns...)
	}
}

// Validate checks the config for values the engine cannot work with.
func (c *Config) Validate() error {
	if c.ChunkSize <= 0 {
		return errors.Errorf("chunk_size must be positive, got %d", c.ChunkSize)
	}
	if c.StreamThreshold <= 0 {
		return errors.Errorf("stream_threshold must be positive, got %d", c.StreamThreshold)
	}
	if c.MaxRecordsExamined < 0 {
		return errors.Errorf("max_records_examined must not be negative, got %d", c.MaxRecordsExamined)
	}
	if len(c.DefaultColumns) == 0 {
		return errors.New("default_columns must not be empty")
	}
	return nil
}

// EffectiveChunkSize returns the chunk size, falling back to the default
// for a nil or zero config.
func (c *Config) EffectiveChunkSize() int {
	if c == nil || c.ChunkSize <= 0 {
		return DefaultChunkSize
	}
	return c.ChunkSize
}

// EffectiveStreamThreshold returns the stream threshold, falling back to the
// default for a nil or zero config.
func (c *Config) EffectiveStreamThreshold() int {
	if c == nil || c.StreamThreshold <= 0 {
		return DefaultStreamThreshold
	}
	return c.StreamThreshold
}

func splitColumns(s string) []string {
	var cols []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			cols = append(cols, part)
		}
	}
	return cols
}
