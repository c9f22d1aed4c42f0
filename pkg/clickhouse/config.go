package clickhouse

import (
	"errors"
	"fmt"
	"time"

	"github.com/creasty/defaults"
)

// ClientOption configures Client.
type ClientOption func(*ClientConfig)

// ClientConfig describes one ClickHouse endpoint and its pool. Zero fields take
// the default tag.
type ClientConfig struct {
	Host            string
	Port            int           `default:"9000"`
	Database        string        `default:"fincast"`
	User            string        `default:"default"`
	Password        string
	MaxOpenConns    int           `default:"10"`
	MaxIdleConns    int           `default:"5"`
	ConnMaxLifetime time.Duration `default:"5m"`
	DialTimeout     time.Duration `default:"5s"`
	ReadTimeout     time.Duration `default:"30s"`
	WriteTimeout    time.Duration `default:"30s"`
	UseHTTP         bool
	AsyncInsert     bool
	WaitForAsync    bool
	MaxExecTime     time.Duration
}

func newClientConfig(opts ...ClientOption) (*ClientConfig, error) {
	cfg := &ClientConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("clickhouse defaults: %w", err)
	}
	if cfg.Host == "" {
		return nil, errors.New("clickhouse: host is required")
	}
	return cfg, nil
}

func WithHost(host string) ClientOption {
	return func(c *ClientConfig) { c.Host = host }
}

func WithPort(port int) ClientOption {
	return func(c *ClientConfig) { c.Port = port }
}

func WithDatabase(database string) ClientOption {
	return func(c *ClientConfig) { c.Database = database }
}

func WithCredentials(user, password string) ClientOption {
	return func(c *ClientConfig) { c.User, c.Password = user, password }
}

// WithMaxConnections bounds the database/sql pool.
func WithMaxConnections(maxOpen, maxIdle int) ClientOption {
	return func(c *ClientConfig) { c.MaxOpenConns, c.MaxIdleConns = maxOpen, maxIdle }
}

// WithTimeouts sets dial, read and write timeouts. Zero keeps a default.
func WithTimeouts(dial, read, write time.Duration) ClientOption {
	return func(c *ClientConfig) {
		c.DialTimeout, c.ReadTimeout, c.WriteTimeout = dial, read, write
	}
}

// WithHTTP switches from the native protocol on 9000 to HTTP.
func WithHTTP(useHTTP bool) ClientOption {
	return func(c *ClientConfig) { c.UseHTTP = useHTTP }
}

// WithAsyncInsert lets the server buffer inserts. With wait set an insert
// returns only after the buffer is flushed.
func WithAsyncInsert(enabled, wait bool) ClientOption {
	return func(c *ClientConfig) { c.AsyncInsert, c.WaitForAsync = enabled, wait }
}

// WithMaxExecutionTime caps server side query time, in whole seconds.
func WithMaxExecutionTime(d time.Duration) ClientOption {
	return func(c *ClientConfig) { c.MaxExecTime = d }
}
