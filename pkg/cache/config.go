package cache

import "time"

// RedisOption configures RedisCache.
type RedisOption func(*RedisConfig)

// RedisConfig holds the Redis connection. Zero fields take the default tag.
type RedisConfig struct {
	Host         string        `default:"localhost"`
	Port         int           `default:"6379"`
	Password     string
	DB           int
	PoolSize     int           `default:"10"`
	MinIdleConns int
	PoolTimeout  time.Duration `default:"30s"`
	DialTimeout  time.Duration `default:"5s"`
	Prefix       string        `default:"fincast"`
}

func WithRedisAddr(host string, port int) RedisOption {
	return func(c *RedisConfig) { c.Host, c.Port = host, port }
}

// WithRedisAuth sets the password and logical database.
func WithRedisAuth(password string, db int) RedisOption {
	return func(c *RedisConfig) { c.Password, c.DB = password, db }
}

// WithRedisPool sizes the pool. minIdle defaults to half the pool.
func WithRedisPool(size, minIdle int, timeout time.Duration) RedisOption {
	return func(c *RedisConfig) {
		c.PoolSize, c.MinIdleConns, c.PoolTimeout = size, minIdle, timeout
	}
}

// WithRedisPrefix namespaces every key as prefix:key.
func WithRedisPrefix(prefix string) RedisOption {
	return func(c *RedisConfig) { c.Prefix = prefix }
}

// MemoryOption configures MemoryCache.
type MemoryOption func(*MemoryConfig)

type MemoryConfig struct {
	MaxSize         int           `default:"1000"`
	DefaultTTL      time.Duration `default:"5m"`
	CleanupInterval time.Duration `default:"1m"`
}

// WithMemoryMaxSize bounds the entry count; the least recently read entry goes first.
func WithMemoryMaxSize(size int) MemoryOption {
	return func(c *MemoryConfig) { c.MaxSize = size }
}

// WithMemoryTTL sets the expiration used when Set gets a non-positive one.
func WithMemoryTTL(ttl time.Duration) MemoryOption {
	return func(c *MemoryConfig) { c.DefaultTTL = ttl }
}

func WithMemoryCleanup(interval time.Duration) MemoryOption {
	return func(c *MemoryConfig) { c.CleanupInterval = interval }
}

// LayeredOption configures LayeredCache.
type LayeredOption func(*LayeredConfig)

type LayeredConfig struct {
	MemoryMaxSize int           `default:"1000"`
	MemoryTTL     time.Duration `default:"5m"`
}

// WithLayeredMemory sets L1 size and the longest time an entry stays in L1.
func WithLayeredMemory(size int, ttl time.Duration) LayeredOption {
	return func(c *LayeredConfig) { c.MemoryMaxSize, c.MemoryTTL = size, ttl }
}
