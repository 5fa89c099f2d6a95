// Package config loads runtime settings from the environment with sane
// defaults. Variables are prefixed VSALE_, e.g. VSALE_REDIS_ADDR.
package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	HTTPAddr string

	RedisAddr     string
	RedisPoolSize int

	MySQLDSN     string
	MySQLMaxOpen int
	MySQLMaxIdle int

	OrderStream    string
	OrderGroup     string
	OrderConsumer  string
	QueueReadBlock time.Duration

	CacheWorkers  int
	CacheQueueLen int

	ShopWarmTTL time.Duration
}

func Load() *Config {
	v := viper.New()
	v.SetEnvPrefix("VSALE")
	v.AutomaticEnv()

	v.SetDefault("http_addr", ":8080")
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_pool_size", 100)
	v.SetDefault("mysql_dsn", "root:root@tcp(localhost:3306)/vouchersale?parseTime=true")
	v.SetDefault("mysql_max_open", 50)
	v.SetDefault("mysql_max_idle", 25)
	v.SetDefault("order_stream", "stream.orders")
	v.SetDefault("order_group", "g1")
	v.SetDefault("order_consumer", "c1")
	v.SetDefault("queue_read_block", 2*time.Second)
	v.SetDefault("cache_workers", 10)
	v.SetDefault("cache_queue_len", 100)
	v.SetDefault("shop_warm_ttl", 30*time.Minute)

	return &Config{
		HTTPAddr:       v.GetString("http_addr"),
		RedisAddr:      v.GetString("redis_addr"),
		RedisPoolSize:  v.GetInt("redis_pool_size"),
		MySQLDSN:       v.GetString("mysql_dsn"),
		MySQLMaxOpen:   v.GetInt("mysql_max_open"),
		MySQLMaxIdle:   v.GetInt("mysql_max_idle"),
		OrderStream:    v.GetString("order_stream"),
		OrderGroup:     v.GetString("order_group"),
		OrderConsumer:  v.GetString("order_consumer"),
		QueueReadBlock: v.GetDuration("queue_read_block"),
		CacheWorkers:   v.GetInt("cache_workers"),
		CacheQueueLen:  v.GetInt("cache_queue_len"),
		ShopWarmTTL:    v.GetDuration("shop_warm_ttl"),
	}
}
