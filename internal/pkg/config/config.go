package config

import (
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	RedisAddr   string `env:"REDIS_ADDR,required"`
	PostgresURL string `env:"POSTGRES_URL,required"`

	IPFSAPIURL    string        `env:"IPFS_API_URL,required"`
	IPFSAPIKey    string        `env:"IPFS_API_KEY,required"`
	IPFSAPISecret string        `env:"IPFS_API_SECRET,required"`
	IPFSTimeout   time.Duration `env:"IPFS_TIMEOUT" envDefault:"30s"`
	IPFSRateLimit float64       `env:"IPFS_RATE_LIMIT" envDefault:"10"`

	LedgerRPCURL          string `env:"LEDGER_RPC_URL"`
	LedgerContractAddress string `env:"LEDGER_CONTRACT_ADDRESS"`

	// QueryStrategy selects the pointer provider for history queries:
	// "index" scans the relational CID index, "ledger" replays anchor events.
	QueryStrategy string `env:"QUERY_STRATEGY" envDefault:"index"`

	// BatchWindow is "static" for the single currentBatch key, or a duration
	// for time-bucketed window keys.
	BatchWindow      string        `env:"BATCH_WINDOW" envDefault:"static"`
	SealInterval     time.Duration `env:"SEAL_INTERVAL" envDefault:"1m"`
	SealMaxRetries   int           `env:"SEAL_MAX_RETRIES" envDefault:"3"`
	SealRetryBackoff time.Duration `env:"SEAL_RETRY_BACKOFF" envDefault:"1s"`
	GzipPayloads     bool          `env:"GZIP_PAYLOADS" envDefault:"false"`

	WALPath        string `env:"WAL_PATH" envDefault:"./wal"`
	WALSegmentSize int64  `env:"WAL_SEGMENT_SIZE_BYTES" envDefault:"104857600"`   // 100MB
	WALMaxDiskSize int64  `env:"WAL_MAX_DISK_SIZE_BYTES" envDefault:"1073741824"` // 1GB

	MaxEventSize     int64         `env:"MAX_EVENT_SIZE_BYTES" envDefault:"1048576"` // 1MB
	APIKeyCacheTTL   time.Duration `env:"API_KEY_CACHE_TTL" envDefault:"5m"`
	IngestServerAddr string        `env:"INGEST_SERVER_ADDR" envDefault:":8080"`
	APIServerAddr    string        `env:"API_SERVER_ADDR" envDefault:":8081"`
	MetricsAddr      string        `env:"METRICS_ADDR" envDefault:":9091"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	// Attempt to load .env file for local development.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
