package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	platformstrings "dustledger/pkg/platform/strings"
)

// Config captures every tunable of the ledger engine so main stays lean and
// embedding applications can construct it directly instead of from env.
type Config struct {
	Addr          string `env:"LEDGER_ADDR" envDefault:":8080"`
	JWTSigningKey string `env:"LEDGER_JWT_SIGNING_KEY" envDefault:"dev-secret-key-change-in-production"`

	// Economy policy.
	BurnRate         float64       `env:"LEDGER_BURN_RATE" envDefault:"0.01"`
	BurnReserveShare float64       `env:"LEDGER_BURN_RESERVE_SHARE" envDefault:"0.5"`
	StakeAPR         float64       `env:"LEDGER_STAKE_APR" envDefault:"0.05"`
	UnstakeFeeRate   float64       `env:"LEDGER_UNSTAKE_FEE_RATE" envDefault:"0.02"`
	MaxTransfer      float64       `env:"LEDGER_MAX_TRANSFER" envDefault:"1000000"`
	ProposalFee      float64       `env:"LEDGER_PROPOSAL_FEE" envDefault:"10"`
	ProposalDuration time.Duration `env:"LEDGER_PROPOSAL_DURATION" envDefault:"72h"`
	PassThreshold    float64       `env:"LEDGER_PASS_THRESHOLD" envDefault:"0.6"`
	BackingRatio     float64       `env:"LEDGER_BACKING_RATIO" envDefault:"100"`

	// Admission control.
	BurstLimit      int           `env:"LEDGER_BURST_LIMIT" envDefault:"10"`
	HourlyLimit     int           `env:"LEDGER_HOURLY_LIMIT" envDefault:"120"`
	BanThreshold    int           `env:"LEDGER_BAN_THRESHOLD" envDefault:"3"`
	BanDuration     time.Duration `env:"LEDGER_BAN_DURATION" envDefault:"1h"`
	MaxPayloadBytes int           `env:"LEDGER_MAX_PAYLOAD_BYTES" envDefault:"512"`
	MaxWager        float64       `env:"LEDGER_MAX_WAGER" envDefault:"1000"`
	AllowedCallers  []string      `env:"LEDGER_ALLOWED_CALLERS" envSeparator:"," envDefault:"chat,dashboard,scheduler"`

	// Observability.
	DormantAfter time.Duration `env:"LEDGER_DORMANT_AFTER" envDefault:"168h"`

	// Backing services. Empty values select the in-memory implementations.
	PostgresURL string `env:"LEDGER_POSTGRES_URL"`
	Redis       RedisConfig
	Kafka       KafkaConfig
}

// RedisConfig configures the optional Redis-backed rate limit windows.
type RedisConfig struct {
	URL          string        `env:"LEDGER_REDIS_URL"`
	PoolSize     int           `env:"LEDGER_REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"LEDGER_REDIS_MIN_IDLE" envDefault:"2"`
	DialTimeout  time.Duration `env:"LEDGER_REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"LEDGER_REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"LEDGER_REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

// KafkaConfig configures the optional Kafka audit publisher.
type KafkaConfig struct {
	Brokers []string `env:"LEDGER_KAFKA_BROKERS" envSeparator:","`
	Topic   string   `env:"LEDGER_KAFKA_AUDIT_TOPIC" envDefault:"ledger.audit"`
}

// FromEnv parses the environment into a Config.
func FromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.AllowedCallers = platformstrings.DedupeAndTrimLower(cfg.AllowedCallers)
	cfg.Kafka.Brokers = platformstrings.DedupeAndTrim(cfg.Kafka.Brokers)
	return cfg, cfg.Validate()
}

// Default returns the configuration used by tests and by embedders that do
// not care about env wiring.
func Default() Config {
	return Config{
		Addr:             ":8080",
		JWTSigningKey:    "dev-secret-key-change-in-production",
		BurnRate:         0.01,
		BurnReserveShare: 0.5,
		StakeAPR:         0.05,
		UnstakeFeeRate:   0.02,
		MaxTransfer:      1_000_000,
		ProposalFee:      10,
		ProposalDuration: 72 * time.Hour,
		PassThreshold:    0.6,
		BackingRatio:     100,
		BurstLimit:       10,
		HourlyLimit:      120,
		BanThreshold:     3,
		BanDuration:      time.Hour,
		MaxPayloadBytes:  512,
		MaxWager:         1000,
		AllowedCallers:   []string{"chat", "dashboard", "scheduler"},
		DormantAfter:     7 * 24 * time.Hour,
		Kafka:            KafkaConfig{Topic: "ledger.audit"},
	}
}

// Validate rejects configurations that would corrupt ledger accounting.
func (c Config) Validate() error {
	if c.BurnRate < 0 || c.BurnRate >= 1 {
		return fmt.Errorf("burn rate %v outside [0,1)", c.BurnRate)
	}
	if c.BurnReserveShare < 0 || c.BurnReserveShare > 1 {
		return fmt.Errorf("burn reserve share %v outside [0,1]", c.BurnReserveShare)
	}
	if c.UnstakeFeeRate < 0 || c.UnstakeFeeRate >= 1 {
		return fmt.Errorf("unstake fee rate %v outside [0,1)", c.UnstakeFeeRate)
	}
	if c.PassThreshold <= 0 || c.PassThreshold > 1 {
		return fmt.Errorf("pass threshold %v outside (0,1]", c.PassThreshold)
	}
	if c.BurstLimit <= 0 || c.HourlyLimit <= 0 {
		return fmt.Errorf("rate limits must be positive")
	}
	if c.BanThreshold <= 0 || c.BanDuration <= 0 {
		return fmt.Errorf("ban threshold and duration must be positive")
	}
	return nil
}
