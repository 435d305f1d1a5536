package config

import (
	"context"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/hashicorp/vault-client-go"
	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var config = viper.New()

type Config struct {
	Platform struct {
		Name     string `mapstructure:"NAME"`
		Timezone string `mapstructure:"TIMEZONE"`
	} `mapstructure:"PLATFORM"`
	AppEnv     string `mapstructure:"APP_ENV"`
	AppName    string `mapstructure:"APP_NAME"`
	AppVersion string `mapstructure:"APP_VERSION"`
	NodeID     int64  `mapstructure:"NODE_ID"`
	LogLevel   string `mapstructure:"LOG_LEVEL"`
	TLS        struct {
		Enable   bool   `mapstructure:"ENABLE"`
		CertPath string `mapstructure:"CERT_PATH"`
		KeyPath  string `mapstructure:"KEY_PATH"`
	} `mapstructure:"TLS"`
	Pyroscope struct {
		Addr string `mapstructure:"ADDR"`
	} `mapstructure:"PYROSCOPE"`
	Otel struct {
		Endpoint string `mapstructure:"ENDPOINT"`
		Protocol string `mapstructure:"PROTOCOL"`
		Insecure bool   `mapstructure:"INSECURE"`
	} `mapstructure:"OTEL"`
	Server struct {
		Addr         string        `mapstructure:"ADDR"`
		ReadTimeout  time.Duration `mapstructure:"READ_TIMEOUT"`
		WriteTimeout time.Duration `mapstructure:"WRITE_TIMEOUT"`
		IdleTimeout  time.Duration `mapstructure:"IDLE_TIMEOUT"`
	} `mapstructure:"HTTP_SERVER"`
	Database struct {
		Type           string `mapstructure:"TYPE"`
		Host           string `mapstructure:"HOST"`
		Port           string `mapstructure:"PORT"`
		DBNAME         string `mapstructure:"DBNAME"`
		User           string `mapstructure:"USER"`
		Password       string `mapstructure:"PASSWORD"`
		SSLMode        string `mapstructure:"SSLMODE"`
		Timezone       string `mapstructure:"TIMEZONE"`
		Metrics        bool   `mapstructure:"METRICS"`
		Tracing        bool   `mapstructure:"TRACING"`
		ConnectionPool struct {
			MaxIdleConn     int           `mapstructure:"MAX_IDLE_CONN"`
			MaxOpenConns    int           `mapstructure:"MAX_OPEN_CONNS"`
			ConnMaxLifetime time.Duration `mapstructure:"CONN_MAX_LIFETIME"`
			ConnMaxIdleTime time.Duration `mapstructure:"CONN_MAX_IDLE_TIME"`
		} `mapstructure:"CONNECTION_POOL"`
	} `mapstructure:"DATABASE"`
	Redis struct {
		Addr        string        `mapstructure:"ADDR"`
		Password    string        `mapstructure:"PASSWORD"`
		DB          int           `mapstructure:"DB"`
		PoolSize    int           `mapstructure:"POOL_SIZE"`
		PoolTimeout time.Duration `mapstructure:"POOL_TIMEOUT"`
	} `mapstructure:"REDIS"`
	Flagsmith struct {
		Addr   string `mapstructure:"ADDR"`
		ApiKey string `mapstructure:"API_KEY"`
	} `mapstructure:"FLAGSMITH"`
	Vault struct {
		Enable bool   `mapstructure:"ENABLE"`
		Path   string `mapstructure:"PATH"`
	} `mapstructure:"VAULT"`
	Chain struct {
		RPCURL          string        `mapstructure:"RPC_URL"`
		ChainID         int64         `mapstructure:"CHAIN_ID"`
		PrivateKey      string        `mapstructure:"PRIVATE_KEY"`
		EscrowAddress   string        `mapstructure:"ESCROW_ADDRESS"`
		JobsAddress     string        `mapstructure:"JOBS_ADDRESS"`
		BadgeAddress    string        `mapstructure:"BADGE_ADDRESS"`
		VerifierAddress string        `mapstructure:"VERIFIER_ADDRESS"`
		CallTimeout     time.Duration `mapstructure:"CALL_TIMEOUT"`
	} `mapstructure:"CHAIN"`
	Prover struct {
		URL        string        `mapstructure:"URL"`
		Timeout    time.Duration `mapstructure:"TIMEOUT"`
		MaxRetries uint64        `mapstructure:"MAX_RETRIES"`
	} `mapstructure:"PROVER"`
	Points struct {
		DailyCap   int64   `mapstructure:"DAILY_CAP"`
		Multiplier float64 `mapstructure:"MULTIPLIER"`
	} `mapstructure:"POINTS"`
	Trust struct {
		OverlayExpr string `mapstructure:"OVERLAY_EXPR"`
	} `mapstructure:"TRUST"`
	Jobs struct {
		CreateCost      int64 `mapstructure:"CREATE_COST"`
		ApplyCost       int64 `mapstructure:"APPLY_COST"`
		CompletionDelta int64 `mapstructure:"COMPLETION_DELTA"`
	} `mapstructure:"JOBS"`
}

var Module = fx.Module("config", fx.Provide(LoadConfig))

type Params struct {
	fx.In
	Vault *vault.Client `optional:"true"`
}

func LoadConfig(p Params) *Config {

	config.SetConfigName("config")
	config.SetConfigType("yaml")
	config.AddConfigPath(".")

	config.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	config.AutomaticEnv()
	setDefaults(config)

	if err := config.ReadInConfig(); err != nil {
		zap.L().Warn("config file not found, falling back to environment", zap.Error(err))
	}

	var cfg Config
	if err := config.Unmarshal(&cfg); err != nil {
		zap.L().Error("failed to unmarshal config", zap.Error(err))
		os.Exit(1)
	}

	if p.Vault != nil && cfg.Vault.Enable {
		if err := overlaySecrets(context.Background(), p.Vault, &cfg); err != nil {
			zap.L().Error("failed get secret from vault", zap.Error(err))
			os.Exit(1)
		}
	}

	return &cfg
}

// Default returns a Config populated with the built-in defaults only.
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_NAME", "trustmarket")
	v.SetDefault("NODE_ID", 1)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("PLATFORM.TIMEZONE", "UTC")
	v.SetDefault("HTTP_SERVER.ADDR", "8080")
	v.SetDefault("HTTP_SERVER.READ_TIMEOUT", 15*time.Second)
	v.SetDefault("HTTP_SERVER.WRITE_TIMEOUT", 15*time.Second)
	v.SetDefault("HTTP_SERVER.IDLE_TIMEOUT", 60*time.Second)
	v.SetDefault("DATABASE.TYPE", "postgres")
	v.SetDefault("DATABASE.SSLMODE", "disable")
	v.SetDefault("DATABASE.TIMEZONE", "UTC")
	v.SetDefault("REDIS.ADDR", "127.0.0.1:6379")
	v.SetDefault("REDIS.POOL_SIZE", 10)
	v.SetDefault("REDIS.POOL_TIMEOUT", 5*time.Second)
	v.SetDefault("VAULT.PATH", "trustmarket")
	v.SetDefault("OTEL.PROTOCOL", "http")
	v.SetDefault("CHAIN.CALL_TIMEOUT", 30*time.Second)
	v.SetDefault("PROVER.TIMEOUT", 60*time.Second)
	v.SetDefault("PROVER.MAX_RETRIES", 3)
	v.SetDefault("POINTS.DAILY_CAP", 50)
	v.SetDefault("POINTS.MULTIPLIER", 1.0)
	v.SetDefault("JOBS.CREATE_COST", 50)
	v.SetDefault("JOBS.APPLY_COST", 20)
	v.SetDefault("JOBS.COMPLETION_DELTA", 100)
}

func overlaySecrets(ctx context.Context, client *vault.Client, cfg *Config) error {
	zap.L().Info("Starting Get Secrets", zap.String("path", cfg.Vault.Path))
	secret, err := client.Secrets.KvV2Read(ctx, cfg.Vault.Path, vault.WithMountPath("secret"))
	if err != nil {
		return err
	}
	zap.L().Info("Success Get Secret")

	get := func(key string) string {
		if val, ok := secret.Data.Data[key].(string); ok {
			return val
		}
		return ""
	}

	if v := get("postgres_password"); v != "" {
		cfg.Database.Password = v
	}
	if v := get("redis_password"); v != "" {
		cfg.Redis.Password = v
	}
	if v := get("chain_private_key"); v != "" {
		cfg.Chain.PrivateKey = v
	}
	if v := get("flagsmith_api_key"); v != "" {
		cfg.Flagsmith.ApiKey = v
	}

	return nil
}

// Location resolves the platform timezone used for calendar-day boundaries.
func (c *Config) Location() *time.Location {
	if c == nil || c.Platform.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Platform.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
