// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	solbcrpc "github.com/rovshanmuradov/moonshot-bot/internal/blockchain/solbc/rpc"
	"github.com/rovshanmuradov/moonshot-bot/internal/blockchain/solbc/transaction"
	"github.com/rovshanmuradov/moonshot-bot/internal/dex/moonshot"
	"github.com/rovshanmuradov/moonshot-bot/internal/utils/logger"
)

// EnvPrefix - префикс переменных окружения, например MOONSHOT_BOT_PRIVATE_KEY
const EnvPrefix = "MOONSHOT_BOT"

type Config struct {
	RPCList    []string `mapstructure:"rpc_list"`
	PrivateKey string   `mapstructure:"private_key"`
	ProgramID  string   `mapstructure:"program_id"`

	UnitPrice   uint64 `mapstructure:"unit_price"`
	UnitBudget  uint32 `mapstructure:"unit_budget"`
	SlippageBps uint64 `mapstructure:"slippage_bps"`

	ConfirmRetries    uint    `mapstructure:"confirm_retries"`
	ConfirmIntervalMs int     `mapstructure:"confirm_interval_ms"`
	RPCRateLimit      float64 `mapstructure:"rpc_rate_limit"`

	DebugLogging bool   `mapstructure:"debug_logging"`
	LogFile      string `mapstructure:"log_file"`
	MetricsAddr  string `mapstructure:"metrics_addr"`

	// PostgresURL включает журнал сделок
	PostgresURL string `mapstructure:"postgres_url"`
}

const (
	DefaultConfirmRetries    = 20
	DefaultConfirmIntervalMs = 3000
	DefaultLogFile           = "moonshot.log"
)

// LoadConfig читает конфигурацию из файла path и окружения.
// Пустой path означает поиск config.{json,yaml} в текущей директории и в configs/;
// отсутствие файла в этом случае не ошибка. Переменные из .env подхватываются, если файл есть.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load() // .env необязателен

	v := viper.New()

	defaults := map[string]interface{}{
		"rpc_list":            []string{},
		"private_key":         "",
		"program_id":          "",
		"unit_price":          moonshot.DefaultUnitPrice,
		"unit_budget":         moonshot.DefaultUnitBudget,
		"slippage_bps":        moonshot.DefaultSlippageBps,
		"confirm_retries":     DefaultConfirmRetries,
		"confirm_interval_ms": DefaultConfirmIntervalMs,
		"rpc_rate_limit":      0,
		"debug_logging":       false,
		"log_file":            DefaultLogFile,
		"metrics_addr":        "",
		"postgres_url":        "",
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("configs")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	loadEnvironmentVariables(v, &cfg)

	return &cfg, validateConfig(&cfg)
}

func validateConfig(cfg *Config) error {
	if len(cfg.RPCList) == 0 {
		return errors.New("rpc_list is empty")
	}
	for _, rpcURL := range cfg.RPCList {
		if err := validateURLWithCache(rpcURL, "http"); err != nil {
			return fmt.Errorf("invalid RPC URL %q: %w", rpcURL, err)
		}
	}
	if cfg.ProgramID != "" {
		if _, err := solana.PublicKeyFromBase58(cfg.ProgramID); err != nil {
			return fmt.Errorf("invalid program_id: %w", err)
		}
	}
	if cfg.PostgresURL != "" {
		if err := validateURLWithCache(cfg.PostgresURL, "postgres"); err != nil {
			return fmt.Errorf("invalid postgres_url: %w", err)
		}
	}
	return validateNumericParams(cfg)
}

func validateNumericParams(cfg *Config) error {
	if cfg.UnitBudget == 0 {
		return errors.New("invalid unit_budget")
	}
	if cfg.SlippageBps > moonshot.MaxSlippageBps {
		return fmt.Errorf("slippage_bps must not exceed %d", moonshot.MaxSlippageBps)
	}
	if cfg.ConfirmRetries == 0 {
		return errors.New("invalid confirm_retries")
	}
	if cfg.ConfirmIntervalMs <= 0 {
		return errors.New("invalid confirm_interval_ms")
	}
	if cfg.RPCRateLimit < 0 {
		return errors.New("invalid rpc_rate_limit")
	}
	return nil
}

var urlCache sync.Map

func validateURLWithCache(rawURL string, protocol string) error {
	if _, ok := urlCache.Load(rawURL); ok {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) || parsed.Host == "" {
		return errors.New("invalid URL protocol")
	}
	urlCache.Store(rawURL, parsed)
	return nil
}

// RPC_LIST в окружении задаётся строкой через запятую
func loadEnvironmentVariables(v *viper.Viper, cfg *Config) {
	envRPCList := v.GetString("RPC_LIST")
	if envRPCList == "" {
		return
	}
	var cleanRPCs []string
	for _, rpc := range strings.Split(envRPCList, ",") {
		if clean := strings.TrimSpace(rpc); clean != "" {
			cleanRPCs = append(cleanRPCs, clean)
		}
	}
	if len(cleanRPCs) > 0 {
		cfg.RPCList = cleanRPCs
	}
}

// MoonshotConfig собирает конфигурацию DEX поверх адресов по умолчанию.
func (c *Config) MoonshotConfig() (*moonshot.Config, error) {
	mc := moonshot.GetDefaultConfig()
	if c.ProgramID != "" {
		programID, err := solana.PublicKeyFromBase58(c.ProgramID)
		if err != nil {
			return nil, fmt.Errorf("invalid program_id: %w", err)
		}
		mc.ProgramID = programID
	}
	mc.UnitPrice = c.UnitPrice
	mc.UnitBudget = c.UnitBudget
	mc.SlippageBps = c.SlippageBps
	return mc, mc.Validate()
}

// TransactionConfig returns send and confirmation settings.
func (c *Config) TransactionConfig() transaction.Config {
	tc := transaction.DefaultConfig()
	tc.ConfirmRetries = c.ConfirmRetries
	tc.ConfirmInterval = time.Duration(c.ConfirmIntervalMs) * time.Millisecond
	return tc
}

func (c *Config) RPCOptions() solbcrpc.Options {
	return solbcrpc.Options{RateLimit: c.RPCRateLimit}
}

func (c *Config) LoggerConfig() *logger.Config {
	lc := logger.DefaultConfig()
	lc.LogFile = c.LogFile
	lc.Development = c.DebugLogging
	return lc
}
