package config

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type (
	Config struct {
		App      `json:"app"      toml:"app"`
		HTTP     `json:"http"     toml:"http"`
		DB       `json:"db"       toml:"db"`
		Log      `json:"logger"   toml:"logger"`
		Upstream `json:"upstream" toml:"upstream"`
		Auth     `json:"auth"     toml:"auth"`
		Lookup   `json:"lookup"   toml:"lookup"`
	}

	App struct {
		Name        string `json:"name"        toml:"name"        env:"APP_NAME"`
		Environment string `json:"environment" toml:"environment" env:"ENV_NAME" env-default:"dev"`
		Debug       bool   `json:"debug"       toml:"debug"       env:"DEBUG"    env-default:"false"`
	}

	HTTP struct {
		Port string `json:"port" toml:"port" env:"HTTP_PORT"`
	}

	DB struct {
		DatabaseURL       string `json:"database_url"        toml:"database_url"        env:"DATABASE_URL"`
		PoolMax           int32  `json:"pool_max"            toml:"pool_max"            env:"PG_POOL_MAX" env-required:"true"`
		ConnectTimeout    int    `json:"connect_timeout"     toml:"connect_timeout"     env:"PG_POOL_CONN_TIMEOUT" env-default:"5"`
		HealthCheckPeriod int    `json:"health_check_period" toml:"health_check_period" env:"PG_POOL_HEALTHCHECK" env-default:"1"`
	}

	Log struct {
		Level slog.Level `json:"level" toml:"level" env:"LOG_LEVEL"`
	}

	// Upstream is the panel API the gateway fronts.
	Upstream struct {
		BaseURL      string        `json:"base_url"      toml:"base_url"      env:"PANEL_API_URL" env-required:"true"`
		Timeout      time.Duration `json:"timeout"       toml:"timeout"       env:"PANEL_API_TIMEOUT" env-default:"15s"`
		ServiceToken string        `json:"service_token" toml:"service_token" env:"PANEL_API_TOKEN" env-required:"true"`

		// Paths whose 401s are swallowed instead of ending the session.
		AuthErrorDenylist []string `json:"auth_error_denylist" toml:"auth_error_denylist" env:"PANEL_AUTH_DENYLIST" env-default:"/notifications,/session-monitor,/module-history/stats"`
	}

	Auth struct {
		JWTSecret string `json:"jwt_secret" toml:"jwt_secret" env:"JWT_SECRET" env-required:"true"`
	}

	// Lookup holds per-module query prices in centavos.
	Lookup struct {
		CPFPrice     int64 `json:"cpf_price"     toml:"cpf_price"     env:"LOOKUP_CPF_PRICE"     env-default:"500"`
		CNPJPrice    int64 `json:"cnpj_price"    toml:"cnpj_price"    env:"LOOKUP_CNPJ_PRICE"    env-default:"700"`
		VehiclePrice int64 `json:"vehicle_price" toml:"vehicle_price" env:"LOOKUP_VEHICLE_PRICE" env-default:"900"`
	}
)

func LoadConfig() (*Config, error) {
	cfg := &Config{}

	_, b, _, _ := runtime.Caller(0)
	basePath := filepath.Dir(b)

	configTomlPath := filepath.Join(basePath, "config.toml")
	err := cleanenv.ReadConfig(configTomlPath, cfg)
	if err != nil {
		configJsonPath := filepath.Join(basePath, "config.json")
		err = cleanenv.ReadConfig(configJsonPath, cfg)
		if err != nil {
			return nil, fmt.Errorf("config error: %w", err)
		}
	}

	err = cleanenv.ReadEnv(cfg)
	if err != nil {
		return nil, fmt.Errorf("env read error: %w", err)
	}

	return cfg, nil
}
