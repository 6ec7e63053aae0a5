package config

import (
	"errors"
	"flag"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	handlerConfig "github.com/iurnickita/eventbilling/internal/handler/config"
	loggerConfig "github.com/iurnickita/eventbilling/internal/logger/config"
	serviceConfig "github.com/iurnickita/eventbilling/internal/service/config"
	storeConfig "github.com/iurnickita/eventbilling/internal/store/config"
)

type Config struct {
	Handler handlerConfig.Config
	Service serviceConfig.Config
	Store   storeConfig.Config
	Logger  loggerConfig.Config
}

// GetConfig собирает конфигурацию: значения по умолчанию, флаги, затем
// переменные окружения (в т.ч. из .env). Окружение важнее флагов.
func GetConfig() (Config, error) {
	return parse(flag.CommandLine, os.Args[1:], ".env")
}

func parse(fset *flag.FlagSet, args []string, envFile string) (Config, error) {
	// .env необязателен
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, err
	}

	var cfg Config

	fset.StringVar(&cfg.Handler.ServerAddr, "a", ":8080", "server address")
	fset.StringVar(&cfg.Store.DBDsn, "d", "", "database DSN")
	fset.IntVar(&cfg.Store.MaxOpenConns, "db-max-open-conns", 25, "database max open connections")
	fset.IntVar(&cfg.Store.MaxIdleConns, "db-max-idle-conns", 25, "database max idle connections")
	fset.StringVar(&cfg.Store.ConnMaxIdleTime, "db-max-idle-time", "15m", "database connection max idle time")
	fset.StringVar(&cfg.Service.RateServiceAddr, "r", "", "exchange rate service address")
	fset.StringVar(&cfg.Service.RateTimeout, "rate-timeout", "5s", "exchange rate request timeout")
	fset.StringVar(&cfg.Logger.LogLevel, "l", "info", "log level")
	if err := fset.Parse(args); err != nil {
		return Config{}, err
	}

	lookupString("RUN_ADDRESS", &cfg.Handler.ServerAddr)
	lookupString("DATABASE_URI", &cfg.Store.DBDsn)
	lookupInt("DB_MAX_OPEN_CONNS", &cfg.Store.MaxOpenConns)
	lookupInt("DB_MAX_IDLE_CONNS", &cfg.Store.MaxIdleConns)
	lookupString("DB_MAX_IDLE_TIME", &cfg.Store.ConnMaxIdleTime)
	lookupString("RATE_SERVICE_ADDRESS", &cfg.Service.RateServiceAddr)
	lookupString("RATE_TIMEOUT", &cfg.Service.RateTimeout)
	lookupString("LOG_LEVEL", &cfg.Logger.LogLevel)

	if cfg.Store.DBDsn == "" {
		return Config{}, errors.New("database DSN is not set")
	}

	return cfg, nil
}

func lookupString(key string, dst *string) {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		*dst = val
	}
}

func lookupInt(key string, dst *int) {
	val, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	if parsed, err := strconv.Atoi(val); err == nil {
		*dst = parsed
	}
}
