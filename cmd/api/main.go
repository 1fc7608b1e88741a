package main

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"io/fs"
	"os"
	"runtime"
	"strconv"
	"time"

	"bitewise/internal/auth"
	"bitewise/internal/db"
	"bitewise/internal/domain/storage"
	"bitewise/internal/notifications"
	"bitewise/internal/ratelimiter"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoadRateLimiterConfig retrieves rate limiter settings from environment variables
func LoadRateLimiterConfig() ratelimiter.Config {
	defaultRequests := 200
	defaultEnabled := false

	requestsPerTimeFrame := defaultRequests
	if val, exists := os.LookupEnv("RATELIMITER_REQUESTS_COUNT"); exists {
		if parsedVal, err := strconv.Atoi(val); err == nil {
			requestsPerTimeFrame = parsedVal
		} else {
			fmt.Println("Invalid RATELIMITER_REQUESTS_COUNT, defaulting to", defaultRequests)
		}
	}

	enabled := defaultEnabled
	if val, exists := os.LookupEnv("RATE_LIMITER_ENABLED"); exists {
		if parsedVal, err := strconv.ParseBool(val); err == nil {
			enabled = parsedVal
		} else {
			fmt.Println("Invalid RATE_LIMITER_ENABLED, defaulting to", defaultEnabled)
		}
	}

	return ratelimiter.Config{
		RequestsPerTimeFrame: requestsPerTimeFrame,
		TimeFrame:            5 * time.Second,
		Enabled:              enabled,
	}
}

// NewLogger creates a console zap logger with colored levels.
func NewLogger() *zap.SugaredLogger {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg), zapcore.AddSync(os.Stdout), zapcore.InfoLevel)

	return zap.New(core).Sugar()
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return fallback
}

var version = "0.3.0"

//	@title			Bitewise Review API
//	@description	Restaurant reviews and the feed of followed reviewers.

//	@BasePath					/v1
//	@securityDefinitions.apikey	ApiKeyAuth
//	@in							header
//	@name						Authorization

func main() {
	logger := NewLogger()
	defer logger.Sync()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Fatalw("error loading .env file", "error", err)
	}

	maxOpenConns, err := strconv.Atoi(getEnv("DB_MAX_OPEN_CONNS", "30"))
	if err != nil {
		logger.Fatalw("invalid value for DB_MAX_OPEN_CONNS", "error", err)
	}

	cfg := config{
		addr: getEnv("ADDR", ":8080"),
		env:  getEnv("ENV", "development"),
		db: dbConfig{
			addr:         os.Getenv("DB_ADDR"),
			maxOpenConns: maxOpenConns,
			maxIdleTime:  getEnv("DB_MAX_IDLE_TIME", "15m"),
		},
		auth: authConfig{
			token: tokenConfig{
				secret:        getEnv("AUTH_TOKEN_SECRET", "example"),
				refreshSecret: getEnv("AUTH_TOKEN_REFRESH_SECRET", "example-refresh"),
				iss:           "bitewise",
			},
		},
		expo: expoConfig{
			accessToken: os.Getenv("EXPO_ACCESS_TOKEN"),
		},
		rateLimiter: LoadRateLimiterConfig(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var store *storage.Container
	if cfg.db.addr == "" {
		logger.Warn("DB_ADDR is not set, reviews are kept in memory")
		store = storage.NewMemoryContainer()
	} else {
		pool, err := db.New(cfg.db.addr, int32(cfg.db.maxOpenConns), cfg.db.maxIdleTime)
		if err != nil {
			logger.Fatal(err)
		}
		defer pool.Close()
		logger.Info("database connection pool established")

		if err := db.Migrate(ctx, pool); err != nil {
			logger.Fatal(err)
		}

		store = storage.NewContainer(pool)

		expvar.Publish("database", expvar.Func(func() any {
			s := pool.Stat()
			return map[string]int32{
				"total":    s.TotalConns(),
				"idle":     s.IdleConns(),
				"acquired": s.AcquiredConns(),
			}
		}))
	}

	var push notifications.PushSender = notifications.NopSender{}
	if cfg.expo.accessToken != "" {
		push = notifications.NewExpoSender(cfg.expo.accessToken)
	} else {
		logger.Warn("EXPO_ACCESS_TOKEN is not set, push notifications are disabled")
	}

	rateLimiter := ratelimiter.NewFixedWindowLimiter(
		ctx,
		cfg.rateLimiter.RequestsPerTimeFrame,
		cfg.rateLimiter.TimeFrame,
	)

	jwtAuthenticator := auth.NewJWTAuthenticator(
		cfg.auth.token.secret,
		cfg.auth.token.refreshSecret,
		cfg.auth.token.iss,
		cfg.auth.token.iss,
	)

	app := &application{
		config:        cfg,
		logger:        logger,
		store:         store,
		authenticator: jwtAuthenticator,
		push:          push,
		rateLimiter:   rateLimiter,
	}

	//Metrics collected http://localhost:8080/v1/debug/vars
	expvar.NewString("version").Set(version)
	expvar.Publish("goroutines", expvar.Func(func() any {
		return runtime.NumGoroutine()
	}))

	mux := app.mount()

	logger.Fatal(app.run(mux))
}
