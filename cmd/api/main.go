package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/99minutos/user-service/internal/api"
	"github.com/99minutos/user-service/internal/core/service"
	"github.com/99minutos/user-service/internal/infrastructure/config"
	"github.com/99minutos/user-service/internal/infrastructure/crypto"
	redisdb "github.com/99minutos/user-service/internal/infrastructure/db/redis"
	httpserver "github.com/99minutos/user-service/internal/infrastructure/http"
	"github.com/99minutos/user-service/internal/infrastructure/token"
	"github.com/99minutos/user-service/pkg/logger"
)

const serviceName = "user-service"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: serviceName,
	})

	st, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.close()

	codec, err := token.NewJWTCodec(token.Config{
		Secret:          []byte(cfg.Auth.SecretKey),
		Issuer:          cfg.Auth.Issuer,
		AccessLifespan:  cfg.Auth.AccessLifespan,
		RefreshLifespan: cfg.Auth.RefreshLifespan,
	})
	if err != nil {
		return err
	}

	var throttle service.LoginThrottle
	if cfg.Redis.Addr != "" {
		rdb, err := redisdb.Connect(ctx, redisdb.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		if err != nil {
			return err
		}
		defer rdb.Close()
		throttle = redisdb.NewLoginThrottle(rdb, cfg.Auth.MaxLoginAttempts, cfg.Auth.LoginWindow)
		st.readiness["redis"] = redisdb.Pinger{Client: rdb}
		log.Info().Int("max_attempts", cfg.Auth.MaxLoginAttempts).Dur("window", cfg.Auth.LoginWindow).Msg("login throttling enabled")
	}

	svc := service.NewAuthService(st.repo, crypto.NewBcryptHasher(cfg.Auth.BcryptCost), codec, throttle, log)

	e := api.NewRouter(api.Dependencies{
		AuthService: svc,
		Log:         log,
		Readiness:   st.readiness,
		Metrics:     cfg.MetricsEnabled,
	})

	return httpserver.Serve(ctx, e, ":"+cfg.Port, cfg.ShutdownTimeout, log)
}
