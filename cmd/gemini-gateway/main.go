package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/poly-workshop/gemini-gateway/internal/application/gateway"
	"github.com/poly-workshop/gemini-gateway/internal/domain/generation"
	"github.com/poly-workshop/gemini-gateway/internal/infrastructure/auth"
	"github.com/poly-workshop/gemini-gateway/internal/infrastructure/config"
	"github.com/poly-workshop/gemini-gateway/internal/infrastructure/health"
	"github.com/poly-workshop/gemini-gateway/internal/infrastructure/llmprovider/gemini"
	"github.com/poly-workshop/gemini-gateway/internal/infrastructure/llmprovider/geminisdk"
	"github.com/poly-workshop/gemini-gateway/internal/infrastructure/metrics"
	"github.com/poly-workshop/gemini-gateway/internal/infrastructure/server/grpcserver"
	"github.com/poly-workshop/gemini-gateway/internal/infrastructure/server/httpapi"
	"github.com/poly-workshop/gemini-gateway/internal/infrastructure/staging"
	"github.com/poly-workshop/gemini-gateway/internal/infrastructure/usagecallback"
	"github.com/poly-workshop/go-webmods/app"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		slog.Warn("load .env failed", "error", err)
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs"
	}
	app.InitWithConfigPath("gemini-gateway", configPath)

	cfg, err := config.LoadApp()
	if err != nil {
		slog.Error("load config failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider, closeProvider, err := newProvider(ctx, cfg)
	if err != nil {
		slog.Error("create provider failed", "error", err)
		os.Exit(1)
	}
	defer closeProvider()

	svc := gateway.NewService(metrics.InstrumentProvider(provider, cfg.LLM.Driver), cfg.LLM.Model)
	stager := staging.New(afero.NewOsFs(), cfg.Upload.Dir, cfg.Upload.MaxBytes)

	tokens := make([]auth.ServiceToken, 0, len(cfg.Auth.ServiceTokens))
	for _, t := range cfg.Auth.ServiceTokens {
		tokens = append(tokens, auth.ServiceToken{Name: t.Name, Token: t.Token})
	}
	authMgr := auth.NewManager(tokens)

	handlers := httpapi.NewHandlers(svc, stager, usageHook(cfg))
	httpSrv, err := httpapi.New(cfg.HTTP.Listen, handlers, authMgr, health.StagingReadyChecker(stager))
	if err != nil {
		slog.Error("create http server failed", "error", err)
		os.Exit(1)
	}

	var grpcSrv *grpcserver.Server
	if cfg.GRPC.Listen != "" {
		grpcSrv, err = grpcserver.New(cfg.GRPC.Listen)
		if err != nil {
			slog.Error("create grpc server failed", "error", err)
			os.Exit(1)
		}
	}

	slog.Info("gemini gateway starting", "model", svc.Model(), "driver", cfg.LLM.Driver, "upload_dir", cfg.Upload.Dir, "auth", authMgr.Enabled())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpSrv.Start(gctx)
	})
	if grpcSrv != nil {
		g.Go(grpcSrv.Start)
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return grpcSrv.Stop(shutdownCtx)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
	slog.Info("gemini gateway stopped")
}

func newProvider(ctx context.Context, cfg config.AppConfig) (gateway.Provider, func(), error) {
	switch cfg.LLM.Driver {
	case config.DriverSDK:
		p, err := geminisdk.NewProvider(ctx, cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.Timeout)
		if err != nil {
			return nil, nil, err
		}
		return p, func() { _ = p.Close() }, nil
	default:
		return gemini.NewProvider(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Timeout), func() {}, nil
	}
}

// usageHook records token metrics and, when configured, posts usage to the callback URL.
func usageHook(cfg config.AppConfig) httpapi.UsageHook {
	notifier := usagecallback.NewNotifier(cfg.UsageCallback.URL, cfg.UsageCallback.Timeout)

	return func(ctx context.Context, route string, res generation.Result) {
		metrics.ObserveUsage(res.Model, res.Usage)
		notifier.Notify(usagecallback.PayloadFrom(
			auth.SubjectFromContext(ctx),
			httpapi.RequestIDFromContext(ctx),
			route,
			res,
			time.Now(),
		), nil)
	}
}
