package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/MaxAltyn/Cash-Healer/core/bootstrap"
	coreconfig "github.com/MaxAltyn/Cash-Healer/core/config"
	coredatabase "github.com/MaxAltyn/Cash-Healer/core/database"
	"github.com/MaxAltyn/Cash-Healer/core/metrics"
	tg "github.com/MaxAltyn/Cash-Healer/core/telegram"
	"github.com/MaxAltyn/Cash-Healer/internal/agent"
	"github.com/MaxAltyn/Cash-Healer/internal/bot"
	"github.com/MaxAltyn/Cash-Healer/internal/service"
	"github.com/MaxAltyn/Cash-Healer/internal/storage"
	"github.com/MaxAltyn/Cash-Healer/internal/web"
	"github.com/MaxAltyn/Cash-Healer/internal/yookassa"
)

const defaultConfigPath = "config/config.yaml"

func main() {
	if err := run(); err != nil {
		log.Fatalf("cash-healer: %v", err)
	}
}

func run() error {
	_ = godotenv.Load()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = defaultConfigPath
	}
	cfg, err := coreconfig.Load(cfgPath)
	if err != nil {
		return err
	}

	boot, err := bootstrap.Run(bootstrap.Options{Config: cfg, Database: coredatabase.Config{
		Host:           cfg.Database.Host,
		Port:           cfg.Database.Port,
		User:           cfg.Database.User,
		Password:       cfg.Database.Password,
		Name:           cfg.Database.Name,
		SSLMode:        cfg.Database.SSLMode,
		MaxConnections: cfg.Database.MaxConnections,
	}})
	if err != nil {
		return err
	}
	defer boot.DB.Close()

	m := metrics.New()
	store := storage.NewPostgresStore(boot.DB)

	gateway := yookassa.New(yookassa.Config{
		ShopID:    cfg.YooKassa.ShopID,
		SecretKey: cfg.YooKassa.SecretKey,
		BaseURL:   cfg.YooKassa.BaseURL,
		ReturnURL: cfg.YooKassa.ReturnURL,
	}, m)

	svc, err := service.New(store, gateway, service.Config{
		Detox:    service.Offering{Price: cfg.Services.Detox.PriceRUB, URL: cfg.Services.Detox.URL},
		Modeling: service.Offering{Price: cfg.Services.Modeling.PriceRUB, URL: cfg.Services.Modeling.URL},
	}, m)
	if err != nil {
		return err
	}

	ag := agent.New(agent.Config{
		BaseURL:    cfg.Agent.BaseURL,
		APIKey:     cfg.Agent.APIKey,
		Model:      cfg.Agent.Model,
		MaxHistory: cfg.Agent.MaxHistory,
		Timeout:    time.Duration(cfg.Agent.TimeoutSeconds) * time.Second,
	}, m)

	b := bot.New(svc, ag, cfg)
	reg := b.Registry()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return tg.RunTelegram(ctx, tg.RunOptions{
			Config:      cfg,
			Registry:    reg,
			Middlewares: tg.DefaultMiddlewares(cfg, nil),
			Routes:      b.Routes(reg),
		})
	})
	g.Go(func() error {
		return web.New(store, cfg.HTTP.Listen).Run(ctx)
	})
	return g.Wait()
}
