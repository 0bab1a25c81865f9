package main

import (
	"context"
	"fmt"
	"log"

	"bagStore/config"
	"bagStore/entities"
	"bagStore/repository"
	"bagStore/services"

	"github.com/redis/go-redis/v9"
)

// app holds the wired dependencies shared by every command.
type app struct {
	cfg   *config.Config
	store repository.KVStore
	rdb   *redis.Client
	hub   *services.CartHub
	relay *repository.RedisRelay

	productRepo  repository.ProductRepository
	categoryRepo repository.CategoryRepository
	orderRepo    repository.OrderRepository
	cartRepo     repository.CartRepository
	sessionRepo  repository.SessionRepository

	catalog *services.CatalogService
}

func openStore(ctx context.Context, cfg *config.Config) (repository.KVStore, *redis.Client, error) {
	switch cfg.Storage.Backend {
	case "redis":
		opt, err := redis.ParseURL(cfg.Storage.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("redis url: %w", err)
		}
		rdb := redis.NewClient(opt)
		store, err := repository.NewRedisStore(ctx, rdb)
		if err != nil {
			rdb.Close()
			return nil, nil, fmt.Errorf("redis is not working: %w", err)
		}
		return store, rdb, nil
	case "sqlite":
		store, err := repository.NewSqliteStore(cfg.Storage.SqlitePath)
		return store, nil, err
	case "postgres":
		store, err := repository.NewPostgresStore(cfg.Storage.PostgresDSN)
		return store, nil, err
	default:
		return repository.NewMemoryStore(), nil, nil
	}
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	store, rdb, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	log.Printf("storage connected: %s", cfg.Storage.Backend)

	a := &app{
		cfg:   cfg,
		store: store,
		rdb:   rdb,
		hub:   services.NewCartHub(),
	}

	var notifier repository.CartNotifier = a.hub
	if rdb != nil {
		a.relay, err = repository.NewRedisRelay(rdb, a.hub)
		if err != nil {
			a.Close()
			return nil, err
		}
		notifier = a.relay
	}

	api, err := repository.NewApiClient(cfg.ApiBaseURL, cfg.HTTP.Timeout)
	if err != nil {
		a.Close()
		return nil, err
	}
	if a.productRepo, err = repository.NewProductRepository(api); err != nil {
		a.Close()
		return nil, err
	}
	if a.categoryRepo, err = repository.NewCategoryRepository(api); err != nil {
		a.Close()
		return nil, err
	}
	if a.orderRepo, err = repository.NewOrderRepository(api); err != nil {
		a.Close()
		return nil, err
	}
	if a.cartRepo, err = repository.NewCartRepository(store, notifier, cfg.Cart.TTL); err != nil {
		a.Close()
		return nil, err
	}
	if a.sessionRepo, err = repository.NewSessionRepository(store, cfg.Session.TTL); err != nil {
		a.Close()
		return nil, err
	}

	persistent, err := repository.NewCatalogCache(store, cfg.Cache.TTL)
	if err != nil {
		a.Close()
		return nil, err
	}
	// the session tier lives only as long as this process
	sessionTier, err := repository.NewCatalogCache(repository.NewMemoryStore(), cfg.Cache.SessionTTL)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.catalog = services.NewCatalogService(a.productRepo, persistent, sessionTier.Namespaced("session:"))
	return a, nil
}

func (a *app) locale() entities.Locale {
	return entities.Locale(a.cfg.Locale)
}

func (a *app) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			log.Printf("close store: %v", err)
		}
	}
}
