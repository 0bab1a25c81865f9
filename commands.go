package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bagStore/config"
	"bagStore/handlers"
	"bagStore/services"

	"github.com/spf13/cobra"
)

func loadApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return newApp(ctx, cfg)
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the http server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := loadApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if a.relay != nil {
				ready := make(chan struct{})
				go func() {
					if err := a.relay.Run(ctx, ready); err != nil {
						log.Printf("cart relay stopped: %v", err)
					}
				}()
				select {
				case <-ready:
					log.Printf("cart relay subscribed")
				case <-time.After(5 * time.Second):
					log.Printf("cart relay: subscription not confirmed yet")
				}
			}

			hp := handlers.HandlerParams{
				PrdService:     services.NewProductService(a.productRepo),
				CatsService:    services.NewCategoryService(a.categoryRepo),
				CrtService:     services.NewCartService(a.productRepo, a.cartRepo, a.sessionRepo),
				CatalogService: a.catalog,
				OrdService:     services.NewOrderService(a.productRepo, a.cartRepo, a.orderRepo, a.cfg.Order.RefreshItems),
				Hub:            a.hub,
				DefaultLocale:  a.locale(),
				CookieTTL:      a.cfg.Session.TTL,
			}
			router := handlers.NewRouter(handlers.NewHandler(hp))

			srv := &http.Server{
				Addr:              a.cfg.ListenAddr,
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}
			errc := make(chan error, 1)
			go func() {
				log.Printf("starting server on %s...", a.cfg.ListenAddr)
				errc <- srv.ListenAndServe()
			}()

			select {
			case err := <-errc:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
			}
			log.Printf("shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}

func cartCmd() *cobra.Command {
	var cartSessionId string
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Inspect or reset a stored cart",
	}
	cmd.PersistentFlags().StringVarP(&cartSessionId, "session", "s", "", "cart session id")
	cmd.MarkPersistentFlagRequired("session")

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Print the cart as json",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			items, err := a.cartRepo.GetCart(cmd.Context(), cartSessionId)
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(services.CartSummary(items, a.locale()), "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Empty the cart",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.cartRepo.ClearCart(cmd.Context(), cartSessionId); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cart %s cleared\n", cartSessionId)
			return nil
		},
	})
	return cmd
}

func cacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the catalog cache",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "evict [prefix]",
		Short: "Remove catalog cache entries whose key starts with prefix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.catalog.EvictPrefix(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "evicted %d entries\n", n)
			return nil
		},
	})
	return cmd
}
