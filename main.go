// Package main provides the storefront binary: the HTTP API for the catalog,
// per-session carts, product comparison and checkout.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-storefront/checkout"
	"go-storefront/config"
	"go-storefront/controllers"
	"go-storefront/orders"
	"go-storefront/payment"
	"go-storefront/routes"
	"go-storefront/storage/boltstore"
	"go-storefront/storage/mongostore"
	"go-storefront/utils"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"
)

const appName = "storefront"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Storefront API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Optional .env file to load before reading the environment")

	cmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(envFile)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	})

	var (
		email string
		ttl   time.Duration
	)
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an admin bearer token for the back-office routes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(envFile)
			if err != nil {
				return err
			}
			utils.JwtKey = []byte(cfg.JWTSecret)
			token, err := utils.GenerateJWT(email, "admin", ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	tokenCmd.Flags().StringVar(&email, "email", "admin@localhost", "Email claim of the token")
	tokenCmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	cmd.AddCommand(tokenCmd)

	return cmd
}

func loadConfig(envFile string) (config.Config, error) {
	if envFile != "" {
		return config.Load(envFile)
	}
	return config.Load()
}

func newLogger(cfg config.Config) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Level()}))
	slog.SetDefault(logger)
	return logger
}

func serve(ctx context.Context, cfg config.Config) error {
	logger := newLogger(cfg)
	utils.JwtKey = []byte(cfg.JWTSecret)

	client, err := utils.ConnectDB(ctx, cfg.MongoURI)
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			logger.Warn("Failed to disconnect from MongoDB", slog.String("error", err.Error()))
		}
	}()
	db := client.Database(cfg.MongoDatabase)
	catalog := mongostore.NewCatalog(db)

	carts, err := boltstore.Open(cfg.CartDBPath)
	if err != nil {
		return err
	}
	defer carts.Close()

	var notifier orders.Notifier
	if cfg.PostmarkToken != "" {
		emailService, err := utils.NewEmailService(cfg.PostmarkToken, cfg.EmailSender)
		if err != nil {
			return err
		}
		notifier = emailService
	} else {
		logger.Warn("POSTMARK_API_TOKEN not set, order confirmations are disabled")
	}
	if cfg.PaymentAPIURL == "" {
		logger.Warn("PAYMENT_API_URL not set, online payment will fail")
	}

	orderService := orders.NewService(catalog, mongostore.NewOrders(db), notifier, logger)
	payments := payment.NewClient(cfg.PaymentAPIURL, cfg.PaymentAPIKey, cfg.PaymentReturnURL, logger)
	submitter := checkout.NewSubmitter(orderService, payments, cfg.SuccessURL, logger)
	sessions := controllers.NewSessionRegistry(carts, catalog, cfg.Pricing(), logger)
	go sessions.Run(ctx, cfg.SessionIdleTimeout, cfg.SessionSweepInterval)

	router := mux.NewRouter()
	routes.RegisterRoutes(router, routes.Controllers{
		Products: controllers.NewProductController(catalog, logger),
		Cart:     controllers.NewCartController(sessions, catalog, logger),
		Compare:  controllers.NewCompareController(sessions, catalog),
		Checkout: controllers.NewCheckoutController(sessions, submitter, orderService, logger),
		Orders:   controllers.NewOrderController(orderService, logger),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server is running", slog.String("port", cfg.Port))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
