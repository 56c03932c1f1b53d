package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sinekal/Taxiye-EIMS-Integration/src/config"
	"github.com/sinekal/Taxiye-EIMS-Integration/src/handlers"
	"github.com/sinekal/Taxiye-EIMS-Integration/src/logger"
	"github.com/sinekal/Taxiye-EIMS-Integration/src/security"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Cfg
	logger.L.Info("Taxiye EIMS integration starting...", "version", version)

	if len(cfg.JWTSecret) < 32 {
		return errors.New("JWT_SECRET must be at least 32 bytes")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	router := handlers.NewRouter(handlers.RouterDeps{
		Auth:        security.NewAuthService(cfg.JWTSecret, cfg.APITokenExpiry),
		Limiter:     rate.NewLimiter(rate.Every(cfg.APIRateLimitInterval), cfg.APIRateLimitBurst),
		Trips:       handlers.NewTripHandler(a.invoices),
		Payments:    handlers.NewPaymentHandler(a.payments),
		Sequences:   handlers.NewSequenceHandler(a.reconciler),
		Settlements: handlers.NewSettlementHandler(a.settlements),
		EIMS:        handlers.NewEIMSHandler(a.gateway),
		Uploads:     handlers.NewUploadHandler(a.imports, cfg.MaxUploadSizeBytes),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      handlers.RequestTimeout + 10*time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.L.Info("Server listening", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.L.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.L.Info("Server stopped")
	return nil
}
