// Package main - Entry point for the VAT calculation API server
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"vat-calculator/adapters/auditlog"
	"vat-calculator/api"
	"vat-calculator/internal/app"
	"vat-calculator/internal/config"
	"vat-calculator/internal/logging"
)

const version = "1.0.0"

func main() {
	cfgFile := flag.String("config", "", "config file")
	addr := flag.String("addr", "", "server address, overrides server.address")
	flag.Parse()

	if err := run(*cfgFile, *addr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfgFile, addr string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Server.Address = addr
	}
	config.Set(cfg)

	if err := logging.Initialize(cfg.Logging); err != nil {
		return err
	}
	defer logging.Sync()
	logger := logging.Named("server")

	gin.SetMode(cfg.Server.Mode)

	a, err := app.New(cfg, logging.Logger)
	if err != nil {
		return err
	}
	defer a.Close()

	audit := api.MultiAuditLogger{api.NewZapAuditLogger(logging.Logger)}
	if k := cfg.Audit.Kafka; k.Enabled {
		kafkaAudit := auditlog.NewKafkaLogger(auditlog.NewWriter(auditlog.Config{
			Brokers:      k.Brokers,
			Topic:        k.Topic,
			WriteTimeout: k.WriteTimeout,
		}), k.WriteTimeout, logging.Named("audit"))
		defer kafkaAudit.Close()
		audit = append(audit, kafkaAudit)
	}

	srv := api.NewServer(cfg.Server, api.Deps{
		Resolver:  a.Resolver,
		Validator: a.Validator,
		Geo:       a.Geo,
		Audit:     audit,
		Logger:    logging.Logger,
		Version:   version,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.Info("VAT calculation server started",
		zap.String("version", version),
		zap.String("address", cfg.Server.Address),
	)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}
