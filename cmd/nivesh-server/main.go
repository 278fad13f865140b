package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"nivesh/internal/app"
	"nivesh/internal/httpapi"
)

func main() {
	_ = godotenv.Load()

	a, err := app.New(os.Getenv("NIVESH_CONFIG"))
	if err != nil {
		log.Fatalf("failed to wire service: %v", err)
	}
	defer a.Close()

	api := httpapi.NewServer(a.Service, a.Bars, a.DB, a.DB, a.Config.Universe.Market, a.Logger)
	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", a.Config.Server.Host, a.Config.Server.Port),
		Handler: api.Handler(),
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		a.Logger.Info("nivesh-server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	a.Logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.Logger.Error("shutdown", "error", err)
	}
}
