// vaultagentd is the secrets broker server. All configuration comes from
// VAULTAGENTD_* environment variables.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/viper"

	"github.com/skygkruger/vaultagent-sub000/internal/server"
)

func main() {
	viper.SetEnvPrefix("VAULTAGENTD")
	viper.AutomaticEnv()
	viper.SetDefault("addr", ":8080")
	viper.SetDefault("mongo_uri", "mongodb://localhost:27017")
	viper.SetDefault("mongo_db", "vaultagent")
	viper.SetDefault("jwt_issuer", "vaultagent")

	cfg := server.Config{
		Addr:                   viper.GetString("addr"),
		MongoURI:               viper.GetString("mongo_uri"),
		MongoDB:                viper.GetString("mongo_db"),
		AccountsCollection:     viper.GetString("accounts_collection"),
		JWTIssuer:              viper.GetString("jwt_issuer"),
		TokenTTL:               viper.GetDuration("token_ttl"),
		MaxSessionTTL:          viper.GetDuration("max_session_ttl"),
		DefaultSessionTTL:      viper.GetDuration("default_session_ttl"),
		AgentRequestsPerMinute: viper.GetInt("agent_requests_per_minute"),
		LoginAttemptsPerMinute: viper.GetInt("login_attempts_per_minute"),
		SessionCreatesPerHour:  viper.GetInt("session_creates_per_hour"),
	}

	logger := log.New(os.Stdout, "[vaultagentd] ", log.LstdFlags)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	srv, err := server.New(ctx, cfg)
	cancel()
	if err != nil {
		logger.Fatalf("startup: %v", err)
	}

	httpSrv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Printf("listening on %s", cfg.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("serve: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Println("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("shutdown: %v", err)
	}
	if err := srv.Close(shutdownCtx); err != nil {
		logger.Printf("close: %v", err)
	}
}
