package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aeronite/auth-api/internal/config"
	"github.com/aeronite/auth-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/aeronite/auth-api/internal/infrastructure/jwt"
	"github.com/aeronite/auth-api/internal/infrastructure/smtp"
	transporthttp "github.com/aeronite/auth-api/internal/transport/http"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()
	if cfg.SecretKey == "" {
		log.Fatal("SECRET_KEY is required")
	}

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(cfg)
	dynamo.Bootstrap(context.Background(), dynamoClient, cfg.DynamoTables)

	jwtProvider := jwtinfra.NewProvider(cfg.SecretKey, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	mailer := smtp.NewMailer(cfg)

	deps := &transporthttp.Deps{
		UserRepo:      dynamo.NewUserRepo(dynamoClient, cfg.DynamoTables.Users),
		ChallengeRepo: dynamo.NewChallengeRepo(dynamoClient, cfg.DynamoTables.OTPChallenges),
		Mailer:        mailer,
		JWTProvider:   jwtProvider,
	}

	router := transporthttp.NewRouter(cfg, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s)", cfg.AppPort, cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}
