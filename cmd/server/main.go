// Command server runs the careerdeck API.
//
// Configuration comes from the environment, optionally pre-loaded from a
// .env file in the working directory:
//
//	PORT, DB_PATH, LOG_LEVEL
//	JWT_SECRET (required, ≥16 chars), TOKEN_TTL, SECURE_COOKIE
//	GITHUB_CLIENT_ID, GITHUB_CLIENT_SECRET, GITHUB_CALLBACK_URL
//	SERVICE_TOKEN
//	NOTIFY_MIN_SCORE, NOTIFY_SCHEDULE, REDIS_URL, REDIS_CHANNEL
//	QUESTIONS_FILE
//	AUTH_RATE_LIMIT, AUTH_BURST
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/sakif/careerdeck/internal/auth"
	"github.com/sakif/careerdeck/internal/server"
	"github.com/sakif/careerdeck/internal/service"
)

func main() {
	// A missing .env is normal in production.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "loading .env: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(os.Getenv("LOG_LEVEL")),
	}))

	cfg, err := loadConfig()
	if err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if cfg.DBPath != ":memory:" {
		dir := filepath.Dir(cfg.DBPath)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logger.Error("failed to create database directory",
				slog.String("dir", dir),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	srv, err := server.New(ctx, cfg, logger)
	cancel()
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func loadConfig() (server.Config, error) {
	cfg := server.Config{
		DBPath:             envOr("DB_PATH", "data/careerdeck.db"),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		GitHubClientID:     os.Getenv("GITHUB_CLIENT_ID"),
		GitHubClientSecret: os.Getenv("GITHUB_CLIENT_SECRET"),
		GitHubCallbackURL:  os.Getenv("GITHUB_CALLBACK_URL"),
		ServiceToken:       os.Getenv("SERVICE_TOKEN"),
		NotifySchedule:     os.Getenv("NOTIFY_SCHEDULE"),
		RedisURL:           os.Getenv("REDIS_URL"),
		RedisChannel:       os.Getenv("REDIS_CHANNEL"),
		QuestionsFile:      os.Getenv("QUESTIONS_FILE"),
	}
	if cfg.JWTSecret == "" {
		return cfg, errors.New("JWT_SECRET is required (try: openssl rand -hex 32)")
	}

	var err error
	if cfg.Port, err = envInt("PORT", 8080); err != nil {
		return cfg, err
	}
	if cfg.NotifyMinScore, err = envInt("NOTIFY_MIN_SCORE", service.DefaultNotifyMinScore); err != nil {
		return cfg, err
	}
	if cfg.AuthBurst, err = envInt("AUTH_BURST", 10); err != nil {
		return cfg, err
	}
	if cfg.AuthRateLimit, err = strconv.ParseFloat(envOr("AUTH_RATE_LIMIT", "1"), 64); err != nil {
		return cfg, fmt.Errorf("AUTH_RATE_LIMIT: %w", err)
	}
	if cfg.TokenTTL, err = time.ParseDuration(envOr("TOKEN_TTL", auth.DefaultTokenTTL.String())); err != nil {
		return cfg, fmt.Errorf("TOKEN_TTL: %w", err)
	}
	if cfg.SecureCookie, err = strconv.ParseBool(envOr("SECURE_COOKIE", "false")); err != nil {
		return cfg, fmt.Errorf("SECURE_COOKIE: %w", err)
	}
	if cfg.GitHubCallbackURL == "" {
		cfg.GitHubCallbackURL = fmt.Sprintf("http://localhost:%d/auth/github/callback", cfg.Port)
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not an integer", key, v)
	}
	return n, nil
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
