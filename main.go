package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"muuzah/internal/config"
	"muuzah/internal/leaderboard"
	"muuzah/internal/lobby"
	"muuzah/internal/logging"
	"muuzah/internal/server"
)

func main() {
	configPath := flag.String("config", os.Getenv("MUUZAH_CONFIG"), "path to JSON config file")
	addr := flag.String("addr", "", "listen address (overrides server.address)")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logrus.WithError(err).WithField("config_path", *configPath).Fatal("invalid configuration")
	}
	if *addr != "" {
		cfg.ServerAddress = *addr
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		logrus.WithError(err).Fatal("invalid log settings")
	}
	if logger.IsLevelEnabled(logrus.DebugLevel) {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	if !strings.HasPrefix(cfg.DatabasePath, "file:") {
		if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0o755); err != nil {
			logger.WithError(err).Fatal("failed to create data directory")
		}
	}
	db, err := leaderboard.Open(cfg.DatabasePath)
	if err != nil {
		logger.WithError(err).Fatal("failed to initialize database")
	}
	board := leaderboard.NewService(leaderboard.NewSQLiteStore(db), cfg.LeaderboardLimit, logging.Component(logger, "leaderboard"))

	srv := server.New(server.Options{
		Addr:  cfg.ServerAddress,
		Rules: cfg.Rules,
	}, lobby.NewManager(), board, logging.Component(logger, "server"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("shutdown")
		}
	}()

	if err := srv.Start(); err != nil {
		logger.WithError(err).Fatal("server error")
	}
	logger.Info("server stopped")
}
