package main

import (
	"flag"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"github.com/NordCoder/bazaar/internal/obs"
	"github.com/NordCoder/bazaar/migrations"
)

func main() {
	command := flag.String("command", "up", "goose command: up, down, status, reset")
	flag.Parse()

	_ = godotenv.Load()

	logger, err := obs.NewLogger(obs.LogConfig{Level: os.Getenv("LOG_LEVEL"), App: "bazaar/migrator"})
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		logger.Fatal("DB_DSN is empty")
	}

	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(zap.NewStdLog(logger))
	if err := goose.SetDialect("postgres"); err != nil {
		logger.Fatal("set dialect", zap.Error(err))
	}

	db, err := goose.OpenDBWithDriver("pgx", dsn)
	if err != nil {
		logger.Fatal("open db", zap.Error(err))
	}
	defer db.Close()

	if err := goose.Run(*command, db, "."); err != nil {
		logger.Fatal("migrate", zap.String("command", *command), zap.Error(err))
	}
	logger.Info("migrations done", zap.String("command", *command))
}
