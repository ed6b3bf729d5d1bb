package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sngm3741/store-catalog/api/internal/config"
	"github.com/sngm3741/store-catalog/api/internal/logging"
	"github.com/sngm3741/store-catalog/api/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "設定の読み込みに失敗しました: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Mongo.ConnectTimeout)
	defer cancel()

	clientOptions := options.Client().ApplyURI(cfg.Mongo.URI).SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1))
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		logger.Error("MongoDB 接続に失敗しました", slog.Any("error", err))
		os.Exit(1)
	}

	app, err := server.New(cfg, client, logger)
	if err != nil {
		logger.Error("サーバー初期化に失敗", slog.Any("error", err))
		os.Exit(1)
	}
	if err := app.Run(); err != nil {
		logger.Error("サーバー起動に失敗", slog.Any("error", err))
		os.Exit(1)
	}
}
