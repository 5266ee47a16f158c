package main

import (
	"context"
	"flag"
	"log"

	"go.uber.org/zap"

	"github.com/tomasstrnad1997/sweeper/db"
	"github.com/tomasstrnad1997/sweeper/mines"
)

func main() {
	stats := flag.Bool("stats", false, "print the number of stored games per status")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	store, err := db.InitStore()
	if err != nil {
		logger.Fatal("Failed to create store", zap.Error(err))
	}
	defer store.Close()
	if err = store.InitializeTables(); err != nil {
		logger.Fatal("Failed to create tables", zap.Error(err))
	}
	logger.Info("Tables created")

	if !*stats {
		return
	}
	counts, err := store.CountByStatus(context.Background())
	if err != nil {
		logger.Fatal("Failed to count games", zap.Error(err))
	}
	for _, status := range []mines.Status{mines.InProgress, mines.Won, mines.Lost} {
		logger.Info("games", zap.Stringer("status", status), zap.Int("count", counts[status]))
	}
}
