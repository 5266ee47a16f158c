package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/tomasstrnad1997/sweeper/mines"
	"github.com/tomasstrnad1997/sweeper/protocol"
)

func main() {
	addr := flag.String("addr", "http://localhost:8080", "server base url")
	gameID := flag.String("game", "", "game id to follow")
	reconnect := flag.Bool("reconnect", true, "reconnect when the connection drops")
	flag.Parse()
	if *gameID == "" {
		log.Fatalf("Missing -game")
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	controller := protocol.CreateWatchController(*addr, *gameID, logger)
	controller.AttemptReconnect = *reconnect
	controller.RegisterHandler(protocol.GameInfo, func(msg *protocol.WatchMessage) error {
		fmt.Printf("game %s: %s\n", msg.Game.GameID, msg.Game.Status)
		fmt.Print(mines.FormatField(msg.Game.Field))
		if msg.Game.Completed {
			stop()
		}
		return nil
	})
	controller.RegisterHandler(protocol.ErrorMessage, func(msg *protocol.WatchMessage) error {
		return fmt.Errorf("server error: %s", msg.Error)
	})

	if err := controller.Connect(ctx); err != nil {
		logger.Fatal("Failed to connect", zap.Error(err))
	}
	if err := controller.ReadMessages(ctx); err != nil && ctx.Err() == nil {
		logger.Fatal("Watch ended", zap.Error(err))
	}
}
