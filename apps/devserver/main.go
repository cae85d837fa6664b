// Command devserver serves a seeded, in-memory attendance API for local development.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/trezcool/rollcall/apps/devserver/echo"
	"github.com/trezcool/rollcall/core"
	"github.com/trezcool/rollcall/services/logger"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DEVAPI : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)

	store := devapi.NewStore(0)
	if err := devapi.Seed(store); err != nil {
		logger.Fatal(fmt.Sprintf("seeding store: %v", err), err)
	}

	// =========================================================================
	// Start API Service

	logger.Info(fmt.Sprintf("Dev API initializing : version %q", conf.Build), "addr", conf.DevServer.Addr)
	defer logger.Info("Dev API stopped")

	server := devapi.NewServer(conf, logger, &devapi.Options{
		Address: conf.DevServer.Addr,
		Store:   store,
	})
	go server.Start()

	// =========================================================================
	// Shutdown

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	sig := <-shutdown
	logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)
	}
}
