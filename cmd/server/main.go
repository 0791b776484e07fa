package main

import (
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/roomcast/roomcast/internal/server"
)

func main() {
	port := flag.String("port", "", "listen address, e.g. :8888 (overrides SERVER_PORT)")
	flag.Parse()

	cfg := server.NewConfigFromEnv()
	if *port != "" {
		cfg.Port = *port
	}

	chat := server.NewChatServer(cfg)
	mux := server.SetupRoutes(chat)
	httpServer := server.CreateServer(cfg.Port, mux)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.StartServer(httpServer)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	case sig := <-stop:
		log.Printf("Received %s, shutting down", sig)
	}

	if err := server.ShutdownServer(httpServer, 10*time.Second); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}
	if err := chat.Shutdown(5 * time.Second); err != nil {
		log.Printf("Session shutdown error: %v", err)
	}
}
