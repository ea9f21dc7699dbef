// plcmirrord runs a did:plc mirror: it scrapes an upstream PLC
// directory's operation log into PostgreSQL and serves did:plc
// resolution and raw export over HTTP.
//
// It reads configuration from plcmirror.json in the working directory.
//
// Usage:
//
//	./plcmirrord              # reads ./plcmirror.json, starts mirroring
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/primal-host/plcmirror/internal/config"
	"github.com/primal-host/plcmirror/internal/importer"
	"github.com/primal-host/plcmirror/internal/server"
	"github.com/primal-host/plcmirror/internal/store"
)

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.Println("plcmirrord starting...")

	cfg, err := config.Load("plcmirror.json")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Printf("Config loaded (listen=%s upstream=%s db=%s/%s)",
		cfg.ListenAddr, cfg.UpstreamURL, cfg.DBConn, cfg.DBName)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("Received %v, shutting down...", sig)
		cancel()
	}()

	st, err := store.Open(ctx, cfg.ConnString())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer st.Close()
	log.Println("Database connected, schema bootstrapped")

	imp := importer.New(cfg.UpstreamURL, cfg.ExportPageSize, cfg.PollInterval(), st)
	go func() {
		if err := imp.Run(ctx); err != nil && ctx.Err() == nil {
			log.Printf("Importer stopped: %v", err)
		}
	}()

	srv := server.New(cfg.ListenAddr, st)
	if err := srv.Start(ctx); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("plcmirrord stopped")
}
