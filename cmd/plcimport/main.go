// plcimport is a standalone scraper: it connects to a PostgreSQL
// database and an upstream PLC directory and runs the importer without
// standing up the full plcmirrord server. With -for set it stops once
// that much time has passed; with -for 0 it keeps polling until the
// process is killed. It does not detect on its own that the upstream is
// caught up: an empty export page does not stop it.
//
// It also carries a -gen-genesis-key helper, for standing up a test
// did:plc identity against a local mirror without a separate tool.
//
// Usage:
//
//	plcimport -upstream https://plc.directory \
//	          -db-conn localhost:5432 -db-name plc -db-user plc -db-pass secret
//
//	plcimport -gen-genesis-key
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/primal-host/plcmirror/internal/config"
	"github.com/primal-host/plcmirror/internal/importer"
	"github.com/primal-host/plcmirror/internal/keys"
	"github.com/primal-host/plcmirror/internal/store"
)

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	upstream := flag.String("upstream", "", "Upstream PLC directory URL (e.g. https://plc.directory)")
	dbConn := flag.String("db-conn", "", "PostgreSQL host:port")
	dbName := flag.String("db-name", "", "PostgreSQL database name")
	dbUser := flag.String("db-user", "", "PostgreSQL username")
	dbPass := flag.String("db-pass", "", "PostgreSQL password")
	pageSize := flag.Int("page-size", 1000, "Rows requested per export page")
	catchUpFor := flag.Duration("for", 0, "Stop after running this long in total (0 = keep polling until the process is killed)")
	genGenesisKey := flag.Bool("gen-genesis-key", false, "Generate a rotation key for a new genesis operation, print it, and exit")
	flag.Parse()

	if *genGenesisKey {
		if err := printGenesisKey(); err != nil {
			log.Fatalf("Failed to generate genesis key: %v", err)
		}
		return
	}

	if *upstream == "" || *dbConn == "" || *dbName == "" || *dbUser == "" || *dbPass == "" {
		log.Fatal("All of -upstream, -db-conn, -db-name, -db-user, -db-pass are required")
	}

	cfg := &config.Config{
		DBConn:      *dbConn,
		DBName:      *dbName,
		DBUser:      *dbUser,
		DBPass:      *dbPass,
		UpstreamURL: *upstream,
	}

	ctx := context.Background()
	if *catchUpFor > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *catchUpFor)
		defer cancel()
	}

	st, err := store.Open(ctx, cfg.ConnString())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer st.Close()

	imp := importer.New(cfg.UpstreamURL, *pageSize, 1*time.Second, st)
	if err := imp.Run(ctx); err != nil && err != context.DeadlineExceeded {
		log.Fatalf("Import failed: %v", err)
	}

	log.Println("plcimport: caught up")
}

// printGenesisKey generates a new rotation key and prints both its
// private multibase form (to seed a genesis plc_operation's signing
// step) and the did:key it derives, the form a genesis operation lists
// in rotationKeys.
func printGenesisKey() error {
	priv, err := keys.Generate()
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}
	didKey, err := keys.DIDKey(priv)
	if err != nil {
		return fmt.Errorf("derive did:key: %w", err)
	}
	fmt.Printf("private (keep secret): %s\n", priv)
	fmt.Printf("rotation key (did:key): %s\n", didKey)
	return nil
}
