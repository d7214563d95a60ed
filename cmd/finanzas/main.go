package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/JoseCortezz25/mis-finanzas-sub000/internal/cache"
	"github.com/JoseCortezz25/mis-finanzas-sub000/internal/cli"
	"github.com/JoseCortezz25/mis-finanzas-sub000/internal/core"
	"github.com/JoseCortezz25/mis-finanzas-sub000/internal/remote/rest"
	"github.com/JoseCortezz25/mis-finanzas-sub000/internal/store"
	"github.com/JoseCortezz25/mis-finanzas-sub000/internal/syncer"
)

const usage = `Usage: finanzas <command> [args]

Commands:
  pending              show pending record counts per table
  sync [table]         push pending records to the remote (all tables by default)
  clear <table>|all    drop cached rows for one table, or the whole cache
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(logger)

	localStore := cli.InitStore(logger, cfg.SQLiteDBPath)
	defer localStore.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "pending":
		err = runPending(ctx, localStore)
	case "sync":
		err = runSync(ctx, cfg.RemoteBaseURL, cfg.RemoteAPIKey, cfg.RemoteTimeout, localStore, os.Args[2:])
	case "clear":
		err = runClear(ctx, localStore, os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func runPending(ctx context.Context, s *store.Store) error {
	var total int64
	for _, table := range core.Tables() {
		count, err := s.CountPending(ctx, table)
		if err != nil {
			return fmt.Errorf("count pending for %s: %w", table, err)
		}
		fmt.Printf("%-22s %d\n", table, count)
		total += count
	}
	fmt.Printf("%-22s %d\n", "total", total)
	return nil
}

func runSync(ctx context.Context, baseURL, apiKey string, timeout time.Duration, s *store.Store, args []string) error {
	cacheService := cache.NewService(s)
	remoteClient := rest.NewClient(baseURL, apiKey, timeout)
	manager := syncer.NewManager(cacheService, remoteClient, nil)

	if len(args) == 0 {
		count, err := manager.SyncAll(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Synced %d records\n", count)
		return nil
	}

	table, err := core.ParseTable(args[0])
	if err != nil {
		return err
	}
	count, err := manager.SyncTable(ctx, table)
	if err != nil {
		return err
	}
	fmt.Printf("Synced %d records from %s\n", count, table)
	return nil
}

func runClear(ctx context.Context, s *store.Store, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("clear requires a table name or \"all\"")
	}

	if args[0] == "all" {
		if err := s.Clear(ctx); err != nil {
			return fmt.Errorf("clear cache: %w", err)
		}
		fmt.Println("Cache cleared")
		return nil
	}

	table, err := core.ParseTable(args[0])
	if err != nil {
		return err
	}
	if err := s.ClearTable(ctx, table); err != nil {
		return fmt.Errorf("clear %s: %w", table, err)
	}
	fmt.Printf("Cleared %s\n", table)
	return nil
}
