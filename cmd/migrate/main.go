// ABOUTME: Migration utility that copies records between storage backends
// ABOUTME: Moves a sqlite store to badger or back, with dry-run and backup support
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/harperreed/salesdesk/config"
	"github.com/harperreed/salesdesk/db"
	"github.com/harperreed/salesdesk/store"
)

var kinds = []string{store.KindContact, store.KindDeal, store.KindTask, store.KindInquiry}

func main() {
	from := flag.String("from", "", "Source store, sqlite:<file> or badger:<dir> (required)")
	to := flag.String("to", "", "Destination store, sqlite:<file> or badger:<dir> (required)")
	dryRun := flag.Bool("dry-run", false, "Count records without writing")
	backup := flag.Bool("backup", true, "Back up a sqlite source before copying")
	flag.Parse()

	logger, err := config.LogConfig{Level: "info", Development: true}.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if *from == "" || *to == "" {
		logger.Fatal("both -from and -to are required")
	}

	if err := migrate(context.Background(), logger, *from, *to, *dryRun, *backup); err != nil {
		logger.Fatal("migration failed", zap.Error(err))
	}
	logger.Info("migration completed")
}

func migrate(ctx context.Context, logger *zap.Logger, from, to string, dryRun, backup bool) error {
	srcKind, srcPath, err := parseLocation(from)
	if err != nil {
		return err
	}
	if _, err := os.Stat(srcPath); err != nil {
		return fmt.Errorf("source does not exist: %w", err)
	}

	if backup && srcKind == config.BackendSQLite && !dryRun {
		backupPath := fmt.Sprintf("%s.backup.%s", srcPath, time.Now().Format("20060102-150405"))
		input, err := os.ReadFile(srcPath)
		if err != nil {
			return fmt.Errorf("failed to read database: %w", err)
		}
		if err := os.WriteFile(backupPath, input, 0600); err != nil {
			return fmt.Errorf("failed to create backup: %w", err)
		}
		logger.Info("backup created", zap.String("path", backupPath))
	}

	src, err := openBackend(from)
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	var dst store.Backend
	if !dryRun {
		dst, err = openBackend(to)
		if err != nil {
			return err
		}
		defer func() { _ = dst.Close() }()
	}

	counts, err := copyRecords(ctx, src, dst)
	for _, kind := range kinds {
		c := counts[kind]
		logger.Info("records",
			zap.String("kind", kind),
			zap.Int("copied", c.copied),
			zap.Int("existing", c.existing),
			zap.Bool("dry_run", dryRun))
	}
	return err
}

type copyCount struct {
	copied   int
	existing int
}

// copyRecords inserts every record of src into dst under its original id.
// Records already present in dst are left untouched. A nil dst only counts.
func copyRecords(ctx context.Context, src, dst store.Backend) (map[string]copyCount, error) {
	counts := make(map[string]copyCount, len(kinds))
	for _, kind := range kinds {
		rows, err := src.List(ctx, kind)
		if err != nil {
			return counts, fmt.Errorf("failed to list %s: %w", kind, err)
		}
		c := counts[kind]
		for _, data := range rows {
			var meta struct {
				ID uuid.UUID `json:"id"`
			}
			if err := json.Unmarshal(data, &meta); err != nil {
				return counts, fmt.Errorf("failed to decode %s: %w", kind, err)
			}
			if dst == nil {
				c.copied++
				continue
			}
			err := dst.Insert(ctx, kind, meta.ID, data)
			switch {
			case errors.Is(err, store.ErrRecordExists):
				c.existing++
			case err != nil:
				counts[kind] = c
				return counts, err
			default:
				c.copied++
			}
		}
		counts[kind] = c
	}
	return counts, nil
}

func parseLocation(loc string) (kind, path string, err error) {
	for _, k := range []string{config.BackendSQLite, config.BackendBadger} {
		prefix := k + ":"
		if len(loc) > len(prefix) && loc[:len(prefix)] == prefix {
			return k, loc[len(prefix):], nil
		}
	}
	return "", "", fmt.Errorf("store %q must look like sqlite:<file> or badger:<dir>", loc)
}

func openBackend(loc string) (store.Backend, error) {
	kind, path, err := parseLocation(loc)
	if err != nil {
		return nil, err
	}
	if kind == config.BackendBadger {
		return store.OpenBadgerBackend(path)
	}
	database, err := db.OpenDatabase(path)
	if err != nil {
		return nil, err
	}
	return db.NewRecordBackend(database), nil
}
