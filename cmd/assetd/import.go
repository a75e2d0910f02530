package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"

	"github.com/shoreagents/shoreagents-asset-dog-sub005/internal/config"
	"github.com/shoreagents/shoreagents-asset-dog-sub005/internal/lifecycle"
	"github.com/shoreagents/shoreagents-asset-dog-sub005/internal/persistence"
)

type importStore interface {
	CreateAsset(ctx context.Context, asset persistence.Asset) error
	UpsertEmployee(ctx context.Context, employee persistence.Employee) error
}

// importReport counts what one CSV file did to the store.
type importReport struct {
	Created int
	Skipped int
}

func importCommand() *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Load assets and employees from CSV files",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "assets", Usage: "CSV with asset_tag_id,description,status,category,sub_category,location,department,site,cost"},
			&cli.StringFlag{Name: "employees", Usage: "CSV with id,name,email,department"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			if c.String("assets") == "" && c.String("employees") == "" {
				return errors.New("import: pass --assets and/or --employees")
			}
			logger, err := newLogger(c)
			if err != nil {
				return err
			}
			cfg, err := config.LoadDatabase()
			if err != nil {
				return err
			}
			store, err := openStore(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			// employees first so later checkouts can reference them
			if path := c.String("employees"); path != "" {
				report, err := importFile(path, func(r io.Reader) (importReport, error) {
					return importEmployees(ctx, store, r, time.Now().UTC())
				})
				if err != nil {
					return err
				}
				logger.InfoContext(ctx, "employees imported", "file", path, "upserted", report.Created)
			}
			if path := c.String("assets"); path != "" {
				report, err := importFile(path, func(r io.Reader) (importReport, error) {
					return importAssets(ctx, store, r, logger, time.Now().UTC())
				})
				if err != nil {
					return err
				}
				logger.InfoContext(ctx, "assets imported", "file", path, "created", report.Created, "skipped", report.Skipped)
			}
			return nil
		},
	}
}

func importFile(path string, fn func(io.Reader) (importReport, error)) (importReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return importReport{}, fmt.Errorf("import: %w", err)
	}
	defer f.Close()
	report, err := fn(f)
	if err != nil {
		return report, fmt.Errorf("import %s: %w", path, err)
	}
	return report, nil
}

// csvRows reads a headed CSV and yields each row keyed by lower-cased header.
func csvRows(r io.Reader, required []string, fn func(line int, row map[string]string) error) error {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("empty file")
		}
		return err
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}
	for _, name := range required {
		if _, ok := columns[name]; !ok {
			return fmt.Errorf("missing column %q", name)
		}
	}

	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		row := make(map[string]string, len(columns))
		for name, idx := range columns {
			if idx < len(record) {
				row[name] = strings.TrimSpace(record[idx])
			}
		}
		if err := fn(line, row); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
	}
}

// importAssets creates one asset per row. Tags already present are skipped so
// the import can be re-run. A row may not start out Checked out: that status
// needs an open checkout in the ledger, which only a checkout can write.
func importAssets(ctx context.Context, store importStore, r io.Reader, logger *slog.Logger, now time.Time) (importReport, error) {
	var report importReport
	err := csvRows(r, []string{"asset_tag_id"}, func(line int, row map[string]string) error {
		tag := row["asset_tag_id"]
		if tag == "" {
			return errors.New("asset_tag_id is empty")
		}
		status, err := lifecycle.ParseStatus(row["status"])
		if err != nil {
			return err
		}
		if status == lifecycle.StatusCheckedOut {
			return fmt.Errorf("asset %s: status %q has no open checkout to import; load it as %q and check it out", tag, status, lifecycle.StatusAvailable)
		}
		asset := persistence.Asset{
			ID:          uuid.NewString(),
			TagID:       tag,
			Description: row["description"],
			Status:      status,
			Category:    row["category"],
			SubCategory: row["sub_category"],
			Location:    row["location"],
			Department:  row["department"],
			Site:        row["site"],
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if raw := row["cost"]; raw != "" {
			cost, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
			if err != nil {
				return fmt.Errorf("cost %q: %w", raw, err)
			}
			asset.Cost = &cost
		}

		switch err := store.CreateAsset(ctx, asset); {
		case err == nil:
			report.Created++
		case errors.Is(err, persistence.ErrDuplicate):
			logger.DebugContext(ctx, "asset already present", "asset_tag_id", tag, "line", line)
			report.Skipped++
		default:
			return err
		}
		return nil
	})
	return report, err
}

// importEmployees upserts the directory; rows for known ids refresh them.
func importEmployees(ctx context.Context, store importStore, r io.Reader, now time.Time) (importReport, error) {
	var report importReport
	err := csvRows(r, []string{"id", "name"}, func(line int, row map[string]string) error {
		if row["id"] == "" || row["name"] == "" {
			return errors.New("id and name are required")
		}
		err := store.UpsertEmployee(ctx, persistence.Employee{
			ID:         row["id"],
			Name:       row["name"],
			Email:      row["email"],
			Department: row["department"],
			CreatedAt:  now,
			UpdatedAt:  now,
		})
		if err != nil {
			return err
		}
		report.Created++
		return nil
	})
	return report, err
}
