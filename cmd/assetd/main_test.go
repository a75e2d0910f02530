package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shoreagents/shoreagents-asset-dog-sub005/internal/application"
	"github.com/shoreagents/shoreagents-asset-dog-sub005/internal/config"
	"github.com/shoreagents/shoreagents-asset-dog-sub005/internal/lifecycle"
	"github.com/shoreagents/shoreagents-asset-dog-sub005/internal/persistence"
	"github.com/shoreagents/shoreagents-asset-dog-sub005/internal/persistence/memory"
	"github.com/shoreagents/shoreagents-asset-dog-sub005/internal/persistence/sqlstore"
)

var (
	quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))
	importTime  = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
)

func TestImportAssets(t *testing.T) {
	ctx := context.Background()

	t.Run("creates assets and skips known tags", func(t *testing.T) {
		store := memory.NewStore()
		csv := strings.Join([]string{
			"asset_tag_id,description,status,category,sub_category,location,department,site,cost",
			"LAP-001,ThinkPad,Available,IT,Laptop,Shelf A,Ops,Manila,\"1,250.50\"",
			"LAP-002,MacBook,in audit,IT,Laptop,,Ops,Manila,",
			"LAP-001,Duplicate,,IT,,,,,",
		}, "\n")

		report, err := importAssets(ctx, store, strings.NewReader(csv), quietLogger, importTime)
		if err != nil {
			t.Fatalf("importAssets returned error: %v", err)
		}
		if report.Created != 2 || report.Skipped != 1 {
			t.Fatalf("unexpected report %+v", report)
		}

		first, err := store.GetAssetByTag(ctx, "LAP-001")
		if err != nil {
			t.Fatalf("GetAssetByTag returned error: %v", err)
		}
		if first.Description != "ThinkPad" || first.Status != lifecycle.StatusAvailable {
			t.Fatalf("unexpected asset %+v", first)
		}
		if first.Cost == nil || *first.Cost != 1250.50 {
			t.Fatalf("expected cost 1250.50, got %v", first.Cost)
		}
		second, err := store.GetAssetByTag(ctx, "LAP-002")
		if err != nil {
			t.Fatalf("GetAssetByTag returned error: %v", err)
		}
		if second.Status != lifecycle.StatusInAudit {
			t.Fatalf("expected in audit status, got %q", second.Status)
		}
		if second.Cost != nil {
			t.Fatalf("expected no cost, got %v", *second.Cost)
		}
	})

	t.Run("a checked out row leaves no stuck asset behind", func(t *testing.T) {
		store := memory.NewStore()
		_, err := importAssets(ctx, store, strings.NewReader("asset_tag_id,status\nIMP-1,checked out\n"), quietLogger, importTime)
		if err == nil || !strings.Contains(err.Error(), "line 2") {
			t.Fatalf("expected line-numbered rejection, got %v", err)
		}
		if _, err := store.GetAssetByTag(ctx, "IMP-1"); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected IMP-1 not to be stored, got %v", err)
		}
	})

	t.Run("only the tag column is required", func(t *testing.T) {
		store := memory.NewStore()
		report, err := importAssets(ctx, store, strings.NewReader("Asset_Tag_ID\nMON-9\n"), quietLogger, importTime)
		if err != nil {
			t.Fatalf("importAssets returned error: %v", err)
		}
		if report.Created != 1 {
			t.Fatalf("expected one asset, got %+v", report)
		}
	})

	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{name: "empty file", input: "", wantErr: "empty file"},
		{name: "missing tag column", input: "description\nfoo\n", wantErr: `missing column "asset_tag_id"`},
		{name: "unknown status", input: "asset_tag_id,status\nX-1,Lost\n", wantErr: "line 2"},
		{name: "checked out without a checkout", input: "asset_tag_id,status\nX-0,Available\nX-1,Checked out\n", wantErr: `line 3: asset X-1: status "Checked out" has no open checkout`},
		{name: "bad cost", input: "asset_tag_id,cost\nX-1,cheap\n", wantErr: `cost "cheap"`},
		{name: "blank tag", input: "asset_tag_id,description\n,orphan\n", wantErr: "asset_tag_id is empty"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			_, err := importAssets(ctx, memory.NewStore(), strings.NewReader(tt.input), quietLogger, importTime)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestImportEmployees(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	csv := "id,name,email,department\nemp-1,Ana Cruz,ana@example.com,Ops\nemp-2,Ben Reyes,,Finance\n"
	report, err := importEmployees(ctx, store, strings.NewReader(csv), importTime)
	if err != nil {
		t.Fatalf("importEmployees returned error: %v", err)
	}
	if report.Created != 2 {
		t.Fatalf("expected two employees, got %+v", report)
	}

	// re-import refreshes the existing row
	if _, err := importEmployees(ctx, store, strings.NewReader("id,name\nemp-1,Ana C. Cruz\n"), importTime); err != nil {
		t.Fatalf("second import returned error: %v", err)
	}
	employee, err := store.GetEmployee(ctx, "emp-1")
	if err != nil {
		t.Fatalf("GetEmployee returned error: %v", err)
	}
	if employee.Name != "Ana C. Cruz" {
		t.Fatalf("expected refreshed name, got %q", employee.Name)
	}

	if _, err := importEmployees(ctx, store, strings.NewReader("id,name\nemp-3,\n"), importTime); err == nil {
		t.Fatal("expected error for row without name")
	}
}

func TestAddOperator(t *testing.T) {
	ctx := context.Background()
	policy := application.DefaultPolicy()

	t.Run("stores a verifiable hash", func(t *testing.T) {
		store := memory.NewStore()
		key, err := addOperator(ctx, store, policy, " desk-1 ", "Front Desk", "FrontDesk", importTime)
		if err != nil {
			t.Fatalf("addOperator returned error: %v", err)
		}
		operator, err := store.GetOperator(ctx, "desk-1")
		if err != nil {
			t.Fatalf("GetOperator returned error: %v", err)
		}
		if operator.Role != "frontdesk" {
			t.Fatalf("expected normalised role, got %q", operator.Role)
		}
		if operator.APIKeyHash == key {
			t.Fatal("plaintext key must not be stored")
		}
		if err := application.VerifyAPIKey(operator.APIKeyHash, key); err != nil {
			t.Fatalf("stored hash does not verify: %v", err)
		}
	})

	t.Run("rejects duplicates", func(t *testing.T) {
		store := memory.NewStore()
		if _, err := addOperator(ctx, store, policy, "op-1", "One", "custodian", importTime); err != nil {
			t.Fatalf("addOperator returned error: %v", err)
		}
		_, err := addOperator(ctx, store, policy, "op-1", "Again", "custodian", importTime)
		if err == nil || !strings.Contains(err.Error(), "already exists") {
			t.Fatalf("expected duplicate error, got %v", err)
		}
	})

	t.Run("rejects unknown roles", func(t *testing.T) {
		_, err := addOperator(ctx, memory.NewStore(), policy, "op-2", "Two", "janitor", importTime)
		if err == nil || !strings.Contains(err.Error(), `unknown role "janitor"`) {
			t.Fatalf("expected unknown role error, got %v", err)
		}
	})

	t.Run("propagates store errors", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := addOperator(ctx, failingOperatorStore{err: boom}, policy, "op-3", "Three", "custodian", importTime)
		if !errors.Is(err, boom) {
			t.Fatalf("expected store error, got %v", err)
		}
	})
}

type failingOperatorStore struct {
	err error
}

func (s failingOperatorStore) CreateOperator(context.Context, persistence.Operator) error {
	return s.err
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		store, err := openStore(ctx, config.Config{DBDriver: config.DriverMemory}, quietLogger)
		if err != nil {
			t.Fatalf("openStore returned error: %v", err)
		}
		defer store.Close()
		if _, ok := store.(*memory.Store); !ok {
			t.Fatalf("expected memory store, got %T", store)
		}
	})

	t.Run("sqlite migrates on open", func(t *testing.T) {
		dsn := sqlstore.SQLiteDSN(filepath.Join(t.TempDir(), "assetd.db"))
		store, err := openStore(ctx, config.Config{DBDriver: config.DriverSQLite, DBDSN: dsn}, quietLogger)
		if err != nil {
			t.Fatalf("openStore returned error: %v", err)
		}
		defer store.Close()
		if err := store.Ping(ctx); err != nil {
			t.Fatalf("Ping returned error: %v", err)
		}
		report, err := importAssets(ctx, store, strings.NewReader("asset_tag_id\nSQL-1\n"), quietLogger, importTime)
		if err != nil || report.Created != 1 {
			t.Fatalf("import into sqlite failed: %+v %v", report, err)
		}
	})

	t.Run("unknown driver", func(t *testing.T) {
		if _, err := openStore(ctx, config.Config{DBDriver: "oracle"}, quietLogger); err == nil {
			t.Fatal("expected error for unsupported driver")
		}
	})
}

func TestRetriesOption(t *testing.T) {
	tests := map[int]int{0: -1, 1: 1, 5: 5}
	for configured, want := range tests {
		if got := retriesOption(configured); got != want {
			t.Fatalf("retriesOption(%d) = %d, want %d", configured, got, want)
		}
	}
}

func TestOperatorAddCommand(t *testing.T) {
	t.Setenv("ASSETD_ENV_FILE", filepath.Join(t.TempDir(), "absent.env"))
	t.Setenv("ASSETD_DB_DRIVER", "sqlite")
	t.Setenv("ASSETD_DB_DSN", sqlstore.SQLiteDSN(filepath.Join(t.TempDir(), "cli.db")))
	t.Setenv("ASSETD_TOKEN_SECRET", "")
	t.Setenv("ASSETD_POLICY_FILE", "")

	var out bytes.Buffer
	app := newApp(&out)
	err := app.Run(context.Background(), []string{"assetd", "--log-level", "error", "operator", "add", "--id", "cli-op", "--name", "CLI", "--role", "custodian"})
	if err != nil {
		t.Fatalf("operator add returned error: %v", err)
	}
	if !strings.Contains(out.String(), "operator cli-op created") || !strings.Contains(out.String(), "api key: ") {
		t.Fatalf("unexpected output %q", out.String())
	}
}
