// Package sqlstore implements persistence.Store on database/sql for SQLite
// (modernc, pure Go) and Postgres (pgx). Status writes are compare-and-swap
// updates guarded by a row version; ledger invariants are also backed by
// unique indexes so a bug in the guard cannot create a second open checkout.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shoreagents/shoreagents-asset-dog-sub005/internal/lifecycle"
	"github.com/shoreagents/shoreagents-asset-dog-sub005/internal/persistence"
)

var _ persistence.Store = (*Store)(nil)

const timestampLayout = "2006-01-02T15:04:05.000000000Z"

// Store implements persistence.Store using SQL
type Store struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
	retry  *RetryHelper
}

// Open connects to the database described by cfg. Call Migrate before use.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	pool, err := NewConnectionPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	retry := cfg.Retry
	if retry == (RetryConfig{}) {
		retry = DefaultRetryConfig()
	}
	return &Store{pool: pool, mapper: NewErrorMapper(), retry: NewRetryHelper(retry)}, nil
}

// Close closes the underlying pool.
func (s *Store) Close() error {
	return s.pool.Close()
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// WithinTx runs fn in one database transaction. Lock contention is retried;
// every other failure rolls back and is returned mapped to persistence errors.
func (s *Store) WithinTx(ctx context.Context, fn func(tx persistence.Tx) error) error {
	return s.retry.WithRetry(ctx, func() error {
		return s.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			return fn(&sqlTx{tx: tx, pool: s.pool, mapper: s.mapper})
		})
	})
}

const assetColumns = `id, asset_tag_id, description, status, category, sub_category, location, department, site, cost, version, created_at, updated_at`

// --- AssetRegistry implementation ---

// CreateAsset inserts a new asset
func (s *Store) CreateAsset(ctx context.Context, asset persistence.Asset) error {
	if asset.ID == "" || strings.TrimSpace(asset.TagID) == "" {
		return fmt.Errorf("sqlstore: asset id and tag are required")
	}
	now := time.Now().UTC()
	if asset.CreatedAt.IsZero() {
		asset.CreatedAt = now
	}
	if asset.UpdatedAt.IsZero() {
		asset.UpdatedAt = asset.CreatedAt
	}
	if asset.Status == "" {
		asset.Status = lifecycle.StatusAvailable
	}

	query := `
		INSERT INTO assets (` + assetColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.pool.DB().ExecContext(ctx, s.pool.Rebind(query),
		asset.ID,
		strings.TrimSpace(asset.TagID),
		asset.Description,
		string(asset.Status),
		asset.Category,
		asset.SubCategory,
		asset.Location,
		asset.Department,
		asset.Site,
		nullFloat(asset.Cost),
		asset.Version,
		formatTimestamp(asset.CreatedAt),
		formatTimestamp(asset.UpdatedAt),
	)
	if err != nil {
		return s.mapper.MapError(err)
	}
	return nil
}

// GetAsset retrieves an asset by id
func (s *Store) GetAsset(ctx context.Context, id string) (persistence.Asset, error) {
	if id == "" {
		return persistence.Asset{}, persistence.ErrNotFound
	}
	row := s.pool.DB().QueryRowContext(ctx, s.pool.Rebind(`SELECT `+assetColumns+` FROM assets WHERE id = ?`), id)
	return s.scanAssetRow(row)
}

// GetAssetByTag retrieves an asset by exact tag, ignoring case
func (s *Store) GetAssetByTag(ctx context.Context, tag string) (persistence.Asset, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return persistence.Asset{}, persistence.ErrNotFound
	}
	row := s.pool.DB().QueryRowContext(ctx, s.pool.Rebind(`SELECT `+assetColumns+` FROM assets WHERE lower(asset_tag_id) = lower(?)`), tag)
	return s.scanAssetRow(row)
}

// SearchAssets lists assets whose tag contains the query, prefix matches first
func (s *Store) SearchAssets(ctx context.Context, filter persistence.AssetFilter) ([]persistence.Asset, error) {
	var (
		where []string
		args  []any
	)

	query := strings.ToLower(strings.TrimSpace(filter.Query))
	if query != "" {
		where = append(where, `lower(asset_tag_id) LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(query)+"%")
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			placeholders[i] = "?"
			args = append(args, strings.ToLower(string(status)))
		}
		where = append(where, `lower(COALESCE(status, 'Available')) IN (`+strings.Join(placeholders, ", ")+`)`)
	}
	if filter.ExcludeReservedOn != nil {
		where = append(where, `NOT EXISTS (
			SELECT 1 FROM reservations r
			WHERE r.asset_id = assets.id AND r.cancelled_at IS NULL AND r.reservation_date >= ?
		)`)
		args = append(args, formatTimestamp(startOfDay(*filter.ExcludeReservedOn)))
	}

	sqlText := `SELECT ` + assetColumns + ` FROM assets`
	if len(where) > 0 {
		sqlText += ` WHERE ` + strings.Join(where, " AND ")
	}
	sqlText += ` ORDER BY CASE WHEN lower(asset_tag_id) LIKE ? ESCAPE '\' THEN 0 ELSE 1 END, lower(asset_tag_id)`
	args = append(args, escapeLike(query)+"%")
	if filter.Limit > 0 {
		sqlText += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.pool.DB().QueryContext(ctx, s.pool.Rebind(sqlText), args...)
	if err != nil {
		return nil, s.mapper.MapError(err)
	}
	defer rows.Close()

	assets := make([]persistence.Asset, 0)
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, asset)
	}
	if err := rows.Err(); err != nil {
		return nil, s.mapper.MapError(err)
	}
	return assets, nil
}

func (s *Store) scanAssetRow(row *sql.Row) (persistence.Asset, error) {
	asset, err := scanAsset(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Asset{}, persistence.ErrNotFound
		}
		return persistence.Asset{}, s.mapper.MapError(err)
	}
	return asset, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAsset(row rowScanner) (persistence.Asset, error) {
	var (
		asset                persistence.Asset
		status               sql.NullString
		cost                 sql.NullFloat64
		createdAt, updatedAt string
	)
	if err := row.Scan(
		&asset.ID,
		&asset.TagID,
		&asset.Description,
		&status,
		&asset.Category,
		&asset.SubCategory,
		&asset.Location,
		&asset.Department,
		&asset.Site,
		&cost,
		&asset.Version,
		&createdAt,
		&updatedAt,
	); err != nil {
		return persistence.Asset{}, err
	}

	parsed, err := lifecycle.ParseStatus(status.String)
	if err != nil {
		return persistence.Asset{}, fmt.Errorf("sqlstore: asset %s: %w", asset.ID, err)
	}
	asset.Status = parsed
	if cost.Valid {
		value := cost.Float64
		asset.Cost = &value
	}
	if asset.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return persistence.Asset{}, err
	}
	if asset.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return persistence.Asset{}, err
	}
	return asset, nil
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func parseTimestamp(value string) (time.Time, error) {
	t, err := time.Parse(timestampLayout, value)
	if err != nil {
		t, err = time.Parse(time.RFC3339Nano, value)
		if err != nil {
			return time.Time{}, fmt.Errorf("sqlstore: parse timestamp %q: %w", value, err)
		}
	}
	return t.UTC(), nil
}

func nullTimestamp(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTimestamp(*t), Valid: true}
}

func parseNullTimestamp(value sql.NullString) (*time.Time, error) {
	if !value.Valid {
		return nil, nil
	}
	t, err := parseTimestamp(value.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}

func stringPtr(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	v := value.String
	return &v
}

func nullFloat(value *float64) sql.NullFloat64 {
	if value == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *value, Valid: true}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
