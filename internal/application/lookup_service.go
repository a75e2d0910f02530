package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shoreagents/shoreagents-asset-dog-sub005/internal/lifecycle"
	"github.com/shoreagents/shoreagents-asset-dog-sub005/internal/persistence"
)

const (
	defaultSuggestLimit = 10
	maxSuggestLimit     = 50
)

// LookupService resolves scanned or typed identifiers to assets.
type LookupService struct {
	assets persistence.AssetRegistry
	now    func() time.Time
	logger *slog.Logger
}

// NewLookupService constructs a LookupService.
func NewLookupService(assets persistence.AssetRegistry, now func() time.Time) *LookupService {
	return NewLookupServiceWithLogger(assets, now, nil)
}

// NewLookupServiceWithLogger constructs a LookupService with a specified logger.
func NewLookupServiceWithLogger(assets persistence.AssetRegistry, now func() time.Time, logger *slog.Logger) *LookupService {
	if now == nil {
		now = time.Now
	}
	return &LookupService{assets: assets, now: now, logger: defaultLogger(logger)}
}

func (s *LookupService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "LookupService", operation, attrs...)
}

// Resolve returns the asset whose tag equals identifier, ignoring case and
// surrounding whitespace. Partial matches never resolve.
func (s *LookupService) Resolve(ctx context.Context, identifier string) (asset persistence.Asset, err error) {
	logger := s.loggerWith(ctx, "Resolve", "identifier", identifier)
	defer func() {
		if err != nil {
			logger.DebugContext(ctx, "asset not resolved", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.DebugContext(ctx, "asset resolved", "asset_id", asset.ID)
	}()

	return resolveAsset(ctx, s.assets, identifier)
}

// Suggest returns candidates whose tag contains the query. The list is meant
// for interactive pickers; callers must Resolve the chosen tag before mutating.
func (s *LookupService) Suggest(ctx context.Context, params SuggestParams) (assets []persistence.Asset, err error) {
	logger := s.loggerWith(ctx, "Suggest",
		"query", params.Query,
		"purpose", string(params.Purpose),
	)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "suggestion failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.DebugContext(ctx, "suggestions listed", "count", len(assets))
	}()

	filter := persistence.AssetFilter{Query: strings.TrimSpace(params.Query), Limit: params.Limit}
	switch {
	case filter.Limit <= 0:
		filter.Limit = defaultSuggestLimit
	case filter.Limit > maxSuggestLimit:
		filter.Limit = maxSuggestLimit
	}

	switch params.Purpose {
	case SuggestCheckout:
		today := s.now()
		filter.Statuses = []lifecycle.Status{lifecycle.StatusAvailable}
		filter.ExcludeReservedOn = &today
	case SuggestCheckin:
		filter.Statuses = []lifecycle.Status{lifecycle.StatusCheckedOut}
	case SuggestReserve:
		filter.Statuses = []lifecycle.Status{lifecycle.StatusAvailable}
	case SuggestAny, "":
	default:
		verr := &ValidationError{}
		verr.add("for", fmt.Sprintf("unknown purpose %q", params.Purpose))
		err = verr
		return
	}

	assets, err = s.assets.SearchAssets(ctx, filter)
	return
}

func resolveAsset(ctx context.Context, assets persistence.AssetRegistry, identifier string) (persistence.Asset, error) {
	tag := strings.TrimSpace(identifier)
	if tag == "" {
		return persistence.Asset{}, lifecycle.Refuse(lifecycle.KindNotFound, "empty identifier")
	}
	asset, err := assets.GetAssetByTag(ctx, tag)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.Asset{}, lifecycle.Refuse(lifecycle.KindNotFound, fmt.Sprintf("no asset tagged %q", tag))
		}
		return persistence.Asset{}, fmt.Errorf("resolve %q: %w", tag, err)
	}
	return asset, nil
}
