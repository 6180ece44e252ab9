package services

import (
	"context"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/username/flexfolio/src/logger"
	"github.com/username/flexfolio/src/reference"
	"github.com/username/flexfolio/src/store"
	"golang.org/x/time/rate"
)

const (
	resolutionCacheExpiration = 12 * time.Hour
	resolutionCacheCleanup    = 1 * time.Hour
)

// SymbolResolver resolves ISINs to tradable tickers through a short-circuit
// cascade: cached prior result, locally known holding, curated static table,
// external lookup, and finally a keyword heuristic. Unresolvable-but-
// plausible entries park as pending for the rate-limited retry pass.
type SymbolResolver struct {
	store   *store.Store
	tables  *reference.Tables
	lookup  LookupClient
	cache   *cache.Cache
	limiter *rate.Limiter
}

// NewSymbolResolver creates the resolver. lookupInterval throttles external
// calls; the provider quota tolerates roughly one call per 1.1 seconds.
func NewSymbolResolver(s *store.Store, tables *reference.Tables, lookup LookupClient, lookupInterval time.Duration) *SymbolResolver {
	return &SymbolResolver{
		store:   s,
		tables:  tables,
		lookup:  lookup,
		cache:   cache.New(resolutionCacheExpiration, resolutionCacheCleanup),
		limiter: rate.NewLimiter(rate.Every(lookupInterval), 1),
	}
}

// Resolve runs the cascade for one ISIN. Every outcome, pending included,
// is written back to the cache and the store so the next call short-circuits.
func (r *SymbolResolver) Resolve(ctx context.Context, isin, name string) store.Resolution {
	if cached, found := r.cache.Get(isin); found {
		return cached.(store.Resolution)
	}
	if persisted, err := r.store.GetResolution(isin); err == nil && persisted != nil {
		r.cache.Set(isin, *persisted, cache.DefaultExpiration)
		return *persisted
	}

	res := r.resolveUncached(ctx, isin, name)
	r.remember(res)
	return res
}

func (r *SymbolResolver) resolveUncached(ctx context.Context, isin, name string) store.Resolution {
	// Locally known holding with symbol and exchange.
	if symbol, exchange, err := r.store.FindPositionSymbolExchange(isin); err == nil && symbol != "" {
		return store.Resolution{
			ISIN:   isin,
			Status: store.ResolutionResolved,
			Symbol: symbol + r.tables.ExchangeSuffixes[exchange],
		}
	}

	// Curated static tables.
	if symbol, ok := r.tables.StaticSymbols[isin]; ok {
		return store.Resolution{ISIN: isin, Status: store.ResolutionResolved, Symbol: symbol}
	}
	if reason, ok := r.tables.UnmappableISINs[isin]; ok {
		return store.Resolution{ISIN: isin, Status: store.ResolutionUnmappable, Reason: reason}
	}

	// External lookup.
	if result, err := r.external(ctx, isin); err != nil {
		logger.L.Warn("External symbol lookup failed", "isin", isin, "error", err)
	} else if result != nil {
		return *result
	}

	// Heuristic: leveraged/structured products have no tradable ticker.
	upperName := strings.ToUpper(name)
	for _, kw := range r.tables.UnmappableKeywords {
		if strings.Contains(upperName, kw) {
			return store.Resolution{
				ISIN:   isin,
				Status: store.ResolutionUnmappable,
				Reason: "structured product keyword: " + kw,
			}
		}
	}

	return store.Resolution{ISIN: isin, Status: store.ResolutionPending}
}

// ResolveMissing runs the cascade over every instrument that has no symbol
// yet. Each outcome persists through Resolve, so ISINs the cascade cannot
// place land as pending entries for the retry pass to work on.
func (r *SymbolResolver) ResolveMissing(ctx context.Context) (resolved, pending, unmappable int, err error) {
	missing, err := r.store.InstrumentsMissingSymbol()
	if err != nil {
		return 0, 0, 0, err
	}
	for _, m := range missing {
		switch res := r.Resolve(ctx, m.ISIN, m.Name); res.Status {
		case store.ResolutionResolved:
			resolved++
		case store.ResolutionUnmappable:
			unmappable++
		default:
			pending++
		}
	}
	logger.L.Info("Symbol resolution pass finished",
		"resolved", resolved, "pending", pending, "unmappable", unmappable)
	return resolved, pending, unmappable, nil
}

// RetryPending re-attempts every pending ISIN against the external lookup.
// Each outcome updates the cache; an ISIN that still finds nothing stays
// pending for the next pass, so no entry is retried more than once per run.
func (r *SymbolResolver) RetryPending(ctx context.Context) (resolved, stillPending int, err error) {
	pending, err := r.store.ListPendingResolutions()
	if err != nil {
		return 0, 0, err
	}
	for _, entry := range pending {
		result, lookupErr := r.external(ctx, entry.ISIN)
		if lookupErr != nil {
			if ctx.Err() != nil {
				return resolved, stillPending, ctx.Err()
			}
			logger.L.Warn("Pending retry lookup failed", "isin", entry.ISIN, "error", lookupErr)
			stillPending++
			continue
		}
		if result == nil {
			stillPending++
			continue
		}
		r.remember(*result)
		resolved++
	}
	logger.L.Info("Pending ISIN retry pass finished", "resolved", resolved, "stillPending", stillPending)
	return resolved, stillPending, nil
}

// external performs one rate-limited lookup call, normalizing the provider's
// exchange name to a ticker suffix. A nil, nil return means the provider had
// nothing.
func (r *SymbolResolver) external(ctx context.Context, isin string) (*store.Resolution, error) {
	if r.lookup == nil {
		return nil, nil
	}
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	result, err := r.lookup.LookupByISIN(ctx, isin)
	if err != nil || result == nil {
		return nil, err
	}
	symbol := result.Symbol
	if !strings.Contains(symbol, ".") {
		if suffix, ok := r.tables.ExchangeSuffixes[strings.ToUpper(result.Exchange)]; ok {
			symbol += suffix
		}
	}
	return &store.Resolution{ISIN: isin, Status: store.ResolutionResolved, Symbol: symbol}, nil
}

func (r *SymbolResolver) remember(res store.Resolution) {
	r.cache.Set(res.ISIN, res, cache.DefaultExpiration)
	if err := r.store.SaveResolution(res); err != nil {
		logger.L.Error("Failed to persist symbol resolution", "isin", res.ISIN, "error", err)
	}
}
