// Package artwork resolves album art for media sessions from their media
// IDs, using provider-specific public endpoints. Results, including failed
// lookups, are cached to bound both request volume and memory growth.
package artwork

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	// How long a resolved image URL stays cached.
	positiveTTL = time.Hour
	// How long a failed lookup stays cached, so we neither hammer the
	// provider nor starve legitimately changed artwork.
	negativeTTL = 5 * time.Minute
	// Above this many entries, a put sweeps out already-expired entries.
	// This is not an LRU: if everything is still live the cache keeps
	// growing until entries expire.
	pruneThreshold = 500

	requestTimeout = 10 * time.Second
)

// Provider resolves artwork for one family of media IDs.
type Provider interface {
	// Matches reports whether this provider understands the media ID,
	// given the package name of the reporting app as a hint.
	Matches(mediaID, packageName string) bool
	// Resolve performs one bounded lookup and returns the image URL, or
	// "" when the provider found nothing. Errors are diagnostics only;
	// the caller degrades them to "no artwork".
	Resolve(ctx context.Context, mediaID string) (string, error)
}

// entry is a cached lookup outcome. found distinguishes "resolved to this
// URL" from "confirmed there is none" so that a cached negative result is
// not mistaken for a cache miss.
type entry struct {
	url    string
	found  bool
	expiry time.Time
}

type Resolver struct {
	providers []Provider

	mu    sync.Mutex
	cache map[string]entry

	now func() time.Time
}

func NewResolver(providers ...Provider) *Resolver {
	return &Resolver{
		providers: providers,
		cache:     make(map[string]entry),
		now:       time.Now,
	}
}

// Resolve returns the artwork URL for a media ID, or ok=false when there is
// none. Lookups are keyed by media ID alone; the package name only steers
// provider selection. Failures of any kind degrade to "no artwork" and are
// cached as negative results.
func (r *Resolver) Resolve(ctx context.Context, mediaID, packageName string) (string, bool) {
	if mediaID == "" {
		return "", false
	}

	if url, found, cached := r.lookup(mediaID); cached {
		return url, found
	}

	url := r.resolveUncached(ctx, mediaID, packageName)
	r.put(mediaID, url)
	return url, url != ""
}

func (r *Resolver) resolveUncached(ctx context.Context, mediaID, packageName string) string {
	for _, provider := range r.providers {
		if !provider.Matches(mediaID, packageName) {
			continue
		}
		ctx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()

		url, err := provider.Resolve(ctx, mediaID)
		if err != nil {
			slog.Debug("Artwork lookup failed",
				slog.String("media_id", mediaID),
				slog.Any("error", err))
			return ""
		}
		if url != "" {
			slog.Debug("Resolved artwork",
				slog.String("media_id", mediaID),
				slog.String("url", url))
		}
		return url
	}
	// No provider understands this media ID; resolve to absent without
	// any network interaction.
	return ""
}

// Seed pre-populates the cache with previously persisted positive results,
// e.g. after a restart.
func (r *Resolver) Seed(urls map[string]string) {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	for mediaID, url := range urls {
		if url == "" {
			continue
		}
		r.cache[mediaID] = entry{url: url, found: true, expiry: now.Add(positiveTTL)}
	}
}

func (r *Resolver) lookup(mediaID string) (url string, found bool, cached bool) {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.cache[mediaID]
	if !ok {
		return "", false, false
	}
	if !now.Before(e.expiry) {
		delete(r.cache, mediaID)
		return "", false, false
	}
	return e.url, e.found, true
}

func (r *Resolver) put(mediaID, url string) {
	now := r.now()

	ttl := negativeTTL
	if url != "" {
		ttl = positiveTTL
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.cache[mediaID] = entry{url: url, found: url != "", expiry: now.Add(ttl)}

	if len(r.cache) > pruneThreshold {
		r.pruneLocked(now)
	}
}

// Prune removes expired entries. Also invoked opportunistically when the
// cache grows past the threshold.
func (r *Resolver) Prune() int {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	return r.pruneLocked(now)
}

func (r *Resolver) pruneLocked(now time.Time) int {
	var pruned int
	for mediaID, e := range r.cache {
		if !now.Before(e.expiry) {
			delete(r.cache, mediaID)
			pruned++
		}
	}
	return pruned
}

// Size returns the number of cached entries, live or expired.
func (r *Resolver) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.cache)
}
