package sessions

import (
	"log/slog"
	"sync"
	"time"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Registry owns the authoritative set of media sessions for one device,
// plus the pointer to the currently selected package. The pointer is a
// relation, not ownership: it may reference a package that has since been
// removed and self-heals to none on the next read.
//
// Reads (Get, All, Fresh, Selected) hand out detached copies. Reconcile
// mutates the live structs in place under the lock, so a shared pointer
// would race against the next snapshot the moment the lock is released.
type Registry struct {
	device   string
	mu       sync.RWMutex
	sessions map[string]*Session
	selected string

	// now is swappable so tests can drive the staleness rules with a
	// simulated clock.
	now func() time.Time
}

func NewRegistry(device string) *Registry {
	return &Registry{
		device:   device,
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

func (r *Registry) Device() string {
	return r.device
}

// Reconcile applies a parsed snapshot with full-replace semantics: every
// candidate is created or updated in place, then every session absent from
// the snapshot is removed as an orphan. A snapshot is assumed to enumerate
// all currently reported sessions, so this is not a diff.
//
// LastUpdated is refreshed on every pass, even when the values did not
// change; the companion app re-reports unchanged sessions to signal they
// are still alive.
func (r *Registry) Reconcile(candidates map[string]Candidate) {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	for packageName, candidate := range candidates {
		session, exists := r.sessions[packageName]
		if !exists {
			session = &Session{PackageName: packageName}
			r.sessions[packageName] = session
			slog.Debug("Added media session",
				slog.String("device", r.device),
				slog.String("package", packageName))
		}
		session.MediaID = candidate.MediaID
		session.State = candidate.State
		session.Title = candidate.Title
		session.Artist = candidate.Artist
		session.Album = candidate.Album
		session.Duration = candidate.Duration
		session.Position = candidate.Position
		session.LastUpdated = now
	}

	for packageName := range r.sessions {
		if _, ok := candidates[packageName]; !ok {
			delete(r.sessions, packageName)
			slog.Debug("Removed orphaned media session",
				slog.String("device", r.device),
				slog.String("package", packageName))
		}
	}
}

// Get returns a copy of the session for a package, or nil if none is
// tracked.
func (r *Registry) Get(packageName string) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[packageName]
	if !ok {
		return nil
	}
	return session.clone()
}

// All returns a copy of every tracked session ordered by package name. The
// ordering exists purely so that readers (and the selection tie-break)
// behave deterministically.
func (r *Registry) All() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := r.allLocked()
	out := make([]*Session, len(all))
	for i, session := range all {
		out[i] = session.clone()
	}
	return out
}

func (r *Registry) allLocked() []*Session {
	keys := maps.Keys(r.sessions)
	slices.Sort(keys)
	all := make([]*Session, 0, len(keys))
	for _, key := range keys {
		all = append(all, r.sessions[key])
	}
	return all
}

// Fresh returns a copy of every session still within the timeout window,
// ordered by package name.
func (r *Registry) Fresh(timeout time.Duration) []*Session {
	now := r.now()

	r.mu.RLock()
	defer r.mu.RUnlock()

	var fresh []*Session
	for _, session := range r.allLocked() {
		if !session.Stale(timeout, now) {
			fresh = append(fresh, session.clone())
		}
	}
	return fresh
}

// SetArtworkURL applies an asynchronously resolved artwork URL, but only if
// the session still exists. Resolutions that outlive their session are
// dropped on the floor. Reports whether anything changed.
func (r *Registry) SetArtworkURL(packageName, url string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[packageName]
	if !ok || session.ArtworkURL == url {
		return false
	}
	session.ArtworkURL = url
	return true
}

// Sweep removes every session whose last update precedes now minus the
// timeout and returns the removed package names. If the selected session is
// among them, the selection is cleared so the next read recomputes it.
func (r *Registry) Sweep(timeout time.Duration) []string {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	var removed []string
	for packageName, session := range r.sessions {
		if session.Stale(timeout, now) {
			delete(r.sessions, packageName)
			removed = append(removed, packageName)
			slog.Debug("Removed stale media session",
				slog.String("device", r.device),
				slog.String("package", packageName))
		}
	}
	slices.Sort(removed)

	if r.selected != "" {
		if _, ok := r.sessions[r.selected]; !ok {
			r.selected = ""
		}
	}

	return removed
}

// Len returns the number of tracked sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
