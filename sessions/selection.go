package sessions

import (
	"log/slog"
	"strings"
	"time"
)

// Selected evaluates the selection policy against the live registry and
// returns a copy of the session the device is "really" playing from, if
// any.
//
// The policy, evaluated lazily on every read:
//
//  1. A selected session that still exists and whose effective state is
//     playing, paused or buffering stays selected (stickiness; avoids
//     flapping between concurrently playing apps).
//  2. Otherwise the first session, in package order, whose effective state
//     is playing or buffering wins.
//  3. Failing that, the first session still within the timeout window wins.
//  4. Failing that, there is no selection.
func (r *Registry) Selected(timeout time.Duration) *Session {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	// Self-heal a pointer whose referent has disappeared.
	if r.selected != "" {
		if _, ok := r.sessions[r.selected]; !ok {
			r.selected = ""
		}
	}

	if r.selected != "" {
		current := r.sessions[r.selected]
		if meaningful(current.EffectiveState(timeout, now)) {
			return current.clone()
		}
	}

	for _, candidate := range r.allLocked() {
		if active(candidate.EffectiveState(timeout, now)) {
			r.setSelectedLocked(candidate.PackageName)
			return candidate.clone()
		}
	}

	for _, candidate := range r.allLocked() {
		if !candidate.Stale(timeout, now) {
			r.setSelectedLocked(candidate.PackageName)
			return candidate.clone()
		}
	}

	r.setSelectedLocked("")
	return nil
}

// Select switches the selection to the session matching the given source,
// compared case-insensitively against both the friendly display name and
// the raw package name. Only sessions still within the timeout window are
// eligible. Reports whether a session matched and whether the selection
// actually changed; an unmatched source leaves the selection untouched.
func (r *Registry) Select(source string, timeout time.Duration) (matched, changed bool) {
	normalized := strings.ToLower(strings.TrimSpace(source))
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, session := range r.allLocked() {
		if session.Stale(timeout, now) {
			continue
		}
		friendly := strings.ToLower(strings.TrimSpace(session.DisplayName()))
		packageName := strings.ToLower(strings.TrimSpace(session.PackageName))
		if friendly == normalized || packageName == normalized {
			changed = r.selected != session.PackageName
			r.setSelectedLocked(session.PackageName)
			return true, changed
		}
	}

	slog.Warn("Source not found in fresh sessions; selection unchanged",
		slog.String("device", r.device),
		slog.String("source", source))
	return false, false
}

// SourceList returns the friendly names of every fresh session, in package
// order.
func (r *Registry) SourceList(timeout time.Duration) []string {
	sessions := r.Fresh(timeout)
	sources := make([]string, 0, len(sessions))
	for _, session := range sessions {
		sources = append(sources, session.DisplayName())
	}
	return sources
}

func (r *Registry) setSelectedLocked(packageName string) {
	if r.selected == packageName {
		return
	}
	r.selected = packageName
	if packageName == "" {
		slog.Debug("Switched to selected session NONE",
			slog.String("device", r.device))
		return
	}
	slog.Debug("Switched selected session",
		slog.String("device", r.device),
		slog.String("package", packageName))
}
