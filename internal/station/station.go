/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package station adapts heterogeneous upstream radio sources to one
// normalized broadcast metadata contract.
package station

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/friendsincode/tournesol/internal/models"
)

var (
	// ErrUpstreamUnavailable marks a timeout or network failure fetching an
	// upstream source. Callers recover with locally synthesized fallback
	// metadata; the tick continues.
	ErrUpstreamUnavailable = errors.New("upstream station unavailable")

	// ErrUpstreamFormat marks a response whose markup or schema does not
	// match expectations. It fails the current fetch only.
	ErrUpstreamFormat = errors.New("unexpected upstream response format")
)

// Station is one source of broadcast content.
//
// GetMetadata fetches the normalized record of what the source is currently
// airing. FormatDisplay is a pure function of its arguments: it projects a
// metadata record into the client display form, substituting the station's
// own thumbnail and name where the record omits them, and emitting empty
// strings (never absent fields) for unknown text, 0 for an unknown end.
type Station interface {
	Name() string
	Thumbnail() string
	GetMetadata(ctx context.Context, now time.Time) (models.BroadcastMetadata, error)
	FormatDisplay(meta models.BroadcastMetadata, now time.Time) models.DisplayInfo
}

// Registry maps station display names to their single long-lived instances.
// Built once at process start and never mutated afterwards.
type Registry struct {
	byName map[string]Station
	order  []string
}

// NewRegistry registers the given stations. Two stations sharing a display
// name is a programming error and rejected.
func NewRegistry(stations ...Station) (*Registry, error) {
	reg := &Registry{byName: make(map[string]Station, len(stations))}
	for _, st := range stations {
		name := st.Name()
		if name == "" {
			return nil, fmt.Errorf("station with empty display name")
		}
		if _, dup := reg.byName[name]; dup {
			return nil, fmt.Errorf("duplicate station name %q", name)
		}
		reg.byName[name] = st
		reg.order = append(reg.order, name)
	}
	return reg, nil
}

// Get returns the station registered under name.
func (r *Registry) Get(name string) (Station, bool) {
	st, ok := r.byName[name]
	return st, ok
}

// Names lists registered display names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// All returns the registered stations in registration order.
func (r *Registry) All() []Station {
	out := make([]Station, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}

// KindLabel renders a broadcast kind as display text for non-music slots.
func KindLabel(kind models.BroadcastKind) string {
	switch kind {
	case models.KindMusic:
		return "Music"
	case models.KindShow:
		return "Show"
	case models.KindAds:
		return "Commercial break"
	case models.KindBlank:
		return "Interlude"
	case models.KindWaitingForNext:
		return "Up next"
	default:
		return ""
	}
}

// htmlAnchor renders text as a link when href is non-empty, plain text
// otherwise. Display titles may carry markup; clients render them as HTML.
func htmlAnchor(href, text string) string {
	if href == "" {
		return text
	}
	return fmt.Sprintf(`<a target="_blank" href="%s">%s</a>`, href, text)
}
