/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// BroadcastKind enumerates what a station can be airing.
type BroadcastKind string

const (
	KindMusic          BroadcastKind = "music"
	KindShow           BroadcastKind = "show"
	KindAds            BroadcastKind = "ads"
	KindBlank          BroadcastKind = "blank"
	KindWaitingForNext BroadcastKind = "waiting_for_next"
)

// Track is a locally stored audio file identified by its path.
// Instances are immutable once loaded from the tag reader.
type Track struct {
	Path     string        `json:"path"`
	Artist   string        `json:"artist"`
	Title    string        `json:"title"`
	Album    string        `json:"album,omitempty"`
	Duration time.Duration `json:"duration"`
}

// BroadcastMetadata is the canonical record of what is currently airing on a
// channel. Produced fresh on every tick, never mutated, only replaced.
type BroadcastMetadata struct {
	Kind      BroadcastKind `json:"type"`
	Station   string        `json:"station"`
	End       int64         `json:"end"` // epoch seconds, 0 = unknown
	Artist    string        `json:"artist,omitempty"`
	Title     string        `json:"title,omitempty"`
	Album     string        `json:"album,omitempty"`
	Show      string        `json:"show,omitempty"`
	Summary   string        `json:"summary,omitempty"`
	Thumbnail string        `json:"thumbnail_src,omitempty"`
	Link      string        `json:"link,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// DisplayInfo is the client-facing projection of BroadcastMetadata.
// Unknown text fields are empty strings, never absent; an unknown end is 0.
// The JSON keys and the millisecond end timestamp are part of the client
// contract and must not change.
type DisplayInfo struct {
	Thumbnail      string `json:"current_thumbnail"`
	Station        string `json:"current_station"`
	BroadcastTitle string `json:"current_broadcast_title"`
	ShowTitle      string `json:"current_show_title"`
	Summary        string `json:"current_broadcast_summary"`
	BroadcastEnd   int64  `json:"current_broadcast_end"` // epoch milliseconds, 0 = unknown
}
