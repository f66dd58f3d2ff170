/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package catalog loads the locally stored backup tracks through the tag
// reading capability and prepares them for playout.
package catalog

import (
	"context"
	"fmt"
	"math/rand"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/friendsincode/tournesol/internal/models"
)

// Tags holds the fields the tag reader extracts from an audio file.
type Tags struct {
	Artist   string
	Title    string
	Album    string
	Duration float64 // seconds
}

// TagReader extracts tags from an audio file on disk.
type TagReader interface {
	ReadTags(ctx context.Context, path string) (Tags, error)
}

// Loader builds playable track records from files matching a glob pattern.
type Loader struct {
	pattern string
	reader  TagReader
}

// NewLoader creates a catalog loader over the given glob pattern.
func NewLoader(pattern string, reader TagReader) *Loader {
	return &Loader{pattern: pattern, reader: reader}
}

// Load reads every file matching the pattern and returns track records sorted
// by lowercased artist+title. A file missing its artist or title tag fails the
// whole load: downstream code assumes every track carries both.
func (l *Loader) Load(ctx context.Context) ([]models.Track, error) {
	paths, err := filepath.Glob(l.pattern)
	if err != nil {
		return nil, fmt.Errorf("bad catalog pattern %q: %w", l.pattern, err)
	}

	tracks := make([]models.Track, 0, len(paths))
	for _, path := range paths {
		tags, err := l.reader.ReadTags(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("read tags of %s: %w", path, err)
		}
		if tags.Artist == "" || tags.Title == "" {
			return nil, fmt.Errorf("track %s must have an artist and a title in its tags", path)
		}
		tracks = append(tracks, models.Track{
			Path:     path,
			Artist:   tags.Artist,
			Title:    tags.Title,
			Album:    tags.Album,
			Duration: secondsToDuration(tags.Duration),
		})
	}

	sort.Slice(tracks, func(i, j int) bool {
		return strings.ToLower(tracks[i].Artist+tracks[i].Title) <
			strings.ToLower(tracks[j].Artist+tracks[j].Title)
	})
	return tracks, nil
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}

// Shuffle returns a shuffled copy of tracks using the provided randomness
// source. The input slice is not mutated.
func Shuffle(tracks []models.Track, rng *rand.Rand) []models.Track {
	out := make([]models.Track, len(tracks))
	copy(out, tracks)
	rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}
