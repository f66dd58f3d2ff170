/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package catalog

import (
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/friendsincode/tournesol/internal/models"
)

// fakeReader serves tags keyed by file base name.
type fakeReader struct {
	tags map[string]Tags
}

func (f *fakeReader) ReadTags(_ context.Context, path string) (Tags, error) {
	return f.tags[filepath.Base(path)], nil
}

func writeFiles(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestLoadSortsByArtistTitle(t *testing.T) {
	dir := writeFiles(t, "a.ogg", "b.ogg", "c.ogg")
	reader := &fakeReader{tags: map[string]Tags{
		"a.ogg": {Artist: "zz top", Title: "Legs", Duration: 180},
		"b.ogg": {Artist: "ABBA", Title: "SOS", Album: "ABBA", Duration: 200},
		"c.ogg": {Artist: "abba", Title: "Eagle", Duration: 350},
	}}

	tracks, err := NewLoader(filepath.Join(dir, "*.ogg"), reader).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(tracks) != 3 {
		t.Fatalf("Load returned %d tracks, want 3", len(tracks))
	}

	wantTitles := []string{"Eagle", "SOS", "Legs"}
	for i, want := range wantTitles {
		if tracks[i].Title != want {
			t.Errorf("tracks[%d].Title = %q, want %q", i, tracks[i].Title, want)
		}
	}
	if tracks[1].Duration != 200*time.Second {
		t.Errorf("duration = %v, want 200s", tracks[1].Duration)
	}
	if tracks[1].Album != "ABBA" {
		t.Errorf("album = %q, want ABBA", tracks[1].Album)
	}
}

func TestLoadFailsOnMissingTags(t *testing.T) {
	dir := writeFiles(t, "good.ogg", "untagged.ogg")
	reader := &fakeReader{tags: map[string]Tags{
		"good.ogg":     {Artist: "A", Title: "T", Duration: 100},
		"untagged.ogg": {Duration: 100},
	}}

	_, err := NewLoader(filepath.Join(dir, "*.ogg"), reader).Load(context.Background())
	if err == nil {
		t.Fatal("Load succeeded with an untagged file, want error")
	}
	if !strings.Contains(err.Error(), "untagged.ogg") {
		t.Errorf("error %q does not name the offending file", err)
	}
}

func TestShuffleIsPurePermutation(t *testing.T) {
	in := []models.Track{
		{Path: "1", Artist: "A", Title: "a"},
		{Path: "2", Artist: "B", Title: "b"},
		{Path: "3", Artist: "C", Title: "c"},
		{Path: "4", Artist: "D", Title: "d"},
	}
	snapshot := make([]models.Track, len(in))
	copy(snapshot, in)

	out := Shuffle(in, rand.New(rand.NewSource(42)))

	if len(out) != len(in) {
		t.Fatalf("Shuffle changed length: %d != %d", len(out), len(in))
	}
	for i := range in {
		if in[i] != snapshot[i] {
			t.Fatal("Shuffle mutated its input")
		}
	}
	seen := make(map[string]int)
	for _, track := range out {
		seen[track.Path]++
	}
	for _, track := range in {
		if seen[track.Path] != 1 {
			t.Fatalf("Shuffle output is not a permutation: %v", out)
		}
	}
}

func TestShuffleDeterministicForSeed(t *testing.T) {
	in := []models.Track{
		{Path: "1"}, {Path: "2"}, {Path: "3"}, {Path: "4"}, {Path: "5"},
	}
	a := Shuffle(in, rand.New(rand.NewSource(7)))
	b := Shuffle(in, rand.New(rand.NewSource(7)))
	for i := range a {
		if a[i] != b[i] {
			t.Fatal("same seed produced different orders")
		}
	}
}
