/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package playlist reorders track sequences for playout.
package playlist

import "github.com/friendsincode/tournesol/internal/models"

// AntiRepeat returns a copy of tracks reordered so that no two adjacent
// tracks share an artist. The repair is best effort: the total number of
// candidate probes is bounded by 5×N, so a list dominated by one artist may
// keep residual collisions instead of looping forever.
func AntiRepeat(tracks []models.Track) []models.Track {
	out := make([]models.Track, len(tracks))
	copy(out, tracks)

	n := len(out)
	if n < 3 {
		return out
	}

	attempts := 0
	budget := 5 * n
	for i := 0; i < n-1; i++ {
		if out[i].Artist != out[i+1].Artist {
			continue
		}
		// Search forward from a small offset for a candidate whose swap does
		// not create a new collision with either of its own neighbors.
		for offset := 2; offset < n && attempts < budget; offset++ {
			attempts++
			k := (i + offset) % n
			if k == i || k == i+1 {
				continue
			}
			if !swapResolves(out, i, k) {
				continue
			}
			out[i+1], out[k] = out[k], out[i+1]
			break
		}
		if attempts >= budget {
			break
		}
	}
	return out
}

// swapResolves reports whether swapping out[i+1] with out[k] fixes the
// collision at position i without introducing one at either end of the swap.
func swapResolves(out []models.Track, i, k int) bool {
	n := len(out)
	incoming := out[k]   // would land at i+1
	outgoing := out[i+1] // would land at k

	if incoming.Artist == out[i].Artist {
		return false
	}
	if i+2 < n && i+2 != k && incoming.Artist == out[i+2].Artist {
		return false
	}
	if prev := k - 1; prev >= 0 && prev != i+1 && outgoing.Artist == out[prev].Artist {
		return false
	}
	if next := k + 1; next < n && next != i+1 && outgoing.Artist == out[next].Artist {
		return false
	}
	return true
}

// Collisions counts adjacent same-artist pairs, for diagnostics and tests.
func Collisions(tracks []models.Track) int {
	count := 0
	for i := 0; i+1 < len(tracks); i++ {
		if tracks[i].Artist == tracks[i+1].Artist {
			count++
		}
	}
	return count
}
