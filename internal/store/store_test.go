/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package store

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/friendsincode/tournesol/internal/telemetry"
)

func TestKeyLayout(t *testing.T) {
	cases := []struct {
		got, want string
	}{
		{metadataKey("tournesol"), "tournesol:tournesol:metadata"},
		{infoKey("music"), "tournesol:music:info"},
		{pubsubChannel("music"), "tournesol:channel:music"},
		{stationDataKey("pycolore"), "tournesol:station:pycolore:data"},
	}
	for _, tc := range cases {
		if tc.got != tc.want {
			t.Errorf("key = %q, want %q", tc.got, tc.want)
		}
	}
}

func TestDedupe(t *testing.T) {
	var mu sync.Mutex
	last := make(map[string]string)

	if got := dedupe(&mu, last, "music", `{"a":1}`); got != `{"a":1}` {
		t.Errorf("first publish = %q, want full payload", got)
	}
	if got := dedupe(&mu, last, "music", `{"a":1}`); got != Unchanged {
		t.Errorf("repeat publish = %q, want %q", got, Unchanged)
	}
	// A different endpoint keeps its own history.
	if got := dedupe(&mu, last, "talk", `{"a":1}`); got != `{"a":1}` {
		t.Errorf("other endpoint = %q, want full payload", got)
	}
	if got := dedupe(&mu, last, "music", `{"a":2}`); got != `{"a":2}` {
		t.Errorf("changed payload = %q, want full payload", got)
	}
	// The change resets the streak.
	if got := dedupe(&mu, last, "music", `{"a":2}`); got != Unchanged {
		t.Errorf("repeat after change = %q, want %q", got, Unchanged)
	}
}

func TestRecordPublishCountsChangeState(t *testing.T) {
	recordPublish("metricsch", `{"a":1}`)
	recordPublish("metricsch", Unchanged)
	recordPublish("metricsch", Unchanged)

	changed := testutil.ToFloat64(telemetry.InfoPublishesTotal.WithLabelValues("metricsch", "true"))
	if changed != 1 {
		t.Errorf("changed publishes = %v, want 1", changed)
	}
	unchanged := testutil.ToFloat64(telemetry.InfoPublishesTotal.WithLabelValues("metricsch", "false"))
	if unchanged != 2 {
		t.Errorf("unchanged publishes = %v, want 2", unchanged)
	}
}
