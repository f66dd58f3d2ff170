/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package liquidsoap

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/friendsincode/tournesol/internal/timetable"
)

// StreamInput is a station backed by an upstream HTTP audio stream.
type StreamInput struct {
	Name string
	URL  string
}

// QueueInput is a station fed from a local request queue (dynamic playlist).
type QueueInput struct {
	Name string
}

// ChannelSpec couples an output endpoint with its weekly timetable.
type ChannelSpec struct {
	Endpoint  string
	Timetable *timetable.Timetable
}

// IcecastOutput describes where a channel is mounted.
type IcecastOutput struct {
	Host     string
	Port     int
	Password string
}

// ScriptConfig collects everything the generated script needs.
type ScriptConfig struct {
	LogPath  string
	Streams  []StreamInput
	Queues   []QueueInput
	Channels []ChannelSpec
	Icecast  IcecastOutput
}

// GenerateScript renders the liquidsoap playout script: one input per
// station, one timetable switch plus a substitution queue per channel, and
// one icecast output per channel.
func GenerateScript(cfg ScriptConfig) string {
	var b strings.Builder

	b.WriteString("#!/usr/bin/env liquidsoap\n\n")
	if cfg.LogPath != "" {
		fmt.Fprintf(&b, "set(\"log.file.path\", %q)\n", cfg.LogPath)
	}
	b.WriteString("set(\"server.telnet\", true)\n\n")

	b.WriteString("default = blank()\n\n")

	b.WriteString("# station inputs\n")
	for _, stream := range cfg.Streams {
		fmt.Fprintf(&b, "%s = mksafe(input.http(%q))\n", FormatName(stream.Name), stream.URL)
	}
	for _, queue := range cfg.Queues {
		name := FormatName(queue.Name)
		fmt.Fprintf(&b, "%s = fallback(track_sensitive=false, [request.queue(id=%q), default])\n",
			name, name+"_station_queue")
	}
	b.WriteString("\n")

	for _, ch := range cfg.Channels {
		fmt.Fprintf(&b, "# channel: %s\n", ch.Endpoint)
		fmt.Fprintf(&b, "%s_timetable = switch(track_sensitive=false, [\n", ch.Endpoint)
		for _, sched := range ch.Timetable.Schedules() {
			prefix := weekdayPredicate(sched.Weekdays())
			for _, slot := range sched.Slots {
				fmt.Fprintf(&b, "    ({ %s %s-%s }, %s),\n",
					prefix, clockLiteral(slot.Start), clockLiteral(slot.End), FormatName(slot.Station))
			}
		}
		b.WriteString("])\n")
		fmt.Fprintf(&b, "%s_radio = fallback([%s_timetable, default])\n", ch.Endpoint, ch.Endpoint)
		fmt.Fprintf(&b, "%s_radio = fallback(track_sensitive=false, [request.queue(id=%q), %s_radio])\n",
			ch.Endpoint, ch.Endpoint+"_custom_songs", ch.Endpoint)
		fmt.Fprintf(&b, "output.icecast(%%vorbis(quality=0.6), host=%q, port=%d, password=%q, mount=%q, %s_radio)\n\n",
			cfg.Icecast.Host, cfg.Icecast.Port, cfg.Icecast.Password, ch.Endpoint, ch.Endpoint)
	}

	return b.String()
}

// weekdayPredicate renders a liquidsoap weekday guard, 1w = Monday.
func weekdayPredicate(days []time.Weekday) string {
	nums := make([]int, 0, len(days))
	for _, day := range days {
		n := int(day)
		if n == 0 {
			n = 7 // liquidsoap counts Sunday as 7
		}
		nums = append(nums, n)
	}
	sort.Ints(nums)

	if len(nums) == 1 {
		return fmt.Sprintf("%dw and", nums[0])
	}
	parts := make([]string, len(nums))
	for i, n := range nums {
		parts[i] = fmt.Sprintf("%dw", n)
	}
	return "(" + strings.Join(parts, " or ") + ") and"
}

func clockLiteral(hhmm string) string {
	return strings.Replace(hhmm, ":", "h", 1)
}
