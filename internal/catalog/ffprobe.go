/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// FFProbeReader reads tags by shelling out to ffprobe.
type FFProbeReader struct {
	Bin     string
	Timeout time.Duration
}

// NewFFProbeReader creates a reader using the given ffprobe binary.
func NewFFProbeReader(bin string) *FFProbeReader {
	if bin == "" {
		bin = "ffprobe"
	}
	return &FFProbeReader{Bin: bin, Timeout: 10 * time.Second}
}

// ReadTags extracts tags and duration from an audio file.
func (r *FFProbeReader) ReadTags(ctx context.Context, path string) (Tags, error) {
	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.Bin,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		path,
	)
	output, err := cmd.Output()
	if err != nil {
		return Tags{}, fmt.Errorf("ffprobe: %w", err)
	}

	var probe struct {
		Format struct {
			Duration string            `json:"duration"`
			Tags     map[string]string `json:"tags"`
		} `json:"format"`
	}
	if err := json.Unmarshal(output, &probe); err != nil {
		return Tags{}, fmt.Errorf("parse ffprobe output: %w", err)
	}

	var tags Tags
	if probe.Format.Duration != "" {
		if secs, err := strconv.ParseFloat(probe.Format.Duration, 64); err == nil {
			tags.Duration = secs
		}
	}
	for k, v := range probe.Format.Tags {
		switch strings.ToLower(k) {
		case "artist":
			tags.Artist = v
		case "title":
			tags.Title = v
		case "album":
			tags.Album = v
		}
	}
	return tags, nil
}
