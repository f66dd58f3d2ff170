/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ChannelsConfig is the YAML file defining channels, their timetables and
// the local playlists the process hosts. Which concrete upstream stations
// exist is code; which ones a channel routes to, and when, is this file.
type ChannelsConfig struct {
	Channels  []ChannelDef  `yaml:"channels"`
	Playlists []PlaylistDef `yaml:"playlists"`
}

// ChannelDef defines one listener-facing channel.
type ChannelDef struct {
	Endpoint string `yaml:"endpoint"`
	Name     string `yaml:"name"`
	// AdSubstitution turns ad break replacement on for this channel.
	AdSubstitution bool          `yaml:"ad_substitution"`
	Timetable      []TimetableDef `yaml:"timetable"`
}

// TimetableDef maps a set of weekdays to an ordered list of slots.
type TimetableDef struct {
	Days  []string  `yaml:"days"`
	Slots []SlotDef `yaml:"slots"`
}

// SlotDef routes a clock range to a station display name.
type SlotDef struct {
	Start   string `yaml:"start"`
	End     string `yaml:"end"`
	Station string `yaml:"station"`
}

// PlaylistDef defines one locally hosted playlist station.
type PlaylistDef struct {
	Name      string `yaml:"name"`
	Slug      string `yaml:"slug"`
	Glob      string `yaml:"glob"`
	Thumbnail string `yaml:"thumbnail"`
	ShowName  string `yaml:"show_name"`
}

// LoadChannels reads and validates the channels file.
func LoadChannels(path string) (*ChannelsConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading channels file: %w", err)
	}
	var cfg ChannelsConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parsing channels file: %w", err)
	}
	if len(cfg.Channels) == 0 {
		return nil, fmt.Errorf("channels file %s defines no channels", path)
	}
	seen := make(map[string]bool)
	for _, ch := range cfg.Channels {
		if ch.Endpoint == "" {
			return nil, fmt.Errorf("channel with empty endpoint")
		}
		if seen[ch.Endpoint] {
			return nil, fmt.Errorf("duplicate channel endpoint %q", ch.Endpoint)
		}
		seen[ch.Endpoint] = true
		if len(ch.Timetable) == 0 {
			return nil, fmt.Errorf("channel %q has no timetable", ch.Endpoint)
		}
	}
	slugs := make(map[string]bool)
	for _, pl := range cfg.Playlists {
		if pl.Name == "" || pl.Slug == "" || pl.Glob == "" {
			return nil, fmt.Errorf("playlist %q needs name, slug and glob", pl.Name)
		}
		if slugs[pl.Slug] {
			return nil, fmt.Errorf("duplicate playlist slug %q", pl.Slug)
		}
		slugs[pl.Slug] = true
	}
	return &cfg, nil
}
