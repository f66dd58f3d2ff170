/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/friendsincode/tournesol/internal/config"
	"github.com/friendsincode/tournesol/internal/liquidsoap"
	"github.com/friendsincode/tournesol/internal/server"
	"github.com/friendsincode/tournesol/internal/station"
)

var liquidsoapCmd = &cobra.Command{
	Use:   "liquidsoap",
	Short: "Print the generated liquidsoap playout script",
	Long:  "Render the playout script for the configured channels and stations. Pipe it to a file and hand it to liquidsoap.",
	RunE:  runLiquidsoap,
}

// streamSource is implemented by stations that relay an upstream audio
// stream.
type streamSource interface {
	StreamURL() string
}

func runLiquidsoap(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}
	channelsCfg, err := config.LoadChannels(cfg.ChannelsFile)
	if err != nil {
		return err
	}
	srv, err := server.New(cfg, channelsCfg, logger)
	if err != nil {
		return err
	}

	script := liquidsoap.ScriptConfig{
		LogPath: cfg.LiquidsoapLogPath,
		Icecast: liquidsoap.IcecastOutput{
			Host:     cfg.IcecastHost,
			Port:     cfg.IcecastPort,
			Password: cfg.IcecastSourcePassword,
		},
	}
	for _, st := range srv.Stations().All() {
		switch src := st.(type) {
		case *station.LocalPlaylistStation:
			script.Queues = append(script.Queues, liquidsoap.QueueInput{Name: st.Name()})
		case streamSource:
			if src.StreamURL() != "" {
				script.Streams = append(script.Streams, liquidsoap.StreamInput{
					Name: st.Name(),
					URL:  src.StreamURL(),
				})
			}
		}
	}
	for _, ch := range srv.Channels() {
		script.Channels = append(script.Channels, liquidsoap.ChannelSpec{
			Endpoint:  ch.Endpoint(),
			Timetable: ch.Timetable(),
		})
	}

	fmt.Fprint(cmd.OutOrStdout(), liquidsoap.GenerateScript(script))
	return nil
}
