/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package liquidsoap talks to the external audio streaming engine: a narrow
// command sink over its text control channel, and generation of its playout
// script from the configured stations and timetables.
package liquidsoap

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Sink pushes a track file into a named request queue of the streaming
// engine. Implementations must be safe for sequential per-tick use.
type Sink interface {
	Enqueue(ctx context.Context, queue, path string) error
}

// TelnetSink is the production sink: a short-lived text-protocol connection
// opened per command.
type TelnetSink struct {
	addr    string
	timeout time.Duration
	logger  zerolog.Logger
}

// NewTelnetSink creates a sink for the engine's telnet server, e.g.
// "localhost:1234".
func NewTelnetSink(addr string, logger zerolog.Logger) *TelnetSink {
	return &TelnetSink{
		addr:    addr,
		timeout: 2 * time.Second,
		logger:  logger.With().Str("component", "liquidsoap").Logger(),
	}
}

// Enqueue sends "<queue>.push <path>" followed by "exit" and closes the
// session.
func (s *TelnetSink) Enqueue(ctx context.Context, queue, path string) error {
	dialer := net.Dialer{Timeout: s.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("dial liquidsoap %s: %w", s.addr, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(deadline)
	} else {
		_ = conn.SetWriteDeadline(time.Now().Add(s.timeout))
	}

	if _, err := fmt.Fprintf(conn, "%s.push %s\nexit\n", queue, path); err != nil {
		return fmt.Errorf("push to queue %s: %w", queue, err)
	}

	s.logger.Debug().Str("queue", queue).Str("path", path).Msg("track pushed to liquidsoap queue")
	return nil
}

// FormatName normalizes a station display name into a liquidsoap identifier,
// e.g. "Radio Pycolore" -> "radiopycolore".
func FormatName(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "")
}
