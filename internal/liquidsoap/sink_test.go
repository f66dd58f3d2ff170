/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package liquidsoap

import (
	"context"
	"io"
	"net"
	"testing"

	"github.com/rs/zerolog"
)

func TestTelnetSinkEnqueue(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer listener.Close()

	received := make(chan string, 1)
	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		data, _ := io.ReadAll(conn)
		received <- string(data)
	}()

	sink := NewTelnetSink(listener.Addr().String(), zerolog.Nop())
	if err := sink.Enqueue(context.Background(), "tournesol_custom_songs", "/music/backup.ogg"); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	got := <-received
	want := "tournesol_custom_songs.push /music/backup.ogg\nexit\n"
	if got != want {
		t.Errorf("control channel received %q, want %q", got, want)
	}
}

func TestTelnetSinkDialFailure(t *testing.T) {
	sink := NewTelnetSink("127.0.0.1:1", zerolog.Nop())
	if err := sink.Enqueue(context.Background(), "q", "/x.ogg"); err == nil {
		t.Fatal("Enqueue to closed port succeeded, want error")
	}
}

func TestFormatName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Radio Pycolore", "radiopycolore"},
		{"RTL 2", "rtl2"},
		{"France Inter", "franceinter"},
	}
	for _, tc := range tests {
		if got := FormatName(tc.in); got != tc.want {
			t.Errorf("FormatName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
