/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package store persists broadcast state in Redis and fans out change
// notifications over pub/sub.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/friendsincode/tournesol/internal/models"
	"github.com/friendsincode/tournesol/internal/telemetry"
)

// Unchanged is published instead of the full payload when a tick produced
// no visible change. Subscribers treat it as a keep-alive.
const Unchanged = "unchanged"

const (
	// broadcastTTL bounds how long stale channel state survives a dead
	// publisher; stationDataTTL does the same for playlist snapshots.
	broadcastTTL   = 24 * time.Hour
	stationDataTTL = 48 * time.Hour
)

func metadataKey(endpoint string) string { return "tournesol:" + endpoint + ":metadata" }
func infoKey(endpoint string) string     { return "tournesol:" + endpoint + ":info" }
func pubsubChannel(endpoint string) string {
	return "tournesol:channel:" + endpoint
}
func stationDataKey(slug string) string { return "tournesol:station:" + slug + ":data" }

// Store wraps one Redis client. Safe for concurrent use.
type Store struct {
	client *redis.Client
	logger zerolog.Logger

	mu   sync.Mutex
	last map[string]string
}

// New builds a Store on client.
func New(client *redis.Client, logger zerolog.Logger) *Store {
	return &Store{
		client: client,
		logger: logger.With().Str("component", "store").Logger(),
		last:   make(map[string]string),
	}
}

// Ping verifies the Redis connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// PutBroadcast writes a channel's metadata and display info atomically,
// both with the broadcast TTL.
func (s *Store) PutBroadcast(ctx context.Context, endpoint string, meta models.BroadcastMetadata, info models.DisplayInfo) error {
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	infoJSON, err := json.Marshal(info)
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, metadataKey(endpoint), metaJSON, broadcastTTL)
		pipe.Set(ctx, infoKey(endpoint), infoJSON, broadcastTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("writing broadcast state for %s: %w", endpoint, err)
	}
	return nil
}

// GetMetadata reads a channel's current broadcast metadata. The second
// return is false when no state is stored.
func (s *Store) GetMetadata(ctx context.Context, endpoint string) (models.BroadcastMetadata, bool, error) {
	var meta models.BroadcastMetadata
	raw, err := s.client.Get(ctx, metadataKey(endpoint)).Bytes()
	if errors.Is(err, redis.Nil) {
		return meta, false, nil
	}
	if err != nil {
		return meta, false, err
	}
	if err := json.Unmarshal(raw, &meta); err != nil {
		return meta, false, fmt.Errorf("decoding stored metadata for %s: %w", endpoint, err)
	}
	return meta, true, nil
}

// GetInfo reads a channel's current display info.
func (s *Store) GetInfo(ctx context.Context, endpoint string) (models.DisplayInfo, bool, error) {
	var info models.DisplayInfo
	raw, err := s.client.Get(ctx, infoKey(endpoint)).Bytes()
	if errors.Is(err, redis.Nil) {
		return info, false, nil
	}
	if err != nil {
		return info, false, err
	}
	if err := json.Unmarshal(raw, &info); err != nil {
		return info, false, fmt.Errorf("decoding stored info for %s: %w", endpoint, err)
	}
	return info, true, nil
}

// SetStationData persists arbitrary per-station data, typically a playlist
// snapshot.
func (s *Store) SetStationData(ctx context.Context, slug string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, stationDataKey(slug), raw, stationDataTTL).Err()
}

// GetStationData reads persisted per-station data.
func (s *Store) GetStationData(ctx context.Context, slug string) (json.RawMessage, bool, error) {
	raw, err := s.client.Get(ctx, stationDataKey(slug)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return json.RawMessage(raw), true, nil
}

// PublishInfo publishes the display info on the channel's pub/sub channel.
// When the payload matches the previous publish it sends the Unchanged
// sentinel instead, so subscribers still see a heartbeat.
func (s *Store) PublishInfo(ctx context.Context, endpoint string, info models.DisplayInfo) error {
	payload, err := json.Marshal(info)
	if err != nil {
		return err
	}
	message := dedupe(&s.mu, s.last, endpoint, string(payload))
	if err := s.client.Publish(ctx, pubsubChannel(endpoint), message).Err(); err != nil {
		return err
	}
	recordPublish(endpoint, message)
	return nil
}

// recordPublish counts a delivered publish, split by whether subscribers
// saw a payload or the Unchanged heartbeat.
func recordPublish(endpoint, message string) {
	changed := "true"
	if message == Unchanged {
		changed = "false"
	}
	telemetry.InfoPublishesTotal.WithLabelValues(endpoint, changed).Inc()
}

// dedupe records payload as endpoint's latest publish and returns it, or
// the Unchanged sentinel when it matches the previous one.
func dedupe(mu *sync.Mutex, last map[string]string, endpoint, payload string) string {
	mu.Lock()
	defer mu.Unlock()
	if last[endpoint] == payload {
		return Unchanged
	}
	last[endpoint] = payload
	return payload
}

// Subscribe listens on a channel's pub/sub channel. The returned channel
// closes when ctx is canceled.
func (s *Store) Subscribe(ctx context.Context, endpoint string) <-chan string {
	sub := s.client.Subscribe(ctx, pubsubChannel(endpoint))
	out := make(chan string)
	go func() {
		defer close(out)
		defer sub.Close()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case out <- msg.Payload:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}
