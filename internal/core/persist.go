package core

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Rorical/c60chat/internal/models"
	"github.com/Rorical/c60chat/internal/storage"
)

// Storage keys. Each is written independently and holds the whole value.
const (
	HistoryKey   = "c60_atmo_history"
	PersonaKey   = "c60_is_labiba"
	RateLimitKey = "c60_rate_limit"
)

// StoredMessage is the persisted form of a message: the timestamp is unix
// milliseconds.
type StoredMessage struct {
	ID        string      `json:"id"`
	Role      models.Role `json:"role"`
	Content   string      `json:"content"`
	Timestamp int64       `json:"timestamp"`
}

// Persister reads and writes the session snapshot through a storage.Store.
type Persister struct {
	store storage.Store
}

func NewPersister(store storage.Store) *Persister {
	return &Persister{store: store}
}

// Load rehydrates the persisted parts of a snapshot. Corrupt entries are
// logged and treated as absent; only storage failures are returned.
func (p *Persister) Load(ctx context.Context) (Snapshot, error) {
	snap := Snapshot{
		Messages:   make([]models.Message, 0),
		Timestamps: make([]time.Time, 0),
	}

	raw, ok, err := p.store.Get(ctx, HistoryKey)
	if err != nil {
		return snap, fmt.Errorf("loading history: %w", err)
	}
	if ok {
		var stored []StoredMessage
		if err := json.Unmarshal([]byte(raw), &stored); err != nil {
			log.Warn().Err(err).Str("key", HistoryKey).Msg("History corrupted, starting empty")
		} else {
			for _, m := range stored {
				// Blank replies are placeholders of turns that never finished.
				if m.Role != models.User && strings.TrimSpace(m.Content) == "" {
					continue
				}
				snap.Messages = append(snap.Messages, models.Message{
					ID:        m.ID,
					Role:      m.Role,
					Content:   m.Content,
					Timestamp: time.UnixMilli(m.Timestamp),
				})
			}
		}
	}

	raw, ok, err = p.store.Get(ctx, PersonaKey)
	if err != nil {
		return snap, fmt.Errorf("loading persona flag: %w", err)
	}
	if ok {
		snap.Elevated = raw == "true"
	}

	raw, ok, err = p.store.Get(ctx, RateLimitKey)
	if err != nil {
		return snap, fmt.Errorf("loading rate limit: %w", err)
	}
	if ok {
		var stamps []int64
		if err := json.Unmarshal([]byte(raw), &stamps); err != nil {
			log.Warn().Err(err).Str("key", RateLimitKey).Msg("Rate limit data corrupted, starting empty")
		} else {
			for _, ms := range stamps {
				snap.Timestamps = append(snap.Timestamps, time.UnixMilli(ms))
			}
		}
	}

	log.Debug().
		Int("messages", len(snap.Messages)).
		Bool("elevated", snap.Elevated).
		Int("timestamps", len(snap.Timestamps)).
		Msg("Session rehydrated")
	return snap, nil
}

// Save rewrites all three entries from snap.
func (p *Persister) Save(ctx context.Context, snap Snapshot) error {
	history, err := json.Marshal(StoredMessages(snap.Messages))
	if err != nil {
		return fmt.Errorf("encoding history: %w", err)
	}

	stamps := make([]int64, 0, len(snap.Timestamps))
	for _, ts := range snap.Timestamps {
		stamps = append(stamps, ts.UnixMilli())
	}
	rateLimit, err := json.Marshal(stamps)
	if err != nil {
		return fmt.Errorf("encoding rate limit: %w", err)
	}

	if err := p.store.Set(ctx, HistoryKey, string(history)); err != nil {
		return fmt.Errorf("saving history: %w", err)
	}
	if err := p.store.Set(ctx, PersonaKey, strconv.FormatBool(snap.Elevated)); err != nil {
		return fmt.Errorf("saving persona flag: %w", err)
	}
	if err := p.store.Set(ctx, RateLimitKey, string(rateLimit)); err != nil {
		return fmt.Errorf("saving rate limit: %w", err)
	}
	return nil
}

// StoredMessages converts messages to the shape written under HistoryKey.
func StoredMessages(messages []models.Message) []StoredMessage {
	stored := make([]StoredMessage, 0, len(messages))
	for _, m := range messages {
		stored = append(stored, StoredMessage{
			ID:        m.ID,
			Role:      m.Role,
			Content:   m.Content,
			Timestamp: m.Timestamp.UnixMilli(),
		})
	}
	return stored
}

// Wipe deletes all three entries.
func (p *Persister) Wipe(ctx context.Context) error {
	for _, key := range []string{HistoryKey, PersonaKey, RateLimitKey} {
		if err := p.store.Delete(ctx, key); err != nil {
			return fmt.Errorf("wiping %s: %w", key, err)
		}
	}
	return nil
}
