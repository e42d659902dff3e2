// Package stats maintains per-day entry/exit counters derived from swipe
// events, kept in Redis by the worker and read back by the API.
package stats

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Swipe directions carried on queue messages.
const (
	DirectionIn  = "in"
	DirectionOut = "out"
)

// MessageType tags swipe messages on the queue.
const MessageType = "swipe"

// SwipeEvent is the queue payload emitted for every toggle.
type SwipeEvent struct {
	RecordID  string `json:"record_id"`
	CardID    string `json:"card_id"`
	Direction string `json:"direction"`
	DateKey   string `json:"date"`
}

// Encode renders the event for a queue message body.
func (e SwipeEvent) Encode() []byte {
	raw, _ := json.Marshal(e)
	return raw
}

// Decode parses a queue message body.
func Decode(body []byte) (SwipeEvent, error) {
	var e SwipeEvent
	err := json.Unmarshal(body, &e)
	return e, err
}

// DayStats are the counters kept for one report day.
type DayStats struct {
	DateKey string `json:"date"`
	Entries int64  `json:"entries"`
	Exits   int64  `json:"exits"`
}

// Recorder reads and writes day counters in Redis.
type Recorder struct {
	client    *redis.Client
	retention time.Duration
}

// NewRecorder creates a recorder. Keys expire after retention so old days age
// out on their own; zero retention keeps them forever.
func NewRecorder(client *redis.Client, retention time.Duration) *Recorder {
	return &Recorder{client: client, retention: retention}
}

// Record applies one swipe event to its day's counters.
func (r *Recorder) Record(ctx context.Context, e SwipeEvent) error {
	field := "entries"
	if e.Direction == DirectionOut {
		field = "exits"
	}
	key := keyFor(e.DateKey)
	pipe := r.client.TxPipeline()
	pipe.HIncrBy(ctx, key, field, 1)
	if r.retention > 0 {
		pipe.Expire(ctx, key, r.retention)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// Snapshot returns the counters for one day. A day with no activity reads as
// all zeros.
func (r *Recorder) Snapshot(ctx context.Context, dateKey string) (DayStats, error) {
	vals, err := r.client.HGetAll(ctx, keyFor(dateKey)).Result()
	if err != nil {
		return DayStats{}, err
	}
	out := DayStats{DateKey: dateKey}
	if v, ok := vals["entries"]; ok {
		out.Entries, _ = strconv.ParseInt(v, 10, 64)
	}
	if v, ok := vals["exits"]; ok {
		out.Exits, _ = strconv.ParseInt(v, 10, 64)
	}
	return out, nil
}

func keyFor(dateKey string) string { return "libattend:stats:" + dateKey }
