package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"libattend/internal/config"
	"libattend/internal/queue"
	"libattend/internal/stats"
	"libattend/internal/store"
)

// Worker consumes swipe messages and keeps per-day entry/exit counters.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	redisClient := store.NewRedis(cfg.RedisAddr, cfg.RedisPassword)
	if !redisClient.Healthy(ctx) {
		log.Printf("WARNING: redis at %s not reachable yet", cfg.RedisAddr)
	}

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, cfg.QueueKey)
	}

	recorder := stats.NewRecorder(redisClient.Client, cfg.StatsRetention)

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("worker started, waiting for swipe messages...")
	for msg := range messages {
		if msg.Type != stats.MessageType {
			continue
		}

		evt, err := stats.Decode(msg.Body)
		if err != nil {
			log.Printf("malformed swipe message: %v", err)
			continue
		}

		if err := recorder.Record(ctx, evt); err != nil {
			log.Printf("stats update failed for record %s: %v", evt.RecordID, err)
			continue
		}
		log.Printf("recorded %s swipe for card %s on %s", evt.Direction, evt.CardID, evt.DateKey)
	}

	log.Println("worker stopped")
}
