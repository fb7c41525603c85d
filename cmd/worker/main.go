package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"campattend/internal/attendance"
	"campattend/internal/config"
	"campattend/internal/model"
	"campattend/internal/queue"
	"campattend/internal/store"
)

// Worker replays pending-sync records: the cache holds the durable intent and
// the remote store catches up here. Merge writes are idempotent per natural
// key, so replays never duplicate state.
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

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "attendance:resync")
	}

	repo := attendance.NewRepository(attendance.NewRedisCache(redisClient.Client), store.NewPostgresStore(db.Client))

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("resync worker started, waiting for messages...")
	for msg := range messages {
		if msg.Type != queue.TypeResync {
			continue
		}

		clinicID, date, ok := queue.SplitKey(msg.Body)
		if !ok {
			log.Printf("malformed resync key %q, dropping", msg.Body)
			continue
		}

		err := repo.Resync(ctx, clinicID, date)
		switch {
		case err == nil:
			log.Printf("record %s:%s resynced", clinicID, date)
		case errors.Is(err, model.ErrNotFound):
			// Cache evicted before we got here; nothing left to replay.
			log.Printf("record %s:%s no longer cached, dropping", clinicID, date)
		case errors.Is(err, model.ErrRemoteWrite):
			log.Printf("record %s:%s still unreachable, requeueing: %v", clinicID, date, err)
			if perr := q.Publish(ctx, msg); perr != nil {
				log.Printf("requeue failed for %s:%s: %v", clinicID, date, perr)
			}
			time.Sleep(2 * time.Second)
		default:
			log.Printf("resync %s:%s failed: %v", clinicID, date, err)
		}
	}

	log.Println("resync worker stopped")
}
