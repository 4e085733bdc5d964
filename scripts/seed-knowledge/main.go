// Seeds the Redis snippet store from a knowledge file. The API server does
// this on boot; run this after editing the file without restarting.
//
// Usage: go run ./scripts/seed-knowledge configs/knowledge.json
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/neoimplant/dental-assistant/internal/conversation"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run ./scripts/seed-knowledge <knowledge-file.json>")
		os.Exit(1)
	}

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	kb, err := conversation.LoadKnowledgeBase(os.Args[1])
	if err != nil {
		fmt.Printf("error loading knowledge file: %v\n", err)
		os.Exit(1)
	}
	snippets := kb.Snippets()

	client := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: os.Getenv("REDIS_PASSWORD"),
	})
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store := conversation.NewRedisSnippetStore(client)
	if err := store.Replace(ctx, snippets); err != nil {
		fmt.Printf("error seeding snippets: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("seeded %d snippets to %s\n", len(snippets), redisAddr)
}
