package bootstrap

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"

	appconfig "github.com/neoimplant/dental-assistant/internal/config"
	"github.com/neoimplant/dental-assistant/internal/conversation"
	"github.com/neoimplant/dental-assistant/pkg/logging"
)

func TestBuildRedisClientDisabled(t *testing.T) {
	cfg := &appconfig.Config{RedisAddr: ""}
	if client := BuildRedisClient(context.Background(), cfg, logging.New("error"), false); client != nil {
		t.Fatalf("expected nil client when redis addr is empty")
	}
}

func TestBuildRedisClientVerified(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &appconfig.Config{RedisAddr: mr.Addr()}

	client := BuildRedisClient(context.Background(), cfg, logging.New("error"), true)
	if client == nil {
		t.Fatalf("expected client for reachable redis")
	}
	defer client.Close()
}

func TestBuildRedisClientVerifyFailure(t *testing.T) {
	cfg := &appconfig.Config{RedisAddr: "127.0.0.1:1"}
	if client := BuildRedisClient(context.Background(), cfg, logging.New("error"), true); client != nil {
		t.Fatalf("expected nil client when ping fails")
	}
}

func TestBuildSnippetStoreMemoryFallback(t *testing.T) {
	kb := &conversation.KnowledgeBase{
		Treatments: []conversation.Treatment{{Name: "Dental Crown", Description: "Caps a damaged tooth."}},
	}

	store := BuildSnippetStore(context.Background(), nil, kb, logging.New("error"))

	snippets, err := store.All(context.Background())
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(snippets) != 1 {
		t.Fatalf("expected 1 seeded snippet, got %d", len(snippets))
	}
}

func TestBuildEmailSenderNone(t *testing.T) {
	cfg := &appconfig.Config{EmailProvider: "none"}
	sender, err := BuildEmailSender(context.Background(), cfg, logging.New("error"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sender != nil {
		t.Fatalf("expected nil sender for provider none")
	}
}

func TestBuildEmailSenderUnknownProvider(t *testing.T) {
	cfg := &appconfig.Config{EmailProvider: "carrier-pigeon"}
	if _, err := BuildEmailSender(context.Background(), cfg, logging.New("error")); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
}
