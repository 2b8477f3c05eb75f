package main

import (
	"context"
	"testing"

	"mercator-hq/parley/pkg/providers"
	"mercator-hq/parley/pkg/storage"
)

func TestChatTable(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()

	turn := []providers.Message{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello"},
	}
	for _, id := range []string{"s-1", "s-2", "s-2"} {
		if _, err := store.SaveTurn(ctx, id, "alice", "gpt-4o", turn); err != nil {
			t.Fatalf("SaveTurn: %v", err)
		}
	}
	if _, err := store.SaveTurn(ctx, "s-3", "bob", "claude-sonnet", turn); err != nil {
		t.Fatalf("SaveTurn: %v", err)
	}

	table, err := chatTable(ctx, store, "alice")
	if err != nil {
		t.Fatalf("chatTable: %v", err)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(table.Rows))
	}

	counts := make(map[string]string)
	for _, row := range table.Rows {
		if row[1] != "gpt-4o" {
			t.Errorf("%s model = %q, want gpt-4o", row[0], row[1])
		}
		counts[row[0]] = row[2]
	}
	if counts["s-1"] != "1" || counts["s-2"] != "2" {
		t.Errorf("message counts = %v, want s-1:1 s-2:2", counts)
	}
}

func TestChatTable_NoChats(t *testing.T) {
	table, err := chatTable(context.Background(), storage.NewMemoryStore(), "nobody")
	if err != nil {
		t.Fatalf("chatTable: %v", err)
	}
	if len(table.Rows) != 0 {
		t.Errorf("got %d rows, want 0", len(table.Rows))
	}
}
