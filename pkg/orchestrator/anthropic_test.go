package orchestrator

import (
	"context"
	"encoding/base64"
	"testing"

	testhelpers "mercator-hq/parley/internal/providers"
	"mercator-hq/parley/pkg/attachments"
	"mercator-hq/parley/pkg/providers/anthropic"
)

// TestRun_ClaudeImageWithDocument drives a full turn through the Anthropic
// adapter against a mock endpoint and checks the wire content order.
func TestRun_ClaudeImageWithDocument(t *testing.T) {
	mock := testhelpers.NewMockServer()
	defer mock.Close()
	mock.SetResponse("/v1/messages", testhelpers.MockResponse{
		StreamEvents: testhelpers.MockAnthropicStream("claude-3-opus-20240229", "A cat", " on a mat."),
	})

	claude, err := anthropic.NewProvider(testhelpers.TestConfigWithURL("anthropic", testhelpers.TestAnthropicKey, mock.URL()))
	if err != nil {
		t.Fatal(err)
	}
	defer claude.Close()

	h := newHarness(t)
	h.registry["anthropic"] = claude
	h.chats.SetSubscribed(context.Background(), "alice", true)

	png := []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A}
	img := h.upload(t, "cat.png", "image/png", png)
	doc := h.upload(t, "caption.txt", "text/plain", []byte("caption: Tom"))

	res, sink, err := h.run(t, &Request{
		SessionID: "img-1",
		Message:   "Describe this",
		Model:     "claude-3-opus",
		Token:     "tok-alice",
		Files:     []attachments.UploadedFile{img, doc},
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if sink.Text() != "A cat on a mat." || res.Model != "claude-3-opus-20240229" {
		t.Errorf("text = %q, model = %q", sink.Text(), res.Model)
	}

	body, err := mock.LastRequestJSON()
	if err != nil {
		t.Fatal(err)
	}
	if body["model"] != "claude-3-opus-20240229" || body["stream"] != true {
		t.Errorf("model = %v, stream = %v", body["model"], body["stream"])
	}
	if body["system"] != "Be brief." {
		t.Errorf("system = %v", body["system"])
	}

	messages := body["messages"].([]interface{})
	if len(messages) != 1 {
		t.Fatalf("messages = %d, want 1", len(messages))
	}
	content := messages[0].(map[string]interface{})["content"].([]interface{})
	if len(content) != 2 {
		t.Fatalf("content blocks = %d, want 2", len(content))
	}

	text := content[0].(map[string]interface{})
	if text["type"] != "text" || text["text"] != "Describe this\n\n--- caption.txt ---\ncaption: Tom" {
		t.Errorf("first block = %v", text)
	}
	image := content[1].(map[string]interface{})
	source := image["source"].(map[string]interface{})
	if image["type"] != "image" || source["type"] != "base64" || source["media_type"] != "image/png" {
		t.Errorf("second block = %v", image)
	}
	if source["data"] != base64.StdEncoding.EncodeToString(png) {
		t.Error("image data not base64 of the upload")
	}

	record, _ := h.chats.GetChat(context.Background(), "img-1")
	if record.MessageCount != 1 || !record.Messages[0].HasImages() || record.Model != "claude-3-opus" {
		t.Errorf("record = %+v", record)
	}
}
