package events_test

import (
	"encoding/json"
	"errors"
	"testing"

	"sipc/internal/events"
)

func marshalMap(t *testing.T, e events.Event) map[string]any {
	t.Helper()
	data, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("marshal %v: %v", e.Type, err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal %s: %v", data, err)
	}
	return out
}

func TestInfoWireShape(t *testing.T) {
	out := marshalMap(t, events.Info(1234, 5, 7))
	if out["type"] != "info" || out["size"] != float64(1234) || out["version"] != float64(5) || out["items_count"] != float64(7) {
		t.Fatalf("unexpected info payload: %#v", out)
	}
}

func TestCompressedWireShape(t *testing.T) {
	out := marshalMap(t, events.Compressed("image", "cat.jpg", "abc.webp", 2000, 0))
	data, ok := out["data"].(map[string]any)
	if out["type"] != "log" || !ok {
		t.Fatalf("unexpected envelope: %#v", out)
	}
	want := map[string]any{"event": "compressed", "type": "image", "old_name": "cat.jpg", "new_name": "abc.webp", "old_size": float64(2000), "new_size": float64(0)}
	for key, value := range want {
		if data[key] != value {
			t.Fatalf("data[%q] = %#v, want %#v", key, data[key], value)
		}
	}
}

func TestErrorWireShapes(t *testing.T) {
	item := marshalMap(t, events.ItemError("audio", "song.mp3", 0, "File not found"))["data"].(map[string]any)
	if item["event"] != "error" || item["type"] != "audio" || item["name"] != "song.mp3" || item["size"] != float64(0) || item["error"] != "File not found" {
		t.Fatalf("unexpected item error payload: %#v", item)
	}

	failure := marshalMap(t, events.Failure("Pack version 6 not supported"))["data"].(map[string]any)
	for _, key := range []string{"type", "name", "size"} {
		if _, ok := failure[key]; ok {
			t.Fatalf("expected %q to be omitted from job-level error: %#v", key, failure)
		}
	}
	if failure["error"] != "Pack version 6 not supported" {
		t.Fatalf("unexpected failure payload: %#v", failure)
	}
}

func TestMessageAndResultWireShapes(t *testing.T) {
	msg := marshalMap(t, events.Message("Write content.xml..."))["data"].(map[string]any)
	if msg["event"] != "message" || msg["content"] != "Write content.xml..." {
		t.Fatalf("unexpected message payload: %#v", msg)
	}
	result := marshalMap(t, events.Result("/download/abc"))
	if result["type"] != "result" || result["url"] != "/download/abc" {
		t.Fatalf("unexpected result payload: %#v", result)
	}
}

func TestDoneIsNotSerializable(t *testing.T) {
	if _, err := json.Marshal(events.Done()); !errors.Is(err, events.ErrNotSerializable) {
		t.Fatalf("expected ErrNotSerializable, got %v", err)
	}
	if !events.Done().IsDone() || events.Message("x").IsDone() {
		t.Fatal("IsDone misreports event types")
	}
}
