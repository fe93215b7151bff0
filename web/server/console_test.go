package server

import (
	"encoding/json"
	"testing"
	"time"
)

func TestWebLogger_BasicLogging(t *testing.T) {
	messageChan := make(chan ConsoleMessage, 10)
	logger := NewWebLogger("test-render-123", messageChan)

	logger.Printf("%s\n", "Test log message")

	select {
	case msg := <-messageChan:
		if msg.Message != "Test log message\n" {
			t.Errorf("Expected message 'Test log message\\n', got '%s'", msg.Message)
		}
		if msg.Level != "info" {
			t.Errorf("Expected level 'info', got '%s'", msg.Level)
		}
		if msg.RenderID != "test-render-123" {
			t.Errorf("Expected render ID 'test-render-123', got '%s'", msg.RenderID)
		}
		if time.Since(msg.Timestamp) > time.Second {
			t.Errorf("Timestamp seems too old: %v", msg.Timestamp)
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("Timeout waiting for console message")
	}
}

func TestWebLogger_Levels(t *testing.T) {
	tests := []struct {
		message string
		want    string
	}{
		{"Pass 1 completed in 2s\n", "info"},
		{"Warning: failed to parse metadata for x.pbrt\n", "warning"},
		{"Failed to load PBRT scene\n", "error"},
		{"  error rendering tile 3\n", "error"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			messageChan := make(chan ConsoleMessage, 1)
			NewWebLogger("levels", messageChan).Printf("%s", tt.message)
			if msg := <-messageChan; msg.Level != tt.want {
				t.Errorf("level of %q = %s, want %s", tt.message, msg.Level, tt.want)
			}
		})
	}
}

func TestWebLogger_ChannelFull(t *testing.T) {
	messageChan := make(chan ConsoleMessage, 1)
	logger := NewWebLogger("test-render-789", messageChan)

	// The second and third messages find the channel full and must not block
	logger.Printf("Message 1\n")
	logger.Printf("Message 2\n")
	logger.Printf("Message 3\n")

	if msg := <-messageChan; msg.Message != "Message 1\n" {
		t.Errorf("Expected the first message to be kept, got '%s'", msg.Message)
	}
	select {
	case msg := <-messageChan:
		t.Errorf("Expected later messages to be dropped, got '%s'", msg.Message)
	default:
	}
}

func TestWebLogger_NilChannel(t *testing.T) {
	logger := NewWebLogger("test-render-nil", nil)
	logger.Printf("Test message with nil channel\n")
}

func TestConsoleMessage_JSON(t *testing.T) {
	msg := ConsoleMessage{RenderID: "r1", Message: "hello", Timestamp: time.Unix(0, 0).UTC(), Level: "info"}
	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	for _, key := range []string{"renderId", "message", "timestamp", "level"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("console message JSON is missing %q: %s", key, data)
		}
	}
}
