package mq

import (
	"context"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
)

func TestToKafkaMessage(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	msg := &Message{
		ID:        "sub-1",
		Body:      []byte(`{"status":"Accepted"}`),
		Headers:   map[string]string{"event": "submission.judged"},
		Timestamp: ts,
	}
	km := toKafkaMessage("submission.judged", msg)

	if km.Topic != "submission.judged" || string(km.Key) != "sub-1" {
		t.Fatalf("unexpected topic/key %s/%s", km.Topic, km.Key)
	}
	if string(km.Value) != `{"status":"Accepted"}` || !km.Time.Equal(ts) {
		t.Fatalf("unexpected value/time")
	}
	headers := make(map[string]string, len(km.Headers))
	for _, h := range km.Headers {
		headers[h.Key] = string(h.Value)
	}
	if headers["event"] != "submission.judged" || headers[headerID] != "sub-1" {
		t.Fatalf("unexpected headers %v", headers)
	}
	if headers[headerTimestamp] != ts.Format(time.RFC3339Nano) {
		t.Fatalf("unexpected timestamp header %s", headers[headerTimestamp])
	}
}

func TestToKafkaMessageFillsTimestamp(t *testing.T) {
	msg := &Message{Body: []byte("x")}
	km := toKafkaMessage("t", msg)
	if km.Time.IsZero() || msg.Timestamp.IsZero() {
		t.Fatalf("timestamp should be filled")
	}
}

func TestNewKafkaProducerValidation(t *testing.T) {
	if _, err := NewKafkaProducer(KafkaConfig{}); err == nil {
		t.Fatalf("expected error without brokers")
	}
	p, err := NewKafkaProducer(KafkaConfig{Brokers: []string{"127.0.0.1:9092"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer func() { _ = p.Close() }()
	if err := p.Publish(context.Background(), "", NewMessage(nil)); err == nil {
		t.Fatalf("expected error for empty topic")
	}
	if err := p.Publish(context.Background(), "t", nil); err == nil {
		t.Fatalf("expected error for nil message")
	}
	if err := p.PublishBatch(context.Background(), "t", nil); err == nil {
		t.Fatalf("expected error for empty batch")
	}
}

func TestMessageHeaders(t *testing.T) {
	var m Message
	if _, ok := m.GetHeader("a"); ok {
		t.Fatalf("empty message has no headers")
	}
	m.SetHeader("a", "b")
	if v, ok := m.GetHeader("a"); !ok || v != "b" {
		t.Fatalf("unexpected header %q", v)
	}
}

func TestParseCompression(t *testing.T) {
	tests := map[string]kafka.Compression{
		"":     kafka.Compression(0),
		"GZIP": kafka.Gzip,
		"zstd": kafka.Zstd,
		"lz4":  kafka.Lz4,
		"nope": kafka.Compression(0),
	}
	for raw, want := range tests {
		if got := parseCompression(raw); got != want {
			t.Errorf("parseCompression(%q) = %v, want %v", raw, got, want)
		}
	}
}
