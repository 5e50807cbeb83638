package tokenguard

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"
)

func TestAuditDispatcherDeliversEngineEvents(t *testing.T) {
	sink := NewChannelSink(16)
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	cfg := testConfig(t)
	cfg.Audit.Enabled = true

	engine, err := New().WithConfig(cfg).WithRedis(rdb).WithAuditSink(sink).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	if _, err := engine.Issue(context.Background(), "u1", "198.51.100.7", "agent"); err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	select {
	case event := <-sink.Events():
		if event.EventType != auditEventIssueSuccess {
			t.Fatalf("unexpected audit event type %q", event.EventType)
		}
		if !event.Success {
			t.Fatal("expected success audit event")
		}
		if event.UserID != "u1" {
			t.Fatalf("unexpected user id %q", event.UserID)
		}
		if event.IP != "198.51.100.7" {
			t.Fatalf("unexpected ip %q", event.IP)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for audit event")
	}
}

func TestAuditDispatcherDrainsOnClose(t *testing.T) {
	sink := NewChannelSink(64)
	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 64, DropIfFull: true}, sink)

	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), AuditEvent{EventType: "drain-check"})
	}
	d.Close()

	received := 0
	for {
		select {
		case <-sink.Events():
			received++
			if received == 10 {
				return
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("expected 10 drained events, got %d", received)
		}
	}
}

func TestAuditDispatcherDropsWhenFull(t *testing.T) {
	// A nil-like blocking sink: unbuffered channel nobody reads.
	sink := NewChannelSink(1)
	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	for i := 0; i < 50; i++ {
		d.Emit(context.Background(), AuditEvent{EventType: "flood"})
	}

	if d.Dropped() == 0 {
		t.Fatal("expected dropped events under backpressure")
	}

	// Unblock the sink so Close can drain.
	go func() {
		for range sink.Events() {
		}
	}()
	d.Close()
}

func TestAuditDispatcherDisabled(t *testing.T) {
	d := newAuditDispatcher(AuditConfig{Enabled: false}, NoOpSink{})
	if d != nil {
		t.Fatal("disabled audit config must not start a dispatcher")
	}
	// Nil dispatcher methods are safe.
	d.Emit(context.Background(), AuditEvent{})
	d.Close()
	if d.Dropped() != 0 {
		t.Fatal("nil dispatcher reports zero drops")
	}
}

func TestJSONWriterSinkWritesOneObjectPerLine(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)

	sink.Emit(context.Background(), AuditEvent{EventType: "a", Success: true})
	sink.Emit(context.Background(), AuditEvent{EventType: "b"})

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}

	var event AuditEvent
	if err := json.Unmarshal(lines[0], &event); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if event.EventType != "a" || !event.Success {
		t.Fatalf("unexpected first event %+v", event)
	}
}

func TestAuditErrorCodes(t *testing.T) {
	cases := []struct {
		err  error
		want AuditErrorCode
	}{
		{nil, ""},
		{ErrTokenExpired, auditErrTokenExpired},
		{ErrTokenRevoked, auditErrTokenRevoked},
		{ErrTokenReused, auditErrTokenReused},
		{ErrConcurrentRotation, auditErrConcurrent},
		{ErrRefreshRateLimited, auditErrRateLimited},
		{ErrBlacklistedJWT, auditErrBlacklisted},
		{ErrTokenNotFound, auditErrInvalidToken},
		{ErrInvalidToken, auditErrInvalidToken},
		{ErrUnauthorized, auditErrUnauthorized},
		{ErrStoreUnavailable, auditErrUnavailable},
	}
	for _, tc := range cases {
		if got := auditErrorCode(tc.err); got != tc.want {
			t.Errorf("auditErrorCode(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
