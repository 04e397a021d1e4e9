package cache

import (
	"context"
	"testing"
	"time"

	"github.com/medplane/guardian"
)

func TestMemoryCacheHitMiss(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(WithTTL(time.Minute))

	ec := &guardian.EvalContext{IPAddress: "10.0.0.1"}
	result := &guardian.Result{Allowed: true, Decision: guardian.DecisionAllow}

	// Miss
	_, ok := c.Get(ctx, "t1", "u1", "read", "patient.record", ec)
	if ok {
		t.Fatal("expected cache miss")
	}

	// Set + Hit
	c.Set(ctx, "t1", "u1", "read", "patient.record", ec, result)
	got, ok := c.Get(ctx, "t1", "u1", "read", "patient.record", ec)
	if !ok {
		t.Fatal("expected cache hit")
	}
	if !got.Allowed {
		t.Fatal("expected allowed")
	}

	// A different IP is a different decision.
	_, ok = c.Get(ctx, "t1", "u1", "read", "patient.record", &guardian.EvalContext{IPAddress: "10.0.0.2"})
	if ok {
		t.Fatal("expected miss for different context")
	}
}

func TestMemoryCacheTTLExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(WithTTL(1 * time.Millisecond))

	c.Set(ctx, "t1", "u1", "read", "doc", nil, &guardian.Result{Allowed: true})
	time.Sleep(5 * time.Millisecond)

	_, ok := c.Get(ctx, "t1", "u1", "read", "doc", nil)
	if ok {
		t.Fatal("expected cache miss after TTL expiry")
	}
}

func TestMemoryCacheInvalidateTenant(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	c.Set(ctx, "t1", "u1", "read", "doc", nil, &guardian.Result{Allowed: true})
	c.Set(ctx, "t1", "u2", "write", "doc", nil, &guardian.Result{Allowed: false})
	c.Set(ctx, "t2", "u1", "read", "doc", nil, &guardian.Result{Allowed: true})

	c.InvalidateTenant(ctx, "t1")

	if _, ok := c.Get(ctx, "t1", "u1", "read", "doc", nil); ok {
		t.Fatal("t1 u1 should be invalidated")
	}
	if _, ok := c.Get(ctx, "t1", "u2", "write", "doc", nil); ok {
		t.Fatal("t1 u2 should be invalidated")
	}
	if _, ok := c.Get(ctx, "t2", "u1", "read", "doc", nil); !ok {
		t.Fatal("t2 u1 should still be cached")
	}
}

func TestMemoryCacheInvalidateUser(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	c.Set(ctx, "t1", "u1", "read", "doc", nil, &guardian.Result{Allowed: true})
	c.Set(ctx, "t1", "u2", "read", "doc", nil, &guardian.Result{Allowed: true})

	c.InvalidateUser(ctx, "t1", "u1")

	if _, ok := c.Get(ctx, "t1", "u1", "read", "doc", nil); ok {
		t.Fatal("u1 should be invalidated")
	}
	if _, ok := c.Get(ctx, "t1", "u2", "read", "doc", nil); !ok {
		t.Fatal("u2 should still be cached")
	}
}

func TestMemoryCacheMaxSize(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(WithMaxSize(2))

	for i := 0; i < 5; i++ {
		c.Set(ctx, "t1", "u1", "read", string(rune('a'+i)), nil, &guardian.Result{Allowed: true})
	}

	c.mu.RLock()
	size := len(c.entries)
	c.mu.RUnlock()
	if size > 2 {
		t.Fatalf("expected max 2 entries, got %d", size)
	}
}
