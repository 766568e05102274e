package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"signal-gateway/internal/domain"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func snapshot() domain.MarketSnapshot {
	return domain.MarketSnapshot{
		Symbol:    "BTCUSDT",
		Timeframe: "1h",
		OHLC:      domain.OHLC{Open: 100, High: 110, Low: 95, Close: 105.25},
	}
}

func TestKeyIsDeterministic(t *testing.T) {
	a, b := snapshot(), snapshot()
	b.Indicators.RSI = 80
	if Key(a) != Key(b) {
		t.Fatal("key should depend only on symbol, timeframe and candle")
	}
	if Key(a) != `signal|"BTCUSDT"|"1h"|100|110|95|105.25` {
		t.Fatalf("unexpected key %q", Key(a))
	}

	b.OHLC.Close = 105.26
	if Key(a) == Key(b) {
		t.Fatal("different candles must not share a key")
	}
	b = snapshot()
	b.Timeframe = "4h"
	if Key(a) == Key(b) {
		t.Fatal("different timeframes must not share a key")
	}
}

func TestKeySeparatorInFieldsDoesNotCollide(t *testing.T) {
	a, b := snapshot(), snapshot()
	a.Symbol, a.Timeframe = "BTC|1h", "4h"
	b.Symbol, b.Timeframe = "BTC", "1h|4h"
	if Key(a) == Key(b) {
		t.Fatalf("distinct symbol/timeframe pairs share key %q", Key(a))
	}
}

func TestMemoryExpiresLazily(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	c := NewMemory(30*time.Second, clock.now)
	ctx := context.Background()
	sig := domain.Signal{Action: domain.ActionBuy, Explanation: "x"}

	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Fatal("expected miss on empty cache")
	}
	_ = c.Put(ctx, "k", sig)

	clock.t = clock.t.Add(29 * time.Second)
	got, ok, err := c.Get(ctx, "k")
	if err != nil || !ok || got != sig {
		t.Fatalf("expected hit within ttl, got %+v ok=%v err=%v", got, ok, err)
	}

	clock.t = clock.t.Add(2 * time.Second)
	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Fatal("expected miss after ttl")
	}
	if c.Len() != 0 {
		t.Fatalf("expired entry should be dropped on lookup, len=%d", c.Len())
	}
}

func TestMemoryConcurrentAccess(t *testing.T) {
	c := NewMemory(time.Minute, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := Key(snapshot())
			_ = c.Put(ctx, key, domain.Signal{Action: domain.ActionHold})
			_, _, _ = c.Get(ctx, key)
		}(i)
	}
	wg.Wait()
	if c.Len() != 1 {
		t.Fatalf("expected a single entry, got %d", c.Len())
	}
}

func TestMemorySweep(t *testing.T) {
	clk := &fakeClock{t: time.Unix(1700000000, 0)}
	m := NewMemory(30*time.Second, clk.now)
	ctx := context.Background()

	_ = m.Put(ctx, "old", domain.Signal{Action: domain.ActionBuy})
	clk.t = clk.t.Add(20 * time.Second)
	_ = m.Put(ctx, "fresh", domain.Signal{Action: domain.ActionSell})
	clk.t = clk.t.Add(15 * time.Second)

	if removed := m.Sweep(); removed != 1 {
		t.Fatalf("expected one expired entry removed, got %d", removed)
	}
	if m.Len() != 1 {
		t.Fatalf("expected one entry left, got %d", m.Len())
	}
	if _, ok, _ := m.Get(ctx, "fresh"); !ok {
		t.Fatal("fresh entry should survive the sweep")
	}
}
