package cache

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"signal-gateway/internal/domain"

	"github.com/shopspring/decimal"
)

// ResultCache memoizes final signals by request identity.
type ResultCache interface {
	Get(ctx context.Context, key string) (domain.Signal, bool, error)
	Put(ctx context.Context, key string, sig domain.Signal) error
}

// Key builds the cache key for s from symbol, timeframe and a canonical
// rendering of the candle. Symbol and timeframe are quoted so a separator
// inside either cannot collide with another request.
func Key(s domain.MarketSnapshot) string {
	parts := []string{
		"signal",
		strconv.Quote(s.Symbol),
		strconv.Quote(s.Timeframe),
		canonical(s.OHLC.Open),
		canonical(s.OHLC.High),
		canonical(s.OHLC.Low),
		canonical(s.OHLC.Close),
	}
	return strings.Join(parts, "|")
}

func canonical(v float64) string {
	return decimal.NewFromFloat(v).String()
}

type entry struct {
	sig     domain.Signal
	created time.Time
}

// Memory is a process-local TTL cache. Expired entries are dropped lazily on
// lookup.
type Memory struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]entry
}

func NewMemory(ttl time.Duration, now func() time.Time) *Memory {
	if now == nil {
		now = time.Now
	}
	return &Memory{ttl: ttl, now: now, entries: make(map[string]entry)}
}

func (m *Memory) Get(_ context.Context, key string) (domain.Signal, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return domain.Signal{}, false, nil
	}
	if m.now().Sub(e.created) > m.ttl {
		delete(m.entries, key)
		return domain.Signal{}, false, nil
	}
	return e.sig, true, nil
}

func (m *Memory) Put(_ context.Context, key string, sig domain.Signal) error {
	m.mu.Lock()
	m.entries[key] = entry{sig: sig, created: m.now()}
	m.mu.Unlock()
	return nil
}

// Len reports the number of stored entries, expired or not.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Sweep drops expired entries and returns how many were removed.
func (m *Memory) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for key, e := range m.entries {
		if now.Sub(e.created) > m.ttl {
			delete(m.entries, key)
			removed++
		}
	}
	return removed
}
