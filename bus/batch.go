package bus

import (
	"context"
	"sync"
	"time"
)

// BatchConfig controls send batching. Batching trades per-send latency
// for fewer dispatch passes under high fan-out; it is off by default.
// Requests and broadcasts always bypass the batcher.
type BatchConfig struct {
	Enabled  bool
	Size     int
	Interval time.Duration
}

// DefaultBatchConfig returns the batching defaults (disabled; when
// enabled, flush at 32 messages or every 50ms, whichever comes first).
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		Enabled:  false,
		Size:     32,
		Interval: 50 * time.Millisecond,
	}
}

// batcher accumulates validated, matched sends and flushes them on a
// size or interval trigger. Batched sends are already counted as sent
// at enqueue time; a batched delivery that cannot be admitted at flush
// time is dropped, not failed.
type batcher struct {
	bus      *Bus
	size     int
	interval time.Duration

	mu  sync.Mutex
	buf []*Message

	kick chan struct{}
	stop chan struct{}
	done chan struct{}
}

func newBatcher(b *Bus, cfg BatchConfig) *batcher {
	def := DefaultBatchConfig()
	if cfg.Size <= 0 {
		cfg.Size = def.Size
	}
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	bt := &batcher{
		bus:      b,
		size:     cfg.Size,
		interval: cfg.Interval,
		kick:     make(chan struct{}, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go bt.run()
	return bt
}

// enqueue buffers a message for the next flush.
func (bt *batcher) enqueue(msg *Message) {
	bt.mu.Lock()
	bt.buf = append(bt.buf, msg)
	full := len(bt.buf) >= bt.size
	bt.mu.Unlock()

	if full {
		select {
		case bt.kick <- struct{}{}:
		default:
		}
	}
}

func (bt *batcher) run() {
	defer close(bt.done)
	ticker := time.NewTicker(bt.interval)
	defer ticker.Stop()

	for {
		select {
		case <-bt.stop:
			bt.flush()
			return
		case <-bt.kick:
			bt.flush()
		case <-ticker.C:
			bt.flush()
		}
	}
}

// flush re-matches and dispatches the buffered messages. Matching is
// repeated at flush time because subscriptions may have changed since
// enqueue; a message whose subscribers all left is dropped.
func (bt *batcher) flush() {
	bt.mu.Lock()
	batch := bt.buf
	bt.buf = nil
	bt.mu.Unlock()

	for _, msg := range batch {
		subs := bt.bus.matching(msg.To)
		if len(subs) == 0 {
			bt.bus.stats.dropped.Add(1)
			continue
		}
		if err := bt.bus.admit(msg, len(subs)); err != nil {
			bt.bus.stats.dropped.Add(1)
			continue
		}
		wg := &sync.WaitGroup{}
		wg.Add(len(subs))
		now := time.Now()
		for _, s := range subs {
			d := &delivery{
				msg:      msg,
				seq:      bt.bus.seq.Add(1),
				enqueued: now,
				wg:       wg,
			}
			if !s.enqueue(d) {
				bt.bus.stats.queued.Add(-1)
				wg.Done()
			}
		}
	}
}

// flushNow flushes synchronously and waits for the queued deliveries to
// complete, so callers observe handler effects after Flush returns.
func (bt *batcher) flushNow() {
	bt.flush()
	bt.bus.waitIdle(context.Background())
}

// close performs a final flush and stops the flusher goroutine.
func (bt *batcher) close() {
	close(bt.stop)
	<-bt.done
}
