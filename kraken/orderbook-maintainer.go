package kraken

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gammazero/deque"
	"github.com/spooky-finn/go-kraken-bridge/domain"
	promclient "github.com/spooky-finn/go-kraken-bridge/infrastructure/prometheus"
)

var ErrChecksumMissing = errors.New("update carried no checksum field")

type BookEventKind int

const (
	EventSnapshotApplied BookEventKind = iota
	EventUpdateApplied
	EventChecksumMismatch
	EventBadChecksum
	EventSystem
	EventUnknown
)

// BookEvent is the maintainer's report of one processed message. Local and
// Upstream carry the computed and supplied checksums for update events.
type BookEvent struct {
	Kind     BookEventKind
	Pair     string
	Event    string
	Local    uint32
	Upstream uint32
	Err      error
}

// OrderbookMaintainer consumes one pair's book stream and keeps its
// OrderBook current. Messages are buffered in a queue and applied by a
// single goroutine in arrival order; in-order no-drop delivery from the
// stream is a hard precondition, since nothing beyond the top-10 checksum
// can detect a lost diff.
//
// A checksum mismatch is reported and counted, never acted upon: the book
// keeps applying subsequent updates and the consumer decides whether to
// tear the session down.
type OrderbookMaintainer struct {
	orderBook *domain.OrderBook
	streamAPI *KrakenStreamAPI

	msgQueue    deque.Deque[*BookMessage]
	mu          sync.Mutex
	done        chan struct{}
	streamDone  chan struct{}
	unsubscribe func()

	Events                chan BookEvent
	ChecksumMismatchCount int
}

func NewOrderBookMaintainer(streamAPI *KrakenStreamAPI) *OrderbookMaintainer {
	return &OrderbookMaintainer{
		streamAPI: streamAPI,

		msgQueue:   deque.Deque[*BookMessage]{},
		done:       make(chan struct{}),
		streamDone: make(chan struct{}),

		Events: make(chan BookEvent, 256),
	}
}

// Start subscribes to the pair's book feed and returns the (still empty)
// order book it will maintain. The book is populated by the first snapshot
// message and mutated by every following update.
func (m *OrderbookMaintainer) Start(symbol *domain.MarketSymbol, depth int) (*domain.OrderBook, error) {
	subscription, err := m.streamAPI.BookStream(symbol, depth)
	if err != nil {
		return nil, fmt.Errorf("failed to open book stream for %s: %w", symbol, err)
	}

	m.orderBook = domain.NewOrderBook(symbol, depth)
	m.unsubscribe = subscription.Unsubscribe

	go m.runStreamSubscriber(subscription)
	go m.queueReader()

	return m.orderBook, nil
}

// Stop unsubscribes first, while the pipeline is still draining: the stream
// client's read loop may be mid-send to this maintainer's stream, and the
// unsubscribe cannot complete until that send is consumed. Only once the
// subscription is torn down are the worker goroutines told to exit.
func (m *OrderbookMaintainer) Stop() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
	close(m.done)
}

func (m *OrderbookMaintainer) runStreamSubscriber(subscription *domain.Subscription[*BookMessage]) {
	for {
		select {
		case <-m.done:
			return
		case msg, ok := <-subscription.Stream:
			if !ok {
				close(m.streamDone)
				return
			}

			m.mu.Lock()
			m.msgQueue.PushBack(msg)
			m.mu.Unlock()
		}
	}
}

func (m *OrderbookMaintainer) queueReader() {
	// queueReader is the only emitter, so it owns closing Events on every
	// exit path.
	defer close(m.Events)

	for {
		select {
		case <-m.done:
			return
		default:
		}

		m.mu.Lock()
		if m.msgQueue.Len() > 0 {
			msg := m.msgQueue.PopFront()
			m.mu.Unlock()

			m.applyMessage(msg)
			continue
		}
		m.mu.Unlock()

		// The queue drains before the Events channel closes, so a dying
		// stream never leaves buffered diffs unapplied.
		select {
		case <-m.streamDone:
			return
		default:
		}

		time.Sleep(100 * time.Millisecond)
	}
}

func (m *OrderbookMaintainer) applyMessage(msg *BookMessage) {
	switch msg.Kind {
	case KindSnapshot:
		dropped := m.orderBook.Initialize(msg.Snapshot)
		if dropped > 0 {
			promclient.SnapshotEntriesDropped.Add(float64(dropped))
		}
		m.emit(BookEvent{Kind: EventSnapshotApplied, Pair: msg.Pair})

	case KindUpdate:
		m.orderBook.ApplyUpdate(msg.Update)
		promclient.BookUpdatesApplied.Inc()
		m.verifyChecksum(msg)

	case KindSystem:
		m.emit(BookEvent{Kind: EventSystem, Pair: msg.Pair, Event: msg.Event})

	default:
		m.emit(BookEvent{Kind: EventUnknown, Pair: msg.Pair})
	}
}

func (m *OrderbookMaintainer) verifyChecksum(msg *BookMessage) {
	if msg.Update.Checksum == "" {
		m.emit(BookEvent{Kind: EventBadChecksum, Pair: msg.Pair, Err: ErrChecksumMissing})
		return
	}

	upstream, err := strconv.ParseUint(msg.Update.Checksum, 10, 32)
	if err != nil {
		m.emit(BookEvent{
			Kind: EventBadChecksum,
			Pair: msg.Pair,
			Err:  fmt.Errorf("unparsable checksum %q: %w", msg.Update.Checksum, err),
		})
		return
	}

	local := m.orderBook.Checksum()
	promclient.ChecksumChecks.Inc()

	if local != uint32(upstream) {
		m.ChecksumMismatchCount++
		promclient.ChecksumMismatches.Inc()
		m.emit(BookEvent{
			Kind:     EventChecksumMismatch,
			Pair:     msg.Pair,
			Local:    local,
			Upstream: uint32(upstream),
		})
		return
	}

	m.emit(BookEvent{
		Kind:     EventUpdateApplied,
		Pair:     msg.Pair,
		Local:    local,
		Upstream: uint32(upstream),
	})
}

// emit never blocks message processing: if the consumer falls behind the
// event is dropped.
func (m *OrderbookMaintainer) emit(event BookEvent) {
	select {
	case m.Events <- event:
	default:
		logger.Printf("event channel full, dropping event kind=%d pair=%s", event.Kind, event.Pair)
	}
}
