package kraken

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spooky-finn/go-kraken-bridge/config"
	"github.com/spooky-finn/go-kraken-bridge/domain"
)

const defaultWebsocketEndpoint = "wss://ws.kraken.com"

var logger = log.New(os.Stdout, "[kraken-stream-client] ", log.LstdFlags)

type SubscribtionEntry struct {
	ch              chan []byte
	subscriberCount int
	depth           int
}

type SubscribeRequest struct {
	Event        string           `json:"event"`
	Pair         []string         `json:"pair"`
	Subscription BookSubscription `json:"subscription"`
}

type BookSubscription struct {
	Name  string `json:"name"`
	Depth int    `json:"depth"`
}

// KrakenStreamClient owns one websocket connection and fans incoming frames
// out to per-pair subscribers. The feed delivers book frames strictly in
// order on a single connection; the client preserves that order per pair.
// There is no reconnection: a broken connection ends the session and every
// subscriber's stream is closed.
type KrakenStreamClient struct {
	endpoint      string
	conn          *websocket.Conn
	subscriptions map[string]*SubscribtionEntry
	mu            sync.Mutex
}

func NewKrakenStreamClient(endpoint string) *KrakenStreamClient {
	if endpoint == "" {
		endpoint = defaultWebsocketEndpoint
	}

	return &KrakenStreamClient{
		endpoint:      endpoint,
		conn:          nil,
		subscriptions: make(map[string]*SubscribtionEntry),
	}
}

func (c *KrakenStreamClient) Connect() error {
	logger.Printf("connecting to %s", c.endpoint)

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: 5 * time.Second,
	}

	conn, _, err := dialer.Dial(c.endpoint, nil)
	if err != nil {
		return err
	}
	conn.SetReadLimit(655350)
	c.conn = conn

	go c.listenConnection()
	return nil
}

// Subscribe sends the book subscription handshake for a pair and returns the
// raw frame stream for it.
func (c *KrakenStreamClient) Subscribe(symbol *domain.MarketSymbol, depth int) (*domain.Subscription[[]byte], error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	topic := symbol.String()

	entry, ok := c.subscriptions[topic]
	if ok {
		entry.subscriberCount++

		return &domain.Subscription[[]byte]{
			Stream: entry.ch,
			Unsubscribe: func() {
				c.unsubscribe(symbol)
			},
			Topic: topic,
		}, nil
	}

	ch := make(chan []byte)
	c.subscriptions[topic] = &SubscribtionEntry{
		ch:              ch,
		subscriberCount: 1,
		depth:           depth,
	}

	req := SubscribeRequest{
		Event: "subscribe",
		Pair:  []string{topic},
		Subscription: BookSubscription{
			Name:  "book",
			Depth: depth,
		},
	}

	if config.DebugMode {
		logger.Printf("subscribing: %s", toJsonString(req))
	}

	if err := c.conn.WriteJSON(req); err != nil {
		delete(c.subscriptions, topic)
		return nil, fmt.Errorf("failed to send subscribe msg for pair=%s: %w", topic, err)
	}

	return &domain.Subscription[[]byte]{
		Stream: ch,
		Unsubscribe: func() {
			c.unsubscribe(symbol)
		},
		Topic: topic,
	}, nil
}

// unsubscribe closes the pair's stream once its last subscriber leaves. The
// caller must keep draining the stream until it closes: the read loop sends
// under the same mutex, so a stalled consumer would hold this lock busy.
func (c *KrakenStreamClient) unsubscribe(symbol *domain.MarketSymbol) {
	c.mu.Lock()
	defer c.mu.Unlock()

	topic := symbol.String()
	entry, ok := c.subscriptions[topic]
	if !ok {
		return
	}

	if entry.subscriberCount > 1 {
		entry.subscriberCount--
		return
	}

	close(entry.ch)
	delete(c.subscriptions, topic)

	err := c.conn.WriteJSON(SubscribeRequest{
		Event: "unsubscribe",
		Pair:  []string{topic},
		Subscription: BookSubscription{
			Name:  "book",
			Depth: entry.depth,
		},
	})
	if err != nil {
		logger.Printf("failed to send unsubscribe msg for pair=%s: %s", topic, err)
	}
}

func (c *KrakenStreamClient) Close() error {
	return c.conn.Close()
}

// listenConnection routes every frame to its pair's subscriber. Frames that
// name no pair (system events, heartbeats) go to all subscribers. A read
// error is fatal to the session: every stream is closed and the loop exits.
func (c *KrakenStreamClient) listenConnection() {
	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			logger.Printf("connection read failed, closing session: %s", err)
			c.closeAll()
			return
		}

		pair, ok := framePair(msg)

		// Sends happen under the mutex so unsubscribe can never close a
		// channel mid-send.
		c.mu.Lock()
		if ok {
			if entry, found := c.subscriptions[pair]; found {
				entry.ch <- msg
			}
		} else {
			for _, entry := range c.subscriptions {
				entry.ch <- msg
			}
		}
		c.mu.Unlock()
	}
}

func (c *KrakenStreamClient) closeAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for topic, entry := range c.subscriptions {
		close(entry.ch)
		delete(c.subscriptions, topic)
	}
}

// framePair extracts the trailing pair element of an array frame.
func framePair(msg []byte) (string, bool) {
	var elements []json.RawMessage
	if err := json.Unmarshal(msg, &elements); err != nil || len(elements) < 2 {
		return "", false
	}

	var pair string
	if err := json.Unmarshal(elements[len(elements)-1], &pair); err != nil {
		return "", false
	}

	return pair, true
}

func toJsonString(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
