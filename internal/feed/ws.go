// Package feed maintains the real-time market data connection. It owns the
// websocket lifecycle (dial, subscribe, read, reconnect) and pushes decoded
// events into the orderbook cache before notifying observers in registration
// order.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/parityarb/paritybot/internal/books"
	"github.com/parityarb/paritybot/internal/domain"
)

const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// pongWait is the time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// pingPeriod sends pings to the peer at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
)

// ConnState is the feed's connection lifecycle state.
type ConnState string

const (
	StateDisconnected ConnState = "disconnected"
	StateConnecting   ConnState = "connecting"
	StateConnected    ConnState = "connected"
)

// BookObserver receives every full orderbook snapshot after the cache update.
type BookObserver func(snap domain.OrderbookSnapshot)

// LastTradeObserver receives last trade price events.
type LastTradeObserver func(assetID string, price, size float64)

// PriceChangeObserver receives incremental price change notifications.
type PriceChangeObserver func(assetID string)

// Config holds the feed connection parameters.
type Config struct {
	// URL is the CLOB market-channel websocket endpoint.
	URL string
	// ReconnectDelay is the fixed wait between reconnect attempts.
	ReconnectDelay time.Duration
	// MaxReconnectAttempts bounds consecutive failed attempts before the feed
	// gives up with ErrReconnectExhausted. Any successfully read message
	// resets the counter.
	MaxReconnectAttempts int
}

// Client is the market data feed. One Run loop owns the connection; observers
// are invoked synchronously from that loop in registration order, so they see
// events in wire order without locking.
type Client struct {
	cfg    Config
	cache  *books.Cache
	logger *slog.Logger

	mu       sync.Mutex
	state    ConnState
	assetIDs []string
	conn     *websocket.Conn

	bookObservers      []BookObserver
	lastTradeObservers []LastTradeObserver
	priceObservers     []PriceChangeObserver
}

// NewClient creates a feed client writing into cache.
func NewClient(cfg Config, cache *books.Cache, logger *slog.Logger) *Client {
	return &Client{
		cfg:    cfg,
		cache:  cache,
		logger: logger.With(slog.String("component", "feed")),
		state:  StateDisconnected,
	}
}

// OnBook registers a book snapshot observer. Observers run sequentially in
// registration order. Registration must finish before Run starts.
func (c *Client) OnBook(fn BookObserver) {
	c.bookObservers = append(c.bookObservers, fn)
}

// OnLastTrade registers a last trade price observer.
func (c *Client) OnLastTrade(fn LastTradeObserver) {
	c.lastTradeObservers = append(c.lastTradeObservers, fn)
}

// OnPriceChange registers a price change observer.
func (c *Client) OnPriceChange(fn PriceChangeObserver) {
	c.priceObservers = append(c.priceObservers, fn)
}

// State returns the current connection state.
func (c *Client) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SetAssets replaces the subscribed token set. When connected, the new
// subscription is sent immediately; it is also replayed on every reconnect.
func (c *Client) SetAssets(assetIDs []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.assetIDs = append([]string(nil), assetIDs...)
	if c.conn == nil {
		return nil
	}
	if err := c.sendSubscribeLocked(); err != nil {
		return fmt.Errorf("feed: resubscribe: %w", err)
	}
	return nil
}

// Run connects and reads until ctx is cancelled or reconnect attempts are
// exhausted. Each (re)connect replays the full subscription.
func (c *Client) Run(ctx context.Context) error {
	attempts := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		c.setState(StateConnecting)
		conn, err := c.dial(ctx)
		if err != nil {
			c.setState(StateDisconnected)
			attempts++
			c.logger.Warn("connect failed",
				slog.Int("attempt", attempts),
				slog.String("error", err.Error()),
			)
			if attempts >= c.cfg.MaxReconnectAttempts {
				return fmt.Errorf("feed: after %d attempts: %w", attempts, domain.ErrReconnectExhausted)
			}
			if err := sleepCtx(ctx, c.cfg.ReconnectDelay); err != nil {
				return err
			}
			continue
		}

		c.setState(StateConnected)
		c.logger.Info("connected", slog.String("url", c.cfg.URL))

		readErr := c.readUntilError(ctx, conn, &attempts)
		c.setState(StateDisconnected)

		if ctx.Err() != nil {
			return ctx.Err()
		}
		attempts++
		c.logger.Warn("connection lost",
			slog.Int("attempt", attempts),
			slog.String("error", readErr.Error()),
		)
		if attempts >= c.cfg.MaxReconnectAttempts {
			return fmt.Errorf("feed: after %d attempts: %w", attempts, domain.ErrReconnectExhausted)
		}
		if err := sleepCtx(ctx, c.cfg.ReconnectDelay); err != nil {
			return err
		}
	}
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 15 * time.Second}
	conn, _, err := dialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("feed: connect: %w", err)
	}

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	c.mu.Lock()
	c.conn = conn
	err = c.sendSubscribeLocked()
	c.mu.Unlock()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("feed: subscribe: %w", err)
	}
	return conn, nil
}

// sendSubscribeLocked writes the subscription frame. Caller holds c.mu.
func (c *Client) sendSubscribeLocked() error {
	cmd := newSubscribeCommand(c.assetIDs)
	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("marshal subscribe: %w", err)
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// readUntilError reads and dispatches messages until the connection drops or
// ctx is cancelled. Each message read resets the shared attempt counter.
func (c *Client) readUntilError(ctx context.Context, conn *websocket.Conn, attempts *int) error {
	done := make(chan struct{})
	defer close(done)

	// Closing the conn is the only way to unblock ReadMessage on cancel.
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait),
			)
			conn.Close()
		case <-done:
		}
	}()

	go c.pingLoop(conn, done)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			c.conn = nil
			c.mu.Unlock()
			conn.Close()
			return fmt.Errorf("feed: read: %w", err)
		}
		*attempts = 0
		c.handleFrame(raw)
	}
}

// pingLoop keeps the connection alive. The conn allows at most one concurrent
// WriteMessage caller, so control frames use WriteControl, which is safe
// alongside the subscribe writes serialized under c.mu.
func (c *Client) pingLoop(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// handleFrame decodes one wire frame. The exchange batches events, so a frame
// may be a single event object or an array of them.
func (c *Client) handleFrame(raw []byte) {
	trimmed := firstNonSpace(raw)
	if trimmed == '[' {
		var events []json.RawMessage
		if err := json.Unmarshal(raw, &events); err != nil {
			return
		}
		for _, ev := range events {
			c.handleEvent(ev)
		}
		return
	}
	c.handleEvent(raw)
}

// handleEvent routes one event by event_type. Unknown types are dropped
// silently: the exchange adds event kinds without notice.
func (c *Client) handleEvent(raw []byte) {
	var env wsEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return
	}

	switch env.EventType {
	case "book":
		var msg rawBookMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			return
		}
		tokenID, bids, asks, ts := bookToSnapshot(&msg)
		if tokenID == "" {
			return
		}
		snap := c.cache.Update(tokenID, bids, asks, ts)
		for _, fn := range c.bookObservers {
			fn(snap)
		}

	case "last_trade_price":
		var msg lastTradeMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			return
		}
		price, size, err := parsePriceSize(msg.Price, msg.Size)
		if err != nil {
			return
		}
		for _, fn := range c.lastTradeObservers {
			fn(msg.AssetID, price, size)
		}

	case "price_change":
		var msg priceChangeMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			return
		}
		for _, fn := range c.priceObservers {
			fn(msg.AssetID)
		}
	}
}

func (c *Client) setState(s ConnState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func firstNonSpace(raw []byte) byte {
	for _, b := range raw {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		}
		return b
	}
	return 0
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
