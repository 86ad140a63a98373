package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/puzpuzpuz/xsync/v4"
	"go.uber.org/zap"

	"github.com/lunavault/saleflow/app/query/types"
	"github.com/lunavault/saleflow/pkg/notify"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: restrict to the campaign dashboard origin once it is deployed
		return true
	},
}

// FeedMessage is the envelope sent to live feed clients.
type FeedMessage struct {
	Type    string `json:"type"` // "investment.accepted" or "ping"
	Payload any    `json:"payload"`
}

// liveFeed fans accepted-investment events out to WebSocket clients.
// A single Redis subscriber feeds every connection, so adding a client
// costs one buffered channel instead of one Redis subscription.
type liveFeed struct {
	app         *types.App
	subscribers *xsync.Map[uint64, chan FeedMessage]
	nextID      atomic.Uint64
	once        sync.Once
}

func newLiveFeed(app *types.App) *liveFeed {
	return &liveFeed{
		app:         app,
		subscribers: xsync.NewMap[uint64, chan FeedMessage](),
	}
}

// start launches the shared Redis subscriber on first use.
func (f *liveFeed) start() {
	f.once.Do(func() {
		go func() {
			defer func() {
				if rec := recover(); rec != nil {
					f.app.Logger.Error("Panic in live feed subscriber",
						zap.Any("panic", rec),
						zap.String("stack", string(debug.Stack())))
				}
			}()
			f.run()
		}()
	})
}

// run keeps the Redis subscription alive, reconnecting with backoff
// when the channel closes.
func (f *liveFeed) run() {
	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		err := f.consume()
		f.app.Logger.Warn("Live feed subscription lost, reconnecting",
			zap.Error(err),
			zap.Duration("backoff", backoff))

		time.Sleep(backoff)
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// consume reads accepted-investment events until the subscription ends.
func (f *liveFeed) consume() error {
	ctx := context.Background()

	pubsub := f.app.Redis.Subscribe(ctx, notify.ChannelAccepted)
	defer func() {
		if err := pubsub.Close(); err != nil {
			f.app.Logger.Error("Error closing live feed subscription", zap.Error(err))
		}
	}()

	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}

	for msg := range pubsub.Channel() {
		var accepted notify.AcceptedInvestment
		if err := json.Unmarshal([]byte(msg.Payload), &accepted); err != nil {
			f.app.Logger.Error("Failed to parse live feed event", zap.Error(err))
			continue
		}
		f.broadcast(FeedMessage{Type: "investment.accepted", Payload: accepted})
	}
	return nil
}

// broadcast delivers an event to every subscriber. Clients that fall
// behind miss events instead of stalling the feed.
func (f *liveFeed) broadcast(msg FeedMessage) {
	f.subscribers.Range(func(id uint64, ch chan FeedMessage) bool {
		select {
		case ch <- msg:
		default:
		}
		return true
	})
}

func (f *liveFeed) register() (uint64, chan FeedMessage) {
	id := f.nextID.Add(1)
	ch := make(chan FeedMessage, 256)
	f.subscribers.Store(id, ch)
	return id, ch
}

func (f *liveFeed) unregister(id uint64) {
	f.subscribers.Delete(id)
}

// HandleWebSocket upgrades the connection and streams accepted investments.
//
// Server sends:
// - {"type": "investment.accepted", "payload": {...}}
// - WebSocket ping frames every 30s (clients respond with pong)
//
// Clients send nothing; the read loop exists only to detect closure.
func (c *Controller) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if c.App.Redis == nil {
		http.Error(w, "Live feed not available (Redis disabled)", http.StatusServiceUnavailable)
		return
	}
	c.feed.start()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.App.Logger.Error("Failed to upgrade WebSocket connection", zap.Error(err))
		return
	}
	defer func() {
		if err := conn.Close(); err != nil {
			c.App.Logger.Error("Failed to close WebSocket connection", zap.Error(err))
		}
	}()

	c.App.Logger.Info("Live feed client connected", zap.String("remote_addr", r.RemoteAddr))

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	id, events := c.feed.register()
	defer c.feed.unregister(id)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				c.App.Logger.Error("Panic in live feed writer",
					zap.Any("panic", rec),
					zap.String("stack", string(debug.Stack())),
					zap.String("remote_addr", r.RemoteAddr))
				cancel()
			}
		}()
		c.writeFeed(ctx, conn, events)
	}()

	c.readUntilClosed(ctx, conn, cancel)

	cancel()
	wg.Wait()

	c.App.Logger.Info("Live feed client disconnected", zap.String("remote_addr", r.RemoteAddr))
}

// writeFeed pushes events and keep-alive pings until the connection ends.
func (c *Controller) writeFeed(ctx context.Context, conn *websocket.Conn, events <-chan FeedMessage) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-events:
			if err := conn.WriteJSON(msg); err != nil {
				c.App.Logger.Error("Failed to write live feed message", zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second)); err != nil {
				c.App.Logger.Error("Failed to send ping", zap.Error(err))
				return
			}
		}
	}
}

// readUntilClosed blocks reading the connection so closure is detected
// promptly. Pongs reset the read deadline.
func (c *Controller) readUntilClosed(ctx context.Context, conn *websocket.Conn, cancel context.CancelFunc) {
	if err := conn.SetReadDeadline(time.Now().Add(60 * time.Second)); err != nil {
		c.App.Logger.Error("Failed to set read deadline", zap.Error(err))
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					c.App.Logger.Error("WebSocket read error", zap.Error(err))
				}
				cancel()
				return
			}
		}
	}
}
