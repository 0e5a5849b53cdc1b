package tradingapi

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WSClient holds the push connection to the trading API. One connection is
// established per view lifetime; when it drops, the client signals closure
// and stays down. The polling adapter remains the correctness floor, so no
// reconnect loop is attempted here.
type WSClient struct {
	url          string
	pingInterval time.Duration
	conn         *websocket.Conn
	handler      func([]byte)
	logger       *zap.Logger

	closeOnce sync.Once
	done      chan struct{}
}

// NewWSClient creates a new WebSocket client with the given URL and logger.
func NewWSClient(url string, pingInterval time.Duration, logger *zap.Logger) *WSClient {
	return &WSClient{
		url:          url,
		pingInterval: pingInterval,
		logger:       logger,
		done:         make(chan struct{}),
	}
}

// SetMessageHandler sets the function to handle incoming messages.
// Must be called before Listen.
func (c *WSClient) SetMessageHandler(h func([]byte)) {
	c.handler = h
}

// Connect establishes the WebSocket connection. It does not start the listener.
func (c *WSClient) Connect() error {
	conn, _, err := websocket.DefaultDialer.Dial(c.url, nil)
	if err != nil {
		c.logger.Error("Failed to connect to WebSocket", zap.String("url", c.url), zap.Error(err))
		return err
	}
	c.conn = conn
	c.logger.Info("WebSocket connected", zap.String("url", c.url))

	return nil
}

// Listen reads messages until the connection drops or Close is called, then
// signals Done and returns. The keep-alive ping ticker is stopped on return.
func (c *WSClient) Listen() {
	defer c.signalDone()

	stopPing := make(chan struct{})
	defer close(stopPing)
	go c.keepAlive(stopPing)

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			c.logger.Warn("WebSocket read error, push feed degraded to polling", zap.Error(err))
			return
		}

		if c.handler != nil {
			c.handler(msg)
		}
	}
}

// Done is closed once the connection is no longer delivering messages.
func (c *WSClient) Done() <-chan struct{} {
	return c.done
}

// Close tears the connection down. Safe to call more than once.
func (c *WSClient) Close() {
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.signalDone()
}

func (c *WSClient) keepAlive(stop <-chan struct{}) {
	if c.pingInterval <= 0 {
		return
	}

	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				c.logger.Debug("keep-alive ping failed", zap.Error(err))
				return
			}
		case <-stop:
			return
		}
	}
}

func (c *WSClient) signalDone() {
	c.closeOnce.Do(func() { close(c.done) })
}
