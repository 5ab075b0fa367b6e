package market

import (
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WSClient handles the streaming ticker connection and message routing.
// The feed is a cache-warming supplement; the trade cycle never depends
// on it being connected.
type WSClient struct {
	url     string
	conn    *websocket.Conn
	handler func([]byte)
	logger  *zap.Logger
}

func NewWSClient(url string, logger *zap.Logger) *WSClient {
	return &WSClient{
		url:    url,
		logger: logger,
	}
}

// SetMessageHandler sets the function to handle incoming messages.
func (c *WSClient) SetMessageHandler(h func([]byte)) {
	c.handler = h
}

// Connect establishes the WebSocket connection and subscribes to the
// ticker channel. It does not start the listener.
func (c *WSClient) Connect() error {
	conn, _, err := websocket.DefaultDialer.Dial(c.url, nil)
	if err != nil {
		c.logger.Error("failed to connect to WebSocket", zap.String("url", c.url), zap.Error(err))
		return err
	}
	c.conn = conn
	c.logger.Info("WebSocket connected", zap.String("url", c.url))

	if err := c.subscribe(conn); err != nil {
		c.logger.Error("failed to send subscription", zap.Error(err))
		return err
	}

	return nil
}

func (c *WSClient) Listen() {
	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			c.logger.Error("WebSocket read error", zap.Error(err))

			// Retry reconnecting indefinitely
			for {
				time.Sleep(3 * time.Second)
				if err := c.reconnectAndResubscribe(); err != nil {
					c.logger.Warn("retrying reconnect...")
					continue
				}
				c.logger.Info("reconnected successfully")
				break
			}
			continue // Start listening again with the new connection
		}

		if c.handler != nil {
			c.handler(msg)
		}
	}
}

func (c *WSClient) subscribe(conn *websocket.Conn) error {
	subMsg := map[string]interface{}{
		"op":   "subscribe",
		"args": []string{"ticker"},
	}
	return conn.WriteJSON(subMsg)
}

func (c *WSClient) reconnectAndResubscribe() error {
	newConn, _, err := websocket.DefaultDialer.Dial(c.url, nil)
	if err != nil {
		return err
	}

	// Close the old connection if it exists
	if c.conn != nil {
		_ = c.conn.Close()
	}

	c.conn = newConn

	if err := c.subscribe(newConn); err != nil {
		return fmt.Errorf("websocket subscribe failed: %w", err)
	}

	return nil
}
