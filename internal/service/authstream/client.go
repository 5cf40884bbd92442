package authstream

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"FraudGuard/internal/domain/models"
	drepo "FraudGuard/internal/domain/repository"

	"github.com/gorilla/websocket"
)

// Client implements an AuthStream backed by the payment switch's WebSocket
// authorization feed.
type Client struct {
	apiKey         string
	websocketURL   string
	reconnectDelay time.Duration
	pingInterval   time.Duration

	conn      *websocket.Conn
	connected bool
}

// New creates a new authorization feed client.
func New(apiKey, websocketURL string, reconnectDelay, pingInterval time.Duration) drepo.AuthStream {
	return &Client{
		apiKey:         apiKey,
		websocketURL:   websocketURL,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
	}
}

// Connect establishes the WebSocket connection.
func (c *Client) Connect(ctx context.Context) error {
	u := fmt.Sprintf("%s?token=%s", c.websocketURL, c.apiKey)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("auth feed connect: %w", err)
	}
	c.conn = conn
	c.connected = true
	log.Printf("auth feed: connected")
	return nil
}

// Subscribe asks for the authorization event stream.
func (c *Client) Subscribe(ctx context.Context) error {
	if c.conn == nil || !c.connected {
		return fmt.Errorf("auth feed not connected")
	}
	msg := map[string]string{"type": "subscribe", "channel": "authorizations"}
	if err := c.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("subscribe authorizations: %w", err)
	}
	return nil
}

type feedMessage struct {
	Type string               `json:"type"`
	Data []models.Transaction `json:"data"`
}

// Read streams authorization events and errors.
func (c *Client) Read(ctx context.Context) (<-chan *models.Transaction, <-chan error) {
	txs := make(chan *models.Transaction, 1024)
	errs := make(chan error, 1)

	// ping loop
	go func() {
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if c.conn != nil {
					_ = c.conn.WriteMessage(websocket.PingMessage, nil)
				}
			}
		}
	}()

	// read loop
	go func() {
		defer close(txs)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				if c.conn == nil {
					errs <- fmt.Errorf("auth feed conn nil")
					return
				}
				_, b, err := c.conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("auth feed read: %w", err)
					return
				}
				var m feedMessage
				if err := json.Unmarshal(b, &m); err != nil {
					// ignore non-event frames
					continue
				}
				if m.Type != "authorization" {
					continue
				}
				for i := range m.Data {
					t := m.Data[i]
					select {
					case txs <- &t:
					default:
						// drop on backpressure
					}
				}
			}
		}
	}()

	return txs, errs
}

// Reconnect closes and reconnects.
func (c *Client) Reconnect(ctx context.Context) error {
	_ = c.Close()
	time.Sleep(c.reconnectDelay)
	if err := c.Connect(ctx); err != nil {
		return err
	}
	return c.Subscribe(ctx)
}

// Close closes the WS connection.
func (c *Client) Close() error {
	c.connected = false
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// IsConnected indicates status.
func (c *Client) IsConnected() bool { return c.connected }
