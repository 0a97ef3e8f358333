package feeds

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"QuantPulse/internal/domain/models"
	xlogger "QuantPulse/pkg/logger"

	"github.com/gorilla/websocket"
)

// StreamConfig wires the push-based tick stream.
type StreamConfig struct {
	Exchange       string
	URL            string
	APIKey         string
	Symbols        []string
	ReconnectDelay time.Duration
	PingInterval   time.Duration
}

// Stream is a WebSocket tick source. Frames arrive as
// {"type":"trade","data":[{s,p,v,t,b,a}...]}; anything else is skipped.
type Stream struct {
	cfg    StreamConfig
	logger *xlogger.Logger

	conn      *websocket.Conn
	connected bool
}

func NewStream(cfg StreamConfig, logger *xlogger.Logger) *Stream {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 3 * time.Second
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 20 * time.Second
	}
	return &Stream{cfg: cfg, logger: logger}
}

// Connect establishes the WebSocket connection.
func (s *Stream) Connect(ctx context.Context) error {
	u := s.cfg.URL
	if s.cfg.APIKey != "" {
		u = fmt.Sprintf("%s?token=%s", u, s.cfg.APIKey)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("stream connect: %w", err)
	}
	s.conn = conn
	s.connected = true
	s.logger.Info("tick stream connected", xlogger.String("exchange", s.cfg.Exchange))
	return nil
}

// Subscribe subscribes to the configured symbols.
func (s *Stream) Subscribe(ctx context.Context) error {
	if s.conn == nil || !s.connected {
		return fmt.Errorf("stream not connected")
	}
	for _, sym := range s.cfg.Symbols {
		msg := map[string]string{"type": "subscribe", "symbol": sym}
		if err := s.conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("subscribe %s: %w", sym, err)
		}
	}
	s.logger.Info("tick stream subscribed",
		xlogger.String("exchange", s.cfg.Exchange),
		xlogger.Int("symbols", len(s.cfg.Symbols)),
	)
	return nil
}

type wsTrade struct {
	S string  `json:"s"`
	P float64 `json:"p"`
	V float64 `json:"v"`
	T int64   `json:"t"` // ms
	B float64 `json:"b,omitempty"`
	A float64 `json:"a,omitempty"`
}

type wsMessage struct {
	Type string    `json:"type"`
	Data []wsTrade `json:"data"`
}

// Read streams ticks and errors. A full buffer drops ticks rather than
// blocking the read loop.
func (s *Stream) Read(ctx context.Context) (<-chan *models.Tick, <-chan error) {
	ticks := make(chan *models.Tick, 1024)
	errs := make(chan error, 1)

	go func() {
		ticker := time.NewTicker(s.cfg.PingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if s.conn != nil {
					_ = s.conn.WriteMessage(websocket.PingMessage, nil)
				}
			}
		}
	}()

	go func() {
		defer close(ticks)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				if s.conn == nil {
					errs <- fmt.Errorf("stream conn nil")
					return
				}
				_, b, err := s.conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("stream read: %w", err)
					return
				}
				var m wsMessage
				if err := json.Unmarshal(b, &m); err != nil {
					continue
				}
				if m.Type != "trade" {
					continue
				}
				for _, d := range m.Data {
					tick := &models.Tick{
						Symbol:    d.S,
						Exchange:  s.cfg.Exchange,
						Price:     d.P,
						Volume:    d.V,
						Timestamp: d.T,
					}
					if d.B > 0 && d.A > 0 {
						tick.Bid = d.B
						tick.Ask = d.A
						tick.Spread = d.A - d.B
						tick.HasQuote = true
					}
					select {
					case ticks <- tick:
					default:
						// drop on backpressure
					}
				}
			}
		}
	}()

	return ticks, errs
}

// Reconnect closes and re-establishes the connection and subscriptions.
func (s *Stream) Reconnect(ctx context.Context) error {
	_ = s.Close()
	time.Sleep(s.cfg.ReconnectDelay)
	if err := s.Connect(ctx); err != nil {
		return err
	}
	return s.Subscribe(ctx)
}

// Close closes the WS connection.
func (s *Stream) Close() error {
	s.connected = false
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// IsConnected indicates status.
func (s *Stream) IsConnected() bool { return s.connected }
