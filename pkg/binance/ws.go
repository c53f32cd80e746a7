// pkg/binance/ws.go
package binance

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/YaganovValera/ohlcv-bridge/common/logger"
	"github.com/YaganovValera/ohlcv-bridge/common/safe"
)

// Dialer opens one upstream session.
type Dialer interface {
	Dial(ctx context.Context) (Session, error)
}

// Session is a single live stream. ReadFrame blocks until the next data frame
// or until the session dies (peer close, keep-alive timeout, read error).
// Close may be called concurrently with ReadFrame and more than once.
type Session interface {
	ReadFrame() ([]byte, error)
	Close() error
}

// Connector dials the Binance kline stream over gorilla/websocket.
type Connector struct {
	cfg    Config
	dialer websocket.Dialer
	log    *logger.Logger
}

var _ Dialer = (*Connector)(nil)

// NewConnector создаёт Connector.
// Логгер именуется как "binance-ws" для удобного фильтра в логах.
func NewConnector(cfg Config, log *logger.Logger) (*Connector, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Connector{
		cfg: cfg,
		dialer: websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: cfg.HandshakeTimeout,
		},
		log: log.Named("binance-ws"),
	}, nil
}

// Dial performs the websocket handshake and arms keep-alive.
func (c *Connector) Dial(ctx context.Context) (Session, error) {
	conn, resp, err := c.dialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		if resp != nil {
			_ = resp.Body.Close()
			return nil, fmt.Errorf("binance: dial %s: %w (http %d)", c.cfg.URL, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("binance: dial %s: %w", c.cfg.URL, err)
	}

	s := &wsSession{
		conn: conn,
		cfg:  c.cfg,
		log:  c.log,
		stop: make(chan struct{}),
	}
	conn.SetReadLimit(c.cfg.ReadLimit)
	s.extendDeadline()

	// Любой control-кадр от пира подтверждает, что соединение живо.
	conn.SetPongHandler(func(string) error {
		s.extendDeadline()
		return nil
	})
	conn.SetPingHandler(func(data string) error {
		s.extendDeadline()
		err := conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(c.cfg.WriteTimeout))
		if err == nil || errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		var ne interface{ Timeout() bool }
		if errors.As(err, &ne) && ne.Timeout() {
			return nil
		}
		return err
	})

	s.pingDone = safe.Go(c.log, "binance-ws-ping", s.pingLoop)
	c.log.WithContext(ctx).Debug("ws: connected", zap.String("url", c.cfg.URL))
	return s, nil
}

type wsSession struct {
	conn     *websocket.Conn
	cfg      Config
	log      *logger.Logger
	stop     chan struct{}
	pingDone <-chan struct{}
	once     sync.Once
}

func (s *wsSession) extendDeadline() {
	_ = s.conn.SetReadDeadline(time.Now().Add(s.cfg.readWindow()))
}

func (s *wsSession) pingLoop() {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			// WriteControl безопасен параллельно с чтением
			err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.cfg.WriteTimeout))
			if err != nil {
				// дальше разберётся read deadline
				s.log.Debug("ws: ping failed", zap.Error(err))
				return
			}
		}
	}
}

// ReadFrame returns the next text or binary frame.
func (s *wsSession) ReadFrame() ([]byte, error) {
	_, data, err := s.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Close sends a normal close frame (best effort) and drops the TCP connection.
func (s *wsSession) Close() error {
	var err error
	s.once.Do(func() {
		close(s.stop)
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(s.cfg.WriteTimeout))
		err = s.conn.Close()
		<-s.pingDone
	})
	return err
}
