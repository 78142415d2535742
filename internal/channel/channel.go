package channel

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"delivery-booking/internal/common/logger"
	"delivery-booking/internal/common/model"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var (
	ErrMissingSession = errors.New("no bound channel session")
	ErrClosed         = errors.New("channel closed")
)

// ConnectionError wraps transport failures so callers can surface them to
// the user as a single category.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string { return "channel connection: " + e.Err.Error() }
func (e *ConnectionError) Unwrap() error { return e.Err }

const (
	authTimeout  = 5 * time.Second
	pongWait     = 60 * time.Second
	writeWait    = 10 * time.Second
	pingInterval = 30 * time.Second
)

// Conn is the subset of *websocket.Conn the channel needs. Tests substitute
// an in-memory pipe.
type Conn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

type Handler func(event any)

// Channel is one bidirectional session with the booking backend. A channel
// is bound to at most one booking at a time; pushes for that booking are
// dispatched in arrival order on a single goroutine.
type Channel struct {
	conn      Conn
	sessionID string

	mu        sync.Mutex
	bookingID string
	handlers  map[string][]Handler
	closed    bool

	done chan struct{}
}

// Open dials the socket URL, authenticates with the login token and starts
// the read loop. The server expects an auth message as the first frame and
// answers with an authenticated status before any booking traffic.
func Open(socketURL, token string, dialTimeout time.Duration) (*Channel, error) {
	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
	conn, _, err := dialer.Dial(socketURL, nil)
	if err != nil {
		return nil, &ConnectionError{Err: err}
	}

	authMsg := model.Message{Type: "auth", Token: token}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(authMsg); err != nil {
		_ = conn.Close()
		return nil, &ConnectionError{Err: err}
	}

	_ = conn.SetReadDeadline(time.Now().Add(authTimeout))
	var reply struct {
		Status string `json:"status"`
		Error  string `json:"error"`
	}
	if err := conn.ReadJSON(&reply); err != nil {
		_ = conn.Close()
		return nil, &ConnectionError{Err: err}
	}
	if reply.Status != "authenticated" {
		_ = conn.Close()
		return nil, &ConnectionError{Err: fmt.Errorf("auth rejected: %s", reply.Error)}
	}

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPingHandler(func(appData string) error {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		// WriteControl is safe alongside Send's writes; WriteMessage here
		// would race the data writer on the engine goroutine
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(writeWait))
	})

	c := New(conn)
	go c.readLoop()
	return c, nil
}

// New wraps an already-established connection. The caller owns starting
// readLoop via Listen when not going through Open.
func New(conn Conn) *Channel {
	return &Channel{
		conn:      conn,
		sessionID: uuid.NewString(),
		handlers:  make(map[string][]Handler),
		done:      make(chan struct{}),
	}
}

// Listen starts the read loop. Only used with New; Open starts it itself.
func (c *Channel) Listen() {
	go c.readLoop()
}

func (c *Channel) SessionID() string { return c.sessionID }

// BookingID returns the booking this session is currently bound to.
func (c *Channel) BookingID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bookingID
}

// Bind associates the session with a booking so the server routes that
// booking's pushes to this connection.
func (c *Channel) Bind(bookingID string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.bookingID = bookingID
	c.mu.Unlock()

	logger.Info("channel_bind", "binding session to booking", c.sessionID, bookingID)
	return c.Send(EventAssociateBooking, AssociateBookingPayload{
		BookingID: bookingID,
		SocketID:  c.sessionID,
	})
}

// Send emits an event to the server. The session must be open; events other
// than the association itself also require a bound booking.
func (c *Channel) Send(event string, payload any) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.bookingID == "" && event != EventAssociateBooking {
		c.mu.Unlock()
		return ErrMissingSession
	}
	c.mu.Unlock()

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", event, err)
	}
	frame, err := json.Marshal(Envelope{Type: event, Data: data})
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return &ConnectionError{Err: err}
	}
	return nil
}

// Subscribe registers a handler for an event name. Handlers run on the read
// loop goroutine, one at a time, in arrival order.
func (c *Channel) Subscribe(event string, h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[event] = append(c.handlers[event], h)
}

// Close releases the session and drops all handlers. Safe to call twice.
func (c *Channel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.bookingID = ""
	c.handlers = make(map[string][]Handler)
	c.mu.Unlock()

	close(c.done)
	return c.conn.Close()
}

// Done is closed once the channel has shut down, either via Close or a
// transport failure in the read loop.
func (c *Channel) Done() <-chan struct{} { return c.done }

func (c *Channel) readLoop() {
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			wasClosed := c.closed
			c.mu.Unlock()
			if !wasClosed {
				logger.Error("channel_read_failed", "channel read failed", c.sessionID, c.BookingID(), err.Error())
				_ = c.Close()
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			logger.Warn("channel_bad_frame", "dropping unparseable frame", c.sessionID, c.BookingID(), err.Error())
			continue
		}

		event, err := DecodeEvent(env)
		if err != nil {
			logger.Warn("channel_bad_event", "dropping invalid event", c.sessionID, c.BookingID(), err.Error())
			continue
		}

		c.mu.Lock()
		hs := append([]Handler(nil), c.handlers[env.Type]...)
		c.mu.Unlock()

		for _, h := range hs {
			h(event)
		}
	}
}
