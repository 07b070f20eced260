package ws

import (
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/motionbridge/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/motionbridge/internal/native"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10

	// eventBuffer is the number of flush events queued per client before
	// events are dropped.
	eventBuffer = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // devtools frontends run on other origins
	},
}

// Message is a frame sent to or received from a client.
type Message struct {
	Type      string      `json:"type"`
	ClientID  string      `json:"client_id,omitempty"`
	Seq       uint64      `json:"seq,omitempty"`
	Ops       []native.Op `json:"ops,omitempty"`
	HTML      string      `json:"html,omitempty"`
	Message   string      `json:"message,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// Handler streams flush events of a native tree to WebSocket clients.
type Handler struct {
	tree    *native.Tree
	metrics *monitoring.Metrics
	logger  *zap.Logger
}

// NewHandler creates a flush stream handler.
func NewHandler(tree *native.Tree, metrics *monitoring.Metrics, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{tree: tree, metrics: metrics, logger: logger}
}

// HandleConnection upgrades the request and streams flush events until the
// client goes away. ?html=false leaves the rendered page out of events.
//
// Clients may send {"type":"ping"} and receive {"type":"pong"}, or
// {"type":"snapshot"} to receive the current page as a flush-less event.
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	cl := &client{
		id:       uuid.NewString(),
		conn:     conn,
		send:     make(chan Message, eventBuffer),
		withHTML: c.Query("html") != "false",
		handler:  h,
	}
	h.metrics.IncWSConnections()
	h.logger.Info("Flush stream client connected", zap.String("client_id", cl.id))

	events, cancel := h.tree.Subscribe(eventBuffer)
	done := make(chan struct{})
	go cl.readLoop(done)
	cl.writeLoop(events, done)

	cancel()
	conn.Close()
	h.metrics.DecWSConnections()
	h.logger.Info("Flush stream client disconnected", zap.String("client_id", cl.id))
}

type client struct {
	id       string
	conn     *websocket.Conn
	send     chan Message
	withHTML bool
	handler  *Handler
}

// readLoop handles client frames and closes done when the client goes away.
func (cl *client) readLoop(done chan<- struct{}) {
	defer close(done)
	cl.conn.SetReadLimit(4096)
	_ = cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := cl.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				cl.handler.logger.Debug("WebSocket read error", zap.String("client_id", cl.id), zap.Error(err))
			}
			return
		}

		var msg Message
		if err := sonic.Unmarshal(data, &msg); err != nil {
			cl.queue(errorMessage("invalid message"))
			continue
		}
		cl.handler.metrics.RecordWSMessage("in", msg.Type)

		switch msg.Type {
		case "ping":
			cl.queue(Message{Type: "pong"})
		case "snapshot":
			tree := cl.handler.tree
			cl.queue(Message{Type: "snapshot", Seq: tree.Seq(), HTML: tree.HTML()})
		default:
			cl.queue(errorMessage("unknown message type"))
		}
	}
}

// queue hands a reply to the write loop, dropping it if the client is
// not keeping up.
func (cl *client) queue(msg Message) {
	select {
	case cl.send <- msg:
	default:
	}
}

// writeLoop owns every write to the connection.
func (cl *client) writeLoop(events <-chan native.FlushEvent, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	if err := cl.write(Message{Type: "welcome", ClientID: cl.id, Seq: cl.handler.tree.Seq()}); err != nil {
		return
	}

	for {
		select {
		case <-done:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			msg := Message{Type: "flush", Seq: ev.Seq, Ops: ev.Ops}
			if cl.withHTML {
				msg.HTML = ev.HTML
			}
			if err := cl.write(msg); err != nil {
				return
			}
		case msg := <-cl.send:
			if err := cl.write(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (cl *client) write(msg Message) error {
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().Unix()
	}
	data, err := sonic.Marshal(msg)
	if err != nil {
		return err
	}
	_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := cl.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		cl.handler.logger.Debug("WebSocket write error", zap.String("client_id", cl.id), zap.Error(err))
		return err
	}
	cl.handler.metrics.RecordWSMessage("out", msg.Type)
	return nil
}

func errorMessage(text string) Message {
	return Message{Type: "error", Message: text}
}
