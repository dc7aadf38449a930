package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/IOT-Based-Smart-Retail-Sytstem/Backend/internal/auth"
	"github.com/IOT-Based-Smart-Retail-Sytstem/Backend/internal/feed"
	"github.com/IOT-Based-Smart-Retail-Sytstem/Backend/internal/protocol"
	"github.com/IOT-Based-Smart-Retail-Sytstem/Backend/internal/scanner"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second

	commandTimeout = 10 * time.Second
)

// Handler upgrades authenticated HTTP requests to realtime sessions.
type Handler struct {
	verifier auth.TokenVerifier
	hub      *Hub
	carts    CartController
	mutator  scanner.CartMutator
	feed     feed.Feed
	log      *logrus.Logger
	upgrader websocket.Upgrader
}

func NewHandler(verifier auth.TokenVerifier, hub *Hub, carts CartController, mutator scanner.CartMutator, scanFeed feed.Feed, log *logrus.Logger) *Handler {
	return &Handler{
		verifier: verifier,
		hub:      hub,
		carts:    carts,
		mutator:  mutator,
		feed:     scanFeed,
		log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Authentication happens before the upgrade; a connection without a
	// valid token never reaches an event handler.
	userID, err := h.verifier.Verify(bearerToken(r))
	if err != nil {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	client := NewClient(userID)
	session := NewSession(client, h.hub, h.carts, h.mutator, h.feed, h.log)

	h.log.WithFields(logrus.Fields{
		"connection": client.ID,
		"user_id":    userID,
	}).Info("client connected")

	go h.writePump(conn, client)
	h.readPump(conn, client, session)
}

// bearerToken pulls the credential from the Authorization header or, for
// browser websocket clients that cannot set headers, the token query param.
func bearerToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

func (h *Handler) readPump(conn *websocket.Conn, client *Client, session *Session) {
	defer func() {
		session.OnDisconnect()
		conn.Close()
	}()

	conn.SetReadLimit(4096)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.WithError(err).Debug("websocket read failed")
			}
			return
		}

		var msg protocol.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			client.TrySend(protocol.Error("message", protocol.ErrBadPayload))
			continue
		}

		h.dispatch(client, session, msg)
	}
}

// dispatch runs one client command. Command failures are reported on the
// error event and leave the session state unchanged; only a disconnect ends
// the connection.
func (h *Handler) dispatch(client *Client, session *Session, msg protocol.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	var (
		reply protocol.ServerMessage
		err   error
	)

	switch msg.Event {
	case protocol.EventSetCartData:
		var payload struct {
			PhysicalCode string `json:"physicalCode"`
		}
		if msg.Data != nil {
			if errDecode := json.Unmarshal(msg.Data, &payload); errDecode != nil {
				err = protocol.ErrBadPayload
				break
			}
		}
		reply, err = session.SetCartData(payload.PhysicalCode)

	case protocol.EventScanCartQR:
		reply, err = session.StartScan(ctx)

	case protocol.EventStopScanning:
		reply, err = session.StopScan()

	case protocol.EventClearCart:
		reply, err = session.ClearCart(ctx)

	default:
		err = protocol.ErrBadPayload
	}

	if err != nil {
		client.TrySend(protocol.Error(msg.Event, err))
		return
	}
	client.TrySend(reply)
}

func (h *Handler) writePump(conn *websocket.Conn, client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case msg := <-client.Send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(encode(msg)); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-client.Done():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

type wireMessage struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

func encode(msg protocol.ServerMessage) wireMessage {
	return wireMessage{Event: msg.Event, Data: msg.Payload}
}
