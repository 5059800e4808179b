// Copyright (c) 2026 21st. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package preview

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/ehtisham-afzal/21st/internal/core/component"
	"github.com/ehtisham-afzal/21st/internal/platform/apperr"
	"github.com/ehtisham-afzal/21st/internal/platform/constants"
	"github.com/ehtisham-afzal/21st/internal/platform/metrics"
	"github.com/ehtisham-afzal/21st/internal/platform/respond"
	"github.com/ehtisham-afzal/21st/internal/preview/host"
	"github.com/ehtisham-afzal/21st/pkg/pagination"
)

// Message types exchanged over a live connection.
const (
	MessageUpdate = "update"
	MessageBrowse = "browse"
	MessageState  = "state"
	MessageCards  = "cards"
	MessageError  = "error"
)

// pongWait is how long a silent client is kept before the read loop fails.
const pongWait = constants.LiveSessionPingInterval + constants.LiveSessionWriteTimeout

// Browser lists gallery cards for a browse selection.
type Browser interface {
	BrowseDemos(context context.Context, filter component.Filter, page pagination.Params) ([]*component.Card, int, error)
}

// ClientMessage is a frame sent by the editor.
type ClientMessage struct {
	Type   string                 `json:"type"`
	Inputs *host.Inputs           `json:"inputs,omitempty"`
	Browse *component.BrowseState `json:"browse,omitempty"`
}

// ServerMessage is a frame pushed to the editor.
type ServerMessage struct {
	Type  string                 `json:"type"`
	State *host.State            `json:"state,omitempty"`
	Cards []*component.Card      `json:"cards,omitempty"`
	Meta  *pagination.Meta       `json:"meta,omitempty"`
	Error *respond.ErrorEnvelope `json:"error,omitempty"`
}

// # Live Handler

/*
LiveHandler serves GET /api/v1/preview/live.

Each connection owns one [host.Session] and one [component.Browse]. Editor
updates start new generations; every published state is pushed back. Only the
latest message of each type is kept while the client is slow.
*/
type LiveHandler struct {
	service  *Service
	browser  Browser
	metrics  *metrics.Registry
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewLiveHandler constructs a new [LiveHandler]. Connections without an
// Origin header, or with one accepted by originAllowed, are upgraded.
func NewLiveHandler(service *Service, browser Browser, registry *metrics.Registry, originAllowed func(string) bool, logger *slog.Logger) *LiveHandler {
	return &LiveHandler{
		service: service,
		browser: browser,
		metrics: registry,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(request *http.Request) bool {
				origin := request.Header.Get(constants.HeaderOrigin)
				return origin == "" || originAllowed(origin)
			},
		},
	}
}

func (handler *LiveHandler) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	conn, err := handler.upgrader.Upgrade(writer, request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		handler.logger.Warn("live_session_upgrade_failed", slog.Any("error", err))
		return
	}

	handler.metrics.LiveSessions.Inc()
	defer handler.metrics.LiveSessions.Dec()

	started := time.Now()
	handler.logger.Info("live_session_opened", slog.String("remote_addr", request.RemoteAddr))

	err = handler.serve(context.WithoutCancel(request.Context()), conn)
	if err != nil && !isClosure(err) {
		handler.logger.Warn("live_session_failed", slog.Any("error", err))
	}

	handler.logger.Info("live_session_closed",
		slog.String("remote_addr", request.RemoteAddr),
		slog.Duration("duration", time.Since(started)),
	)
}

// serve runs the read and write loops until either fails.
func (handler *LiveHandler) serve(parent context.Context, conn *websocket.Conn) error {
	group, ctx := errgroup.WithContext(parent)

	session := handler.service.NewSession(ctx)
	defer session.Close()

	box := newOutbox()
	unsubscribe := session.Subscribe(func(state host.State) {
		box.put(ServerMessage{Type: MessageState, State: &state})
	})
	defer unsubscribe()

	browse := component.NewBrowse()
	stopBrowsing := browse.Subscribe(func(state component.BrowseState) {
		box.put(handler.cards(ctx, state))
	})
	defer stopBrowsing()

	group.Go(func() error {
		return handler.writeLoop(ctx, conn, box)
	})
	group.Go(func() error {
		return handler.readLoop(conn, session, browse, box)
	})

	return group.Wait()
}

// # Loops

func (handler *LiveHandler) readLoop(conn *websocket.Conn, session *host.Session, browse *component.Browse, box *outbox) error {
	conn.SetReadLimit(constants.LiveSessionMaxMessageBytes)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var message ClientMessage
		if err := conn.ReadJSON(&message); err != nil {
			var syntax *json.SyntaxError
			var mismatch *json.UnmarshalTypeError
			if errors.As(err, &syntax) || errors.As(err, &mismatch) {
				box.put(errorMessage(apperr.ValidationError("Malformed message")))
				continue
			}
			return err
		}

		switch message.Type {
		case MessageUpdate:
			if message.Inputs == nil {
				box.put(errorMessage(apperr.ValidationError("Update requires inputs")))
				continue
			}
			inputs, err := Normalize(*message.Inputs)
			if err != nil {
				box.put(errorMessage(err))
				continue
			}
			session.Update(Authoring(inputs))

		case MessageBrowse:
			if message.Browse == nil {
				browse.Apply(component.DefaultBrowseState())
				continue
			}
			browse.Apply(*message.Browse)

		default:
			box.put(errorMessage(apperr.ValidationError("Unknown message type " + message.Type)))
		}
	}
}

func (handler *LiveHandler) writeLoop(ctx context.Context, conn *websocket.Conn, box *outbox) error {
	ticker := time.NewTicker(constants.LiveSessionPingInterval)
	defer ticker.Stop()
	defer conn.Close()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
				time.Now().Add(constants.LiveSessionWriteTimeout))
			return ctx.Err()

		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(constants.LiveSessionWriteTimeout)); err != nil {
				return err
			}

		case <-box.notify:
			for _, message := range box.drain() {
				_ = conn.SetWriteDeadline(time.Now().Add(constants.LiveSessionWriteTimeout))
				if err := conn.WriteJSON(message); err != nil {
					return err
				}
			}
		}
	}
}

// cards fetches the page for a browse selection.
func (handler *LiveHandler) cards(ctx context.Context, state component.BrowseState) ServerMessage {
	params := state.Params()
	cards, total, err := handler.browser.BrowseDemos(ctx, state.Filter(), params)
	if err != nil {
		return errorMessage(err)
	}
	meta := pagination.NewMeta(params.Page, params.Limit, total)
	return ServerMessage{Type: MessageCards, Cards: cards, Meta: &meta}
}

func errorMessage(err error) ServerMessage {
	envelope := respond.Envelope(respond.Resolve(err))
	return ServerMessage{Type: MessageError, Error: &envelope}
}

func isClosure(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, net.ErrClosed)
}

// # Outbox

// outbox keeps the latest pending message per type. put never blocks.
type outbox struct {
	mu      sync.Mutex
	pending map[string]ServerMessage
	order   []string
	notify  chan struct{}
}

func newOutbox() *outbox {
	return &outbox{
		pending: make(map[string]ServerMessage),
		notify:  make(chan struct{}, 1),
	}
}

func (box *outbox) put(message ServerMessage) {
	box.mu.Lock()
	if _, queued := box.pending[message.Type]; !queued {
		box.order = append(box.order, message.Type)
	}
	box.pending[message.Type] = message
	box.mu.Unlock()

	select {
	case box.notify <- struct{}{}:
	default:
	}
}

func (box *outbox) drain() []ServerMessage {
	box.mu.Lock()
	defer box.mu.Unlock()

	messages := make([]ServerMessage, 0, len(box.order))
	for _, kind := range box.order {
		messages = append(messages, box.pending[kind])
	}
	box.pending = make(map[string]ServerMessage)
	box.order = box.order[:0]
	return messages
}
