package net

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/starfall/server/internal/auth"
	"github.com/starfall/server/internal/config"
	"github.com/starfall/server/internal/persist"
	"github.com/starfall/server/internal/system"
	"github.com/starfall/server/internal/wire"
	"github.com/starfall/server/internal/world"
	"go.uber.org/zap"
)

var sessionSeq atomic.Int64

// Session is one WebSocket connection. The reader goroutine decodes frames
// and posts them to the current map's inbox; the writer goroutine drains the
// outbound queue. The join handshake is the only handler that runs directly
// on the reader.
type Session struct {
	id     string
	conn   *websocket.Conn
	router *wire.Router
	cfg    *config.Config
	env    *system.Env
	limits *limiterSet
	log    *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	out    chan []byte
	closed atomic.Bool
	authed atomic.Bool
	runner atomic.Pointer[system.Runner]
}

// NewSession wraps an upgraded connection. Run must be called to start the
// pumps.
func NewSession(parent context.Context, conn *websocket.Conn, router *wire.Router, cfg *config.Config, env *system.Env) *Session {
	ctx, cancel := context.WithCancel(parent)
	id := fmt.Sprintf("client_%d", sessionSeq.Add(1))
	return &Session{
		id:     id,
		conn:   conn,
		router: router,
		cfg:    cfg,
		env:    env,
		limits: newLimiterSet(cfg.Game.RateLimit),
		log:    env.Log.With(zap.String("session", id)),
		ctx:    ctx,
		cancel: cancel,
		out:    make(chan []byte, cfg.Network.OutQueueSize),
	}
}

// ClientID is the server-assigned connection id, stable for the session.
func (s *Session) ClientID() string { return s.id }

func (s *Session) Authenticated() bool { return s.authed.Load() }

func (s *Session) Closed() bool { return s.closed.Load() }

func (s *Session) Context() context.Context { return s.ctx }

// Runner returns the runner of the map the session currently lives on.
func (s *Session) Runner() *system.Runner { return s.runner.Load() }

func (s *Session) AttachRunner(r *system.Runner) { s.runner.Store(r) }

func (s *Session) MarkAuthenticated(identity auth.Identity) {
	s.authed.Store(true)
	s.env.Crash.Record(s.id, "authenticated", identity.UserID)
}

// Send marshals and queues one frame.
func (s *Session) Send(v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		s.log.Error("marshal outbound frame", zap.Error(err))
		return
	}
	s.SendRaw(raw)
}

// SendRaw queues a pre-marshaled frame. Frames to a closed or saturated
// session are dropped; a consumer that cannot keep up loses deltas, not the
// connection.
func (s *Session) SendRaw(raw []byte) {
	if s.closed.Load() {
		return
	}
	select {
	case s.out <- raw:
	default:
		s.log.Warn("outbound queue full, dropping frame")
	}
}

// Run drives the session until the socket closes, then runs disconnect
// cleanup on the map's tick goroutine.
func (s *Session) Run() {
	go s.writeLoop()
	s.readLoop()
	s.teardown()
}

func (s *Session) readLoop() {
	readTimeout := s.cfg.Network.ReadTimeout
	s.conn.SetReadLimit(int64(s.cfg.Network.MaxFrameBytes))
	s.conn.SetReadDeadline(time.Now().Add(readTimeout))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug("read error", zap.Error(err))
			}
			return
		}
		s.conn.SetReadDeadline(time.Now().Add(readTimeout))
		s.env.Metrics.FramesIn.Inc()

		msgType, _ := wire.PeekType(raw)
		if category := frameCategory(msgType); category != "" && !s.limits.allow(category) {
			s.env.Metrics.RateLimited.WithLabelValues(category).Inc()
			s.Send(wire.NewError(wire.CodeRateLimited, "slow down"))
			continue
		}

		// The join handshake blocks on the store and must not stall a tick;
		// it runs here. Everything after join goes through the map inbox.
		run := s.runner.Load()
		if msgType == wire.TypeJoin || run == nil {
			s.router.Dispatch(s, raw)
			continue
		}
		if !run.Map.Post(world.InboundFrame{Client: s, Raw: raw}) {
			s.log.Warn("map inbox full, dropping frame", zap.String("type", msgType))
		}
	}
}

func (s *Session) writeLoop() {
	pingPeriod := s.cfg.Network.ReadTimeout * 9 / 10
	if pingPeriod <= 0 {
		pingPeriod = 30 * time.Second
	}
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			s.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			return
		case raw := <-s.out:
			s.conn.SetWriteDeadline(time.Now().Add(s.cfg.Network.WriteTimeout))
			if err := s.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
				s.log.Debug("write error", zap.Error(err))
				s.cancel()
				return
			}
			s.env.Metrics.FramesOut.Inc()
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(s.cfg.Network.WriteTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.cancel()
				return
			}
		}
	}
}

// teardown detaches the player from its map and flushes a final save. The
// mutation itself runs on the tick goroutine.
func (s *Session) teardown() {
	s.closed.Store(true)
	s.cancel()
	s.conn.Close()

	run := s.runner.Load()
	if run == nil {
		s.env.Crash.DropSession(s.id)
		return
	}
	id := s.id
	run.Map.PostCommand(func(m *world.Map) {
		p := m.Player(id)
		if p == nil {
			return
		}
		now := time.Now()
		run.Cargo.CancelFor(m, p, "disconnect")
		run.Combat.Stop(m, p, now)
		run.Combat.PlayerLeft(id)
		run.Hazard.PlayerLeft(id)
		s.env.Saves.Enqueue(persist.SaveRequest{Record: p.ToRecord(), Reason: "disconnect"})
		m.RemovePlayer(id)
		s.env.Bc.ToMap(m, &wire.PlayerLeft{Type: wire.TypePlayerLeft, ClientID: id}, "")
		m.Log.Info("player left", zap.String("client", id))
	})
	s.env.Crash.DropSession(id)
}
