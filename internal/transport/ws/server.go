package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"overburnt.game/internal/configstore"
	"overburnt.game/internal/protocol"
	"overburnt.game/internal/sim/runtime"
	"overburnt.game/internal/sim/session"
)

// SessionMetrics is implemented by metrics.SessionCollector.
type SessionMetrics interface {
	runtime.Metrics
	SessionOpened()
	SessionClosed()
}

// SessionRecorder is implemented by indexdb.SQLiteIndex.
type SessionRecorder interface {
	runtime.AttemptSink
	RecordSession(id, playerName string, seed int64, startLevel int)
}

type TickLog interface {
	runtime.TickLogger
	io.Closer
}

type Options struct {
	DefaultSeed     int64
	StateEveryTicks int
	MaxSessions     int

	// InputRate and InputBurst override the tuning rate limits when InputRate > 0.
	InputRate  rate.Limit
	InputBurst int

	Metrics  SessionMetrics
	Recorder SessionRecorder
	// TickLogs opens the tick log of a new session. Nil disables tick logs.
	TickLogs func(sessionID string) TickLog
}

type Server struct {
	store *configstore.Store
	log   *log.Logger
	opts  Options

	upgrader websocket.Upgrader
	active   atomic.Int64
}

func NewServer(store *configstore.Store, logger *log.Logger, opts Options) *Server {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Server{
		store: store,
		log:   logger,
		opts:  opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

// ActiveSessions reports the number of connected sessions.
func (s *Server) ActiveSessions() int { return int(s.active.Load()) }

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		if n := s.active.Add(1); s.opts.MaxSessions > 0 && n > int64(s.opts.MaxSessions) {
			s.active.Add(-1)
			_ = writeJSON(conn, protocol.NewError(protocol.ErrRateLimit, "too many sessions"))
			return
		}
		defer s.active.Add(-1)

		rt, hello, ok := s.handshake(conn)
		if !ok {
			return
		}
		s.serve(conn, rt, hello)
	}
}

func (s *Server) handshake(conn *websocket.Conn) (*runtime.Runtime, protocol.HelloMsg, bool) {
	var hello protocol.HelloMsg

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return nil, hello, false
	}
	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = writeJSON(conn, protocol.NewError(protocol.ErrProtoBadRequest, "expected HELLO"))
		return nil, hello, false
	}
	if err := protocol.Validate(protocol.TypeHello, msg); err != nil {
		_ = writeJSON(conn, protocol.NewError(protocol.ErrProtoBadRequest, err.Error()))
		return nil, hello, false
	}
	if err := json.Unmarshal(msg, &hello); err != nil {
		_ = writeJSON(conn, protocol.NewError(protocol.ErrProtoBadRequest, "bad HELLO"))
		return nil, hello, false
	}
	if hello.ProtocolVersion != protocol.Version {
		_ = writeJSON(conn, protocol.NewError(protocol.ErrProtoBadRequest, "bad protocol_version"))
		return nil, hello, false
	}

	b := s.store.Current()
	startLevel := 0
	if hello.LevelIndex != nil {
		startLevel = *hello.LevelIndex
	}
	if startLevel >= b.Levels.Len() {
		_ = writeJSON(conn, protocol.NewError(protocol.ErrProtoBadRequest, fmt.Sprintf("level_index %d out of range", startLevel)))
		return nil, hello, false
	}
	seed := s.opts.DefaultSeed
	if hello.Seed != nil {
		seed = *hello.Seed
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	id := uuid.NewString()
	sessLog := log.New(s.log.Writer(), fmt.Sprintf("[session %s] ", id[:8]), s.log.Flags())
	ctrl, err := session.New(session.Config{
		Catalogs:   b.Catalogs,
		Tuning:     b.Tuning,
		Layout:     b.Layout,
		Levels:     b.Levels,
		Seed:       seed,
		StartLevel: startLevel,
		Logger:     sessLog,
	})
	if err != nil {
		s.log.Printf("session: %v", err)
		_ = writeJSON(conn, protocol.NewError(protocol.ErrInternal, "session unavailable"))
		return nil, hello, false
	}

	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       id,
		TickRateHz:      b.Tuning.TickRateHz,
		Seed:            seed,
		Catalogs: protocol.CatalogDigests{
			ItemsDigest:   b.Catalogs.Items.DefsDigest,
			RecipesDigest: b.Catalogs.Recipes.Digest,
			LevelsDigest:  b.Levels.Digest,
			LayoutDigest:  b.Layout.Digest,
			TuningDigest:  b.Tuning.Digest(),
		},
	}
	if err := writeJSON(conn, welcome); err != nil {
		return nil, hello, false
	}

	rt := runtime.New(ctrl, runtime.Config{
		ID:              id,
		TickRateHz:      b.Tuning.TickRateHz,
		Seed:            seed,
		StartLevel:      startLevel,
		StateEveryTicks: s.opts.StateEveryTicks,
		ItemsDigest:     b.Catalogs.Items.DefsDigest,
		LevelsDigest:    b.Levels.Digest,
		Logger:          sessLog,
	})
	if s.opts.Metrics != nil {
		rt.SetMetrics(s.opts.Metrics)
	}
	if s.opts.Recorder != nil {
		rt.SetAttemptSink(s.opts.Recorder)
		s.opts.Recorder.RecordSession(id, hello.PlayerName, seed, startLevel)
	}
	s.log.Printf("session %s player=%q seed=%d level=%d", id, hello.PlayerName, seed, startLevel)
	return rt, hello, true
}

func (s *Server) serve(conn *websocket.Conn, rt *runtime.Runtime, hello protocol.HelloMsg) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := make(chan []byte, 256)
	rt.Attach(out)

	if s.opts.TickLogs != nil {
		if tl := s.opts.TickLogs(rt.ID()); tl != nil {
			rt.SetTickLogger(tl)
			defer tl.Close()
		}
	}
	if s.opts.Metrics != nil {
		s.opts.Metrics.SessionOpened()
		defer s.opts.Metrics.SessionClosed()
	}

	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		_ = rt.Run(ctx)
	}()
	defer func() {
		rt.Stop()
		<-runDone
		s.log.Printf("session %s player=%q closed at tick %d", rt.ID(), hello.PlayerName, rt.Tick())
	}()

	// Writer goroutine.
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case b := <-out:
				_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
					cancel()
					return
				}
			}
		}
	}()

	limiter := s.inputLimiter()

	// Reader loop.
	for {
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if ctx.Err() != nil {
			break
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil || base.Type != protocol.TypeInput {
			s.reject(out, protocol.ErrProtoBadRequest, "expected INPUT")
			continue
		}
		if base.ProtocolVersion != protocol.Version {
			s.reject(out, protocol.ErrProtoBadRequest, "bad protocol_version")
			continue
		}
		if !limiter.Allow() {
			s.reject(out, protocol.ErrRateLimit, "input rate exceeded")
			continue
		}
		if err := protocol.Validate(protocol.TypeInput, msg); err != nil {
			s.reject(out, protocol.ErrProtoBadRequest, err.Error())
			continue
		}
		var in protocol.InputMsg
		if err := json.Unmarshal(msg, &in); err != nil {
			s.reject(out, protocol.ErrProtoBadRequest, "bad INPUT")
			continue
		}
		ri := runtime.Input{Kind: in.Kind, Slot: in.Slot}
		if in.Pos != nil {
			ri.Pos = *in.Pos
		}
		if !rt.Submit(ri) {
			s.reject(out, protocol.ErrRateLimit, "input queue full")
		}
	}
}

func (s *Server) inputLimiter() *rate.Limiter {
	if s.opts.InputRate > 0 {
		return rate.NewLimiter(s.opts.InputRate, s.opts.InputBurst)
	}
	lim := s.store.Current().Tuning.RateLimits
	return rate.NewLimiter(rate.Limit(lim.InputsPerSecond), lim.InputBurst)
}

func (s *Server) reject(out chan []byte, code, msg string) {
	b, err := json.Marshal(protocol.NewError(code, msg))
	if err != nil {
		return
	}
	select {
	case out <- b:
	default:
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
