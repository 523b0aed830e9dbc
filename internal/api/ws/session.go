package ws

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/Playground/backend/internal/sandbox"
	"github.com/GriffinCanCode/Playground/backend/internal/shared/id"
)

// run tracks one run started on the connection
type run struct {
	id        id.RunID
	code      string
	session   string
	entries   []sandbox.LogEntry
	announced bool
}

// session is the state of one connection
type session struct {
	h      *Handler
	conn   *websocket.Conn
	connID id.ConnID
	logger *zap.Logger
	runner *sandbox.Runner

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// writeMu serializes writes and guards runs
	writeMu sync.Mutex
	runs    map[id.RunID]*run
}

func newSession(h *Handler, conn *websocket.Conn) *session {
	connID := id.NewConnID()
	ctx, cancel := context.WithCancel(h.ctx)
	s := &session{
		h:      h,
		conn:   conn,
		connID: connID,
		logger: h.logger.With(zap.String("conn_id", connID.String())),
		ctx:    ctx,
		cancel: cancel,
		runs:   make(map[id.RunID]*run),
	}
	opts := append(append([]sandbox.Option{}, h.opts...), sandbox.WithRunEntries(s.onEntry))
	s.runner = sandbox.NewRunner(h.config, nil, opts...)
	return s
}

func (s *session) serve() {
	s.conn.SetReadLimit(int64(1 << 20))
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	s.wg.Add(1)
	go s.keepalive()

	hello := newMessage(TypeSystem)
	hello.Message = "Connected to Playground Service (Go)"
	hello.ConnID = s.connID.String()
	s.send(hello)

	for {
		var msg ClientMessage
		if err := s.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("WebSocket read error", zap.Error(err))
			}
			return
		}
		switch msg.Type {
		case TypeRun:
			s.h.recordMessage("in", msg.Type)
			s.startRun(msg)
		case TypePing:
			s.h.recordMessage("in", msg.Type)
			s.send(newMessage(TypePong))
		default:
			s.h.recordMessage("in", "unknown")
			s.sendError("unknown message type")
		}
	}
}

func (s *session) startRun(msg ClientMessage) {
	if err := validRun(msg); err != nil {
		s.sendError(err.Error())
		return
	}

	runID := s.runner.Run(msg.Code)
	if runID == "" {
		s.sendError("failed to start run")
		return
	}
	ec := s.runner.Host().Attached()

	s.writeMu.Lock()
	r := s.trackLocked(runID)
	r.code = msg.Code
	r.session = msg.Session
	s.announceLocked(r)
	s.writeMu.Unlock()

	if ec == nil || ec.RunID() != runID {
		return
	}
	s.wg.Add(1)
	go s.awaitCompletion(ec)
}

// onEntry runs on the runner's subscription goroutine
func (s *session) onEntry(runID id.RunID, entry sandbox.LogEntry) {
	if runID == "" {
		// start failures are reported by startRun
		return
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	r := s.trackLocked(runID)
	r.entries = append(r.entries, entry)
	s.announceLocked(r)

	msg := newMessage(string(entry.Kind))
	msg.Message = entry.Message
	msg.RunID = runID.String()
	s.writeLocked(msg)
}

func (s *session) awaitCompletion(ec *sandbox.ExecutionContext) {
	defer s.wg.Done()

	select {
	case <-ec.Done():
	case <-s.ctx.Done():
		return
	}
	if err := s.runner.Flush(s.ctx); err != nil {
		return
	}

	runID := ec.RunID()
	s.writeMu.Lock()
	r := s.runs[runID]
	delete(s.runs, runID)
	msg := newMessage(TypeRunComplete)
	msg.RunID = runID.String()
	msg.State = ec.State().String()
	s.writeLocked(msg)
	s.writeMu.Unlock()

	if r != nil {
		s.h.persist(r.session, r.code, r.entries, runID)
	}
}

// caller holds writeMu
func (s *session) trackLocked(runID id.RunID) *run {
	r, ok := s.runs[runID]
	if !ok {
		r = &run{id: runID, entries: []sandbox.LogEntry{}}
		s.runs[runID] = r
	}
	return r
}

// announceLocked sends run_start once per run, before any of its entries
func (s *session) announceLocked(r *run) {
	if r.announced {
		return
	}
	r.announced = true
	msg := newMessage(TypeRunStart)
	msg.RunID = r.id.String()
	s.writeLocked(msg)
}

func (s *session) send(msg ServerMessage) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.writeLocked(msg)
}

func (s *session) sendError(message string) {
	msg := newMessage(TypeError)
	msg.Message = message
	s.send(msg)
}

func (s *session) writeLocked(msg ServerMessage) {
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteJSON(msg); err != nil {
		s.logger.Debug("WebSocket write error", zap.Error(err))
		return
	}
	s.h.recordMessage("out", msg.Type)
}

func (s *session) keepalive() {
	defer s.wg.Done()
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.writeMu.Lock()
			err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			s.writeMu.Unlock()
			if err != nil {
				return
			}
		case <-s.ctx.Done():
			// unblocks the read loop
			s.conn.Close()
			return
		}
	}
}

func (s *session) close() {
	s.cancel()
	s.runner.Close()
	s.wg.Wait()
	s.conn.Close()
	s.logger.Debug("WebSocket disconnected")
}
