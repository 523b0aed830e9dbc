package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/Playground/backend/internal/domain/state"
	"github.com/GriffinCanCode/Playground/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/Playground/backend/internal/sandbox"
	"github.com/GriffinCanCode/Playground/backend/internal/shared/id"
	"github.com/GriffinCanCode/Playground/backend/internal/shared/utils"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS is enforced on the HTTP routes
	},
}

// Handler manages WebSocket connections. Each connection owns one Runner,
// so a new run on a connection replaces that connection's previous run.
type Handler struct {
	ctx     context.Context
	cancel  context.CancelFunc
	config  sandbox.Config
	opts    []sandbox.Option
	state   *state.Manager
	metrics *monitoring.Metrics
	logger  *zap.Logger
}

// NewHandler creates a new WebSocket handler. opts are passed to every
// connection's runner and must not share a bus between them; state may be
// nil.
func NewHandler(config sandbox.Config, opts []sandbox.Option, states *state.Manager, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Handler{
		ctx:    ctx,
		cancel: cancel,
		config: config,
		opts:   opts,
		state:  states,
		logger: logger,
	}
}

// WithMetrics adds connection and message metrics
func (h *Handler) WithMetrics(metrics *monitoring.Metrics) *Handler {
	h.metrics = metrics
	return h
}

// HandleConnection handles WebSocket upgrade and messages
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	s := newSession(h, conn)
	defer s.close()

	if h.metrics != nil {
		h.metrics.IncWSConnections()
		defer h.metrics.DecWSConnections()
	}

	s.logger.Debug("WebSocket connected")
	s.serve()
}

// Shutdown disconnects every open connection. http.Server.Shutdown does
// not close hijacked connections.
func (h *Handler) Shutdown() {
	h.cancel()
}

func (h *Handler) recordMessage(direction, msgType string) {
	if h.metrics != nil {
		h.metrics.RecordWSMessage(direction, msgType)
	}
}

// persist runs detached from the connection; a closed socket must not lose the save
func (h *Handler) persist(session, code string, entries []sandbox.LogEntry, runID id.RunID) {
	if h.state == nil || session == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := h.state.Record(ctx, session, code, entries); err != nil {
		h.logger.Warn("Failed to persist run",
			zap.String("session", session),
			zap.String("run_id", runID.String()),
			zap.Error(err),
		)
	}
}

func validRun(msg ClientMessage) error {
	if err := utils.ValidateCode(msg.Code); err != nil {
		return err
	}
	if msg.Session != "" {
		return utils.ValidateID(msg.Session, "session", true)
	}
	return nil
}
