package adminapi

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/evan-idocoding/rtobj/rt/kernel"
	"github.com/evan-idocoding/rtobj/rt/taskobj"
)

// Kernel is the part of *kernel.Kernel the API reads.
type Kernel interface {
	Snapshot() kernel.Snapshot
	TickCount() uint64
}

type config struct {
	logger   *slog.Logger
	level    *slog.LevelVar
	token    string
	readOnly bool
}

// Option configures NewServer.
type Option func(*config)

// WithLogger sets the request logger. Default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithLevelVar enables GET and PUT /log-level backed by lv.
func WithLevelVar(lv *slog.LevelVar) Option {
	return func(c *config) { c.level = lv }
}

// WithToken requires every route except /health to carry token.
// Blank tokens are ignored.
func WithToken(token string) Option {
	return func(c *config) { c.token = strings.TrimSpace(token) }
}

// WithReadOnly disables DELETE /tasks/:name and PUT /log-level.
func WithReadOnly() Option {
	return func(c *config) { c.readOnly = true }
}

// Handler serves the admin endpoints.
type Handler struct {
	k     Kernel
	reg   *Registry
	level *slog.LevelVar
	log   *slog.Logger
}

// NewServer returns a gin engine with every admin route configured.
func NewServer(k Kernel, reg *Registry, opts ...Option) *gin.Engine {
	if k == nil {
		panic("adminapi: nil kernel")
	}
	if reg == nil {
		panic("adminapi: nil registry")
	}
	cfg := config{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	log := cfg.logger
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "adminapi")

	h := &Handler{k: k, reg: reg, level: cfg.level, log: log}

	r := gin.New()
	r.Use(requestLogger(log))
	r.Use(gin.Recovery())

	r.GET("/health", h.Health)

	api := r.Group("/")
	if cfg.token != "" {
		api.Use(tokenGuard(cfg.token))
	} else {
		log.Warn("Admin API running without a token")
	}
	api.GET("/buildinfo", h.BuildInfo)
	api.GET("/tasks", h.ListTasks)
	api.GET("/tasks/:name", h.GetTask)
	if h.level != nil {
		api.GET("/log-level", h.GetLogLevel)
	}
	if !cfg.readOnly {
		api.DELETE("/tasks/:name", h.CloseTask)
		if h.level != nil {
			api.PUT("/log-level", h.SetLogLevel)
		}
	}
	return r
}

func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
		)
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, healthResponse{Status: "ok", Tick: h.k.TickCount()})
}

func (h *Handler) ListTasks(c *gin.Context) {
	snap := h.k.Snapshot()
	out := snapshotResponse{
		Tick:     snap.Tick,
		Running:  uint64(snap.Running),
		Created:  snap.Created,
		Deleted:  snap.Deleted,
		HeapUsed: snap.HeapUsed,
		HeapSize: snap.HeapSize,
		Tasks:    make([]taskStatus, 0, len(snap.Tasks)),
	}
	for _, st := range snap.Tasks {
		out.Tasks = append(out.Tasks, fromStatus(st))
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) GetTask(c *gin.Context) {
	name := c.Param("name")
	t, ok := h.reg.Get(name)
	if !ok {
		c.JSON(http.StatusNotFound, errorResponse{Error: "task not found", Name: name})
		return
	}

	out := objectStatus{
		Name:       t.Name(),
		State:      t.State().String(),
		Priority:   int(t.Priority()),
		StackDepth: t.StackDepth(),
	}
	if hd := t.Handle(); hd.Valid() {
		if st, found := h.k.Snapshot().Get(hd); found {
			ks := fromStatus(st)
			out.Kernel = &ks
		}
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) CloseTask(c *gin.Context) {
	name := c.Param("name")
	t, ok := h.reg.Get(name)
	if !ok {
		c.JSON(http.StatusNotFound, errorResponse{Error: "task not found", Name: name})
		return
	}

	res, err := t.Terminate()
	if err != nil {
		h.log.Error("Failed to close task", "task", name, "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error(), Name: name})
		return
	}
	h.log.Info("Task closed via admin API", "task", name, "result", res.String())
	c.JSON(http.StatusOK, closeResponse{
		Closed:  true,
		Deleted: res == taskobj.ReleaseDeleted,
		Result:  res.String(),
	})
}
