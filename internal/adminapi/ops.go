package adminapi

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"runtime"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
)

// tokenGuard rejects requests that do not carry token in X-Admin-Token or "Authorization: Bearer".
func tokenGuard(token string) gin.HandlerFunc {
	want := []byte(token)
	return func(c *gin.Context) {
		got := c.GetHeader("X-Admin-Token")
		if got == "" {
			if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
				got = strings.TrimPrefix(auth, "Bearer ")
			}
		}
		if got == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: "admin token required"})
			return
		}
		if subtle.ConstantTimeCompare([]byte(got), want) != 1 {
			c.AbortWithStatusJSON(http.StatusForbidden, errorResponse{Error: "invalid admin token"})
			return
		}
		c.Next()
	}
}

type logLevelResponse struct {
	Level      string `json:"level"`
	LevelValue int    `json:"level_value"`
}

func levelSnapshot(l slog.Level) logLevelResponse {
	return logLevelResponse{Level: levelName(l), LevelValue: int(l)}
}

func (h *Handler) GetLogLevel(c *gin.Context) {
	c.JSON(http.StatusOK, levelSnapshot(h.level.Level()))
}

// SetLogLevel handles PUT /log-level?level=debug|info|warn|error.
func (h *Handler) SetLogLevel(c *gin.Context) {
	l, ok := parseLevelName(c.Query("level"))
	if !ok {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid level (want one of: debug, info, warn, error)"})
		return
	}
	old := h.level.Level()
	h.level.Set(l)
	h.log.Info("Log level changed", "old", levelName(old), "new", levelName(l))
	c.JSON(http.StatusOK, gin.H{"old": levelSnapshot(old), "new": levelSnapshot(l)})
}

func parseLevelName(s string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error", "err":
		return slog.LevelError, true
	default:
		return 0, false
	}
}

// levelName buckets custom levels into the four named ones.
func levelName(l slog.Level) string {
	switch {
	case l < slog.LevelInfo:
		return "debug"
	case l < slog.LevelWarn:
		return "info"
	case l < slog.LevelError:
		return "warn"
	default:
		return "error"
	}
}

type buildInfoVCS struct {
	System   string `json:"system,omitempty"`
	Revision string `json:"revision,omitempty"`
	Time     string `json:"time,omitempty"`
	Modified *bool  `json:"modified,omitempty"`
}

type buildInfoResponse struct {
	Path      string        `json:"path,omitempty"`
	Version   string        `json:"version,omitempty"`
	GoVersion string        `json:"go_version"`
	GOOS      string        `json:"goos"`
	GOARCH    string        `json:"goarch"`
	VCS       *buildInfoVCS `json:"vcs,omitempty"`
}

var (
	buildInfoOnce   sync.Once
	cachedBuildInfo buildInfoResponse
)

func readBuildInfo() buildInfoResponse {
	buildInfoOnce.Do(func() {
		out := buildInfoResponse{
			GoVersion: runtime.Version(),
			GOOS:      runtime.GOOS,
			GOARCH:    runtime.GOARCH,
		}
		if bi, ok := debug.ReadBuildInfo(); ok && bi != nil {
			out.Path = bi.Main.Path
			out.Version = bi.Main.Version
			if vcs, ok := extractVCS(bi.Settings); ok {
				out.VCS = &vcs
			}
		}
		cachedBuildInfo = out
	})
	return cachedBuildInfo
}

func extractVCS(settings []debug.BuildSetting) (buildInfoVCS, bool) {
	var out buildInfoVCS
	var ok bool
	for _, kv := range settings {
		switch kv.Key {
		case "vcs":
			out.System = kv.Value
		case "vcs.revision":
			out.Revision = kv.Value
		case "vcs.time":
			out.Time = kv.Value
		case "vcs.modified":
			b, err := strconv.ParseBool(kv.Value)
			if err != nil {
				continue
			}
			out.Modified = &b
		default:
			continue
		}
		ok = ok || kv.Value != ""
	}
	return out, ok
}

func (h *Handler) BuildInfo(c *gin.Context) {
	c.JSON(http.StatusOK, readBuildInfo())
}
