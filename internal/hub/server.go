package hub

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/danmuck/relayctl/internal/observability"
	"github.com/danmuck/relayctl/internal/presence"
)

// ReadinessBody is the fixed health-check response on GET /.
const ReadinessBody = "SIGNAL_PLANE_ACTIVE"

func makeUpgrader(allowedOrigins []string) websocket.Upgrader {
	allowAll := len(allowedOrigins) == 0 || (len(allowedOrigins) == 1 && allowedOrigins[0] == "*")
	originSet := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		originSet[o] = true
	}

	return websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if allowAll {
				return true
			}
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true // non-browser clients
			}
			return originSet[origin]
		},
	}
}

func (s *Service) routes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(observability.RequestLogger(s.log))
	router.Use(observability.RequestMetricsMiddleware())

	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, ReadinessBody)
	})
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"service":   "relayctl",
			"entries":   s.registry.Len(),
			"proposals": s.tracker.Len(),
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	upgrader := makeUpgrader(s.cfg.AllowedOrigins)
	router.GET("/ws", func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			s.log.Warn().Err(err).Msg("websocket upgrade failed")
			return
		}
		s.handleConn(conn)
	})

	return router
}

// handleConn runs one connection's read loop until disconnect.
func (s *Service) handleConn(ws *websocket.Conn) {
	conn := newWSConn(ws)
	defer conn.Close()

	s.trackConn(conn)
	defer s.untrackConn(conn)

	observability.ConnOpened()
	defer observability.ConnClosed()

	remote := ws.RemoteAddr().String()
	s.log.Debug().Str("conn_id", conn.ID()).Str("remote", remote).Msg("client connected")

	ws.SetReadLimit(s.cfg.MaxMessageBytes)
	_ = ws.SetReadDeadline(time.Now().Add(wsPongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	stopKeepalive := conn.startKeepalive()
	defer stopKeepalive()

	sess := &session{conn: conn}
	defer s.disconnect(sess)

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			s.log.Debug().Str("conn_id", conn.ID()).Err(err).Msg("client disconnected")
			return
		}
		_ = ws.SetReadDeadline(time.Now().Add(wsPongWait))
		s.dispatch(sess, raw)
	}
}

// disconnect removes the connection's binding, if it still owns one. An
// unbound session has no registry effect.
func (s *Service) disconnect(sess *session) {
	if addr, ok := s.registry.RemoveByConn(sess.conn); ok {
		observability.SetRegistryEntries(s.registry.Len())
		s.log.Info().Str("address", addr).Msg("offline")
	}
}

var _ presence.Conn = (*wsConn)(nil)
