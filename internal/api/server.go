package api

import (
	"log/slog"
	"net/http"

	_ "github.com/Shivraj0199/Secure-multi-container-webapp/docs" // register generated Swagger spec

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Router wraps a configured Gin engine and exposes it as an http.Handler.
type Router struct {
	engine *gin.Engine
}

// Options configures the public router.
type Options struct {
	ServiceName   string
	JSONBodyLimit int64
	Logger        *slog.Logger
}

// NewRouter builds the public router. It registers exactly one route, GET /;
// everything else falls through to gin's 404. Middleware order:
//  1. Recovery: panic → 500
//  2. Tracing: span per request
//  3. RequestLogger: one structured line per request
//  4. JSONBody: parse JSON bodies before routing
func NewRouter(opts Options) *Router {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	engine := newEngine()
	engine.Use(Recovery(logger))
	engine.Use(Tracing(opts.ServiceName))
	engine.Use(RequestLogger(logger))
	engine.Use(JSONBody(opts.JSONBodyLimit))

	engine.GET("/", Root)

	return &Router{engine: engine}
}

// NewAdminRouter builds the operational router served on the admin port.
func NewAdminRouter(s statusService, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}

	engine := newEngine()
	engine.Use(Recovery(logger))

	h := &AdminHandler{status: s}

	engine.GET("/health", h.Health)
	engine.GET("/health/deep", h.DeepHealth)
	engine.GET("/ready", h.Ready)

	engine.GET("/api-docs", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/api-docs/index.html")
	})
	engine.GET("/api-docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return &Router{engine: engine}
}

// Handler returns the underlying http.Handler for use with net/http servers.
func (r *Router) Handler() http.Handler {
	return r.engine
}

func newEngine() *gin.Engine {
	if gin.Mode() == gin.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	// Unknown methods on a known path are 404, not 405.
	engine.HandleMethodNotAllowed = false
	return engine
}
