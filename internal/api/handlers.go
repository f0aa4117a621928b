package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Shivraj0199/Secure-multi-container-webapp/internal/bootstrap"
)

// RootMessage is the fixed payload served at GET /.
const RootMessage = "Secure Multi-Container Backend Running!"

// statusService is the subset of *bootstrap.Bootstrapper used by the admin
// handlers. Declaring it as an interface allows test doubles to be injected.
type statusService interface {
	RunDeepHealth(ctx context.Context) map[string]bootstrap.ProbeResult
	IsReady() bool
	State() bootstrap.State
}

// MessageResponse is the body of GET /.
type MessageResponse struct {
	Message string `json:"message" example:"Secure Multi-Container Backend Running!"`
}

// Root handles GET /.
// It touches no state and always returns 200, whatever the database state.
//
// @Summary  Service banner
// @Produce  json
// @Success  200 {object} MessageResponse
// @Router   / [get]
func Root(c *gin.Context) {
	c.JSON(http.StatusOK, MessageResponse{Message: RootMessage})
}

// AdminHandler serves the operational endpoints on the admin listener.
type AdminHandler struct {
	status statusService
}

// Health handles GET /health. Liveness only; always 200.
//
// @Summary  Liveness probe
// @Produce  json
// @Success  200 {object} map[string]string
// @Router   /health [get]
func (h *AdminHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"mode":   "shallow",
	})
}

// DeepHealth handles GET /health/deep.
// It probes every dependency and returns 200 only when every probe is OK.
//
// @Summary  Dependency health
// @Produce  json
// @Success  200 {object} map[string]any
// @Failure  503 {object} map[string]any
// @Router   /health/deep [get]
func (h *AdminHandler) DeepHealth(c *gin.Context) {
	probes := h.status.RunDeepHealth(c.Request.Context())

	allOK := true
	for _, p := range probes {
		if !p.OK {
			allOK = false
			break
		}
	}

	status := "healthy"
	code := http.StatusOK
	if !allOK {
		status = "unhealthy"
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":       status,
		"dependencies": probes,
	})
}

// Ready handles GET /ready.
// It returns 200 once the database connection is established; 503 otherwise.
//
// @Summary  Readiness probe
// @Produce  json
// @Success  200 {object} map[string]any
// @Failure  503 {object} map[string]any
// @Router   /ready [get]
func (h *AdminHandler) Ready(c *gin.Context) {
	code := http.StatusServiceUnavailable
	ready := h.status.IsReady()
	if ready {
		code = http.StatusOK
	}
	c.JSON(code, gin.H{
		"ready": ready,
		"state": h.status.State(),
	})
}
