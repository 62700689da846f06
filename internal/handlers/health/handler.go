package health

import (
	"net/http"

	"innkeeper/transport/http/response"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	shuttingDown func() bool
}

// New builds the liveness handler. shuttingDown reports whether the server has
// started draining.
func New(shuttingDown func() bool) Handler {
	return Handler{
		shuttingDown: shuttingDown,
	}
}

func (handler *Handler) Router(router chi.Router) {
	router.Get("/health", handler.Health)
}

// Health reports liveness.
// @Summary Liveness probe
// @Description Returns 200 while serving and 503 once shutdown has begun.
// @Tags Health
// @Produce json
// @Success 200 {object} response.Message
// @Failure 503 {object} response.Message
// @Router /health [get]
func (handler *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	if handler.shuttingDown() {
		response.WithPreparingShutdown(w)

		return
	}

	response.WithMessage(w, http.StatusOK, "OK")
}
