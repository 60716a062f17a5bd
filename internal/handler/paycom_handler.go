package handler

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"paycom/internal/paycom"
)

// maxBodySize bounds a single gateway call.
const maxBodySize = 1 << 20

// PaycomHandler exposes the merchant endpoint over HTTP.
type PaycomHandler struct {
	app    *paycom.Application
	logger *zap.Logger
}

func NewPaycomHandler(app *paycom.Application, logger *zap.Logger) *PaycomHandler {
	return &PaycomHandler{app: app, logger: logger}
}

// Handle answers every call with HTTP 200 and a JSON-RPC envelope,
// including transport-level rejections.
func (h *PaycomHandler) Handle(c echo.Context) error {
	req := c.Request()

	body, err := io.ReadAll(io.LimitReader(req.Body, maxBodySize))
	if err != nil {
		h.logger.Warn("failed to read request body", zap.Error(err))
		body = nil
	}

	resp := h.app.Run(req.Context(), req.Method, body, req.Header.Get)
	if code := resp.Code(); code != 0 {
		c.Set("paycom_error", code)
	}
	return c.Blob(http.StatusOK, paycom.ContentType, resp.Marshal())
}
