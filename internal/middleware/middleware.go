package middleware

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// RequestLogger logs every request with its outcome.
func RequestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			fields := []zap.Field{
				zap.String("method", c.Request().Method),
				zap.String("path", c.Path()),
				zap.String("ip", c.RealIP()),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
			}
			if code, ok := c.Get("paycom_error").(int); ok {
				fields = append(fields, zap.Int("rpc_error", code))
			}
			logger.Info("request", fields...)
			return nil
		}
	}
}

// PaycomIPCheck restricts the endpoint to the gateway's source addresses.
// Entries are single IPs or CIDR ranges; an empty list allows everyone.
// Loopback is always allowed.
func PaycomIPCheck(allowed []string, logger *zap.Logger) echo.MiddlewareFunc {
	var nets []*net.IPNet
	for _, entry := range allowed {
		if !strings.Contains(entry, "/") {
			if strings.Contains(entry, ":") {
				entry += "/128"
			} else {
				entry += "/32"
			}
		}
		_, n, err := net.ParseCIDR(entry)
		if err != nil {
			logger.Warn("ignoring invalid PAYCOM_ALLOWED_IPS entry", zap.String("entry", entry), zap.Error(err))
			continue
		}
		nets = append(nets, n)
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if len(nets) == 0 {
				return next(c)
			}
			ip := net.ParseIP(c.RealIP())
			if ip != nil && ip.IsLoopback() {
				return next(c)
			}
			for _, n := range nets {
				if ip != nil && n.Contains(ip) {
					return next(c)
				}
			}
			logger.Warn("blocked request from unknown address", zap.String("ip", c.RealIP()))
			return c.String(http.StatusForbidden, "Forbidden")
		}
	}
}
