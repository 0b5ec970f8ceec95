package echoapi

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/meryambn/mimiScaleUp-sub005/core"
	"github.com/meryambn/mimiScaleUp-sub005/core/user"
)

const contextIdentityKey = "identity"

func adminMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsAdmin() {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// identityMiddleware only lets through the owner of the `:userId/:userRole` path params, or an admin.
// The parsed identity is stored in the context.
func identityMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			id, err := core.ParseIdentity(ctx.Param("userId"), ctx.Param("userRole"))
			if err != nil {
				return err
			}
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.Identity() != id && !claims.IsAdmin() {
				return errHttpForbidden
			}
			ctx.Set(contextIdentityKey, id)
			return next(ctx)
		}
	}
}

func getContextIdentity(ctx echo.Context) (core.Identity, error) {
	if id, ok := ctx.Get(contextIdentityKey).(core.Identity); ok {
		return id, nil
	}
	return core.Identity{}, errHttpNotFound
}

// ctxUserOrAdminMiddleware loads the `:id` user in the context if it is the context user, or if the latter is an admin.
func ctxUserOrAdminMiddleware(svc user.ServiceInterface) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			ctxUsr, err := getContextUser(ctx, svc)
			if err != nil {
				return errors.Wrap(err, "getting context user")
			}

			id, err := strconv.Atoi(ctx.Param("id"))
			if err != nil {
				return errHttpNotFound
			}
			if id == ctxUsr.ID || ctxUsr.IsAdmin() {
				if usr, err := svc.GetByID(ctx.Request().Context(), id); err == nil {
					ctx.Set("object", usr)
					return next(ctx)
				} else if !core.IsNotFound(err) {
					return errors.Wrap(err, "finding user by ID")
				}
			}
			return errHttpNotFound
		}
	}
}

type httpMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newHTTPMetrics(registry prometheus.Registerer) *httpMetrics {
	promautoFactory := promauto.With(registry)
	return &httpMetrics{
		requests: promautoFactory.NewCounterVec(prometheus.CounterOpts{
			Name: "scaleup_http_requests_total",
			Help: "handled HTTP requests",
		}, []string{"method", "path", "code"}),
		duration: promautoFactory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "scaleup_http_request_duration_seconds",
			Help:    "HTTP request latencies",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}
}

// metricsMiddleware records requests by route template so that path params do not blow up cardinality.
func metricsMiddleware(m *httpMetrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()
			err := next(ctx)
			if err != nil {
				// let the error handler write the final status
				ctx.Error(err)
			}

			path := ctx.Path()
			if path == "" {
				path = "unmatched"
			}
			code := strconv.Itoa(ctx.Response().Status)
			m.requests.WithLabelValues(ctx.Request().Method, path, code).Inc()
			m.duration.WithLabelValues(ctx.Request().Method, path).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}
