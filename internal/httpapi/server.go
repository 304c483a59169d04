// Package httpapi exposes the authgate engine over JSON HTTP with echo.
package httpapi

import (
	"context"
	"log/slog"
	"net"
	"net/http"

	"github.com/MrEthical07/authgate"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// TenantHeader selects the tenant for a request. Absent means tenant "0".
const TenantHeader = "X-Tenant-ID"

// Authenticator is the engine surface the handlers drive.
type Authenticator interface {
	Login(ctx context.Context, req authgate.LoginRequest) (*authgate.LoginResult, error)
	VerifySecondFactor(ctx context.Context, req authgate.SecondFactorRequest) (*authgate.LoginResult, error)
	ResendCode(ctx context.Context, challengeID string) (*authgate.LoginResult, error)
}

type requestValidator struct {
	validator *validator.Validate
}

func (v *requestValidator) Validate(i any) error {
	return v.validator.Struct(i)
}

// Handler owns the routes.
type Handler struct {
	auth   Authenticator
	logger *slog.Logger
}

// NewServer wires middleware and routes. metrics may be nil.
//
// The client origin feeds the throttle key, so X-Forwarded-For is only
// honoured when the direct peer is inside trustedProxies. With no trusted
// proxies the socket address is used and forwarding headers are ignored.
func NewServer(auth Authenticator, metrics http.Handler, logger *slog.Logger, trustedProxies []*net.IPNet) *echo.Echo {
	if logger == nil {
		logger = slog.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.IPExtractor = ipExtractor(trustedProxies)
	e.Validator = &requestValidator{validator: validator.New(validator.WithRequiredStructEnabled())}

	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("16K"))
	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XFrameOptions:      "DENY",
		ContentTypeNosniff: "nosniff",
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.LogAttrs(c.Request().Context(), slog.LevelInfo, "request",
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
			)
			return nil
		},
	}))

	h := &Handler{auth: auth, logger: logger}
	h.Bind(e.Group(""))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	if metrics != nil {
		e.GET("/metrics", echo.WrapHandler(metrics))
	}
	return e
}

func ipExtractor(trustedProxies []*net.IPNet) echo.IPExtractor {
	if len(trustedProxies) == 0 {
		return echo.ExtractIPDirect()
	}
	opts := []echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}
	for _, n := range trustedProxies {
		opts = append(opts, echo.TrustIPRange(n))
	}
	return echo.ExtractIPFromXFFHeader(opts...)
}

// Bind registers the login routes on g.
func (h *Handler) Bind(g *echo.Group) {
	g.POST("/login", h.Login)
	g.POST("/login/second-factor", h.VerifySecondFactor)
	g.POST("/login/resend", h.Resend)
}

// requestContext carries the client origin and tenant into the engine.
func requestContext(c echo.Context) context.Context {
	ctx := authgate.WithClientIP(c.Request().Context(), c.RealIP())
	if tenant := c.Request().Header.Get(TenantHeader); tenant != "" {
		ctx = authgate.WithTenantID(ctx, tenant)
	}
	return ctx
}
