package http

import (
	"context"

	"github.com/dkeye/Captions/internal/adapters/signal"
	"github.com/dkeye/Captions/internal/app"
	"github.com/dkeye/Captions/internal/config"
	transport "github.com/dkeye/Captions/internal/transport/http"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

func SetupRouter(ctx context.Context, cfg *config.Config, relay *app.Relay) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	ctrl := signal.NewSignalWSController(relay, signal.Options{
		ReadLimit:  cfg.ReadLimit,
		PingPeriod: cfg.PingPeriod,
		SendBuffer: cfg.SendBuffer,
	})

	r.GET("/healthz", transport.HealthHandler)
	if relay.Metrics != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(relay.Metrics.Registry, promhttp.HandlerOpts{})))
	}

	api := r.Group("/api")
	api.GET("/rooms", transport.RoomsHandler(relay.Rooms))
	api.GET("/ws/signal", func(c *gin.Context) {
		ctrl.HandleSignal(ctx, c)
	})

	log.Info().Str("module", "adapters.http").Str("mode", cfg.Mode).Msg("router setup")
	return r
}
