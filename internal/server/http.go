package server

import (
	"nohate/internal/biz"
	"nohate/internal/conf"
	"nohate/internal/service"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware/logging"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	khttp "github.com/go-kratos/kratos/v2/transport/http"
)

// NewHTTPServer creates the HTTP server with the moderation, admin and event routes.
func NewHTTPServer(
	c *conf.Server,
	moderation *service.ModerationService,
	admin *service.AdminService,
	console *biz.ConsoleUsecase,
	logger log.Logger,
) *khttp.Server {
	opts := []khttp.ServerOption{
		khttp.Middleware(
			recovery.Recovery(),
			logging.Server(logger),
		),
	}
	if c != nil && c.HTTP != nil {
		if c.HTTP.Network != "" {
			opts = append(opts, khttp.Network(c.HTTP.Network))
		}
		if c.HTTP.Addr != "" {
			opts = append(opts, khttp.Address(c.HTTP.Addr))
		}
		if c.HTTP.Timeout != nil {
			opts = append(opts, khttp.Timeout(c.HTTP.Timeout.AsDuration()))
		}
	}
	srv := khttp.NewServer(opts...)
	service.RegisterModerationHTTPServer(srv, moderation)
	service.RegisterAdminHTTPServer(srv, admin)
	srv.HandleFunc("/v1/events", newEventStream(console, logger).ServeHTTP)
	return srv
}
