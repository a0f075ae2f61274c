package server

import (
	"nohate/internal/service"

	"github.com/google/wire"
)

// ProviderSet is server providers.
var ProviderSet = wire.NewSet(
	NewHTTPServer,
	NewScheduler,
	wire.Bind(new(service.ScanScheduler), new(*Scheduler)),
)
