//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package main

import (
	"nohate/internal/biz"
	"nohate/internal/conf"
	"nohate/internal/data"
	"nohate/internal/server"
	"nohate/internal/service"

	"github.com/go-kratos/kratos/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
)

// wireApp init kratos application.
func wireApp(*conf.Server, *conf.Data, *conf.Moderation, *conf.Sources, *conf.Notify, *conf.Scan, log.Logger) (*kratos.App, func(), error) {
	panic(wire.Build(server.ProviderSet, data.ProviderSet, biz.ProviderSet, service.ProviderSet, newApp))
}

// wireScan builds the scan pipeline without the servers.
func wireScan(*conf.Data, *conf.Moderation, *conf.Sources, *conf.Notify, log.Logger) (*biz.ScanUsecase, func(), error) {
	panic(wire.Build(data.ProviderSet, biz.ProviderSet))
}
