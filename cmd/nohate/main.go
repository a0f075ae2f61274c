package main

import (
	"fmt"
	"os"

	"nohate/internal/conf"
	"nohate/internal/server"

	"github.com/go-kratos/kratos/v2"
	"github.com/go-kratos/kratos/v2/config"
	"github.com/go-kratos/kratos/v2/config/env"
	"github.com/go-kratos/kratos/v2/config/file"
	"github.com/go-kratos/kratos/v2/log"
	khttp "github.com/go-kratos/kratos/v2/transport/http"
	"github.com/spf13/cobra"
	_ "go.uber.org/automaxprocs"
)

// go build -ldflags "-X main.Version=x.y.z"
var (
	// Name is the name of the compiled software.
	Name = "nohate"
	// Version is the version of the compiled software.
	Version string

	id, _ = os.Hostname()
)

func newApp(logger log.Logger, hs *khttp.Server, sched *server.Scheduler) *kratos.App {
	return kratos.New(
		kratos.ID(id),
		kratos.Name(Name),
		kratos.Version(Version),
		kratos.Metadata(map[string]string{}),
		kratos.Logger(logger),
		kratos.Server(hs, sched),
	)
}

// loadConfig reads the config files under path. Values may reference
// NOHATE_ prefixed environment variables, e.g. ${SEAL_KEY:}.
func loadConfig(path string) (*conf.Bootstrap, func(), error) {
	c := config.New(
		config.WithSource(
			env.NewSource("NOHATE_"),
			file.NewSource(path),
		),
	)
	if err := c.Load(); err != nil {
		return nil, nil, err
	}
	var bc conf.Bootstrap
	if err := c.Scan(&bc); err != nil {
		c.Close()
		return nil, nil, err
	}
	return &bc, func() { c.Close() }, nil
}

func newLogger(bc *conf.Bootstrap) log.Logger {
	logger := log.With(log.NewStdLogger(os.Stdout),
		"ts", log.DefaultTimestamp,
		"caller", log.DefaultCaller,
		"service.id", id,
		"service.name", Name,
		"service.version", Version,
	)
	level := log.LevelInfo
	if bc.Log != nil && bc.Log.Level != "" {
		level = log.ParseLevel(bc.Log.Level)
	}
	return log.NewFilter(logger, log.FilterLevel(level))
}

func newRootCommand() *cobra.Command {
	var confPath string
	root := &cobra.Command{
		Use:           Name,
		Short:         "Comment moderation service",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       Version,
	}
	root.PersistentFlags().StringVar(&confPath, "conf", "configs", "config path, eg: --conf configs/config.yaml")

	serve := newServeCommand(&confPath)
	root.RunE = serve.RunE
	root.AddCommand(serve, newScanCommand(&confPath), newMigrateCommand(&confPath))
	return root
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
