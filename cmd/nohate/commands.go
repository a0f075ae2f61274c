package main

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"nohate/internal/biz"
	"nohate/internal/data"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

func newServeCommand(confPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the scan scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			bc, closeConf, err := loadConfig(*confPath)
			if err != nil {
				return err
			}
			defer closeConf()

			app, cleanup, err := wireApp(bc.Server, bc.Data, bc.Moderation, bc.Sources, bc.Notify, bc.Scan, newLogger(bc))
			if err != nil {
				return err
			}
			defer cleanup()

			return app.Run()
		},
	}
}

func newScanCommand(confPath *string) *cobra.Command {
	var (
		url  string
		mode string
	)
	cmd := &cobra.Command{
		Use:   "scan [comment...]",
		Short: "Run one scan and print its report",
		Long: `Run one scan against the configured state and print the report as JSON.

With comment arguments the scan is a manual batch; with --url it imports
one post; otherwise it polls the active connector.`,
		Example: `  nohate scan "you are awful" "great shot"
  nohate scan --url https://www.instagram.com/p/Cabc123/
  nohate scan --mode periodic`,
		RunE: func(cmd *cobra.Command, args []string) error {
			trig := biz.Trigger{Mode: biz.TriggerConnectorPoll, Texts: args, URL: url}
			if mode != "" {
				m, ok := biz.ParseTriggerMode(mode)
				if !ok {
					return errors.New("unknown --mode " + mode)
				}
				trig.Mode = m
			}

			bc, closeConf, err := loadConfig(*confPath)
			if err != nil {
				return err
			}
			defer closeConf()

			uc, cleanup, err := wireScan(bc.Data, bc.Moderation, bc.Sources, bc.Notify, newLogger(bc))
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			report, err := uc.Run(ctx, trig)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "post URL to import")
	cmd.Flags().StringVar(&mode, "mode", "", "periodic or connector-poll")
	return cmd
}

func newMigrateCommand(confPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the postgres schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			bc, closeConf, err := loadConfig(*confPath)
			if err != nil {
				return err
			}
			defer closeConf()

			if bc.Data == nil || bc.Data.Database == nil {
				return errors.New("data.database is not configured")
			}
			if err := data.RunMigrate(bc.Data.Database); err != nil {
				return err
			}
			cmd.Println("migrations applied")
			return nil
		},
	}
}

