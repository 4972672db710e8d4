package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vango-dev/start"
	"github.com/vango-dev/start/internal/config"
	"github.com/vango-dev/start/internal/logging"
	"github.com/vango-dev/start/pkg/server"
)

func routesCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "List the API routes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			logger, _ := logging.New(config.LogLevelError, false, cfg.Server.Environment)
			ac, err := appConfig(cfg, logger)
			if err != nil {
				return err
			}
			app := start.New(ac)

			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "METHOD\tPATH")
			for _, e := range app.Routes() {
				fmt.Fprintf(tw, "%s\t%s\n", e.Method, e.Path)
			}
			fmt.Fprintf(tw, "POST\t*\t(server functions: %s header or ?%s=&%s=)\n", server.HeaderServerID, server.QueryID, server.QueryName)
			fmt.Fprintln(tw, "GET\t/*\t(pages)")
			return tw.Flush()
		},
	}
}
