package main

import (
	"os"
	"sync"

	"github.com/akolanti/filebook/internal/config"
	"github.com/akolanti/filebook/internal/mcpserver"
	"github.com/akolanti/filebook/pkg/logger_i"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve search_filebook and ask_filebook over MCP on stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		// stdout carries the protocol, logs go to stderr
		logger_i.InitWithWriter(os.Stderr)

		settings, err := config.Load(configPath)
		if err != nil {
			return err
		}
		stop := make(chan bool)
		var workers sync.WaitGroup
		defer func() {
			close(stop)
			workers.Wait()
		}()

		a, err := buildApp(cmd.Context(), settings, stop, &workers)
		if err != nil {
			return err
		}
		return mcpserver.NewServer(a.service).Run(cmd.Context())
	},
}
