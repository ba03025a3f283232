// @title           Filebook API
// @version         1.0
// @description     Upload documents into filebooks and ask questions answered from their content.

// @license.name    Apache 2.0
// @license.url     http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:3000
// @BasePath  /
// @schemes   http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"os"

	"github.com/akolanti/filebook/pkg/logger_i"
	"github.com/spf13/cobra"
)

var (
	configPath string
	listenAddr string
)

var rootCmd = &cobra.Command{
	Use:   "filebook",
	Short: "Document question answering over uploaded filebooks",
	Long: `Serves the filebook HTTP API by default.

Environment variables:
  FILEBOOK_JWT_SECRET  HS256 secret shared with the identity provider (required)
  GEMINI_API_KEY       Gemini key for embeddings and chat (required)
  OPENAI_API_KEY       enables gpt-4o-mini (optional)
  FILEBOOK_STORE       redis | mysql | memory (default redis)
  FILEBOOK_VECTOR_INDEX qdrant | memory (default qdrant)
  MYSQL_DSN            used when FILEBOOK_STORE=mysql`,
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "filebook.yaml", "optional YAML settings file")
	rootCmd.PersistentFlags().StringVar(&listenAddr, "listen-addr", "", "server listen address (overrides settings)")
	rootCmd.AddCommand(serveCmd, ingestCmd, mcpCmd, tokenCmd)
}

func main() {
	logger_i.Init()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
