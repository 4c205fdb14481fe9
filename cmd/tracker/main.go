// Tracker CLI — инструмент командной строки для работы
// с workflows и процессами через HTTP API.
//
// Использование:
//
//	tracker [--api-url URL] [--user-id ID] [--role-id ID] [--json] <command> <subcommand> [flags]
//
// Команды:
//
//	workflow  Управление workflows
//	process   Запуск процессов и выполнение шагов
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaiso/Tracker/internal/cli"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var apiURL, userID, roleID string
	var jsonOutput bool

	rootCmd := &cobra.Command{
		Use:           "tracker",
		Short:         "Tracker CLI — approval workflow tracker",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", envOr("TRACKER_API_URL", "http://localhost:8080"), "API server URL")
	rootCmd.PersistentFlags().StringVar(&userID, "user-id", os.Getenv("TRACKER_USER_ID"), "Acting user ID")
	rootCmd.PersistentFlags().StringVar(&roleID, "role-id", os.Getenv("TRACKER_ROLE_ID"), "Acting role ID")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	clientFn := func() *cli.Client { return cli.NewClient(apiURL, userID, roleID) }
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		cli.NewWorkflowCmd(clientFn, outputFn),
		cli.NewProcessCmd(clientFn, outputFn),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
