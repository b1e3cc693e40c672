// Command harmonyctl is the operator tool for a Harmony node: schema
// migrations, node keys, organizations and bearer tokens.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	BuildTime = "undefined"
	GitHash   = "undefined"
)

var (
	envFile string
	logger  = slog.New(slog.NewJSONHandler(os.Stderr, nil))
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:           "harmonyctl",
	Short:         "Operate a Harmony node",
	Version:       fmt.Sprintf("%s (%s, %s)", Version, GitHash, BuildTime),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Real environment values win over the file.
		_ = godotenv.Load(envFile)
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(cmd.UsageString())
		os.Exit(2)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file applied before reading the environment")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// valueOrEnv returns v, or the environment variable key when v is empty.
func valueOrEnv(v, key string) string {
	if v != "" {
		return v
	}
	return os.Getenv(key)
}
