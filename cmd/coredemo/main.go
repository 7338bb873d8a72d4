// Command coredemo is a harness that wires one instance.Context against
// an in-memory (or file-backed) SQLite database and drives every
// subsystem once: schema initialization, event append, projection
// catch-up, a things+FTS round trip, a two-phase vector search, a
// cascade trigger, a saga run, a migration batch decision, and an
// error boundary fallback. It exists to exercise the wiring end to
// end, not as a production entrypoint.
package main

import (
	"fmt"
	"os"

	"github.com/cuemby/corestate/pkg/log"
	"github.com/spf13/cobra"
)

var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "coredemo",
	Short:   "Drive every corestate subsystem once against a single instance",
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("coredemo version %s (%s)\n", Version, Commit))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().String("db", ":memory:", "SQLite path (\":memory:\" for ephemeral)")
	rootCmd.PersistentFlags().String("kv-dir", "", "BoltDB directory for KV storage (empty uses an in-memory store)")
	rootCmd.PersistentFlags().String("schema-file", "", "YAML file declaring extra tables merged into the default schema (empty uses DefaultSchema only)")
	rootCmd.PersistentFlags().String("relationships-file", "", "YAML file declaring cascade relationships (empty defines none from file)")
	rootCmd.PersistentFlags().String("migration-policy-file", "", "YAML file declaring the migration policy (empty uses the built-in demo policy)")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(runCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}
