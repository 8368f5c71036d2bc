package main // Entry point package

import (
	"log" // Logging library
	"os"

	"github.com/joho/godotenv" // Loads .env files into the environment
	"github.com/spf13/cobra"   // Subcommand framework
)

const programName = "enrolld"

func main() {
	rootCmd := &cobra.Command{
		Use:   programName,
		Short: "capacity-constrained course enrollment allocator",
		Long: programName + ` allocates seats in course sections under hard capacity
limits, queues students on full sections and promotes them in FIFO
order when seats free up.  The serve subcommand runs the background
promotion pipeline plus the ops endpoints; the remaining subcommands
are registrar levers over the same store.`,
	}

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		// A missing .env is fine; deployments set environment variables directly.
		if err := godotenv.Load(); err == nil {
			log.Printf("%s: loaded configuration from .env", programName)
		}
	}

	rootCmd.AddCommand(serveCommand())
	rootCmd.AddCommand(migrateCommand())
	rootCmd.AddCommand(seedCommand())
	rootCmd.AddCommand(enrollCommand())
	rootCmd.AddCommand(dropCommand())
	rootCmd.AddCommand(withdrawCommand())
	rootCmd.AddCommand(positionCommand())

	if err := rootCmd.Execute(); err != nil {
		// NOTE: we purposely don't display the error, since cobra will have already displayed it
		os.Exit(1)
	}
}
