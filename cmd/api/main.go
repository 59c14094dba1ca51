package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/yuvrajinbhakti/UHaveToDo/cmd/api/commands"
)

// @title UHaveToDo API
// @version 1.0
// @description Personal task list with Google Calendar sync

// @host localhost:3000
// @BasePath /api

func main() {
	rootCmd := &cobra.Command{
		Use:   "uhavetodo",
		Short: "UHaveToDo task tracker",
		Long:  `UHaveToDo is a personal task list with a browser UI, a JSON API and one-way sync of due tasks to Google Calendar.`,
	}

	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewMigrateCommand())
	rootCmd.AddCommand(commands.NewTaskCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	if err := rootCmd.Execute(); err != nil {
		log.Printf("Command execution failed: %v", err)
		os.Exit(1)
	}
}
