package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Amine-Ecssr/event-management-system-sub010/internal/cli"
	internal_http "github.com/Amine-Ecssr/event-management-system-sub010/internal/http"
	internal_storage "github.com/Amine-Ecssr/event-management-system-sub010/internal/storage"
)

var rootCmd = &cobra.Command{Use: "taskflow"}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server exposing the workflow engine",
	Run: func(cmd *cobra.Command, args []string) {
		dbConnStr, _ := cmd.Flags().GetString("db")
		port, _ := cmd.Flags().GetString("port")
		store, err := internal_storage.InitStore(dbConnStr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize store: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()
		if err := internal_http.StartServer(port, store); err != nil {
			fmt.Fprintf(os.Stderr, "Server failed: %v\n", err)
			os.Exit(1)
		}
	},
}

func main() {
	rootCmd.PersistentFlags().String("db", os.Getenv("DATABASE_URL"), "Database connection string")
	serveCmd.Flags().String("port", "8080", "HTTP listen port")
	rootCmd.AddCommand(serveCmd)
	cli.SetupCLI(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
