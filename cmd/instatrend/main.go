package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "instatrend",
		Short: "Analyze Instagram profiles and suggest trending hashtags",
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")

	root.AddCommand(serveCmd())
	root.AddCommand(refreshCmd())
	root.AddCommand(analyzeCmd())
	root.AddCommand(trendsCmd())

	return root
}

func serveCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server with background trend refresh",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "server port (default: from config)")
	return cmd
}

func refreshCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Fetch trending data once and store it",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRefresh(force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "refresh even if stored data is still fresh")
	return cmd
}

func analyzeCmd() *cobra.Command {
	var (
		jsonOutput bool
		numPosts   int
	)

	cmd := &cobra.Command{
		Use:   "analyze <username>",
		Short: "Analyze an Instagram profile against current trends",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(args[0], numPosts, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	cmd.Flags().IntVar(&numPosts, "posts", 3, "number of recent posts to consider")
	return cmd
}

func trendsCmd() *cobra.Command {
	var (
		jsonOutput bool
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "trends",
		Short: "Show stored trending hashtags",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrendsList(jsonOutput, limit)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	cmd.Flags().IntVar(&limit, "limit", 20, "max trends to show")
	return cmd
}
