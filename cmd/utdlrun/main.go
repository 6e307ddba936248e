package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "utdlrun",
		Short: "Run UTDL test plans against live HTTP APIs",
		Long: `utdlrun loads a Universal Test Definition Language plan, validates its
structure and dependency graph, then executes its steps as a DAG with
bounded parallelism, retries, and variable interpolation between steps.`,
	}
	root.AddCommand(executeCmd())
	return root
}
