package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var ConfigFlag string

func main() {
	rootCmd := &cobra.Command{
		Use:   "quizadmin",
		Short: "Management tools for the quiz server",
	}
	rootCmd.PersistentFlags().StringVarP(&ConfigFlag, "config", "c", "./", "Path to the directory containing the server config file")

	questionsCmd.AddCommand(questionsListCmd)
	questionsCmd.AddCommand(questionsAddCmd)
	questionsCmd.AddCommand(questionsDeleteCmd)
	questionsCmd.AddCommand(questionsImportCmd)

	rootCmd.AddCommand(questionsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
	}
}
