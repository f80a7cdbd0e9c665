package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/foxzi/phishguard/internal/catalog"
)

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "List available simulation templates",
	Run: func(cmd *cobra.Command, args []string) {
		cat := catalog.New()
		for _, t := range cat.List() {
			fmt.Printf("%-16s  [%s]  %s\n", t.ID, t.Difficulty, t.Subject)
		}
	},
}

func init() {
	rootCmd.AddCommand(templatesCmd)
}
