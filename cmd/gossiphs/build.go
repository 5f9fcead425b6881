package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/73ai/gossiphs/internal/query"
)

var outPath string

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the relation graph and write its line-delimited JSON index",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := buildGraph(cmd)
		if err != nil {
			return err
		}

		w := os.Stdout
		if outPath != "" {
			f, err := os.Create(outPath)
			if err != nil {
				return fmt.Errorf("create %s: %w", outPath, err)
			}
			defer f.Close()
			return query.WriteRelations(f, svc.ListAllRelations())
		}
		return query.WriteRelations(w, svc.ListAllRelations())
	},
}

func init() {
	buildCmd.Flags().StringVar(&outPath, "out", "", "write the index here instead of stdout")
}
