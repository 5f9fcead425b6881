package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/73ai/gossiphs/internal/query"
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Run a one-shot query against a freshly built graph",
}

var relatedFilesCmd = &cobra.Command{
	Use:   "related-files PATH",
	Short: "List files related to PATH, scored by co-edit and symbol evidence",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := buildGraph(cmd)
		if err != nil {
			return err
		}
		return printJSON(svc.RelatedFiles(args[0]))
	},
}

var metadataCmd = &cobra.Command{
	Use:   "metadata PATH",
	Short: "Print a file's commit, issue, and symbol-count metadata",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := buildGraph(cmd)
		if err != nil {
			return err
		}
		return printJSON(svc.FileMetadata(args[0]))
	},
}

var pairsCmd = &cobra.Command{
	Use:   "pairs SRC DST",
	Short: "List (definition, reference) symbol pairs directly linking SRC to DST",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := buildGraph(cmd)
		if err != nil {
			return err
		}
		return printJSON(svc.PairsBetweenFiles(args[0], args[1]))
	},
}

var relatedSymbolsCmd = &cobra.Command{
	Use:   "related-symbols PATH START_BYTE",
	Short: "List symbols related to the symbol at PATH's START_BYTE offset",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var startByte uint
		if _, err := fmt.Sscanf(args[1], "%d", &startByte); err != nil {
			return fmt.Errorf("invalid start_byte %q: %w", args[1], err)
		}

		svc, err := buildGraph(cmd)
		if err != nil {
			return err
		}
		sym, ok := svc.SymbolAt(args[0], startByte)
		if !ok {
			return printJSON(nil)
		}
		return printJSON(svc.RelatedSymbols(sym))
	},
}

var listRelationsCmd = &cobra.Command{
	Use:   "list-relations",
	Short: "Print the full relation index as line-delimited JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := buildGraph(cmd)
		if err != nil {
			return err
		}
		return query.WriteRelations(os.Stdout, svc.ListAllRelations())
	},
}

func init() {
	queryCmd.AddCommand(relatedFilesCmd, metadataCmd, pairsCmd, relatedSymbolsCmd, listRelationsCmd)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
