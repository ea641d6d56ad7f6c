package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"warp/internal/diag"
	"warp/internal/lexer"
	"warp/internal/source"
	"warp/internal/token"
)

var tokenizeCmd = &cobra.Command{
	Use:   "tokenize [flags] file.wk",
	Short: "Tokenize a kernel source file",
	Long:  `Tokenize breaks down a kernel source file into its constituent tokens`,
	Args:  cobra.ExactArgs(1),
	RunE:  runTokenize,
}

func init() {
	tokenizeCmd.Flags().String("format", "pretty", "output format (pretty|json)")
}

func runTokenize(cmd *cobra.Command, args []string) error {
	filePath := args[0]

	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	maxDiagnostics, err := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
	if err != nil {
		return fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}

	fs := source.NewFileSet()
	id, err := fs.Load(filePath)
	if err != nil {
		return fmt.Errorf("cannot load %q: %w", filePath, err)
	}

	bag := diag.NewBag(maxDiagnostics)
	tokens := lexer.Tokenize(fs.Get(id), lexer.Options{Reporter: diag.BagReporter{Bag: bag}})
	printBag(cmd, bag, fs)

	switch format {
	case "pretty":
		return writeTokensPretty(cmd, fs, tokens)
	case "json":
		return writeTokensJSON(cmd, fs, tokens)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

func writeTokensPretty(cmd *cobra.Command, fs *source.FileSet, tokens []token.Token) error {
	out := cmd.OutOrStdout()
	for _, tok := range tokens {
		start, _ := fs.Resolve(tok.Span)
		if _, err := fmt.Fprintf(out, "%4d:%-3d %-12s %q\n", start.Line, start.Col, tok.Kind, tok.Text); err != nil {
			return err
		}
	}
	return nil
}

func writeTokensJSON(cmd *cobra.Command, fs *source.FileSet, tokens []token.Token) error {
	type tokenJSON struct {
		Kind string `json:"kind"`
		Text string `json:"text,omitempty"`
		Line uint32 `json:"line"`
		Col  uint32 `json:"col"`
	}
	out := make([]tokenJSON, len(tokens))
	for i, tok := range tokens {
		start, _ := fs.Resolve(tok.Span)
		out[i] = tokenJSON{
			Kind: tok.Kind.String(),
			Text: tok.Text,
			Line: start.Line,
			Col:  start.Col,
		}
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
