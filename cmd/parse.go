package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"license-agent/core/models"
	"license-agent/feature/licenseserver"

	"github.com/spf13/cobra"
)

var parseServerType string

// parseCmd runs a parser over saved tool output.
var parseCmd = &cobra.Command{
	Use:   "parse [FILE]",
	Short: "Parse saved license server output",
	Long: `Runs the parser of a license server type over a file (or stdin) and prints
the recognized feature counts and usage records as JSON.

Example:
  lmutil lmstat -a -c 27000@flexserv | license-agent parse --type flexlm`,
	Args: cobra.MaximumNArgs(1),
	RunE: runParse,
}

func init() {
	parseCmd.Flags().StringVar(&parseServerType, "type", "", "License server type (flexlm, rlm, lmx, lsdyna, olicense, dsls)")
	_ = parseCmd.MarkFlagRequired("type")

	RootCmd.AddCommand(parseCmd)
}

func runParse(cmd *cobra.Command, args []string) error {
	t, ok := models.ParseServerType(parseServerType)
	if !ok {
		return fmt.Errorf("%w: %q", licenseserver.ErrUnknownServerType, parseServerType)
	}
	p, _ := licenseserver.Lookup(t)

	in := cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	raw, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	out, err := json.MarshalIndent(p.Parse(string(raw)), "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
