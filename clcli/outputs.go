package clcli

import (
	"encoding/json"
	"fmt"

	"github.com/crewlinker/clnet/clsynth"
	"github.com/spf13/cobra"
)

// NewOutputsCmd prints the outputs that dependent tiers consume.
func NewOutputsCmd(pipe *clsynth.Pipeline) *cobra.Command {
	var file, format string

	cmd := &cobra.Command{
		Use:   "outputs",
		Short: "Print the outputs of a network spec",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := run(cmd, pipe, file)
			if err != nil {
				return err
			}

			var out []byte

			switch format {
			case "yaml":
				out, err = res.Outputs.EncodeYAML()
			case "json":
				out, err = json.MarshalIndent(res.Outputs, "", "  ")
				if err == nil {
					out = append(out, '\n')
				}
			default:
				return fmt.Errorf("unsupported format %q, must be yaml or json", format)
			}

			if err != nil {
				return fmt.Errorf("encoding outputs: %w", err)
			}

			_, err = cmd.OutOrStdout().Write(out)

			return err
		},
	}

	specFlag(cmd, &file)
	cmd.Flags().StringVarP(&format, "format", "o", "yaml", "Output format: yaml or json")

	return cmd
}
