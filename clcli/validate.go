package clcli

import (
	"fmt"

	"github.com/crewlinker/clnet/clsynth"
	"github.com/spf13/cobra"
)

// NewValidateCmd validates a spec file and reports what would be synthesized from it.
func NewValidateCmd(pipe *clsynth.Pipeline) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a network spec",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := run(cmd, pipe, file)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: valid, %d zone(s), %d entities, %d endpoint(s)\n",
				file, res.Topology.Zones(), len(res.Entities()), len(res.Boundary.Endpoints))

			return nil
		},
	}

	specFlag(cmd, &file)

	return cmd
}
