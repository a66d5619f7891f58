package clcli

import (
	"fmt"
	"io"
	"strings"

	"github.com/crewlinker/clnet/clplan"
	"github.com/crewlinker/clnet/clprovision"
	"github.com/crewlinker/clnet/clsynth"
	"github.com/crewlinker/clnet/cltopo"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

// NewPlanCmd prints the changes against the recorded snapshot.
func NewPlanCmd(pipe *clsynth.Pipeline) *cobra.Command {
	var file, state string

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Plan the changes against the recorded state",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := run(cmd, pipe, file)
			if err != nil {
				return err
			}

			store := clplan.NewFileStore(state)

			snap, err := store.Load(cmd.Context())
			if err != nil {
				return fmt.Errorf("loading state: %w", err)
			}

			plan, err := clplan.Compute(res.Entities(), snap)
			if err != nil {
				return fmt.Errorf("computing plan: %w", err)
			}

			teardown, err := clplan.Teardown(plan, snap)
			if err != nil {
				return fmt.Errorf("ordering teardown: %w", err)
			}

			writePlan(cmd.OutOrStdout(), plan, teardown)

			return nil
		},
	}

	specFlag(cmd, &file)
	cmd.Flags().StringVarP(&state, "state", "s", "clnet.state.json", "File that holds the recorded state")

	return cmd
}

func writePlan(w io.Writer, plan *clplan.Plan, teardown [][]cltopo.Entity) {
	fmt.Fprintln(w, plan.String())

	for _, bc := range plan.Bundles() {
		fmt.Fprintf(w, "bundle %d: %s\n", bc.Index, bc.Action)
	}

	for i, layer := range teardown {
		fmt.Fprintf(w, "teardown %d: %s\n", i, strings.Join(lo.Map(layer, func(e cltopo.Entity, _ int) string {
			return e.Name
		}), ", "))
	}
}

// NewRecordCmd records the synthesized entities as the materialized state. Recording goes through the
// provisioning driver so that only the parts that were applied end up in the state.
func NewRecordCmd(pipe *clsynth.Pipeline, drv *clprovision.Driver) *cobra.Command {
	var file, state string

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record the spec as materialized",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := run(cmd, pipe, file)
			if err != nil {
				return err
			}

			rec := clprovision.NewRecorder(res.Entities(), res.Edges())

			rep, err := drv.ApplyBundles(cmd.Context(), res.Topology, rec)
			if err != nil {
				return fmt.Errorf("applying shared entities: %w", err)
			}

			snap := rec.Snapshot()
			if err := clplan.NewFileStore(state).Save(cmd.Context(), snap); err != nil {
				return fmt.Errorf("saving state: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "recorded %d entities of %d bundle(s) to %s\n",
				len(snap.Entities), len(rep.Succeeded), state)

			return rep.Err()
		},
	}

	specFlag(cmd, &file)
	cmd.Flags().StringVarP(&state, "state", "s", "clnet.state.json", "File that holds the recorded state")

	return cmd
}
