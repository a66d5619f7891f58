// Package clcli implements the command line interface for synthesizing, validating and planning
// networks without a cloud account.
package clcli

import (
	"fmt"

	"github.com/crewlinker/clnet/clbuildinfo"
	"github.com/crewlinker/clnet/clnetspec"
	"github.com/crewlinker/clnet/clprovision"
	"github.com/crewlinker/clnet/clsynth"
	"github.com/spf13/cobra"
)

// NewRootCmd inits the root command with every sub command attached.
func NewRootCmd(pipe *clsynth.Pipeline, drv *clprovision.Driver, info *clbuildinfo.Info) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "clnet",
		Short:         "Synthesize multi-zone networks",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(NewValidateCmd(pipe))
	rootCmd.AddCommand(NewOutputsCmd(pipe))
	rootCmd.AddCommand(NewPlanCmd(pipe))
	rootCmd.AddCommand(NewRecordCmd(pipe, drv))
	rootCmd.AddCommand(NewVersionCmd(info))

	return rootCmd
}

// run loads the spec file and runs the pipeline on it.
func run(cmd *cobra.Command, pipe *clsynth.Pipeline, file string) (*clsynth.Result, error) {
	spec, err := clnetspec.LoadFile(file)
	if err != nil {
		return nil, fmt.Errorf("loading spec: %w", err)
	}

	res, err := pipe.Run(cmd.Context(), spec)
	if err != nil {
		return nil, err
	}

	return res, nil
}

// specFlag adds the required flag that points to the spec file.
func specFlag(cmd *cobra.Command, file *string) {
	cmd.Flags().StringVarP(file, "file", "f", "", "YAML file that describes the network")
	_ = cmd.MarkFlagRequired("file")
}

// NewVersionCmd prints the version of the synthesizer.
func NewVersionCmd(info *clbuildinfo.Info) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), info.Version())

			return nil
		},
	}
}
