package cmd

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var (
	doctorsLimit int
	doctorsJSON  bool
)

var doctorsCmd = &cobra.Command{
	Use:   "doctors",
	Short: "List the doctor directory from the remote API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd, func(rt *runtime) error {
			if rt.client == nil {
				return errors.New("no remote API configured; set CAREPOINT_API_URL or --api-url")
			}
			doctors, err := rt.client.ListDoctors(cmd.Context())
			if err != nil {
				return err
			}
			if doctorsLimit > 0 && len(doctors) > doctorsLimit {
				doctors = doctors[:doctorsLimit]
			}
			if doctorsJSON {
				return printJSON(cmd.OutOrStdout(), doctors)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tSPECIALIZATION\tHOSPITAL\tEXPERIENCE\tFEE")
			for _, d := range doctors {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", d.Name, d.Specialization, d.Hospital, d.Experience, d.Fee)
			}
			return tw.Flush()
		})
	},
}

func init() {
	rootCmd.AddCommand(doctorsCmd)
	doctorsCmd.Flags().IntVar(&doctorsLimit, "limit", 0, "Show at most this many doctors")
	doctorsCmd.Flags().BoolVar(&doctorsJSON, "json", false, "Print JSON instead of a table")
}
