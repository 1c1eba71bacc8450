package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmcleod/carepoint/session"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Inspect and manage stored sessions",
}

var sessionShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the identity derived from stored sessions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd, func(rt *runtime) error {
			return printJSON(cmd.OutOrStdout(), rt.state.LoadSession(cmd.Context()))
		})
	},
}

var sessionInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show how long the active session has left",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd, func(rt *runtime) error {
			ctx := cmd.Context()
			source, info := rt.state.SessionInfo(ctx)
			out := cmd.OutOrStdout()
			if !rt.state.IsUserLoggedIn(ctx) {
				fmt.Fprintln(out, session.FormatRemaining(nil))
				return nil
			}
			fmt.Fprintf(out, "source:    %s\n", source)
			fmt.Fprintf(out, "remaining: %s\n", session.FormatActiveRemaining(info, true))
			if info != nil {
				fmt.Fprintf(out, "issued:    %s\n", session.FormatISO(info.IssuedAt))
				fmt.Fprintf(out, "expires:   %s\n", session.FormatISO(info.ExpiresAt))
			}
			return nil
		})
	},
}

var sessionVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check that shadow keys agree with each composite record",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd, func(rt *runtime) error {
			out := cmd.OutOrStdout()
			clean := true
			for _, c := range rt.codecs {
				res, err := c.Verify(cmd.Context())
				if err != nil {
					fmt.Fprintf(out, "%-6s error: %v\n", c.Name(), err)
					clean = false
					continue
				}
				switch {
				case res.OK() && !res.CompositePresent:
					fmt.Fprintf(out, "%-6s empty\n", c.Name())
				case res.OK():
					fmt.Fprintf(out, "%-6s ok\n", c.Name())
				default:
					clean = false
					fmt.Fprintf(out, "%-6s diverged=%v orphaned=%v\n", c.Name(), res.Diverged, res.Orphaned)
				}
			}
			if !clean {
				return errors.New("session store is inconsistent; run 'carepoint session repair'")
			}
			return nil
		})
	},
}

var sessionRepairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Rewrite shadow keys from their composite records",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd, func(rt *runtime) error {
			var errs []error
			for _, c := range rt.codecs {
				if err := c.Repair(cmd.Context()); err != nil {
					errs = append(errs, err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-6s repaired\n", c.Name())
			}
			return errors.Join(errs...)
		})
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Clear every stored session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd, func(rt *runtime) error {
			if err := rt.state.Logout(cmd.Context()); err != nil {
				return fmt.Errorf("logout incomplete: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		})
	},
}

func init() {
	sessionCmd.AddCommand(sessionShowCmd, sessionInfoCmd, sessionVerifyCmd, sessionRepairCmd)
	rootCmd.AddCommand(sessionCmd, logoutCmd)
}
