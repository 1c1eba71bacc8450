package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmcleod/carepoint/identity"
	"github.com/jmcleod/carepoint/session"
)

var loginPayload string

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store a session from an authentication response",
	Long: `Store a session from an authentication response. The payload is a JSON
object given inline or as @file, exactly as the remote API returned it.`,
}

type saveStep func(*identity.State, context.Context, session.Payload) error

func loginSubcommand(use, short string, save saveStep) *cobra.Command {
	c := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := parsePayload(loginPayload)
			if err != nil {
				return err
			}
			return withRuntime(cmd, func(rt *runtime) error {
				if err := save(rt.state, cmd.Context(), p); err != nil {
					return err
				}
				v := rt.state.View()
				fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%s)\n", v.Name, v.Source)
				return nil
			})
		},
	}
	c.Flags().StringVar(&loginPayload, "payload", "", "Response JSON, or @path to read it from a file")
	c.MarkFlagRequired("payload")
	return c
}

func init() {
	loginCmd.AddCommand(
		loginSubcommand("otp", "Store an OTP verification response", (*identity.State).SaveOTPSession),
		loginSubcommand("password", "Store a password login response", (*identity.State).SaveLoginSession),
		loginSubcommand("user", "Store plain user data without expiry", (*identity.State).SaveUserData),
	)
	rootCmd.AddCommand(loginCmd)
}
