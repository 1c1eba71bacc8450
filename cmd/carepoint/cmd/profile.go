package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmcleod/carepoint/session"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show and edit the signed-in patient's profile",
}

var profileShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the display-ready profile",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd, func(rt *runtime) error {
			rt.state.LoadSession(cmd.Context())
			return printJSON(cmd.OutOrStdout(), rt.state.Profile(projection(cfg)))
		})
	},
}

var profileSetCmd = &cobra.Command{
	Use:   "set FIELD VALUE",
	Short: "Update one field on the active session",
	Long: `Update one field on the active session. VALUE is stored as a string
unless it is a JSON object, array or boolean.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		field, value := args[0], parseValue(args[1])
		if err := session.ValidateField(field, value); err != nil {
			return err
		}
		return withRuntime(cmd, func(rt *runtime) error {
			if err := rt.state.UpdateProfileField(cmd.Context(), field, value); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", field)
			return nil
		})
	},
}

var profileRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Fetch the authoritative profile from the remote API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd, func(rt *runtime) error {
			ctx := cmd.Context()
			rt.state.LoadSession(ctx)
			if err := rt.state.RefreshProfile(ctx); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rt.state.Profile(projection(cfg)))
		})
	},
}

// parseValue keeps numbers as strings so phone numbers survive intact.
func parseValue(s string) any {
	switch {
	case s == "true":
		return true
	case s == "false":
		return false
	case !strings.HasPrefix(s, "{") && !strings.HasPrefix(s, "["):
		return s
	}
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	return v
}

func init() {
	profileCmd.AddCommand(profileShowCmd, profileSetCmd, profileRefreshCmd)
	rootCmd.AddCommand(profileCmd)
}
