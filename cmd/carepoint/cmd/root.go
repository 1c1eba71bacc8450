package cmd

import (
	"os"

	"github.com/awnumar/memguard"
	"github.com/spf13/cobra"

	"github.com/jmcleod/carepoint/internal/config"
)

// Version is set at build time with -ldflags.
var Version = "dev"

var (
	cfg *config.Config

	storeDriver string
	storeDSN    string
	passphrase  string
	apiURL      string
)

var rootCmd = &cobra.Command{
	Use:   "carepoint",
	Short: "carepoint manages patient sessions and profiles",
	Long: `carepoint persists OTP, login and user-profile sessions in a local or shared
key-value store, derives the signed-in identity from them, and talks to the
remote healthcare API for profiles and the doctor directory.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		applyFlags(cmd, loaded)
		cfg = loaded
		return nil
	},
}

// applyFlags lets explicitly set global flags override the environment.
func applyFlags(cmd *cobra.Command, c *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("store") {
		c.Store.Driver = storeDriver
	}
	if flags.Changed("dsn") {
		c.Store.DSN = storeDSN
	}
	if flags.Changed("passphrase") {
		c.Store.Passphrase = passphrase
	}
	if flags.Changed("api-url") {
		c.Backend.BaseURL = apiURL
	}
}

func Execute() {
	memguard.CatchInterrupt()
	defer memguard.Purge()

	err := rootCmd.Execute()
	if err != nil {
		memguard.Purge()
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = Version
	rootCmd.PersistentFlags().StringVar(&storeDriver, "store", "", "Session store: memory, bbolt, sqlite, postgres, redis")
	rootCmd.PersistentFlags().StringVar(&storeDSN, "dsn", "", "Store location: file path, postgres DSN or redis host:port")
	rootCmd.PersistentFlags().StringVar(&passphrase, "passphrase", "", "Seal stored values with a key derived from this passphrase")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Base URL of the remote healthcare API")
	rootCmd.SetVersionTemplate("carepoint {{.Version}}\n")
}
