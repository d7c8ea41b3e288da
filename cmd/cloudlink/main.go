// Command cloudlink is the operator CLI for the cloudlink session
// manager: one-shot sends, a receive-and-print listener, and periodic
// sends against a TOML connection configuration.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/edgewire/cloudlink/config"
)

var (
	cfgFile string
	verbose bool

	cfg config.Config
)

var rootCmd = &cobra.Command{
	Use:   "cloudlink",
	Short: "Exchange messages with a cloud endpoint over stream sockets",
	Long: `Cloudlink sends short messages to a remote cloud endpoint and accepts
messages the endpoint pushes back, using plain TCP stream sockets.
Connection endpoints and timeouts come from a TOML configuration file.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			logrus.SetLevel(logrus.DebugLevel)
		} else {
			logrus.SetLevel(logrus.WarnLevel)
		}

		if cfgFile == "" {
			cfg.ApplyDefaults()
			return nil
		}
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "path to TOML configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
