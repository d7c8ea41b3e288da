package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/edgewire/cloudlink"
	"github.com/edgewire/cloudlink/config"
)

// cloudlinkVersion is set at build time via
// -ldflags "-X main.cloudlinkVersion=x.y.z".
var cloudlinkVersion = "0.1.0"

var (
	sendHost string
	sendPort int

	listenHost string
	listenPort int

	periodicInterval time.Duration
)

var sendCmd = &cobra.Command{
	Use:   "send <message>",
	Short: "Send one message to the cloud endpoint and print the reply",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cloud, err := cloudlink.New(overrideSend(cfg))
		if err != nil {
			return err
		}

		reply, err := cloud.SendMessage(args[0])
		if err != nil {
			return err
		}
		if reply != "" {
			fmt.Fprintln(cmd.OutOrStdout(), reply)
		}
		return nil
	},
}

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Accept inbound messages and print them until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		cloud, err := cloudlink.New(overrideReceive(cfg), cloudlink.WithEnableInbound())
		if err != nil {
			return err
		}
		defer cloud.CloseReceiveSocket()

		fmt.Fprintf(cmd.OutOrStdout(), "Listening on %s:%d\n", cfgOrFlag(cfg.Receive.Host, listenHost), portOrFlag(cfg.Receive.Port, listenPort))

		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

		ticker := time.NewTicker(500 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return nil
			case <-ticker.C:
				for {
					msg, ok := cloud.PopReceivedMessage()
					if !ok {
						break
					}
					fmt.Fprintln(cmd.OutOrStdout(), msg)
				}
			}
		}
	},
}

var periodicCmd = &cobra.Command{
	Use:   "periodic <message>",
	Short: "Send a message repeatedly at a fixed interval until interrupted",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cloud, err := cloudlink.New(overrideSend(cfg))
		if err != nil {
			return err
		}

		if err := cloud.SendPeriodicMessage(periodicInterval, args[0], nil, 0); err != nil {
			return err
		}

		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop

		cloud.StopPeriodicMessage()
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the cloudlink version",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintf(cmd.OutOrStdout(), "cloudlink version %s\n", cloudlinkVersion)
		return nil
	},
}

// overrideSend applies the send flag overrides onto the loaded config.
func overrideSend(c config.Config) config.Config {
	if sendHost != "" {
		c.Send.Host = sendHost
	}
	if sendPort != 0 {
		c.Send.Port = sendPort
	}
	return c
}

// overrideReceive applies the listen flag overrides onto the loaded config.
func overrideReceive(c config.Config) config.Config {
	if listenHost != "" {
		c.Receive.Host = listenHost
	}
	if listenPort != 0 {
		c.Receive.Port = listenPort
	}
	return c
}

func cfgOrFlag(fromCfg, fromFlag string) string {
	if fromFlag != "" {
		return fromFlag
	}
	return fromCfg
}

func portOrFlag(fromCfg, fromFlag int) int {
	if fromFlag != 0 {
		return fromFlag
	}
	return fromCfg
}

func init() {
	sendCmd.Flags().StringVar(&sendHost, "host", "", "send host (overrides config)")
	sendCmd.Flags().IntVar(&sendPort, "port", 0, "send port (overrides config)")

	listenCmd.Flags().StringVar(&listenHost, "host", "", "listen host (overrides config)")
	listenCmd.Flags().IntVar(&listenPort, "port", 0, "listen port (overrides config)")

	periodicCmd.Flags().StringVar(&sendHost, "host", "", "send host (overrides config)")
	periodicCmd.Flags().IntVar(&sendPort, "port", 0, "send port (overrides config)")
	periodicCmd.Flags().DurationVarP(&periodicInterval, "interval", "i", 30*time.Second, "interval between sends")

	rootCmd.AddCommand(sendCmd, listenCmd, periodicCmd, versionCmd)
}
