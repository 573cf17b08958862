package main

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// rootCmd is bled's entry point. It is unexported; subcommands in this
// package attach themselves to it from their own init functions.
var rootCmd = &cobra.Command{
	Use:   "bled",
	Short: "a hosted driver for a BLE 4.2 peripheral Link-Layer/L2CAP/ATT stack",
}

var configFileFlag string

func init() {
	rootCmd.PersistentFlags().StringVar(&configFileFlag, "config", "", "path to config file (default: $XDG_CONFIG_HOME/bled/bled.yaml)")
}

// Execute is the CLI's main entry point.
func Execute() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

func main() {
	Execute()
}
