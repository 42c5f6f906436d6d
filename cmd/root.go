package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/kvkit/cmd/kv"
	"github.com/ValentinKolb/kvkit/cmd/load"
	"github.com/ValentinKolb/kvkit/cmd/lock"
	"github.com/ValentinKolb/kvkit/cmd/util"
	"github.com/ValentinKolb/kvkit/cmd/watch"
	"github.com/spf13/cobra"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "kvkit",
		Short: "key-value store backends and bulk loader",
		Long: fmt.Sprintf(`kvkit (v%s)

Load bulk key-value files into in-memory or Redis backed stores, keep them
in sync with their source and benchmark the store backends.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of kvkit",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("kvkit v%s\n", Version)
		},
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add Commands
	RootCmd.AddCommand(load.LoadCmd)
	RootCmd.AddCommand(watch.WatchCmd)
	RootCmd.AddCommand(kv.KeyValueCommands)
	RootCmd.AddCommand(lock.LockCommands)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	util.SetupConfigFlags(RootCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
