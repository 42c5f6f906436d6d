package kv

import (
	"context"

	"github.com/ValentinKolb/kvkit/cmd/util"
	"github.com/ValentinKolb/kvkit/lib/common"
	"github.com/spf13/cobra"
)

var (
	kvStore util.Store
	kvConf  *common.Config
	kvLoad  bool

	// KeyValueCommands represents the KV command group
	KeyValueCommands = &cobra.Command{
		Use:   "kv",
		Short: "Perform key-value store operations",
		Long: `Perform key-value store operations against the configured store.
In-memory stores start empty for every invocation, use --load to fill
them from the configured source first. RedisStore keeps its data.`,
		PersistentPreRunE:  setupStore,
		PersistentPostRunE: closeStore,
	}
)

func init() {
	KeyValueCommands.PersistentFlags().BoolVar(&kvLoad, "load", false, util.WrapString("Load the configured source into the store before running the command"))

	// Add subcommands
	KeyValueCommands.AddCommand(setCmd)
	KeyValueCommands.AddCommand(getCmd)
	KeyValueCommands.AddCommand(delCmd)
	KeyValueCommands.AddCommand(mgetCmd)
	KeyValueCommands.AddCommand(msetCmd)
	KeyValueCommands.AddCommand(mdelCmd)
	KeyValueCommands.AddCommand(perfTestCmd)
}

// setupStore builds the configured store, loaded from the source with --load
func setupStore(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	conf, err := util.GetConfig()
	if err != nil {
		return err
	}
	kvConf = conf

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if !kvLoad {
		kvStore, err = util.BuildStore(ctx, conf, "cli")
		return err
	}

	l, _, err := util.BuildLoader(ctx, conf, false)
	if err != nil {
		return err
	}
	if _, err := l.Reload(ctx); err != nil {
		_ = l.Close()
		return err
	}
	kvStore = l
	return nil
}

func closeStore(_ *cobra.Command, _ []string) error {
	if kvStore == nil {
		return nil
	}
	return kvStore.Close()
}
