package load

import (
	"context"
	"fmt"
	"time"

	"github.com/ValentinKolb/kvkit/cmd/util"
	"github.com/ValentinKolb/kvkit/lib/loader"
	"github.com/ValentinKolb/kvkit/lib/stream"
	"github.com/spf13/cobra"
)

var (
	loadTimeout time.Duration
	loadKeys    []string

	LoadCmd = &cobra.Command{
		Use:   "load",
		Short: "Load the configured source into a store once",
		Long: `Load the configured source into the configured store once and print a
summary. Use --get to look up keys in the loaded store before it is closed.`,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return util.BindCommandFlags(cmd)
		},
		RunE: run,
	}
)

func init() {
	LoadCmd.Flags().DurationVar(&loadTimeout, "timeout", 0, util.WrapString("Abort the load after this duration (0 for no timeout)"))
	LoadCmd.Flags().StringSliceVar(&loadKeys, "get", nil, util.WrapString("Keys to print after the load (comma separated)"))
}

func run(cmd *cobra.Command, _ []string) error {
	conf, err := util.GetConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if loadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, loadTimeout)
		defer cancel()
	}

	l, records, err := util.BuildLoader(ctx, conf, false)
	if err != nil {
		return err
	}
	defer func() {
		_ = l.Close()
	}()

	report, err := l.Reload(ctx)
	if err != nil {
		return fmt.Errorf("load %s: %w", records, err)
	}
	printReport(records.String(), report, records.Stats())

	if len(loadKeys) > 0 {
		fmt.Println()
		values, errs, err := l.BatchGet(ctx, loadKeys)
		if err != nil {
			return err
		}
		for i, key := range loadKeys {
			if errs[i] != nil {
				fmt.Printf("key=%s, found=false, err=%v\n", key, errs[i])
				continue
			}
			fmt.Printf("key=%s, found=true, value=%s\n", key, values[i])
		}
	}
	return nil
}

func printReport(source string, report loader.Report, stats stream.Stats) {
	fmt.Printf("%-12s%s\n", "source", source)
	fmt.Printf("%-12s%s\n", "strategy", report.Strategy)
	fmt.Printf("%-12s%d\n", "applied", report.Applied)
	fmt.Printf("%-12s%d\n", "deleted", report.Deleted)
	fmt.Printf("%-12s%d\n", "skipped", report.Skipped)
	fmt.Printf("%-12s%d\n", "dirty", stats.DirtyRows)
	fmt.Printf("%-12s%dB (p99 %dB)\n", "record size", stats.AvgSize, stats.P99Size)
	fmt.Printf("%-12s%s\n", "duration", report.Duration)
}
