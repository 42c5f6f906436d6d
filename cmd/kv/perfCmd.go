package kv

import (
	"context"
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/ValentinKolb/kvkit/cmd/util"
	"github.com/ValentinKolb/kvkit/lib/common"
	"github.com/ValentinKolb/kvkit/lib/registry"
	"github.com/ValentinKolb/kvkit/lib/store"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/cobra"
)

var (
	log = logger.GetLogger("cmd")

	perfTestCmd = &cobra.Command{
		Use:   "perf",
		Short: "Performance testing tool for the configured store",
		Long: `Runs a fixed set of benchmarks (set, set-large, get, get-not, delete,
batch-set, batch-get, mixed) against the configured store and prints
ns/op and ops/sec for each.`,
		RunE: run,
	}
	perfKeyPrefix        = "__test"
	perfLargeValueSizeKB = 100
	perfNumThreads       = 10
	perfKeySpread        = 100
	perfBatchSize        = 16
	perfSkip             []string
	perfCSV              string
)

func init() {
	// add flags
	key := "skip"
	perfTestCmd.Flags().StringSliceVar(&perfSkip, key, nil, util.WrapString("Benchmarks to skip (comma separated - e.g. set,get)"))
	key = "threads"
	perfTestCmd.Flags().IntVar(&perfNumThreads, key, 10, util.WrapString("Number of goroutines per CPU to use for the benchmark"))
	key = "large-value-size"
	perfTestCmd.Flags().IntVar(&perfLargeValueSizeKB, key, 100, util.WrapString("How large the value for the set-large test should be (in KB)"))
	key = "keys"
	perfTestCmd.Flags().IntVar(&perfKeySpread, key, 100, util.WrapString("How many different keys to use for the tests"))
	key = "batch-size"
	perfTestCmd.Flags().IntVar(&perfBatchSize, key, 16, util.WrapString("Number of keys per batch operation"))
	key = "csv"
	perfTestCmd.Flags().StringVar(&perfCSV, key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

// perfTest is one benchmark. prefill writes every test key before the timer starts.
type perfTest struct {
	name    string
	prefill bool
	op      func(ctx context.Context, key func(int) string, counter int) error
}

func perfTests() []perfTest {
	largeValue := strings.Repeat("x", perfLargeValueSizeKB*1024)

	return []perfTest{
		{name: "set", op: func(ctx context.Context, key func(int) string, counter int) error {
			return kvStore.Set(ctx, key(counter), "test")
		}},
		{name: "set-large", op: func(ctx context.Context, key func(int) string, counter int) error {
			return kvStore.Set(ctx, key(counter), largeValue)
		}},
		{name: "get", prefill: true, op: func(ctx context.Context, key func(int) string, counter int) error {
			_, err := kvStore.Get(ctx, key(counter))
			return err
		}},
		{name: "get-not", op: func(ctx context.Context, key func(int) string, counter int) error {
			_, err := kvStore.Get(ctx, key(counter))
			if store.CodeOf(err) == store.CodeKeyNotFound {
				return nil
			}
			return err
		}},
		{name: "delete", prefill: true, op: func(ctx context.Context, key func(int) string, counter int) error {
			return kvStore.Delete(ctx, key(counter))
		}},
		{name: "batch-set", op: func(ctx context.Context, key func(int) string, counter int) error {
			keys, values := batch(key, counter)
			_, err := kvStore.BatchSet(ctx, keys, values)
			return err
		}},
		{name: "batch-get", prefill: true, op: func(ctx context.Context, key func(int) string, counter int) error {
			keys, _ := batch(key, counter)
			_, _, err := kvStore.BatchGet(ctx, keys)
			return err
		}},
		{name: "mixed", prefill: true, op: func(ctx context.Context, key func(int) string, counter int) error {
			k := key(counter)
			switch counter % 4 {
			case 0: // set
				return kvStore.Set(ctx, k, "test")
			case 1, 2: // get
				_, err := kvStore.Get(ctx, k)
				if store.CodeOf(err) == store.CodeKeyNotFound {
					return nil
				}
				return err
			default: // delete
				return kvStore.Delete(ctx, k)
			}
		}},
	}
}

func run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	fmt.Println("Performance testing tool for kvkit stores")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(kvConf.String())
	fmt.Printf("Threads: %d\n", perfNumThreads)
	fmt.Println()

	fmt.Println("starting tests...")

	results := make(map[string]testing.BenchmarkResult)
	for _, test := range perfTests() {
		if slices.Contains(perfSkip, test.name) {
			results[test.name] = testing.BenchmarkResult{}
			printResult(test.name, results[test.name])
			continue
		}
		results[test.name] = testing.Benchmark(func(b *testing.B) {
			benchmark(ctx, b, test)
		})
		printResult(test.name, results[test.name])
	}

	// Write results to csv if specified
	if perfCSV != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", perfCSV)
		if err := writeResultsToCSV(perfCSV, results, kvConf); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	return nil
}

func benchmark(ctx context.Context, b *testing.B, test perfTest) {
	// prepare keys
	getKey, iter := getKeys(test.name)

	if test.prefill {
		iter(func(k string) {
			if err := kvStore.Set(ctx, k, "test"); err != nil {
				log.Warningf("(%s) - error setting key: %v", test.name, err)
			}
		})
	}

	// cleanup
	b.Cleanup(func() {
		iter(func(k string) {
			if err := kvStore.Delete(ctx, k); err != nil {
				log.Warningf("(%s) - error deleting key: %v", test.name, err)
			}
		})
	})

	b.ResetTimer()

	// UnsafeStore must not be driven concurrently
	if strings.EqualFold(kvConf.Store.Type, registry.UnsafeStore) {
		for i := range b.N {
			if err := test.op(ctx, getKey, i); err != nil {
				log.Warningf("(%s) - error performing operation: %v", test.name, err)
			}
		}
		return
	}

	b.SetParallelism(perfNumThreads)
	b.RunParallel(func(pb *testing.PB) {
		counter := 0
		for pb.Next() {
			if err := test.op(ctx, getKey, counter); err != nil {
				log.Warningf("(%s) - error performing operation: %v", test.name, err)
			}
			counter++
		}
	})
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// creates an array of test keys and functions to work with them
func getKeys(prefix string) (func(int) string, func(func(string))) {
	keys := make([]string, perfKeySpread)
	for i := range perfKeySpread {
		keys[i] = fmt.Sprintf("%s-%s-%d", perfKeyPrefix, prefix, i)
	}

	// Function to get a key by index (with wraparound)
	getKey := func(i int) string {
		return keys[i%perfKeySpread]
	}

	// Function to iterate over all keys and apply a function to each
	iterateKeys := func(fn func(string)) {
		for _, key := range keys {
			fn(key)
		}
	}

	return getKey, iterateKeys
}

// batch returns perfBatchSize consecutive keys starting at counter
func batch(key func(int) string, counter int) ([]string, []string) {
	keys := make([]string, perfBatchSize)
	values := make([]string, perfBatchSize)
	for i := range keys {
		keys[i] = key(counter + i)
		values[i] = "test"
	}
	return keys, values
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(test string, result testing.BenchmarkResult) {
	if result.NsPerOp() == 0 {
		fmt.Printf("%-20sskipped\n", test)
		return
	}

	nsPerOp := math.Max(float64(result.NsPerOp()), 1) // prevent division by zero
	opsPerSec := 1.0 / (nsPerOp / 1e9)

	// Print the formatted result
	fmt.Printf("%-20s%.0fns/op (%s/op)\t%.0f ops/sec\n", test, nsPerOp, time.Duration(nsPerOp), opsPerSec)
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results map[string]testing.BenchmarkResult, conf *common.Config) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	header := []string{
		"Test", "NsPerOp", "DurationPerOp", "OpsPerSec", "Skipped",
		"Store", "Threads", "LargeValueSizeKB", "Keys Count", "BatchSize",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	names := make([]string, 0, len(results))
	for test := range results {
		names = append(names, test)
	}
	slices.Sort(names)

	// Write test results
	for _, test := range names {
		result := results[test]
		var nsPerOp float64
		var opsPerSec float64
		skipped := "true"

		if result.NsPerOp() != 0 {
			skipped = "false"
			nsPerOp = math.Max(float64(result.NsPerOp()), 1)
			opsPerSec = 1.0 / (nsPerOp / 1e9)
		}

		row := []string{
			test,
			fmt.Sprintf("%.0f", nsPerOp),
			time.Duration(nsPerOp).String(),
			fmt.Sprintf("%.0f", opsPerSec),
			skipped,
			conf.Store.Type,
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfLargeValueSizeKB),
			strconv.Itoa(perfKeySpread),
			strconv.Itoa(perfBatchSize),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", test, err)
		}
	}

	return nil
}
