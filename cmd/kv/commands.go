package kv

import (
	"errors"
	"fmt"
	"time"

	"github.com/ValentinKolb/kvkit/lib/store"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"
)

var (
	setIfNotExist bool
	setTTL        time.Duration

	setCmd = &cobra.Command{
		Use:   "set [key] [value]",
		Short: "Sets the value for a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := kvStore.Set(cmd.Context(), args[0], args[1], setOptions()...); err != nil {
				if errors.Is(err, store.ErrConditionFailed) {
					fmt.Printf("key=%s, set=false (exists)\n", args[0])
					return nil
				}
				return err
			}
			fmt.Println("set successfully")
			return nil
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [key]",
		Short: "Reads the value for a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			value, err := kvStore.Get(cmd.Context(), key)
			switch {
			case errors.Is(err, store.ErrKeyNotFound):
				fmt.Printf("key=%s, found=false\n", key)
			case err != nil:
				return err
			default:
				fmt.Printf("key=%s, found=true, value=%s\n", key, value)
			}
			return nil
		},
	}
	delCmd = &cobra.Command{
		Use:   "del [key]",
		Short: "Deletes a key value pair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := kvStore.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Println("delete successfully")
			return nil
		},
	}
	mgetCmd = &cobra.Command{
		Use:   "mget [key...]",
		Short: "Reads the values for several keys",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, errs, err := kvStore.BatchGet(cmd.Context(), args)
			if err != nil {
				return err
			}
			for i, key := range args {
				switch {
				case errors.Is(errs[i], store.ErrKeyNotFound):
					fmt.Printf("key=%s, found=false\n", key)
				case errs[i] != nil:
					fmt.Printf("key=%s, err=%v\n", key, errs[i])
				default:
					fmt.Printf("key=%s, found=true, value=%s\n", key, values[i])
				}
			}
			return nil
		},
	}
	msetCmd = &cobra.Command{
		Use:   "mset [key] [value] [key value...]",
		Short: "Sets several key value pairs",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 || len(args)%2 != 0 {
				return fmt.Errorf("expected key value pairs, got %d arguments", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			keys := make([]string, 0, len(args)/2)
			values := make([]string, 0, len(args)/2)
			for i := 0; i < len(args); i += 2 {
				keys = append(keys, args[i])
				values = append(values, args[i+1])
			}
			errs, err := kvStore.BatchSet(cmd.Context(), keys, values, setOptions()...)
			if err != nil {
				return err
			}
			for i, key := range keys {
				fmt.Printf("key=%s, set=%t\n", key, errs[i] == nil)
			}
			return nil
		},
	}
	mdelCmd = &cobra.Command{
		Use:   "mdel [key...]",
		Short: "Deletes several keys",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			errs, err := kvStore.BatchDelete(cmd.Context(), args)
			if err != nil {
				return err
			}
			var result *multierror.Error
			for i, e := range errs {
				if e != nil {
					result = multierror.Append(result, fmt.Errorf("%s: %w", args[i], e))
				}
			}
			if result != nil {
				return result
			}
			fmt.Println("delete successfully")
			return nil
		},
	}
)

func init() {
	for _, c := range []*cobra.Command{setCmd, msetCmd} {
		c.Flags().BoolVar(&setIfNotExist, "if-not-exist", false, "Only write keys that are not present")
		c.Flags().DurationVar(&setTTL, "ttl", 0, "Time to live of the written values (RedisStore only)")
	}
}

func setOptions() []store.Option {
	var opts []store.Option
	if setIfNotExist {
		opts = append(opts, store.IfNotExist())
	}
	if setTTL > 0 {
		opts = append(opts, store.WithExpiration(setTTL))
	}
	return opts
}
