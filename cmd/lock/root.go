package lock

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/ValentinKolb/kvkit/cmd/util"
	"github.com/ValentinKolb/kvkit/lib/lockmgr"
	"github.com/ValentinKolb/kvkit/lib/registry"
	"github.com/ValentinKolb/kvkit/lib/store"
	"github.com/spf13/cobra"
)

var (
	lockStore   store.Store[string, []byte]
	lockMgr     lockmgr.LockManager
	acquireTTL  time.Duration
	acquireWait time.Duration

	// LockCommands represents the lock command group
	LockCommands = &cobra.Command{
		Use:   "lock",
		Short: "Perform lock operations",
		Long: `Advisory locks on top of the configured store. Locks only outlive the
command with a shared backend such as RedisStore.`,
		PersistentPreRunE:  setupLockMgr,
		PersistentPostRunE: closeLockStore,
	}

	// acquireCmd represents the acquire command
	acquireCmd = &cobra.Command{
		Use:   "acquire [key]",
		Short: "Acquire a lock",
		Args:  cobra.ExactArgs(1),
		RunE:  runAcquire,
	}

	// releaseCmd represents the release command
	releaseCmd = &cobra.Command{
		Use:   "release [key] [ownerID]",
		Short: "Release a previously acquired lock",
		Long:  "Release a lock using the key and owner ID. The owner ID is the hex string returned by the acquire command.",
		Args:  cobra.ExactArgs(2),
		RunE:  runRelease,
	}
)

func init() {
	// Add subcommands to lock command
	LockCommands.AddCommand(acquireCmd)
	LockCommands.AddCommand(releaseCmd)

	// Add flags specific to acquire
	acquireCmd.Flags().DurationVar(&acquireTTL, "ttl", 30*time.Second, "Lock time to live (0 for no expiration)")
	acquireCmd.Flags().DurationVar(&acquireWait, "wait", 0, "Retry with backoff for up to this duration while the lock is held")
}

// setupLockMgr builds a byte valued store from the configuration and a lock manager on top
func setupLockMgr(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	conf, err := util.GetConfig()
	if err != nil {
		return err
	}

	lockStore, err = registry.NewStores[string, []byte]().Build(cmdContext(cmd), conf.Store)
	if err != nil {
		return err
	}
	lockMgr = lockmgr.NewLockManager(lockStore)
	return nil
}

func closeLockStore(_ *cobra.Command, _ []string) error {
	if lockStore == nil {
		return nil
	}
	return lockStore.Close()
}

// runAcquire handles the acquire lock command
func runAcquire(cmd *cobra.Command, args []string) error {
	key := args[0]
	ctx := cmdContext(cmd)

	var (
		acquired bool
		ownerID  []byte
		err      error
	)
	if acquireWait > 0 {
		waitCtx, cancel := context.WithTimeout(ctx, acquireWait)
		defer cancel()
		ownerID, err = lockMgr.AcquireLockWait(waitCtx, key, acquireTTL)
		acquired = err == nil
		if waitCtx.Err() != nil {
			err = nil
		}
	} else {
		acquired, ownerID, err = lockMgr.AcquireLock(ctx, key, acquireTTL)
	}

	if err != nil {
		return fmt.Errorf("failed to acquire lock: %v", err)
	}

	if !acquired {
		fmt.Printf("acquired=false\n")
		return nil
	}

	// Convert owner ID to hex string for display
	fmt.Printf("acquired=true, ownerId=%s\n", hex.EncodeToString(ownerID))

	return nil
}

// runRelease handles the release lock command
func runRelease(cmd *cobra.Command, args []string) error {
	key := args[0]

	// Convert hex string owner ID back to bytes
	ownerID, err := hex.DecodeString(args[1])
	if err != nil {
		return fmt.Errorf("invalid owner ID format: %v", err)
	}

	// Attempt to release the lock
	released, err := lockMgr.ReleaseLock(cmdContext(cmd), key, ownerID)
	if err != nil {
		return fmt.Errorf("failed to release lock: %v", err)
	}

	fmt.Printf("released=%v\n", released)

	return nil
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
