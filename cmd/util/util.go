package util

import (
	"strings"

	"github.com/ValentinKolb/kvkit/lib/common"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// flagKeys maps command line flags to configuration keys
var flagKeys = map[string]string{
	"store":           "store.type",
	"strategy":        "loader.strategy",
	"source":          "loader.source.path",
	"source-type":     "loader.source.type",
	"parser":          "loader.parser.type",
	"format":          "loader.format",
	"skip-dirty-rows": "loader.skip_dirty_rows",
	"trigger":         "trigger.type",
	"debounce":        "trigger.debounce",
	"interval":        "trigger.interval",
	"log-level":       "log.level",
	"log-format":      "log.format",
	"metrics":         "metrics.endpoint",
}

// SetupConfigFlags adds the configuration flags shared by all commands
func SetupConfigFlags(cmd *cobra.Command) {
	key := "config"
	cmd.PersistentFlags().String(key, "", WrapString("Path of a YAML, JSON or TOML configuration file. Environment variables (KVKIT_<SECTION>_<KEY>) override the file, flags override both"))

	key = "store"
	cmd.PersistentFlags().String(key, "", WrapString("Store backend (CoarseLockStore, ShardedStore, UnsafeStore, MapStore, RedisStore)"))

	key = "strategy"
	cmd.PersistentFlags().String(key, "", WrapString("Load strategy (inplace, replace)"))

	key = "source"
	cmd.PersistentFlags().String(key, "", WrapString("Path of the bulk file to load"))

	key = "source-type"
	cmd.PersistentFlags().String(key, "", WrapString("Source type (file, object). Object sources are configured in the config file"))

	key = "parser"
	cmd.PersistentFlags().String(key, "", WrapString("Record parser (LineParser, JSONParser, BSONParser)"))

	key = "format"
	cmd.PersistentFlags().String(key, "", WrapString("Record framing (lines, bson)"))

	key = "skip-dirty-rows"
	cmd.PersistentFlags().Bool(key, true, WrapString("Skip records that can not be parsed instead of aborting the load"))

	key = "log-level"
	cmd.PersistentFlags().String(key, "", WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))

	key = "log-format"
	cmd.PersistentFlags().String(key, "", WrapString("Log output format (console, json)"))
}

// InitConfig loads env files and binds the environment
func InitConfig() {
	common.InitViper(viper.GetViper())
}

// BindCommandFlags binds the changed flags of a command to their configuration keys.
// Unchanged flags never override the config file or the environment.
func BindCommandFlags(cmd *cobra.Command) error {
	for flag, key := range flagKeys {
		f := cmd.Flags().Lookup(flag)
		if f == nil || !f.Changed {
			continue
		}
		if err := viper.BindPFlag(key, f); err != nil {
			return err
		}
	}
	if f := cmd.Flags().Lookup("config"); f != nil {
		return viper.BindPFlag("config", f)
	}
	return nil
}

// GetConfig reads the configuration and initializes the loggers
func GetConfig() (*common.Config, error) {
	conf, err := common.LoadConfig(viper.GetViper(), viper.GetString("config"))
	if err != nil {
		return nil, err
	}
	if err := common.InitLoggers(conf.Log); err != nil {
		return nil, err
	}
	return conf, nil
}
