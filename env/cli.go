package env

import (
	"log"
	"os"

	"github.com/agentuity/go-ogcache/logger"
	"github.com/spf13/cobra"
)

// FlagOrEnv will try and get a flag from the cobra.Command and if not found, look it up in the environment
// and fallback to defaultValue if non found
func FlagOrEnv(cmd *cobra.Command, flagName string, envName string, defaultValue string) string {
	flagValue, _ := cmd.Flags().GetString(flagName)
	if flagValue != "" {
		return flagValue
	}
	if val, ok := os.LookupEnv(envName); ok && val != "" {
		return val
	}
	return defaultValue
}

// LogLevel resolves the --log-level flag, then OGCACHE_LOG_LEVEL, defaulting to warn.
func LogLevel(cmd *cobra.Command) logger.LogLevel {
	return logger.ParseLevel(FlagOrEnv(cmd, "log-level", logger.LevelEnv, "warn"), logger.LevelWarn)
}

// NewLogger returns a console logger at the level given by LogLevel.
func NewLogger(cmd *cobra.Command) logger.Logger {
	log.SetFlags(0)
	return logger.NewConsoleLogger(LogLevel(cmd))
}
