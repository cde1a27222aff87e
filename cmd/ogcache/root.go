package main

import (
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/agentuity/go-ogcache/cache"
	"github.com/agentuity/go-ogcache/config"
	"github.com/agentuity/go-ogcache/env"
	"github.com/agentuity/go-ogcache/logger"
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "ogcache",
		Short:         "Inspect and maintain an ogcache disk cache",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			envFile, _ := cmd.Flags().GetString("env-file")
			return env.LoadEnvFile(envFile)
		},
	}
	flags := root.PersistentFlags()
	flags.String("dir", "", "cache directory (env OGCACHE_DIR)")
	flags.String("name", "default", "cache name, used when --dir is not set (env OGCACHE_NAME)")
	flags.String("config", "", "configuration file naming the cache (env OGCACHE_CONFIG)")
	flags.String("env-file", ".env", "file of environment defaults")
	flags.String("log-level", "", "log level: trace, debug, info, warn or error (env "+logger.LevelEnv+")")

	root.AddCommand(
		newListCommand(),
		newGetCommand(),
		newRemoveCommand(),
		newClearCommand(),
		newPruneCommand(),
	)
	return root
}

// resolveDir picks the cache directory: --dir, then the configured
// directory of --name in --config, then the platform cache directory.
func resolveDir(cmd *cobra.Command) (string, error) {
	if dir := env.FlagOrEnv(cmd, "dir", "OGCACHE_DIR", ""); dir != "" {
		return dir, nil
	}
	name := env.FlagOrEnv(cmd, "name", "OGCACHE_NAME", "default")
	var file *config.File
	if path := env.FlagOrEnv(cmd, "config", "OGCACHE_CONFIG", ""); path != "" {
		f, err := config.LoadFile(path)
		if err != nil {
			return "", err
		}
		file = f
	}
	cfg, err := file.Cache(name)
	if err != nil {
		return "", err
	}
	return cache.DiskDir(name, cfg.Directory, ""), nil
}

func openDisk(cmd *cobra.Command) (*cache.DiskCache[any], error) {
	dir, err := resolveDir(cmd)
	if err != nil {
		return nil, err
	}
	log := env.NewLogger(cmd).WithPrefix("[ogcache]")
	log.Debug("using cache directory %s", dir)
	dc, err := cache.NewDisk[any](dir, cache.WithLogger(log))
	if err != nil {
		return nil, errors.Wrapf(err, "opening cache %s", dir)
	}
	return dc, nil
}
