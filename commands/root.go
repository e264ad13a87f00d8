// Package commands implements the wavdump command line.
package commands

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	Version = "dev"

	cfgFile string

	// settings layers flags over WAVDUMP_* environment variables over the
	// optional config file.
	settings = newSettings()
)

func newSettings() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("WAVDUMP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("log.level", "info")
	return v
}

var rootCmd = &cobra.Command{
	Use:   "wavdump",
	Short: "Wavelet compressed dumps of block-structured fields",
	Long: `wavdump writes wavelet compressed dumps of a synthetic bubble cloud from
an in-process world of ranks, and inspects or decodes existing dumps.

Every flag can also be set through the environment as WAVDUMP_<COMMAND>_<FLAG>,
for example WAVDUMP_DUMP_THRESHOLD=1e-3, or through a config file.`,
	Version:           Version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

// ExecuteContext runs the root command. It is called once by main.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, toml or json)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug|info|warn|error)")
	if err := settings.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level")); err != nil {
		panic(err)
	}

	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(readCmd)
}

func setup(cmd *cobra.Command, _ []string) error {
	if cfgFile != "" {
		settings.SetConfigFile(cfgFile)
		if err := settings.ReadInConfig(); err != nil {
			return errors.Wrapf(err, "read config %s", cfgFile)
		}
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(settings.GetString("log.level"))); err != nil {
		return errors.Wrap(err, "log level")
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
	return nil
}

// bind exposes the local flag name of cmd as the settings key
// <command>.<name>.
func bind(cmd *cobra.Command, names ...string) {
	for _, name := range names {
		f := cmd.Flags().Lookup(name)
		if f == nil {
			panic("commands: no flag " + name + " on " + cmd.Name())
		}
		if err := settings.BindPFlag(cmd.Name()+"."+name, f); err != nil {
			panic(err)
		}
	}
}

// Exit prints err and terminates the process.
func Exit(err error) {
	rootCmd.PrintErrln("Error:", err)
	os.Exit(1)
}
