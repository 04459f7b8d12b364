package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	logging "github.com/ipfs/go-log/v2"
	"github.com/mitchellh/go-wordwrap"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/e3sm/warehouse/internal/telemetry"
	"github.com/e3sm/warehouse/pkg/catalog"
	"github.com/e3sm/warehouse/pkg/check"
	"github.com/e3sm/warehouse/pkg/config"
)

var (
	log    = logging.Logger("cmd")
	tracer = otel.Tracer("cmd")
)

var rootCmd = &cobra.Command{
	Use:   "warehouse",
	Short: "Check climate model datasets for publication readiness",
	Long: wordwrap.WrapString(
		"Checks datasets in the E3SM warehouse for missing files before they are "+
			"published, and keeps each dataset's status log. Datasets are named by "+
			"their dotted ids, e.g. E3SM.1_0.historical.1deg_atm_60-30km_ocean.atmos.180x360.time-series.mon.ens1.",
		80),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		span := trace.SpanFromContext(cmd.Context())
		setSpanAttributes(cmd, span)

		if lvl := viper.GetString("log_level"); lvl != "" {
			if err := logging.SetLogLevel("*", lvl); err != nil {
				return fmt.Errorf("setting log level: %w", err)
			}
		}
		return nil
	},
	// We handle errors ourselves when they're returned from ExecuteContext.
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	cobra.EnableTraverseRunHooks = true
	rootCmd.SetOut(os.Stdout)
	rootCmd.SetErr(os.Stderr)

	initRootFlags()
	cobra.OnInitialize(initConfig)
}

var cfgFilePath string

func initRootFlags() {
	// default data dir: ~/.warehouse
	homedir, err := os.UserHomeDir()
	if err != nil {
		panic(fmt.Errorf("failed to get user home directory: %w", err))
	}

	rootCmd.PersistentFlags().StringVar(
		&cfgFilePath,
		"config",
		"",
		"Path to the config file",
	)

	rootCmd.PersistentFlags().String(
		"log-level",
		"",
		"Log level for all subsystems (debug, info, warn, error)",
	)
	cobra.CheckErr(viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level")))
	cobra.CheckErr(viper.BindEnv("log_level", "GOLOG_LOG_LEVEL"))

	rootCmd.PersistentFlags().String(
		"warehouse-base",
		"",
		"Root of the warehouse directory tree",
	)
	cobra.CheckErr(viper.BindPFlag("warehouse.base", rootCmd.PersistentFlags().Lookup("warehouse-base")))

	rootCmd.PersistentFlags().String(
		"data-dir",
		filepath.Join(homedir, ".warehouse"),
		"Directory holding the results database",
	)
	cobra.CheckErr(viper.BindPFlag("results.data_dir", rootCmd.PersistentFlags().Lookup("data-dir")))

	rootCmd.PersistentFlags().String(
		"catalog",
		config.CatalogFS,
		"Where published files are looked up (fs, s3)",
	)
	cobra.CheckErr(viper.BindPFlag("catalog.kind", rootCmd.PersistentFlags().Lookup("catalog")))

	rootCmd.PersistentFlags().Duration(
		"lookup-timeout",
		time.Minute,
		"Give up on a catalog lookup after this long (0 to wait forever)",
	)
	cobra.CheckErr(viper.BindPFlag("catalog.lookup_timeout", rootCmd.PersistentFlags().Lookup("lookup-timeout")))

	viper.SetDefault("catalog.ext", ".nc")
	viper.SetDefault("catalog.cache_size", catalog.DefaultCacheSize)
	viper.SetDefault("check.parallelism", check.DefaultParallelism)
}

func initConfig() {
	// check if environment variables match any of the existing keys
	// as an example a key is 'warehouse.base'
	viper.AutomaticEnv()
	// when checking for env vars, rename keys searched for from 'warehouse.base' to 'warehouse_base'
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	// when checking for env vars, search for keys prefixed with WAREHOUSE
	viper.SetEnvPrefix("WAREHOUSE")

	// when searching for a config file look for files names "warehouse-config.yaml"
	viper.SetConfigName("warehouse-config")
	viper.SetConfigType("yaml")

	// if no config file was provided, first look in the current directory _then_ look in
	// $XDG_CONFIG_HOME/warehouse/
	if cfgFilePath == "" {
		viper.AddConfigPath(".")
		if configDir, err := os.UserConfigDir(); err == nil {
			viper.AddConfigPath(filepath.Join(configDir, "warehouse"))
		}
	} else {
		// else a config was provided over the cli via a flag, read it in directly
		viper.SetConfigFile(cfgFilePath)
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFilePath != "" || !errors.As(err, &notFound) {
			cobra.CheckErr(fmt.Errorf("reading config: %w", err))
		}
	} else {
		log.Debugw("loaded config", "file", viper.ConfigFileUsed())
	}
}

// loadConfig loads the configuration and starts telemetry if it is enabled.
// Telemetry is flushed by [ExecuteContext].
func loadConfig(ctx context.Context) (config.Config, error) {
	cfg, err := config.Load[config.Config]()
	if err != nil {
		return cfg, err
	}
	if telemetryShutdown == nil {
		shutdown, err := telemetry.Setup(ctx, cfg.Telemetry.Telemetry())
		if err != nil {
			log.Warnf("telemetry disabled: %v", err)
		} else {
			telemetryShutdown = shutdown
		}
	}
	return cfg, nil
}

var telemetryShutdown func(context.Context) error

// ExecuteContext adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func ExecuteContext(ctx context.Context) (err error) {
	defer func() {
		if telemetryShutdown != nil {
			err = errors.Join(err, telemetryShutdown(context.WithoutCancel(ctx)))
		}
	}()

	ctx, span := tracer.Start(ctx, "cli")
	defer span.End()

	return rootCmd.ExecuteContext(ctx)
}

// commandPath returns the command path for a `cobra.Command`. Where
// `cmd.CommandPath()` returns a concatenated string, this returns a slice of
// the individual commands in the path.
func commandPath(c *cobra.Command) []string {
	var path []string
	if c.HasParent() {
		path = commandPath(c.Parent())
	}
	path = append(path, c.Name())
	return path
}

// setSpanAttributes sets attributes on the provided span based on the command
// and its flags. It will set:
//   - command.path: the full path of the command as a string slice
//   - command.flag.<flag-name>: the value of each flag, as the appropriate type
func setSpanAttributes(cmd *cobra.Command, span trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.StringSlice("command.path", commandPath(cmd)),
	}
	cmd.Flags().Visit(func(f *pflag.Flag) {
		var err error
		k := "command.flag." + f.Name

		var attr attribute.KeyValue
		switch f.Value.Type() {
		case "bool":
			var v bool
			v, err = cmd.Flags().GetBool(f.Name)
			attr = attribute.Bool(k, v)
		case "boolSlice":
			var v []bool
			v, err = cmd.Flags().GetBoolSlice(f.Name)
			attr = attribute.BoolSlice(k, v)
		case "int":
			var v int
			v, err = cmd.Flags().GetInt(f.Name)
			attr = attribute.Int(k, v)
		case "intSlice":
			var v []int
			v, err = cmd.Flags().GetIntSlice(f.Name)
			attr = attribute.IntSlice(k, v)
		case "int64":
			var v int64
			v, err = cmd.Flags().GetInt64(f.Name)
			attr = attribute.Int64(k, v)
		case "int64Slice":
			var v []int64
			v, err = cmd.Flags().GetInt64Slice(f.Name)
			attr = attribute.Int64Slice(k, v)
		case "float64":
			var v float64
			v, err = cmd.Flags().GetFloat64(f.Name)
			attr = attribute.Float64(k, v)
		case "float64Slice":
			var v []float64
			v, err = cmd.Flags().GetFloat64Slice(f.Name)
			attr = attribute.Float64Slice(k, v)
		case "string":
			var v string
			v, err = cmd.Flags().GetString(f.Name)
			attr = attribute.String(k, v)
		case "stringSlice":
			var v []string
			v, err = cmd.Flags().GetStringSlice(f.Name)
			attr = attribute.StringSlice(k, v)
		default:
			attr = attribute.String(k, f.Value.String())
		}
		if err != nil {
			log.Warnf("getting flag %q value %v for telemetry: %v", f.Name, f.Value, err)
			return
		}

		attrs = append(attrs, attr)
	})

	span.SetAttributes(attrs...)
}
