package main

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/GoSim-25-26J-441/clicksim/pkg/config"
	"github.com/GoSim-25-26J-441/clicksim/pkg/logger"
)

const envPrefix = "CLICKSIM"

// options holds the global flags
type options struct {
	configFile string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "clicksim",
		Short: "Simulated annotator clicks for interactive volumetric segmentation",
		Long: `clicksim simulates the corrective clicks of a human annotator while an
interactive segmentation model is trained or evaluated, and inspects the
click records and dice histories it writes.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			if opts.logLevel != "" {
				logger.SetDefault(logger.NewText(opts.logLevel, cmd.ErrOrStderr()))
			}
		},
	}

	root.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "config file (default ./clicksim.yaml)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(
		newValidateCmd(opts),
		newEpisodeCmd(opts),
		newDiceDiffCmd(),
		newClicksCmd(),
	)
	return root
}

// loadConfig merges the defaults, the config file and CLICKSIM_* environment
// overrides, then validates the result
func loadConfig(opts *options) (*config.Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	def := config.Default()
	base, err := def.Marshal()
	if err != nil {
		return nil, err
	}
	if err := v.ReadConfig(bytes.NewReader(base)); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if opts.configFile != "" {
		v.SetConfigFile(opts.configFile)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", opts.configFile, err)
		}
	} else if _, err := os.Stat("clicksim.yaml"); err == nil {
		v.SetConfigFile("clicksim.yaml")
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file clicksim.yaml: %w", err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	// CLICKSIM_INTERACTION_MAX_INTERACTIONS for interaction.max_interactions
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range []string{"inference.addr", "inference.timeout", "inference.max_retries"} {
		_ = v.BindEnv(key)
	}

	var merged config.Config
	if err := v.Unmarshal(&merged, viper.DecoderConfigOption(func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "yaml"
	})); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	data, err := merged.Marshal()
	if err != nil {
		return nil, err
	}
	cfg, err := config.ParseConfigYAML(data)
	if err != nil {
		return nil, err
	}
	if opts.logLevel == "" {
		logger.SetDefault(logger.NewText(cfg.LogLevel, os.Stderr))
	}
	return cfg, nil
}
