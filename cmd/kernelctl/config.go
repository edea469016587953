package main

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds the tunables SPEC_FULL.md's external-interfaces section
// names: frame count, swap slot count, the (unused) journal block
// count, and the default sector count a fresh image is formatted with. It is read via viper from a YAML file
// or flags, mirroring gcsfuse's cfg/cmd split (cfg.Config bound by
// cfg.BindFlags, unmarshaled by viper in cmd's initConfig) scaled down
// to this module's much smaller surface.
type Config struct {
	Frames     int `mapstructure:"frames"`
	SwapSlots  int `mapstructure:"swap-slots"`
	LogBlocks  int `mapstructure:"log-blocks"`  // unused: journaling is a non-goal
	DataBlocks int `mapstructure:"data-blocks"` // sectors reserved for mkfs's default image
}

// bindConfigFlags registers the Config fields as persistent flags and
// binds each to viper, so a flag, an environment variable, or a YAML
// config file may supply it.
func bindConfigFlags(flags *pflag.FlagSet) error {
	flags.Int("frames", 256, "number of physical frames the frame table manages")
	flags.Int("swap-slots", 256, "number of slots in the swap device")
	flags.Int("log-blocks", 0, "reserved for journal blocks (unused; journaling is a non-goal)")
	flags.Int("data-blocks", 4096, "default sector count for a freshly formatted image")

	for _, name := range []string{"frames", "swap-slots", "log-blocks", "data-blocks"} {
		if err := viper.BindPFlag(name, flags.Lookup(name)); err != nil {
			return err
		}
	}
	return nil
}

func loadConfig(cfgFile string) (Config, error) {
	var cfg Config
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		viper.SetConfigType("yaml")
		if err := viper.ReadInConfig(); err != nil {
			return cfg, err
		}
	}
	err := viper.Unmarshal(&cfg)
	return cfg, err
}
