// Command kernelctl is the ambient operator surface named in spec §6's
// external-interfaces addition: format images, run a consistency
// check, list a directory, and serve Prometheus metrics off a booted
// file system. None of this is part of the syscall ABI a process
// dispatches into (that's the syscall package) -- it's the tooling a
// human or a test harness drives from outside.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "kernelctl",
	Short: "Format, inspect, and serve the teaching file system",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config-file", "", "path to a YAML config file")
	if err := bindConfigFlags(rootCmd.PersistentFlags()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cobra.OnInitialize(func() {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
			viper.SetConfigType("yaml")
			if err := viper.ReadInConfig(); err != nil {
				fmt.Fprintln(os.Stderr, "reading config file:", err)
				os.Exit(1)
			}
		}
	})

	rootCmd.AddCommand(mkfsCmd)
	rootCmd.AddCommand(fsckCmd)
	rootCmd.AddCommand(lsCmd)
	rootCmd.AddCommand(serveCmd)
}

func main() {
	Execute()
}
