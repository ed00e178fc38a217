package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "pulsar",
	Short: "NJOY nuclear data processing pipeline driver",
	Long: "Pulsar turns a library of ENDF-6 evaluations into ACE files for transport\n" +
		"codes: it builds a per-nuclide NJOY module pipeline, renders the input deck,\n" +
		"drives the NJOY executable, and assembles the xsdir index.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default .pulsar.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringP("library", "l", ".", "library directory (holds pulsar.toml)")
	rootCmd.PersistentFlags().StringP("output", "o", "out", "output directory")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("library", rootCmd.PersistentFlags().Lookup("library"))
	_ = viper.BindPFlag("output_directory", rootCmd.PersistentFlags().Lookup("output"))
}

func initConfig() {
	if cfgFile, _ := rootCmd.Flags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(".pulsar")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
	}

	viper.SetEnvPrefix("PULSAR")
	viper.AutomaticEnv()

	// It's fine if no config file is found; we use defaults.
	_ = viper.ReadInConfig()
}
