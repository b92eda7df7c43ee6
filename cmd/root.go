package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"docqa/src/log"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "docqa",
	Short: "Ask questions about a PDF and get verified, grounded answers",
	Long: `docqa indexes one document per session, answers questions using only
passages retrieved from it, checks each answer against those passages and
suggests follow-up questions.

Example usage:
  docqa serve                                      # HTTP API
  docqa ask report.pdf "What is the total cost?"   # one-shot questions
  docqa chat report.pdf                            # terminal chat`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()
		settingDefaultConfig()

		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
			if err := viper.ReadInConfig(); err != nil {
				return fmt.Errorf("failed to read config %s: %w", cfgFile, err)
			}
		}

		return log.Setup(viper.GetString("log.level"), viper.GetBool("log.development"))
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
}
