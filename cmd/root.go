package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/bimmerbailey/herring/internal/config"
	"github.com/bimmerbailey/herring/internal/logging"
	"github.com/bimmerbailey/herring/internal/redact"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "herring",
	Short: "Find the rare messages hiding in syslog noise",
	Long: `Herring groups similar syslog messages into patterns and reports how often
each pattern occurred. Routine messages collapse into a few high-frequency
patterns; the rare ones that are left are usually the ones worth reading.

Examples:
  herring scan /var/log/syslog
  herring scan --only-uncommon --one-liner /var/log/syslog*
  herring watch /var/log/syslog
  herring explain --uncommon-frequency 2 /var/log/syslog`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init(os.Stderr, logging.Level(viper.GetString("log_level"), viper.GetBool("verbose")))
	},
}

// Execute is called by main.main(). It runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.herring.yaml)")
	rootCmd.PersistentFlags().StringP("format", "f", "text", "output format (text, json, yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().String("log-level", "warn", "diagnostic log level (debug, info, warn, error)")

	_ = viper.BindPFlag("format", rootCmd.PersistentFlags().Lookup("format"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigName(".herring")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("HERRING")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}

// setDefaults registers the default value of every config key.
func setDefaults() {
	viper.SetDefault("format", "text")
	viper.SetDefault("verbose", false)
	viper.SetDefault("log_level", "warn")
	viper.SetDefault("timestamp_formats", config.DefaultTimestampFormats)

	viper.SetDefault("cluster.threshold", 0.85)
	viper.SetDefault("cluster.placeholder", "-")
	viper.SetDefault("cluster.autojunk", true)

	viper.SetDefault("report.uncommon_frequency", 1)

	viper.SetDefault("redaction.enabled", true)
	viper.SetDefault("redaction.patterns", redact.DefaultPatterns())

	viper.SetDefault("llm.provider", "ollama")
	viper.SetDefault("llm.temperature", 0.0)
	viper.SetDefault("llm.max_tokens", 0)
	viper.SetDefault("llm.ollama.host", "")
	viper.SetDefault("llm.ollama.model", "llama3.2")
}

// loadConfig decodes the merged flag, env, file and default values.
func loadConfig() (*config.Config, error) {
	cfg := &config.Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}
