package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zjrosen/novic/internal/config"
	"github.com/zjrosen/novic/internal/log"
)

func init() {
	// Force lipgloss/termenv to query terminal background color BEFORE
	// any Bubble Tea program starts. This prevents the terminal's OSC 11
	// response from racing with Bubble Tea's input loop and appearing as
	// garbage text.
	//
	// See: https://github.com/charmbracelet/bubbletea/issues/1036
	_ = lipgloss.HasDarkBackground()
}

var (
	version   = "dev"
	cfgFile   string
	debugFlag bool
	cfg       config.Config
)

var rootCmd = &cobra.Command{
	Use:   "novic",
	Short: "Regex-driven syntax highlighting for the terminal",
	Long: `novic highlights source files with declarative regex language definitions.
It prints highlighted files, lists and checks definitions, and opens a pager
that re-highlights files as they change on disk.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: .novic/config.yaml, then ~/.config/novic/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&debugFlag, "debug", "d", false,
		"write debug logs (also NOVIC_DEBUG; file from NOVIC_LOG, default debug.log)")
	rootCmd.PersistentFlags().String("definitions", "",
		"directory with language definitions (overrides syntax.definitions_dir)")

	bindFlags()
}

func bindFlags() {
	_ = viper.BindPFlag("syntax.definitions_dir", rootCmd.PersistentFlags().Lookup("definitions"))
}

func setDefaults(v *viper.Viper, d config.Config) {
	v.SetDefault("syntax.definitions_dir", d.Syntax.DefinitionsDir)
	v.SetDefault("syntax.watch", d.Syntax.Watch)
	v.SetDefault("syntax.theme", d.Syntax.Theme)
	v.SetDefault("syntax.match_timeout", d.Syntax.MatchTimeout)
	v.SetDefault("highlight.debounce", d.Highlight.Debounce)
	v.SetDefault("highlight.retry", d.Highlight.Retry)
	v.SetDefault("highlight.max_document_size", d.Highlight.MaxDocumentSize)
	v.SetDefault("highlight.sample_size", d.Highlight.SampleSize)
	v.SetDefault("highlight.max_tokens", d.Highlight.MaxTokens)
	v.SetDefault("highlight.cache", d.Highlight.Cache)
	v.SetDefault("highlight.cache_ttl", d.Highlight.CacheTTL)
	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.exporter", d.Tracing.Exporter)
	v.SetDefault("tracing.file_path", d.Tracing.FilePath)
	v.SetDefault("tracing.otlp_endpoint", d.Tracing.OTLPEndpoint)
	v.SetDefault("tracing.sample_rate", d.Tracing.SampleRate)
	v.SetDefault("flags", d.Flags)
}

func initConfig() {
	setDefaults(viper.GetViper(), config.Defaults())

	viper.SetEnvPrefix("NOVIC")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Config lookup order:
		// 1. .novic/config.yaml (current directory)
		// 2. ~/.config/novic/config.yaml (user config)
		if _, err := os.Stat(".novic/config.yaml"); err == nil {
			viper.SetConfigFile(".novic/config.yaml")
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(filepath.Join(home, ".config", "novic"))
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "novic: reading config: %v\n", err)
		}
	}

	cfg = config.Defaults()
	if err := viper.Unmarshal(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "novic: decoding config: %v\n", err)
	}
	if cfg.Tracing.FilePath == "" {
		cfg.Tracing.FilePath = config.DefaultTracesFilePath()
	}
}

// configPath returns the file settings are saved to.
func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	if used := viper.ConfigFileUsed(); used != "" {
		return used
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".novic", "config.yaml")
	}
	return filepath.Join(home, ".config", "novic", "config.yaml")
}

// startLogging enables the debug log when requested. The pager passes tea so
// log output never touches the terminal Bubble Tea owns.
func startLogging(prefix string, tea bool) (func(), error) {
	debug := os.Getenv("NOVIC_DEBUG") != "" || debugFlag
	if !debug {
		return func() {}, nil
	}

	logPath := os.Getenv("NOVIC_LOG")
	if logPath == "" {
		logPath = "debug.log"
	}

	var (
		cleanup func()
		err     error
	)
	if tea {
		cleanup, err = log.InitWithTeaLog(logPath, prefix)
	} else {
		cleanup, err = log.Init(logPath)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing logging: %w", err)
	}
	if lvl := os.Getenv("NOVIC_LOG_LEVEL"); lvl != "" {
		log.SetMinLevel(log.ParseLevel(lvl))
	}
	log.Info(log.CatConfig, "novic starting", "command", prefix, "logPath", logPath, "config", viper.ConfigFileUsed())
	return cleanup, nil
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
