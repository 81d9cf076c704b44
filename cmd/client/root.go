package main

import (
	"os"

	"github.com/dkeye/Captions/internal/config"
	"github.com/dkeye/Captions/internal/ui"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	v          = viper.New()
	configFile string
	cfg        *config.ClientConfig
	console    = ui.NewConsole(os.Stdout)
)

var rootCmd = &cobra.Command{
	Use:   "captions",
	Short: "Peer-to-peer live captions over WebRTC",
	Long: `captions joins a room on a signaling server, connects to every other
member over WebRTC and exchanges caption text on a data channel.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configFile != "" {
			v.SetConfigFile(configFile)
		}
		var err error
		cfg, err = config.LoadClient(v)
		if err != nil {
			return err
		}
		setupLogging(cfg.LogLevel)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "client config file")
	config.RegisterClientFlags(rootCmd.PersistentFlags())
	cobra.CheckErr(config.BindClientFlags(v, rootCmd.PersistentFlags()))

	rootCmd.AddCommand(joinCmd, roomsCmd)
}

func setupLogging(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		console.Errorf("%v", err)
		os.Exit(1)
	}
}
