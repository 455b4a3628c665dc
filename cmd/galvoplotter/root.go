package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/meerk40t/galvoplotter/galvo"
)

var (
	flagSettings string
	flagMock     bool
	flagIndex    int
	flagVerbose  bool
)

var rootCmd = &cobra.Command{
	Use:   "galvoplotter",
	Short: "Drive an LMC galvo laser marking controller over USB",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		if flagVerbose {
			logrus.SetLevel(logrus.DebugLevel)
		}
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagSettings, "settings", "s", "", "JSON settings file merged over defaults")
	rootCmd.PersistentFlags().BoolVar(&flagMock, "mock", false, "use the in-memory mock transport instead of USB")
	rootCmd.PersistentFlags().IntVar(&flagIndex, "index", 0, "machine index of the board to drive")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
}

// newController builds a controller from the CLI flags and settings file.
func newController() (*galvo.Controller, error) {
	cfg, err := galvo.LoadConfig(flagSettings)
	if err != nil {
		return nil, err
	}
	if flagMock {
		cfg.Mock = true
	}
	if flagIndex != 0 {
		cfg.MachineIndex = flagIndex
	}
	return galvo.NewController(cfg), nil
}
