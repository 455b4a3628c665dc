package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Query the board's version, serial number and status flags",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newController()
		if err != nil {
			return err
		}
		defer c.Shutdown()

		serial, err := c.GetSerialNumber()
		if err != nil {
			return err
		}
		version, err := c.GetVersion()
		if err != nil {
			return err
		}
		fmt.Printf("serial:  %04X %04X %04X %04X\n", serial[0], serial[1], serial[2], serial[3])
		fmt.Printf("version: %04X %04X %04X %04X\n", version[0], version[1], version[2], version[3])
		fmt.Printf("busy:    %v\n", version.Busy())
		fmt.Printf("ready:   %v\n", version.Ready())
		state, detail := c.State()
		fmt.Printf("state:   %s (%s)\n", state, detail)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
