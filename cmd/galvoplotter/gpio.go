package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var gpioCmd = &cobra.Command{
	Use:   "gpio <bit> [on|off]",
	Short: "Set an output GPIO bit (no state given: on, as the port mask starts clear)",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		bit, err := strconv.Atoi(args[0])
		if err != nil || bit < 0 || bit > 15 {
			return fmt.Errorf("bit must be 0..15, got %q", args[0])
		}
		c, err := newController()
		if err != nil {
			return err
		}
		defer c.Shutdown()

		var on bool
		switch {
		case len(args) == 1:
			on = !c.IsPort(bit)
		case args[1] == "on":
			on = true
		case args[1] == "off":
			on = false
		default:
			return fmt.Errorf("state must be on or off, got %q", args[1])
		}
		if on {
			c.PortOn(bit)
		} else {
			c.PortOff(bit)
		}
		if _, err := c.WritePort(); err != nil {
			return err
		}
		fmt.Printf("port %d %s (mask 0x%04X)\n", bit, map[bool]string{true: "on", false: "off"}[on], c.PortBits())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(gpioCmd)
}
