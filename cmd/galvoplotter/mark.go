package main

import (
	"github.com/spf13/cobra"

	"github.com/meerk40t/galvoplotter/galvo"
)

var markSquareCmd = &cobra.Command{
	Use:   "mark-square",
	Short: "Mark a centered square",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newController()
		if err != nil {
			return err
		}
		defer c.Shutdown()

		err = c.Marking(func(c *galvo.Controller) error {
			if err := c.Goto(0x5000, 0x5000); err != nil {
				return err
			}
			corners := [][2]int{
				{0x5000, 0xA000},
				{0xA000, 0xA000},
				{0xA000, 0x5000},
				{0x5000, 0x5000},
			}
			for _, p := range corners {
				if err := c.Mark(p[0], p[1]); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
		return c.WaitForMachineIdle()
	},
}

func init() {
	rootCmd.AddCommand(markSquareCmd)
}
