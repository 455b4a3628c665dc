package main

import (
	"github.com/spf13/cobra"

	"github.com/meerk40t/galvoplotter/galvo"
)

var gridWait float64

var lightGridCmd = &cobra.Command{
	Use:   "light-grid",
	Short: "Trace a grid of lit points with the guide beam",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newController()
		if err != nil {
			return err
		}
		defer c.Shutdown()

		err = c.Lighting(func(c *galvo.Controller) error {
			for x := 0x1000; x < 0xFFFF; x += 0x1000 {
				for y := 0x1000; y < 0xFFFF; y += 0x1000 {
					if err := c.Dark(x, y); err != nil {
						return err
					}
					if c.LightOn() {
						if err := c.ListWritePort(); err != nil {
							return err
						}
					}
					if err := c.Wait(gridWait); err != nil {
						return err
					}
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
	lightGridCmd.Flags().Float64Var(&gridWait, "wait", 500, "dwell per grid point in ms")
	rootCmd.AddCommand(lightGridCmd)
}
