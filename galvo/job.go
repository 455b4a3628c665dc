package galvo

import "fmt"

// Generator-style jobs. A producer yields one Command per spooler
// invocation; the job reports done when the producer is exhausted. This
// keeps long or infinite command streams cooperative: the spooler can be
// shut down between any two commands.

// CommandKind selects the controller operation a Command performs.
type CommandKind int

const (
	CmdMark CommandKind = iota
	CmdGoto
	CmdLight
	CmdDark
	CmdDwell
	CmdWait
	CmdLightOn
	CmdLightOff
	CmdSetXY
	CmdWritePort
	CmdListWritePort
	CmdMarkingConfiguration
	CmdLightingConfiguration
	CmdInitialConfiguration
)

// Command is one tagged drawing operation. X/Y carry coordinates for the
// move kinds; Millis carries durations for Dwell and Wait.
type Command struct {
	Kind   CommandKind
	X, Y   int
	Millis float64
}

// Convenience constructors for the common command kinds.

func MarkCmd(x, y int) Command  { return Command{Kind: CmdMark, X: x, Y: y} }
func GotoCmd(x, y int) Command  { return Command{Kind: CmdGoto, X: x, Y: y} }
func LightCmd(x, y int) Command { return Command{Kind: CmdLight, X: x, Y: y} }
func DarkCmd(x, y int) Command  { return Command{Kind: CmdDark, X: x, Y: y} }
func DwellCmd(ms float64) Command {
	return Command{Kind: CmdDwell, Millis: ms}
}
func WaitCmd(ms float64) Command {
	return Command{Kind: CmdWait, Millis: ms}
}

// Apply dispatches the command against the controller.
func (cmd Command) Apply(c *Controller) error {
	switch cmd.Kind {
	case CmdMark:
		return c.Mark(cmd.X, cmd.Y)
	case CmdGoto:
		return c.Goto(cmd.X, cmd.Y)
	case CmdLight:
		return c.Light(cmd.X, cmd.Y)
	case CmdDark:
		return c.Dark(cmd.X, cmd.Y)
	case CmdDwell:
		return c.Dwell(cmd.Millis, true)
	case CmdWait:
		return c.Wait(cmd.Millis)
	case CmdLightOn:
		c.LightOn()
		return nil
	case CmdLightOff:
		c.LightOff()
		return nil
	case CmdSetXY:
		return c.SetXY(cmd.X, cmd.Y)
	case CmdWritePort:
		_, err := c.WritePort()
		return err
	case CmdListWritePort:
		return c.ListWritePort()
	case CmdMarkingConfiguration:
		return c.MarkingConfiguration()
	case CmdLightingConfiguration:
		return c.LightingConfiguration()
	case CmdInitialConfiguration:
		return c.InitialConfiguration()
	default:
		return fmt.Errorf("unknown command kind %d", cmd.Kind)
	}
}

// GenerateJob wraps a producer into a job. Each spooler invocation pulls
// one command; the job finishes when the producer reports exhaustion.
func GenerateJob(next func() (Command, bool)) *Job {
	return NewJob(func(c *Controller) (bool, error) {
		cmd, ok := next()
		if !ok {
			return true, nil
		}
		return false, cmd.Apply(c)
	})
}

// SliceJob runs a fixed command sequence, one command per invocation.
func SliceJob(commands []Command) *Job {
	i := 0
	return GenerateJob(func() (Command, bool) {
		if i >= len(commands) {
			return Command{}, false
		}
		cmd := commands[i]
		i++
		return cmd, true
	})
}
