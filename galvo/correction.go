package galvo

import (
	"github.com/meerk40t/galvoplotter/cor"
)

// Correction table upload. The board is told whether a table follows,
// then receives one WriteCorLine per cell in row-major order. With no
// usable file the blank announcement alone is sent.

// writeCorrectionFile uploads the configured correction file, falling
// back to a blank table when the file is missing or unreadable.
func (c *Controller) writeCorrectionFile(path string) error {
	if path == "" {
		return c.writeBlankCorrectionTable()
	}
	table, err := cor.ReadFile(path)
	if err != nil {
		c.log.WithError(err).Warn("correction file unreadable, sending blank table")
		return c.writeBlankCorrectionTable()
	}
	return c.WriteCorrectionTable(table)
}

// WriteCorrectionTable uploads a decoded 65×65 correction grid.
func (c *Controller) WriteCorrectionTable(table cor.Table) error {
	if len(table) != cor.GridSize*cor.GridSize {
		return c.writeBlankCorrectionTable()
	}
	if _, err := c.WriteCorTableFlag(true); err != nil {
		return err
	}
	for i, entry := range table {
		nonFirst := uint16(1)
		if i == 0 {
			nonFirst = 0
		}
		if err := c.WriteCorLineEntry(entry.DX, entry.DY, nonFirst); err != nil {
			return err
		}
	}
	return nil
}

func (c *Controller) writeBlankCorrectionTable() error {
	_, err := c.WriteCorTableFlag(false)
	return err
}
