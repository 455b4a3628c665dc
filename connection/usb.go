package connection

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/gousb"
	"github.com/sirupsen/logrus"

	"github.com/meerk40t/galvoplotter/protocol"
)

// LMC boards enumerate with a fixed vendor/product pair.
const (
	usbVendorID  = 0x9588
	usbProductID = 0x9899

	endpointOut = 0x02 // bulk out, commands and list packets
	endpointIn  = 0x08 // bulk in (address 0x88), 8-byte replies
)

// usbDevice bundles the gousb handles for one claimed board.
type usbDevice struct {
	device *gousb.Device
	cfg    *gousb.Config
	intf   *gousb.Interface
	epOut  *gousb.OutEndpoint
	epIn   *gousb.InEndpoint
}

// USB is the gousb-backed transport. One USB value can hold several boards
// open at distinct machine indexes.
type USB struct {
	mu       sync.Mutex
	ctx      *gousb.Context
	devices  map[int]*usbDevice
	log      *logrus.Entry
	shutdown bool
}

// NewUSB creates a USB transport. The context is created lazily on the
// first Open so that constructing a controller never touches libusb.
func NewUSB(log *logrus.Entry) *USB {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &USB{
		devices: make(map[int]*usbDevice),
		log:     log,
	}
}

// Open claims the index-th LMC board on the bus.
func (u *USB) Open(index int) (int, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.shutdown {
		return -1, ErrUnreachable
	}
	if _, ok := u.devices[index]; ok {
		return index, nil
	}
	if u.ctx == nil {
		u.ctx = gousb.NewContext()
	}

	devs, err := u.ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return desc.Vendor == usbVendorID && desc.Product == usbProductID
	})
	if err != nil && len(devs) == 0 {
		return -1, fmt.Errorf("usb enumeration failed: %w", err)
	}
	// Stable ordering so machine_index selects the same board every time.
	sort.Slice(devs, func(i, j int) bool {
		if devs[i].Desc.Bus != devs[j].Desc.Bus {
			return devs[i].Desc.Bus < devs[j].Desc.Bus
		}
		return devs[i].Desc.Address < devs[j].Desc.Address
	})
	if index >= len(devs) {
		for _, d := range devs {
			d.Close()
		}
		return -1, fmt.Errorf("no LMC device at machine index %d (%d found)", index, len(devs))
	}
	for i, d := range devs {
		if i != index {
			d.Close()
		}
	}
	dev := devs[index]

	claimed, err := u.claim(dev)
	if err != nil {
		dev.Close()
		return -1, err
	}
	u.devices[index] = claimed
	u.log.WithField("index", index).Info("usb device opened")
	return index, nil
}

func (u *USB) claim(dev *gousb.Device) (*usbDevice, error) {
	if err := dev.SetAutoDetach(true); err != nil {
		u.log.WithError(err).Debug("auto-detach not supported")
	}
	cfg, err := dev.Config(1)
	if err != nil {
		return nil, fmt.Errorf("usb config: %w", err)
	}
	intf, err := cfg.Interface(0, 0)
	if err != nil {
		cfg.Close()
		return nil, fmt.Errorf("usb interface: %w", err)
	}
	epOut, err := intf.OutEndpoint(endpointOut)
	if err != nil {
		intf.Close()
		cfg.Close()
		return nil, fmt.Errorf("usb out endpoint: %w", err)
	}
	epIn, err := intf.InEndpoint(endpointIn)
	if err != nil {
		intf.Close()
		cfg.Close()
		return nil, fmt.Errorf("usb in endpoint: %w", err)
	}
	return &usbDevice{device: dev, cfg: cfg, intf: intf, epOut: epOut, epIn: epIn}, nil
}

// Close releases the board at the given machine index.
func (u *USB) Close(index int) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	dev, ok := u.devices[index]
	if !ok {
		return nil
	}
	delete(u.devices, index)
	dev.intf.Close()
	dev.cfg.Close()
	err := dev.device.Close()
	u.log.WithField("index", index).Info("usb device closed")
	return err
}

// IsOpen reports whether the board at the given index is claimed.
func (u *USB) IsOpen(index int) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	_, ok := u.devices[index]
	return ok
}

// Write sends a command word or list packet to the board.
func (u *USB) Write(index int, data []byte) error {
	dev, err := u.handle(index)
	if err != nil {
		return err
	}
	n, err := dev.epOut.Write(data)
	if err != nil {
		return fmt.Errorf("usb write: %w", err)
	}
	if n != len(data) {
		return fmt.Errorf("usb short write: %d/%d bytes", n, len(data))
	}
	return nil
}

// Read returns the board's 8-byte reply.
func (u *USB) Read(index int) ([]byte, error) {
	dev, err := u.handle(index)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, protocol.ReplySize)
	n, err := dev.epIn.Read(buf)
	if err != nil {
		return nil, fmt.Errorf("usb read: %w", err)
	}
	return buf[:n], nil
}

// ReadPort issues a ReadPort command and returns the decoded reply. The
// input GPIO mask is at word 1.
func (u *USB) ReadPort(index int) ([4]uint16, error) {
	cmd := protocol.NewCommand(protocol.ReadPort)
	if err := u.Write(index, cmd.Bytes()); err != nil {
		return [4]uint16{}, err
	}
	raw, err := u.Read(index)
	if err != nil {
		return [4]uint16{}, err
	}
	return protocol.ParseReply(raw), nil
}

// IsShutdown reports whether Shutdown was called.
func (u *USB) IsShutdown() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.shutdown
}

// Shutdown closes every claimed board and the libusb context. The
// transport cannot be reused afterwards.
func (u *USB) Shutdown() {
	u.mu.Lock()
	devices := u.devices
	u.devices = make(map[int]*usbDevice)
	ctx := u.ctx
	u.ctx = nil
	u.shutdown = true
	u.mu.Unlock()

	for _, dev := range devices {
		dev.intf.Close()
		dev.cfg.Close()
		dev.device.Close()
	}
	if ctx != nil {
		ctx.Close()
	}
}

func (u *USB) handle(index int) (*usbDevice, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.shutdown {
		return nil, ErrUnreachable
	}
	dev, ok := u.devices[index]
	if !ok {
		return nil, fmt.Errorf("machine index %d: %w", index, ErrRefused)
	}
	return dev, nil
}
