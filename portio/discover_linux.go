//go:build linux

package portio

import (
	"fmt"

	"github.com/jochenvg/go-udev"
)

// SIVendorID and SIProductID identify the SPORTident USB master station's
// CP210x-based serial adapter (Silicon Labs VID 0x10C4, PID 0x800A).
const (
	SIVendorID  = "10c4"
	SIProductID = "800a"
)

// DiscoveredPort is one candidate serial device found by Discover.
type DiscoveredPort struct {
	DevicePath string
	VendorID   string
	ProductID  string
}

// Discover enumerates tty devices via udev and returns those matching the
// SPORTident master station's USB vendor/product IDs.
func Discover() ([]DiscoveredPort, error) {
	u := udev.Udev{}
	e := u.NewEnumerate()

	if err := e.AddMatchSubsystem("tty"); err != nil {
		return nil, fmt.Errorf("portio: udev match subsystem: %w", err)
	}

	devices, err := e.Devices()
	if err != nil {
		return nil, fmt.Errorf("portio: udev enumerate: %w", err)
	}

	var out []DiscoveredPort
	for _, d := range devices {
		node := d.Devnode()
		if node == "" {
			continue
		}

		vendor := d.PropertyValue("ID_VENDOR_ID")
		product := d.PropertyValue("ID_MODEL_ID")
		if vendor == "" || product == "" {
			if parent := d.ParentWithSubsystemDevtype("usb", "usb_device"); parent != nil {
				if vendor == "" {
					vendor = parent.PropertyValue("ID_VENDOR_ID")
				}
				if product == "" {
					product = parent.PropertyValue("ID_MODEL_ID")
				}
			}
		}

		if vendor != SIVendorID || product != SIProductID {
			continue
		}

		out = append(out, DiscoveredPort{DevicePath: node, VendorID: vendor, ProductID: product})
	}

	return out, nil
}
