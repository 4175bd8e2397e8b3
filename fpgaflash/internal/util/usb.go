// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package util

import (
	"errors"
	"strconv"
	"strings"

	usb "github.com/google/gousb"
)

// ParseBusAddr parses the BUS:ADDR USB device address. It returns -1, -1 if
// busAddr is malformed.
func ParseBusAddr(busAddr string) (int, int) {
	bus, addr, ok := strings.Cut(busAddr, ":")
	if !ok {
		return -1, -1
	}
	b, err := strconv.ParseUint(bus, 10, 8)
	if err != nil {
		return -1, -1
	}
	a, err := strconv.ParseUint(addr, 10, 8)
	if err != nil {
		return -1, -1
	}
	return int(b), int(a)
}

// USBDevices is a set of opened USB devices with their libusb context.
type USBDevices struct {
	ctx  *usb.Context
	Devs []*usb.Device
}

// Close closes the devices and the context.
func (d *USBDevices) Close() {
	for _, dev := range d.Devs {
		dev.Close()
	}
	d.Devs = nil
	if d.ctx != nil {
		d.ctx.Close()
		d.ctx = nil
	}
}

// OpenUSB opens the USB devices with the given vendor and product IDs. An
// empty busAddr selects all of them, otherwise only the one at BUS:ADDR.
// Nothing stays open on error.
func OpenUSB(vendor, product usb.ID, busAddr string) (*USBDevices, error) {
	bus, addr := ParseBusAddr(busAddr)
	if busAddr != "" && bus < 0 {
		return nil, errors.New("bad USB device address: " + busAddr)
	}
	d := &USBDevices{ctx: usb.NewContext()}
	var err error
	d.Devs, err = d.ctx.OpenDevices(func(desc *usb.DeviceDesc) bool {
		if bus >= 0 && (desc.Bus != bus || desc.Address != addr) {
			return false
		}
		return desc.Vendor == vendor && desc.Product == product
	})
	if err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}
