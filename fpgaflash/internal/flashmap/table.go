// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package flashmap

// ManifestLocation is one entry of the manifest address table.
type ManifestLocation struct {
	Slot Slot
	Addr uint32
}

// ManifestAddresses returns the locations of all manifest blocks: the
// bootloader one first, then the user slots in ascending order.
func (g *Geometry) ManifestAddresses() []ManifestLocation {
	locs := make([]ManifestLocation, 0, g.NumManifests())
	locs = append(locs, ManifestLocation{Bootloader, g.BootloaderManifestAddr})
	for i := range g.SlotBase {
		s := Slot(i)
		locs = append(locs, ManifestLocation{s, g.ManifestAddr(s)})
	}
	return locs
}
