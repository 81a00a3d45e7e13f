//go:build !linux

package ble

import (
	"fmt"

	"tinygo.org/x/bluetooth"
)

// parseAddress is unavailable where the adapter identifies peers by an
// opaque id; the device must be found by a scan first.
func parseAddress(s string) (bluetooth.Address, error) {
	return bluetooth.Address{}, fmt.Errorf("connecting to %q requires a successful scan on this platform", s)
}
