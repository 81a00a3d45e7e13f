//go:build linux

package ble

import (
	"fmt"

	"tinygo.org/x/bluetooth"
)

// parseAddress turns "AA:BB:CC:DD:EE:FF" into an adapter address so a
// connect can proceed without a prior scan.
func parseAddress(s string) (bluetooth.Address, error) {
	mac, err := bluetooth.ParseMAC(s)
	if err != nil {
		return bluetooth.Address{}, fmt.Errorf("invalid address %q: %w", s, err)
	}
	return bluetooth.Address{MACAddress: bluetooth.MACAddress{MAC: mac}}, nil
}
