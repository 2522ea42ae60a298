package eeprog

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Supported device personalities.
const (
	DeviceMC24LC32 = "24LC32"
	DeviceZL30267  = "ZL30267"
)

// Profile describes how a device's EEPROM space is addressed on the wire:
// default slave address, offset width, usable address bits, page granularity
// and the write-cycle time to respect between page writes.
type Profile struct {
	Name        string        `yaml:"name"`
	DefaultAddr byte          `yaml:"default_address"`
	AddrWidth   int           `yaml:"address_width"`
	AddrBits    int           `yaml:"address_bits"`
	PageSize    int           `yaml:"page_size"`
	WriteCycle  time.Duration `yaml:"write_cycle"`
}

// Capacity returns the number of addressable bytes.
func (p Profile) Capacity() int {
	return 1 << p.AddrBits
}

var profiles = map[string]Profile{
	DeviceMC24LC32: {
		Name:        DeviceMC24LC32,
		DefaultAddr: 0x50,
		AddrWidth:   2,
		AddrBits:    12,
		PageSize:    32,
		WriteCycle:  10 * time.Millisecond,
	},
	DeviceZL30267: {
		Name:        DeviceZL30267,
		DefaultAddr: 0x74,
		AddrWidth:   2,
		AddrBits:    12,
		PageSize:    32,
		WriteCycle:  10 * time.Millisecond,
	},
}

// LookupProfile resolves a device name (case-insensitive) to its profile.
func LookupProfile(name string) (Profile, error) {
	for key, p := range profiles {
		if strings.EqualFold(key, name) {
			return p, nil
		}
	}
	return Profile{}, fmt.Errorf("unknown device %q, supported devices: %s", name, strings.Join(ProfileNames(), ", "))
}

// ProfileNames returns the supported device names in stable order.
func ProfileNames() []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Profiles returns all compiled-in profiles keyed by device name.
func Profiles() map[string]Profile {
	out := make(map[string]Profile, len(profiles))
	for name, p := range profiles {
		out[name] = p
	}
	return out
}
