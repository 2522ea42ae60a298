package eeprog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLookupProfile(t *testing.T) {
	tests := []struct {
		name          string
		device        string
		expectedAddr  byte
		expectedError string
	}{
		{
			name:         "24LC32 exact",
			device:       "24LC32",
			expectedAddr: 0x50,
		},
		{
			name:         "ZL30267 exact",
			device:       "ZL30267",
			expectedAddr: 0x74,
		},
		{
			name:         "case insensitive",
			device:       "zl30267",
			expectedAddr: 0x74,
		},
		{
			name:          "unknown device",
			device:        "AT24C256",
			expectedError: `unknown device "AT24C256"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := LookupProfile(tt.device)
			if tt.expectedError != "" {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expectedAddr, p.DefaultAddr)
			assert.Equal(t, 2, p.AddrWidth)
			assert.Equal(t, 32, p.PageSize)
		})
	}
}

func TestProfileCapacity(t *testing.T) {
	for _, name := range ProfileNames() {
		p, err := LookupProfile(name)
		assert.NoError(t, err)
		assert.Equal(t, 4096, p.Capacity())
	}
}

func TestProfileNamesStable(t *testing.T) {
	assert.Equal(t, []string{"24LC32", "ZL30267"}, ProfileNames())
	assert.Equal(t, ProfileNames(), ProfileNames())
}
