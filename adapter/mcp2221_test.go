package adapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBufferToStatus(t *testing.T) {
	frame := make([]byte, 64)
	frame[9] = 0x20
	frame[10] = 0x01
	frame[11] = 0x1E
	frame[12] = 0x00
	frame[13] = 7
	frame[14] = 120
	frame[15] = 32
	frame[16] = 0xA0
	frame[17] = 0x00
	frame[25] = 2

	status := bufferToStatus(frame)
	assert.Equal(t, uint16(0x0120), status.LastWriteRequestedSize)
	assert.Equal(t, uint16(0x001E), status.LastWriteSentSize)
	assert.Equal(t, 7, status.I2CDataBufferCounter)
	assert.Equal(t, 120, status.I2CSpeedDivider)
	assert.Equal(t, 32, status.I2CTimeout)
	assert.Equal(t, "a000", status.CurrentAddress)
	assert.Equal(t, 2, status.ReadPending)
	assert.False(t, status.LastTransferNACK)
}

func TestBufferToStatus_NACK(t *testing.T) {
	frame := make([]byte, 64)
	frame[20] = 0x40
	assert.True(t, bufferToStatus(frame).LastTransferNACK)

	// other bits of the line-state byte do not count as a NACK
	frame[20] = 0xBF
	assert.False(t, bufferToStatus(frame).LastTransferNACK)
}
