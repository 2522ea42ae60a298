package zl30267

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockI2CBus is a mock implementation of eeprog.I2CBus using testify/mock
type MockI2CBus struct {
	mock.Mock
}

func (m *MockI2CBus) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	args := m.Called(ctx, address, buffer)
	return args.Error(0)
}

func (m *MockI2CBus) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	args := m.Called(ctx, address, buffer)
	if data, ok := args.Get(0).([]byte); ok && len(data) <= len(buffer) {
		copy(buffer, data)
	}
	return args.Error(1)
}

func (m *MockI2CBus) Release(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func TestUnlock_WireFormat(t *testing.T) {
	bus := new(MockI2CBus)
	dev := New(bus)
	bus.On("WriteToAddr", mock.Anything, byte(DefaultAddress), []byte{0x02, 0x00, 0x00, 0x80}).
		Return(nil).Once()

	err := dev.Unlock(context.Background())
	assert.NoError(t, err)
	bus.AssertExpectations(t)
}

func TestWritePage_WireFormat(t *testing.T) {
	bus := new(MockI2CBus)
	dev := New(bus)
	bus.On("WriteToAddr", mock.Anything, byte(DefaultAddress), []byte{0x06}).
		Return(nil).Once()
	bus.On("WriteToAddr", mock.Anything, byte(DefaultAddress), []byte{0x02, 0x00, 0x40, 0xAA, 0xBB}).
		Return(nil).Once()

	err := dev.WritePage(context.Background(), 0x0040, []byte{0xAA, 0xBB})
	assert.NoError(t, err)
	bus.AssertExpectations(t)

	// write latch must be armed before the page write goes out
	assert.Len(t, bus.Calls, 2)
	assert.Equal(t, []byte{0x06}, bus.Calls[0].Arguments.Get(2))
}

func TestWritePage_WriteEnableFails(t *testing.T) {
	bus := new(MockI2CBus)
	dev := New(bus)
	bus.On("WriteToAddr", mock.Anything, byte(DefaultAddress), []byte{0x06}).
		Return(errors.New("no ack")).Once()

	err := dev.WritePage(context.Background(), 0x0040, []byte{0xAA})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "zl30267: write enable failed: no ack")
	bus.AssertExpectations(t)
	assert.Len(t, bus.Calls, 1)
}

func TestWritePage_Validation(t *testing.T) {
	tests := []struct {
		name          string
		offset        uint16
		data          []byte
		expectedError string
	}{
		{
			name:          "offset out of range",
			offset:        0x1000,
			data:          []byte{0x01},
			expectedError: "zl30267: offset 0x1000 out of range",
		},
		{
			name:          "empty payload",
			offset:        0x0000,
			data:          nil,
			expectedError: "zl30267: invalid page write size 0",
		},
		{
			name:          "payload larger than a page",
			offset:        0x0000,
			data:          make([]byte, 40),
			expectedError: "zl30267: invalid page write size 40",
		},
		{
			name:          "burst crossing a page boundary",
			offset:        0x001E,
			data:          []byte{1, 2, 3, 4},
			expectedError: "zl30267: 4 bytes at 0x1e cross a page boundary",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus := new(MockI2CBus)
			dev := New(bus)
			err := dev.WritePage(context.Background(), tt.offset, tt.data)
			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectedError)
			bus.AssertNotCalled(t, "WriteToAddr", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestWriteAt_SplitsAtPageBoundary(t *testing.T) {
	bus := new(MockI2CBus)
	dev := New(bus)
	bus.On("WriteToAddr", mock.Anything, byte(DefaultAddress), []byte{0x06}).
		Return(nil).Twice()
	bus.On("WriteToAddr", mock.Anything, byte(DefaultAddress), []byte{0x02, 0x00, 0x1E, 0x01, 0x02}).
		Return(nil).Once()
	bus.On("WriteToAddr", mock.Anything, byte(DefaultAddress), []byte{0x02, 0x00, 0x20, 0x03, 0x04}).
		Return(nil).Once()

	err := dev.WriteAt(context.Background(), 0x001E, []byte{0x01, 0x02, 0x03, 0x04})
	assert.NoError(t, err)
	bus.AssertExpectations(t)

	// every burst is preceded by its own WREN
	assert.Len(t, bus.Calls, 4)
	assert.Equal(t, []byte{0x06}, bus.Calls[0].Arguments.Get(2))
	assert.Equal(t, []byte{0x06}, bus.Calls[2].Arguments.Get(2))
}

func TestWriteAt_CapacityCheck(t *testing.T) {
	bus := new(MockI2CBus)
	dev := New(bus)
	err := dev.WriteAt(context.Background(), 0x0FFE, []byte{1, 2, 3, 4})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds device capacity")
	bus.AssertNotCalled(t, "WriteToAddr", mock.Anything, mock.Anything, mock.Anything)
}

func TestRead_WireFormat(t *testing.T) {
	bus := new(MockI2CBus)
	dev := New(bus)
	bus.On("WriteToAddr", mock.Anything, byte(DefaultAddress), []byte{0x03, 0x01, 0x00}).
		Return(nil).Once()
	bus.On("ReadFromAddr", mock.Anything, byte(DefaultAddress), mock.Anything).
		Return([]byte{0xDE, 0xAD}, nil).Once()

	buf := make([]byte, 2)
	err := dev.Read(context.Background(), 0x0100, buf)
	assert.NoError(t, err)
	assert.Equal(t, []byte{0xDE, 0xAD}, buf)
	bus.AssertExpectations(t)
}

func TestRead_Errors(t *testing.T) {
	tests := []struct {
		name          string
		setupMock     func(*MockI2CBus)
		expectedError string
	}{
		{
			name: "read command fails",
			setupMock: func(bus *MockI2CBus) {
				bus.On("WriteToAddr", mock.Anything, byte(DefaultAddress), mock.Anything).
					Return(errors.New("no ack")).Once()
			},
			expectedError: "zl30267: read command at 0x100 failed: no ack",
		},
		{
			name: "data read fails",
			setupMock: func(bus *MockI2CBus) {
				bus.On("WriteToAddr", mock.Anything, byte(DefaultAddress), mock.Anything).
					Return(nil).Once()
				bus.On("ReadFromAddr", mock.Anything, byte(DefaultAddress), mock.Anything).
					Return(nil, errors.New("bus stuck")).Once()
			},
			expectedError: "zl30267: read at 0x100 failed: bus stuck",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus := new(MockI2CBus)
			dev := New(bus)
			tt.setupMock(bus)

			err := dev.Read(context.Background(), 0x0100, make([]byte, 2))
			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectedError)
			bus.AssertExpectations(t)
		})
	}
}

func TestWithAddress(t *testing.T) {
	bus := new(MockI2CBus)
	dev := New(bus, WithAddress(0x76))
	assert.Equal(t, byte(0x76), dev.Address())

	bus.On("WriteToAddr", mock.Anything, byte(0x76), []byte{0x02, 0x00, 0x00, 0x80}).
		Return(nil).Once()
	err := dev.Unlock(context.Background())
	assert.NoError(t, err)
	bus.AssertExpectations(t)
}

func TestGeometry(t *testing.T) {
	dev := New(new(MockI2CBus))
	assert.Equal(t, 32, dev.PageSize())
	assert.Equal(t, 4096, dev.Capacity())
}
