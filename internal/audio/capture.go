// internal/audio/capture.go
// Package audio captures signed 16-bit mono PCM from a sound card.
package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/gen2brain/malgo"
)

var (
	ErrNotInitialized = errors.New("audio capture not initialized")
	ErrAlreadyRunning = errors.New("audio capture already running")
	ErrNotRunning     = errors.New("audio capture not running")
	ErrClosed         = errors.New("audio capture closed")
	ErrDeviceIndex    = errors.New("device index out of range")
)

// samplesChannelSize is the number of chunks buffered for a slow consumer
const samplesChannelSize = 64

// Config holds audio capture configuration
type Config struct {
	DeviceIndex int    // -1 for default device (from config: device_index)
	SampleRate  uint32 // must match the detector, e.g. 8000 (from config: sample_rate)
	BufferSize  uint32 // frames per callback (from config: buffer_size)
}

// DefaultConfig returns the capture settings for 8 kHz telephone audio
func DefaultConfig() Config {
	return Config{
		DeviceIndex: -1,
		SampleRate:  8000,
		BufferSize:  256,
	}
}

// SampleCallback is called directly from the audio thread with new samples.
// The slice is only valid for the duration of the call. Must be non-blocking
// and fast.
type SampleCallback func(samples []int16)

// Device describes a capture device.
type Device struct {
	Index     int
	Name      string
	IsDefault bool
}

// Capture handles real-time sampling from an audio input device
type Capture struct {
	config Config
	ctx    *malgo.AllocatedContext
	device *malgo.Device
	mu     sync.Mutex

	running   atomic.Bool
	closed    atomic.Bool
	closeOnce sync.Once
	// sendMu orders sends on Samples against closing it
	sendMu sync.RWMutex

	callbackPtr atomic.Pointer[SampleCallback]
	dropped     atomic.Uint64

	// Output channel for captured chunks. Each chunk is an independent copy.
	// Closed by Close.
	Samples chan []int16
}

// New creates a new audio capture instance
func New(cfg Config) *Capture {
	return &Capture{
		config:  cfg,
		Samples: make(chan []int16, samplesChannelSize),
	}
}

// Config returns the capture configuration
func (c *Capture) Config() Config {
	return c.config
}

// SetCallback sets a callback for real-time sample processing.
// The callback is invoked directly from the audio thread.
func (c *Capture) SetCallback(cb SampleCallback) {
	if cb == nil {
		c.callbackPtr.Store(nil)
	} else {
		c.callbackPtr.Store(&cb)
	}
}

// Init initializes the audio backend
func (c *Capture) Init() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return ErrClosed
	}
	if c.ctx != nil {
		return nil
	}

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("init audio context: %w", err)
	}
	c.ctx = ctx

	return nil
}

// ListDevices returns the available capture devices
func (c *Capture) ListDevices() ([]Device, error) {
	infos, err := c.deviceInfos()
	if err != nil {
		return nil, err
	}

	devices := make([]Device, len(infos))
	for i, info := range infos {
		devices[i] = Device{
			Index:     i,
			Name:      info.Name(),
			IsDefault: info.IsDefault != 0,
		}
	}
	return devices, nil
}

func (c *Capture) deviceInfos() ([]malgo.DeviceInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ctx == nil {
		return nil, ErrNotInitialized
	}

	infos, err := c.ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("enumerate devices: %w", err)
	}
	return infos, nil
}

// Start begins audio capture. Capture stops when ctx is cancelled.
func (c *Capture) Start(ctx context.Context) error {
	if c.running.Load() {
		return ErrAlreadyRunning
	}
	if c.closed.Load() {
		return ErrClosed
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.SampleRate = c.config.SampleRate
	deviceConfig.PeriodSizeInFrames = c.config.BufferSize
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = 1

	if c.config.DeviceIndex >= 0 {
		infos, err := c.deviceInfos()
		if err != nil {
			return err
		}
		if c.config.DeviceIndex >= len(infos) {
			return fmt.Errorf("%w: %d (have %d devices)",
				ErrDeviceIndex, c.config.DeviceIndex, len(infos))
		}
		deviceConfig.Capture.DeviceID = infos[c.config.DeviceIndex].ID.Pointer()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ctx == nil {
		return ErrNotInitialized
	}
	if c.running.Load() {
		return ErrAlreadyRunning
	}

	callbacks := malgo.DeviceCallbacks{
		Data: c.onRecvFrames,
	}

	device, err := malgo.InitDevice(c.ctx.Context, deviceConfig, callbacks)
	if err != nil {
		return fmt.Errorf("init device: %w", err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		return fmt.Errorf("start device: %w", err)
	}

	c.device = device
	c.running.Store(true)

	go func() {
		<-ctx.Done()
		_ = c.Stop()
	}()

	return nil
}

// onRecvFrames runs on the audio thread
func (c *Capture) onRecvFrames(_, inputSamples []byte, _ uint32) {
	samples := bytesAsInt16(inputSamples)
	if len(samples) == 0 {
		return
	}

	if cbPtr := c.callbackPtr.Load(); cbPtr != nil {
		(*cbPtr)(samples)
	}

	c.sendMu.RLock()
	defer c.sendMu.RUnlock()
	if !c.closed.Load() {
		c.safeSend(copyInt16Slice(samples))
	}
}

// safeSend queues a chunk without blocking. A full channel drops the chunk;
// a send racing with Close is recovered.
func (c *Capture) safeSend(samples []int16) {
	defer func() {
		_ = recover()
	}()

	select {
	case c.Samples <- samples:
	default:
		c.dropped.Add(1)
	}
}

// Dropped returns the number of chunks discarded because the consumer was slow
func (c *Capture) Dropped() uint64 {
	return c.dropped.Load()
}

// Stop stops audio capture
func (c *Capture) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running.Load() {
		return ErrNotRunning
	}
	c.stopDevice()
	return nil
}

// stopDevice must be called with mu held
func (c *Capture) stopDevice() {
	if c.device != nil {
		_ = c.device.Stop()
		c.device.Uninit()
		c.device = nil
	}
	c.running.Store(false)
}

// Close releases all audio resources and closes Samples. It is safe to call
// more than once.
func (c *Capture) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sendMu.Lock()
	c.closed.Store(true)
	c.sendMu.Unlock()

	if c.running.Load() {
		c.stopDevice()
	}

	var err error
	if c.ctx != nil {
		if uerr := c.ctx.Uninit(); uerr != nil {
			err = fmt.Errorf("uninit context: %w", uerr)
		}
		c.ctx.Free()
		c.ctx = nil
	}

	c.closeOnce.Do(func() {
		close(c.Samples)
	})
	return err
}

// IsRunning returns true if capture is active
func (c *Capture) IsRunning() bool {
	return c.running.Load()
}

// bytesAsInt16 reinterprets little-endian S16 bytes as samples without
// copying. A trailing odd byte is ignored. Misaligned input is decoded into
// a new slice instead.
func bytesAsInt16(data []byte) []int16 {
	if len(data) < 2 {
		return nil
	}
	if uintptr(unsafe.Pointer(&data[0]))%2 != 0 {
		return bytesToInt16(data)
	}
	return unsafe.Slice((*int16)(unsafe.Pointer(&data[0])), len(data)/2)
}

// bytesToInt16 decodes little-endian S16 bytes into a new slice
func bytesToInt16(data []byte) []int16 {
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(uint16(data[2*i]) | uint16(data[2*i+1])<<8)
	}
	return samples
}

func copyInt16Slice(src []int16) []int16 {
	if src == nil {
		return nil
	}
	dst := make([]int16, len(src))
	copy(dst, src)
	return dst
}
