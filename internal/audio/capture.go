package audio

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gen2brain/malgo"
	"github.com/smallnest/ringbuffer"

	"github.com/voxwatch/voxwatch-go/internal/conf"
	"github.com/voxwatch/voxwatch-go/internal/errors"
	"github.com/voxwatch/voxwatch-go/internal/logging"
)

const (
	// pollInterval is how often NextFrame checks the ring buffer for a full
	// frame of PCM data.
	pollInterval = 10 * time.Millisecond

	// ringFrames is how many analysis frames the capture ring buffer holds
	// before the device callback starts overwriting old data.
	ringFrames = 8
)

// CaptureSource is a FrameSource backed by a live miniaudio capture device.
// The device callback writes s16 PCM into a ring buffer which NextFrame
// drains in fixed-size frames.
type CaptureSource struct {
	settings  *conf.Settings
	frameSize int // samples per frame

	malgoCtx *malgo.AllocatedContext
	device   *malgo.Device

	mu   sync.Mutex // guards ring
	ring *ringbuffer.RingBuffer

	deviceName string
	deviceID   string
	index      atomic.Uint64
	failed     atomic.Bool // set when the device stopped and restart failed
	closed     atomic.Bool
}

// NewCaptureSource opens the capture device selected by the settings and
// starts it. A missing or denied device surfaces as a fatal
// ErrDeviceUnavailable.
func NewCaptureSource(settings *conf.Settings) (*CaptureSource, error) {
	log := logging.ForService("audio-capture")

	malgoCtx, err := malgo.InitContext(platformBackend(), malgo.ContextConfig{}, func(message string) {
		if settings.Debug {
			log.Debug("miniaudio", "message", message)
		}
	})
	if err != nil {
		return nil, deviceUnavailable(fmt.Errorf("context init failed: %w", err), settings.Audio.Source)
	}

	infos, err := malgoCtx.Devices(malgo.Capture)
	if err != nil {
		_ = malgoCtx.Uninit()
		return nil, deviceUnavailable(fmt.Errorf("device enumeration failed: %w", err), settings.Audio.Source)
	}

	var selected *malgo.DeviceInfo
	for i := range infos {
		decodedID, err := hexToASCII(infos[i].ID.String())
		if err != nil {
			continue
		}
		if matchesDeviceSettings(decodedID, infos[i], settings.Audio.Source) {
			selected = &infos[i]
			break
		}
	}
	if selected == nil {
		_ = malgoCtx.Uninit()
		return nil, deviceUnavailable(
			fmt.Errorf("no capture source matches %q", settings.Audio.Source), settings.Audio.Source)
	}

	decodedID, _ := hexToASCII(selected.ID.String())
	frameSize := settings.WindowSamples()

	cs := &CaptureSource{
		settings:   settings,
		frameSize:  frameSize,
		malgoCtx:   malgoCtx,
		ring:       ringbuffer.New(frameSize * (conf.BitDepth / 8) * ringFrames),
		deviceName: selected.Name(),
		deviceID:   decodedID,
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = conf.NumChannels
	deviceConfig.SampleRate = conf.SampleRate
	deviceConfig.Alsa.NoMMap = 1
	deviceConfig.Capture.DeviceID = selected.ID.Pointer()

	deviceCallbacks := malgo.DeviceCallbacks{
		Data: cs.onReceiveFrames,
		Stop: cs.onStopDevice,
	}

	device, err := malgo.InitDevice(malgoCtx.Context, deviceConfig, deviceCallbacks)
	if err != nil {
		_ = malgoCtx.Uninit()
		return nil, deviceUnavailable(fmt.Errorf("device init failed: %w", err), settings.Audio.Source)
	}
	cs.device = device

	if err := device.Start(); err != nil {
		device.Uninit()
		_ = malgoCtx.Uninit()
		return nil, deviceUnavailable(fmt.Errorf("device start failed: %w", err), settings.Audio.Source)
	}

	log.Info("listening on capture source",
		"device", cs.deviceName,
		"id", cs.deviceID,
		"rate", conf.SampleRate,
		"frame_samples", frameSize)

	return cs, nil
}

// Name returns the selected device's human-readable name.
func (cs *CaptureSource) Name() string { return cs.deviceName }

// onReceiveFrames is the miniaudio data callback. It appends the raw PCM to
// the ring buffer, discarding the oldest data when the ring is full so the
// device callback never blocks.
func (cs *CaptureSource) onReceiveFrames(_, pSamples []byte, _ uint32) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if cs.ring.Free() < len(pSamples) {
		// Overrun: skip ahead by discarding the oldest bytes.
		discard := make([]byte, len(pSamples)-cs.ring.Free())
		_, _ = cs.ring.Read(discard)
	}
	_, _ = cs.ring.Write(pSamples)
}

// onStopDevice is called when the device stops, either normally or
// unexpectedly. One restart is attempted before the source is marked failed.
func (cs *CaptureSource) onStopDevice() {
	if cs.closed.Load() {
		return
	}
	go func() {
		time.Sleep(100 * time.Millisecond)
		if cs.closed.Load() {
			return
		}
		if err := cs.device.Start(); err != nil {
			logging.ForService("audio-capture").Error("failed to restart capture device",
				"device", cs.deviceName, "error", err)
			cs.failed.Store(true)
		}
	}()
}

// NextFrame blocks until a full frame of samples is available, the capture
// timeout elapses, or ctx is done.
func (cs *CaptureSource) NextFrame(ctx context.Context) (*Frame, error) {
	frameBytes := cs.frameSize * (conf.BitDepth / 8)
	timeout := time.Duration(cs.settings.Audio.CaptureTimeout * float64(time.Second))
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		cs.mu.Lock()
		if cs.ring.Length() >= frameBytes {
			buf := make([]byte, frameBytes)
			_, err := cs.ring.Read(buf)
			cs.mu.Unlock()
			if err != nil {
				return nil, errors.New(fmt.Errorf("ring buffer read failed: %w", err)).
					Component("audio").
					Category(errors.CategoryAudioSource).
					Build()
			}
			return &Frame{
				Samples:   S16LEToFloat32(buf),
				Rate:      conf.SampleRate,
				Index:     cs.index.Add(1) - 1,
				Timestamp: time.Now(),
				Source:    cs.deviceName,
			}, nil
		}
		cs.mu.Unlock()

		if cs.failed.Load() {
			return nil, deviceUnavailable(
				fmt.Errorf("capture device %q stopped and could not be restarted", cs.deviceName),
				cs.deviceID)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return nil, errors.Newf("timed out waiting %s for a full frame from %q", timeout, cs.deviceName).
				Component("audio").
				Category(errors.CategoryTimeout).
				Build()
		case <-ticker.C:
		}
	}
}

// Close stops the device and releases the miniaudio context.
func (cs *CaptureSource) Close() error {
	if cs.closed.Swap(true) {
		return nil
	}
	if cs.device != nil {
		_ = cs.device.Stop()
		cs.device.Uninit()
	}
	if cs.malgoCtx != nil {
		return cs.malgoCtx.Uninit()
	}
	return nil
}

func deviceUnavailable(err error, source string) error {
	return errors.New(fmt.Errorf("%w: %w", errors.ErrDeviceUnavailable, err)).
		Component("audio").
		Category(errors.CategoryAudioSource).
		Context("source", source).
		Build()
}
