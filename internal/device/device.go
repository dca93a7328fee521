// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package device acquires the GPU device and queue the renderer runs on.
//
// A device is either opened by the program through a hal backend (headless
// mode) or borrowed from a window host that already owns one (shared mode).
// Borrowed devices are never destroyed here.
package device

import (
	"errors"
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu"
	"github.com/gogpu/wgpu/hal"

	// Register the Vulkan backend with hal.
	_ "github.com/gogpu/wgpu/hal/vulkan"
)

// Errors returned by the device package.
var (
	// ErrNoBackend is returned when the hal backend is not registered.
	ErrNoBackend = errors.New("device: no GPU backend available")

	// ErrNoAdapter is returned when the instance exposes no adapters.
	ErrNoAdapter = errors.New("device: no GPU adapter found")

	// ErrProviderNotHAL is returned when a device provider does not expose
	// hal.Device and hal.Queue.
	ErrProviderNotHAL = errors.New("device: provider does not expose HAL types")

	// ErrFormatUnsupported is returned when no usable surface format exists.
	ErrFormatUnsupported = errors.New("device: surface format unsupported")
)

// Backend creates hal instances. hal.Backend implementations and the noop
// API satisfy it.
type Backend interface {
	CreateInstance(desc *hal.InstanceDescriptor) (hal.Instance, error)
}

// DefaultBackend returns the registered Vulkan backend.
func DefaultBackend() (Backend, error) {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, fmt.Errorf("%w: vulkan", ErrNoBackend)
	}
	return backend, nil
}

// Options configures Acquire.
type Options struct {
	// Label is used in log output.
	Label string
}

// Info describes the selected adapter.
type Info struct {
	// Name is the GPU name (e.g., "NVIDIA GeForce RTX 3080").
	Name string
	// Vendor is the GPU vendor.
	Vendor string
	// DeviceType is the type of GPU (discrete, integrated, etc.).
	DeviceType gputypes.DeviceType
	// Backend is the graphics API in use.
	Backend gputypes.Backend
	// Driver is the driver version string.
	Driver string
}

// String returns a human-readable description of the GPU.
func (i Info) String() string {
	if i.Name == "" {
		return "shared device"
	}
	return fmt.Sprintf("%s (%s, %s)", i.Name, i.DeviceType, i.Backend)
}

// Device is an open logical device and its queue.
type Device struct {
	Device hal.Device
	Queue  hal.Queue
	Info   Info

	instance hal.Instance
	owned    bool
}

// Acquire creates an instance from backend, selects an adapter and opens one
// logical device with default limits. It fails immediately with ErrNoAdapter
// when no adapter is exposed.
func Acquire(backend Backend, opts Options) (*Device, error) {
	if backend == nil {
		return nil, ErrNoBackend
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("device: create instance: %w", err)
	}

	selected, err := selectAdapter(instance.EnumerateAdapters(nil))
	if err != nil {
		instance.Destroy()
		return nil, err
	}

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("device: open %q: %w", selected.Info.Name, err)
	}

	d := &Device{
		Device:   openDev.Device,
		Queue:    openDev.Queue,
		Info:     infoFrom(selected.Info),
		instance: instance,
		owned:    true,
	}
	slogger().Info("device acquired", "label", opts.Label, "gpu", d.Info.String())
	if d.Info.Driver != "" {
		slogger().Debug("device driver", "driver", d.Info.Driver)
	}
	return d, nil
}

// selectAdapter prefers a discrete GPU, then an integrated one, then the
// first adapter listed.
func selectAdapter(adapters []hal.ExposedAdapter) (*hal.ExposedAdapter, error) {
	if len(adapters) == 0 {
		return nil, ErrNoAdapter
	}
	for _, want := range []gputypes.DeviceType{gputypes.DeviceTypeDiscreteGPU, gputypes.DeviceTypeIntegratedGPU} {
		for i := range adapters {
			if adapters[i].Info.DeviceType == want {
				return &adapters[i], nil
			}
		}
	}
	return &adapters[0], nil
}

func infoFrom(a gputypes.AdapterInfo) Info {
	return Info{
		Name:       a.Name,
		Vendor:     a.Vendor,
		DeviceType: a.DeviceType,
		Backend:    a.Backend,
		Driver:     a.Driver,
	}
}

// FromProvider borrows the device and queue of a window host.
//
// A gogpu window returns its *wgpu.Device from provider.Device(); the HAL
// handles are taken from there. Providers that instead implement
// HalDevice() any and HalQueue() any directly are accepted as well.
func FromProvider(provider gpucontext.DeviceProvider) (*Device, error) {
	if provider == nil {
		return nil, ErrProviderNotHAL
	}
	if wd, ok := provider.Device().(*wgpu.Device); ok && wd != nil {
		return borrow(wd.HalDevice(), wd.HalQueue())
	}

	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrProviderNotHAL
	}
	device, _ := hp.HalDevice().(hal.Device)
	queue, _ := hp.HalQueue().(hal.Queue)
	return borrow(device, queue)
}

func borrow(device hal.Device, queue hal.Queue) (*Device, error) {
	if device == nil {
		return nil, fmt.Errorf("%w: no hal.Device", ErrProviderNotHAL)
	}
	if queue == nil {
		return nil, fmt.Errorf("%w: no hal.Queue", ErrProviderNotHAL)
	}
	slogger().Info("device borrowed from host")
	return &Device{Device: device, Queue: queue}, nil
}

// Owned reports whether Close destroys the device.
func (d *Device) Owned() bool { return d.owned }

// Close destroys an owned device and its instance. Borrowed devices are only
// released. Close is safe to call more than once.
func (d *Device) Close() {
	if d == nil {
		return
	}
	if d.owned {
		if d.Device != nil {
			d.Device.Destroy()
		}
		if d.instance != nil {
			d.instance.Destroy()
		}
	}
	d.Device = nil
	d.Queue = nil
	d.instance = nil
	d.owned = false
}

// NegotiateFormat returns the color format for the presentation target.
// The surface's preferred format is used as is; Undefined means the surface
// reported nothing usable.
func NegotiateFormat(preferred gputypes.TextureFormat) (gputypes.TextureFormat, error) {
	if preferred == gputypes.TextureFormatUndefined {
		return preferred, ErrFormatUnsupported
	}
	slogger().Debug("surface format negotiated", "format", preferred)
	return preferred, nil
}
