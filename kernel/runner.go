package kernel

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/implicit/internal/cascade"
)

// ErrNoDevice is returned by OpenDevice when no GPU adapter is available.
var ErrNoDevice = errors.New("kernel: no GPU adapter")

// fenceTimeout bounds the wait for one dispatch.
const fenceTimeout = 10 * time.Second

// Device is an opened GPU device and its queue.
type Device struct {
	instance hal.Instance

	Device hal.Device
	Queue  hal.Queue

	// Name is the adapter name reported by the driver.
	Name string
}

// Close destroys the device and the instance it was opened from.
func (d *Device) Close() {
	if d.Device != nil {
		d.Device.Destroy()
		d.Device = nil
	}
	if d.instance != nil {
		d.instance.Destroy()
		d.instance = nil
	}
	d.Queue = nil
}

// Runner dispatches a compiled kernel on a device and reads the heights
// back. A Runner is not safe for concurrent use.
type Runner struct {
	dev    *Device
	kernel *Kernel

	shader     hal.ShaderModule
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipeline   hal.ComputePipeline
}

// NewRunner creates the compute pipeline for k on dev.
func NewRunner(dev *Device, k *Kernel) (*Runner, error) {
	r := &Runner{dev: dev, kernel: k}
	if err := r.createPipeline(); err != nil {
		r.Destroy()
		return nil, err
	}
	return r, nil
}

func (r *Runner) createPipeline() error {
	d := r.dev.Device
	shader, err := d.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "implicit_kernel",
		Source: hal.ShaderSource{SPIRV: r.kernel.SPIRV},
	})
	if err != nil {
		return fmt.Errorf("kernel: create shader module: %w", err)
	}
	r.shader = shader

	bindLayout, err := d.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "implicit_kernel_bind_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{Binding: 0, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform, MinBindingSize: UniformSize}},
			{Binding: 1, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage}},
		},
	})
	if err != nil {
		return fmt.Errorf("kernel: create bind group layout: %w", err)
	}
	r.bindLayout = bindLayout

	pipeLayout, err := d.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label: "implicit_kernel_pipe_layout", BindGroupLayouts: []hal.BindGroupLayout{r.bindLayout},
	})
	if err != nil {
		return fmt.Errorf("kernel: create pipeline layout: %w", err)
	}
	r.pipeLayout = pipeLayout

	pipeline, err := d.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label: "implicit_kernel_pipeline", Layout: r.pipeLayout,
		Compute: hal.ComputeState{Module: r.shader, EntryPoint: "main"},
	})
	if err != nil {
		return fmt.Errorf("kernel: create compute pipeline: %w", err)
	}
	r.pipeline = pipeline
	return nil
}

// Run renders a size×size height image under v on the GPU and returns it
// in row-major order.
func (r *Runner) Run(size uint32, v cascade.View) ([]uint32, error) {
	if size == 0 {
		return nil, fmt.Errorf("kernel: run: size is zero")
	}
	d, q := r.dev.Device, r.dev.Queue
	heightBytes := uint64(size) * uint64(size) * 4

	params, err := d.CreateBuffer(&hal.BufferDescriptor{
		Label: "implicit_params", Size: UniformSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("kernel: create uniform buffer: %w", err)
	}
	defer d.DestroyBuffer(params)

	heights, err := d.CreateBuffer(&hal.BufferDescriptor{
		Label: "implicit_heights", Size: heightBytes,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc,
	})
	if err != nil {
		return nil, fmt.Errorf("kernel: create height buffer: %w", err)
	}
	defer d.DestroyBuffer(heights)

	staging, err := d.CreateBuffer(&hal.BufferDescriptor{
		Label: "implicit_staging", Size: heightBytes,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("kernel: create staging buffer: %w", err)
	}
	defer d.DestroyBuffer(staging)

	q.WriteBuffer(params, 0, Uniforms(size, v))

	bind, err := d.CreateBindGroup(&hal.BindGroupDescriptor{
		Label: "implicit_kernel_bind", Layout: r.bindLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{Buffer: params.NativeHandle(), Offset: 0, Size: UniformSize}},
			{Binding: 1, Resource: gputypes.BufferBinding{Buffer: heights.NativeHandle(), Offset: 0, Size: heightBytes}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("kernel: create bind group: %w", err)
	}
	defer d.DestroyBindGroup(bind)

	if err := r.submit(bind, heights, staging, size, heightBytes); err != nil {
		return nil, err
	}

	readback := make([]byte, heightBytes)
	if err := q.ReadBuffer(staging, 0, readback); err != nil {
		return nil, fmt.Errorf("kernel: readback: %w", err)
	}
	out := make([]uint32, size*size)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(readback[i*4:])
	}
	return out, nil
}

// submit records the dispatch and the copy into staging, then waits for
// the GPU to finish.
func (r *Runner) submit(bind hal.BindGroup, heights, staging hal.Buffer, size uint32, n uint64) error {
	d := r.dev.Device
	encoder, err := d.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "implicit_kernel_encoder"})
	if err != nil {
		return fmt.Errorf("kernel: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("implicit_kernel"); err != nil {
		return fmt.Errorf("kernel: begin encoding: %w", err)
	}

	pass := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: "implicit_kernel_pass"})
	pass.SetPipeline(r.pipeline)
	pass.SetBindGroup(0, bind, nil)
	pass.Dispatch(Dispatch(size))
	pass.End()

	encoder.CopyBufferToBuffer(heights, staging, []hal.BufferCopy{{SrcOffset: 0, DstOffset: 0, Size: n}})
	cmd, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("kernel: end encoding: %w", err)
	}
	defer d.FreeCommandBuffer(cmd)

	fence, err := d.CreateFence()
	if err != nil {
		return fmt.Errorf("kernel: create fence: %w", err)
	}
	defer d.DestroyFence(fence)
	if err := r.dev.Queue.Submit([]hal.CommandBuffer{cmd}, fence, 1); err != nil {
		return fmt.Errorf("kernel: submit: %w", err)
	}
	ok, err := d.Wait(fence, 1, fenceTimeout)
	if err != nil || !ok {
		return fmt.Errorf("kernel: wait for GPU: ok=%v err=%w", ok, err)
	}
	return nil
}

// Destroy releases the pipeline objects. The device stays open.
func (r *Runner) Destroy() {
	d := r.dev.Device
	if d == nil {
		return
	}
	if r.pipeline != nil {
		d.DestroyComputePipeline(r.pipeline)
		r.pipeline = nil
	}
	if r.pipeLayout != nil {
		d.DestroyPipelineLayout(r.pipeLayout)
		r.pipeLayout = nil
	}
	if r.bindLayout != nil {
		d.DestroyBindGroupLayout(r.bindLayout)
		r.bindLayout = nil
	}
	if r.shader != nil {
		d.DestroyShaderModule(r.shader)
		r.shader = nil
	}
}
