//go:build !nogpu

package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/tileconv/internal/cache"
)

// Bind group slots of the convolution shader.
const (
	bindingParams uint32 = iota
	bindingInput
	bindingFilter
	bindingOutput
)

// convPipeline holds the device objects of one shader specialisation.
type convPipeline struct {
	spec       shaderSpec
	shader     hal.ShaderModule
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipeline   hal.ComputePipeline
}

// newConvPipeline specialises, compiles and links the convolution shader.
// Partially created objects are released on failure.
func newConvPipeline(device hal.Device, spec shaderSpec) (_ *convPipeline, err error) {
	code, err := compileSPIRV(specialize(spec))
	if err != nil {
		return nil, err
	}

	p := &convPipeline{spec: spec}
	defer func() {
		if err != nil {
			p.destroy(device)
		}
	}()

	p.shader, err = device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "tiled_conv_" + spec.String(),
		Source: hal.ShaderSource{SPIRV: code},
	})
	if err != nil {
		return nil, fmt.Errorf("create shader module: %w", err)
	}

	p.bindLayout, err = device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "tiled_conv_bind_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{Binding: bindingParams, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}},
			{Binding: bindingInput, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage}},
			{Binding: bindingFilter, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage}},
			{Binding: bindingOutput, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create bind group layout: %w", err)
	}

	p.pipeLayout, err = device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "tiled_conv_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{p.bindLayout},
	})
	if err != nil {
		return nil, fmt.Errorf("create pipeline layout: %w", err)
	}

	p.pipeline, err = device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:  "tiled_conv_pipeline",
		Layout: p.pipeLayout,
		Compute: hal.ComputeState{
			Module:     p.shader,
			EntryPoint: "main",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create compute pipeline: %w", err)
	}
	return p, nil
}

// destroy releases the pipeline objects in reverse creation order.
func (p *convPipeline) destroy(device hal.Device) {
	if device == nil {
		return
	}
	if p.pipeline != nil {
		device.DestroyComputePipeline(p.pipeline)
		p.pipeline = nil
	}
	if p.pipeLayout != nil {
		device.DestroyPipelineLayout(p.pipeLayout)
		p.pipeLayout = nil
	}
	if p.bindLayout != nil {
		device.DestroyBindGroupLayout(p.bindLayout)
		p.bindLayout = nil
	}
	if p.shader != nil {
		device.DestroyShaderModule(p.shader)
		p.shader = nil
	}
}

// maxPipelines bounds the number of compiled specialisations kept alive.
const maxPipelines = 16

// pipelineCache keeps compiled pipelines per specialisation and destroys
// them on eviction. The accelerator serialises access, so device is only
// read from the eviction callback while a method holds the lock.
type pipelineCache struct {
	device  hal.Device
	entries *cache.Cache[shaderSpec, *convPipeline]
}

func newPipelineCache() *pipelineCache {
	c := &pipelineCache{}
	c.entries = cache.New(maxPipelines, func(spec shaderSpec, p *convPipeline) {
		slogger().Debug("pipeline released", "spec", spec.String())
		p.destroy(c.device)
	})
	return c
}

// get returns the cached pipeline for spec, building it on first use.
func (c *pipelineCache) get(device hal.Device, spec shaderSpec) (*convPipeline, error) {
	c.device = device
	return c.entries.GetOrCreate(spec, func() (*convPipeline, error) {
		p, err := newConvPipeline(device, spec)
		if err != nil {
			return nil, err
		}
		slogger().Debug("pipeline built", "spec", spec.String())
		return p, nil
	})
}

func (c *pipelineCache) size() int { return c.entries.Len() }

// clear destroys every cached pipeline.
func (c *pipelineCache) clear(device hal.Device) {
	c.device = device
	c.entries.Purge()
}
