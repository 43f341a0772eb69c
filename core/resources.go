package core

import (
	"errors"

	"github.com/devblok/raymarch/device"
	vk "github.com/vulkan-go/vulkan"
)

// Shader bindings, fixed by the compute shader's interface.
const (
	bindingStorageImage  = 0
	bindingUniformBuffer = 1
)

// BuildComputeResources creates the descriptor layout, compute
// pipeline, descriptor pool and one descriptor set per image view.
// Every set points binding 0 at a distinct view and binding 1 at the
// shared uniform buffer. The generation ties the resources to the
// swapchain incarnation the views came from.
func BuildComputeResources(dev *device.Device, views []vk.ImageView, uniform *Buffer, shaderBlob []byte, generation uint64) (*ComputeResourceSet, error) {
	r := &ComputeResourceSet{
		device:     dev,
		generation: generation,
	}

	if err := r.createShaderModule(shaderBlob); err != nil {
		r.Destroy()
		return nil, err
	}
	if err := r.createDescriptorSetLayout(); err != nil {
		r.Destroy()
		return nil, err
	}
	if err := r.createPipeline(); err != nil {
		r.Destroy()
		return nil, err
	}
	if err := r.createDescriptorPool(len(views)); err != nil {
		r.Destroy()
		return nil, err
	}
	if err := r.allocateDescriptorSets(len(views)); err != nil {
		r.Destroy()
		return nil, err
	}
	r.writeDescriptorSets(views, uniform)

	return r, nil
}

// ComputeResourceSet owns the descriptor graph of the compute
// dispatch. It holds no per frame mutable state, only the uniform
// buffer's contents change between frames.
type ComputeResourceSet struct {
	device     *device.Device
	generation uint64

	shaderModule        vk.ShaderModule
	descriptorSetLayout vk.DescriptorSetLayout
	pipelineLayout      vk.PipelineLayout
	pipeline            vk.Pipeline
	descriptorPool      vk.DescriptorPool
	descriptorSets      []vk.DescriptorSet
}

func (r *ComputeResourceSet) createShaderModule(blob []byte) error {
	if len(blob) == 0 || len(blob)%4 != 0 {
		return ErrShaderLoad
	}

	smci := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(blob)),
		PCode:    SliceUint32(blob),
	}

	var shaderModule vk.ShaderModule
	if err := vk.Error(vk.CreateShaderModule(r.device.Logical, &smci, nil, &shaderModule)); err != nil {
		return errors.New("vk.CreateShaderModule(): " + err.Error())
	}
	r.shaderModule = shaderModule
	return nil
}

func (r *ComputeResourceSet) createDescriptorSetLayout() error {
	dslci := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: 2,
		PBindings: []vk.DescriptorSetLayoutBinding{{
			Binding:         bindingStorageImage,
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeStorageImage,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageComputeBit),
		}, {
			Binding:         bindingUniformBuffer,
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeUniformBuffer,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageComputeBit),
		}},
	}

	var descriptorSetLayout vk.DescriptorSetLayout
	if err := vk.Error(vk.CreateDescriptorSetLayout(r.device.Logical, &dslci, nil, &descriptorSetLayout)); err != nil {
		return errors.New("vk.CreateDescriptorSetLayout(): " + err.Error())
	}
	r.descriptorSetLayout = descriptorSetLayout
	return nil
}

func (r *ComputeResourceSet) createPipeline() error {
	plci := vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: 1,
		PSetLayouts:    []vk.DescriptorSetLayout{r.descriptorSetLayout},
	}

	var pipelineLayout vk.PipelineLayout
	if err := vk.Error(vk.CreatePipelineLayout(r.device.Logical, &plci, nil, &pipelineLayout)); err != nil {
		return errors.New("vk.CreatePipelineLayout(): " + err.Error())
	}
	r.pipelineLayout = pipelineLayout

	cpci := []vk.ComputePipelineCreateInfo{{
		SType: vk.StructureTypeComputePipelineCreateInfo,
		Stage: vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageComputeBit,
			Module: r.shaderModule,
			PName:  "main\x00",
		},
		Layout: r.pipelineLayout,
	}}

	pipelines := make([]vk.Pipeline, len(cpci))
	if err := vk.Error(vk.CreateComputePipelines(r.device.Logical, vk.NullPipelineCache, uint32(len(cpci)), cpci, nil, pipelines)); err != nil {
		return errors.New("vk.CreateComputePipelines(): " + err.Error())
	}
	r.pipeline = pipelines[0]
	return nil
}

func (r *ComputeResourceSet) createDescriptorPool(numSets int) error {
	dpci := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       uint32(numSets),
		PoolSizeCount: 2,
		PPoolSizes: []vk.DescriptorPoolSize{{
			Type:            vk.DescriptorTypeStorageImage,
			DescriptorCount: uint32(numSets),
		}, {
			Type:            vk.DescriptorTypeUniformBuffer,
			DescriptorCount: uint32(numSets),
		}},
	}

	var descriptorPool vk.DescriptorPool
	if err := vk.Error(vk.CreateDescriptorPool(r.device.Logical, &dpci, nil, &descriptorPool)); err != nil {
		return errors.New("vk.CreateDescriptorPool(): " + err.Error())
	}
	r.descriptorPool = descriptorPool
	return nil
}

func (r *ComputeResourceSet) allocateDescriptorSets(numSets int) error {
	layouts := make([]vk.DescriptorSetLayout, numSets)
	for i := range layouts {
		layouts[i] = r.descriptorSetLayout
	}

	dsai := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     r.descriptorPool,
		DescriptorSetCount: uint32(numSets),
		PSetLayouts:        layouts,
	}

	descriptorSets := make([]vk.DescriptorSet, numSets)
	if err := vk.Error(vk.AllocateDescriptorSets(r.device.Logical, &dsai, &descriptorSets[0])); err != nil {
		return errors.New("vk.AllocateDescriptorSets(): " + err.Error())
	}
	r.descriptorSets = descriptorSets
	return nil
}

func (r *ComputeResourceSet) writeDescriptorSets(views []vk.ImageView, uniform *Buffer) {
	for i, set := range r.descriptorSets {
		writes := []vk.WriteDescriptorSet{{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          set,
			DstBinding:      bindingStorageImage,
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeStorageImage,
			PImageInfo: []vk.DescriptorImageInfo{{
				ImageView:   views[i],
				ImageLayout: vk.ImageLayoutGeneral,
			}},
		}, {
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          set,
			DstBinding:      bindingUniformBuffer,
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeUniformBuffer,
			PBufferInfo: []vk.DescriptorBufferInfo{{
				Buffer: uniform.Get(),
				Offset: 0,
				Range:  vk.DeviceSize(uniform.Size()),
			}},
		}}
		vk.UpdateDescriptorSets(r.device.Logical, uint32(len(writes)), writes, 0, nil)
	}
}

// Pipeline returns the compute pipeline handle.
func (r *ComputeResourceSet) Pipeline() vk.Pipeline {
	return r.pipeline
}

// PipelineLayout returns the pipeline layout handle.
func (r *ComputeResourceSet) PipelineLayout() vk.PipelineLayout {
	return r.pipelineLayout
}

// DescriptorSet returns the set bound to image view i.
func (r *ComputeResourceSet) DescriptorSet(i int) vk.DescriptorSet {
	return r.descriptorSets[i]
}

// SetCount returns the number of allocated descriptor sets.
func (r *ComputeResourceSet) SetCount() int {
	return len(r.descriptorSets)
}

// Generation returns the swapchain generation the resources were
// built against.
func (r *ComputeResourceSet) Generation() uint64 {
	return r.generation
}

// Destroy releases everything in reverse creation order. Descriptor
// sets go down with their pool.
func (r *ComputeResourceSet) Destroy() {
	if r.descriptorPool != vk.NullDescriptorPool {
		vk.DestroyDescriptorPool(r.device.Logical, r.descriptorPool, nil)
		r.descriptorPool = vk.NullDescriptorPool
	}
	r.descriptorSets = nil
	if r.pipeline != vk.NullPipeline {
		vk.DestroyPipeline(r.device.Logical, r.pipeline, nil)
		r.pipeline = vk.NullPipeline
	}
	if r.pipelineLayout != vk.NullPipelineLayout {
		vk.DestroyPipelineLayout(r.device.Logical, r.pipelineLayout, nil)
		r.pipelineLayout = vk.NullPipelineLayout
	}
	if r.descriptorSetLayout != vk.NullDescriptorSetLayout {
		vk.DestroyDescriptorSetLayout(r.device.Logical, r.descriptorSetLayout, nil)
		r.descriptorSetLayout = vk.NullDescriptorSetLayout
	}
	if r.shaderModule != vk.NullShaderModule {
		vk.DestroyShaderModule(r.device.Logical, r.shaderModule, nil)
		r.shaderModule = vk.NullShaderModule
	}
}
