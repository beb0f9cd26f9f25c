package vulkan

import (
	"fmt"
	gomath "math"
	"runtime"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/google/uuid"
	"github.com/spaghettifunk/geopool/engine/core"
	"github.com/spaghettifunk/geopool/engine/renderer/metadata"
)

// Backend is a headless Vulkan implementation of the renderer backend:
// no surface, no swapchain, just a transfer-capable queue and device-local
// buffers. Single-threaded by contract; only the commit thread may call it.
type Backend struct {
	context *VulkanContext
	debug   bool
}

type vulkanBuffer struct {
	handle      vk.Buffer
	memory      vk.DeviceMemory
	hostVisible bool
}

func New() *Backend {
	return &Backend{
		context: &VulkanContext{},
		debug:   false,
	}
}

func (b *Backend) Initialize(appName string) error {
	if err := vk.SetDefaultGetInstanceProcAddr(); err != nil {
		core.LogFatal("failed to locate the Vulkan loader: %s", err)
		return err
	}
	if err := vk.Init(); err != nil {
		core.LogFatal("failed to initialize vk: %s", err)
		return err
	}

	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 0, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(appName),
		PEngineName:        VulkanSafeString("GeoPool"),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	requiredExtensions := []string{}
	if runtime.GOOS == "darwin" {
		requiredExtensions = append(requiredExtensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
	}
	createInfo.EnabledExtensionCount = uint32(len(requiredExtensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(requiredExtensions)

	if b.debug {
		createInfo.EnabledLayerCount = 1
		createInfo.PpEnabledLayerNames = VulkanSafeStrings([]string{"VK_LAYER_KHRONOS_validation"})
	}

	var instance vk.Instance
	if res := vk.CreateInstance(&createInfo, b.context.Allocator, &instance); res != vk.Success {
		err := fmt.Errorf("failed to create Vulkan instance")
		core.LogError(err.Error())
		return err
	}
	b.context.Instance = instance

	if err := vk.InitInstance(instance); err != nil {
		core.LogError("failed to init instance proc addresses: %s", err)
		return err
	}

	if err := b.selectDevice(); err != nil {
		return err
	}
	return b.createCommandPool()
}

// selectDevice picks the first physical device exposing a transfer-capable
// queue family. Without a surface there is nothing else to require.
func (b *Backend) selectDevice() error {
	var physicalDeviceCount uint32
	if res := vk.EnumeratePhysicalDevices(b.context.Instance, &physicalDeviceCount, nil); res != vk.Success {
		err := fmt.Errorf("error in EnumeratePhysicalDevices")
		core.LogError(err.Error())
		return err
	}
	if physicalDeviceCount == 0 {
		err := fmt.Errorf("no Vulkan-capable physical devices found")
		core.LogError(err.Error())
		return err
	}

	physicalDevices := make([]vk.PhysicalDevice, physicalDeviceCount)
	if res := vk.EnumeratePhysicalDevices(b.context.Instance, &physicalDeviceCount, physicalDevices); res != vk.Success {
		err := fmt.Errorf("error in EnumeratePhysicalDevices")
		core.LogError(err.Error())
		return err
	}

	for _, physicalDevice := range physicalDevices {
		var queueFamilyCount uint32
		vk.GetPhysicalDeviceQueueFamilyProperties(physicalDevice, &queueFamilyCount, nil)
		queueFamilies := make([]vk.QueueFamilyProperties, queueFamilyCount)
		vk.GetPhysicalDeviceQueueFamilyProperties(physicalDevice, &queueFamilyCount, queueFamilies)

		for familyIndex := range queueFamilies {
			queueFamilies[familyIndex].Deref()
			flags := queueFamilies[familyIndex].QueueFlags
			if flags&vk.QueueFlags(vk.QueueTransferBit) == 0 && flags&vk.QueueFlags(vk.QueueGraphicsBit) == 0 {
				continue
			}
			b.context.PhysicalDevice = physicalDevice
			b.context.TransferQueueIndex = uint32(familyIndex)
			return b.createLogicalDevice()
		}
	}

	err := fmt.Errorf("no physical device with a transfer-capable queue family")
	core.LogError(err.Error())
	return err
}

func (b *Backend) createLogicalDevice() error {
	core.LogInfo("Creating logical device...")

	queueCreateInfos := []vk.DeviceQueueCreateInfo{{
		SType:            vk.StructureTypeDeviceQueueCreateInfo,
		QueueFamilyIndex: b.context.TransferQueueIndex,
		QueueCount:       1,
		PQueuePriorities: []float32{1.0},
	}}

	extensions := []string{}
	if runtime.GOOS == "darwin" {
		extensions = append(extensions, "VK_KHR_portability_subset")
	}

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensions),
	}

	var logicalDevice vk.Device
	if res := vk.CreateDevice(b.context.PhysicalDevice, &deviceCreateInfo, b.context.Allocator, &logicalDevice); res != vk.Success {
		err := fmt.Errorf("failed to create logical device")
		core.LogError(err.Error())
		return err
	}
	b.context.LogicalDevice = logicalDevice

	var queue vk.Queue
	vk.GetDeviceQueue(logicalDevice, b.context.TransferQueueIndex, 0, &queue)
	b.context.TransferQueue = queue
	return nil
}

func (b *Backend) createCommandPool() error {
	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: b.context.TransferQueueIndex,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateTransientBit),
	}
	var commandPool vk.CommandPool
	if res := vk.CreateCommandPool(b.context.LogicalDevice, &poolCreateInfo, b.context.Allocator, &commandPool); res != vk.Success {
		err := fmt.Errorf("failed to create command pool")
		core.LogError(err.Error())
		return err
	}
	b.context.CommandPool = commandPool
	return nil
}

func (b *Backend) RenderBufferCreate(renderbufferType metadata.RenderBufferType, totalSize uint64) (*metadata.RenderBuffer, error) {
	var usage vk.BufferUsageFlags
	var memoryFlags vk.MemoryPropertyFlags
	hostVisible := false

	switch renderbufferType {
	case metadata.RENDERBUFFER_TYPE_VERTEX:
		usage = vk.BufferUsageFlags(vk.BufferUsageTransferDstBit | vk.BufferUsageVertexBufferBit)
		memoryFlags = vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
	case metadata.RENDERBUFFER_TYPE_INDEX:
		usage = vk.BufferUsageFlags(vk.BufferUsageTransferDstBit | vk.BufferUsageIndexBufferBit)
		memoryFlags = vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
	case metadata.RENDERBUFFER_TYPE_STAGING:
		usage = vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit)
		memoryFlags = vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)
		hostVisible = true
	default:
		return nil, fmt.Errorf("unsupported renderbuffer type %s", renderbufferType)
	}

	internal, err := b.createVulkanBuffer(totalSize, usage, memoryFlags, hostVisible)
	if err != nil {
		return nil, err
	}

	return &metadata.RenderBuffer{
		ID:               uuid.New(),
		RenderBufferType: renderbufferType,
		TotalSize:        totalSize,
		InternalData:     internal,
	}, nil
}

func (b *Backend) createVulkanBuffer(size uint64, usage vk.BufferUsageFlags, memoryFlags vk.MemoryPropertyFlags, hostVisible bool) (*vulkanBuffer, error) {
	bufferCreateInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}

	var handle vk.Buffer
	if res := vk.CreateBuffer(b.context.LogicalDevice, &bufferCreateInfo, b.context.Allocator, &handle); res != vk.Success {
		return nil, fmt.Errorf("failed to create buffer of size %d", size)
	}

	var requirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(b.context.LogicalDevice, handle, &requirements)
	requirements.Deref()

	memoryIndex := b.context.FindMemoryIndex(requirements.MemoryTypeBits, uint32(memoryFlags))
	if memoryIndex == -1 {
		vk.DestroyBuffer(b.context.LogicalDevice, handle, b.context.Allocator)
		return nil, fmt.Errorf("required memory type not found")
	}

	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  requirements.Size,
		MemoryTypeIndex: uint32(memoryIndex),
	}
	var memory vk.DeviceMemory
	if res := vk.AllocateMemory(b.context.LogicalDevice, &allocateInfo, b.context.Allocator, &memory); res != vk.Success {
		vk.DestroyBuffer(b.context.LogicalDevice, handle, b.context.Allocator)
		return nil, fmt.Errorf("failed to allocate %d bytes of buffer memory", size)
	}

	if res := vk.BindBufferMemory(b.context.LogicalDevice, handle, memory, 0); res != vk.Success {
		vk.FreeMemory(b.context.LogicalDevice, memory, b.context.Allocator)
		vk.DestroyBuffer(b.context.LogicalDevice, handle, b.context.Allocator)
		return nil, fmt.Errorf("failed to bind buffer memory")
	}

	return &vulkanBuffer{handle: handle, memory: memory, hostVisible: hostVisible}, nil
}

// RenderBufferLoadRange uploads through a transient host-visible staging
// buffer and a fence-synchronized copy on the transfer queue.
func (b *Backend) RenderBufferLoadRange(buffer *metadata.RenderBuffer, offset uint64, data []byte) error {
	internal, ok := buffer.InternalData.(*vulkanBuffer)
	if !ok {
		return fmt.Errorf("buffer %s has no vulkan backing", buffer.ID)
	}
	if len(data) == 0 {
		return nil
	}

	staging, err := b.createVulkanBuffer(uint64(len(data)),
		vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit),
		true)
	if err != nil {
		return err
	}
	defer b.destroyVulkanBuffer(staging)

	var pData unsafe.Pointer
	if res := vk.MapMemory(b.context.LogicalDevice, staging.memory, 0, vk.DeviceSize(len(data)), 0, &pData); res != vk.Success {
		return fmt.Errorf("failed to map staging memory")
	}
	vk.Memcopy(pData, data)
	vk.UnmapMemory(b.context.LogicalDevice, staging.memory)

	return b.withOneTimeCommands(func(commandBuffer vk.CommandBuffer) {
		region := vk.BufferCopy{
			SrcOffset: 0,
			DstOffset: vk.DeviceSize(offset),
			Size:      vk.DeviceSize(len(data)),
		}
		vk.CmdCopyBuffer(commandBuffer, staging.handle, internal.handle, 1, []vk.BufferCopy{region})
	})
}

// RenderBufferTransition declares the buffer ready for its target usage
// with a transfer-to-read pipeline barrier.
func (b *Backend) RenderBufferTransition(buffer *metadata.RenderBuffer, renderbufferType metadata.RenderBufferType) error {
	internal, ok := buffer.InternalData.(*vulkanBuffer)
	if !ok {
		return fmt.Errorf("buffer %s has no vulkan backing", buffer.ID)
	}

	var dstAccess vk.AccessFlags
	switch renderbufferType {
	case metadata.RENDERBUFFER_TYPE_VERTEX:
		dstAccess = vk.AccessFlags(vk.AccessVertexAttributeReadBit)
	case metadata.RENDERBUFFER_TYPE_INDEX:
		dstAccess = vk.AccessFlags(vk.AccessIndexReadBit)
	default:
		return fmt.Errorf("no transition defined for renderbuffer type %s", renderbufferType)
	}

	err := b.withOneTimeCommands(func(commandBuffer vk.CommandBuffer) {
		barrier := vk.BufferMemoryBarrier{
			SType:               vk.StructureTypeBufferMemoryBarrier,
			SrcAccessMask:       vk.AccessFlags(vk.AccessTransferWriteBit),
			DstAccessMask:       dstAccess,
			SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
			DstQueueFamilyIndex: vk.QueueFamilyIgnored,
			Buffer:              internal.handle,
			Offset:              0,
			Size:                vk.DeviceSize(vk.WholeSize),
		}
		vk.CmdPipelineBarrier(commandBuffer,
			vk.PipelineStageFlags(vk.PipelineStageTransferBit),
			vk.PipelineStageFlags(vk.PipelineStageVertexInputBit),
			0, 0, nil, 1, []vk.BufferMemoryBarrier{barrier}, 0, nil)
	})
	if err != nil {
		return err
	}
	buffer.RenderBufferType = renderbufferType
	return nil
}

// withOneTimeCommands records, submits and fence-waits a single-use
// command buffer on the transfer queue.
func (b *Backend) withOneTimeCommands(record func(commandBuffer vk.CommandBuffer)) error {
	allocateInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        b.context.CommandPool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}
	commandBuffers := make([]vk.CommandBuffer, 1)
	if res := vk.AllocateCommandBuffers(b.context.LogicalDevice, &allocateInfo, commandBuffers); res != vk.Success {
		return fmt.Errorf("failed to allocate command buffer")
	}
	defer vk.FreeCommandBuffers(b.context.LogicalDevice, b.context.CommandPool, 1, commandBuffers)

	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	if res := vk.BeginCommandBuffer(commandBuffers[0], &beginInfo); res != vk.Success {
		return fmt.Errorf("failed to begin command buffer")
	}

	record(commandBuffers[0])

	if res := vk.EndCommandBuffer(commandBuffers[0]); res != vk.Success {
		return fmt.Errorf("failed to end command buffer")
	}

	fenceCreateInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	var fence vk.Fence
	if res := vk.CreateFence(b.context.LogicalDevice, &fenceCreateInfo, b.context.Allocator, &fence); res != vk.Success {
		return fmt.Errorf("failed to create fence")
	}
	defer vk.DestroyFence(b.context.LogicalDevice, fence, b.context.Allocator)

	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    commandBuffers,
	}
	if res := vk.QueueSubmit(b.context.TransferQueue, 1, []vk.SubmitInfo{submitInfo}, fence); res != vk.Success {
		return fmt.Errorf("failed to submit to transfer queue")
	}

	if res := vk.WaitForFences(b.context.LogicalDevice, 1, []vk.Fence{fence}, vk.True, gomath.MaxUint64); res != vk.Success {
		return fmt.Errorf("fence wait failed: %s", VulkanResultString(res))
	}
	return nil
}

func (b *Backend) RenderBufferDestroy(buffer *metadata.RenderBuffer) {
	if buffer == nil {
		return
	}
	if internal, ok := buffer.InternalData.(*vulkanBuffer); ok {
		b.destroyVulkanBuffer(internal)
		buffer.InternalData = nil
	}
}

func (b *Backend) destroyVulkanBuffer(internal *vulkanBuffer) {
	if internal.handle != vk.NullBuffer {
		vk.DestroyBuffer(b.context.LogicalDevice, internal.handle, b.context.Allocator)
		internal.handle = vk.NullBuffer
	}
	if internal.memory != vk.NullDeviceMemory {
		vk.FreeMemory(b.context.LogicalDevice, internal.memory, b.context.Allocator)
		internal.memory = vk.NullDeviceMemory
	}
}

func (b *Backend) Shutdown() error {
	if b.context.LogicalDevice != nil {
		vk.DeviceWaitIdle(b.context.LogicalDevice)
		vk.DestroyCommandPool(b.context.LogicalDevice, b.context.CommandPool, b.context.Allocator)
		vk.DestroyDevice(b.context.LogicalDevice, b.context.Allocator)
		b.context.LogicalDevice = nil
	}
	if b.context.Instance != nil {
		vk.DestroyInstance(b.context.Instance, b.context.Allocator)
		b.context.Instance = nil
	}
	return nil
}
