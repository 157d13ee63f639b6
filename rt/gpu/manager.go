package gpu

import (
	"encoding/binary"
	"math"

	"github.com/prism3d/prism/rt/core"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

// HeadroomScene leaves growth room in the scene buffer so that adding a few
// objects does not force a reallocation (and bind group rebuild) every edit.
const HeadroomScene = 16 * ObjectStride

// CameraUniform layout, shared with raytrace.wgsl:
//
//	inv_proj:     mat4x4<f32>  -- offset 0
//	inv_view:     mat4x4<f32>  -- offset 64
//	position:     vec4<f32>    -- offset 128
//	background:   vec4<f32>    -- offset 144
//	sample_count: u32          -- offset 160
//	width:        u32          -- offset 164
//	height:       u32          -- offset 168
//	(pad)         u32          -- offset 172
const CameraUniformSize = 176

// BufferManager owns the GPU-side buffers of the path tracer: the camera
// uniform, the encoded scene, and the per-pixel radiance accumulator. All
// writes go through the device queue; nothing else touches these buffers.
type BufferManager struct {
	Device *wgpu.Device

	CameraBuf *wgpu.Buffer
	SceneBuf  *wgpu.Buffer
	AccumBuf  *wgpu.Buffer

	BindGroup0 *wgpu.BindGroup

	accumPixels uint64
}

func NewBufferManager(device *wgpu.Device) *BufferManager {
	return &BufferManager{Device: device}
}

func (m *BufferManager) ensureBuffer(name string, buf **wgpu.Buffer, data []byte, usage wgpu.BufferUsage, headroom int) bool {
	neededSize := uint64(len(data) + headroom)
	if neededSize%4 != 0 {
		neededSize += 4 - (neededSize % 4)
	}

	current := *buf
	if current == nil || current.GetSize() < neededSize {
		if current != nil {
			current.Release()
		}

		desc := &wgpu.BufferDescriptor{
			Label: name,
			Size:  neededSize,
			Usage: usage | wgpu.BufferUsageCopyDst,
		}
		newBuf, err := m.Device.CreateBuffer(desc)
		if err != nil {
			panic(err)
		}
		*buf = newBuf

		if len(data) > 0 {
			m.Device.GetQueue().WriteBuffer(*buf, 0, data)
		}
		return true
	}

	if len(data) > 0 {
		m.Device.GetQueue().WriteBuffer(*buf, 0, data)
	}
	return false
}

// UpdateCamera uploads the per-frame camera uniform. sampleCount is the
// pre-increment frame index: the kernel overwrites the accumulator when it
// reads zero, which is what clears the image after a reset.
func (m *BufferManager) UpdateCamera(invProj, invView mgl32.Mat4, position, background mgl32.Vec3, sampleCount, width, height uint32) {
	buf := make([]byte, CameraUniformSize)

	writeMat := func(offset int, mat mgl32.Mat4) {
		for i, v := range mat {
			binary.LittleEndian.PutUint32(buf[offset+i*4:], math.Float32bits(v))
		}
	}
	writeMat(0, invProj)
	writeMat(64, invView)

	putVec3(buf[128:], position)
	putVec3(buf[144:], background)
	binary.LittleEndian.PutUint32(buf[160:], sampleCount)
	binary.LittleEndian.PutUint32(buf[164:], width)
	binary.LittleEndian.PutUint32(buf[168:], height)

	if m.CameraBuf == nil {
		desc := &wgpu.BufferDescriptor{
			Label: "CameraUB",
			Size:  CameraUniformSize,
			Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		}
		var err error
		m.CameraBuf, err = m.Device.CreateBuffer(desc)
		if err != nil {
			panic(err)
		}
	}
	m.Device.GetQueue().WriteBuffer(m.CameraBuf, 0, buf)
}

// UpdateScene re-encodes the object list and uploads it. Returns true when
// the underlying buffer was reallocated, in which case bind groups must be
// recreated before the next dispatch.
func (m *BufferManager) UpdateScene(objects []*core.SceneObject) bool {
	data := EncodeScene(objects)
	return m.ensureBuffer("SceneBuf", &m.SceneBuf, data, wgpu.BufferUsageStorage, HeadroomScene)
}

// EnsureAccumulation sizes the radiance accumulator to one vec4<f32> per
// pixel. Returns true when the buffer was (re)created.
func (m *BufferManager) EnsureAccumulation(width, height uint32) bool {
	pixels := uint64(width) * uint64(height)
	if pixels == 0 {
		return false
	}
	size := pixels * 16
	if m.AccumBuf != nil && m.accumPixels == pixels {
		return false
	}
	if m.AccumBuf != nil {
		m.AccumBuf.Release()
	}
	var err error
	m.AccumBuf, err = m.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "AccumBuf",
		Size:  size,
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		panic(err)
	}
	m.accumPixels = pixels
	return true
}

// CreateBindGroups builds group 0 (camera, scene, accumulator) for the
// raytracing pipeline. Group 1 (the output texture) is owned by the App,
// which recreates it on resize.
func (m *BufferManager) CreateBindGroups(pipeline *wgpu.ComputePipeline) {
	if m.BindGroup0 != nil {
		m.BindGroup0.Release()
	}
	entries := []wgpu.BindGroupEntry{
		{Binding: 0, Buffer: m.CameraBuf, Size: wgpu.WholeSize},
		{Binding: 1, Buffer: m.SceneBuf, Size: wgpu.WholeSize},
		{Binding: 2, Buffer: m.AccumBuf, Size: wgpu.WholeSize},
	}
	desc := &wgpu.BindGroupDescriptor{
		Layout:  pipeline.GetBindGroupLayout(0),
		Entries: entries,
	}
	var err error
	m.BindGroup0, err = m.Device.CreateBindGroup(desc)
	if err != nil {
		panic(err)
	}
}

// Release frees all GPU buffers. Safe to call more than once.
func (m *BufferManager) Release() {
	for _, buf := range []**wgpu.Buffer{&m.CameraBuf, &m.SceneBuf, &m.AccumBuf} {
		if *buf != nil {
			(*buf).Release()
			*buf = nil
		}
	}
	if m.BindGroup0 != nil {
		m.BindGroup0.Release()
		m.BindGroup0 = nil
	}
}
