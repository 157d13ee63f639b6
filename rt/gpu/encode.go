package gpu

import (
	"encoding/binary"
	"math"

	"github.com/prism3d/prism/rt/core"

	"github.com/go-gl/mathgl/mgl32"
)

// SceneBuffer layout, shared byte-for-byte with raytrace.wgsl. The header
// and every record are 16-byte aligned per WebGPU storage buffer rules.
// Changing any of these requires updating the WGSL struct in the same
// commit.
const (
	HeaderSize   = 16 // objectCount u32 + 12 bytes padding
	ObjectStride = 96

	OffPosition         = 0
	OffType             = 12
	OffScale            = 16
	OffRotation         = 32
	OffColor            = 48
	OffRoughness        = 60
	OffEmission         = 64
	OffEmissionStrength = 76
	OffTransparency     = 80
	OffIOR              = 84
	OffMetallic         = 88
)

// EncodeScene serializes the visible objects into the GPU scene buffer
// layout. It is a pure function of its input: insertion order is preserved,
// nothing is retained, and identical input produces identical bytes.
// Objects whose transform contains non-finite values are written with zero
// scale, which both intersection paths treat as a guaranteed miss; NaN must
// never reach the device.
func EncodeScene(objects []*core.SceneObject) []byte {
	visible := make([]*core.SceneObject, 0, len(objects))
	for _, obj := range objects {
		if obj.Visible {
			visible = append(visible, obj)
		}
	}

	buf := make([]byte, HeaderSize+len(visible)*ObjectStride)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(visible)))

	for i, obj := range visible {
		rec := buf[HeaderSize+i*ObjectStride:]

		pos := obj.Transform.Position
		rot := obj.Transform.Rotation
		scale := obj.Transform.Scale
		if !finiteVec(pos) || !finiteVec(rot) || !finiteVec(scale) {
			pos = mgl32.Vec3{}
			rot = mgl32.Vec3{}
			scale = mgl32.Vec3{}
		}

		putVec3(rec[OffPosition:], pos)
		binary.LittleEndian.PutUint32(rec[OffType:], uint32(obj.Type))
		putVec3(rec[OffScale:], scale)
		putVec3(rec[OffRotation:], rot)

		m := obj.Material
		putVec3(rec[OffColor:], m.Color)

		switch m.Kind {
		case core.MaterialMetal:
			putFloat32(rec[OffRoughness:], m.Roughness)
			putFloat32(rec[OffMetallic:], 1)
		case core.MaterialGlass:
			putFloat32(rec[OffTransparency:], 1)
			putFloat32(rec[OffIOR:], m.IOR)
		case core.MaterialLight:
			putVec3(rec[OffEmission:], m.Color)
			putFloat32(rec[OffEmissionStrength:], m.Intensity)
		}
	}

	return buf
}

func putVec3(b []byte, v mgl32.Vec3) {
	binary.LittleEndian.PutUint32(b[0:4], math.Float32bits(v.X()))
	binary.LittleEndian.PutUint32(b[4:8], math.Float32bits(v.Y()))
	binary.LittleEndian.PutUint32(b[8:12], math.Float32bits(v.Z()))
}

func putFloat32(b []byte, f float32) {
	binary.LittleEndian.PutUint32(b[0:4], math.Float32bits(f))
}

func finiteVec(v mgl32.Vec3) bool {
	for i := 0; i < 3; i++ {
		f := float64(v[i])
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}
