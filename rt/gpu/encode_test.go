package gpu

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/prism3d/prism/rt/core"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// decodedObject mirrors the WGSL SceneObject struct field by field. It lives
// only in tests: the production path never decodes.
type decodedObject struct {
	Position         mgl32.Vec3
	Type             uint32
	Scale            mgl32.Vec3
	Rotation         mgl32.Vec3
	Color            mgl32.Vec3
	Roughness        float32
	Emission         mgl32.Vec3
	EmissionStrength float32
	Transparency     float32
	IOR              float32
	Metallic         float32
}

func getVec3(b []byte) mgl32.Vec3 {
	return mgl32.Vec3{
		math.Float32frombits(binary.LittleEndian.Uint32(b[0:4])),
		math.Float32frombits(binary.LittleEndian.Uint32(b[4:8])),
		math.Float32frombits(binary.LittleEndian.Uint32(b[8:12])),
	}
}

func getFloat32(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b[0:4]))
}

func decodeScene(t *testing.T, data []byte) []decodedObject {
	t.Helper()
	require.GreaterOrEqual(t, len(data), HeaderSize)
	count := binary.LittleEndian.Uint32(data[0:4])
	require.Equal(t, int(HeaderSize+count*ObjectStride), len(data))

	out := make([]decodedObject, count)
	for i := range out {
		rec := data[HeaderSize+i*ObjectStride:]
		out[i] = decodedObject{
			Position:         getVec3(rec[OffPosition:]),
			Type:             binary.LittleEndian.Uint32(rec[OffType:]),
			Scale:            getVec3(rec[OffScale:]),
			Rotation:         getVec3(rec[OffRotation:]),
			Color:            getVec3(rec[OffColor:]),
			Roughness:        getFloat32(rec[OffRoughness:]),
			Emission:         getVec3(rec[OffEmission:]),
			EmissionStrength: getFloat32(rec[OffEmissionStrength:]),
			Transparency:     getFloat32(rec[OffTransparency:]),
			IOR:              getFloat32(rec[OffIOR:]),
			Metallic:         getFloat32(rec[OffMetallic:]),
		}
	}
	return out
}

func TestLayoutContract(t *testing.T) {
	// These constants are the wire format. If this test fails the WGSL
	// struct must change in the same commit.
	assert.Equal(t, 16, HeaderSize)
	assert.Equal(t, 96, ObjectStride)
	assert.Equal(t, 0, ObjectStride%16, "record stride must be 16-byte aligned")
	assert.Equal(t, 0, HeaderSize%16, "header must be 16-byte aligned")

	assert.Equal(t, 0, OffPosition)
	assert.Equal(t, 12, OffType)
	assert.Equal(t, 16, OffScale)
	assert.Equal(t, 32, OffRotation)
	assert.Equal(t, 48, OffColor)
	assert.Equal(t, 60, OffRoughness)
	assert.Equal(t, 64, OffEmission)
	assert.Equal(t, 76, OffEmissionStrength)
	assert.Equal(t, 80, OffTransparency)
	assert.Equal(t, 84, OffIOR)
	assert.Equal(t, 88, OffMetallic)

	assert.Equal(t, 176, CameraUniformSize)
}

func TestEncodeRoundTrip(t *testing.T) {
	sphere := core.NewSceneObject(core.TypeSphere)
	sphere.Transform.Position = mgl32.Vec3{1, 2, -3}
	sphere.Transform.Rotation = mgl32.Vec3{0.1, -0.2, 0.3}
	sphere.Transform.Scale = core.SphereScale(1.5)
	sphere.Material = core.Material{Kind: core.MaterialPlastic, Color: mgl32.Vec3{0.9, 0.1, 0.2}}

	metal := core.NewSceneObject(core.TypeCuboid)
	metal.Transform.Scale = core.CuboidScale(1, 0.5, 2)
	metal.Material = core.Material{Kind: core.MaterialMetal, Color: mgl32.Vec3{0.8, 0.8, 0.9}, Roughness: 0.15}

	glass := core.NewSceneObject(core.TypeTorus)
	glass.Transform.Scale = core.TorusScale(0.75, 1.25)
	glass.Material = core.Material{Kind: core.MaterialGlass, Color: mgl32.Vec3{1, 1, 1}, IOR: 1.45}

	light := core.NewSceneObject(core.TypeCapsule)
	light.Transform.Scale = core.CapsuleScale(0.3, 2)
	light.Material = core.Material{Kind: core.MaterialLight, Color: mgl32.Vec3{1, 0.9, 0.7}, Intensity: 12}

	objects := []*core.SceneObject{sphere, metal, glass, light}
	decoded := decodeScene(t, EncodeScene(objects))
	require.Len(t, decoded, 4)

	// Order is insertion order; discriminants are bit-exact.
	assert.Equal(t, uint32(core.TypeSphere), decoded[0].Type)
	assert.Equal(t, uint32(core.TypeCuboid), decoded[1].Type)
	assert.Equal(t, uint32(core.TypeTorus), decoded[2].Type)
	assert.Equal(t, uint32(core.TypeCapsule), decoded[3].Type)

	assert.Equal(t, sphere.Transform.Position, decoded[0].Position)
	assert.Equal(t, sphere.Transform.Rotation, decoded[0].Rotation)
	assert.Equal(t, sphere.Transform.Scale, decoded[0].Scale)
	assert.Equal(t, sphere.Material.Color, decoded[0].Color)
	assert.Zero(t, decoded[0].Metallic)
	assert.Zero(t, decoded[0].Transparency)
	assert.Zero(t, decoded[0].EmissionStrength)

	assert.Equal(t, float32(1), decoded[1].Metallic)
	assert.Equal(t, float32(0.15), decoded[1].Roughness)

	assert.Equal(t, float32(1), decoded[2].Transparency)
	assert.Equal(t, float32(1.45), decoded[2].IOR)
	assert.Equal(t, mgl32.Vec3{1.0, 0.25, 0.25}, decoded[2].Scale)

	assert.Equal(t, light.Material.Color, decoded[3].Emission)
	assert.Equal(t, float32(12), decoded[3].EmissionStrength)
}

func TestEncodeSkipsInvisible(t *testing.T) {
	a := core.NewSceneObject(core.TypeSphere)
	b := core.NewSceneObject(core.TypeCuboid)
	b.Visible = false
	c := core.NewSceneObject(core.TypeCone)

	decoded := decodeScene(t, EncodeScene([]*core.SceneObject{a, b, c}))
	require.Len(t, decoded, 2)
	assert.Equal(t, uint32(core.TypeSphere), decoded[0].Type)
	assert.Equal(t, uint32(core.TypeCone), decoded[1].Type)
}

func TestEncodeClampsNonFinite(t *testing.T) {
	obj := core.NewSceneObject(core.TypeSphere)
	obj.Transform.Position = mgl32.Vec3{float32(math.NaN()), 0, 0}
	obj.Transform.Scale = core.SphereScale(1)

	data := EncodeScene([]*core.SceneObject{obj})
	for i := HeaderSize; i < len(data); i += 4 {
		f := float64(math.Float32frombits(binary.LittleEndian.Uint32(data[i:])))
		assert.False(t, math.IsNaN(f) || math.IsInf(f, 0), "non-finite value leaked at offset %d", i)
	}

	decoded := decodeScene(t, data)
	require.Len(t, decoded, 1)
	// Zero scale is the degenerate never-hits state.
	assert.Equal(t, mgl32.Vec3{}, decoded[0].Scale)
}

func TestEncodeDeterministic(t *testing.T) {
	objects := []*core.SceneObject{
		core.NewSceneObject(core.TypeSphere),
		core.NewSceneObject(core.TypeTorus),
	}
	objects[1].Transform.Rotation = mgl32.Vec3{0.5, 1.0, -0.25}

	assert.Equal(t, EncodeScene(objects), EncodeScene(objects))
}

func TestEncodeEmptyScene(t *testing.T) {
	data := EncodeScene(nil)
	require.Equal(t, HeaderSize, len(data))
	assert.Equal(t, uint32(0), binary.LittleEndian.Uint32(data[0:4]))
}
