package core

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Transform places an object in the world. Rotation is Euler angles in
// radians, composed Z*Y*X. Scale carries the per-primitive parameter
// encoding (see the ObjectType scale helpers in scene.go), not a literal
// axis scale.
type Transform struct {
	Position mgl32.Vec3
	Rotation mgl32.Vec3
	Scale    mgl32.Vec3
}

func NewTransform() Transform {
	return Transform{
		Position: mgl32.Vec3{0, 0, 0},
		Rotation: mgl32.Vec3{0, 0, 0},
		Scale:    mgl32.Vec3{1, 1, 1},
	}
}

// RotationMatrix builds the object-to-world rotation. The composition order
// must match the compute kernel exactly; both sides use Rz * Ry * Rx.
func (t *Transform) RotationMatrix() mgl32.Mat3 {
	return mgl32.Rotate3DZ(t.Rotation.Z()).
		Mul3(mgl32.Rotate3DY(t.Rotation.Y())).
		Mul3(mgl32.Rotate3DX(t.Rotation.X()))
}

// ToLocal transforms a world-space ray into this transform's object space:
// translate by -Position, then apply the inverse rotation. The inverse of an
// orthonormal rotation is its transpose.
func (t *Transform) ToLocal(origin, direction mgl32.Vec3) (mgl32.Vec3, mgl32.Vec3) {
	inv := t.RotationMatrix().Transpose()
	localOrigin := inv.Mul3x1(origin.Sub(t.Position))
	localDir := inv.Mul3x1(direction)
	return localOrigin, localDir
}
