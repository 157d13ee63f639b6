package editor

import (
	"math"

	"github.com/prism3d/prism/rt/core"

	"github.com/go-gl/mathgl/mgl32"
)

// Ray is a world-space picking ray. Direction is unit length.
type Ray struct {
	Origin    mgl32.Vec3
	Direction mgl32.Vec3
}

// HitResult identifies the closest object under a pick ray. Index is the
// position of the object in scene.Objects; Point and Normal are world space.
type HitResult struct {
	ID     string
	Index  int
	T      float32
	Point  mgl32.Vec3
	Normal mgl32.Vec3
}

// GetPickRay converts a cursor position into a world-space ray through the
// pixel center. It reconstructs the ray from the camera basis vectors instead
// of inverting matrices, which keeps it exact at any aspect ratio.
func GetPickRay(mouseX, mouseY float64, width, height int, camera *core.CameraState) Ray {
	nx := (2.0*float32(mouseX))/float32(width) - 1.0
	ny := 1.0 - (2.0*float32(mouseY))/float32(height)

	forward := camera.GetForward()
	right := camera.GetRight()
	up := right.Cross(forward)

	aspect := float32(width) / float32(height)
	fovRad := mgl32.DegToRad(camera.FovY)
	tanHalfFov := float32(math.Tan(float64(fovRad / 2.0)))

	dir := forward.
		Add(right.Mul(nx * aspect * tanHalfFov)).
		Add(up.Mul(ny * tanHalfFov)).
		Normalize()

	return Ray{Origin: camera.Position, Direction: dir}
}

// Pick runs the ray against every visible object and returns the closest hit,
// or nil. It evaluates the same object-space intersection routines as the
// compute kernel, so what the user sees is what the click lands on.
func Pick(scene *core.Scene, ray Ray) *HitResult {
	var best *HitResult
	closest := float32(math.MaxFloat32)

	for i, obj := range scene.Objects {
		if !obj.Visible {
			continue
		}

		localOrigin, localDir := obj.Transform.ToLocal(ray.Origin, ray.Direction)
		hit, ok := core.IntersectPrimitive(obj.Type, obj.Transform.Scale, core.Ray{
			Origin:    localOrigin,
			Direction: localDir,
		})
		if !ok || hit.T >= closest {
			continue
		}

		rot := obj.Transform.RotationMatrix()
		closest = hit.T
		best = &HitResult{
			ID:     obj.ID,
			Index:  i,
			T:      hit.T,
			Point:  ray.Origin.Add(ray.Direction.Mul(hit.T)),
			Normal: rot.Mul3x1(hit.Normal).Normalize(),
		}
	}

	return best
}
