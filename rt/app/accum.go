package app

import (
	"github.com/prism3d/prism/rt/core"

	"github.com/go-gl/mathgl/mgl32"
)

// cameraFingerprint captures everything about the view that changes what the
// kernel renders. Equality of fingerprints means the accumulated image is
// still valid for this camera.
type cameraFingerprint struct {
	position mgl32.Vec3
	yaw      float32
	pitch    float32
	fovY     float32
	width    uint32
	height   uint32
}

func fingerprint(cam *core.CameraState, width, height uint32) cameraFingerprint {
	return cameraFingerprint{
		position: cam.Position,
		yaw:      cam.Yaw,
		pitch:    cam.Pitch,
		fovY:     cam.FovY,
		width:    width,
		height:   height,
	}
}

// AccumTracker owns the progressive sample counter. It restarts accumulation
// when the rendered content changes (a committed scene edit, a camera move,
// or a resize) and keeps it running through everything else, selection in
// particular. The GPU side needs no separate clear: the kernel overwrites
// the accumulator on the first sample after a reset.
type AccumTracker struct {
	lastRevision uint64
	lastCamera   cameraFingerprint
	sampleCount  uint32
	forced       bool
	primed       bool
}

func NewAccumTracker() *AccumTracker {
	return &AccumTracker{}
}

// Update decides whether accumulation restarts this frame. renderRevision is
// Scene.RenderRevision; Revision alone never triggers a reset. Returns true
// when the counter was reset.
func (t *AccumTracker) Update(renderRevision uint64, cam *core.CameraState, width, height uint32) bool {
	fp := fingerprint(cam, width, height)

	reset := !t.primed || t.forced || renderRevision != t.lastRevision || fp != t.lastCamera
	t.lastRevision = renderRevision
	t.lastCamera = fp
	t.primed = true
	t.forced = false

	if reset {
		t.sampleCount = 0
	}
	return reset
}

// Advance records that one sample per pixel has been dispatched.
func (t *AccumTracker) Advance() { t.sampleCount++ }

// SampleCount is the number of fully accumulated samples per pixel. During a
// frame it is also the sample index the kernel is computing.
func (t *AccumTracker) SampleCount() uint32 { return t.sampleCount }

// ForceReset restarts accumulation on the next Update regardless of scene or
// camera state.
func (t *AccumTracker) ForceReset() { t.forced = true }
