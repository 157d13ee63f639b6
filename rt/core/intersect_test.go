package core

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

const tol = 1e-4

func approx(a, b float32) bool {
	return math.Abs(float64(a-b)) < tol
}

func approxVec(a, b mgl32.Vec3) bool {
	return approx(a.X(), b.X()) && approx(a.Y(), b.Y()) && approx(a.Z(), b.Z())
}

func rayZ() Ray {
	return Ray{Origin: mgl32.Vec3{0, 0, 5}, Direction: mgl32.Vec3{0, 0, -1}}
}

func TestSphereAnalyticHit(t *testing.T) {
	hit, ok := IntersectSphere(1.0, rayZ())
	if !ok {
		t.Fatal("expected hit on unit sphere")
	}
	if !approx(hit.T, 4.0) {
		t.Errorf("t = %f, want 4.0", hit.T)
	}
	if !approxVec(hit.Point, mgl32.Vec3{0, 0, 1}) {
		t.Errorf("point = %v, want (0,0,1)", hit.Point)
	}
	if !approxVec(hit.Normal, mgl32.Vec3{0, 0, 1}) {
		t.Errorf("normal = %v, want (0,0,1)", hit.Normal)
	}
}

func TestSphereFromInside(t *testing.T) {
	hit, ok := IntersectSphere(2.0, Ray{Origin: mgl32.Vec3{0, 0, 0}, Direction: mgl32.Vec3{0, 0, -1}})
	if !ok {
		t.Fatal("expected exit hit from inside")
	}
	if !approx(hit.T, 2.0) {
		t.Errorf("t = %f, want 2.0", hit.T)
	}
}

func TestCuboidSlab(t *testing.T) {
	hit, ok := IntersectCuboid(mgl32.Vec3{1, 2, 0.5}, rayZ())
	if !ok {
		t.Fatal("expected hit on cuboid")
	}
	if !approx(hit.T, 4.5) {
		t.Errorf("t = %f, want 4.5", hit.T)
	}
	if !approxVec(hit.Normal, mgl32.Vec3{0, 0, 1}) {
		t.Errorf("normal = %v, want (0,0,1)", hit.Normal)
	}

	// Off-axis ray entering through the +X face.
	side := Ray{Origin: mgl32.Vec3{5, 0, 0}, Direction: mgl32.Vec3{-1, 0, 0}}
	hit, ok = IntersectCuboid(mgl32.Vec3{1, 1, 1}, side)
	if !ok {
		t.Fatal("expected hit on cuboid from +X")
	}
	if !approx(hit.T, 4.0) {
		t.Errorf("t = %f, want 4.0", hit.T)
	}
	if !approxVec(hit.Normal, mgl32.Vec3{1, 0, 0}) {
		t.Errorf("normal = %v, want (1,0,0)", hit.Normal)
	}
}

func TestCuboidInsideOrigin(t *testing.T) {
	hit, ok := IntersectCuboid(mgl32.Vec3{1, 1, 1}, Ray{Origin: mgl32.Vec3{0, 0, 0}, Direction: mgl32.Vec3{0, 0, -1}})
	if !ok {
		t.Fatal("expected exit hit from inside cuboid")
	}
	if !approx(hit.T, 1.0) {
		t.Errorf("t = %f, want 1.0", hit.T)
	}
	// Outward normal of the -Z face.
	if !approxVec(hit.Normal, mgl32.Vec3{0, 0, -1}) {
		t.Errorf("normal = %v, want (0,0,-1)", hit.Normal)
	}
}

func TestCylinderSideAndCap(t *testing.T) {
	hit, ok := IntersectCylinder(1.0, 2.0, rayZ())
	if !ok {
		t.Fatal("expected side hit on cylinder")
	}
	if !approx(hit.T, 4.0) {
		t.Errorf("side t = %f, want 4.0", hit.T)
	}
	if !approxVec(hit.Normal, mgl32.Vec3{0, 0, 1}) {
		t.Errorf("side normal = %v, want (0,0,1)", hit.Normal)
	}

	down := Ray{Origin: mgl32.Vec3{0.5, 5, 0}, Direction: mgl32.Vec3{0, -1, 0}}
	hit, ok = IntersectCylinder(1.0, 2.0, down)
	if !ok {
		t.Fatal("expected cap hit on cylinder")
	}
	if !approx(hit.T, 3.0) {
		t.Errorf("cap t = %f, want 3.0", hit.T)
	}
	if !approxVec(hit.Normal, mgl32.Vec3{0, 1, 0}) {
		t.Errorf("cap normal = %v, want (0,1,0)", hit.Normal)
	}
}

func TestConeSideAndBase(t *testing.T) {
	// baseRadius 1, halfHeight 1: radius at y=0 is 0.5.
	hit, ok := IntersectCone(1.0, 1.0, rayZ())
	if !ok {
		t.Fatal("expected side hit on cone")
	}
	if !approx(hit.T, 4.5) {
		t.Errorf("side t = %f, want 4.5", hit.T)
	}
	if hit.Normal.Z() <= 0 || hit.Normal.Y() <= 0 {
		t.Errorf("side normal = %v, want +Z and +Y components", hit.Normal)
	}

	// Straight down through the apex region still exits through the base.
	down := Ray{Origin: mgl32.Vec3{0, 5, 0}, Direction: mgl32.Vec3{0, -1, 0}}
	hit, ok = IntersectCone(1.0, 1.0, down)
	if !ok {
		t.Fatal("expected hit on cone from above")
	}
	// Apex is at y=+1, so the first surface point is at t=4.
	if !approx(hit.T, 4.0) {
		t.Errorf("apex t = %f, want 4.0", hit.T)
	}

	up := Ray{Origin: mgl32.Vec3{0.5, -5, 0}, Direction: mgl32.Vec3{0, 1, 0}}
	hit, ok = IntersectCone(1.0, 1.0, up)
	if !ok {
		t.Fatal("expected base hit on cone from below")
	}
	if !approx(hit.T, 4.0) {
		t.Errorf("base t = %f, want 4.0", hit.T)
	}
	if !approxVec(hit.Normal, mgl32.Vec3{0, -1, 0}) {
		t.Errorf("base normal = %v, want (0,-1,0)", hit.Normal)
	}
}

func TestCapsuleBodyAndCaps(t *testing.T) {
	// radius 0.5, total half height 1.5 -> segment half 1.0.
	hit, ok := IntersectCapsule(0.5, 1.5, rayZ())
	if !ok {
		t.Fatal("expected body hit on capsule")
	}
	if !approx(hit.T, 4.5) {
		t.Errorf("body t = %f, want 4.5", hit.T)
	}

	down := Ray{Origin: mgl32.Vec3{0, 5, 0}, Direction: mgl32.Vec3{0, -1, 0}}
	hit, ok = IntersectCapsule(0.5, 1.5, down)
	if !ok {
		t.Fatal("expected cap hit on capsule")
	}
	// Top of the capsule is at y = segment + radius = 1.5.
	if !approx(hit.T, 3.5) {
		t.Errorf("cap t = %f, want 3.5", hit.T)
	}
	if !approxVec(hit.Normal, mgl32.Vec3{0, 1, 0}) {
		t.Errorf("cap normal = %v, want (0,1,0)", hit.Normal)
	}
}

func TestCapsuleDegeneratesToSphere(t *testing.T) {
	// Total height 0.6 < 2*radius 1.0: behaves as a sphere of radius 0.5.
	rays := []Ray{
		rayZ(),
		{Origin: mgl32.Vec3{0.2, 3, 0.1}, Direction: mgl32.Vec3{-0.05, -1, 0}.Normalize()},
		{Origin: mgl32.Vec3{-2, 1, 2}, Direction: mgl32.Vec3{1, -0.5, -1}.Normalize()},
	}
	for i, r := range rays {
		capHit, capOk := IntersectCapsule(0.5, 0.3, r)
		sphHit, sphOk := IntersectSphere(0.5, r)
		if capOk != sphOk {
			t.Errorf("ray %d: capsule ok=%v, sphere ok=%v", i, capOk, sphOk)
			continue
		}
		if !capOk {
			continue
		}
		if !approx(capHit.T, sphHit.T) {
			t.Errorf("ray %d: capsule t=%f, sphere t=%f", i, capHit.T, sphHit.T)
		}
		if !approxVec(capHit.Normal, sphHit.Normal) {
			t.Errorf("ray %d: capsule normal=%v, sphere normal=%v", i, capHit.Normal, sphHit.Normal)
		}
	}
}

func TestTorusQuartic(t *testing.T) {
	// Major 1, minor 0.25: outer rim at 1.25 in the XZ plane.
	hit, ok := IntersectTorus(1.0, 0.25, rayZ())
	if !ok {
		t.Fatal("expected hit on torus outer rim")
	}
	if !approx(hit.T, 3.75) {
		t.Errorf("t = %f, want 3.75", hit.T)
	}
	if !approxVec(hit.Normal, mgl32.Vec3{0, 0, 1}) {
		t.Errorf("normal = %v, want (0,0,1)", hit.Normal)
	}
}

func TestTorusHole(t *testing.T) {
	// Straight down the ring axis goes through the hole.
	down := Ray{Origin: mgl32.Vec3{0, 5, 0}, Direction: mgl32.Vec3{0, -1, 0}}
	if _, ok := IntersectTorus(1.0, 0.25, down); ok {
		t.Error("ray through the torus hole must miss")
	}

	// Down through the tube center at x = major radius.
	tube := Ray{Origin: mgl32.Vec3{1, 5, 0}, Direction: mgl32.Vec3{0, -1, 0}}
	hit, ok := IntersectTorus(1.0, 0.25, tube)
	if !ok {
		t.Fatal("expected hit through tube center")
	}
	if !approx(hit.T, 4.75) {
		t.Errorf("t = %f, want 4.75", hit.T)
	}
	if !approxVec(hit.Normal, mgl32.Vec3{0, 1, 0}) {
		t.Errorf("normal = %v, want (0,1,0)", hit.Normal)
	}
}

func TestDegenerateParametersNeverHit(t *testing.T) {
	// Each ray would hit the valid version of its shape.
	r := rayZ()

	if _, ok := IntersectSphere(0, r); ok {
		t.Error("sphere radius 0 must miss")
	}
	if _, ok := IntersectSphere(-1, r); ok {
		t.Error("sphere negative radius must miss")
	}
	if _, ok := IntersectCuboid(mgl32.Vec3{1, 0, 1}, r); ok {
		t.Error("cuboid with zero extent must miss")
	}
	if _, ok := IntersectCylinder(1, 0, r); ok {
		t.Error("cylinder with zero height must miss")
	}
	if _, ok := IntersectCylinder(-1, 1, r); ok {
		t.Error("cylinder with negative radius must miss")
	}
	if _, ok := IntersectCone(0, 1, r); ok {
		t.Error("cone with zero base radius must miss")
	}
	if _, ok := IntersectCapsule(0, 1, r); ok {
		t.Error("capsule with zero radius must miss")
	}
	// Torus with outer <= inner encodes as minor <= 0.
	if _, ok := IntersectTorus(1, 0, r); ok {
		t.Error("torus with zero minor radius must miss")
	}
	if _, ok := IntersectTorus(1, -0.5, r); ok {
		t.Error("torus with negative minor radius must miss")
	}

	nan := float32(math.NaN())
	if _, ok := IntersectPrimitive(TypeSphere, mgl32.Vec3{nan, 1, 1}, r); ok {
		t.Error("NaN scale must miss")
	}
}

func TestIntersectPrimitiveDispatch(t *testing.T) {
	r := rayZ()
	cases := []struct {
		typ   ObjectType
		scale mgl32.Vec3
		wantT float32
	}{
		{TypeSphere, SphereScale(1), 4.0},
		{TypeCuboid, CuboidScale(1, 1, 1), 4.0},
		{TypeCylinder, CylinderScale(1, 4), 4.0},
		{TypeCone, ConeScale(1, 2), 4.5},
		{TypeTorus, TorusScale(0.75, 1.25), 3.75},
		{TypeCapsule, CapsuleScale(0.5, 3), 4.5},
	}
	for _, tc := range cases {
		hit, ok := IntersectPrimitive(tc.typ, tc.scale, r)
		if !ok {
			t.Errorf("%s: expected hit", tc.typ)
			continue
		}
		if !approx(hit.T, tc.wantT) {
			t.Errorf("%s: t = %f, want %f", tc.typ, hit.T, tc.wantT)
		}
	}
}

func TestQuarticSolverKnownRoots(t *testing.T) {
	// (t-1)(t-2)(t-3)(t-4) = t^4 - 10t^3 + 35t^2 - 50t + 24
	roots := solveQuartic(-10, 35, -50, 24)
	if len(roots) != 4 {
		t.Fatalf("expected 4 real roots, got %d: %v", len(roots), roots)
	}
	want := map[int]bool{1: false, 2: false, 3: false, 4: false}
	for _, r := range roots {
		for w := range want {
			if math.Abs(r-float64(w)) < 1e-6 {
				want[w] = true
			}
		}
	}
	for w, found := range want {
		if !found {
			t.Errorf("root %d not found in %v", w, roots)
		}
	}

	// t^4 + 1 has no real roots.
	if roots := solveQuartic(0, 0, 0, 1); len(roots) != 0 {
		t.Errorf("t^4+1 should have no real roots, got %v", roots)
	}
}
