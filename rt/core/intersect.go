package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// HitEpsilon is the minimum accepted ray parameter. Each primitive test
// applies it to its own roots, which avoids self-intersection acne without a
// shared global bias.
const HitEpsilon = 1e-4

// Ray in object-local space. Direction is expected to be unit length; the
// rotation-only local transform preserves that.
type Ray struct {
	Origin    mgl32.Vec3
	Direction mgl32.Vec3
}

// Hit is an object-space intersection result. Normal points out of the
// surface for rays arriving from outside.
type Hit struct {
	T      float32
	Point  mgl32.Vec3
	Normal mgl32.Vec3
}

// IntersectPrimitive dispatches on the object type. Degenerate parameters
// (non-positive radii/extents, non-finite scale) report a miss instead of
// propagating NaN, mirroring the kernel's behavior.
func IntersectPrimitive(typ ObjectType, scale mgl32.Vec3, ray Ray) (Hit, bool) {
	if !finiteVec(scale) || !finiteVec(ray.Origin) || !finiteVec(ray.Direction) {
		return Hit{}, false
	}
	switch typ {
	case TypeSphere:
		return IntersectSphere(scale.X(), ray)
	case TypeCuboid:
		return IntersectCuboid(scale, ray)
	case TypeCylinder:
		return IntersectCylinder(scale.X(), scale.Y(), ray)
	case TypeCone:
		return IntersectCone(scale.X(), scale.Y(), ray)
	case TypeTorus:
		return IntersectTorus(scale.X(), scale.Y(), ray)
	case TypeCapsule:
		return IntersectCapsule(scale.X(), scale.Y(), ray)
	}
	return Hit{}, false
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

// IntersectSphere tests against a sphere of the given radius centered at the
// origin.
func IntersectSphere(radius float32, ray Ray) (Hit, bool) {
	if radius <= 0 {
		return Hit{}, false
	}
	o, d := ray.Origin, ray.Direction
	a := d.Dot(d)
	b := 2 * o.Dot(d)
	c := o.Dot(o) - radius*radius

	disc := float64(b*b - 4*a*c)
	if disc < 0 || a == 0 {
		return Hit{}, false
	}
	sq := float32(math.Sqrt(disc))
	t := (-b - sq) / (2 * a)
	if t < HitEpsilon {
		t = (-b + sq) / (2 * a)
	}
	if t < HitEpsilon {
		return Hit{}, false
	}
	p := o.Add(d.Mul(t))
	return Hit{T: t, Point: p, Normal: p.Mul(1 / radius)}, true
}

// IntersectCuboid uses the slab method against an axis-aligned box with the
// given half extents. The normal is the axis of the slab that bounded the
// entry (or exit, for rays starting inside), signed against the ray.
func IntersectCuboid(half mgl32.Vec3, ray Ray) (Hit, bool) {
	if half.X() <= 0 || half.Y() <= 0 || half.Z() <= 0 {
		return Hit{}, false
	}
	o, d := ray.Origin, ray.Direction

	tMin := float32(math.Inf(-1))
	tMax := float32(math.Inf(1))
	axisMin, axisMax := -1, -1

	for i := 0; i < 3; i++ {
		if math.Abs(float64(d[i])) < 1e-9 {
			if o[i] < -half[i] || o[i] > half[i] {
				return Hit{}, false
			}
			continue
		}
		inv := 1 / d[i]
		t1 := (-half[i] - o[i]) * inv
		t2 := (half[i] - o[i]) * inv
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t1 > tMin {
			tMin = t1
			axisMin = i
		}
		if t2 < tMax {
			tMax = t2
			axisMax = i
		}
	}
	if tMax < tMin || tMax < HitEpsilon {
		return Hit{}, false
	}

	t := tMin
	axis := axisMin
	exiting := false
	if t < HitEpsilon {
		// Origin inside the box: the exit face is the visible one.
		t = tMax
		axis = axisMax
		exiting = true
	}
	if axis < 0 {
		return Hit{}, false
	}

	p := o.Add(d.Mul(t))
	var n mgl32.Vec3
	// Outward face normal: opposes the ray on entry, follows it on exit.
	if d[axis] > 0 {
		n[axis] = -1
	} else {
		n[axis] = 1
	}
	if exiting {
		n[axis] = -n[axis]
	}
	return Hit{T: t, Point: p, Normal: n}, true
}

// IntersectCylinder tests a capped cylinder with the given radius and half
// height, axis along local +Y.
func IntersectCylinder(radius, halfHeight float32, ray Ray) (Hit, bool) {
	if radius <= 0 || halfHeight <= 0 {
		return Hit{}, false
	}
	o, d := ray.Origin, ray.Direction

	best := float32(math.Inf(1))
	var bestN mgl32.Vec3

	// Side wall: x^2 + z^2 = r^2 clipped to |y| <= h.
	a := d.X()*d.X() + d.Z()*d.Z()
	if a > 1e-12 {
		b := 2 * (o.X()*d.X() + o.Z()*d.Z())
		c := o.X()*o.X() + o.Z()*o.Z() - radius*radius
		if disc := float64(b*b - 4*a*c); disc >= 0 {
			sq := float32(math.Sqrt(disc))
			for _, t := range [2]float32{(-b - sq) / (2 * a), (-b + sq) / (2 * a)} {
				if t < HitEpsilon || t >= best {
					continue
				}
				y := o.Y() + t*d.Y()
				if y < -halfHeight || y > halfHeight {
					continue
				}
				p := o.Add(d.Mul(t))
				best = t
				bestN = mgl32.Vec3{p.X() / radius, 0, p.Z() / radius}
			}
		}
	}

	// Cap discs at y = +/- h.
	if math.Abs(float64(d.Y())) > 1e-9 {
		for _, side := range [2]float32{1, -1} {
			t := (side*halfHeight - o.Y()) / d.Y()
			if t < HitEpsilon || t >= best {
				continue
			}
			px := o.X() + t*d.X()
			pz := o.Z() + t*d.Z()
			if px*px+pz*pz > radius*radius {
				continue
			}
			best = t
			bestN = mgl32.Vec3{0, side, 0}
		}
	}

	if math.IsInf(float64(best), 1) {
		return Hit{}, false
	}
	return Hit{T: best, Point: o.Add(d.Mul(best)), Normal: bestN}, true
}

// IntersectCone tests a capped cone with apex at y=+halfHeight (radius 0)
// and base disc at y=-halfHeight (radius baseRadius), axis along local +Y.
func IntersectCone(baseRadius, halfHeight float32, ray Ray) (Hit, bool) {
	if baseRadius <= 0 || halfHeight <= 0 {
		return Hit{}, false
	}
	o, d := ray.Origin, ray.Direction

	best := float32(math.Inf(1))
	var bestN mgl32.Vec3

	// Implicit side surface: x^2 + z^2 = k^2 (h - y)^2 with k = r_base / (2h).
	k := baseRadius / (2 * halfHeight)
	k2 := k * k
	w := halfHeight - o.Y()

	a := d.X()*d.X() + d.Z()*d.Z() - k2*d.Y()*d.Y()
	b := 2 * (o.X()*d.X() + o.Z()*d.Z() + k2*w*d.Y())
	c := o.X()*o.X() + o.Z()*o.Z() - k2*w*w

	sideNormal := func(p mgl32.Vec3) mgl32.Vec3 {
		n := mgl32.Vec3{p.X(), k2 * (halfHeight - p.Y()), p.Z()}
		if n.Len() < 1e-9 {
			// Exactly at the apex the gradient vanishes.
			return mgl32.Vec3{0, 1, 0}
		}
		return n.Normalize()
	}

	if math.Abs(float64(a)) > 1e-12 {
		if disc := float64(b*b - 4*a*c); disc >= 0 {
			sq := float32(math.Sqrt(disc))
			for _, t := range [2]float32{(-b - sq) / (2 * a), (-b + sq) / (2 * a)} {
				if t < HitEpsilon || t >= best {
					continue
				}
				y := o.Y() + t*d.Y()
				if y < -halfHeight || y > halfHeight {
					continue
				}
				p := o.Add(d.Mul(t))
				best = t
				bestN = sideNormal(p)
			}
		}
	} else if math.Abs(float64(b)) > 1e-12 {
		// Ray parallel to the cone surface: the quadratic degenerates.
		t := -c / b
		if t >= HitEpsilon {
			y := o.Y() + t*d.Y()
			if y >= -halfHeight && y <= halfHeight {
				p := o.Add(d.Mul(t))
				best = t
				bestN = sideNormal(p)
			}
		}
	}

	// Base disc.
	if math.Abs(float64(d.Y())) > 1e-9 {
		t := (-halfHeight - o.Y()) / d.Y()
		if t >= HitEpsilon && t < best {
			px := o.X() + t*d.X()
			pz := o.Z() + t*d.Z()
			if px*px+pz*pz <= baseRadius*baseRadius {
				best = t
				bestN = mgl32.Vec3{0, -1, 0}
			}
		}
	}

	if math.IsInf(float64(best), 1) {
		return Hit{}, false
	}
	return Hit{T: best, Point: o.Add(d.Mul(best)), Normal: bestN}, true
}

// IntersectCapsule tests a capsule of the given radius and total half height
// (end to end), axis along local +Y. When halfHeightTotal < radius the
// spherical caps swallow the segment and the shape degrades to a plain
// sphere, which is the intended behavior.
func IntersectCapsule(radius, halfHeightTotal float32, ray Ray) (Hit, bool) {
	if radius <= 0 || halfHeightTotal <= 0 {
		return Hit{}, false
	}
	segment := halfHeightTotal - radius
	if segment < 0 {
		segment = 0
	}
	o, d := ray.Origin, ray.Direction

	best := float32(math.Inf(1))
	var bestN mgl32.Vec3

	// Cylindrical body between the cap centers.
	if segment > 0 {
		a := d.X()*d.X() + d.Z()*d.Z()
		if a > 1e-12 {
			b := 2 * (o.X()*d.X() + o.Z()*d.Z())
			c := o.X()*o.X() + o.Z()*o.Z() - radius*radius
			if disc := float64(b*b - 4*a*c); disc >= 0 {
				sq := float32(math.Sqrt(disc))
				for _, t := range [2]float32{(-b - sq) / (2 * a), (-b + sq) / (2 * a)} {
					if t < HitEpsilon || t >= best {
						continue
					}
					y := o.Y() + t*d.Y()
					if y < -segment || y > segment {
						continue
					}
					p := o.Add(d.Mul(t))
					best = t
					bestN = mgl32.Vec3{p.X() / radius, 0, p.Z() / radius}
				}
			}
		}
	}

	// Spherical caps at (0, +/-segment, 0).
	for _, side := range [2]float32{1, -1} {
		center := mgl32.Vec3{0, side * segment, 0}
		oc := o.Sub(center)
		a := d.Dot(d)
		b := 2 * oc.Dot(d)
		c := oc.Dot(oc) - radius*radius
		disc := float64(b*b - 4*a*c)
		if disc < 0 || a == 0 {
			continue
		}
		sq := float32(math.Sqrt(disc))
		for _, t := range [2]float32{(-b - sq) / (2 * a), (-b + sq) / (2 * a)} {
			if t < HitEpsilon || t >= best {
				continue
			}
			p := o.Add(d.Mul(t))
			best = t
			bestN = p.Sub(center).Mul(1 / radius)
		}
	}

	if math.IsInf(float64(best), 1) {
		return Hit{}, false
	}
	return Hit{T: best, Point: o.Add(d.Mul(best)), Normal: bestN}, true
}

// IntersectTorus solves the closed-form quartic for a torus with the given
// major and minor radii, ring in the local XZ plane around +Y. The surface
// satisfies (|p|^2 + R^2 - r^2)^2 = 4 R^2 (p.x^2 + p.z^2). The quartic is
// resolved through its companion cubic in float64 to keep the roots stable.
func IntersectTorus(major, minor float32, ray Ray) (Hit, bool) {
	if major <= 0 || minor <= 0 {
		return Hit{}, false
	}

	dirLen := ray.Direction.Len()
	if dirLen < 1e-12 {
		return Hit{}, false
	}
	d := ray.Direction.Mul(1 / dirLen)
	o := ray.Origin

	ox, oy, oz := float64(o.X()), float64(o.Y()), float64(o.Z())
	dx, dy, dz := float64(d.X()), float64(d.Y()), float64(d.Z())
	R := float64(major)
	r := float64(minor)

	// With unit direction, |p|^2 + R^2 - r^2 = t^2 + 2 n t + k where
	// n = o.d and k = |o|^2 + R^2 - r^2.
	n := ox*dx + oy*dy + oz*dz
	q := ox*ox + oy*oy + oz*oz
	k := q + R*R - r*r
	fourR2 := 4 * R * R

	c3 := 4 * n
	c2 := 4*n*n + 2*k - fourR2*(dx*dx+dz*dz)
	c1 := 4*n*k - 2*fourR2*(ox*dx+oz*dz)
	c0 := k*k - fourR2*(ox*ox+oz*oz)

	roots := solveQuartic(c3, c2, c1, c0)
	best := math.Inf(1)
	for _, t := range roots {
		if t >= HitEpsilon && t < best {
			best = t
		}
	}
	if math.IsInf(best, 1) {
		return Hit{}, false
	}

	t := float32(best) / dirLen
	p := ray.Origin.Add(ray.Direction.Mul(t))

	// Gradient of the implicit function, up to a constant factor:
	// p * (|p|^2 + R^2 - r^2) - (2 R^2) * (p.x, 0, p.z).
	g := float64(p.X()*p.X()+p.Y()*p.Y()+p.Z()*p.Z()) + R*R - r*r
	normal := mgl32.Vec3{
		float32(float64(p.X())*g - 2*R*R*float64(p.X())),
		float32(float64(p.Y()) * g),
		float32(float64(p.Z())*g - 2*R*R*float64(p.Z())),
	}
	if normal.Len() < 1e-12 {
		return Hit{}, false
	}
	return Hit{T: t, Point: p, Normal: normal.Normalize()}, true
}

// solveQuartic returns the real roots of t^4 + b t^3 + c t^2 + d t + e via
// Ferrari's method: depress the quartic, solve the resolvent cubic, and
// split into two quadratics.
func solveQuartic(b, c, d, e float64) []float64 {
	// Depressed form u^4 + p u^2 + q u + r with t = u - b/4.
	shift := b / 4
	b2 := b * b
	p := c - 3*b2/8
	qq := d - b*c/2 + b2*b/8
	r := e - b*d/4 + b2*c/16 - 3*b2*b2/256

	roots := make([]float64, 0, 4)
	appendRoot := func(u float64) {
		roots = append(roots, u-shift)
	}

	if math.Abs(qq) < 1e-12 {
		// Biquadratic: u^2 = y for roots y of y^2 + p y + r.
		disc := p*p - 4*r
		if disc < 0 {
			return roots
		}
		sq := math.Sqrt(disc)
		for _, y := range [2]float64{(-p - sq) / 2, (-p + sq) / 2} {
			if y < 0 {
				continue
			}
			u := math.Sqrt(y)
			appendRoot(u)
			appendRoot(-u)
		}
		return roots
	}

	// Resolvent cubic z^3 + 2p z^2 + (p^2 - 4r) z - q^2 = 0. Its largest
	// real root is positive (the root product is q^2 > 0).
	z := largestCubicRoot(2*p, p*p-4*r, -qq*qq)
	if z <= 0 {
		return roots
	}
	m := math.Sqrt(z)
	half := (p + z) / 2
	offset := qq / (2 * m)

	// (u^2 + m u + half - offset)(u^2 - m u + half + offset)
	for _, sub := range [2][2]float64{{m, half - offset}, {-m, half + offset}} {
		sb, sc := sub[0], sub[1]
		disc := sb*sb - 4*sc
		if disc < 0 {
			continue
		}
		sq := math.Sqrt(disc)
		appendRoot((-sb - sq) / 2)
		appendRoot((-sb + sq) / 2)
	}
	return roots
}

// largestCubicRoot returns the largest real root of z^3 + a z^2 + b z + c.
func largestCubicRoot(a, b, c float64) float64 {
	// Depress with z = w - a/3: w^3 + p w + q.
	p := b - a*a/3
	q := c + 2*a*a*a/27 - a*b/3
	shift := a / 3

	disc := q*q/4 + p*p*p/27
	if disc > 0 {
		// One real root.
		sq := math.Sqrt(disc)
		w := math.Cbrt(-q/2+sq) + math.Cbrt(-q/2-sq)
		return w - shift
	}

	// Three real roots: trigonometric form. The k=0 branch is the largest.
	if p >= 0 {
		// p == 0 and disc <= 0 implies q == 0: triple root.
		return -shift
	}
	m := 2 * math.Sqrt(-p/3)
	arg := 3 * q / (p * m)
	if arg < -1 {
		arg = -1
	} else if arg > 1 {
		arg = 1
	}
	theta := math.Acos(arg) / 3
	return m*math.Cos(theta) - shift
}
