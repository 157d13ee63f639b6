package core

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// ObjectType discriminants are part of the GPU wire contract; the compute
// kernel switches on the same values. Do not renumber without updating
// raytrace.wgsl.
type ObjectType uint32

const (
	TypeSphere ObjectType = iota
	TypeCuboid
	TypeCylinder
	TypeCone
	TypeTorus
	TypeCapsule
)

func (t ObjectType) String() string {
	switch t {
	case TypeSphere:
		return "sphere"
	case TypeCuboid:
		return "cuboid"
	case TypeCylinder:
		return "cylinder"
	case TypeCone:
		return "cone"
	case TypeTorus:
		return "torus"
	case TypeCapsule:
		return "capsule"
	}
	return "unknown"
}

type MaterialKind uint32

const (
	MaterialPlastic MaterialKind = iota
	MaterialMetal
	MaterialGlass
	MaterialLight
)

type Material struct {
	Kind      MaterialKind
	Color     mgl32.Vec3
	Roughness float32 // metal fuzz, 0 = perfect mirror
	IOR       float32 // glass only
	Intensity float32 // light only
}

func DefaultMaterial() Material {
	return Material{
		Kind:  MaterialPlastic,
		Color: mgl32.Vec3{0.8, 0.8, 0.8},
		IOR:   1.5,
	}
}

// SceneObject is one primitive instance. The primitive type is fixed at
// creation; editing flows replace the object instead of mutating its type.
type SceneObject struct {
	ID        string
	Type      ObjectType
	Transform Transform
	Material  Material
	Visible   bool
}

func NewSceneObject(typ ObjectType) *SceneObject {
	return &SceneObject{
		ID:        uuid.NewString(),
		Type:      typ,
		Transform: NewTransform(),
		Material:  DefaultMaterial(),
		Visible:   true,
	}
}

// Scale encoding helpers. These are the authoritative mapping from
// UI-facing primitive parameters to the overloaded Scale vector.

func SphereScale(radius float32) mgl32.Vec3 {
	return mgl32.Vec3{radius, radius, radius}
}

func CuboidScale(halfX, halfY, halfZ float32) mgl32.Vec3 {
	return mgl32.Vec3{halfX, halfY, halfZ}
}

func CylinderScale(radius, height float32) mgl32.Vec3 {
	return mgl32.Vec3{radius, height / 2, radius}
}

func ConeScale(baseRadius, height float32) mgl32.Vec3 {
	return mgl32.Vec3{baseRadius, height / 2, baseRadius}
}

// CapsuleScale takes the total end-to-end height.
func CapsuleScale(radius, height float32) mgl32.Vec3 {
	return mgl32.Vec3{radius, height / 2, radius}
}

// TorusScale converts UI-facing inner/outer radii into the stored
// major/minor form: R = (outer+inner)/2, r = (outer-inner)/2.
func TorusScale(inner, outer float32) mgl32.Vec3 {
	major := (outer + inner) / 2
	minor := (outer - inner) / 2
	return mgl32.Vec3{major, minor, minor}
}

// Scene is the logical object list plus the two change signals consumers
// care about. Revision moves on every mutation including selection;
// RenderRevision moves only on committed edits, i.e. changes that affect
// rendered radiance. The accumulation controller resets exactly when
// RenderRevision moves.
type Scene struct {
	Objects    []*SceneObject
	Background mgl32.Vec3

	selectedID     string
	revision       uint64
	renderRevision uint64
}

func NewScene() *Scene {
	return &Scene{
		Background: mgl32.Vec3{0.55, 0.7, 0.9},
	}
}

func (s *Scene) Revision() uint64       { return s.revision }
func (s *Scene) RenderRevision() uint64 { return s.renderRevision }

func (s *Scene) touch()  { s.revision++ }
func (s *Scene) commit() { s.revision++; s.renderRevision++ }

func (s *Scene) AddObject(obj *SceneObject) {
	s.Objects = append(s.Objects, obj)
	s.commit()
}

func (s *Scene) RemoveObject(id string) bool {
	for i, o := range s.Objects {
		if o.ID == id {
			s.Objects = append(s.Objects[:i], s.Objects[i+1:]...)
			if s.selectedID == id {
				s.selectedID = ""
			}
			s.commit()
			return true
		}
	}
	return false
}

func (s *Scene) Object(id string) *SceneObject {
	for _, o := range s.Objects {
		if o.ID == id {
			return o
		}
	}
	return nil
}

func (s *Scene) SetTransform(id string, tr Transform) bool {
	obj := s.Object(id)
	if obj == nil {
		return false
	}
	obj.Transform = tr
	s.commit()
	return true
}

func (s *Scene) SetMaterial(id string, m Material) bool {
	obj := s.Object(id)
	if obj == nil {
		return false
	}
	obj.Material = m
	s.commit()
	return true
}

func (s *Scene) SetVisible(id string, visible bool) bool {
	obj := s.Object(id)
	if obj == nil {
		return false
	}
	if obj.Visible != visible {
		obj.Visible = visible
		s.commit()
	}
	return true
}

func (s *Scene) SetBackground(color mgl32.Vec3) {
	s.Background = color
	s.commit()
}

// Select records the active object. Selection has no effect on rendered
// radiance, so it moves Revision but never RenderRevision.
func (s *Scene) Select(id string) {
	if s.selectedID == id {
		return
	}
	s.selectedID = id
	s.touch()
}

func (s *Scene) SelectedID() string { return s.selectedID }

// VisibleObjects returns the insertion-ordered subset that participates in
// rendering and picking.
func (s *Scene) VisibleObjects() []*SceneObject {
	out := make([]*SceneObject, 0, len(s.Objects))
	for _, o := range s.Objects {
		if o.Visible {
			out = append(out, o)
		}
	}
	return out
}
