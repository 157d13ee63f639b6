package main

import (
	"flag"
	"math"
	"runtime"

	"github.com/prism3d/prism/log"
	"github.com/prism3d/prism/rt/app"
	"github.com/prism3d/prism/rt/core"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
)

func init() {
	runtime.LockOSThread()
}

func buildDemoScene(scene *core.Scene) {
	scene.SetBackground(mgl32.Vec3{0.05, 0.07, 0.12})

	floor := core.NewSceneObject(core.TypeCuboid)
	floor.Transform.Position = mgl32.Vec3{0, -1.1, 0}
	floor.Transform.Scale = core.CuboidScale(12, 0.1, 12)
	floor.Material = core.Material{Kind: core.MaterialPlastic, Color: mgl32.Vec3{0.7, 0.7, 0.7}}
	scene.AddObject(floor)

	sphere := core.NewSceneObject(core.TypeSphere)
	sphere.Transform.Position = mgl32.Vec3{-3, 0, -4}
	sphere.Transform.Scale = core.SphereScale(1)
	sphere.Material = core.Material{Kind: core.MaterialPlastic, Color: mgl32.Vec3{0.9, 0.2, 0.2}}
	scene.AddObject(sphere)

	cuboid := core.NewSceneObject(core.TypeCuboid)
	cuboid.Transform.Position = mgl32.Vec3{-1, 0, -4}
	cuboid.Transform.Rotation = mgl32.Vec3{0, 0.5, 0}
	cuboid.Transform.Scale = core.CuboidScale(0.7, 1.0, 0.7)
	cuboid.Material = core.Material{Kind: core.MaterialMetal, Color: mgl32.Vec3{0.8, 0.85, 0.9}, Roughness: 0.1}
	scene.AddObject(cuboid)

	cylinder := core.NewSceneObject(core.TypeCylinder)
	cylinder.Transform.Position = mgl32.Vec3{1, 0, -4}
	cylinder.Transform.Scale = core.CylinderScale(0.6, 2.0)
	cylinder.Material = core.Material{Kind: core.MaterialGlass, Color: mgl32.Vec3{0.95, 0.95, 1}, IOR: 1.5}
	scene.AddObject(cylinder)

	cone := core.NewSceneObject(core.TypeCone)
	cone.Transform.Position = mgl32.Vec3{3, 0, -4}
	cone.Transform.Scale = core.ConeScale(0.8, 2.0)
	cone.Material = core.Material{Kind: core.MaterialPlastic, Color: mgl32.Vec3{0.2, 0.6, 0.9}}
	scene.AddObject(cone)

	torus := core.NewSceneObject(core.TypeTorus)
	torus.Transform.Position = mgl32.Vec3{-2, 0.2, -6.5}
	torus.Transform.Rotation = mgl32.Vec3{float32(math.Pi / 2.5), 0, 0}
	torus.Transform.Scale = core.TorusScale(0.25, 1.2)
	torus.Material = core.Material{Kind: core.MaterialMetal, Color: mgl32.Vec3{0.95, 0.75, 0.3}, Roughness: 0.05}
	scene.AddObject(torus)

	capsule := core.NewSceneObject(core.TypeCapsule)
	capsule.Transform.Position = mgl32.Vec3{2, 0.2, -6.5}
	capsule.Transform.Rotation = mgl32.Vec3{0, 0, 0.9}
	capsule.Transform.Scale = core.CapsuleScale(0.45, 2.4)
	capsule.Material = core.Material{Kind: core.MaterialPlastic, Color: mgl32.Vec3{0.3, 0.8, 0.4}}
	scene.AddObject(capsule)

	lamp := core.NewSceneObject(core.TypeSphere)
	lamp.Transform.Position = mgl32.Vec3{0, 5, -4}
	lamp.Transform.Scale = core.SphereScale(1.5)
	lamp.Material = core.Material{Kind: core.MaterialLight, Color: mgl32.Vec3{1, 0.95, 0.85}, Intensity: 14}
	scene.AddObject(lamp)
}

func moveCamera(window *glfw.Window, cam *core.CameraState, dt float32) {
	forward := cam.GetForward()
	right := cam.GetRight()
	up := mgl32.Vec3{0, 1, 0}

	var delta mgl32.Vec3
	if window.GetKey(glfw.KeyW) == glfw.Press {
		delta = delta.Add(forward)
	}
	if window.GetKey(glfw.KeyS) == glfw.Press {
		delta = delta.Sub(forward)
	}
	if window.GetKey(glfw.KeyD) == glfw.Press {
		delta = delta.Add(right)
	}
	if window.GetKey(glfw.KeyA) == glfw.Press {
		delta = delta.Sub(right)
	}
	if window.GetKey(glfw.KeyE) == glfw.Press {
		delta = delta.Add(up)
	}
	if window.GetKey(glfw.KeyQ) == glfw.Press {
		delta = delta.Sub(up)
	}
	if delta.Len() > 0 {
		cam.Position = cam.Position.Add(delta.Normalize().Mul(cam.Speed * dt))
	}
}

func main() {
	debug := flag.Bool("debug", false, "enable debug logging")
	fontPath := flag.String("font", "", "TTF font for the HUD overlay (empty disables the HUD)")
	width := flag.Int("width", 1280, "window width")
	height := flag.Int("height", 720, "window height")
	sweep := flag.Bool("sweep", false, "orbit the camera continuously (worst-case accumulation benchmark)")
	flag.Parse()

	logger := log.NewDefaultLogger("prism", *debug)

	if err := glfw.Init(); err != nil {
		logger.Errorf("glfw init: %v", err)
		return
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	window, err := glfw.CreateWindow(*width, *height, "Prism Path Tracer", nil, nil)
	if err != nil {
		logger.Errorf("create window: %v", err)
		return
	}
	defer window.Destroy()

	a := app.NewApp(window, logger)
	buildDemoScene(a.Scene)
	if err := a.Init(*fontPath); err != nil {
		logger.Errorf("init renderer: %v", err)
		return
	}
	defer a.Destroy()

	window.SetFramebufferSizeCallback(func(w *glfw.Window, fbW, fbH int) {
		a.Resize(fbW, fbH)
	})

	var lastX, lastY float64
	var haveCursor bool
	window.SetCursorPosCallback(func(w *glfw.Window, xpos, ypos float64) {
		if !a.MouseCaptured {
			haveCursor = false
			return
		}
		if haveCursor {
			cam := a.Camera
			cam.Yaw += float32(xpos-lastX) * cam.Sensitivity
			cam.Pitch -= float32(ypos-lastY) * cam.Sensitivity
			limit := float32(math.Pi/2 - 0.01)
			cam.Pitch = mgl32.Clamp(cam.Pitch, -limit, limit)
		}
		lastX, lastY = xpos, ypos
		haveCursor = true
	})

	window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if action != glfw.Press {
			return
		}
		switch key {
		case glfw.KeyEscape:
			w.SetShouldClose(true)
		case glfw.KeyTab:
			a.MouseCaptured = !a.MouseCaptured
			if a.MouseCaptured {
				w.SetInputMode(glfw.CursorMode, glfw.CursorDisabled)
			} else {
				w.SetInputMode(glfw.CursorMode, glfw.CursorNormal)
			}
			haveCursor = false
		case glfw.KeyR:
			a.ResetAccumulation()
		case glfw.KeyH:
			a.ShowHUD = !a.ShowHUD
		case glfw.KeyDelete, glfw.KeyBackspace:
			if id := a.Scene.SelectedID(); id != "" {
				a.Scene.RemoveObject(id)
			}
		case glfw.KeyV:
			if id := a.Scene.SelectedID(); id != "" {
				if obj := a.Scene.Object(id); obj != nil {
					a.Scene.SetVisible(id, !obj.Visible)
				}
			}
		}
	})

	window.SetMouseButtonCallback(func(w *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
		a.HandleClick(button, action)
	})

	logger.Infof("starting render loop (%d objects)", len(a.Scene.Objects))

	lastTime := glfw.GetTime()
	for !window.ShouldClose() {
		glfw.PollEvents()

		now := glfw.GetTime()
		dt := float32(now - lastTime)
		lastTime = now

		if *sweep {
			// Constant orbit around the scene center; every frame restarts
			// accumulation, which is exactly the load being measured.
			angle := float32(now * 0.3)
			cam := a.Camera
			cam.Position = mgl32.Vec3{6 * float32(math.Sin(float64(angle))), 2, 6 * float32(math.Cos(float64(angle))) - 4}
			cam.Yaw = -angle
			cam.Pitch = -0.15
		} else if a.MouseCaptured {
			moveCamera(window, a.Camera, dt)
		}

		if err := a.Tick(); err != nil {
			logger.Errorf("frame failed: %v", err)
			return
		}
	}
}
