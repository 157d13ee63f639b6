package app

import (
	"fmt"
	"unsafe"

	"github.com/prism3d/prism/log"
	"github.com/prism3d/prism/rt/core"
	"github.com/prism3d/prism/rt/editor"
	"github.com/prism3d/prism/rt/gpu"
	"github.com/prism3d/prism/rt/shaders"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// App owns the window surface, the WebGPU pipelines and the frame loop of
// the progressive path tracer. One instance per window; all methods must run
// on the main thread.
type App struct {
	Window   *glfw.Window
	Instance *wgpu.Instance
	Adapter  *wgpu.Adapter
	Device   *wgpu.Device
	Queue    *wgpu.Queue
	Surface  *wgpu.Surface
	Config   *wgpu.SurfaceConfiguration

	RaytracePipeline *wgpu.ComputePipeline
	BlitPipeline     *wgpu.RenderPipeline

	StorageTexture *wgpu.Texture
	StorageView    *wgpu.TextureView
	Sampler        *wgpu.Sampler

	OutputBindGroup *wgpu.BindGroup // compute group 1: storage texture
	BlitBindGroup   *wgpu.BindGroup

	Buffers *gpu.BufferManager
	Scene   *core.Scene
	Camera  *core.CameraState
	Accum   *AccumTracker
	Log     log.Logger

	TextAtlas        *core.TextAtlas
	TextPipeline     *wgpu.RenderPipeline
	TextAtlasView    *wgpu.TextureView
	TextBindGroup    *wgpu.BindGroup
	TextVertexBuffer *wgpu.Buffer
	TextVertexCount  uint32
	ShowHUD          bool

	MouseCaptured bool

	lastSyncedRevision uint64
	sceneSynced        bool

	FrameCount int
	FPS        float64
	fpsTime    float64
	lastFrame  float64
}

func NewApp(window *glfw.Window, logger log.Logger) *App {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &App{
		Window:  window,
		Scene:   core.NewScene(),
		Camera:  core.NewCameraState(),
		Accum:   NewAccumTracker(),
		Log:     logger,
		ShowHUD: true,
	}
}

// Init brings up the device, pipelines and buffers. A missing WebGPU backend
// surfaces here as an adapter or device error; nothing is rendered until
// Init returns nil.
func (a *App) Init(fontPath string) error {
	a.Instance = wgpu.CreateInstance(nil)
	a.Surface = a.Instance.CreateSurface(wgpuglfw.GetSurfaceDescriptor(a.Window))

	adapter, err := a.Instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: a.Surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		return fmt.Errorf("request adapter (is a WebGPU backend available?): %w", err)
	}
	a.Adapter = adapter

	a.Device, err = adapter.RequestDevice(nil)
	if err != nil {
		return fmt.Errorf("request device: %w", err)
	}
	a.Queue = a.Device.GetQueue()

	width, height := a.Window.GetFramebufferSize()
	caps := a.Surface.GetCapabilities(adapter)
	format := caps.Formats[0]
	a.Config = &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      format,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: wgpu.PresentModeFifo,
		AlphaMode:   caps.AlphaModes[0],
	}
	a.Surface.Configure(adapter, a.Device, a.Config)
	a.Log.Infof("surface configured: %dx%d, format %v", width, height, format)

	csModule, err := a.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "Raytrace CS",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.RaytraceWGSL},
	})
	if err != nil {
		return fmt.Errorf("compile raytrace shader: %w", err)
	}
	a.RaytracePipeline, err = a.Device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label: "Raytrace Pipeline",
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     csModule,
			EntryPoint: "main",
		},
	})
	if err != nil {
		return fmt.Errorf("create raytrace pipeline: %w", err)
	}

	fsModule, err := a.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "Fullscreen VS/FS",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.FullscreenWGSL},
	})
	if err != nil {
		return fmt.Errorf("compile blit shader: %w", err)
	}
	a.BlitPipeline, err = a.Device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label: "Blit Pipeline",
		Vertex: wgpu.VertexState{
			Module:     fsModule,
			EntryPoint: "vs_main",
		},
		Fragment: &wgpu.FragmentState{
			Module:     fsModule,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{{
				Format:    format,
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology: wgpu.PrimitiveTopologyTriangleList,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return fmt.Errorf("create blit pipeline: %w", err)
	}

	a.Buffers = gpu.NewBufferManager(a.Device)
	a.Sampler, err = a.Device.CreateSampler(&wgpu.SamplerDescriptor{
		MinFilter:     wgpu.FilterModeLinear,
		MagFilter:     wgpu.FilterModeLinear,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return fmt.Errorf("create sampler: %w", err)
	}

	if fontPath != "" {
		a.TextAtlas, err = core.NewTextAtlas(fontPath, 18)
		if err != nil {
			a.Log.Warnf("HUD disabled: %v", err)
			a.TextAtlas = nil
		} else {
			a.setupTextResources()
		}
	}

	a.setupTextures(width, height)

	// Seed buffers so bind groups can be created before the first frame.
	a.uploadCamera(uint32(width), uint32(height))
	a.Buffers.UpdateScene(a.Scene.Objects)
	a.Buffers.EnsureAccumulation(uint32(width), uint32(height))
	a.setupBindGroups()
	a.Buffers.CreateBindGroups(a.RaytracePipeline)

	a.lastFrame = glfw.GetTime()
	return nil
}

func (a *App) setupTextures(w, h int) {
	if w == 0 || h == 0 {
		return
	}
	if a.StorageTexture != nil {
		a.StorageTexture.Release()
	}
	var err error
	a.StorageTexture, err = a.Device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "Raytrace Output",
		Size:          wgpu.Extent3D{Width: uint32(w), Height: uint32(h), DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatRGBA8Unorm,
		Usage:         wgpu.TextureUsageStorageBinding | wgpu.TextureUsageTextureBinding,
		SampleCount:   1,
	})
	if err != nil {
		panic(err)
	}
	a.StorageView, err = a.StorageTexture.CreateView(nil)
	if err != nil {
		panic(err)
	}
}

func (a *App) setupBindGroups() {
	var err error
	a.OutputBindGroup, err = a.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Layout: a.RaytracePipeline.GetBindGroupLayout(1),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: a.StorageView},
		},
	})
	if err != nil {
		panic(err)
	}

	a.BlitBindGroup, err = a.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Layout: a.BlitPipeline.GetBindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: a.StorageView},
			{Binding: 1, Sampler: a.Sampler},
		},
	})
	if err != nil {
		panic(err)
	}
}

// Resize reconfigures the surface and output texture. The accumulation reset
// follows automatically from the tracker's size fingerprint.
func (a *App) Resize(w, h int) {
	if w <= 0 || h <= 0 {
		return
	}
	a.Config.Width = uint32(w)
	a.Config.Height = uint32(h)
	a.Surface.Configure(a.Adapter, a.Device, a.Config)
	a.setupTextures(w, h)
	a.setupBindGroups()
	if a.Buffers.EnsureAccumulation(uint32(w), uint32(h)) {
		a.Buffers.CreateBindGroups(a.RaytracePipeline)
	}
	a.Log.Debugf("resized to %dx%d", w, h)
}

// ResetAccumulation restarts progressive rendering on the next frame.
func (a *App) ResetAccumulation() { a.Accum.ForceReset() }

// SampleCount reports the accumulated samples per pixel.
func (a *App) SampleCount() uint32 { return a.Accum.SampleCount() }

func (a *App) uploadCamera(width, height uint32) {
	aspect := float32(width) / float32(height)
	view := a.Camera.GetViewMatrix()
	proj := a.Camera.GetProjectionMatrix(aspect)
	a.Buffers.UpdateCamera(
		proj.Inv(), view.Inv(),
		a.Camera.Position, a.Scene.Background,
		a.Accum.SampleCount(), width, height,
	)
}

// Tick renders one frame: sync dirty state, dispatch one sample per pixel,
// blit to the surface, draw the HUD, present. Sample count advances only
// after the dispatch is submitted.
func (a *App) Tick() error {
	width := a.Config.Width
	height := a.Config.Height
	if width == 0 || height == 0 {
		return nil
	}

	if a.Accum.Update(a.Scene.RenderRevision(), a.Camera, width, height) {
		a.Log.Debugf("accumulation reset at revision %d", a.Scene.RenderRevision())
	}

	if !a.sceneSynced || a.Scene.RenderRevision() != a.lastSyncedRevision {
		if a.Buffers.UpdateScene(a.Scene.Objects) {
			a.Buffers.CreateBindGroups(a.RaytracePipeline)
		}
		a.lastSyncedRevision = a.Scene.RenderRevision()
		a.sceneSynced = true
	}

	a.uploadCamera(width, height)
	a.updateHUD()

	nextTexture, err := a.Surface.GetCurrentTexture()
	if err != nil {
		return fmt.Errorf("acquire surface texture: %w", err)
	}
	defer nextTexture.Release()

	view, err := nextTexture.CreateView(nil)
	if err != nil {
		return fmt.Errorf("create surface view: %w", err)
	}
	defer view.Release()

	encoder, err := a.Device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}

	cPass := encoder.BeginComputePass(nil)
	cPass.SetPipeline(a.RaytracePipeline)
	cPass.SetBindGroup(0, a.Buffers.BindGroup0, nil)
	cPass.SetBindGroup(1, a.OutputBindGroup, nil)
	cPass.DispatchWorkgroups((width+7)/8, (height+7)/8, 1)
	if err := cPass.End(); err != nil {
		return fmt.Errorf("compute pass: %w", err)
	}

	rPass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{R: 0, G: 0, B: 0, A: 1},
		}},
	})
	rPass.SetPipeline(a.BlitPipeline)
	rPass.SetBindGroup(0, a.BlitBindGroup, nil)
	rPass.Draw(3, 1, 0, 0)

	if a.TextVertexCount > 0 && a.TextVertexBuffer != nil && a.TextPipeline != nil {
		rPass.SetPipeline(a.TextPipeline)
		rPass.SetBindGroup(0, a.TextBindGroup, nil)
		rPass.SetVertexBuffer(0, a.TextVertexBuffer, 0, a.TextVertexBuffer.GetSize())
		rPass.Draw(a.TextVertexCount, 1, 0, 0)
	}
	if err := rPass.End(); err != nil {
		return fmt.Errorf("render pass: %w", err)
	}

	cmd, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("finish encoder: %w", err)
	}
	a.Queue.Submit(cmd)
	a.Surface.Present()

	a.Accum.Advance()
	a.tickFPS()
	return nil
}

func (a *App) tickFPS() {
	now := glfw.GetTime()
	if a.lastFrame > 0 {
		a.FrameCount++
		a.fpsTime += now - a.lastFrame
		if a.fpsTime >= 1.0 {
			a.FPS = float64(a.FrameCount) / a.fpsTime
			a.FrameCount = 0
			a.fpsTime = 0
		}
	}
	a.lastFrame = now
}

func (a *App) updateHUD() {
	a.TextVertexCount = 0
	if !a.ShowHUD || a.TextAtlas == nil || a.TextPipeline == nil {
		return
	}

	items := []core.TextItem{{
		Text:     fmt.Sprintf("FPS: %.1f\nSamples: %d", a.FPS, a.Accum.SampleCount()),
		Position: [2]float32{10, 10},
		Scale:    1.0,
		Color:    [4]float32{1, 1, 0, 1},
	}}
	if id := a.Scene.SelectedID(); id != "" {
		if obj := a.Scene.Object(id); obj != nil {
			items = append(items, core.TextItem{
				Text:     fmt.Sprintf("Selected: %s", obj.Type),
				Position: [2]float32{10, 10 + 2*a.TextAtlas.LineHeight(1.0)},
				Scale:    1.0,
				Color:    [4]float32{0.4, 1, 0.4, 1},
			})
		}
	}

	vertices := a.TextAtlas.BuildVertices(items, int(a.Config.Width), int(a.Config.Height))
	if len(vertices) == 0 {
		return
	}
	vSize := uint64(len(vertices) * int(unsafe.Sizeof(core.TextVertex{})))
	if a.TextVertexBuffer == nil || a.TextVertexBuffer.GetSize() < vSize {
		if a.TextVertexBuffer != nil {
			a.TextVertexBuffer.Release()
		}
		var err error
		a.TextVertexBuffer, err = a.Device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: "Text VB",
			Size:  vSize,
			Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			panic(err)
		}
	}
	a.Queue.WriteBuffer(a.TextVertexBuffer, 0, unsafe.Slice((*byte)(unsafe.Pointer(&vertices[0])), vSize))
	a.TextVertexCount = uint32(len(vertices))
}

// HandleClick picks the object under the cursor and updates the selection.
// Selection never resets accumulation.
func (a *App) HandleClick(button glfw.MouseButton, action glfw.Action) {
	if a.MouseCaptured || action != glfw.Press || button != glfw.MouseButtonLeft {
		return
	}

	x, y := a.Window.GetCursorPos()
	w, h := a.Window.GetSize()
	ray := editor.GetPickRay(x, y, w, h, a.Camera)
	hit := editor.Pick(a.Scene, ray)

	if hit == nil {
		a.Scene.Select("")
		return
	}
	a.Scene.Select(hit.ID)
	a.Log.Debugf("picked %s (%s) at t=%.3f", hit.ID, a.Scene.Objects[hit.Index].Type, hit.T)
}

func (a *App) setupTextResources() {
	atlas := a.TextAtlas
	w := atlas.Image.Bounds().Dx()
	h := atlas.Image.Bounds().Dy()

	tex, err := a.Device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "Text Atlas",
		Size:          wgpu.Extent3D{Width: uint32(w), Height: uint32(h), DepthOrArrayLayers: 1},
		Format:        wgpu.TextureFormatR8Unorm,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension:     wgpu.TextureDimension2D,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		panic(err)
	}
	a.Queue.WriteTexture(tex.AsImageCopy(), atlas.Image.Pix, &wgpu.TextureDataLayout{
		Offset:       0,
		BytesPerRow:  uint32(w),
		RowsPerImage: uint32(h),
	}, &wgpu.Extent3D{Width: uint32(w), Height: uint32(h), DepthOrArrayLayers: 1})
	a.TextAtlasView, err = tex.CreateView(nil)
	if err != nil {
		panic(err)
	}

	textMod, err := a.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "Text Shader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.TextWGSL},
	})
	if err != nil {
		a.Log.Errorf("text shader module: %v", err)
		return
	}

	a.TextPipeline, err = a.Device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label: "Text Pipeline",
		Vertex: wgpu.VertexState{
			Module:     textMod,
			EntryPoint: "vs_main",
			Buffers: []wgpu.VertexBufferLayout{{
				ArrayStride: uint64(unsafe.Sizeof(core.TextVertex{})),
				StepMode:    wgpu.VertexStepModeVertex,
				Attributes: []wgpu.VertexAttribute{
					{Format: wgpu.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},
					{Format: wgpu.VertexFormatFloat32x2, Offset: 8, ShaderLocation: 1},
					{Format: wgpu.VertexFormatFloat32x4, Offset: 16, ShaderLocation: 2},
				},
			}},
		},
		Fragment: &wgpu.FragmentState{
			Module:     textMod,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{{
				Format: a.Config.Format,
				Blend: &wgpu.BlendState{
					Color: wgpu.BlendComponent{
						SrcFactor: wgpu.BlendFactorSrcAlpha,
						DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
						Operation: wgpu.BlendOperationAdd,
					},
					Alpha: wgpu.BlendComponent{
						SrcFactor: wgpu.BlendFactorOne,
						DstFactor: wgpu.BlendFactorOne,
						Operation: wgpu.BlendOperationAdd,
					},
				},
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology: wgpu.PrimitiveTopologyTriangleList,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		a.Log.Errorf("text pipeline: %v", err)
		return
	}

	a.TextBindGroup, err = a.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Layout: a.TextPipeline.GetBindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: a.TextAtlasView},
			{Binding: 1, Sampler: a.Sampler},
		},
	})
	if err != nil {
		a.Log.Errorf("text bind group: %v", err)
	}
}

// Destroy releases GPU resources. The window is owned by the caller.
func (a *App) Destroy() {
	if a.Buffers != nil {
		a.Buffers.Release()
	}
	if a.TextVertexBuffer != nil {
		a.TextVertexBuffer.Release()
		a.TextVertexBuffer = nil
	}
	if a.StorageTexture != nil {
		a.StorageTexture.Release()
		a.StorageTexture = nil
	}
	if a.Device != nil {
		a.Device.Release()
		a.Device = nil
	}
}
