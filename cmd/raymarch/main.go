package main

import (
	"flag"
	"fmt"
	"io/ioutil"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/devblok/raymarch/camera"
	"github.com/devblok/raymarch/core"
	"github.com/devblok/raymarch/diag"
	"github.com/devblok/raymarch/utility/spack"
	"github.com/gobuffalo/envy"
	"github.com/gobuffalo/packr"
	log "github.com/sirupsen/logrus"
	"github.com/veandco/go-sdl2/sdl"
	"golang.org/x/exp/mmap"
)

func init() {
	// SDL and the Vulkan loader both require the main OS thread
	runtime.LockOSThread()
}

var (
	width      = flag.Uint("width", 1280, "Window width in pixels")
	height     = flag.Uint("height", 720, "Window height in pixels")
	upscale    = flag.Uint("upscale", 0, "Integer factor the dispatch resolution is divided by, 0 defers to RAYMARCH_UPSCALE")
	fpsCap     = flag.Int("fps", 0, "Frame rate cap, 0 for unlimited")
	shaderFile = flag.String("shader", "", "Compute shader .spv file or .spack archive, embedded default when empty")
	vkDebug    = flag.Bool("vk-debug", false, "Force enable the Vulkan validation layer")
	vkNoDebug  = flag.Bool("vk-nodebug", false, "Force disable the Vulkan validation layer")
)

// shaderBox embeds the default compiled shader into the binary.
var shaderBox = packr.NewBox("./shaders")

const shaderEntry = "raymarch.comp.spv"

const titleInterval = 500 * time.Millisecond

// debugEnabled resolves the validation toggle, flags win over the
// environment.
func debugEnabled() bool {
	if *vkNoDebug {
		return false
	}
	if *vkDebug {
		return true
	}
	switch envy.Get("RAYMARCH_VK_DEBUG", "") {
	case "1", "true", "yes":
		return true
	}
	return false
}

// upscaleFactor resolves the dispatch divisor, flags win over the
// environment, everything else falls back to the default of 2.
func upscaleFactor() uint32 {
	if *upscale > 0 {
		return uint32(*upscale)
	}
	if v, err := strconv.Atoi(envy.Get("RAYMARCH_UPSCALE", "")); err == nil && v > 0 {
		return uint32(v)
	}
	return 2
}

func loadShader() ([]byte, error) {
	if *shaderFile == "" {
		return shaderBox.Find(shaderEntry)
	}
	if strings.HasSuffix(*shaderFile, ".spack") {
		r, err := mmap.Open(*shaderFile)
		if err != nil {
			return nil, err
		}
		defer r.Close()
		ar, err := spack.Open(r)
		if err != nil {
			return nil, err
		}
		return ar.ReadAll(shaderEntry)
	}
	return ioutil.ReadFile(*shaderFile)
}

func newWindow() *sdl.Window {
	window, err := sdl.CreateWindow("Raymarch",
		sdl.WINDOWPOS_UNDEFINED,
		sdl.WINDOWPOS_UNDEFINED,
		int32(*width),
		int32(*height),
		sdl.WINDOW_VULKAN)
	if err != nil {
		log.Fatal(err)
	}
	return window
}

func main() {
	flag.Parse()

	if debugEnabled() {
		log.SetLevel(log.DebugLevel)
	}
	sink := diag.NewLogrusSink(log.StandardLogger())

	shaderBlob, err := loadShader()
	if err != nil {
		log.Fatal("shader load: ", err)
	}

	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		log.Fatal(err)
	}
	defer sdl.Quit()

	if err := sdl.VulkanLoadLibrary(""); err != nil {
		log.Fatal(err)
	}
	defer sdl.VulkanUnloadLibrary()

	window := newWindow()
	defer window.Destroy()

	instance, err := core.NewVulkanInstance(core.DefaultVulkanApplicationInfo,
		sdl.VulkanGetVkGetInstanceProcAddr(),
		core.InstanceConfiguration{
			DebugMode:  debugEnabled(),
			Extensions: window.VulkanGetInstanceExtensions(),
		}, sink)
	if err != nil {
		log.Fatal(err)
	}

	surface, err := window.VulkanCreateSurface(instance.Instance())
	if err != nil {
		log.Fatal(err)
	}
	instance.SetSurface(surface)

	renderer, err := core.NewVulkanRenderer(instance, core.RendererConfiguration{
		ScreenWidth:  uint32(*width),
		ScreenHeight: uint32(*height),
		Upscale:      upscaleFactor(),
		ShaderBlob:   shaderBlob,
		UniformBytes: camera.UniformSize,
	}, sink)
	if err != nil {
		log.Fatal(err)
	}

	if err := renderer.Initialise(); err != nil {
		renderer.Destroy()
		instance.Destroy()
		log.Fatal(err)
	}

	runLoop(window, renderer, sink)

	renderer.Destroy()
	instance.Destroy()
}

func runLoop(window *sdl.Window, renderer core.Renderer, sink diag.Sink) {
	cam := camera.New(float32(*width) / float32(*height))
	uniform := make([]byte, camera.UniformSize)

	timeService := core.NewTime(core.TimeConfiguration{FramesPerSecond: *fpsCap})
	counter := core.NewFrameCounter(titleInterval)

	var captured bool
	lastTick := time.Now()

EventLoop:
	for range timeService.FpsTicker().C {
		for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
			switch et := event.(type) {
			case *sdl.QuitEvent:
				break EventLoop
			case *sdl.KeyboardEvent:
				if et.Type == sdl.KEYDOWN && et.Keysym.Sym == sdl.K_ESCAPE {
					if !captured {
						break EventLoop
					}
					captured = false
					sdl.SetRelativeMouseMode(false)
				}
			case *sdl.MouseButtonEvent:
				if et.Type == sdl.MOUSEBUTTONDOWN && !captured {
					captured = true
					sdl.SetRelativeMouseMode(true)
				}
			case *sdl.MouseMotionEvent:
				if captured {
					cam.Rotate(float32(et.XRel), float32(et.YRel))
				}
			}
		}

		now := time.Now()
		dt := float32(now.Sub(lastTick).Seconds())
		lastTick = now

		if captured {
			keys := sdl.GetKeyboardState()
			cam.Move(camera.Input{
				Forward: keys[sdl.SCANCODE_W] != 0,
				Back:    keys[sdl.SCANCODE_S] != 0,
				Left:    keys[sdl.SCANCODE_A] != 0,
				Right:   keys[sdl.SCANCODE_D] != 0,
				Up:      keys[sdl.SCANCODE_SPACE] != 0,
				Down:    keys[sdl.SCANCODE_LSHIFT] != 0,
				Boost:   keys[sdl.SCANCODE_LCTRL] != 0,
			}, dt)
		}

		cam.PackUniform(uniform)
		if err := renderer.UpdateUniform(uniform); err != nil {
			sink.Message(diag.SeverityError, "main", err.Error())
			break EventLoop
		}

		if err := renderer.DrawFrame(); err != nil {
			sink.Message(diag.SeverityError, "main", err.Error())
			break EventLoop
		}

		if rate, ok := counter.Tick(); ok {
			window.SetTitle(fmt.Sprintf("Raymarch | %.1f FPS", rate))
		}
	}
	log.Info("event loop exited")
}
