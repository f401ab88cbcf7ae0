package cli

import (
	"fmt"
	"math"
	"sort"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/Carmen-Shannon/oxy-graph/common"
	"github.com/Carmen-Shannon/oxy-graph/engine"
	"github.com/Carmen-Shannon/oxy-graph/engine/config"
	"github.com/Carmen-Shannon/oxy-graph/engine/device"
	"github.com/Carmen-Shannon/oxy-graph/engine/ecs"
	"github.com/Carmen-Shannon/oxy-graph/engine/loader"
	"github.com/Carmen-Shannon/oxy-graph/engine/logging"
	"github.com/Carmen-Shannon/oxy-graph/engine/system"
	"github.com/Carmen-Shannon/oxy-graph/engine/window"
)

// runOpts holds the command-line flags for the run command. Zero values keep the configured setting.
type runOpts struct {
	frames          int
	device          string
	headless        bool
	parallelWorkers int
	entities        int
	mesh            string
}

func (c *CLI) runCommand() *cobra.Command {
	opts := runOpts{frames: 120, entities: 16}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the engine on a generated scene",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if err := opts.apply(cmd, cfg); err != nil {
				return err
			}
			return c.run(cmd, cfg, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.frames, "frames", "n", opts.frames, "number of frames to run; 0 runs until the window closes")
	cmd.Flags().StringVarP(&opts.device, "device", "d", "", "device contract: opengl or vulkan")
	cmd.Flags().BoolVar(&opts.headless, "headless", false, "run without a window on the in-memory device")
	cmd.Flags().IntVarP(&opts.parallelWorkers, "parallel-workers", "w", 0, "render graph worker count for async devices")
	cmd.Flags().IntVarP(&opts.entities, "entities", "e", opts.entities, "number of drawable entities to generate")
	cmd.Flags().StringVarP(&opts.mesh, "mesh", "m", "", "glTF or GLB model whose meshes the generated entities draw; defaults to a plane")
	return cmd
}

// apply overrides the configuration with the flags the user set.
func (o runOpts) apply(cmd *cobra.Command, cfg *config.Configuration) error {
	flags := cmd.Flags()
	if flags.Changed("frames") || cfg.App.FrameLimit == 0 {
		cfg.App.FrameLimit = o.frames
	}
	if flags.Changed("device") {
		cfg.Graphics.Device = o.device
	}
	if flags.Changed("headless") {
		cfg.Graphics.Headless = o.headless
	}
	if flags.Changed("parallel-workers") {
		cfg.Graphics.ExecutionThreads = o.parallelWorkers
	}
	if o.entities < 0 {
		return fmt.Errorf("%w: entities must not be negative", config.ErrInvalidConfiguration)
	}
	return cfg.Validate()
}

func (c *CLI) run(cmd *cobra.Command, cfg *config.Configuration, opts runOpts) error {
	logger := logging.FromContext(cmd.Context())
	ctx := config.NewContext(cfg, logger)

	var (
		win     window.Window
		options []system.DrawingSystemBuilderOption
	)
	if !cfg.Graphics.Headless {
		w, err := window.NewWindow(
			window.WithTitle(cfg.App.Name),
			window.WithSize(cfg.Graphics.WindowWidth, cfg.Graphics.WindowHeight),
			window.WithLogger(logger),
		)
		if err != nil {
			return err
		}
		defer w.Close()
		width, height := w.Size()
		win = w
		options = append(options, system.WithDeviceOptions(
			device.WithSurfaceDescriptor(w.SurfaceDescriptor()),
			device.WithSurfaceSize(width, height),
		))
	}

	world := ecs.NewWorld(logger)
	drawing := system.NewDrawingSystem(ctx, options...)
	animation := system.NewAnimationSystem(logger, cfg.Graphics.ExecutionThreads)
	world.RegisterSystem(0, animation)
	world.RegisterSystem(100, drawing)

	engineOptions := []engine.EngineBuilderOption{
		engine.WithWorld(world),
		engine.WithSetupFunc(func(e engine.Engine) error {
			meshes, err := sceneMeshes(drawing.Device(), opts.mesh, logger)
			if err != nil {
				return err
			}
			aspect := float32(cfg.Graphics.WindowWidth) / float32(max(cfg.Graphics.WindowHeight, 1))
			populateScene(e.World(), meshes, opts.entities, aspect)
			return nil
		}),
	}
	if win != nil {
		engineOptions = append(engineOptions, engine.WithWindow(win))
	}
	e := engine.NewEngine(ctx, engineOptions...)
	if err := e.Run(cmd.Context()); err != nil {
		return err
	}

	return c.printSummary(cmd, e, drawing, animation)
}

func (c *CLI) printSummary(cmd *cobra.Command, e engine.Engine, drawing system.DrawingSystem, animation system.AnimationSystem) error {
	out := cmd.OutOrStdout()
	caps := e.Context().Capabilities()
	fmt.Fprintf(out, "frames: %d\n", e.Frames())
	fmt.Fprintf(out, "device: %s (async recording: %t)\n", caps.DeviceType, caps.AsyncRecording)
	fmt.Fprintf(out, "script updates: %d\n", animation.Updates())

	stats := drawing.Stats()
	types := make([]common.RendererType, 0, len(stats))
	for t := range stats {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	for _, t := range types {
		s := stats[t]
		fmt.Fprintf(out, "renderer %s: nodes=%d frames=%d parallel=%t batches=%d last=%s\n",
			t, s.Nodes, s.Frames, s.Parallel, s.Batches, s.LastDuration)
	}
	return nil
}

// sceneMeshes loads the model at path, or builds a unit plane when path is empty.
func sceneMeshes(d device.Device, path string, logger *log.Logger) ([]*ecs.Mesh, error) {
	if path == "" {
		plane, err := ecs.NewPlaneMesh(d, 1)
		if err != nil {
			return nil, err
		}
		return []*ecs.Mesh{plane}, nil
	}
	meshes, err := loader.NewLoader(d, loader.WithLogger(logger)).Load(path)
	if err != nil {
		return nil, err
	}
	if len(meshes) == 0 {
		return nil, fmt.Errorf("model %s has no meshes", path)
	}
	return meshes, nil
}

// populateScene creates a camera, a light and a grid of entities cycling through meshes with a mix of materials.
// Every entity bobs on a script so the animation system has work each tick.
func populateScene(w ecs.World, meshes []*ecs.Mesh, count int, aspect float32) {
	w.CreateEntity(ecs.WithTag(ecs.MainCameraTag), ecs.WithComponents(
		ecs.NewTransform(common.Vec3{0, 6, 12}),
		ecs.NewCamera(aspect),
	))
	w.CreateEntity(ecs.WithComponents(
		ecs.NewTransform(common.Vec3{0, 10, 0}),
		&ecs.LightComponent{Color: common.Vec3{1, 1, 1}, Intensity: 1, Radius: 30},
	))

	side := int(math.Ceil(math.Sqrt(float64(count))))
	for i := 0; i < count; i++ {
		x, z := float32(i%side)-float32(side)/2, float32(i/side)-float32(side)/2
		w.CreateEntity(ecs.WithComponents(
			ecs.NewTransform(common.Vec3{x * 1.5, 0, z * 1.5}),
			&ecs.MeshFilterComponent{Mesh: meshes[i%len(meshes)]},
			&ecs.MeshRendererComponent{Renderer: common.RendererTypeStandard},
			&ecs.MaterialComponent{
				Albedo:      [4]float32{0.8, 0.8, 0.8, 1},
				Transparent: i%4 == 3,
				Lines:       i%5 == 4,
				CastShadows: i%4 != 3,
			},
			&ecs.ScriptComponent{Update: bob(float32(i) * 0.3)},
		))
	}
}

func bob(phase float32) func(e ecs.Entity, dt float32) {
	elapsed := phase
	return func(e ecs.Entity, dt float32) {
		elapsed += dt
		if t := ecs.Transform(e); t != nil {
			t.Position[1] = 0.25 * float32(math.Sin(float64(elapsed)))
		}
	}
}
