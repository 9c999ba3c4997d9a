package cadence

import (
	"context"
	"fmt"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
)

// RunConfig configures the desktop mirror window.
type RunConfig struct {
	Title  string
	Width  int // window width in pixels (default 960)
	Height int // window height in pixels (default 480)

	// ShowHUD overlays FPS, session state, and frame index.
	ShowHUD bool

	// FrameLimit stops the loop after this many frames. 0 runs until the
	// window closes or the runtime ends the session.
	FrameLimit int
}

// Run opens a window mirroring the session's per-view swapchain images side
// by side, stepping one frame-loop iteration per tick. It blocks until the
// loop reaches a terminal state, the frame limit is hit, ctx is canceled, or
// the window is closed, and returns the loop's error if it faulted.
//
// Run does not destroy the session; pair it with a deferred Session.Destroy.
func Run(ctx context.Context, session *Session, render FrameFunc, cfg RunConfig) error {
	if cfg.Width == 0 {
		cfg.Width = 960
	}
	if cfg.Height == 0 {
		cfg.Height = 480
	}
	if cfg.Title == "" {
		cfg.Title = "cadence"
	}
	ebiten.SetWindowSize(cfg.Width, cfg.Height)
	ebiten.SetWindowTitle(cfg.Title)

	g := &mirrorGame{
		ctx:     ctx,
		loop:    newFrameLoop(session),
		session: session,
		render:  render,
		cfg:     cfg,
	}
	if err := ebiten.RunGame(g); err != nil {
		return fmt.Errorf("mirror window: %w", err)
	}
	return g.err
}

// mirrorGame adapts the frame loop to ebiten's game interface: Update steps
// the loop, Draw blits whatever the loop last presented.
type mirrorGame struct {
	ctx     context.Context
	loop    *frameLoop
	session *Session
	render  FrameFunc
	cfg     RunConfig
	err     error
}

func (g *mirrorGame) Update() error {
	fn := g.render
	if g.cfg.FrameLimit > 0 && g.loop.FrameIndex() >= g.cfg.FrameLimit {
		fn = func(*Frame) error { return Termination }
	}
	done, err := g.loop.Step(g.ctx, fn)
	if err != nil {
		g.err = err
		return ebiten.Termination
	}
	if done {
		return ebiten.Termination
	}
	return nil
}

func (g *mirrorGame) Draw(screen *ebiten.Image) {
	presented := g.session.Presented()
	shown := 0
	for _, img := range presented {
		if img != nil {
			shown++
		}
	}
	if shown > 0 {
		cell := float64(g.cfg.Width) / float64(shown)
		x := 0.0
		for _, img := range presented {
			if img == nil {
				continue
			}
			b := img.Bounds()
			var op ebiten.DrawImageOptions
			op.GeoM.Scale(cell/float64(b.Dx()), float64(g.cfg.Height)/float64(b.Dy()))
			op.GeoM.Translate(x, 0)
			screen.DrawImage(img, &op)
			x += cell
		}
	}

	if g.cfg.ShowHUD {
		ebitenutil.DebugPrint(screen, fmt.Sprintf("FPS: %.1f\nstate: %s\nframe: %d",
			ebiten.ActualFPS(), g.session.State(), g.loop.FrameIndex()))
	}
}

func (g *mirrorGame) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.cfg.Width, g.cfg.Height
}
