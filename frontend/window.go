package frontend

import (
	"fmt"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// windowScale is the initial window size relative to the core's native
// resolution.
const windowScale = 3

// Window displays a running session. It implements ebiten.Game: Update
// polls host keys, Draw shows the latest shared frame.
//
// Keys: Escape quits, P toggles pause, F12 saves a screenshot in the
// working directory.
type Window struct {
	session  *Session
	renderer *Renderer
}

// NewWindow creates a display for the given session.
func NewWindow(session *Session) *Window {
	return &Window{
		session:  session,
		renderer: NewRenderer(),
	}
}

// Run opens the window and blocks until the user quits. The session is
// stopped before Run returns.
func (w *Window) Run(title string) error {
	pw, ph := w.session.Core.DesiredVideoDimensions()
	ebiten.SetWindowSize(pw*windowScale, ph*windowScale)
	ebiten.SetWindowTitle(title)

	err := ebiten.RunGame(w)
	stopErr := w.session.Stop()
	if err != nil {
		return err
	}
	return stopErr
}

// Update implements ebiten.Game.
func (w *Window) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyP) {
		if w.session.Control.IsPaused() {
			w.session.Control.Resume()
		} else {
			w.session.Control.RequestPause()
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF12) {
		pixels, width, height := w.session.Frames.Read()
		name := fmt.Sprintf("corekit-%d.png", time.Now().Unix())
		// Screenshot failures are not fatal to the session
		_ = WriteScreenshot(name, pixels, width, height, windowScale)
	}
	return nil
}

// Draw implements ebiten.Game.
func (w *Window) Draw(screen *ebiten.Image) {
	pixels, width, height := w.session.Frames.Read()
	w.renderer.Draw(screen, pixels, width, height)
}

// Layout implements ebiten.Game.
func (w *Window) Layout(outsideWidth, outsideHeight int) (int, int) {
	pw, ph := w.session.Core.DesiredVideoDimensions()
	return pw * windowScale, ph * windowScale
}
