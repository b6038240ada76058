package graphics

import rl "github.com/gen2brain/raylib-go/raylib"

// Window describes the main window.
type Window struct {
	Title      string
	Width      int
	Height     int
	Fullscreen bool
	TargetFPS  int
	// OnClose runs after the loop ends, while the GL context still exists.
	OnClose func()
}

// Run opens the window and runs the main loop. Each frame it calls update (input, avatar
// tick), then clears the screen and calls draw. ESC belongs to the terminal; close via the
// window button.
func Run(win Window, update, draw func()) {
	if win.Fullscreen {
		rl.SetConfigFlags(rl.FlagFullscreenMode)
		rl.InitWindow(int32(rl.GetMonitorWidth(0)), int32(rl.GetMonitorHeight(0)), win.Title)
	} else {
		rl.SetConfigFlags(rl.FlagWindowResizable | rl.FlagMsaa4xHint)
		rl.InitWindow(int32(win.Width), int32(win.Height), win.Title)
	}
	defer rl.CloseWindow()

	rl.SetExitKey(rl.KeyNull)
	if win.TargetFPS > 0 {
		rl.SetTargetFPS(int32(win.TargetFPS))
	}

	for !rl.WindowShouldClose() {
		update()

		rl.BeginDrawing()
		rl.ClearBackground(clearColor)
		draw()
		rl.EndDrawing()
	}
	if win.OnClose != nil {
		win.OnClose()
	}
}

var clearColor = rl.NewColor(250, 243, 232, 255)

// LoadFont loads a TTF/OTF font. Call only after the window is open; ok is false when the
// file could not be used.
func LoadFont(path string) (rl.Font, bool) {
	f := rl.LoadFont(path)
	return f, rl.IsFontValid(f)
}
