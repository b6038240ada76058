package terminal

import (
	"unicode/utf8"

	rl "github.com/gen2brain/raylib-go/raylib"
	"go.uber.org/zap"

	"github.com/04shr/petzy/internal/commands"
)

const (
	BarHeight = 40
	// When windowed, move bar up by this many pixels so it stays visible.
	WindowedBarOffset = 56
	prompt            = "> "
	fontSize          = 20
	padding           = 8
	// Number of chat/log lines drawn above the input bar when terminal is open.
	maxLinesOnScreen = 14
	lineHeight       = fontSize + 4
	maxLineLen       = 200
)

var (
	termBarColor    = rl.NewColor(40, 40, 40, 255)
	termLineColor   = rl.NewColor(80, 80, 80, 255)
	termChatBgColor = rl.NewColor(24, 24, 24, 240)
)

// History supplies the lines drawn above the input bar. logger.Recorder implements it.
type History interface {
	Lines() []string
}

// Terminal is the input bar at the bottom of the screen, toggled with ESC. Lines starting
// with "cmd " run through the command registry; anything else is chat for the pet.
type Terminal struct {
	log      *zap.Logger
	history  History
	reg      *commands.Registry
	inputBuf string
	open     bool
	font     rl.Font
	// OnChat, if set, receives every non-command line.
	OnChat func(line string)
}

// New returns a closed terminal. Submitted lines and command errors are logged to log, which
// should feed history so they show up on screen.
func New(log *zap.Logger, history History, reg *commands.Registry) *Terminal {
	if log == nil {
		log = zap.NewNop()
	}
	return &Terminal{log: log.Named("term"), history: history, reg: reg}
}

// IsOpen reports whether the terminal is visible and capturing keys.
func (t *Terminal) IsOpen() bool {
	return t.open
}

// SetFont sets the font used to draw the bar. Zero texture ID = raylib default.
func (t *Terminal) SetFont(font rl.Font) {
	t.font = font
}

// Update handles ESC (toggle), and when open: typing, paste, backspace, enter. Call once per frame.
func (t *Terminal) Update() {
	if rl.IsKeyPressed(rl.KeyEscape) {
		t.open = !t.open
	}
	if !t.open {
		return
	}
	if rl.IsKeyPressed(rl.KeyV) && (rl.IsKeyDown(rl.KeyLeftControl) || rl.IsKeyDown(rl.KeyRightControl) || rl.IsKeyDown(rl.KeyLeftSuper) || rl.IsKeyDown(rl.KeyRightSuper)) {
		if pasted := rl.GetClipboardText(); pasted != "" {
			t.inputBuf += pasted
		}
	} else {
		for {
			c := rl.GetCharPressed()
			if c == 0 {
				break
			}
			t.inputBuf += string(rune(c))
		}
	}
	if rl.IsKeyPressed(rl.KeyBackspace) && len(t.inputBuf) > 0 {
		_, size := utf8.DecodeLastRuneInString(t.inputBuf)
		t.inputBuf = t.inputBuf[:len(t.inputBuf)-size]
	}
	if (rl.IsKeyPressed(rl.KeyEnter) || rl.IsKeyPressed(rl.KeyKpEnter)) && t.inputBuf != "" {
		line := t.inputBuf
		t.inputBuf = ""
		t.Submit(line)
	}
}

// Submit handles one entered line as if typed.
func (t *Terminal) Submit(line string) {
	t.log.Info(prompt + line)
	if args, isCmd := commands.Parse(line); isCmd {
		if t.reg == nil {
			return
		}
		if err := t.reg.Execute(args); err != nil {
			t.log.Warn(err.Error())
		}
		return
	}
	if t.OnChat != nil {
		t.OnChat(line)
	}
}

// Draw draws the bar and the recent history above it when open.
func (t *Terminal) Draw() {
	if !t.open {
		return
	}
	screenW := int(rl.GetScreenWidth())
	screenH := int(rl.GetScreenHeight())
	barY := screenH - BarHeight
	if !rl.IsWindowFullscreen() {
		barY -= WindowedBarOffset
	}

	chatHeight := maxLinesOnScreen * lineHeight
	chatY := barY - chatHeight
	if chatY < 0 {
		chatHeight = barY
		chatY = 0
	}
	if chatHeight > 0 {
		rl.DrawRectangle(0, int32(chatY), int32(screenW), int32(chatHeight), termChatBgColor)
	}
	var lines []string
	if t.history != nil {
		lines = t.history.Lines()
	}
	start := max(len(lines)-maxLinesOnScreen, 0)
	for i := start; i < len(lines); i++ {
		y := chatY + (i-start)*lineHeight + padding
		t.drawText(truncate(lines[i]), padding, y, rl.LightGray)
	}

	rl.DrawRectangle(0, int32(barY), int32(screenW), int32(BarHeight), termBarColor)
	rl.DrawRectangle(0, int32(barY), int32(screenW), 1, termLineColor)
	t.drawText(prompt+t.inputBuf+"|", padding, barY+padding, rl.White)
}

func (t *Terminal) drawText(text string, x, y int, c rl.Color) {
	if t.font.Texture.ID != 0 {
		rl.DrawTextEx(t.font, text, rl.NewVector2(float32(x), float32(y)), float32(fontSize), 1, c)
		return
	}
	rl.DrawText(text, int32(x), int32(y), int32(fontSize), c)
}

func truncate(line string) string {
	if len(line) <= maxLineLen {
		return line
	}
	cut := maxLineLen - 3
	for cut > 0 && !utf8.RuneStart(line[cut]) {
		cut--
	}
	return line[:cut] + "..."
}
