package main

import (
	"go.uber.org/zap"

	"github.com/04shr/petzy/internal/commands"
	"github.com/04shr/petzy/internal/graphics"
	"github.com/04shr/petzy/internal/logger"
	"github.com/04shr/petzy/internal/panels"
	"github.com/04shr/petzy/internal/terminal"
)

// newTerminal wires the overlay: commands run through reg, anything else is said to the pet
// and its reply is logged and flashed on screen.
func newTerminal(log *zap.Logger, rec *logger.Recorder, reg *commands.Registry, chat *panels.Chat, viewer *graphics.Viewer) *terminal.Terminal {
	petLog := log.Named("pet")
	term := terminal.New(log, rec, reg)
	term.OnChat = func(line string) {
		reply, ok := chat.Send(line)
		if !ok {
			return
		}
		petLog.Info(reply)
		viewer.Notify(reply)
	}
	return term
}
