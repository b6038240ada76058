package commands

import (
	"errors"
	"flag"
	"fmt"
	"strings"

	"github.com/04shr/petzy/internal/avatar"
	"github.com/04shr/petzy/internal/panels"
)

// Deps are the panels the builtin commands drive. Nil fields skip the related commands.
type Deps struct {
	Avatar   avatar.Controller
	Actions  *panels.Actions
	Teleport *panels.Teleport
	Chat     *panels.Chat
}

// RegisterBuiltins installs the avatar, panel and help commands.
func RegisterBuiltins(r *Registry, d Deps) {
	r.Register("help", "help", nil, func([]string) error {
		for _, n := range r.Names() {
			u, _ := r.Usage(n)
			r.Printf("cmd %s", u)
		}
		return nil
	})
	if d.Avatar != nil {
		registerAvatar(r, d.Avatar)
	}
	if d.Actions != nil {
		registerActions(r, d.Actions)
	}
	if d.Teleport != nil {
		registerTeleport(r, d.Teleport)
	}
	if d.Chat != nil {
		r.Register("say", "say <text...>", nil, func(args []string) error {
			if _, ok := d.Chat.Send(strings.Join(args, " ")); !ok {
				return errors.New("say: nothing to say")
			}
			return nil
		})
	}
}

func registerAvatar(r *Registry, a avatar.Controller) {
	r.Register("mouth", "mouth open|close|toggle", nil, func(args []string) error {
		if len(args) != 1 {
			return errors.New("mouth: want one of open, close, toggle")
		}
		switch args[0] {
		case "open":
			a.SetMouthOpen(true)
		case "close":
			a.SetMouthOpen(false)
		case "toggle":
			a.ToggleMouth()
		default:
			return fmt.Errorf("mouth: unknown pose %q", args[0])
		}
		return nil
	})

	r.Register("speak", "speak start|stop", nil, func(args []string) error {
		if len(args) != 1 {
			return errors.New("speak: want start or stop")
		}
		switch args[0] {
		case "start":
			a.StartSpeaking()
		case "stop":
			a.StopSpeaking()
		default:
			return fmt.Errorf("speak: unknown mode %q", args[0])
		}
		return nil
	})

	r.Register("meshes", "meshes", nil, func([]string) error {
		for _, m := range a.Meshes() {
			r.Printf("%s %s", m.Name, m.Color)
		}
		return nil
	})

	colorFS := flag.NewFlagSet("color", flag.ContinueOnError)
	mesh := colorFS.String("mesh", "", "mesh name")
	hex := colorFS.String("hex", "", "target color as #rrggbb")
	r.Register("color", "color -mesh NAME [-hex #rrggbb]", colorFS, func([]string) error {
		if *mesh == "" {
			return errors.New("color: -mesh is required")
		}
		if *hex == "" {
			c, ok := a.MeshColor(*mesh)
			if !ok {
				return fmt.Errorf("color: no mesh %q", *mesh)
			}
			r.Printf("%s %s", *mesh, c)
			return nil
		}
		if !a.SetMeshColor(*mesh, *hex) {
			return fmt.Errorf("color: cannot set %q to %q", *mesh, *hex)
		}
		return nil
	})

	resetFS := flag.NewFlagSet("reset", flag.ContinueOnError)
	resetMesh := resetFS.String("mesh", "", "mesh name")
	r.Register("reset", "reset -mesh NAME", resetFS, func([]string) error {
		c, ok := a.ResetMeshColor(*resetMesh)
		if !ok {
			return fmt.Errorf("reset: no mesh %q", *resetMesh)
		}
		r.Printf("%s %s", *resetMesh, c)
		return nil
	})
}

func registerActions(r *Registry, acts *panels.Actions) {
	r.Register("action", "action feed|play|sleep|groom|talk|answer|fact|what", nil, func(args []string) error {
		if len(args) != 1 {
			return errors.New("action: want one action name")
		}
		msg, _, err := acts.Perform(panels.Action(args[0]))
		if err != nil {
			return err
		}
		r.Printf("%s", msg)
		return nil
	})
	r.Register("zone", "zone", nil, func([]string) error {
		r.Printf("%s", acts.ToggleZone())
		return nil
	})
}

func registerTeleport(r *Registry, t *panels.Teleport) {
	r.Register("scene", "scene [name]", nil, func(args []string) error {
		if len(args) == 0 {
			for _, s := range t.Scenes() {
				r.Printf("%s", s.Name)
			}
			return nil
		}
		s, err := t.Go(strings.Join(args, " "))
		if err != nil {
			return err
		}
		r.Printf("Teleported to %s", s.Name)
		return nil
	})
}
