package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/04shr/petzy/internal/config"
	"github.com/04shr/petzy/internal/identity"
)

const signInTimeout = 30 * time.Second

type accountFlags struct {
	user   string
	secret string
	pet    string
}

func newSignupCmd(a *app) *cobra.Command {
	var f accountFlags
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and remember it for the viewer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.signIn(cmd, f, false)
		},
	}
	cmd.Flags().StringVar(&f.user, "user", "", "username")
	cmd.Flags().StringVar(&f.secret, "secret", "", "secret key (prompted when empty)")
	cmd.Flags().StringVar(&f.pet, "pet", "", "your pet's name")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newLoginCmd(a *app) *cobra.Command {
	var f accountFlags
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and remember the account for the viewer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.signIn(cmd, f, true)
		},
	}
	cmd.Flags().StringVar(&f.user, "user", "", "username")
	cmd.Flags().StringVar(&f.secret, "secret", "", "secret key (prompted when empty)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the remembered account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.cfg.CurrentUser = ""
			if err := config.Save(a.cfgPath, a.cfg); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

// signIn drives the identity flow the same way the welcome screen does: type the name,
// wait for the lookup, then submit the secret.
func (a *app) signIn(cmd *cobra.Command, f accountFlags, returning bool) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), signInTimeout)
	defer cancel()

	docs, closeDocs, err := a.openDocs()
	if err != nil {
		return err
	}
	defer closeDocs()

	log := a.log.Named("identity")
	flow := identity.NewSession(identity.NewDirectory(docs, log), log)
	defer flow.Close()

	if len(strings.TrimSpace(f.user)) < identity.MinLookupLength {
		return fmt.Errorf("username must be at least %d characters", identity.MinLookupLength)
	}
	flow.Type(f.user)
	st, err := flow.WaitFor(ctx, func(s identity.Status) bool {
		switch s.State {
		case identity.StateReturningUser, identity.StateNewUser, identity.StateFailed:
			return true
		}
		return false
	})
	if err != nil {
		return fmt.Errorf("lookup %s: %w", f.user, err)
	}
	switch {
	case st.State == identity.StateFailed:
		return fmt.Errorf("lookup %s: %s", f.user, st.Reason)
	case returning && st.State == identity.StateNewUser:
		return fmt.Errorf("no account named %q, try signup", strings.TrimSpace(f.user))
	case !returning && st.State == identity.StateReturningUser:
		return fmt.Errorf("%q is taken, try login", strings.TrimSpace(f.user))
	}
	if err := flow.Proceed(); err != nil {
		return err
	}

	secret := f.secret
	if secret == "" {
		if secret, err = promptSecret(cmd.InOrStdin(), cmd.ErrOrStderr()); err != nil {
			return err
		}
	}
	rec, err := flow.Submit(ctx, secret, f.pet)
	if err != nil {
		var idErr *identity.Error
		if errors.As(err, &idErr) {
			return fmt.Errorf("sign in: %s", idErr.Reason)
		}
		return err
	}

	a.cfg.CurrentUser = rec.Username
	if err := config.Save(a.cfgPath, a.cfg); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", rec.Username)
	return nil
}

// promptSecret reads the secret without echo when stdin is a terminal.
func promptSecret(in io.Reader, out io.Writer) (string, error) {
	fmt.Fprint(out, "Secret key: ")
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
