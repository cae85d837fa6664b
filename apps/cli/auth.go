package main

import (
	"context"
	"fmt"

	"github.com/trezcool/rollcall/core"
	"github.com/trezcool/rollcall/core/session"
)

func (cli *commandLine) login(ctx context.Context, uname, pwd string) error {
	sess, err := cli.sessions.SignIn(ctx, session.Credentials{Username: uname, Password: pwd})
	if err != nil {
		if vErr, ok := core.AsValidationError(err); ok {
			for _, fe := range vErr.Fields {
				fmt.Fprintf(cli.out, "%s: %s\n", fe.Field, fe.Error)
			}
		}
		return err
	}
	fmt.Fprintf(cli.out, "Signed in as %s (%s)\n", sess.Username, sess.Role)
	return nil
}

// logout clears the credential; the store's subscribers reset the cache.
func (cli *commandLine) logout() {
	cli.sessions.SignOut()
	fmt.Fprintln(cli.out, "Signed out")
}

func (cli *commandLine) whoami() error {
	sess, ok := cli.store.Current()
	if !ok {
		return session.ErrNoSession
	}
	fmt.Fprintf(cli.out, "%s (%s) id=%s\n", sess.Username, sess.Role, sess.UserID)
	return nil
}
