// Command rollcall is the attendance client: sign in, browse courses, classes
// and students, and take attendance.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"syscall"

	"github.com/pkg/errors"

	"github.com/trezcool/rollcall/core"
	"github.com/trezcool/rollcall/core/session"
	"github.com/trezcool/rollcall/services/logger"
)

var stdin = int(syscall.Stdin)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stderr, "ROLLCALL : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)

	c := newContainer(conf, logger, os.Stdout)
	err := c.Invoke(func(cli *commandLine) error {
		return cli.run(context.Background(), os.Args)
	})
	if err != nil {
		if !errors.Is(err, errHelp) {
			if errors.Is(err, session.ErrNoSession) {
				err = errors.Wrapf(err, "run `%s login -username USERNAME` first", os.Args[0])
			}
			fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}
