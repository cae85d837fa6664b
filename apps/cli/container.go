package main

import (
	"io"
	"log"

	"github.com/pkg/errors"
	"go.uber.org/dig"

	"github.com/trezcool/rollcall/core"
	"github.com/trezcool/rollcall/core/academics"
	"github.com/trezcool/rollcall/core/session"
	"github.com/trezcool/rollcall/services/gateway"
	"github.com/trezcool/rollcall/storage/cache/inmem"
	"github.com/trezcool/rollcall/storage/credstore/dummy"
	"github.com/trezcool/rollcall/storage/credstore/file"
	"github.com/trezcool/rollcall/storage/credstore/keyring"
)

func newCredentialStore(conf *core.Config) (session.CredentialStore, error) {
	switch conf.Session.Store {
	case core.SessionStoreKeyring:
		return keyringstore.New(conf.Session.KeyringService), nil
	case core.SessionStoreFile:
		return filestore.New(conf.Session.File, conf.SecretKey), nil
	case core.SessionStoreMemory:
		return dummystore.New(), nil
	}
	return nil, errors.Errorf("unknown session store %q", conf.Session.Store)
}

// newSessionStore loads the persisted session, if any.
func newSessionStore(creds session.CredentialStore, conf *core.Config, logger core.Logger) *session.Store {
	store := session.NewStore(creds, conf.Session.Key, logger)
	store.Read()
	return store
}

func newGateway(conf *core.Config, store *session.Store, logger core.Logger) *gatewaysvc.Gateway {
	return gatewaysvc.New(conf, store, logger)
}

type commandLineParams struct {
	dig.In

	Out      io.Writer
	Conf     *core.Config
	Sessions *session.Service
	Store    *session.Store
	Cache    academics.Cache
	Svc      *academics.Service
}

// newCommandLine ties the cache lifetime to the session: signing out resets it.
func newCommandLine(p commandLineParams) *commandLine {
	p.Store.Subscribe(func(sess *session.Session) {
		if sess == nil {
			p.Cache.Clear()
		}
	})
	return &commandLine{
		out:      p.Out,
		conf:     p.Conf,
		sessions: p.Sessions,
		store:    p.Store,
		cache:    p.Cache,
		svc:      p.Svc,
	}
}

// newContainer returns the dependency injection dig.Container of one CLI session.
func newContainer(conf *core.Config, logger core.Logger, out io.Writer) *dig.Container {
	c := dig.New()

	must(c.Provide(func() *core.Config { return conf }))
	must(c.Provide(func() core.Logger { return logger }))
	must(c.Provide(func() io.Writer { return out }))
	must(c.Provide(core.NewValidator))
	must(c.Provide(newCredentialStore))
	must(c.Provide(newSessionStore))
	must(c.Provide(newGateway, dig.As(new(academics.Gateway), new(session.Authenticator))))
	must(c.Provide(inmemcache.New, dig.As(new(academics.Cache))))
	must(c.Provide(session.NewService))
	must(c.Provide(academics.NewService))
	must(c.Provide(newCommandLine))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
