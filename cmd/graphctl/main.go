package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/samvad-hq/graph-harvester/internal/app"
	"github.com/samvad-hq/graph-harvester/internal/config"
	"github.com/samvad-hq/graph-harvester/internal/logger"
	"github.com/samvad-hq/graph-harvester/internal/storage"
	"github.com/samvad-hq/graph-harvester/pkg/graph"
)

type cli struct {
	Get     getCmd     `cmd:"" help:"Send a single Graph request and print the raw response."`
	Session sessionCmd `cmd:"" help:"Manage the stored access token."`
	Poll    pollCmd    `cmd:"" help:"Run every configured query once and publish the responses."`
}

// runtime carries what every subcommand needs.
type runtime struct {
	ctx context.Context
	cfg *config.Config
	log *logger.ZapLogger
}

type getCmd struct {
	Path   string   `arg:"" help:"Graph path, e.g. me or search."`
	Method string   `short:"X" default:"GET" help:"HTTP method."`
	Param  []string `short:"p" sep:"none" help:"Request parameter as key=value (repeatable)."`
}

func (c *getCmd) Run(rt *runtime) error {
	params, err := parseParams(c.Param)
	if err != nil {
		return err
	}

	store, err := app.OpenStore(rt.cfg, rt.log)
	if err != nil {
		return err
	}
	defer store.Close()

	client, err := app.NewGraphClient(rt.cfg, store, rt.log, rt.log.Sugared())
	if err != nil {
		return err
	}

	body, err := client.Request(rt.ctx, c.Path, params, c.Method)
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, body)
	return nil
}

type sessionCmd struct {
	Set   sessionSetCmd   `cmd:"" help:"Store an access token obtained out-of-band."`
	Show  sessionShowCmd  `cmd:"" help:"Show whether a session is stored."`
	Clear sessionClearCmd `cmd:"" help:"Remove the stored session."`
}

type sessionSetCmd struct {
	Token     string `arg:"" help:"Access token."`
	ExpiresIn string `help:"Token lifetime in seconds as returned by the token endpoint (0 = never)."`
}

func (c *sessionSetCmd) Run(rt *runtime) error {
	client := graph.NewWithToken(nil, c.Token, graph.Options{GraphBaseURL: rt.cfg.GraphBaseURL})
	if c.ExpiresIn != "" {
		if err := client.SetAccessExpiresIn(c.ExpiresIn); err != nil {
			return err
		}
	}
	return withStore(rt, func(store storage.Store) error {
		return store.SaveSession(client.Session())
	})
}

type sessionShowCmd struct{}

func (c *sessionShowCmd) Run(rt *runtime) error {
	return withStore(rt, func(store storage.Store) error {
		sess, found, err := store.LoadSession()
		if err != nil {
			return err
		}
		if !found || !sess.Valid() {
			fmt.Fprintln(os.Stdout, "no session stored")
			return nil
		}
		fmt.Fprintf(os.Stdout, "session stored, access_expires=%d\n", sess.AccessExpires)
		return nil
	})
}

type sessionClearCmd struct{}

func (c *sessionClearCmd) Run(rt *runtime) error {
	return withStore(rt, func(store storage.Store) error {
		return store.ClearSession()
	})
}

type pollCmd struct{}

func (c *pollCmd) Run(rt *runtime) error {
	h, err := app.NewHarvester(rt.ctx, rt.cfg, rt.log)
	if err != nil {
		return err
	}
	defer h.Close()
	return h.RunOnce(rt.ctx)
}

func withStore(rt *runtime, fn func(storage.Store) error) error {
	store, err := app.OpenStore(rt.cfg, rt.log)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func parseParams(raw []string) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	params := make(map[string]string, len(raw))
	for _, kv := range raw {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("invalid parameter %q (expected key=value)", kv)
		}
		params[strings.TrimSpace(k)] = v
	}
	return params, nil
}

func main() {
	var c cli
	kctx := kong.Parse(&c,
		kong.Name("graphctl"),
		kong.Description("Command line client for the Graph API."),
		kong.UsageOnError(),
	)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.Init(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = kctx.Run(&runtime{ctx: ctx, cfg: cfg, log: log})
	if err != nil {
		logger.ErrorObj("graphctl command failed", "error", err.Error())
		stop()
		logger.Close()
		os.Exit(1)
	}
}
