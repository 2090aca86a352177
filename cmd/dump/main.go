// Command dump exports keys to a file and imports them back.
//
// Against a running server (the connection defaults to its active profile):
//
//	dump export -server http://localhost:8080/api -pattern 'user:*' -out users.yaml
//	dump import -server http://localhost:8080/api -overwrite users.yaml
//
// Or directly against Redis, without a server:
//
//	dump export -redis 127.0.0.1:6379 -db 2 -out all.json
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dracory/weeredis/backend"
	"github.com/dracory/weeredis/gateway"
	"github.com/dracory/weeredis/shared/constants"
	"github.com/dracory/weeredis/shared/dump"
	"github.com/dracory/weeredis/shared/types"
	"github.com/dracory/weeredis/shared/urls"
)

// localConnectionID names the ad-hoc connection used with -redis.
const localConnectionID = "dump"

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		log.Fatal(err)
	}
}

type target struct {
	server     string
	redisAddr  string
	password   string
	connection string
	db         int
	timeout    time.Duration
}

func (t *target) register(fs *flag.FlagSet) {
	fs.StringVar(&t.server, "server", "", "API endpoint of a running server, e.g. http://localhost:8080/api")
	fs.StringVar(&t.redisAddr, "redis", "", "host:port of a Redis server to use directly instead of -server")
	fs.StringVar(&t.password, "password", os.Getenv("REDIS_PASSWORD"), "Redis password for -redis")
	fs.StringVar(&t.connection, "connection", "", "profile id on the server (default: the active profile)")
	fs.IntVar(&t.db, "db", -1, "database to select first (default: leave as is)")
	fs.DurationVar(&t.timeout, "timeout", time.Minute, "overall timeout")
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return errors.New("usage: dump export|import [flags]")
	}

	switch args[0] {
	case "export":
		return runExport(ctx, args[1:], stdout)
	case "import":
		return runImport(ctx, args[1:], stdout)
	default:
		return fmt.Errorf("unknown subcommand %q", args[0])
	}
}

func runExport(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	var t target
	t.register(fs)
	pattern := fs.String("pattern", "*", "key pattern")
	out := fs.String("out", "", "output file (.json, .yaml or .yml); stdout as JSON when empty")
	if err := fs.Parse(args); err != nil {
		return err
	}

	format := dump.JSON
	if *out != "" {
		f, err := dump.FormatFromPath(*out)
		if err != nil {
			return err
		}
		format = f
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	inv, id, closeFn, err := t.open(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	res, err := gateway.ExportKeys(ctx, inv, id, *pattern)
	if err != nil {
		return err
	}
	keys, ok := res.Value()
	if !ok {
		return errors.New(res.Message())
	}

	file := dump.New(t.source(), max(t.db, 0), keys)

	w := stdout
	if *out != "" {
		fh, err := os.Create(*out)
		if err != nil {
			return err
		}
		defer fh.Close()
		w = fh
	}
	if err := dump.Encode(w, file, format); err != nil {
		return err
	}
	if *out != "" {
		fmt.Fprintf(stdout, "exported %d keys to %s\n", len(keys), *out)
	}
	return nil
}

func runImport(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	var t target
	t.register(fs)
	overwrite := fs.Bool("overwrite", false, "replace keys that already exist")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("import needs exactly one file")
	}
	path := fs.Arg(0)

	format, err := dump.FormatFromPath(path)
	if err != nil {
		return err
	}
	fh, err := os.Open(path)
	if err != nil {
		return err
	}
	defer fh.Close()
	file, err := dump.Decode(fh, format)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	inv, id, closeFn, err := t.open(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	res, err := gateway.ImportKeys(ctx, inv, id, file.Keys, *overwrite)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, res.Message())
	if !res.IsOk() {
		return errors.New("import finished with errors")
	}
	return nil
}

// open returns an invoker, the connection id to address and a cleanup func.
func (t *target) open(ctx context.Context) (gateway.Invoker, string, func(), error) {
	var (
		inv     gateway.Invoker
		id      string
		closeFn = func() {}
	)

	switch {
	case t.redisAddr != "" && t.server != "":
		return nil, "", nil, errors.New("use either -server or -redis")

	case t.redisAddr != "":
		profile, err := localProfile(t.redisAddr, t.password)
		if err != nil {
			return nil, "", nil, err
		}
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		registry := backend.NewRegistry(backend.DefaultDialTimeout, logger)
		inv = gateway.NewLocal(backend.NewDispatcher(backend.New(registry, backend.WithLogger(logger))))
		closeFn = registry.Close

		res, err := gateway.ConnectRedis(ctx, inv, profile)
		if err != nil {
			closeFn()
			return nil, "", nil, err
		}
		if !res.IsOk() {
			closeFn()
			return nil, "", nil, errors.New(res.Message())
		}
		id = profile.ID

	case t.server != "":
		client := &http.Client{Timeout: t.timeout}
		inv = gateway.NewHTTP(t.server, client)
		id = t.connection
		if id == "" {
			active, err := activeConnection(ctx, client, t.server)
			if err != nil {
				return nil, "", nil, err
			}
			id = active
		}

	default:
		return nil, "", nil, errors.New("one of -server or -redis is required")
	}

	if t.db >= 0 {
		res, err := gateway.SelectDb(ctx, inv, id, t.db)
		if err != nil {
			closeFn()
			return nil, "", nil, err
		}
		if !res.IsOk() {
			closeFn()
			return nil, "", nil, errors.New(res.Message())
		}
	}
	return inv, id, closeFn, nil
}

func (t *target) source() string {
	if t.redisAddr != "" {
		return t.redisAddr
	}
	return t.server
}

func localProfile(addr, password string) (types.ConnectionProfile, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return types.ConnectionProfile{}, fmt.Errorf("invalid -redis address: %w", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return types.ConnectionProfile{}, fmt.Errorf("invalid -redis port: %w", err)
	}
	return types.ConnectionProfile{
		ID:       localConnectionID,
		Name:     addr,
		Host:     host,
		Port:     port,
		Password: password,
	}, nil
}

// activeConnection asks the server which profile is active.
func activeConnection(ctx context.Context, client *http.Client, server string) (string, error) {
	endpoint := strings.TrimRight(server, "/") + strings.TrimPrefix(urls.Build("", constants.ActionState), "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var reply struct {
		Data struct {
			State struct {
				ActiveID string `json:"active_connection_id"`
			} `json:"state"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return "", fmt.Errorf("read server state: %w", err)
	}
	if reply.Data.State.ActiveID == "" {
		return "", errors.New("the server has no active connection; pass -connection")
	}
	return reply.Data.State.ActiveID, nil
}
