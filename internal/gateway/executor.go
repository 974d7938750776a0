package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/nerrad567/gray-logic-tradfri/internal/process"
	"github.com/nerrad567/gray-logic-tradfri/internal/throttle"
)

// Lane is the queue lane every coap-client invocation runs on.
const Lane = "coap"

// Runner runs a prepared command. *process.Runner satisfies it.
type Runner interface {
	Run(ctx context.Context, cmd process.Command) (process.Result, error)
}

// ExecutorConfig locates the gateway and the coap-client binary.
type ExecutorConfig struct {
	Host    string
	Port    int
	Binary  string
	Timeout time.Duration
}

// Executor runs Requests through coap-client, one queue ticket per call.
type Executor struct {
	cfg    ExecutorConfig
	queue  *throttle.Queue
	runner Runner
}

// NewExecutor creates an Executor. The queue is shared with every other
// component talking to the same gateway.
func NewExecutor(cfg ExecutorConfig, queue *throttle.Queue, runner Runner) *Executor {
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = process.DefaultTimeout
	}
	return &Executor{cfg: cfg, queue: queue, runner: runner}
}

// URI returns the coaps:// URI for a request path.
func (e *Executor) URI(path string) string {
	return "coaps://" + net.JoinHostPort(e.cfg.Host, strconv.Itoa(e.cfg.Port)) + "/" + path
}

// Args renders req as coap-client arguments.
func (e *Executor) Args(req Request) []string {
	args := []string{
		"-m", string(req.Verb),
		"-u", req.Credentials.Identity,
		"-k", req.Credentials.Secret,
	}
	if req.Payload != "" {
		args = append(args, "-e", req.Payload)
	}
	return append(args, e.URI(req.Path))
}

// Execute queues req and runs it.
//
// With parse set the output is decoded. Without it the result is an empty
// payload whenever the process ran at all, whatever it printed or exited
// with. Start failures map to ErrConnectivity and overruns to ErrTimeout.
func (e *Executor) Execute(ctx context.Context, req Request, parse bool) (RawPayload, error) {
	cmd := process.Command{
		Name:    "coap-client " + string(req.Verb) + " " + req.Path,
		Binary:  e.cfg.Binary,
		Args:    e.Args(req),
		Timeout: e.cfg.Timeout,
	}

	res, err := throttle.Do(ctx, e.queue, Lane, func(ctx context.Context) (process.Result, error) {
		return e.runner.Run(ctx, cmd)
	})

	switch {
	case err == nil, errors.Is(err, process.ErrExited):
		// ran to completion
	case errors.Is(err, process.ErrTimeout):
		return RawPayload{}, fmt.Errorf("%w: %s %s: %w", ErrTimeout, req.Verb, req.Path, err)
	case errors.Is(err, process.ErrStartFailed):
		return RawPayload{}, fmt.Errorf("%w: %s %s: %w", ErrConnectivity, req.Verb, req.Path, err)
	default:
		return RawPayload{}, fmt.Errorf("%s %s: %w", req.Verb, req.Path, err)
	}

	if !parse {
		return RawPayload{}, nil
	}

	p, err := Decode(res.Stdout)
	if err != nil {
		return RawPayload{}, fmt.Errorf("%s %s: %w", req.Verb, req.Path, err)
	}
	return p, nil
}
