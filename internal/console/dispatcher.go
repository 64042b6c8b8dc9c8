// Package console implements the operator command surface: a line-oriented
// dispatcher translating validated commands into registry and journal calls.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/dlots/foreman/internal/journal"
	"github.com/dlots/foreman/internal/registry"
)

// Recognized commands.
const (
	cmdInfo    = "info"
	cmdNew     = "new"
	cmdKill    = "kill"
	cmdReset   = "reset"
	cmdStop    = "stop"
	cmdHistory = "history"
)

// Dispatcher maps console command lines to registry and journal operations.
// A single reader goroutine drives it, so commands are serialized relative
// to each other while running concurrently with the workers and the
// initializer.
type Dispatcher struct {
	reg *registry.Registry
	jnl journal.Journal
	out io.Writer
	log *slog.Logger
}

// New creates a dispatcher writing operator-visible output to out.
func New(reg *registry.Registry, jnl journal.Journal, out io.Writer, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		reg: reg,
		jnl: jnl,
		out: out,
		log: logger,
	}
}

// Run reads command lines from r until a stop command, end of input, or ctx
// cancellation, whichever comes first, then initiates the global shutdown
// and returns once every worker has been joined. EOF and cancellation are
// treated exactly like stop so a closed stdin or a signal still shuts the
// pool down cleanly.
func (d *Dispatcher) Run(ctx context.Context, r io.Reader) {
	lines := make(chan string)
	go func() {
		// May stay blocked in Scan when ctx is cancelled first; the process
		// is exiting at that point, so the goroutine is abandoned.
		defer close(lines)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			d.log.Info("console interrupted, shutting down")
			d.reg.Shutdown()
			return
		case line, ok := <-lines:
			if !ok {
				d.log.Info("console input closed, shutting down")
				d.reg.Shutdown()
				return
			}
			if d.Dispatch(line) {
				return
			}
		}
	}
}

// Dispatch executes a single command line and reports whether it was a stop
// command. Empty lines are ignored. Malformed numeric values for optional
// arguments degrade to absent; a missing or malformed required worker ID
// aborts only that command with a usage error.
func (d *Dispatcher) Dispatch(line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	command, args := fields[0], fields[1:]

	switch command {
	case cmdInfo:
		for _, w := range d.reg.Info() {
			fmt.Fprintf(d.out, "%d, %d\n", w.ID, w.Counter)
		}
	case cmdNew:
		d.spawn(args)
	case cmdKill:
		id, ok := d.workerID(args)
		if !ok {
			return false
		}
		d.reg.Kill(id)
	case cmdReset:
		id, ok := d.workerID(args)
		if !ok {
			return false
		}
		var value int64
		if len(args) > 1 {
			if v, err := strconv.ParseInt(args[1], 10, 64); err == nil {
				value = v
			}
		}
		if d.reg.Reset(id, value) {
			fmt.Fprintf(d.out, "worker %d, new value is %d\n", id, value)
		}
	case cmdHistory:
		d.history(args)
	case cmdStop:
		d.reg.Shutdown()
		return true
	default:
		fmt.Fprintln(d.out, "Unknown command.")
	}
	return false
}

func (d *Dispatcher) spawn(args []string) {
	var initial *int64
	if len(args) > 0 {
		// A non-numeric optional value is treated as absent.
		if v, err := strconv.ParseInt(args[0], 10, 64); err == nil {
			initial = &v
		}
	}
	id, err := d.reg.Spawn(initial)
	if err != nil {
		fmt.Fprintln(d.out, "Cannot start a worker, shutting down.")
		return
	}
	fmt.Fprintf(d.out, "worker %d started\n", id)
}

func (d *Dispatcher) history(args []string) {
	limit := 0
	if len(args) > 0 {
		if v, err := strconv.Atoi(args[0]); err == nil && v > 0 {
			limit = v
		}
	}

	events, err := d.jnl.List(context.Background(), limit)
	if err != nil {
		d.log.Error("list journal events", "error", err)
		fmt.Fprintln(d.out, "History is unavailable.")
		return
	}
	for _, ev := range events {
		line := fmt.Sprintf("%s  %s", ev.CreatedAt.Format(time.RFC3339), ev.Kind)
		if ev.WorkerID != 0 {
			line += fmt.Sprintf("  worker=%d", ev.WorkerID)
		}
		if ev.Value != nil {
			line += fmt.Sprintf("  value=%d", *ev.Value)
		}
		fmt.Fprintln(d.out, line)
	}
}

// workerID parses the required worker ID argument, printing a usage error
// and reporting false when it is missing or not a number.
func (d *Dispatcher) workerID(args []string) (uint64, bool) {
	if len(args) == 0 {
		fmt.Fprintln(d.out, "Please provide worker id")
		return 0, false
	}
	id, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		fmt.Fprintln(d.out, "Please provide worker id")
		return 0, false
	}
	return id, true
}
