package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// DefaultCommandTimeout bounds commands run through Output.
const DefaultCommandTimeout = 30 * time.Second

// Runner runs the external speech tools. The CLI backends share one Runner so
// argv building and exit-code mapping live in a single place.
type Runner interface {
	// LookPath resolves a tool on the search path.
	LookPath(name string) (string, error)

	// Output runs a command to completion and returns its standard output.
	// A non-zero exit is reported as a *CommandError.
	Output(ctx context.Context, name string, args ...string) ([]byte, error)

	// Start launches a command with stdin as its standard input and returns
	// without waiting for it.
	Start(stdin string, name string, args ...string) (Process, error)
}

// Process is a started command.
type Process interface {
	// Wait blocks until the command exits. A non-zero exit is reported as a
	// *CommandError.
	Wait() error

	// Stop terminates the command and anything it spawned.
	Stop() error
}

// CommandError describes a command that ran and exited unsuccessfully.
type CommandError struct {
	Name   string
	Args   []string
	Output string
	Err    error
}

// Error implements the error interface.
func (e *CommandError) Error() string {
	if out := strings.TrimSpace(e.Output); out != "" {
		return fmt.Sprintf("%s failed: %v\noutput: %s", e.Name, e.Err, out)
	}
	return fmt.Sprintf("%s failed: %v", e.Name, e.Err)
}

// Unwrap returns the underlying error.
func (e *CommandError) Unwrap() error {
	return e.Err
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	timeout time.Duration
}

// NewExecRunner creates a runner whose Output calls time out after timeout
// when the context has no deadline of its own.
func NewExecRunner(timeout time.Duration) *ExecRunner {
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	return &ExecRunner{timeout: timeout}
}

// LookPath implements Runner.
func (r *ExecRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

// Output implements Runner.
func (r *ExecRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// Children that inherit the pipes must not hold Run open past a kill.
	cmd.WaitDelay = time.Second

	err := cmd.Run()
	log.Debug("Subprocess executed", "command", name, "args", args, "duration", time.Since(start), "error", err)

	if ctx.Err() != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%s timed out after %v", name, r.timeout)
		}
		return nil, fmt.Errorf("%s cancelled: %w", name, ctx.Err())
	}
	if err != nil {
		output := stderr.String()
		if strings.TrimSpace(output) == "" {
			output = stdout.String()
		}
		return nil, &CommandError{Name: name, Args: args, Output: output, Err: err}
	}
	return stdout.Bytes(), nil
}

// Start implements Runner.
func (r *ExecRunner) Start(stdin string, name string, args ...string) (Process, error) {
	cmd := exec.Command(name, args...)
	if stdin != "" {
		// stdin is attached before Start so the child never sees a half-set pipe.
		cmd.Stdin = strings.NewReader(stdin)
	}
	p := &execProcess{cmd: cmd, name: name, args: args, started: time.Now()}
	cmd.Stderr = &p.stderr
	setProcessGroup(cmd)

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", name, err)
	}
	return p, nil
}

// execProcess is a started os/exec command.
type execProcess struct {
	cmd     *exec.Cmd
	name    string
	args    []string
	started time.Time
	stderr  bytes.Buffer

	once    sync.Once
	waitErr error
}

// Wait implements Process.
func (p *execProcess) Wait() error {
	p.once.Do(func() {
		err := p.cmd.Wait()
		log.Debug("Subprocess finished", "command", p.name, "args", p.args, "duration", time.Since(p.started), "error", err)
		if err != nil {
			p.waitErr = &CommandError{Name: p.name, Args: p.args, Output: p.stderr.String(), Err: err}
		}
	})
	return p.waitErr
}

// Stop implements Process.
func (p *execProcess) Stop() error {
	return terminate(p.cmd.Process)
}
