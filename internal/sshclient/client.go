// Package sshclient drives the external ssh binary through its control
// socket (multiplexing) feature.
//
// This package does NOT implement the SSH protocol. It shells out to a
// pre-existing ssh client, which means tunnels automatically inherit the
// user's full SSH configuration (keys, agents, ProxyJump chains, etc.)
// without reimplementing any of that logic.
//
// Tunnel lifecycle is expressed as three verbs against the same control
// socket path:
//
//   - Run:   ssh -S <name> -M -f -N -T [-L|-R|-D <spec>] <login>
//     starts a multiplexing master that backgrounds itself and holds the
//     control socket open.
//   - Check: ssh -S <name> -O check <login>
//     exit status 0 means the master is alive; anything else, including
//     "no such socket", means the tunnel is not running.
//   - Kill:  ssh -S <name> -O exit <login>
//     asks the existing master to terminate.
//
// There is deliberately no held process handle and no cached "running"
// flag: the authoritative state lives in the external ssh client, and is
// rediscovered through Check every time it is needed.
//
// Security note: all ssh arguments are passed via exec.Command's argv (not
// via shell interpolation), which prevents injection from tunnel names or
// forward specs that contain shell metacharacters.
package sshclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/creack/pty"

	"github.com/death/ssh-tunnels/internal/forward"
	"github.com/death/ssh-tunnels/internal/model"
	"github.com/death/ssh-tunnels/internal/state"
)

// CommandRunner abstracts execution of the external ssh binary for testing.
// Run executes name with args in dir and returns the subprocess error
// (nil on exit status 0).
type CommandRunner interface {
	Run(dir, name string, args []string) error
}

// execRunner is the production CommandRunner backed by os/exec.
type execRunner struct{}

func (execRunner) Run(dir, name string, args []string) error {
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	cmd.Stdin = nil
	cmd.Stdout = io.Discard

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil && stderr.Len() > 0 {
		return fmt.Errorf("%w: %s", err, bytes.TrimSpace(stderr.Bytes()))
	}
	return err
}

// Client executes control-socket operations for tunnels.
//
// The control socket for a tunnel is named after the tunnel itself and
// lives in ControlDir, which is also the working directory of every ssh
// invocation, so the tunnel name is passed to -S verbatim and repeated
// invocations for the same name address the same master connection.
//
// Client is the only writer of the override store: Run records the local
// endpoint actually used, Kill removes it.
type Client struct {
	Binary     string
	ControlDir string

	store  *state.Store
	runner CommandRunner
}

// New creates a client for the given ssh binary and control directory,
// recording overrides in store.
func New(binary, controlDir string, store *state.Store) *Client {
	return NewWithRunner(binary, controlDir, store, execRunner{})
}

// NewWithRunner creates a client that executes commands through runner
// instead of os/exec. Used by tests to simulate the ssh client.
func NewWithRunner(binary, controlDir string, store *state.Store, runner CommandRunner) *Client {
	return &Client{
		Binary:     binary,
		ControlDir: controlDir,
		store:      store,
		runner:     runner,
	}
}

// EnsureBinary checks that the configured ssh binary is resolvable.
//
// This should be called early (before any tunnel operation) to provide a
// clear error message if ssh is not installed, rather than failing later
// with a confusing exec error.
func EnsureBinary(binary string) error {
	if _, err := exec.LookPath(binary); err != nil {
		return fmt.Errorf("ssh binary %q not found in PATH", binary)
	}
	return nil
}

// Run starts the multiplexing master for r.
//
// The override entry for r.Name is cleared and re-set to whichever local
// endpoint is populated before the subprocess is invoked, so a later
// resolution reports the endpoint the tunnel actually uses even if the
// configuration changes while it runs. Shell-managed tunnels get no
// forwarding flag; their forwarding is assumed pre-configured in the ssh
// client's own config for the login alias.
//
// The master backgrounds itself (-f), so Run returns as soon as the
// client forks; callers that need confirmation should Check afterwards.
func (c *Client) Run(r model.ResolvedTunnel) error {
	c.store.Delete(r.Name)
	if ep := localEndpoint(r); !ep.IsZero() {
		c.store.Set(r.Name, ep)
	}

	args := []string{"-S", r.Name, "-M", "-f", "-N", "-T"}
	if r.Type != model.TypeShell {
		spec, err := forward.Build(r)
		if err != nil {
			return err
		}
		args = append(args, forward.Flag(r.Type), spec)
	}
	args = append(args, r.Login)

	if err := c.runner.Run(c.ControlDir, c.Binary, args); err != nil {
		return fmt.Errorf("run tunnel %q: %w", r.Name, err)
	}
	return nil
}

// Check reports whether the master for r is alive. A nonzero exit,
// including "no such socket", is the normal negative result, not an
// error.
func (c *Client) Check(r model.ResolvedTunnel) bool {
	err := c.runner.Run(c.ControlDir, c.Binary, []string{"-S", r.Name, "-O", "check", r.Login})
	return err == nil
}

// Kill asks the master for r to exit. The override entry is removed
// regardless of the subprocess outcome: a failed kill still clears local
// bookkeeping so a subsequent Run can proceed cleanly.
func (c *Client) Kill(r model.ResolvedTunnel) error {
	err := c.runner.Run(c.ControlDir, c.Binary, []string{"-S", r.Name, "-O", "exit", r.Login})
	c.store.Delete(r.Name)
	if err != nil {
		return fmt.Errorf("kill tunnel %q: %w", r.Name, err)
	}
	return nil
}

// RunInteractive opens an interactive SSH session to login in a
// pseudo-terminal, for attaching a shell to a tunnel's target host. It
// blocks until the session ends. If ctx is cancelled while the session is
// active, the ssh process is killed.
func (c *Client) RunInteractive(ctx context.Context, login string) error {
	cmd := exec.Command(c.Binary, login)

	f, err := pty.Start(cmd)
	if err != nil {
		return err
	}
	defer f.Close()

	// Forward user input into the PTY master; the goroutine terminates
	// when the PTY closes after the ssh process exits.
	go func() {
		_, _ = io.Copy(f, os.Stdin)
	}()

	_, _ = io.Copy(os.Stdout, f)

	if ctx.Err() != nil {
		_ = cmd.Process.Kill()
	}
	return cmd.Wait()
}

func localEndpoint(r model.ResolvedTunnel) state.Endpoint {
	if r.LocalPort > 0 {
		return state.Endpoint{Port: r.LocalPort}
	}
	return state.Endpoint{Socket: r.LocalSocket}
}
