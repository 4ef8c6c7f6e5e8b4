// Package cli provides the command-line interface for ssh-tunnels.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/death/ssh-tunnels/internal/appconfig"
	"github.com/death/ssh-tunnels/internal/config"
	"github.com/death/ssh-tunnels/internal/doctor"
	"github.com/death/ssh-tunnels/internal/events"
	"github.com/death/ssh-tunnels/internal/groups"
	"github.com/death/ssh-tunnels/internal/model"
	"github.com/death/ssh-tunnels/internal/sshclient"
	"github.com/death/ssh-tunnels/internal/state"
	"github.com/death/ssh-tunnels/internal/tunnel"
	"github.com/death/ssh-tunnels/internal/ui"
	"github.com/death/ssh-tunnels/internal/util"
)

// NewRootCommand creates the root cobra command.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "ssh-tunnels",
		Short: "Manage SSH tunnels through the ssh client's control sockets",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ui.Run()
		},
	}

	root.AddCommand(
		newListCmd(),
		newRunCmd(),
		newCheckCmd(),
		newKillCmd(),
		newRerunCmd(),
		newImportCmd(),
		newGroupCmd(),
		newEventsCmd(),
		newDoctorCmd(),
		newAttachCmd(),
	)
	return root
}

// newManager wires the standard production stack: app config, tunnel
// definitions, a fresh override store, and the real ssh executor.
func newManager() (*tunnel.Manager, []string, error) {
	cfg, err := appconfig.Load()
	if err != nil {
		return nil, nil, err
	}
	res, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	overrides := state.NewStore()
	client := sshclient.New(cfg.SSHBinary, cfg.ControlDir, overrides)
	mgr := tunnel.NewManager(res.Tunnels, client, overrides).WithJournal(events.NewStore())
	return mgr, res.Warnings, nil
}

func newListCmd() *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List configured tunnels and their state",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, warnings, err := newManager()
			if err != nil {
				return err
			}
			statuses := mgr.Statuses()
			if jsonOut {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(statuses)
			}
			fmt.Printf("%-20s %-8s %-24s %-20s %-12s %-12s %s\n",
				"NAME", "TYPE", "LOGIN", "HOST", "LOCAL", "REMOTE", "STATE")
			for _, st := range statuses {
				if st.Err != nil {
					fmt.Printf("%-20s %-8s %-24s %-20s %-12s %-12s invalid: %v\n",
						st.Config.Name, st.Config.EffectiveType(), util.EmptyDash(st.Config.Login),
						"-", "-", "-", st.Err)
					continue
				}
				stateStr := "stopped"
				if st.Running {
					stateStr = "running"
				}
				fmt.Printf("%-20s %-8s %-24s %-20s %-12s %-12s %s\n",
					st.Resolved.Name, st.Resolved.Type, util.EmptyDash(st.Resolved.Login),
					st.Resolved.Host, util.EmptyDash(st.Resolved.LocalEndpoint()),
					util.EmptyDash(st.Resolved.RemoteEndpoint()), stateStr)
			}
			for _, w := range warnings {
				fmt.Fprintf(os.Stderr, "warning: %s\n", w)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output JSON")
	return cmd
}

func newRunCmd() *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "run <name>",
		Short: "Start a tunnel's multiplexing master",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if port != 0 {
				if err := util.ValidatePort(port); err != nil {
					return err
				}
			}
			mgr, _, err := newManager()
			if err != nil {
				return err
			}
			if running, err := mgr.Check(args[0]); err == nil && running {
				fmt.Printf("%s is already running\n", args[0])
				return nil
			}
			if err := mgr.Run(args[0], port); err != nil {
				return err
			}
			fmt.Printf("started %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "run on this local port instead of the configured one")
	return cmd
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <name>",
		Short: "Report whether a tunnel is running",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, _, err := newManager()
			if err != nil {
				return err
			}
			running, err := mgr.Check(args[0])
			if err != nil {
				return err
			}
			if running {
				fmt.Printf("%s is running\n", args[0])
				return nil
			}
			fmt.Printf("%s is not running\n", args[0])
			return nil
		},
	}
}

func newKillCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "kill <name>",
		Short: "Stop a tunnel's master connection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, _, err := newManager()
			if err != nil {
				return err
			}
			if err := mgr.Kill(args[0]); err != nil {
				return err
			}
			fmt.Printf("stopped %s\n", args[0])
			return nil
		},
	}
}

func newRerunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rerun <name>",
		Short: "Stop and restart a tunnel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, _, err := newManager()
			if err != nil {
				return err
			}
			if err := mgr.Rerun(args[0]); err != nil {
				return err
			}
			fmt.Printf("restarted %s\n", args[0])
			return nil
		},
	}
}

func newImportCmd() *cobra.Command {
	var write bool
	cmd := &cobra.Command{
		Use:   "import [ssh-config-path]",
		Short: "Derive tunnel definitions from ssh_config forwarding directives",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var res config.ImportResult
			var err error
			if len(args) == 1 {
				res, err = config.ImportFile(args[0])
			} else {
				res, err = config.ImportDefault()
			}
			if err != nil {
				return err
			}
			for _, w := range res.Warnings {
				fmt.Fprintf(os.Stderr, "warning: %s\n", w)
			}
			if len(res.Tunnels) == 0 {
				fmt.Println("no forwarding directives found")
				return nil
			}
			if !write {
				for _, t := range res.Tunnels {
					fmt.Printf("%-20s %-8s %s\n", t.Name, t.EffectiveType(), t.Login)
				}
				fmt.Println("re-run with --write to append these to tunnels.yaml")
				return nil
			}
			added, err := config.Append(res.Tunnels)
			if err != nil {
				return err
			}
			fmt.Printf("added %d tunnel(s)\n", added)
			return nil
		},
	}
	cmd.Flags().BoolVar(&write, "write", false, "append imported tunnels to tunnels.yaml")
	return cmd
}

func newGroupCmd() *cobra.Command {
	root := &cobra.Command{Use: "group", Short: "Manage tunnel groups"}

	list := &cobra.Command{
		Use:   "list",
		Short: "List groups",
		RunE: func(cmd *cobra.Command, args []string) error {
			defs, err := groups.LoadAll()
			if err != nil {
				return err
			}
			for _, g := range defs {
				fmt.Printf("%-20s %d tunnel(s)\n", g.Name, len(g.Tunnels))
			}
			return nil
		},
	}

	add := &cobra.Command{
		Use:   "add <name> <tunnel>...",
		Short: "Create or replace a group",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return groups.Create(args[0], args[1:])
		},
	}

	rm := &cobra.Command{
		Use:   "rm <name>",
		Short: "Delete a group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return groups.Delete(args[0])
		},
	}

	up := &cobra.Command{
		Use:   "up <name>",
		Short: "Start every tunnel in a group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return forEachGroupMember(args[0], func(mgr *tunnel.Manager, name string) error {
				if running, err := mgr.Check(name); err == nil && running {
					fmt.Printf("%s is already running\n", name)
					return nil
				}
				if err := mgr.Run(name, 0); err != nil {
					return err
				}
				fmt.Printf("started %s\n", name)
				return nil
			})
		},
	}

	down := &cobra.Command{
		Use:   "down <name>",
		Short: "Stop every tunnel in a group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return forEachGroupMember(args[0], func(mgr *tunnel.Manager, name string) error {
				if err := mgr.Kill(name); err != nil {
					return err
				}
				fmt.Printf("stopped %s\n", name)
				return nil
			})
		},
	}

	root.AddCommand(list, add, rm, up, down)
	return root
}

func forEachGroupMember(group string, op func(*tunnel.Manager, string) error) error {
	def, err := groups.Get(group)
	if err != nil {
		return err
	}
	mgr, _, err := newManager()
	if err != nil {
		return err
	}
	for _, name := range def.Tunnels {
		if err := op(mgr, name); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
		}
	}
	return nil
}

func newEventsCmd() *cobra.Command {
	var (
		name  string
		verb  string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show the tunnel lifecycle journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			evts, err := events.NewStore().Read(events.Query{
				Tunnel: name,
				Verb:   model.Verb(verb),
				Limit:  limit,
			})
			if err != nil {
				return err
			}
			for _, e := range evts {
				fmt.Printf("%s %-6s %-20s %s\n",
					e.Timestamp.Format(time.RFC3339), e.Verb, e.Tunnel, e.Message)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "tunnel", "", "filter by tunnel name")
	cmd.Flags().StringVar(&verb, "verb", "", "filter by verb (run, kill)")
	cmd.Flags().IntVar(&limit, "limit", 0, "show at most N most recent events")
	return cmd
}

func newDoctorCmd() *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose the local tunnel setup",
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := doctor.Run()
			if err != nil {
				return err
			}
			if jsonOut {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			if len(report.Issues) == 0 {
				fmt.Println("no issues found")
				return nil
			}
			for _, is := range report.Issues {
				fmt.Printf("[%s] %s (%s): %s\n  -> %s\n",
					is.Severity, is.Check, is.Target, is.Message, is.Recommendation)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output JSON")
	return cmd
}

func newAttachCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "attach <name>",
		Short: "Open an interactive shell to a tunnel's login target",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := appconfig.Load()
			if err != nil {
				return err
			}
			mgr, _, err := newManager()
			if err != nil {
				return err
			}
			t, err := mgr.Find(args[0])
			if err != nil {
				return err
			}
			if t.Login == "" {
				return fmt.Errorf("tunnel %q has no login target", t.Name)
			}
			if err := sshclient.EnsureBinary(cfg.SSHBinary); err != nil {
				return err
			}
			client := sshclient.New(cfg.SSHBinary, cfg.ControlDir, state.NewStore())
			ctx, cancel := context.WithTimeout(context.Background(), 24*time.Hour)
			defer cancel()
			return client.RunInteractive(ctx, t.Login)
		},
	}
}
