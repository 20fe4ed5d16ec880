package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func main() {
	if err := buildRoot().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// GlobalFlags holds persistent flags shared by all commands.
type GlobalFlags struct {
	ConfigPath string
}

// LaunchFlags holds flags for the launch command.
type LaunchFlags struct {
	ID          string
	Executable  string
	Args        []string
	Env         []string
	WorkDir     string
	Elevated    bool
	Capture     bool
	GraceWindow time.Duration
	APIUrl      string
	APITimeout  time.Duration
}

// KillFlags holds flags for the kill command.
type KillFlags struct {
	ID         string
	Force      bool
	APIUrl     string
	APITimeout time.Duration
}

// StatusFlags holds flags for the status and running commands.
type StatusFlags struct {
	ID         string
	APIUrl     string
	APITimeout time.Duration
}

// ServeFlags holds flags for the serve command.
type ServeFlags struct {
	ConfigPath string
}

func buildRoot() *cobra.Command {
	globalFlags := &GlobalFlags{}
	launchFlags := &LaunchFlags{}
	killFlags := &KillFlags{}
	statusFlags := &StatusFlags{}

	root := &cobra.Command{
		Use:   "gamesup",
		Short: "Game process supervision tool",
		Long: `Gamesup launches and supervises game executables, including
elevated-privilege launches, and tracks their lifecycle until exit.

Examples:
  gamesup serve --config=config.toml
  gamesup launch --id=g1 --executable=/usr/bin/mygame
  gamesup status --id=g1
  gamesup kill --id=g1 --force`,
	}
	root.PersistentFlags().StringVar(&globalFlags.ConfigPath, "config", "", "path to TOML config file (optional)")

	root.AddCommand(
		createLaunchCommand(launchFlags),
		createKillCommand(killFlags),
		createStatusCommand(statusFlags),
		createRunningCommand(statusFlags),
		createServeCommand(globalFlags),
	)
	return root
}

func createLaunchCommand(flags *LaunchFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "launch",
		Short: "Launch a supervised process",
		Long: `Launch an executable under supervision via the gamesup daemon.

Examples:
  gamesup launch --id=g1 --executable=/usr/games/mygame
  gamesup launch --id=g2 --executable="C:\Games\game.exe" --elevated
  gamesup launch --id=g3 --executable=/usr/bin/tool --arg=-v --arg=--fast`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := NewAPIClient(flags.APIUrl, flags.APITimeout)
			snap, err := client.Launch(*flags)
			if err != nil {
				return err
			}
			fmt.Printf("launched %s (pid %d, status %s)\n", snap.ID, snap.PID, snap.Status)
			return nil
		},
	}
	cmd.Flags().StringVar(&flags.ID, "id", "", "process id (required)")
	cmd.Flags().StringVar(&flags.Executable, "executable", "", "executable path (required)")
	cmd.Flags().StringArrayVar(&flags.Args, "arg", nil, "argument, repeatable")
	cmd.Flags().StringArrayVar(&flags.Env, "env", nil, "KEY=VALUE environment override, repeatable")
	cmd.Flags().StringVar(&flags.WorkDir, "work-dir", "", "working directory")
	cmd.Flags().BoolVar(&flags.Elevated, "elevated", false, "launch with elevated privileges")
	cmd.Flags().BoolVar(&flags.Capture, "capture", false, "capture child stdout/stderr")
	cmd.Flags().DurationVar(&flags.GraceWindow, "grace-window", 0, "quick-exit detach window (0 = server default)")
	cmd.Flags().StringVar(&flags.APIUrl, "api-url", "", "daemon URL (e.g. http://host:8080/api)")
	cmd.Flags().DurationVar(&flags.APITimeout, "api-timeout", 30*time.Second, "request timeout")
	if err := cmd.MarkFlagRequired("id"); err != nil {
		panic(err)
	}
	if err := cmd.MarkFlagRequired("executable"); err != nil {
		panic(err)
	}
	return cmd
}

func createKillCommand(flags *KillFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kill",
		Short: "Terminate a supervised process",
		Long: `Request termination of a supervised process.

Examples:
  gamesup kill --id=g1
  gamesup kill --id=g1 --force`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := NewAPIClient(flags.APIUrl, flags.APITimeout)
			if err := client.Kill(flags.ID, flags.Force); err != nil {
				return err
			}
			fmt.Printf("kill requested for %s\n", flags.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&flags.ID, "id", "", "process id (required)")
	cmd.Flags().BoolVar(&flags.Force, "force", false, "use the non-catchable signal immediately")
	cmd.Flags().StringVar(&flags.APIUrl, "api-url", "", "daemon URL (e.g. http://host:8080/api)")
	cmd.Flags().DurationVar(&flags.APITimeout, "api-timeout", 30*time.Second, "request timeout")
	if err := cmd.MarkFlagRequired("id"); err != nil {
		panic(err)
	}
	return cmd
}

func createStatusCommand(flags *StatusFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show process status",
		Long: `Show the status of supervised processes.

Examples:
  gamesup status              # all processes
  gamesup status --id=g1      # one process`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := NewAPIClient(flags.APIUrl, flags.APITimeout)
			if flags.ID != "" {
				snap, err := client.Status(flags.ID)
				if err != nil {
					return err
				}
				return renderStatusTable(os.Stdout, []snapshot{*snap})
			}
			snaps, err := client.AllStatuses()
			if err != nil {
				return err
			}
			return renderStatusTable(os.Stdout, snaps)
		},
	}
	cmd.Flags().StringVar(&flags.ID, "id", "", "process id (optional)")
	cmd.Flags().StringVar(&flags.APIUrl, "api-url", "", "daemon URL (e.g. http://host:8080/api)")
	cmd.Flags().DurationVar(&flags.APITimeout, "api-timeout", 30*time.Second, "request timeout")
	return cmd
}

func createRunningCommand(flags *StatusFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "running",
		Short: "Check whether a process is running",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := NewAPIClient(flags.APIUrl, flags.APITimeout)
			running, err := client.Running(flags.ID)
			if err != nil {
				return err
			}
			fmt.Printf("%s running=%v\n", flags.ID, running)
			if !running {
				os.Exit(1)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&flags.ID, "id", "", "process id (required)")
	cmd.Flags().StringVar(&flags.APIUrl, "api-url", "", "daemon URL (e.g. http://host:8080/api)")
	cmd.Flags().DurationVar(&flags.APITimeout, "api-timeout", 30*time.Second, "request timeout")
	if err := cmd.MarkFlagRequired("id"); err != nil {
		panic(err)
	}
	return cmd
}

func createServeCommand(globalFlags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve [config.toml]",
		Short: "Start the gamesup daemon",
		Long: `Start the gamesup daemon server to launch and supervise processes.
Configuration is loaded from a TOML file.

Examples:
  gamesup serve config.toml
  gamesup serve --config=config.toml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath := globalFlags.ConfigPath
			if len(args) > 0 {
				configPath = args[0]
			}
			return runServe(configPath)
		},
	}
}
