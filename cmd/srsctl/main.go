// Command srsctl is the operator-facing CLI: run starts the daemon in
// the foreground, every other subcommand is a one-shot call against the
// §6 facade (app.App) for scripting and diagnostics.
package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Taragi14/smart-resource-scheduler/internal/app"
	"github.com/Taragi14/smart-resource-scheduler/internal/config"
	"github.com/Taragi14/smart-resource-scheduler/internal/model"
)

var rootCmd = &cobra.Command{
	Use:   "srsctl",
	Short: "Adaptive resource scheduler control",
}

func main() {
	registerCommands(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

func registerCommands(root *cobra.Command) {
	root.AddCommand(createRunCommand())
	root.AddCommand(createModeCommand())
	root.AddCommand(createTopCommand())
	root.AddCommand(createSnapshotCommand())
	root.AddCommand(createPauseCommand())
	root.AddCommand(createResumeCommand())
	root.AddCommand(createTerminateCommand())
	root.AddCommand(createNiceCommand())
	root.AddCommand(createOptimizeMemoryCommand())
	root.AddCommand(createClearCachesCommand())
}

func createRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the scheduler daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			cfg := config.Default()
			if configPath != "" {
				if err := config.LoadFile(configPath, &cfg); err != nil {
					return fmt.Errorf("srsctl: %w", err)
				}
			}
			a := app.New(cfg, nil)
			if err := a.Start(); err != nil {
				return fmt.Errorf("srsctl: %w", err)
			}
			waitForSignal()
			a.Stop()
			return nil
		},
	}
	cmd.Flags().StringP("config", "c", "", "path to key=value config file")
	return cmd
}

func waitForSignal() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
}

func createModeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "mode [name]",
		Short: "Show or switch the active mode",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newDaemonlessApp()
			if err != nil {
				return err
			}
			if len(args) == 0 {
				fmt.Println(a.CurrentMode().String())
				return nil
			}
			m, ok := model.ParseMode(args[0])
			if !ok {
				return fmt.Errorf("srsctl: unrecognized mode %q", args[0])
			}
			if err := a.SwitchMode(m); err != nil {
				return fmt.Errorf("srsctl: switch mode: %w", err)
			}
			fmt.Println("switched to", m.String())
			return nil
		},
	}
}

func createTopCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "top",
		Short: "List top processes by CPU or memory",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newDaemonlessApp()
			if err != nil {
				return err
			}
			n, _ := cmd.Flags().GetInt("count")
			byMem, _ := cmd.Flags().GetBool("mem")

			var rows []model.ProcessSnapshot
			if byMem {
				rows = a.TopMemory(n)
			} else {
				rows = a.TopCPU(n)
			}
			for _, p := range rows {
				fmt.Printf("%6d %-20s cpu=%.1f%% rss=%dKB\n", p.PID, p.Name, p.CPUPct, p.RSSKB)
			}
			return nil
		},
	}
	cmd.Flags().IntP("count", "n", 10, "number of processes to list")
	cmd.Flags().Bool("mem", false, "rank by memory instead of CPU")
	return cmd
}

func createSnapshotCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot",
		Short: "Print a system-wide snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newDaemonlessApp()
			if err != nil {
				return err
			}
			sys := a.SystemSnapshot()
			fmt.Printf("cpu=%.1f%% mem=%.1f%% load1=%.2f cores=%d\n",
				sys.CPUTotalPct, sys.UsedPct(), sys.Load1, sys.CoreCount)
			return nil
		},
	}
}

func createPauseCommand() *cobra.Command {
	return pidCommand("pause", "Suspend a process", func(a *app.App, pid int) error {
		return a.Pause(pid)
	})
}

func createResumeCommand() *cobra.Command {
	return pidCommand("resume", "Resume a suspended process", func(a *app.App, pid int) error {
		return a.Resume(pid)
	})
}

func createTerminateCommand() *cobra.Command {
	return pidCommand("terminate", "Terminate a process", func(a *app.App, pid int) error {
		return a.Terminate(pid)
	})
}

func pidCommand(use, short string, action func(*app.App, int) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <pid>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("srsctl: invalid pid %q", args[0])
			}
			a, err := newDaemonlessApp()
			if err != nil {
				return err
			}
			if err := action(a, pid); err != nil {
				return fmt.Errorf("srsctl: %w", err)
			}
			return nil
		},
	}
}

func createNiceCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "nice <pid> <value>",
		Short: "Set a process's nice value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("srsctl: invalid pid %q", args[0])
			}
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("srsctl: invalid nice value %q", args[1])
			}
			a, err := newDaemonlessApp()
			if err != nil {
				return err
			}
			if err := a.SetNice(pid, n); err != nil {
				return fmt.Errorf("srsctl: %w", err)
			}
			return nil
		},
	}
}

func createOptimizeMemoryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "optimize-memory",
		Short: "Run a strategy-selected memory optimization pass",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newDaemonlessApp()
			if err != nil {
				return err
			}
			a.OptimizeMemory()
			return nil
		},
	}
}

func createClearCachesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear-caches",
		Short: "Drop page caches",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newDaemonlessApp()
			if err != nil {
				return err
			}
			if !a.ClearCaches() {
				return fmt.Errorf("srsctl: clear caches failed (requires root)")
			}
			return nil
		},
	}
}

// newDaemonlessApp constructs an App with only the Observer running, for
// subcommands that inspect or act on current state without the full
// background worker set. A real deployment would instead talk to the
// long-running srsctl run process over IPC; that transport is out of
// scope here (non-goal). The process exits after the command completes,
// which reaps the Observer's poll goroutine along with it.
func newDaemonlessApp() (*app.App, error) {
	a := app.New(config.Default(), nil)
	if err := a.Observer.Start(); err != nil {
		return nil, fmt.Errorf("srsctl: %w", err)
	}
	time.Sleep(50 * time.Millisecond)
	return a, nil
}
