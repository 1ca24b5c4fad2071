package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/baiirun/leadflow/internal/config"
	"github.com/baiirun/leadflow/internal/model"
	"github.com/baiirun/leadflow/internal/pipeline"
)

var (
	flagDescription string
	flagOrder       int
	flagInactive    bool
	flagName        string
	flagActive      bool
	flagColor       string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the config file, database and default pipeline",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.Path()
		if err != nil {
			return err
		}
		wrote, err := config.WriteDefault(path)
		if err != nil {
			return err
		}
		if wrote {
			fmt.Printf("Wrote %s\n", path)
		} else {
			fmt.Printf("Using existing %s\n", path)
		}

		return withApp(func(a *app) error {
			p, err := a.engine.EnsureDefaultProcessExists(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Default process: %s (%s)\n", p.Name, p.ID)
			return nil
		})
	},
}

// ProcessJSON is a process with its stages, as printed by --json.
type ProcessJSON struct {
	model.Process
	Stages []model.Stage `json:"stages"`
}

var processCmd = &cobra.Command{
	Use:     "process",
	Aliases: []string{"processes"},
	Short:   "Manage lead processes",
}

var processListCmd = &cobra.Command{
	Use:   "list",
	Short: "List processes in order",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error { return listProcesses(cmd.Context(), a) })
	},
}

func listProcesses(ctx context.Context, a *app) error {
	processes, err := a.engine.ListProcesses(ctx)
	if err != nil {
		return err
	}
	if flagJSON {
		out := make([]ProcessJSON, 0, len(processes))
		for _, p := range processes {
			stages, err := a.engine.ListStages(ctx, p.ID)
			if err != nil {
				return err
			}
			if stages == nil {
				stages = []model.Stage{}
			}
			out = append(out, ProcessJSON{Process: p, Stages: stages})
		}
		return printJSON(out)
	}
	if len(processes) == 0 {
		fmt.Println("No processes. Run 'leadflow init' to create the default pipeline.")
		return nil
	}
	for _, p := range processes {
		fmt.Printf("%d. %s  %s%s\n", p.Order, p.ID, p.Name, inactiveMark(p.IsActive))
	}
	return nil
}

var processShowCmd = &cobra.Command{
	Use:   "show <process-id>",
	Short: "Show a process and its stages",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error { return showProcess(cmd.Context(), a, args[0]) })
	},
}

func showProcess(ctx context.Context, a *app, id string) error {
	p, err := a.engine.GetProcess(ctx, id)
	if err != nil {
		return err
	}
	stages, err := a.engine.ListStages(ctx, id)
	if err != nil {
		return err
	}
	if flagJSON {
		if stages == nil {
			stages = []model.Stage{}
		}
		return printJSON(ProcessJSON{Process: *p, Stages: stages})
	}

	fmt.Printf("%s  %s%s\n", p.ID, p.Name, inactiveMark(p.IsActive))
	if p.Description != "" {
		fmt.Printf("  %s\n", p.Description)
	}
	for _, s := range stages {
		fmt.Printf("  %d. %s  %s%s\n", s.Order, s.ID, s.Name, inactiveMark(s.IsActive))
	}
	return nil
}

var processAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a process",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		input := pipeline.ProcessInput{Name: args[0], Description: flagDescription}
		if cmd.Flags().Changed("order") {
			input.Order = &flagOrder
		}
		if flagInactive {
			active := false
			input.IsActive = &active
		}
		return withApp(func(a *app) error {
			p, err := a.engine.CreateProcess(cmd.Context(), input)
			if err != nil {
				return err
			}
			if flagJSON {
				return printJSON(p)
			}
			fmt.Printf("Created process %s at position %d\n", p.ID, p.Order)
			return nil
		})
	},
}

var processEditCmd = &cobra.Command{
	Use:   "edit <process-id>",
	Short: "Rename, describe or (de)activate a process",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var patch pipeline.ProcessPatch
		if cmd.Flags().Changed("name") {
			patch.Name = &flagName
		}
		if cmd.Flags().Changed("desc") {
			patch.Description = &flagDescription
		}
		if cmd.Flags().Changed("active") {
			patch.IsActive = &flagActive
		}
		return withApp(func(a *app) error {
			p, err := a.engine.UpdateProcess(cmd.Context(), args[0], patch)
			if err != nil {
				return err
			}
			if flagJSON {
				return printJSON(p)
			}
			fmt.Printf("Updated process %s\n", p.ID)
			return nil
		})
	},
}

var processRmCmd = &cobra.Command{
	Use:   "rm <process-id>",
	Short: "Delete a process with its stages and requirements",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			if err := a.engine.DeleteProcess(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted process %s\n", args[0])
			return nil
		})
	},
}

var processOrderCmd = &cobra.Command{
	Use:   "order <process-id>...",
	Short: "Reorder all processes; list every id in the new order",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			if err := a.engine.ReorderProcesses(cmd.Context(), args); err != nil {
				return err
			}
			return listProcesses(cmd.Context(), a)
		})
	},
}

var stageCmd = &cobra.Command{
	Use:     "stage",
	Aliases: []string{"stages"},
	Short:   "Manage the stages of a process",
}

var stageListCmd = &cobra.Command{
	Use:   "list <process-id>",
	Short: "List a process's stages in order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error { return listStages(cmd.Context(), a, args[0]) })
	},
}

func listStages(ctx context.Context, a *app, processID string) error {
	if _, err := a.engine.GetProcess(ctx, processID); err != nil {
		return err
	}
	stages, err := a.engine.ListStages(ctx, processID)
	if err != nil {
		return err
	}
	if flagJSON {
		if stages == nil {
			stages = []model.Stage{}
		}
		return printJSON(stages)
	}
	if len(stages) == 0 {
		fmt.Println("No stages")
		return nil
	}
	for _, s := range stages {
		fmt.Printf("%d. %s  %s%s\n", s.Order, s.ID, s.Name, inactiveMark(s.IsActive))
	}
	return nil
}

var stageAddCmd = &cobra.Command{
	Use:   "add <process-id> <name>",
	Short: "Create a stage",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		input := pipeline.StageInput{Name: args[1], Description: flagDescription, Color: flagColor}
		if cmd.Flags().Changed("order") {
			input.Order = &flagOrder
		}
		if flagInactive {
			active := false
			input.IsActive = &active
		}
		return withApp(func(a *app) error {
			s, err := a.engine.CreateStage(cmd.Context(), args[0], input)
			if err != nil {
				return err
			}
			if flagJSON {
				return printJSON(s)
			}
			fmt.Printf("Created stage %s at position %d\n", s.ID, s.Order)
			return nil
		})
	},
}

var stageEditCmd = &cobra.Command{
	Use:   "edit <stage-id>",
	Short: "Rename, recolor or (de)activate a stage",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var patch pipeline.StagePatch
		if cmd.Flags().Changed("name") {
			patch.Name = &flagName
		}
		if cmd.Flags().Changed("desc") {
			patch.Description = &flagDescription
		}
		if cmd.Flags().Changed("color") {
			patch.Color = &flagColor
		}
		if cmd.Flags().Changed("active") {
			patch.IsActive = &flagActive
		}
		return withApp(func(a *app) error {
			s, err := a.engine.UpdateStage(cmd.Context(), args[0], patch)
			if err != nil {
				return err
			}
			if flagJSON {
				return printJSON(s)
			}
			fmt.Printf("Updated stage %s\n", s.ID)
			return nil
		})
	},
}

var stageRmCmd = &cobra.Command{
	Use:   "rm <stage-id>",
	Short: "Delete a stage and its requirements",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			if err := a.engine.DeleteStage(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted stage %s\n", args[0])
			return nil
		})
	},
}

var stageOrderCmd = &cobra.Command{
	Use:   "order <process-id> <stage-id>...",
	Short: "Reorder a process's stages; list every stage id in the new order",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			if err := a.engine.ReorderStages(cmd.Context(), args[0], args[1:]); err != nil {
				return err
			}
			return listStages(cmd.Context(), a, args[0])
		})
	},
}

var leadCmd = &cobra.Command{
	Use:   "lead",
	Short: "Place leads in stages",
}

var leadMoveCmd = &cobra.Command{
	Use:   "move <lead-id> <stage-id>",
	Short: "Move a lead into a stage",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			p, err := a.engine.MoveLead(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			if flagJSON {
				return printJSON(p)
			}
			fmt.Printf("Moved %s to stage %s in process %s\n", p.LeadID, p.StageID, p.ProcessID)
			return nil
		})
	},
}

var leadShowCmd = &cobra.Command{
	Use:   "show <lead-id>",
	Short: "Show where a lead sits",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error { return showLead(cmd.Context(), a, args[0]) })
	},
}

func showLead(ctx context.Context, a *app, leadID string) error {
	p, err := a.engine.Placement(ctx, leadID)
	if err != nil {
		return err
	}
	if flagJSON {
		return printJSON(p)
	}
	stage, err := a.engine.GetStage(ctx, p.StageID)
	if err != nil {
		return err
	}
	process, err := a.engine.GetProcess(ctx, p.ProcessID)
	if err != nil {
		return err
	}
	fmt.Printf("%s: %s / %s\n", leadID, process.Name, stage.Name)
	return nil
}

func inactiveMark(active bool) string {
	if active {
		return ""
	}
	return " (inactive)"
}

func init() {
	processAddCmd.Flags().StringVarP(&flagDescription, "desc", "d", "", "Description")
	processAddCmd.Flags().IntVar(&flagOrder, "order", 0, "1-based position (default: append)")
	processAddCmd.Flags().BoolVar(&flagInactive, "inactive", false, "Create inactive")

	processEditCmd.Flags().StringVar(&flagName, "name", "", "New name")
	processEditCmd.Flags().StringVarP(&flagDescription, "desc", "d", "", "New description")
	processEditCmd.Flags().BoolVar(&flagActive, "active", true, "Set active state")

	stageAddCmd.Flags().StringVarP(&flagDescription, "desc", "d", "", "Description")
	stageAddCmd.Flags().StringVar(&flagColor, "color", "", "Display color, e.g. #3B82F6")
	stageAddCmd.Flags().IntVar(&flagOrder, "order", 0, "1-based position (default: append)")
	stageAddCmd.Flags().BoolVar(&flagInactive, "inactive", false, "Create inactive")

	stageEditCmd.Flags().StringVar(&flagName, "name", "", "New name")
	stageEditCmd.Flags().StringVarP(&flagDescription, "desc", "d", "", "New description")
	stageEditCmd.Flags().StringVar(&flagColor, "color", "", "New color")
	stageEditCmd.Flags().BoolVar(&flagActive, "active", true, "Set active state")

	processCmd.AddCommand(processListCmd, processShowCmd, processAddCmd, processEditCmd, processRmCmd, processOrderCmd)
	stageCmd.AddCommand(stageListCmd, stageAddCmd, stageEditCmd, stageRmCmd, stageOrderCmd)
	leadCmd.AddCommand(leadMoveCmd, leadShowCmd)

	rootCmd.AddCommand(initCmd, processCmd, stageCmd, leadCmd)
}
