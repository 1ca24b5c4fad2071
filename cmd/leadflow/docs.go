package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/baiirun/leadflow/internal/documents"
	"github.com/baiirun/leadflow/internal/model"
)

var (
	flagProcess  string
	flagStage    string
	flagURL      string
	flagFileType string
	flagNotes    string
	flagRequired bool
	flagTypes    string
	flagMaxMB    int
)

// ChecklistJSON is a lead's resolved document list, as printed by --json.
type ChecklistJSON struct {
	LeadID    string                   `json:"leadId"`
	Documents []model.ResolvedDocument `json:"documents"`
	Summary   model.DocumentSummary    `json:"summary"`
}

var docsCmd = &cobra.Command{
	Use:     "docs",
	Aliases: []string{"documents"},
	Short:   "Document checklists, submissions and requirements",
}

var docsShowCmd = &cobra.Command{
	Use:   "show <lead-id>",
	Short: "Show a lead's document checklist",
	Long: `Resolve the documents a lead must supply. Without --process the lead's
current placement is used; unplaced leads get the default requirements.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			return showChecklist(cmd.Context(), a, args[0], flagProcess, flagStage)
		})
	},
}

func showChecklist(ctx context.Context, a *app, leadID, processID, stageID string) error {
	var docs []model.ResolvedDocument
	var err error
	if processID != "" {
		docs, err = a.resolver.Resolve(ctx, leadID, processID, stageID)
	} else {
		docs, err = a.resolver.ResolveForLead(ctx, leadID)
	}
	if err != nil {
		return err
	}
	summary := documents.Summarize(docs)

	if flagJSON {
		if docs == nil {
			docs = []model.ResolvedDocument{}
		}
		return printJSON(ChecklistJSON{LeadID: leadID, Documents: docs, Summary: summary})
	}

	if len(docs) == 0 {
		fmt.Println("No documents required")
		return nil
	}
	for _, d := range docs {
		mark := " "
		if d.Required {
			mark = "*"
		}
		line := fmt.Sprintf("%s %-30s %s", mark, d.Name, d.Status)
		if d.DocumentID != "" {
			line += fmt.Sprintf("  (%s)", d.DocumentID)
		}
		fmt.Println(line)
	}
	fmt.Printf("\n%d/%d submitted, %d approved, %d rejected\n", summary.Submitted, summary.Total, summary.Approved, summary.Rejected)
	if len(summary.MissingRequired) > 0 {
		fmt.Printf("Missing required: %s\n", strings.Join(summary.MissingRequired, ", "))
	}
	return nil
}

var docsSubmitCmd = &cobra.Command{
	Use:   "submit <lead-id> <name>",
	Short: "Record an uploaded document for a lead",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		input := documents.SubmissionInput{
			Name:     args[1],
			FileURL:  flagURL,
			FileType: flagFileType,
			Notes:    flagNotes,
		}
		return withApp(func(a *app) error {
			d, err := a.documents.Submit(cmd.Context(), args[0], input)
			if err != nil {
				return err
			}
			if flagJSON {
				return printJSON(d)
			}
			fmt.Printf("Submitted %s (%s) for %s\n", d.Name, d.ID, d.LeadID)
			return nil
		})
	},
}

var docsReviewCmd = &cobra.Command{
	Use:   "review <document-id> <approved|rejected>",
	Short: "Approve or reject a submitted document",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		status := model.DocumentStatus(strings.ToLower(args[1]))
		return withApp(func(a *app) error {
			d, err := a.documents.Review(cmd.Context(), args[0], status, flagNotes)
			if err != nil {
				return err
			}
			if flagJSON {
				return printJSON(d)
			}
			fmt.Printf("%s %s\n", d.ID, d.Status)
			return nil
		})
	},
}

var docsRequireCmd = &cobra.Command{
	Use:     "require",
	Aliases: []string{"requirements"},
	Short:   "Manage document requirements",
}

var docsRequireListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the requirements of a process/stage (default bucket without --process)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			return listRequirements(cmd.Context(), a, flagProcess, flagStage)
		})
	},
}

func listRequirements(ctx context.Context, a *app, processID, stageID string) error {
	if processID == "" {
		processID = model.DefaultBucket
	}
	reqs, err := a.documents.ListRequirements(ctx, processID, stageID)
	if err != nil {
		return err
	}
	if flagJSON {
		if reqs == nil {
			reqs = []model.DocumentRequirement{}
		}
		return printJSON(reqs)
	}
	if len(reqs) == 0 {
		fmt.Println("No requirements")
		return nil
	}
	for _, r := range reqs {
		req := "optional"
		if r.Required {
			req = "required"
		}
		types := ""
		if len(r.FileTypes) > 0 {
			types = " [" + strings.Join(r.FileTypes, ",") + "]"
		}
		fmt.Printf("%s  %s (%s)%s\n", r.ID, r.Name, req, types)
	}
	return nil
}

var docsRequireAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a requirement to a process/stage, or to the default bucket",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		input := documents.RequirementInput{
			ProcessID:   flagProcess,
			StageID:     flagStage,
			Name:        args[0],
			Description: flagDescription,
			Required:    flagRequired,
			FileTypes:   splitList(flagTypes),
			MaxSizeInMB: flagMaxMB,
		}
		if input.ProcessID == "" {
			input.ProcessID = model.DefaultBucket
		}
		return withApp(func(a *app) error {
			r, err := a.documents.CreateRequirement(cmd.Context(), input)
			if err != nil {
				return err
			}
			if flagJSON {
				return printJSON(r)
			}
			fmt.Printf("Created requirement %s\n", r.ID)
			return nil
		})
	},
}

var docsRequireRmCmd = &cobra.Command{
	Use:   "rm <requirement-id>",
	Short: "Delete a requirement",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			if err := a.documents.DeleteRequirement(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted requirement %s\n", args[0])
			return nil
		})
	},
}

func init() {
	docsShowCmd.Flags().StringVar(&flagProcess, "process", "", "Resolve for this process instead of the lead's placement")
	docsShowCmd.Flags().StringVar(&flagStage, "stage", "", "Stage within --process")

	docsSubmitCmd.Flags().StringVar(&flagURL, "url", "", "File URL")
	docsSubmitCmd.Flags().StringVar(&flagFileType, "type", "", "File type, e.g. pdf")
	docsSubmitCmd.Flags().StringVar(&flagNotes, "notes", "", "Notes")

	docsReviewCmd.Flags().StringVar(&flagNotes, "notes", "", "Review notes")

	docsRequireListCmd.Flags().StringVar(&flagProcess, "process", "", "Process id (default: the default bucket)")
	docsRequireListCmd.Flags().StringVar(&flagStage, "stage", "", "Stage id")

	docsRequireAddCmd.Flags().StringVar(&flagProcess, "process", "", "Process id (default: the default bucket)")
	docsRequireAddCmd.Flags().StringVar(&flagStage, "stage", "", "Stage id")
	docsRequireAddCmd.Flags().StringVarP(&flagDescription, "desc", "d", "", "Description")
	docsRequireAddCmd.Flags().BoolVar(&flagRequired, "required", false, "Mark as required")
	docsRequireAddCmd.Flags().StringVar(&flagTypes, "types", "", "Accepted file types, comma-separated")
	docsRequireAddCmd.Flags().IntVar(&flagMaxMB, "max-mb", 0, "Maximum size in MB (0: no limit)")

	docsRequireCmd.AddCommand(docsRequireListCmd, docsRequireAddCmd, docsRequireRmCmd)
	docsCmd.AddCommand(docsShowCmd, docsSubmitCmd, docsReviewCmd, docsRequireCmd)
	rootCmd.AddCommand(docsCmd)
}
