package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

// NewWorkflowCmd создаёт группу команд для управления workflows.
func NewWorkflowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workflow",
		Short: "Manage workflows",
	}

	cmd.AddCommand(
		newWorkflowCreateCmd(clientFn, outputFn),
		newWorkflowShowCmd(clientFn, outputFn),
	)

	return cmd
}

func newWorkflowCreateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var specFile string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a workflow from a JSON definition",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			data, err := os.ReadFile(specFile)
			if err != nil {
				return fmt.Errorf("failed to read spec file: %w", err)
			}

			if !json.Valid(data) {
				return fmt.Errorf("spec file is not valid JSON")
			}

			wf, err := client.CreateWorkflow(json.RawMessage(data))
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Workflow created: %s", wf.ID))
			printSteps(out, wf)
			return nil
		},
	}

	cmd.Flags().StringVarP(&specFile, "file", "f", "", "Path to workflow definition (JSON)")
	cmd.MarkFlagRequired("file")

	return cmd
}

func newWorkflowShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show WORKFLOW_ID",
		Short: "Show workflow with its steps",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			wf, err := client.GetWorkflow(args[0])
			if err != nil {
				return err
			}

			printSteps(out, wf)
			return nil
		},
	}
}

// printSteps выводит шаги workflow в порядке объявления.
func printSteps(out *Output, wf *WorkflowResponse) {
	headers := []string{"POS", "ID", "NAME", "TYPE", "ROLE", "NEXT", "VALIDATIONS"}
	rows := make([][]string, len(wf.Steps))
	for i, s := range wf.Steps {
		next := "-"
		if s.NextStepID != nil {
			next = strconv.FormatInt(*s.NextStepID, 10)
		}
		rows[i] = []string{
			strconv.Itoa(s.Position),
			strconv.FormatInt(s.ID, 10),
			s.Name,
			s.ActionType,
			s.AssignedRole,
			next,
			strconv.Itoa(len(s.Validations)),
		}
	}
	out.Print(headers, rows, wf)
}
