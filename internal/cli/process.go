package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// NewProcessCmd создаёт группу команд для управления процессами.
func NewProcessCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process",
		Short: "Manage processes",
	}

	cmd.AddCommand(
		newProcessListCmd(clientFn, outputFn),
		newProcessStartCmd(clientFn, outputFn),
		newProcessShowCmd(clientFn, outputFn),
		newProcessExecuteCmd(clientFn, outputFn),
		newProcessHistoryCmd(clientFn, outputFn),
	)

	return cmd
}

var processHeaders = []string{"ID", "WORKFLOW", "STATUS", "STEP", "ROLE", "STARTED"}

func processRow(p ProcessResponse) []string {
	return []string{
		strconv.FormatInt(p.ID, 10),
		p.WorkflowName,
		p.Status,
		p.CurrentStepName,
		p.AssignedRole,
		p.StartedAt,
	}
}

func newProcessListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var opts ListProcessesOpts

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List processes",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			processes, err := client.ListProcesses(opts)
			if err != nil {
				return err
			}

			rows := make([][]string, len(processes))
			for i, p := range processes {
				rows[i] = processRow(p)
			}

			out.Print(processHeaders, rows, processes)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.WorkflowID, "workflow-id", "", "Filter by workflow ID")
	cmd.Flags().StringVar(&opts.RoleID, "role-id", "", "Filter by role assigned to the current step")
	cmd.Flags().StringVar(&opts.Status, "status", "", "Filter by status (ACTIVE, COMPLETED, REJECTED)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "Maximum number of results")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "Number of results to skip")

	return cmd
}

func newProcessStartCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "start WORKFLOW_ID",
		Short: "Start a new process",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			p, err := client.StartProcess(args[0])
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Process started: %d", p.ID))
			out.Print(processHeaders, [][]string{processRow(*p)}, p)
			return nil
		},
	}
}

func newProcessShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show PROCESS_ID",
		Short: "Show process details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseProcessID(args[0])
			if err != nil {
				return err
			}

			p, err := clientFn().GetProcess(id)
			if err != nil {
				return err
			}

			outputFn().Details([][2]string{
				{"ID", strconv.FormatInt(p.ID, 10)},
				{"Workflow", p.WorkflowName + " (" + p.WorkflowID + ")"},
				{"Initiator", p.InitiatorID},
				{"Status", p.Status},
				{"Current step", p.CurrentStepName},
				{"Assigned role", p.AssignedRole},
				{"Started", p.StartedAt},
				{"Completed", p.CompletedAt},
			}, p)
			return nil
		},
	}
}

func newProcessExecuteCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var step, action, comment string
	var inputs []string

	cmd := &cobra.Command{
		Use:   "execute PROCESS_ID",
		Short: "Perform an action (Approve, Submit, Reject) on the current step",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseProcessID(args[0])
			if err != nil {
				return err
			}

			userInputs, err := parseInputs(inputs)
			if err != nil {
				return err
			}

			client := clientFn()
			out := outputFn()

			res, err := client.ExecuteStep(ExecuteStepRequest{
				ProcessID:  id,
				StepName:   step,
				Action:     action,
				Comment:    comment,
				UserInputs: userInputs,
			})
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Process %d: %s", res.Process.ID, res.Outcome))
			out.Print(processHeaders, [][]string{processRow(res.Process)}, res)
			return nil
		},
	}

	cmd.Flags().StringVar(&step, "step", "", "Name of the step the process is expected to be at")
	cmd.Flags().StringVar(&action, "action", "", "Action: Approve, Submit or Reject")
	cmd.Flags().StringVar(&comment, "comment", "", "Comment")
	cmd.Flags().StringArrayVar(&inputs, "input", nil, "User input as name=value or name:type=value (repeatable)")
	cmd.MarkFlagRequired("step")
	cmd.MarkFlagRequired("action")

	return cmd
}

func newProcessHistoryCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "history PROCESS_ID",
		Short: "Show actions performed on a process",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseProcessID(args[0])
			if err != nil {
				return err
			}

			executions, err := clientFn().ListExecutions(id)
			if err != nil {
				return err
			}

			headers := []string{"ID", "STEP", "USER", "ACTION", "COMMENT", "AT"}
			rows := make([][]string, len(executions))
			for i, e := range executions {
				rows[i] = []string{
					strconv.FormatInt(e.ID, 10),
					strconv.FormatInt(e.StepID, 10),
					e.UserID,
					e.Action,
					e.Comment,
					e.ExecutedAt,
				}
			}

			outputFn().Print(headers, rows, executions)
			return nil
		},
	}
}

func parseProcessID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid process id: %s", s)
	}
	return id, nil
}

// parseInputs разбирает значения флага --input.
//
//	amount=120        → {amount, 120, text}
//	amount:number=120 → {amount, 120, number}
func parseInputs(raw []string) ([]UserInput, error) {
	var result []UserInput
	for _, kv := range raw {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid input format %q, expected name=value", kv)
		}

		name, fieldType, hasType := strings.Cut(key, ":")
		if !hasType || fieldType == "" {
			fieldType = "text"
		}

		result = append(result, UserInput{
			FieldName:  name,
			FieldValue: value,
			FieldType:  fieldType,
		})
	}
	return result, nil
}
