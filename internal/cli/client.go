package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// --- Response types (дублируются из api/dto.go, CLI не импортирует internal/api) ---

// WorkflowResponse — workflow из API.
type WorkflowResponse struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	CreatedBy   string         `json:"created_by"`
	CreatedAt   string         `json:"created_at"`
	Steps       []StepResponse `json:"steps"`
}

// StepResponse — шаг workflow из API.
type StepResponse struct {
	ID           int64            `json:"id"`
	Name         string           `json:"name"`
	AssignedRole string           `json:"assigned_role"`
	ActionType   string           `json:"action_type"`
	Position     int              `json:"position"`
	NextStepID   *int64           `json:"next_step_id,omitempty"`
	Validations  []map[string]any `json:"validations,omitempty"`
}

// ProcessResponse — процесс из API.
type ProcessResponse struct {
	ID              int64  `json:"id"`
	WorkflowID      string `json:"workflow_id"`
	WorkflowName    string `json:"workflow_name"`
	InitiatorID     string `json:"initiator_id"`
	Status          string `json:"status"`
	CurrentStepName string `json:"current_step_name"`
	AssignedRole    string `json:"assigned_role"`
	StartedAt       string `json:"started_at"`
	CompletedAt     string `json:"completed_at,omitempty"`
}

// ExecuteStepResponse — результат действия из API.
type ExecuteStepResponse struct {
	Outcome     string          `json:"outcome"`
	ExecutionID int64           `json:"execution_id"`
	Process     ProcessResponse `json:"process"`
}

// ExecutionResponse — запись журнала действий из API.
type ExecutionResponse struct {
	ID         int64       `json:"id"`
	StepID     int64       `json:"step_id"`
	UserID     string      `json:"user_id"`
	Action     string      `json:"action"`
	Comment    string      `json:"comment,omitempty"`
	UserInputs []UserInput `json:"user_inputs,omitempty"`
	ExecutedAt string      `json:"executed_at"`
}

// --- Request types ---

// UserInput — значение поля шага Input.
type UserInput struct {
	FieldName  string `json:"field_name"`
	FieldValue string `json:"field_value"`
	FieldType  string `json:"field_type"`
}

// ExecuteStepRequest — действие на текущем шаге.
type ExecuteStepRequest struct {
	ProcessID  int64       `json:"process_id"`
	StepName   string      `json:"step_name"`
	Action     string      `json:"action"`
	Comment    string      `json:"comment,omitempty"`
	UserInputs []UserInput `json:"user_inputs,omitempty"`
}

// ListProcessesOpts — параметры фильтрации процессов.
type ListProcessesOpts struct {
	WorkflowID string
	RoleID     string
	Status     string
	Limit      int
	Offset     int
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type listResponse struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// --- Client ---

// Client — HTTP-клиент для Tracker API.
type Client struct {
	baseURL    string
	userID     string
	roleID     string
	httpClient *http.Client
}

// NewClient создаёт клиент для API.
// userID и roleID передаются в заголовках X-User-ID и X-Role-ID.
func NewClient(baseURL, userID, roleID string) *Client {
	return &Client{
		baseURL: baseURL,
		userID:  userID,
		roleID:  roleID,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// --- Workflows ---

// CreateWorkflow создаёт workflow из JSON-определения.
func (c *Client) CreateWorkflow(spec json.RawMessage) (*WorkflowResponse, error) {
	var wf WorkflowResponse
	err := c.post("/api/v1/workflows", spec, &wf)
	return &wf, err
}

// GetWorkflow возвращает workflow по ID.
func (c *Client) GetWorkflow(id string) (*WorkflowResponse, error) {
	var wf WorkflowResponse
	err := c.get("/api/v1/workflows/"+id, &wf)
	return &wf, err
}

// --- Processes ---

// StartProcess запускает процесс workflow.
func (c *Client) StartProcess(workflowID string) (*ProcessResponse, error) {
	var p ProcessResponse
	err := c.post("/api/v1/processes/start/"+workflowID, nil, &p)
	return &p, err
}

// ExecuteStep выполняет действие на текущем шаге процесса.
func (c *Client) ExecuteStep(req ExecuteStepRequest) (*ExecuteStepResponse, error) {
	var res ExecuteStepResponse
	err := c.post("/api/v1/processes/execute", req, &res)
	return &res, err
}

// ListProcesses возвращает список процессов с фильтрацией.
func (c *Client) ListProcesses(opts ListProcessesOpts) ([]ProcessResponse, error) {
	params := url.Values{}
	if opts.WorkflowID != "" {
		params.Set("workflow_id", opts.WorkflowID)
	}
	if opts.RoleID != "" {
		params.Set("role_id", opts.RoleID)
	}
	if opts.Status != "" {
		params.Set("status", opts.Status)
	}
	if opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		params.Set("offset", strconv.Itoa(opts.Offset))
	}

	var processes []ProcessResponse
	err := c.list("/api/v1/processes", params, &processes)
	return processes, err
}

// GetProcess возвращает процесс по ID.
func (c *Client) GetProcess(id int64) (*ProcessResponse, error) {
	var p ProcessResponse
	err := c.get("/api/v1/processes/"+strconv.FormatInt(id, 10), &p)
	return &p, err
}

// ListExecutions возвращает журнал действий процесса.
func (c *Client) ListExecutions(processID int64) ([]ExecutionResponse, error) {
	var executions []ExecutionResponse
	err := c.list("/api/v1/processes/"+strconv.FormatInt(processID, 10)+"/executions", nil, &executions)
	return executions, err
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	return c.doData(http.MethodGet, path, nil, result)
}

func (c *Client) post(path string, body any, result any) error {
	return c.doData(http.MethodPost, path, body, result)
}

func (c *Client) list(path string, params url.Values, result any) error {
	if len(params) > 0 {
		path = path + "?" + params.Encode()
	}

	resp, err := c.do(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return json.Unmarshal(lr.Data, result)
}

func (c *Client) doData(method, path string, body any, result any) error {
	resp, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if result != nil {
		return json.Unmarshal(dr.Data, result)
	}
	return nil
}

func (c *Client) do(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-User-ID", c.userID)
	req.Header.Set("X-Role-ID", c.roleID)

	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return fmt.Errorf("API error: HTTP %d", resp.StatusCode)
	}

	return fmt.Errorf("%s: %s", er.Error.Code, er.Error.Message)
}
