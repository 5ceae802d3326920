// Package web provides HTTP handlers and REST API endpoints for process
// orchestration.
package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/calvora/stepflow/pkg/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

type APIHandlers struct {
	orchestrator *services.Orchestrator
	processes    *services.ProcessQuery
	validator    *validator.Validate
}

func NewAPIHandlers(
	orchestrator *services.Orchestrator,
	processes *services.ProcessQuery,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		orchestrator: orchestrator,
		processes:    processes,
		validator:    validator,
	}
}

func (h *APIHandlers) GetProcesses(c fiber.Ctx) error {
	req, err := h.parseListProcessesRequest(c)
	if err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	result, err := h.processes.List(c.Context(), *req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"processes":     result.Processes,
		"total_count":   result.TotalCount,
		"has_next_page": result.HasNextPage,
		"pagination": fiber.Map{
			"limit":  req.Limit,
			"offset": req.Offset,
		},
		"sorting": fiber.Map{
			"sort_by":    req.SortBy,
			"sort_order": req.SortOrder,
		},
	})
}

// parseListProcessesRequest parses and validates query parameters for listing processes.
func (h *APIHandlers) parseListProcessesRequest(c fiber.Ctx) (*services.ListProcessesRequest, error) {
	req := &services.ListProcessesRequest{}

	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			return nil, err
		}

		req.Limit = limit
	}

	if offsetStr := c.Query("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil {
			return nil, err
		}

		req.Offset = offset
	}

	if departmentStr := c.Query("department_id"); departmentStr != "" {
		departmentID, err := strconv.ParseInt(departmentStr, 10, 64)
		if err != nil {
			return nil, err
		}

		req.DepartmentID = &departmentID
	}

	req.SortBy = c.Query("sort_by")
	req.SortOrder = c.Query("sort_order")

	return req, nil
}

func (h *APIHandlers) GetProcess(c fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(c, "Process ID must be a positive integer")
	}

	process, err := h.processes.FetchByID(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(process)
}

func (h *APIHandlers) CreateProcess(c fiber.Ctx) error {
	var req CreateProcessRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	process, err := h.orchestrator.CreateProcess(c.Context(), services.CreateProcessRequest{
		Name:         req.Name,
		DepartmentID: req.DepartmentID,
		Description:  req.Description,
		CreatedByID:  req.CreatedByID,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(process)
}

func (h *APIHandlers) DeleteProcess(c fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(c, "Process ID must be a positive integer")
	}

	err = h.processes.Delete(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) AddStep(c fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(c, "Process ID must be a positive integer")
	}

	var req AddStepRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	step, err := h.orchestrator.AddStep(c.Context(), id, req.Name, req.StepOrder, req.AssignedRoleID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(step)
}

func (h *APIHandlers) RemoveStep(c fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(c, "Process ID must be a positive integer")
	}

	stepID, err := parseID(c, "stepId")
	if err != nil {
		return badRequest(c, "Step ID must be a positive integer")
	}

	err = h.orchestrator.RemoveStep(c.Context(), id, stepID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) GetExecutions(c fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(c, "Process ID must be a positive integer")
	}

	executions, err := h.processes.ListExecutions(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(executions)
}

func (h *APIHandlers) StartExecution(c fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(c, "Process ID must be a positive integer")
	}

	var req StartExecutionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	execution, err := h.orchestrator.StartExecution(c.Context(), id, req.StepID, req.UserID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(execution)
}

func (h *APIHandlers) CompleteExecution(c fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(c, "Execution ID must be a positive integer")
	}

	var req CompleteExecutionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	execution, err := h.orchestrator.CompleteExecution(c.Context(), id, req.Remarks)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(execution)
}

func (h *APIHandlers) CancelExecution(c fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(c, "Execution ID must be a positive integer")
	}

	var req CompleteExecutionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	execution, err := h.orchestrator.CancelExecution(c.Context(), id, req.Remarks)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(execution)
}

// AdvanceExecution completes the execution and starts the next step in the
// same transaction. A 204 means the current step was the last one: the run
// ended normally and there is no new execution to return.
func (h *APIHandlers) AdvanceExecution(c fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(c, "Execution ID must be a positive integer")
	}

	var req AdvanceExecutionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	next, err := h.orchestrator.AdvanceToNextStep(c.Context(), id, req.UserID, req.Remarks)
	if err != nil {
		return handleServiceError(c, err)
	}

	if next == nil {
		return c.SendStatus(fiber.StatusNoContent)
	}

	return c.Status(fiber.StatusCreated).JSON(next)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	status := "healthy"
	message := "Stepflow API is healthy"
	httpStatus := http.StatusOK

	err := h.processes.HealthCheck(c.Context())
	if err != nil {
		status = "unhealthy"
		message = "Stepflow API is unhealthy"
		httpStatus = http.StatusInternalServerError
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":    status,
		"message":   message,
		"timestamp": time.Now().UTC(),
	})
}

func parseID(c fiber.Ctx, param string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(param), 10, 64)
	if err != nil {
		return 0, err
	}

	if id <= 0 {
		return 0, strconv.ErrRange
	}

	return id, nil
}
