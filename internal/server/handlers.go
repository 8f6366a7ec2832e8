package server

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jywlabs/demogen/internal/cycle"
	"github.com/jywlabs/demogen/internal/demo"
	"github.com/jywlabs/demogen/internal/llm"
	"github.com/jywlabs/demogen/internal/prompt"
	"github.com/jywlabs/demogen/internal/repair"
	"github.com/jywlabs/demogen/internal/script"
)

// createCycle handles POST /api/cycles.
func (s *Server) createCycle(c *fiber.Ctx) error {
	var req CycleRequest
	if err := c.BodyParser(&req); err != nil {
		return problem(c, fiber.StatusBadRequest, "invalid_body", "Bad Request", "Invalid request body: "+err.Error())
	}
	if strings.TrimSpace(req.UseCase) == "" {
		return problem(c, fiber.StatusBadRequest, "missing_use_case", "Bad Request", "use_case is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	session := cycle.NewSession()
	out, err := s.pipeline.Cycle(c.UserContext(), session, req.UseCase)
	if err != nil && session.LastOutcome == nil {
		return cycleError(c, err)
	}

	resp := newCycleResponse(session, out)
	if req.Save && out.Succeeded() {
		d, err := s.pipeline.Save(c.UserContext(), session)
		if err != nil {
			return cycleError(c, err)
		}
		resp.DemoID = d.ID
	}
	return c.JSON(resp)
}

// createEdit handles POST /api/edits.
func (s *Server) createEdit(c *fiber.Ctx) error {
	var req EditRequest
	if err := c.BodyParser(&req); err != nil {
		return problem(c, fiber.StatusBadRequest, "invalid_body", "Bad Request", "Invalid request body: "+err.Error())
	}
	if strings.TrimSpace(req.Code) == "" || strings.TrimSpace(req.Request) == "" {
		return problem(c, fiber.StatusBadRequest, "missing_field", "Bad Request", "code and request are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	session := cycle.NewSession()
	if err := s.pipeline.Restore(session, req.UseCase, req.DetailedDescription, req.Code); err != nil {
		return cycleError(c, err)
	}
	if err := s.pipeline.Edit(c.UserContext(), session, req.Request); err != nil {
		return cycleError(c, err)
	}

	out, err := s.pipeline.Run(c.UserContext(), session)
	if err != nil && session.LastOutcome == nil {
		return cycleError(c, err)
	}
	return c.JSON(newCycleResponse(session, out))
}

// listDemos handles GET /api/demos.
func (s *Server) listDemos(c *fiber.Ctx) error {
	demos, err := s.pipeline.Store.List(c.UserContext())
	if err != nil {
		return cycleError(c, err)
	}
	return c.JSON(DemoListResponse{Demos: demos, Total: len(demos)})
}

// getDemo handles GET /api/demos/:id.
func (s *Server) getDemo(c *fiber.Ctx) error {
	d, err := s.pipeline.Store.Load(c.UserContext(), c.Params("id"))
	if err != nil {
		return cycleError(c, err)
	}
	return c.JSON(d)
}

// saveDemo handles POST /api/demos.
func (s *Server) saveDemo(c *fiber.Ctx) error {
	var req demo.Demo
	if err := c.BodyParser(&req); err != nil {
		return problem(c, fiber.StatusBadRequest, "invalid_body", "Bad Request", "Invalid request body: "+err.Error())
	}
	if req.UseCase == "" || req.DetailedDescription == "" || req.Code == "" {
		return problem(c, fiber.StatusBadRequest, "missing_field", "Bad Request",
			"use_case, detailed_description and code are required")
	}

	d, err := s.pipeline.Store.Save(c.UserContext(), req.UseCase, req.DetailedDescription, req.Code)
	if err != nil {
		return cycleError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(d)
}

// deleteDemo handles DELETE /api/demos/:id.
func (s *Server) deleteDemo(c *fiber.Ctx) error {
	id := c.Params("id")
	removed, err := s.pipeline.DeleteDemo(c.UserContext(), id)
	if err != nil {
		return cycleError(c, err)
	}
	if !removed {
		return problem(c, fiber.StatusNotFound, "not_found", "Not Found", "demo not found: "+id)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// cycleError maps domain errors to problem responses.
func cycleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, demo.ErrNotFound):
		return problem(c, fiber.StatusNotFound, "not_found", "Not Found", err.Error())
	case errors.Is(err, prompt.ErrEmptyInput), errors.Is(err, cycle.ErrStage), errors.Is(err, script.ErrEmptyCode):
		return problem(c, fiber.StatusBadRequest, "invalid_request", "Bad Request", err.Error())
	case errors.Is(err, llm.ErrGeneration):
		return problem(c, fiber.StatusBadGateway, "generation_failed", "Bad Gateway", err.Error())
	case errors.Is(err, demo.ErrPersistence), errors.Is(err, demo.ErrInvalidRecord), errors.Is(err, script.ErrWrite):
		return problem(c, fiber.StatusInternalServerError, "persistence_failed", "Internal Server Error", err.Error())
	default:
		return err
	}
}

func problem(c *fiber.Ctx, status int, errType, title, detail string) error {
	return c.Status(status).JSON(ProblemDetail{
		Type:     errType,
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: c.Path(),
	})
}

func newCycleResponse(s *cycle.Session, out repair.Outcome) CycleResponse {
	resp := CycleResponse{
		UseCase:             s.UseCase,
		DetailedDescription: s.Description,
		Code:                s.Artifact.Code,
		State:               string(out.State),
		Attempts:            out.Attempts,
		Output:              out.Output,
		ErrorText:           out.ErrorText,
		Progress:            s.Progress,
		Chat:                s.Chat,
	}
	if out.Err != nil {
		resp.Error = out.Err.Error()
	}
	for _, a := range out.History {
		resp.History = append(resp.History, AttemptView{
			Attempt:    a.Number,
			Succeeded:  a.Result.Succeeded,
			Output:     a.Result.Output,
			ErrorText:  a.Result.ErrorText,
			DurationMs: a.Result.Duration.Milliseconds(),
		})
	}
	return resp
}
