package server

import (
	"github.com/gofiber/fiber/v2"

	"github.com/baiirun/leadflow/internal/pipeline"
)

type processRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"isActive"`
	Order       *int    `json:"order"`
}

type stageRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Color       *string `json:"color"`
	IsActive    *bool   `json:"isActive"`
	Order       *int    `json:"order"`
}

type orderRequest struct {
	IDs []string `json:"ids"`
}

type moveRequest struct {
	StageID string `json:"stageId"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (s *Server) listProcesses(c *fiber.Ctx) error {
	processes, err := s.deps.Engine.ListProcesses(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(processes)
}

func (s *Server) getProcess(c *fiber.Ctx) error {
	p, err := s.deps.Engine.GetProcess(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(p)
}

func (s *Server) createProcess(c *fiber.Ctx) error {
	var req processRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	p, err := s.deps.Engine.CreateProcess(c.UserContext(), pipeline.ProcessInput{
		Name:        deref(req.Name),
		Description: deref(req.Description),
		IsActive:    req.IsActive,
		Order:       req.Order,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(p)
}

func (s *Server) updateProcess(c *fiber.Ctx) error {
	var req processRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	p, err := s.deps.Engine.UpdateProcess(c.UserContext(), c.Params("id"), pipeline.ProcessPatch{
		Name:        req.Name,
		Description: req.Description,
		IsActive:    req.IsActive,
	})
	if err != nil {
		return err
	}
	return c.JSON(p)
}

func (s *Server) deleteProcess(c *fiber.Ctx) error {
	if err := s.deps.Engine.DeleteProcess(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) reorderProcesses(c *fiber.Ctx) error {
	var req orderRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := s.deps.Engine.ReorderProcesses(c.UserContext(), req.IDs); err != nil {
		return err
	}
	return s.listProcesses(c)
}

func (s *Server) bootstrap(c *fiber.Ctx) error {
	p, err := s.deps.Engine.EnsureDefaultProcessExists(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(p)
}

func (s *Server) listStages(c *fiber.Ctx) error {
	stages, err := s.deps.Engine.ListStages(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(stages)
}

func (s *Server) getStage(c *fiber.Ctx) error {
	st, err := s.deps.Engine.GetStage(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(st)
}

func (s *Server) createStage(c *fiber.Ctx) error {
	var req stageRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	st, err := s.deps.Engine.CreateStage(c.UserContext(), c.Params("id"), pipeline.StageInput{
		Name:        deref(req.Name),
		Description: deref(req.Description),
		Color:       deref(req.Color),
		IsActive:    req.IsActive,
		Order:       req.Order,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(st)
}

func (s *Server) updateStage(c *fiber.Ctx) error {
	var req stageRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	st, err := s.deps.Engine.UpdateStage(c.UserContext(), c.Params("id"), pipeline.StagePatch{
		Name:        req.Name,
		Description: req.Description,
		Color:       req.Color,
		IsActive:    req.IsActive,
	})
	if err != nil {
		return err
	}
	return c.JSON(st)
}

func (s *Server) deleteStage(c *fiber.Ctx) error {
	if err := s.deps.Engine.DeleteStage(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) reorderStages(c *fiber.Ctx) error {
	var req orderRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := s.deps.Engine.ReorderStages(c.UserContext(), c.Params("id"), req.IDs); err != nil {
		return err
	}
	return s.listStages(c)
}

func (s *Server) getPlacement(c *fiber.Ctx) error {
	p, err := s.deps.Engine.Placement(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(p)
}

func (s *Server) moveLead(c *fiber.Ctx) error {
	var req moveRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	p, err := s.deps.Engine.MoveLead(c.UserContext(), c.Params("id"), req.StageID)
	if err != nil {
		return err
	}
	return c.JSON(p)
}
