package server

import (
	"github.com/gofiber/fiber/v2"

	"github.com/baiirun/leadflow/internal/documents"
	"github.com/baiirun/leadflow/internal/model"
)

type requirementRequest struct {
	ProcessID   string   `json:"processId"`
	StageID     string   `json:"stageId"`
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Required    *bool    `json:"required"`
	FileTypes   []string `json:"fileTypes"`
	MaxSizeInMB *int     `json:"maxSizeInMB"`
}

type submissionRequest struct {
	Name     string `json:"name"`
	FileURL  string `json:"fileUrl"`
	FileType string `json:"fileType"`
	Notes    string `json:"notes"`
}

type reviewRequest struct {
	Status model.DocumentStatus `json:"status"`
	Notes  string               `json:"notes"`
}

type resolvedResponse struct {
	LeadID    string                   `json:"leadId"`
	Documents []model.ResolvedDocument `json:"documents"`
	Summary   model.DocumentSummary    `json:"summary"`
}

// resolveDocuments resolves against ?processId=&stageId= when given, else the
// lead's current placement.
func (s *Server) resolveDocuments(c *fiber.Ctx) error {
	leadID := c.Params("id")
	var (
		docs []model.ResolvedDocument
		err  error
	)
	if processID := c.Query("processId"); processID != "" {
		docs, err = s.deps.Resolver.Resolve(c.UserContext(), leadID, processID, c.Query("stageId"))
	} else {
		docs, err = s.deps.Resolver.ResolveForLead(c.UserContext(), leadID)
	}
	if err != nil {
		return err
	}
	return c.JSON(resolvedResponse{LeadID: leadID, Documents: docs, Summary: documents.Summarize(docs)})
}

func (s *Server) submitDocument(c *fiber.Ctx) error {
	var req submissionRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	doc, err := s.deps.Documents.Submit(c.UserContext(), c.Params("id"), documents.SubmissionInput{
		Name:     req.Name,
		FileURL:  req.FileURL,
		FileType: req.FileType,
		Notes:    req.Notes,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(doc)
}

func (s *Server) reviewDocument(c *fiber.Ctx) error {
	var req reviewRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	doc, err := s.deps.Documents.Review(c.UserContext(), c.Params("id"), req.Status, req.Notes)
	if err != nil {
		return err
	}
	return c.JSON(doc)
}

func (s *Server) listRequirements(c *fiber.Ctx) error {
	processID := c.Query("processId", model.DefaultBucket)
	reqs, err := s.deps.Documents.ListRequirements(c.UserContext(), processID, c.Query("stageId"))
	if err != nil {
		return err
	}
	return c.JSON(reqs)
}

func (s *Server) createRequirement(c *fiber.Ctx) error {
	var req requirementRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	input := documents.RequirementInput{
		ProcessID:   req.ProcessID,
		StageID:     req.StageID,
		Name:        deref(req.Name),
		Description: deref(req.Description),
		FileTypes:   req.FileTypes,
	}
	if req.Required != nil {
		input.Required = *req.Required
	}
	if req.MaxSizeInMB != nil {
		input.MaxSizeInMB = *req.MaxSizeInMB
	}
	r, err := s.deps.Documents.CreateRequirement(c.UserContext(), input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(r)
}

func (s *Server) updateRequirement(c *fiber.Ctx) error {
	var req requirementRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	r, err := s.deps.Documents.UpdateRequirement(c.UserContext(), c.Params("id"), documents.RequirementPatch{
		Name:        req.Name,
		Description: req.Description,
		Required:    req.Required,
		FileTypes:   req.FileTypes,
		MaxSizeInMB: req.MaxSizeInMB,
	})
	if err != nil {
		return err
	}
	return c.JSON(r)
}

func (s *Server) deleteRequirement(c *fiber.Ctx) error {
	if err := s.deps.Documents.DeleteRequirement(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
