package server

import "github.com/gofiber/fiber/v2"

type userRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (s *Server) listUsers(c *fiber.Ctx) error {
	list, err := s.deps.Users.List(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(list)
}

func (s *Server) createUser(c *fiber.Ctx) error {
	var req userRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	u, err := s.deps.Users.Create(c.UserContext(), req.Name, req.Email)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(u)
}

func (s *Server) updateUser(c *fiber.Ctx) error {
	var req userRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	u, err := s.deps.Users.Update(c.UserContext(), c.Params("id"), req.Name, req.Email)
	if err != nil {
		return err
	}
	return c.JSON(u)
}

func (s *Server) getUser(c *fiber.Ctx) error {
	u, err := s.deps.Users.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(u)
}
