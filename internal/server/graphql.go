package server

import (
	"encoding/json"
	"strings"

	"deepthoughts/internal/graph"
	"deepthoughts/internal/models"

	"github.com/gofiber/fiber/v2"
)

type graphqlRequest struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName"`
	Variables     map[string]interface{} `json:"variables"`
}

// GraphQLPost executes a query or mutation sent as a JSON body.
func (s *Server) GraphQLPost(c *fiber.Ctx) error {
	var req graphqlRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return respondError(c, fiber.StatusBadRequest, "Invalid request body", models.CodeBadRequest)
	}
	return s.execute(c, req, false)
}

// GraphQLGet executes a query passed in the URL. Mutations are refused by the
// resolvers because the context is marked read-only.
func (s *Server) GraphQLGet(c *fiber.Ctx) error {
	req := graphqlRequest{
		Query:         c.Query("query"),
		OperationName: c.Query("operationName"),
	}
	if raw := c.Query("variables"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &req.Variables); err != nil {
			return respondError(c, fiber.StatusBadRequest, "variables must be a JSON object", models.CodeBadRequest)
		}
	}
	return s.execute(c, req, true)
}

func (s *Server) execute(c *fiber.Ctx, req graphqlRequest, readOnly bool) error {
	if strings.TrimSpace(req.Query) == "" {
		return respondError(c, fiber.StatusBadRequest, "Must provide query string", models.CodeBadRequest)
	}

	ctx := c.UserContext()
	if readOnly {
		ctx = graph.WithReadOnly(ctx)
	}

	resp := s.schema.Exec(ctx, req.Query, req.OperationName, req.Variables)
	return c.Status(fiber.StatusOK).JSON(resp)
}

// respondError writes a transport-level failure in the same envelope GraphQL
// clients already parse.
func respondError(c *fiber.Ctx, status int, message, code string) error {
	return c.Status(status).JSON(fiber.Map{
		"errors": []fiber.Map{{
			"message":    message,
			"extensions": fiber.Map{"code": code},
		}},
	})
}
