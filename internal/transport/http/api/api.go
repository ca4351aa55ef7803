// Package api holds the HTTP command intake contract.
package api

import "github.com/gofiber/fiber/v2"

// ErrorResponseErrorCode classifies transport-level failures.
type ErrorResponseErrorCode string

const (
	INVALIDARGUMENT ErrorResponseErrorCode = "INVALID_ARGUMENT"
	NOTFOUND        ErrorResponseErrorCode = "NOT_FOUND"
	INTERNAL        ErrorResponseErrorCode = "INTERNAL"
)

// ErrorResponse is returned for requests that never reached a workflow.
type ErrorResponse struct {
	Error struct {
		Code    ErrorResponseErrorCode `json:"code"`
		Message string                 `json:"message"`
	} `json:"error"`
}

// PostIntegrateJSONRequestBody is the body of POST /api/v1/commands/integrate.
type PostIntegrateJSONRequestBody struct {
	Repository  string `json:"repository"`
	PullRequest string `json:"pull_request"`
	User        string `json:"user"`
	Args        string `json:"args"`
}

// PostBackportJSONRequestBody is the body of POST /api/v1/commands/backport.
type PostBackportJSONRequestBody struct {
	Repository string `json:"repository"`
	Commit     string `json:"commit"`
	User       string `json:"user"`
	Args       string `json:"args"`
}

// CommandResult is the outcome of a handled command.
type CommandResult struct {
	Outcome string `json:"outcome"`
	Reason  string `json:"reason"`
	Reply   string `json:"reply"`
}

// ServerInterface is implemented by the fiber handlers.
type ServerInterface interface {
	PostIntegrate(c *fiber.Ctx) error
	PostBackport(c *fiber.Ctx) error
}

// RegisterHandlers mounts the command routes on router.
func RegisterHandlers(router fiber.Router, si ServerInterface) {
	v1 := router.Group("/api/v1/commands")
	v1.Post("/integrate", si.PostIntegrate)
	v1.Post("/backport", si.PostBackport)
}
