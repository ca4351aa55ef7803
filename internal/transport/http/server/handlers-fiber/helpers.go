package handlers_fiber

import (
	"errors"
	"net/http"

	"github.com/Tubbz-alt/skara/internal/entities"
	"github.com/Tubbz-alt/skara/internal/mapper"
	"github.com/Tubbz-alt/skara/internal/transport/http/api"
	"github.com/gofiber/fiber/v2"
)

func writeError(c *fiber.Ctx, err error) error {
	status := http.StatusInternalServerError
	code := api.INTERNAL
	msg := "internal error"

	switch {
	case errors.Is(err, entities.ErrInvalidArgument):
		status = http.StatusBadRequest
		code = api.INVALIDARGUMENT
		msg = err.Error()
	case errors.Is(err, entities.ErrRepositoryNotFound), errors.Is(err, entities.ErrPullRequestNotFound),
		errors.Is(err, entities.ErrCommitNotFound):
		status = http.StatusNotFound
		code = api.NOTFOUND
		msg = "resource not found"
	}

	return c.Status(status).JSON(errorResponse(code, msg))
}

// writeResult answers every handled outcome with 200 except infrastructure
// faults, which carry the already generic reply with a 500.
func writeResult(c *fiber.Ctx, res entities.Result) error {
	status := http.StatusOK
	if res.Kind == entities.ResultInfraFault {
		status = http.StatusInternalServerError
	}
	return c.Status(status).JSON(mapper.ToAPIResult(res))
}

func errorResponse(code api.ErrorResponseErrorCode, msg string) api.ErrorResponse {
	var res api.ErrorResponse
	res.Error.Code = code
	res.Error.Message = msg
	return res
}
