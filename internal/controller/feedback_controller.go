package controller

import (
	"comai-chat-be/internal/dto"
	"comai-chat-be/internal/pkg/serverutils"
	"comai-chat-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IFeedbackController interface {
	RegisterRoutes(r fiber.Router)
	Submit(ctx *fiber.Ctx) error
}

type feedbackController struct {
	feedbackService service.IFeedbackService
}

func NewFeedbackController(feedbackService service.IFeedbackService) IFeedbackController {
	return &feedbackController{
		feedbackService: feedbackService,
	}
}

func (c *feedbackController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/chat/v1/feedback")
	h.Use(serverutils.JwtMiddleware)
	h.Post("", c.Submit)
}

// Submit accepts a thumbs rating for an assistant message. Forwarding to the
// answer backend happens asynchronously through the feedback worker.
func (c *feedbackController) Submit(ctx *fiber.Ctx) error {
	userIdStr := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)

	var req dto.SubmitFeedbackRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	if err := c.feedbackService.SubmitFeedback(ctx.Context(), userId, &req); err != nil {
		switch err.Error() {
		case "conversation not found or access denied",
			"assistant message not found",
			"originating question not found":
			return ctx.Status(fiber.StatusNotFound).JSON(serverutils.ErrorResponse(404, err.Error()))
		}
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Feedback submitted", nil))
}
