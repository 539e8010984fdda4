package controller

import (
	"bufio"
	"context"
	"encoding/json"
	"log"

	"comai-chat-be/internal/dto"
	"comai-chat-be/internal/pkg/serverutils"
	"comai-chat-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router)
	Stream(ctx *fiber.Ctx) error
	Cancel(ctx *fiber.Ctx) error
	Query(ctx *fiber.Ctx) error
}

type chatController struct {
	chatService service.IChatService
}

func NewChatController(chatService service.IChatService) IChatController {
	return &chatController{
		chatService: chatService,
	}
}

func (c *chatController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/chat/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Post("/stream", c.Stream)
	h.Post("/cancel", c.Cancel)
	h.Post("/query", c.Query)
}

// Stream answers a question over newline-delimited JSON. The prepare phase
// runs before the response commits, so bad requests still get proper status
// codes; once the body stream starts, everything is reported in-band.
func (c *chatController) Stream(ctx *fiber.Ctx) error {
	userIdStr := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)

	var req dto.StreamChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	stream, err := c.chatService.PrepareStream(ctx.Context(), userId, &req)
	if err != nil {
		if err.Error() == "conversation not found or access denied" {
			return ctx.Status(fiber.StatusNotFound).JSON(serverutils.ErrorResponse(404, err.Error()))
		}
		return err
	}

	ctx.Set(fiber.HeaderContentType, "application/x-ndjson; charset=utf-8")
	ctx.Set(fiber.HeaderCacheControl, "no-cache")
	ctx.Set(fiber.HeaderConnection, "keep-alive")

	// The writer closure runs after this handler returns, while fasthttp
	// drains the body to the client. It must not touch the fiber context,
	// so the stream carries everything it needs.
	conversationId := req.ConversationId
	ctx.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		enc := json.NewEncoder(w)
		emit := func(line *dto.StreamLine) error {
			if err := enc.Encode(line); err != nil {
				return err
			}
			return w.Flush()
		}

		if err := stream.Run(context.Background(), emit); err != nil {
			// Status is committed; all we can do is log.
			log.Printf("[ERROR] Chat stream for conversation %s: %v", conversationId, err)
		}
	}))

	return nil
}

func (c *chatController) Cancel(ctx *fiber.Ctx) error {
	userIdStr := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)

	var req dto.CancelStreamRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	if err := c.chatService.CancelStream(ctx.Context(), userId, &req); err != nil {
		if err.Error() == "conversation not found or access denied" ||
			err.Error() == "no active stream for this conversation" {
			return ctx.Status(fiber.StatusNotFound).JSON(serverutils.ErrorResponse(404, err.Error()))
		}
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Stream cancelled", nil))
}

func (c *chatController) Query(ctx *fiber.Ctx) error {
	userIdStr := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)

	var req dto.QueryChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.chatService.QueryChat(ctx.Context(), userId, &req)
	if err != nil {
		if err.Error() == "conversation not found or access denied" {
			return ctx.Status(fiber.StatusNotFound).JSON(serverutils.ErrorResponse(404, err.Error()))
		}
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Chat exchange", res))
}
