package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/taskchat/taskchat-api/internal/agent"
	"github.com/taskchat/taskchat-api/internal/api/middleware"
	"github.com/taskchat/taskchat-api/internal/api/shared"
	"github.com/taskchat/taskchat-api/internal/domain"
	"github.com/taskchat/taskchat-api/internal/gateway"
	"github.com/taskchat/taskchat-api/internal/platform/logger"
)

// ChatRequest represents the request body for a chat turn.
type ChatRequest struct {
	// ThreadRef is the caller-side thread identifier; all turns with the
	// same reference land in the same conversation.
	ThreadRef string `json:"thread_ref" validate:"required,min=1,max=255"`

	// Title names the conversation; optional after the first turn.
	Title string `json:"title" validate:"max=255"`

	// Content is the user's message.
	Content string `json:"content" validate:"required"`

	// ExternalRef is the caller-assigned message ID, echoed back so the
	// client can de-duplicate rendering.
	ExternalRef string `json:"external_ref" validate:"max=255"`
}

// ChatHandler handles chat turn HTTP requests. Responses are streamed
// as newline-delimited JSON events.
type ChatHandler struct {
	turns *gateway.TurnService
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(turns *gateway.TurnService) *ChatHandler {
	return &ChatHandler{turns: turns}
}

// HandleTurn handles POST /api/chat/turn requests.
//
// Requests failing validation are rejected with a plain JSON error
// before anything is persisted. Accepted requests switch to an NDJSON
// event stream: a queued event when another turn for the thread is
// already in flight, then chunk/tool_call/tool_result events as the
// turn progresses, ending with done or error.
func (h *ChatHandler) HandleTurn(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.GetOwnerID(r)
	if !ok || ownerID == uuid.Nil {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Owner ID not found or invalid")
		return
	}

	var req ChatRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	if err := gateway.ValidateContent(req.Content); err != nil {
		if errors.Is(err, domain.ErrContentTooLong) {
			shared.RespondWithError(w, r, http.StatusBadRequest,
				fmt.Sprintf("Message exceeds the maximum length of %d characters", domain.MaxUserContentLength))
			return
		}
		shared.RespondWithError(w, r, http.StatusBadRequest, "Message cannot be empty")
		return
	}

	log := logger.FromContextOrDefault(r.Context(), nil)

	stream, err := newEventStream(w)
	if err != nil {
		log.Error("response writer does not support streaming")
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Streaming unsupported", err)
		return
	}

	input := gateway.TurnInput{
		OwnerID:     ownerID,
		ThreadRef:   req.ThreadRef,
		Title:       req.Title,
		Content:     req.Content,
		ExternalRef: req.ExternalRef,
	}

	if err := h.turns.ProcessTurn(r.Context(), input, stream.Send); err != nil {
		stream.SendError(err)
		log.Warn("turn failed",
			"thread_ref", req.ThreadRef,
			"error", err.Error())
		return
	}

	stream.Send(agent.Event{Kind: agent.EventDone})
}
