package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"mercator-hq/parley/pkg/orchestrator"
	"mercator-hq/parley/pkg/proxy"
	"mercator-hq/parley/pkg/security/auth"
	"mercator-hq/parley/pkg/telemetry/logging"
)

// PathSessionID is the path wildcard naming the session in DELETE routes.
const PathSessionID = "sessionId"

// ChatHandler serves the chat endpoints.
type ChatHandler struct {
	chats  ChatService
	parser *proxy.RequestParser
	logger *slog.Logger
}

// NewChatHandler creates a chat handler.
func NewChatHandler(chats ChatService, parser *proxy.RequestParser, logger *slog.Logger) *ChatHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatHandler{
		chats:  chats,
		parser: parser,
		logger: logger.With("component", "chat_handler"),
	}
}

// HandleChat runs one turn and answers with the full response.
func (h *ChatHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	req, err := h.parser.ParseChatRequest(w, r)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to parse chat request", "error", err)
		h.writeError(w, r, err)
		return
	}

	h.logger.DebugContext(ctx, "processing chat request",
		"session_id", req.SessionID,
		"model", req.Model,
		"files", len(req.Files),
	)

	sink := &orchestrator.BufferSink{}
	res, err := h.chats.Run(ctx, req, sink)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.logger.InfoContext(ctx, "chat request completed",
		"session_id", res.SessionID,
		"provider", res.Provider,
		"model", res.Model,
		"response_bytes", len(res.Response),
		"latency_ms", time.Since(startTime).Milliseconds(),
	)

	if err := proxy.WriteJSONResponse(w, http.StatusOK, proxy.FormatChatResponse(res)); err != nil {
		h.logger.ErrorContext(ctx, "failed to write response", "error", err)
	}
}

// HandleStream runs one turn and streams it as Server-Sent Events. Errors
// are reported through the event stream, with the mapped status when no
// chunk has been sent yet.
func (h *ChatHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()
	sink := proxy.NewSSESink(w)

	req, err := h.parser.ParseChatRequest(w, r)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to parse stream request", "error", err)
		if serr := sink.Error(err); serr != nil {
			h.logger.DebugContext(ctx, "failed to write error event", "error", serr)
		}
		return
	}

	h.logger.DebugContext(ctx, "processing stream request",
		"session_id", req.SessionID,
		"model", req.Model,
		"files", len(req.Files),
	)

	// The orchestrator reports failures to the sink itself.
	res, err := h.chats.Run(ctx, req, sink)
	if err != nil {
		return
	}

	h.logger.InfoContext(ctx, "stream request completed",
		"session_id", res.SessionID,
		"provider", res.Provider,
		"model", res.Model,
		"response_bytes", len(res.Response),
		"latency_ms", time.Since(startTime).Milliseconds(),
	)
}

// HandleDelete deletes the session named in the path.
func (h *ChatHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := r.PathValue(PathSessionID)
	ctx = logging.WithSession(ctx, sessionID)

	if err := h.chats.Delete(ctx, auth.TokenFromContext(ctx), sessionID); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ChatHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if werr := proxy.WriteErrorResponse(w, proxy.HandleError(err)); werr != nil {
		h.logger.ErrorContext(r.Context(), "failed to write error response", "error", werr)
	}
}

// AuthError writes the 401 response for requests rejected by the bearer
// token middleware.
func AuthError(w http.ResponseWriter, r *http.Request, err error) {
	if werr := proxy.WriteErrorResponse(w, proxy.HandleError(err)); werr != nil {
		slog.ErrorContext(r.Context(), "failed to write error response", "error", werr)
	}
}
