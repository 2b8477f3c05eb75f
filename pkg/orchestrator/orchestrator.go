package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"mercator-hq/parley/pkg/access"
	"mercator-hq/parley/pkg/attachments"
	"mercator-hq/parley/pkg/config"
	"mercator-hq/parley/pkg/conversation"
	"mercator-hq/parley/pkg/providers"
	"mercator-hq/parley/pkg/routing"
	"mercator-hq/parley/pkg/security/auth"
	"mercator-hq/parley/pkg/storage"
	"mercator-hq/parley/pkg/telemetry/logging"
	"mercator-hq/parley/pkg/telemetry/metrics"
	"mercator-hq/parley/pkg/telemetry/tracing"
)

// Default prompts.
const (
	DefaultSystemPrompt     = "You are a helpful assistant."
	DefaultAttachmentPrompt = "please analyze the attached content"
)

// Router classifies model ids.
type Router interface {
	Classify(modelID string) (*routing.Route, error)
	DefaultModel() string
}

// AccessController enforces quotas and premium gating.
type AccessController interface {
	Evaluate(ctx context.Context, userID, sessionID, model string) (*access.Decision, error)
	CheckPremium(ctx context.Context, userID string) (bool, error)
}

// AttachmentProcessor turns uploads into content for a provider.
type AttachmentProcessor interface {
	Process(ctx context.Context, files []attachments.UploadedFile, provider string) *attachments.Result
}

// Deps are the collaborators of an Orchestrator. Auth, Access, Router,
// Sessions and Chats are required.
type Deps struct {
	Auth        auth.Authenticator
	Access      AccessController
	Router      Router
	Attachments AttachmentProcessor
	Sessions    conversation.Store
	Chats       storage.ChatStore

	// Uploads tracks blobs per session so Delete can remove them. Blobs is
	// where they live. Both are optional.
	Uploads *attachments.Registry
	Blobs   attachments.BlobStore

	// StorageBackend labels persistence failure metrics.
	StorageBackend string

	Metrics *metrics.Collector
	Tracer  trace.Tracer
	Logger  *slog.Logger
}

// Orchestrator drives one chat turn through authentication, access control,
// attachment processing, history assembly, provider streaming and
// persistence.
type Orchestrator struct {
	deps   Deps
	logger *slog.Logger
	tracer trace.Tracer

	mu               sync.RWMutex
	systemPrompt     string
	attachmentPrompt string
}

// New creates an orchestrator.
func New(deps Deps, cfg config.ConversationConfig) (*Orchestrator, error) {
	switch {
	case deps.Auth == nil:
		return nil, errors.New("orchestrator: authenticator is required")
	case deps.Access == nil:
		return nil, errors.New("orchestrator: access controller is required")
	case deps.Router == nil:
		return nil, errors.New("orchestrator: router is required")
	case deps.Sessions == nil:
		return nil, errors.New("orchestrator: session store is required")
	case deps.Chats == nil:
		return nil, errors.New("orchestrator: chat store is required")
	}

	o := &Orchestrator{deps: deps, logger: deps.Logger, tracer: deps.Tracer}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	o.logger = o.logger.With("component", "orchestrator")
	if o.tracer == nil {
		o.tracer = otel.Tracer("parley/orchestrator")
	}
	o.UpdateConfig(cfg)
	return o, nil
}

// UpdateConfig applies new prompts. Existing sessions keep their system
// message.
func (o *Orchestrator) UpdateConfig(cfg config.ConversationConfig) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.systemPrompt = cfg.SystemPrompt
	if o.systemPrompt == "" {
		o.systemPrompt = DefaultSystemPrompt
	}
	o.attachmentPrompt = cfg.AttachmentPrompt
	if o.attachmentPrompt == "" {
		o.attachmentPrompt = DefaultAttachmentPrompt
	}
}

func (o *Orchestrator) prompts() (string, string) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.systemPrompt, o.attachmentPrompt
}

// turn carries the state of one Run.
type turn struct {
	o      *Orchestrator
	req    *Request
	sink   Sink
	span   trace.Span
	result *Result

	userID string

	// filesOwned is set once req.Files are registered to the session; until
	// then a failed turn deletes them.
	filesOwned bool

	// session is the working copy; baseLen is its length before the user
	// message was appended (-1 until history is assembled).
	session *conversation.Session
	baseLen int
}

func (t *turn) advance(ctx context.Context, s State) {
	t.result.State = s
	t.span.AddEvent(s.String())
	t.o.logger.DebugContext(ctx, "turn state", "state", s.String())
}

// Run executes one turn, delivering output to sink. The returned error is
// the one passed to sink.Error; nil means sink.Done was called.
func (o *Orchestrator) Run(ctx context.Context, req *Request, sink Sink) (*Result, error) {
	start := time.Now()

	ctx = logging.WithSession(ctx, req.SessionID)
	if req.RequestID != "" {
		ctx = logging.WithRequestID(ctx, req.RequestID)
	}
	ctx, span := o.tracer.Start(ctx, "chat.turn", trace.WithAttributes(
		attribute.String(tracing.AttrRequestID, req.RequestID),
		attribute.Int(tracing.AttrAttachmentCount, len(req.Files)),
	))
	defer span.End()

	t := &turn{
		o:       o,
		req:     req,
		sink:    sink,
		span:    span,
		result:  &Result{SessionID: req.SessionID, State: StateReceived},
		baseLen: -1,
	}

	err := t.run(ctx)
	if err != nil {
		t.rollback(ctx)
		if !t.filesOwned {
			t.discardFiles(ctx)
		}
		t.result.State = StateErrored
		span.AddEvent(StateErrored.String())
		tracing.SetError(span, err)
		var denied *access.AccessDeniedError
		if errors.As(err, &denied) {
			tracing.SetAccessDenied(span, denied.Reason)
		}

		if serr := sink.Error(err); serr != nil {
			o.logger.DebugContext(ctx, "failed to deliver error to client", "error", serr)
		}
		o.logFailure(ctx, err)
	}
	tracing.SetStatus(span, err)

	o.deps.Metrics.RecordTurn(t.result.Provider, t.result.Model, turnStatus(err), time.Since(start))
	return t.result, err
}

func (t *turn) run(ctx context.Context) error {
	o, req := t.o, t.req

	// Received
	if strings.TrimSpace(req.SessionID) == "" {
		return &ValidationError{Field: "sessionId", Message: "is required"}
	}
	if strings.TrimSpace(req.Message) == "" && len(req.Files) == 0 {
		return &ValidationError{Field: "message", Message: "a message or at least one file is required"}
	}

	id, err := o.deps.Auth.Authenticate(ctx, req.Token)
	if err != nil {
		return err
	}
	t.userID = id.UserID
	ctx = logging.WithUser(ctx, t.userID)
	tracing.SetSessionAttributes(t.span, req.SessionID, t.userID)
	t.advance(ctx, StateAuthenticated)

	sess, record, err := o.load(ctx, req.SessionID)
	if err != nil {
		return err
	}
	if err := checkOwner(t.userID, sess, record); err != nil {
		return err
	}

	model := req.Model
	if model == "" && sess != nil {
		model = sess.Model
	}
	if model == "" && record != nil {
		model = record.Model
	}
	if model == "" {
		model = o.deps.Router.DefaultModel()
	}

	if _, err := o.deps.Access.Evaluate(ctx, t.userID, req.SessionID, model); err != nil {
		return err
	}
	t.advance(ctx, StateAccessChecked)

	if o.deps.Uploads != nil && len(req.Files) > 0 {
		o.deps.Uploads.Add(req.SessionID, req.Files...)
		t.filesOwned = true
	}

	route, err := o.deps.Router.Classify(model)
	if err != nil {
		var cerr *providers.ConfigError
		if errors.As(err, &cerr) {
			o.deps.Metrics.RecordProviderError(cerr.Provider, "not_configured")
		}
		return err
	}
	t.result.Provider = route.ProviderName
	t.result.Model = route.Model
	ctx = logging.WithProvider(logging.WithModel(ctx, route.Model), route.ProviderName)
	tracing.SetProviderAttributes(t.span, route.ProviderName, route.Model)

	systemPrompt, attachmentPrompt := o.prompts()

	prompt := strings.TrimSpace(req.Message)
	var processed *attachments.Result
	if len(req.Files) > 0 {
		processed, err = t.processFiles(ctx, route.ProviderName)
		if err != nil {
			return err
		}
		if prompt == "" {
			prompt = attachmentPrompt
		}
	}
	t.advance(ctx, StateAttachmentsProcessed)

	// History
	if sess == nil {
		if record != nil {
			sess = conversation.Hydrate(req.SessionID, t.userID, systemPrompt, record.Messages)
		} else {
			sess = conversation.NewSession(req.SessionID, t.userID, systemPrompt)
		}
	}
	if sess.UserID == "" {
		sess.UserID = t.userID
	}
	sess.Model = route.Requested
	t.session = sess
	t.baseLen = sess.Len()

	userText := prompt
	if docs := processed.Text(); docs != "" {
		userText = prompt + "\n\n" + docs
	}
	sess.AppendUser(userText)
	if processed != nil && len(processed.Images) > 0 {
		parts := make([]providers.ContentPart, 0, len(processed.Images)+1)
		parts = append(parts, providers.TextPart(userText))
		parts = append(parts, processed.Images...)
		sess.ReplaceLastUser(providers.Message{Role: providers.RoleUser, Parts: parts})
	}
	if err := o.deps.Sessions.Set(ctx, sess); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	o.deps.Metrics.UpdateActiveSessions(o.activeSessions())
	t.advance(ctx, StateHistoryAssembled)

	// Dispatch
	if route.Premium {
		subscribed, err := o.deps.Access.CheckPremium(ctx, t.userID)
		if err != nil {
			return err
		}
		if !subscribed {
			return access.Denied(access.ReasonPremiumRequired)
		}
	}
	t.advance(ctx, StateProviderDispatched)

	full, err := t.stream(ctx, route, sess)
	if err != nil {
		return err
	}

	// Persist
	sess.AppendAssistant(full)
	t.result.Response = full
	t.persist(ctx, sess)
	t.advance(ctx, StatePersisted)

	if err := t.sink.Done(full); err != nil {
		o.logger.DebugContext(ctx, "failed to deliver completion to client", "error", err)
	}
	t.advance(ctx, StateDone)

	o.logger.InfoContext(ctx, "turn completed",
		"response_bytes", len(full),
		"message_count", t.result.MessageCount,
		"dropped_attachments", len(t.result.Dropped),
	)
	return nil
}

// load returns the in-memory session (nil if absent) and the durable record
// (nil if absent).
func (o *Orchestrator) load(ctx context.Context, sessionID string) (*conversation.Session, *storage.ChatRecord, error) {
	sess, ok, err := o.deps.Sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("load session: %w", err)
	}
	if !ok {
		sess = nil
	}

	record, err := o.deps.Chats.GetChat(ctx, sessionID)
	if errors.Is(err, storage.ErrNotFound) {
		return sess, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load chat: %w", err)
	}
	return sess, record, nil
}

func checkOwner(userID string, sess *conversation.Session, record *storage.ChatRecord) error {
	if sess != nil && sess.UserID != "" && sess.UserID != userID {
		return access.Denied(access.ReasonSessionForbidden)
	}
	if record != nil && record.UserID != userID {
		return access.Denied(access.ReasonSessionForbidden)
	}
	return nil
}

func (t *turn) processFiles(ctx context.Context, provider string) (*attachments.Result, error) {
	o := t.o
	if o.deps.Attachments == nil {
		return nil, &attachments.AttachmentError{File: fileNames(t.req.Files), Reason: attachments.ReasonUnreadable, Err: errors.New("uploads are disabled")}
	}

	res := o.deps.Attachments.Process(ctx, t.req.Files, provider)
	t.result.Dropped = res.Dropped

	for range res.Images {
		o.deps.Metrics.RecordAttachment("image", "accepted")
	}
	for _, d := range res.Documents {
		outcome := "accepted"
		switch {
		case d.Failed:
			outcome = "failed"
		case d.Truncated:
			outcome = "truncated"
		}
		o.deps.Metrics.RecordAttachment("document", outcome)
	}
	for _, d := range res.Dropped {
		o.deps.Metrics.RecordAttachment("image", d.Reason)
	}

	if !res.Usable() {
		return nil, &attachments.AttachmentError{
			File:   fileNames(t.req.Files),
			Reason: attachments.ReasonNoContent,
			Err:    errors.Join(dropErrors(res.Dropped)...),
		}
	}
	return res, nil
}

func (t *turn) stream(ctx context.Context, route *routing.Route, sess *conversation.Session) (string, error) {
	o := t.o

	messages := make([]providers.Message, len(sess.Messages))
	copy(messages, sess.Messages)
	creq := &providers.CompletionRequest{
		Model:     route.Model,
		Messages:  messages,
		Stream:    true,
		RequestID: t.req.RequestID,
	}

	dispatched := time.Now()
	chunks, bytes := 0, 0
	t.advance(ctx, StateStreaming)

	full, err := providers.Stream(ctx, route.Provider, creq, func(delta string) error {
		if chunks == 0 {
			o.deps.Metrics.RecordFirstChunk(route.ProviderName, time.Since(dispatched))
		}
		chunks++
		bytes += len(delta)
		if err := t.sink.Chunk(delta); err != nil {
			return fmt.Errorf("%w: %v", ErrClientGone, err)
		}
		return nil
	})

	o.deps.Metrics.RecordProviderCall(route.ProviderName, time.Since(dispatched))
	o.deps.Metrics.RecordStream(route.ProviderName, chunks, bytes)
	o.deps.Metrics.UpdateProviderHealth(route.ProviderName, route.Provider.GetHealth().IsHealthy)
	t.span.SetAttributes(attribute.Int(tracing.AttrChunkCount, chunks))

	if err != nil {
		var perr *providers.ProviderError
		if errors.As(err, &perr) && ctx.Err() == nil {
			o.deps.Metrics.RecordProviderError(route.ProviderName, providerErrorType(perr))
		}
		return full, err
	}
	return full, nil
}

// persist writes the exchange to the session store and the durable store.
// Failures are logged; the turn has already been streamed.
func (t *turn) persist(ctx context.Context, sess *conversation.Session) {
	o := t.o
	ctx = context.WithoutCancel(ctx)

	if err := o.deps.Sessions.Set(ctx, sess); err != nil {
		o.logger.ErrorContext(ctx, "failed to store session", "error", err)
	}

	// The user message keeps its image parts so a hydrated session replays
	// the same history the provider saw.
	exchange := append([]providers.Message(nil), sess.Messages[t.baseLen:]...)
	record, err := o.deps.Chats.SaveTurn(ctx, sess.ID, t.userID, sess.Model, exchange)
	if err != nil {
		perr := &PersistenceError{SessionID: sess.ID, Err: err}
		o.deps.Metrics.RecordPersistenceFailure(o.deps.StorageBackend)
		tracing.RecordException(t.span, perr)
		o.logger.ErrorContext(ctx, "turn delivered but not persisted", "error", perr)
		return
	}
	t.result.MessageCount = record.MessageCount
}

// discardFiles deletes the request's uploads from the blob store. Used when
// the turn fails before the files belong to a session the caller may use.
func (t *turn) discardFiles(ctx context.Context) {
	blobs := t.o.deps.Blobs
	if blobs == nil || len(t.req.Files) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)
	for _, f := range t.req.Files {
		if err := blobs.Delete(ctx, f.StorageHandle); err != nil {
			t.o.logger.WarnContext(ctx, "failed to discard upload",
				"file", f.OriginalName,
				"error", err,
			)
		}
	}
}

// rollback restores the in-memory history to its pre-turn length so a
// failed turn leaves no dangling user message.
func (t *turn) rollback(ctx context.Context) {
	if t.session == nil || t.baseLen < 0 {
		return
	}
	t.session.Truncate(t.baseLen)
	if err := t.o.deps.Sessions.Set(context.WithoutCancel(ctx), t.session); err != nil {
		t.o.logger.ErrorContext(ctx, "failed to roll back session", "error", err)
	}
}

func (o *Orchestrator) activeSessions() int {
	if m, ok := o.deps.Sessions.(interface{ Len() int }); ok {
		return m.Len()
	}
	return 0
}

func (o *Orchestrator) logFailure(ctx context.Context, err error) {
	var (
		verr   *ValidationError
		aerr   *auth.AuthError
		denied *access.AccessDeniedError
		atterr *attachments.AttachmentError
	)
	switch {
	case errors.As(err, &verr), errors.As(err, &aerr), errors.As(err, &atterr):
		o.logger.InfoContext(ctx, "turn rejected", "error", err)
	case errors.As(err, &denied):
		o.logger.InfoContext(ctx, "turn denied", "reason", denied.Reason)
	case errors.Is(err, ErrClientGone), errors.Is(err, context.Canceled):
		o.logger.InfoContext(ctx, "turn cancelled by client", "error", err)
	default:
		o.logger.ErrorContext(ctx, "turn failed", "error", err)
	}
}

// Delete removes a session: the durable record, the in-memory history and
// its uploads. Only the owner may delete.
func (o *Orchestrator) Delete(ctx context.Context, token, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return &ValidationError{Field: "sessionId", Message: "is required"}
	}
	ctx = logging.WithSession(ctx, sessionID)

	id, err := o.deps.Auth.Authenticate(ctx, token)
	if err != nil {
		return err
	}
	ctx = logging.WithUser(ctx, id.UserID)

	sess, record, err := o.load(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess == nil && record == nil {
		return ErrSessionNotFound
	}
	if err := checkOwner(id.UserID, sess, record); err != nil {
		return err
	}

	if record != nil {
		if err := o.deps.Chats.DeleteChat(ctx, sessionID); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("delete chat: %w", err)
		}
	}
	if err := o.deps.Sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	o.deps.Metrics.UpdateActiveSessions(o.activeSessions())

	if o.deps.Uploads != nil && o.deps.Blobs != nil {
		if err := o.deps.Uploads.Remove(ctx, sessionID, o.deps.Blobs); err != nil {
			o.logger.WarnContext(ctx, "failed to remove session uploads", "error", err)
		}
	}

	o.logger.InfoContext(ctx, "session deleted")
	return nil
}

func turnStatus(err error) string {
	var denied *access.AccessDeniedError
	switch {
	case err == nil:
		return "success"
	case errors.As(err, &denied):
		return "denied"
	case errors.Is(err, ErrClientGone), errors.Is(err, context.Canceled):
		return "cancelled"
	default:
		return "error"
	}
}

func providerErrorType(perr *providers.ProviderError) string {
	switch {
	case perr.StatusCode == 0:
		return "network"
	case perr.StatusCode == http.StatusTooManyRequests:
		return "rate_limit"
	case perr.StatusCode >= 500:
		return "server_error"
	default:
		return "client_error"
	}
}

func fileNames(files []attachments.UploadedFile) string {
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.DisplayName()
	}
	return strings.Join(names, ", ")
}

func dropErrors(dropped []*attachments.AttachmentError) []error {
	errs := make([]error, len(dropped))
	for i, d := range dropped {
		errs[i] = d
	}
	return errs
}
