package dialog

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"github.com/NalimovStudio/TraumaBot/app/models"
	"github.com/NalimovStudio/TraumaBot/app/repository"
	"github.com/NalimovStudio/TraumaBot/internal/pkg/assistant"
	"github.com/NalimovStudio/TraumaBot/internal/pkg/history"
)

// Status is the outcome class of one inbound message.
type Status string

const (
	StatusOK     Status = "ok"
	StatusDenied Status = "denied"
	StatusError  Status = "error"
)

// Result is what the transport renders back to the user.
type Result struct {
	Status    Status
	Reply     string
	SessionID string
}

// Completer is the external LLM collaborator.
type Completer interface {
	Complete(ctx context.Context, req assistant.Request) (string, error)
}

// HistoryStore is the ephemeral per-(user, scope) context buffer.
type HistoryStore interface {
	Append(ctx context.Context, telegramID, scope string, turn history.Turn) error
	Read(ctx context.Context, telegramID, scope string) []history.Turn
	Clear(ctx context.Context, telegramID, scope string) error
}

// QuotaGate is the subscription lifecycle surface the orchestrator
// needs: admission, usage accounting and dialog completion.
type QuotaGate interface {
	CheckMessageLimit(telegramID string) (bool, *models.User, error)
	RecordUsage(telegramID string) error
	CompleteDialog(telegramID string) error
}

type sessionState string

const (
	stateActive sessionState = "active"
	stateClosed sessionState = "closed"
)

type sessionKey struct {
	telegramID string
	scope      string
}

type session struct {
	id        string
	state     sessionState
	startedAt time.Time
}

// Orchestrator drives one support-method conversation per (user, scope):
// admission check, history assembly, LLM call, history and durable-log
// appends, usage accounting. Inbound messages for the same (user, scope)
// are serialized by a keyed mutex so rapid successive messages cannot
// interleave their history appends.
type Orchestrator struct {
	quota   QuotaGate
	history HistoryStore
	llm     Completer
	logs    repository.DialogLogRepository

	mu       sync.Mutex
	sessions map[sessionKey]*session
	locks    map[sessionKey]*sync.Mutex
}

// NewOrchestrator wires the orchestrator from its collaborators.
func NewOrchestrator(quota QuotaGate, historyStore HistoryStore, llm Completer, logs repository.DialogLogRepository) *Orchestrator {
	return &Orchestrator{
		quota:    quota,
		history:  historyStore,
		llm:      llm,
		logs:     logs,
		sessions: make(map[sessionKey]*session),
		locks:    make(map[sessionKey]*sync.Mutex),
	}
}

func (o *Orchestrator) lockFor(key sessionKey) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()
	l, ok := o.locks[key]
	if !ok {
		l = &sync.Mutex{}
		o.locks[key] = l
	}
	return l
}

// Start opens a session for a support method and returns its id. Any
// stale history for the scope is cleared so the flow begins fresh.
func (o *Orchestrator) Start(ctx context.Context, telegramID, scope string) (string, error) {
	if _, ok := assistant.ProfileForScope(scope); !ok {
		return "", ErrUnknownScope
	}

	key := sessionKey{telegramID: telegramID, scope: scope}
	lock := o.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	// Best-effort: a stale buffer only degrades context, it must not
	// block starting the flow.
	_ = o.history.Clear(ctx, telegramID, scope)

	sess := &session{
		id:        uuid.NewString(),
		state:     stateActive,
		startedAt: time.Now(),
	}
	o.mu.Lock()
	o.sessions[key] = sess
	o.mu.Unlock()

	log.Infof("dialog: user %s started scope %s session %s", telegramID, scope, sess.id)
	return sess.id, nil
}

// activeSession returns the live session for the key, lazily opening
// one if the user writes into a scope without an explicit start (e.g.
// after a process restart).
func (o *Orchestrator) activeSession(key sessionKey) *session {
	o.mu.Lock()
	defer o.mu.Unlock()
	sess, ok := o.sessions[key]
	if !ok || sess.state != stateActive {
		sess = &session{
			id:        uuid.NewString(),
			state:     stateActive,
			startedAt: time.Now(),
		}
		o.sessions[key] = sess
	}
	return sess
}

// SessionID returns the current session id for a (user, scope), or ""
// when no session is active.
func (o *Orchestrator) SessionID(telegramID, scope string) string {
	o.mu.Lock()
	defer o.mu.Unlock()
	if sess, ok := o.sessions[sessionKey{telegramID: telegramID, scope: scope}]; ok && sess.state == stateActive {
		return sess.id
	}
	return ""
}

// HandleInbound processes one user message in an active scope.
//
// Order of operations is load-bearing: admission first (a denied
// message must not reach the LLM or touch history), then the user turn
// goes to the history buffer and the durable log, then the LLM is
// called with the assembled context, and only a successful reply
// records the assistant turn and the usage increment.
func (o *Orchestrator) HandleInbound(ctx context.Context, telegramID, scope, text string) Result {
	profile, ok := assistant.ProfileForScope(scope)
	if !ok {
		log.Errorf("dialog: inbound message for unknown scope %q from user %s", scope, telegramID)
		return Result{Status: StatusError}
	}

	key := sessionKey{telegramID: telegramID, scope: scope}
	lock := o.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	sess := o.activeSession(key)

	admitted, user, err := o.quota.CheckMessageLimit(telegramID)
	if err != nil {
		// Billing state is fail-closed: an unreadable or unwritable
		// quota record denies the message.
		log.Errorf("dialog: quota check failed for user %s: %v", telegramID, err)
		return Result{Status: StatusError, SessionID: sess.id}
	}
	if !admitted {
		return Result{Status: StatusDenied, SessionID: sess.id}
	}

	userTurn := history.Turn{Role: models.DIALOG_ROLE_USER, Message: text}
	// Best-effort: a failed buffer append only degrades context.
	_ = o.history.Append(ctx, telegramID, scope, userTurn)
	o.appendLog(user.ID, sess.id, scope, models.DIALOG_ROLE_USER, text)

	turns := o.history.Read(ctx, telegramID, scope)
	// The new message is passed separately; if the buffer already holds
	// the just-appended user turn, keep it out of the context slice.
	if n := len(turns); n > 0 && turns[n-1] == userTurn {
		turns = turns[:n-1]
	}

	contextTurns := make([]assistant.Turn, 0, len(turns))
	for _, t := range turns {
		contextTurns = append(contextTurns, assistant.Turn{Role: t.Role, Message: t.Message})
	}

	reply, err := o.llm.Complete(ctx, assistant.Request{
		SystemPrompt: profile.SystemPrompt,
		History:      contextTurns,
		Message:      text,
		Temperature:  profile.Temperature,
	})
	if err != nil {
		// Timeout and failure are equivalent: no assistant turn, no
		// usage increment, the caller gets a retryable error.
		log.Errorf("dialog: completion failed for user %s scope %s: %v", telegramID, scope, err)
		return Result{Status: StatusError, SessionID: sess.id}
	}

	assistantTurn := history.Turn{Role: models.DIALOG_ROLE_ASSISTANT, Message: reply}
	_ = o.history.Append(ctx, telegramID, scope, assistantTurn)
	o.appendLog(user.ID, sess.id, scope, models.DIALOG_ROLE_ASSISTANT, reply)

	if err := o.quota.RecordUsage(telegramID); err != nil {
		// The reply already exists; losing the increment is an
		// accounting leak, not a user-facing failure.
		log.Errorf("dialog: usage increment failed for user %s: %v", telegramID, err)
	}

	return Result{Status: StatusOK, Reply: reply, SessionID: sess.id}
}

// Stop closes the session: the history buffer is cleared, the
// dialogs-completed counters are bumped, and the durable log keeps
// everything already written.
func (o *Orchestrator) Stop(ctx context.Context, telegramID, scope string) error {
	key := sessionKey{telegramID: telegramID, scope: scope}
	lock := o.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	if err := o.history.Clear(ctx, telegramID, scope); err != nil {
		log.Warnf("dialog: history clear on stop failed for user %s scope %s: %v", telegramID, scope, err)
	}

	o.mu.Lock()
	if sess, ok := o.sessions[key]; ok {
		sess.state = stateClosed
		delete(o.sessions, key)
	}
	o.mu.Unlock()

	if err := o.quota.CompleteDialog(telegramID); err != nil {
		log.Warnf("dialog: completion counter bump failed for user %s: %v", telegramID, err)
	}

	log.Infof("dialog: user %s stopped scope %s", telegramID, scope)
	return nil
}

// appendLog writes one immutable record; a write failure is reported,
// never silently dropped, but does not abort the exchange.
func (o *Orchestrator) appendLog(userID uint, sessionID, scope, role, text string) {
	err := o.logs.Append(&models.DialogLog{
		UserID:    userID,
		SessionID: sessionID,
		Scope:     scope,
		Role:      role,
		Message:   text,
	})
	if err != nil {
		log.Errorf("dialog: durable log append failed (session %s, role %s): %v", sessionID, role, err)
	}
}
