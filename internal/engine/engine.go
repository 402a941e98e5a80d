package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/ndomo/agentline/internal/models"
	"github.com/ndomo/agentline/internal/store"
)

// Opts configures a new Engine. Store, Messenger and Gateway are required;
// Notifier and Classifier are optional hooks.
type Opts struct {
	Store      *store.Store
	Messenger  Messenger
	Gateway    Gateway
	Notifier   Notifier
	Classifier Classifier

	// MinConfidence gates the classifier: intents below it are ignored.
	MinConfidence float64

	// CallTimeout bounds each outbound send and backend call. Zero means
	// 10 seconds.
	CallTimeout time.Duration
}

// Engine drives the conversational state machine. One HandleMessage call
// processes one inbound message under the session's phone lock.
type Engine struct {
	store         *store.Store
	messenger     Messenger
	gateway       Gateway
	notifier      Notifier
	classifier    Classifier
	minConfidence float64
	callTimeout   time.Duration
}

func New(opts Opts) (*Engine, error) {
	if opts.Store == nil {
		return nil, errors.New("engine: store is required")
	}
	if opts.Messenger == nil {
		return nil, errors.New("engine: messenger is required")
	}
	if opts.Gateway == nil {
		return nil, errors.New("engine: gateway is required")
	}
	timeout := opts.CallTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	minConf := opts.MinConfidence
	if minConf == 0 {
		minConf = 0.7
	}
	return &Engine{
		store:         opts.Store,
		messenger:     opts.Messenger,
		gateway:       opts.Gateway,
		notifier:      opts.Notifier,
		classifier:    opts.Classifier,
		minConfidence: minConf,
		callTimeout:   timeout,
	}, nil
}

// reply is one buffered outbound message, flushed after the session is
// persisted so a storage failure never produces a half-announced state.
type reply struct {
	text        string
	buttons     []Button
	buttonLabel string
	sections    []ListSection
}

// conversation bundles everything a state handler needs for one turn.
type conversation struct {
	sess    *models.Session
	ctx     *Context
	choice  string // normalized input
	raw     string // trimmed original text
	replies []reply
}

func (c *conversation) text(msg string) {
	c.replies = append(c.replies, reply{text: msg})
}

func (c *conversation) buttons(msg string, buttons []Button) {
	c.replies = append(c.replies, reply{text: msg, buttons: buttons})
}

func (c *conversation) list(msg, buttonLabel string, sections []ListSection) {
	c.replies = append(c.replies, reply{text: msg, buttonLabel: buttonLabel, sections: sections})
}

func (c *conversation) setState(s State) {
	c.sess.State = string(s)
}

func (c *conversation) state() State {
	return State(c.sess.State)
}

// HandleMessage processes one inbound message for a phone number. The body
// is the message text; selection, when non-empty, is the interactive reply
// ID and takes precedence over the body.
func (e *Engine) HandleMessage(ctx context.Context, phone, body, selection string) error {
	unlock := e.store.Lock(phone)
	defer unlock()

	sess, err := e.store.FindOrCreate(phone)
	if err != nil {
		return fmt.Errorf("engine: load session: %w", err)
	}

	conv := &conversation{
		sess:   sess,
		ctx:    decodeContext(sess.Context),
		choice: Normalize(body, selection),
		raw:    strings.TrimSpace(body),
	}
	if selection != "" {
		conv.raw = strings.TrimSpace(selection)
	}

	e.maybeClassify(ctx, conv)

	switch conv.state() {
	case StateAwaitingLogin:
		e.handleLogin(ctx, conv)
	case StateMainMenu:
		e.handleMainMenu(ctx, conv)
	case StatePassChooseProduct:
		e.handlePassChooseProduct(conv)
	case StatePassChooseRecurrence:
		e.handlePassChooseRecurrence(conv)
	case StatePassCollectLastName:
		e.handlePassCollectLastName(conv)
	case StatePassCollectFirstName:
		e.handlePassCollectFirstName(conv)
	case StatePassCollectPhone:
		e.handlePassCollectPhone(conv)
	case StatePassCollectBirthdate:
		e.handlePassCollectBirthdate(conv)
	case StatePassConfirm:
		e.handlePassConfirm(ctx, conv)
	case StateCommissionsMenu:
		e.handleCommissionsMenu(ctx, conv)
	case StateSimulatorChoice:
		e.handleSimulatorChoice(conv)
	case StateSimulatorCollect:
		e.handleSimulatorCollect(ctx, conv)
	default:
		// Unknown state: answer but leave the stored session untouched.
		e.send(ctx, phone, reply{text: msgUnknownState})
		return nil
	}

	encoded, err := conv.ctx.encode()
	if err != nil {
		return err
	}
	sess.Context = encoded
	if conv.ctx.Auth.LoggedIn() {
		id := conv.ctx.Auth.AgentID
		sess.AgentID = &id
	} else {
		sess.AgentID = nil
	}
	if err := e.store.Save(sess); err != nil {
		return fmt.Errorf("engine: save session: %w", err)
	}

	for _, r := range conv.replies {
		e.send(ctx, phone, r)
	}
	return nil
}

// send delivers one reply with its own timeout. Failures are logged, never
// propagated: the session state has already been committed.
func (e *Engine) send(ctx context.Context, phone string, r reply) {
	sendCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
	defer cancel()

	var err error
	switch {
	case len(r.sections) > 0:
		err = e.messenger.SendList(sendCtx, phone, r.text, r.buttonLabel, r.sections)
	case len(r.buttons) > 0:
		err = e.messenger.SendButtons(sendCtx, phone, r.text, r.buttons)
	default:
		err = e.messenger.SendText(sendCtx, phone, r.text)
	}
	if err != nil {
		log.Printf("engine: send to %s failed: %v", phone, err)
	}
}

// notify posts an ops event if a notifier is configured. Best-effort.
func (e *Engine) notify(ctx context.Context, ev Event) {
	if e.notifier == nil {
		return
	}
	nctx, cancel := context.WithTimeout(ctx, e.callTimeout)
	defer cancel()
	if err := e.notifier.Notify(nctx, ev); err != nil {
		log.Printf("engine: notify failed: %v", err)
	}
}

// maybeClassify lets free text at the main menu jump straight into a flow.
// It only runs when a classifier is configured, the session sits at the
// main menu, and the input is not already a menu choice.
func (e *Engine) maybeClassify(ctx context.Context, conv *conversation) {
	if e.classifier == nil || conv.state() != StateMainMenu {
		return
	}
	if len(conv.raw) <= 1 {
		return
	}
	switch conv.choice {
	case "0", "1", "2", "3":
		return
	}
	if strings.HasPrefix(conv.choice, "menu_") {
		return
	}

	cctx, cancel := context.WithTimeout(ctx, e.callTimeout)
	defer cancel()
	intent, err := e.classifier.Classify(cctx, conv.raw)
	if err != nil {
		log.Printf("engine: classify failed: %v", err)
		return
	}
	if intent == nil || intent.Confidence < e.minConfidence {
		return
	}
	switch intent.Name {
	case "SUBSCRIBE_PASS":
		conv.choice = "1"
	case "CHECK_COMMISSIONS":
		conv.choice = "2"
	case "RUN_SIMULATION":
		conv.choice = "3"
	}
}

// backendCtx derives a bounded context for one gateway call.
func (e *Engine) backendCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, e.callTimeout)
}

// showMainMenu resets to the main menu and queues its button message.
func (e *Engine) showMainMenu(conv *conversation) {
	conv.setState(StateMainMenu)
	conv.buttons(promptMainMenu(conv.ctx.Auth.AgentName), mainMenuButtons())
}
