package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/OccupiedNine220/radiovecher/internal/adapter/metrics"
	"github.com/OccupiedNine220/radiovecher/internal/domain"
	"github.com/OccupiedNine220/radiovecher/internal/notify"
	"github.com/OccupiedNine220/radiovecher/internal/platform/correlation"
	apperrors "github.com/OccupiedNine220/radiovecher/internal/platform/errors"
	"github.com/OccupiedNine220/radiovecher/internal/platform/logging"
	"github.com/OccupiedNine220/radiovecher/internal/view"
	"github.com/jonboulle/clockwork"
)

const commandBuffer = 64

// ErrStopped is returned by Execute once the controller has been stopped.
var ErrStopped = errors.New("controller stopped")

// PushHub is where a controller registers for push events.
type PushHub interface {
	Subscribe(sub domain.PushSubscriber) (unsubscribe func())
}

// Deps are the collaborators shared by all controllers.
type Deps struct {
	API      domain.BotAPI
	Radios   domain.RadioSource
	Hub      PushHub
	Renderer *view.Renderer
	Clock    clockwork.Clock
	Metrics  *metrics.CommandMetrics
}

// --- Command types ---

type ctrlCmd interface{ ctrlCmd() }

type cmdQueue struct{ entries []domain.QueueEntry }

func (cmdQueue) ctrlCmd() {}

type cmdNowPlaying struct{ track *domain.NowPlaying }

func (cmdNowPlaying) ctrlCmd() {}

type cmdGetSession struct{ replyCh chan Session }

func (cmdGetSession) ctrlCmd() {}

type cmdApply struct {
	ctx     context.Context
	action  Action
	cmd     Command
	res     *domain.CommandResult
	err     error
	replyCh chan error
}

func (cmdApply) ctrlCmd() {}

type cmdReload struct{ timer clockwork.Timer }

func (cmdReload) ctrlCmd() {}

type cmdReloaded struct {
	state *domain.PlayerState
	err   error
}

func (cmdReloaded) ctrlCmd() {}

type cmdPatches struct{ patches []view.Patch }

func (cmdPatches) ctrlCmd() {}

type cmdStop struct{}

func (cmdStop) ctrlCmd() {}

// --- Controller ---

// Controller drives one open page. A single goroutine owns the session and
// processes commands one at a time; network calls run elsewhere and post
// their results back. Each render replaces a whole container, so a reload
// and a push update may land in either order.
type Controller struct {
	deps     Deps
	serverID string
	sink     notify.Sink
	emitter  *notify.Emitter
	logger   *slog.Logger

	cmdCh chan ctrlCmd
	done  chan struct{}

	// ctx is cancelled on Stop and aborts in-flight requests.
	ctx    context.Context
	cancel context.CancelFunc

	// Owned by run.
	session     Session
	timers      map[clockwork.Timer]struct{}
	unsubscribe func()
}

var _ domain.PushSubscriber = (*Controller)(nil)

// NewController creates a controller for the page at path. Patches are
// delivered to sink, which must not block.
func NewController(path string, deps Deps, sink notify.Sink) *Controller {
	session := NewSession(path)
	ctx, cancel := context.WithCancel(context.Background())

	logger := logging.Logger
	if session.HasServer() {
		logger = logging.WithServer(session.ActiveServerID)
	}

	return &Controller{
		deps:     deps,
		serverID: session.ActiveServerID,
		sink:     sink,
		emitter:  notify.NewEmitter(deps.Renderer, sink, deps.Clock, deps.Metrics),
		logger:   logger,
		cmdCh:    make(chan ctrlCmd, commandBuffer),
		done:     make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
		session:  session,
		timers:   make(map[clockwork.Timer]struct{}),
	}
}

// Start subscribes to push events, kicks off the initial loads and starts the
// actor goroutine.
func (c *Controller) Start() {
	if c.deps.Metrics != nil {
		c.deps.Metrics.ActiveSessions.Inc()
	}
	c.unsubscribe = c.deps.Hub.Subscribe(c)

	if c.session.HasServer() {
		c.post(cmdReload{})
	} else {
		go c.loadServers()
		go c.loadOrders()
	}
	go c.loadRadios()

	go c.run()
}

// Stop cancels pending reloads and in-flight requests and waits for the actor
// to exit. It is safe to call more than once.
func (c *Controller) Stop() {
	select {
	case c.cmdCh <- cmdStop{}:
	case <-c.done:
	}
	<-c.done
}

// Done is closed once the controller has stopped.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Session returns a snapshot of the page's session state.
func (c *Controller) Session() Session {
	reply := make(chan Session, 1)
	select {
	case c.cmdCh <- cmdGetSession{replyCh: reply}:
	case <-c.done:
		return c.session
	}
	select {
	case s := <-reply:
		return s
	case <-c.done:
		return c.session
	}
}

// OnQueueUpdate applies a push update if it carries this page's server.
func (c *Controller) OnQueueUpdate(update domain.QueueUpdate) {
	if c.serverID == "" {
		return
	}
	entries, ok := update[c.serverID]
	if !ok {
		return
	}
	c.tryPost(cmdQueue{entries: entries})
}

// OnNowPlayingUpdate applies a push update if it carries this page's server.
// A present key with a null track means the bot left the voice channel.
func (c *Controller) OnNowPlayingUpdate(update domain.NowPlayingUpdate) {
	if c.serverID == "" {
		return
	}
	track, ok := update[c.serverID]
	if !ok {
		return
	}
	c.tryPost(cmdNowPlaying{track: track})
}

// Execute runs one user action and returns once its outcome has been shown.
// Validation failures return before any request and show nothing.
func (c *Controller) Execute(ctx context.Context, cmd Command) error {
	ctx = correlation.Ensure(ctx)

	if cmd.Action == ActionDismiss {
		c.emitter.Dismiss(cmd.Toast)
		return nil
	}
	if c.ctx.Err() != nil {
		return ErrStopped
	}

	session := c.Session()
	action := resolve(cmd.Action, session.IsPlaying)
	spec, ok := commandSpecs[action]
	if !ok {
		return invalid(cmd.Action, domain.ErrUnknownAction)
	}
	if !session.HasServer() {
		c.count(action, metrics.OutcomeSkipped)
		return invalid(action, domain.ErrNoActiveServer)
	}
	if spec.validate != nil && !spec.validate(cmd) {
		c.count(action, metrics.OutcomeSkipped)
		return invalid(action, domain.ErrInvalidCommand)
	}

	reqCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(c.ctx, cancel)
	defer stop()

	res, err := spec.call(reqCtx, c.deps.API, session.ActiveServerID, cmd)

	reply := make(chan error, 1)
	if !c.post(cmdApply{ctx: ctx, action: action, cmd: cmd, res: res, err: err, replyCh: reply}) {
		return ErrStopped
	}
	select {
	case err := <-reply:
		return err
	case <-c.done:
		return ErrStopped
	}
}

func invalid(action Action, cause error) error {
	e := apperrors.ValidationError("command not sent").WithContext("action", string(action))
	e.Cause = cause
	return e
}

// post delivers a command to the actor, blocking until it is accepted or the
// controller stops.
func (c *Controller) post(cmd ctrlCmd) bool {
	select {
	case c.cmdCh <- cmd:
		return true
	case <-c.done:
		return false
	}
}

// tryPost is used on the push path, which must never block the listener.
func (c *Controller) tryPost(cmd ctrlCmd) {
	select {
	case c.cmdCh <- cmd:
	case <-c.done:
	default:
		c.logger.Warn("Controller busy, dropping push update")
	}
}

func (c *Controller) run() {
	defer close(c.done)

	for cmd := range c.cmdCh {
		switch cmd := cmd.(type) {
		case cmdQueue:
			c.renderQueue(cmd.entries)
		case cmdNowPlaying:
			c.renderNowPlaying(cmd.track)
		case cmdGetSession:
			cmd.replyCh <- c.session
		case cmdApply:
			cmd.replyCh <- c.apply(cmd)
		case cmdReload:
			if cmd.timer != nil {
				if _, pending := c.timers[cmd.timer]; !pending {
					continue
				}
				delete(c.timers, cmd.timer)
			}
			go c.reload()
		case cmdReloaded:
			c.handleReloaded(cmd.state, cmd.err)
		case cmdPatches:
			c.sink(cmd.patches)
		case cmdStop:
			c.shutdown()
			return
		}
	}
}

func (c *Controller) shutdown() {
	if c.unsubscribe != nil {
		c.unsubscribe()
	}
	for t := range c.timers {
		t.Stop()
	}
	clear(c.timers)
	c.cancel()
	c.emitter.Close()
	if c.deps.Metrics != nil {
		c.deps.Metrics.ActiveSessions.Dec()
	}
}

// apply handles the outcome of a command on the actor goroutine.
func (c *Controller) apply(cmd cmdApply) error {
	spec := commandSpecs[cmd.action]
	logger := c.logger.With("action", string(cmd.action))

	if cmd.err != nil {
		c.count(cmd.action, metrics.OutcomeError)
		logger.ErrorContext(cmd.ctx, "Command failed", "error", cmd.err)
		c.emitter.Show(view.ToastError, spec.network)
		if apperrors.AsStructuredError(cmd.err).Type == apperrors.TypeExternal {
			return cmd.err
		}
		return apperrors.ExternalError(spec.network, cmd.err)
	}

	if !cmd.res.Success {
		reason := cmd.res.Reason()
		if reason == "" {
			reason = spec.fallback
		}
		c.count(cmd.action, metrics.OutcomeRejected)
		logger.WarnContext(cmd.ctx, "Command rejected by bot", "reason", reason)
		c.emitter.Show(view.ToastError, "Error: "+reason)
		return apperrors.RejectedError(reason).WithContext("action", string(cmd.action))
	}

	c.count(cmd.action, metrics.OutcomeOK)
	logger.DebugContext(cmd.ctx, "Command succeeded")

	if spec.setPlaying != nil {
		c.session.IsPlaying = *spec.setPlaying
		c.render(c.deps.Renderer.PlayPauseIcon(c.session.IsPlaying))
	}
	c.emitter.Show(spec.toastKind, spec.success(cmd.cmd, cmd.res))
	if spec.reload > 0 {
		c.scheduleReload(spec.reload)
	}
	return nil
}

func (c *Controller) scheduleReload(after time.Duration) {
	var timer clockwork.Timer
	timer = c.deps.Clock.AfterFunc(after, func() {
		c.tryPostTimer(cmdReload{timer: timer})
	})
	c.timers[timer] = struct{}{}
}

// tryPostTimer blocks like post; a reload must not be lost to a full buffer.
func (c *Controller) tryPostTimer(cmd cmdReload) {
	select {
	case c.cmdCh <- cmd:
	case <-c.done:
	}
}

// reload fetches the server-scoped state and posts it back.
func (c *Controller) reload() {
	state, err := c.deps.API.PlayerState(c.ctx, c.serverID)
	c.post(cmdReloaded{state: state, err: err})
}

func (c *Controller) handleReloaded(state *domain.PlayerState, err error) {
	if err != nil {
		if c.ctx.Err() == nil {
			c.logger.Warn("Failed to reload player state", "error", err)
		}
		c.countReload(metrics.OutcomeError)
		return
	}
	c.countReload(metrics.OutcomeOK)
	c.renderQueue(state.Queue)
	c.renderNowPlaying(state.NowPlaying())
}

func (c *Controller) renderQueue(entries []domain.QueueEntry) {
	c.render(c.deps.Renderer.Queue(entries))
}

func (c *Controller) renderNowPlaying(track *domain.NowPlaying) {
	c.render(c.deps.Renderer.NowPlaying(track, c.session.IsPlaying))
}

func (c *Controller) render(patches []view.Patch, err error) {
	if err != nil {
		c.logger.Error("Failed to render view", "error", err)
		return
	}
	c.sink(patches)
}

// --- Initial loads ---

func (c *Controller) loadServers() {
	servers, err := c.deps.API.ListServers(c.ctx)
	if err != nil {
		if c.ctx.Err() == nil {
			c.logger.Warn("Failed to load server list", "error", err)
			c.emitter.Show(view.ToastError, "Failed to load server list")
		}
		return
	}
	c.postRender(c.deps.Renderer.ServerList(servers))
}

func (c *Controller) loadOrders() {
	orders, err := c.deps.API.RecentOrders(c.ctx)
	if err != nil {
		if c.ctx.Err() == nil {
			c.logger.Warn("Failed to load recent orders", "error", err)
		}
		c.postRender(c.deps.Renderer.OrdersFailed())
		return
	}
	c.postRender(c.deps.Renderer.Orders(orders))
}

func (c *Controller) loadRadios() {
	radios, err := c.deps.Radios.ListRadios(c.ctx)
	if err != nil {
		if c.ctx.Err() == nil {
			c.logger.Warn("Failed to load radio stations", "error", err)
		}
		c.postRender(c.deps.Renderer.RadiosFailed())
		return
	}
	c.postRender(c.deps.Renderer.Radios(radios))
}

// postRender hands pre-rendered patches to the actor so that every container
// write goes through one goroutine.
func (c *Controller) postRender(patches []view.Patch, err error) {
	if err != nil {
		c.logger.Error("Failed to render view", "error", err)
		return
	}
	c.post(cmdPatches{patches: patches})
}

func (c *Controller) count(action Action, outcome string) {
	if c.deps.Metrics != nil {
		c.deps.Metrics.CommandsTotal.WithLabelValues(string(action), outcome).Inc()
	}
}

func (c *Controller) countReload(outcome string) {
	if c.deps.Metrics != nil {
		c.deps.Metrics.ReloadsTotal.WithLabelValues(outcome).Inc()
	}
}
