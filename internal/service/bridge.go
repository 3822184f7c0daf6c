package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync/atomic"
	"time"

	"imbridge/internal/constants"
	"imbridge/internal/errors"
	"imbridge/internal/metrics"
	"imbridge/internal/tracing"
	"imbridge/pkg/imsdk"

	"github.com/panjf2000/ants/v2"
	"github.com/sirupsen/logrus"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// Plugin method names as registered with the host runtime
const (
	MethodInitSDK                = "initSDK"
	MethodLogin                  = "login"
	MethodLogout                 = "logout"
	MethodGetLoginStatus         = "getLoginStatus"
	MethodSendTextMessage        = "sendTextMessage"
	MethodGetAllConversationList = "getAllConversationList"
)

// UnknownMethodLabel replaces unregistered method names in metric labels and
// span names
const UnknownMethodLabel = "unknown"

// Invocation describes a completed plugin call
type Invocation struct {
	RequestID   string
	OperationID string
	Method      string
	Subject     string
	Result      Result
	Duration    time.Duration
	CompletedAt time.Time
}

// Observer is notified after each continuation has fired
type Observer interface {
	InvocationCompleted(ctx context.Context, inv Invocation)
}

// BridgeConfig configures the adapter
type BridgeConfig struct {
	PoolSize    int
	CallTimeout time.Duration
	Verbose     bool
}

// Bridge adapts plugin calls from the host runtime onto an imsdk.Client.
// Every call returns immediately and its continuation fires exactly once.
type Bridge struct {
	sdk         imsdk.Client
	pool        *ants.Pool
	logger      *logrus.Logger
	errLogger   *errors.Logger
	metrics     *metrics.Registry
	observer    Observer
	callTimeout time.Duration
	verbose     bool
	operations  map[string]operation
}

// BridgeOption customizes a Bridge
type BridgeOption func(*Bridge)

// WithObserver registers the observer notified after every call
func WithObserver(o Observer) BridgeOption {
	return func(b *Bridge) { b.observer = o }
}

// WithMetrics sets the registry that receives bridge metrics
func WithMetrics(r *metrics.Registry) BridgeOption {
	return func(b *Bridge) { b.metrics = r }
}

// prepared is a validated call ready to be delegated
type prepared struct {
	subject string
	run     func(ctx context.Context) (interface{}, error)
}

type operation func(params Params) (prepared, error)

// call tracks one invocation from entry to delivery
type call struct {
	ctx         context.Context
	method      string
	label       string
	requestID   string
	operationID string
	subject     string
	start       time.Time
	cont        Continuation
	span        oteltrace.Span
	delivered   atomic.Bool
}

// NewBridge creates the adapter. The SDK client is shared by every call.
func NewBridge(sdk imsdk.Client, cfg BridgeConfig, logger *logrus.Logger, opts ...BridgeOption) (*Bridge, error) {
	if sdk == nil {
		return nil, fmt.Errorf("sdk client is required")
	}
	if logger == nil {
		logger = logrus.New()
	}
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = constants.DefaultPoolSize
	}

	b := &Bridge{
		sdk:         sdk,
		logger:      logger,
		errLogger:   errors.NewLogger(logger),
		metrics:     metrics.GetRegistry(),
		callTimeout: cfg.CallTimeout,
		verbose:     cfg.Verbose,
	}
	for _, opt := range opts {
		opt(b)
	}

	pool, err := ants.NewPool(cfg.PoolSize,
		ants.WithNonblocking(true),
		ants.WithPanicHandler(func(r interface{}) {
			logger.WithField("panic", r).Error("Bridge worker panicked")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}
	b.pool = pool

	b.operations = map[string]operation{
		MethodInitSDK:                b.prepareInitSDK,
		MethodLogin:                  b.prepareLogin,
		MethodLogout:                 b.prepareLogout,
		MethodGetLoginStatus:         b.prepareGetLoginStatus,
		MethodSendTextMessage:        b.prepareSendTextMessage,
		MethodGetAllConversationList: b.prepareGetAllConversationList,
	}

	return b, nil
}

// MethodLabel returns method when it is registered and UnknownMethodLabel
// otherwise. Host-supplied names are unbounded and never used as labels.
func (b *Bridge) MethodLabel(method string) string {
	if _, ok := b.operations[method]; ok {
		return method
	}
	return UnknownMethodLabel
}

// Methods returns the plugin method names in registration order
func (b *Bridge) Methods() []string {
	return []string{
		MethodInitSDK,
		MethodLogin,
		MethodLogout,
		MethodGetLoginStatus,
		MethodSendTextMessage,
		MethodGetAllConversationList,
	}
}

// InitSDK initializes the SDK with the host-supplied configuration
func (b *Bridge) InitSDK(ctx context.Context, config Params, cont Continuation) {
	b.Invoke(ctx, MethodInitSDK, config, cont)
}

// Login authenticates userID with token
func (b *Bridge) Login(ctx context.Context, params Params, cont Continuation) {
	b.Invoke(ctx, MethodLogin, params, cont)
}

// Logout ends the current session
func (b *Bridge) Logout(ctx context.Context, cont Continuation) {
	b.Invoke(ctx, MethodLogout, nil, cont)
}

// GetLoginStatus reports the SDK's login status
func (b *Bridge) GetLoginStatus(ctx context.Context, cont Continuation) {
	b.Invoke(ctx, MethodGetLoginStatus, nil, cont)
}

// SendTextMessage sends a text message to a user or a group
func (b *Bridge) SendTextMessage(ctx context.Context, params Params, cont Continuation) {
	b.Invoke(ctx, MethodSendTextMessage, params, cont)
}

// GetAllConversationList lists every conversation known to the SDK
func (b *Bridge) GetAllConversationList(ctx context.Context, cont Continuation) {
	b.Invoke(ctx, MethodGetAllConversationList, nil, cont)
}

// Call invokes method and returns a channel that receives its one result
func (b *Bridge) Call(ctx context.Context, method string, params Params) <-chan Result {
	ch := make(chan Result, 1)
	b.Invoke(ctx, method, params, func(r Result) { ch <- r })
	return ch
}

// Invoke dispatches a plugin call by name. It returns immediately; cont is
// invoked exactly once from a bridge goroutine. The caller's context supplies
// request-scoped values but its cancellation is ignored.
func (b *Bridge) Invoke(ctx context.Context, method string, params Params, cont Continuation) {
	if ctx == nil {
		ctx = context.Background()
	}
	if cont == nil {
		cont = func(Result) {}
	}

	ctx, requestID := tracing.EnsureRequestID(context.WithoutCancel(ctx))
	operationID := tracing.GenerateOperationID()
	ctx = imsdk.WithOperationID(ctx, operationID)
	ctx = errors.WithRequestContext(ctx, requestID, method)

	c := &call{
		ctx:         ctx,
		method:      method,
		label:       b.MethodLabel(method),
		requestID:   requestID,
		operationID: operationID,
		start:       time.Now(),
		cont:        cont,
	}
	args := params.Clone()

	b.metrics.RecordInvocation(c.label)
	b.logger.WithFields(logrus.Fields{
		LogFieldRequestID:   requestID,
		LogFieldOperationID: operationID,
		LogFieldMethod:      method,
	}).Debug("Plugin call received")

	if err := b.pool.Submit(func() { b.execute(c, args) }); err != nil {
		b.metrics.IncrementCounter(metrics.PoolRejectedTotal, map[string]string{"method": c.label}, "Plugin calls rejected by a saturated or closed pool")
		failure := errors.NewUnexpectedError(method, fmt.Errorf("bridge unavailable: %w", err))
		go b.deliver(c, Failure(failure), failure)
	}
}

// execute validates, delegates and delivers one call on a pool worker
func (b *Bridge) execute(c *call, params Params) {
	ctx, span := tracing.StartInvocationSpan(c.ctx, c.label, c.operationID)
	c.ctx = ctx
	c.span = span

	op, ok := b.operations[c.method]
	if !ok {
		err := errors.NewUnknownMethodError(c.method)
		b.deliver(c, Failure(err), err)
		return
	}

	p, err := op(params)
	if err != nil {
		b.deliver(c, Failure(err), err)
		return
	}
	c.subject = p.subject

	sdkCtx := ctx
	if b.callTimeout > 0 {
		var cancel context.CancelFunc
		sdkCtx, cancel = context.WithTimeout(ctx, b.callTimeout)
		defer cancel()

		timer := time.AfterFunc(b.callTimeout, func() {
			timeoutErr := errors.NewTimeoutError(c.method, b.callTimeout.String())
			b.deliver(c, Failure(timeoutErr), timeoutErr)
		})
		defer timer.Stop()
	}

	data, err := b.guard(sdkCtx, c.method, p.run)
	var res Result
	if err != nil {
		res = Failure(err)
	} else {
		res = Success(data)
	}

	if !b.deliver(c, res, err) {
		b.metrics.IncrementCounter(metrics.LateResultsTotal, map[string]string{"method": c.label}, "SDK answers discarded after the call timed out")
		b.logger.WithFields(logrus.Fields{
			LogFieldRequestID:   c.requestID,
			LogFieldOperationID: c.operationID,
			LogFieldMethod:      c.method,
			LogFieldResultCode:  res.Code,
			LogFieldDuration:    time.Since(c.start).Milliseconds(),
		}).Warn("Discarding SDK answer that arrived after the call timed out")
	}
}

// guard runs an SDK call, converting SDK failures and panics into bridge errors
func (b *Bridge) guard(ctx context.Context, method string, run func(context.Context) (interface{}, error)) (data interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			data = nil
			err = errors.NewUnexpectedError(method, fmt.Errorf("sdk panic: %v", r))
		}
	}()

	data, err = run(ctx)
	if err == nil {
		return data, nil
	}
	if _, isAppErr := errors.As(err); isAppErr {
		return nil, err
	}
	if stderrors.Is(err, context.DeadlineExceeded) && b.callTimeout > 0 {
		return nil, errors.NewTimeoutError(method, b.callTimeout.String())
	}
	return nil, errors.NewDelegationError(method, err)
}

// deliver hands res to the continuation if the call has not been answered
// yet. It reports whether this call to deliver was the one that answered.
func (b *Bridge) deliver(c *call, res Result, err error) bool {
	if !c.delivered.CompareAndSwap(false, true) {
		return false
	}

	duration := time.Since(c.start)
	b.metrics.RecordResult(c.label, res.ErrorKind, duration)
	if c.span != nil {
		tracing.EndInvocationSpan(c.span, res.Code, res.ErrorKind, err)
	}

	verbose := b.verbose || IsVerboseLogging(c.ctx)
	fields := SafeFields(verbose, logrus.Fields{
		LogFieldRequestID:   c.requestID,
		LogFieldOperationID: c.operationID,
		LogFieldMethod:      c.method,
		LogFieldSubject:     c.subject,
		LogFieldResultCode:  res.Code,
		LogFieldDuration:    duration.Milliseconds(),
	})
	if err != nil {
		b.errLogger.LogFailure(err, "Plugin call failed", fields)
	} else {
		b.logger.WithFields(fields).Info("Plugin call completed")
	}

	b.invokeContinuation(c, res)

	if b.observer != nil {
		b.notifyObserver(c, res, duration)
	}
	return true
}

func (b *Bridge) invokeContinuation(c *call, res Result) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.WithFields(logrus.Fields{
				LogFieldRequestID: c.requestID,
				LogFieldMethod:    c.method,
				"panic":           r,
			}).Error("Continuation panicked")
		}
	}()
	c.cont(res)
}

func (b *Bridge) notifyObserver(c *call, res Result, duration time.Duration) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.WithFields(logrus.Fields{
				LogFieldRequestID: c.requestID,
				LogFieldMethod:    c.method,
				"panic":           r,
			}).Error("Invocation observer panicked")
		}
	}()
	b.observer.InvocationCompleted(c.ctx, Invocation{
		RequestID:   c.requestID,
		OperationID: c.operationID,
		Method:      c.method,
		Subject:     c.subject,
		Result:      res,
		Duration:    duration,
		CompletedAt: time.Now(),
	})
}

// Running returns the number of calls currently executing
func (b *Bridge) Running() int {
	return b.pool.Running()
}

// Close stops accepting calls and waits up to timeout for running calls
func (b *Bridge) Close(timeout time.Duration) error {
	if err := b.pool.ReleaseTimeout(timeout); err != nil {
		return fmt.Errorf("bridge did not drain within %s: %w", timeout, err)
	}
	return nil
}

func (b *Bridge) prepareInitSDK(params Params) (prepared, error) {
	cfg, err := ParseInitConfig(params)
	if err != nil {
		return prepared{}, err
	}
	return prepared{
		subject: cfg.APIAddr,
		run: func(ctx context.Context) (interface{}, error) {
			info, err := b.sdk.InitSDK(ctx, cfg)
			if err != nil || info == nil {
				return nil, err
			}
			return info, nil
		},
	}, nil
}

func (b *Bridge) prepareLogin(params Params) (prepared, error) {
	req, err := ParseLogin(params)
	if err != nil {
		return prepared{}, err
	}
	return prepared{
		subject: req.UserID,
		run: func(ctx context.Context) (interface{}, error) {
			session, err := b.sdk.Login(ctx, req.UserID, req.Token)
			if err != nil {
				return nil, err
			}
			if session == nil {
				session = &imsdk.Session{UserID: req.UserID, Status: imsdk.LoginStatusLoggedIn}
			}
			return session, nil
		},
	}, nil
}

func (b *Bridge) prepareLogout(Params) (prepared, error) {
	return prepared{
		run: func(ctx context.Context) (interface{}, error) {
			return nil, b.sdk.Logout(ctx)
		},
	}, nil
}

func (b *Bridge) prepareGetLoginStatus(Params) (prepared, error) {
	return prepared{
		run: func(ctx context.Context) (interface{}, error) {
			status, err := b.sdk.GetLoginStatus(ctx)
			if err != nil {
				return nil, err
			}
			return status, nil
		},
	}, nil
}

func (b *Bridge) prepareSendTextMessage(params Params) (prepared, error) {
	msg, err := ParseTextMessage(params)
	if err != nil {
		return prepared{}, err
	}
	return prepared{
		subject: msg.Target(),
		run: func(ctx context.Context) (interface{}, error) {
			ctx = imsdk.WithProgress(ctx, b.logProgress(ctx))
			sent, err := b.sdk.SendTextMessage(ctx, msg)
			if err != nil || sent == nil {
				return nil, err
			}
			return sent, nil
		},
	}, nil
}

// logProgress returns a hook that logs send progress reported by the SDK
func (b *Bridge) logProgress(ctx context.Context) imsdk.ProgressFunc {
	entry := b.logger.WithFields(logrus.Fields{
		LogFieldRequestID:   tracing.GetRequestID(ctx),
		LogFieldOperationID: imsdk.OperationID(ctx),
		LogFieldMethod:      MethodSendTextMessage,
	})
	return func(progress int64) {
		entry.WithField(LogFieldProgress, progress).Debug("Send progress")
	}
}

func (b *Bridge) prepareGetAllConversationList(Params) (prepared, error) {
	return prepared{
		run: func(ctx context.Context) (interface{}, error) {
			conversations, err := b.sdk.GetAllConversationList(ctx)
			if err != nil {
				return nil, err
			}
			if conversations == nil {
				conversations = []imsdk.Conversation{}
			}
			return conversations, nil
		},
	}, nil
}
