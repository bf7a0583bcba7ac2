// Package controller implements the Controller Base & Lifecycle: the
// state machine that runs inside the injector process, drives a
// Strategy to completion, and exchanges the five IPC messages with the
// Starter. Grounded on BaseFaultController/BaseFaultControllerStarter in
// original_source/mininet/fault_controllers/BaseFaultController.py,
// translated from asyncio tasks coordinated by a busy-poll pipe listener
// to goroutines coordinated by a real blocking read and
// context.Context cancellation — the Go os.Pipe read blocks natively,
// so the "await asyncio.sleep(0); continue" busy-poll in
// listen_for_pipe_messages has no Go equivalent to carry forward.
package controller

import (
	"context"
	"fmt"
	"sync"

	"github.com/netfault/faultctl/pkg/faultlog"
	"github.com/netfault/faultctl/pkg/ipc"
	"github.com/netfault/faultctl/pkg/logging"
	"github.com/netfault/faultctl/pkg/strategy"
)

// advancer is implemented by strategies that respond to the
// "start next run" message (RandomLinks, MostUsedLink). ConfigFile does
// not implement it; receiving MsgStartNextRun while running ConfigFile
// is a no-op, matching the original's "calling start_next_run() will
// just not do anything if the mode is automatic, or if no mode is
// supported."
type advancer interface {
	Advance()
}

// Controller runs one Strategy to completion inside the injector
// process, reporting SETUP_DONE/INJECTION_DONE to the Starter and
// reacting to SHUTDOWN/START_NEXT_RUN as they arrive.
type Controller struct {
	Strategy    strategy.Strategy
	Channel     *ipc.Channel
	Logger      *logging.Logger
	FaultLogger *faultlog.Logger // nil when no 'log:' key was configured

	mu     sync.Mutex
	active bool
}

// New constructs a Controller. Construction is assumed to happen after
// config resolution (the Go home of `_configByFile`/`_config_logger` is
// the Starter's config-resolution step, not this package).
func New(strat strategy.Strategy, channel *ipc.Channel, logger *logging.Logger, faultLogger *faultlog.Logger) *Controller {
	return &Controller{Strategy: strat, Channel: channel, Logger: logger, FaultLogger: faultLogger}
}

// SignalSetupDone tells the Starter that configuration has finished and
// the controller is ready to receive the start-injecting message.
func (c *Controller) SignalSetupDone() error {
	return c.Channel.Send(ipc.MsgSetupDone)
}

// IsActive reports whether the controller is currently running a
// strategy.
func (c *Controller) IsActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

func (c *Controller) setActive(v bool) {
	c.mu.Lock()
	c.active = v
	c.mu.Unlock()
}

// WaitUntilGo blocks for the Starter's start-injecting message, then
// runs the strategy to completion. It returns once the controller has
// fully shut down (strategy finished or SHUTDOWN received).
func (c *Controller) WaitUntilGo(ctx context.Context) error {
	if c.Logger != nil {
		c.Logger.Info("controller waiting for go command")
	}
	msg, err := c.Channel.Recv()
	if err != nil {
		return fmt.Errorf("failed to receive go signal: %w", err)
	}
	if msg != ipc.MsgStartInjecting {
		if c.Logger != nil {
			c.Logger.Error("received unexpected message while waiting for go", "message", msg)
		}
		return fmt.Errorf("unexpected message while waiting for go signal: %q", msg)
	}
	return c.run(ctx)
}

func (c *Controller) run(ctx context.Context) error {
	if c.Logger != nil {
		c.Logger.Debug("initiating faults")
	}
	c.setActive(true)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	if c.FaultLogger != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.FaultLogger.Run(runCtx)
		}()
	}

	listenerDone := make(chan struct{})
	go func() {
		defer close(listenerDone)
		c.listenForPipeMessages(cancel)
	}()

	err := c.Strategy.Run(runCtx)

	c.deactivateAndSendDone(cancel)
	<-listenerDone
	wg.Wait()
	return err
}

// listenForPipeMessages is the Go home of listen_for_pipe_messages: it
// blocks on the next frame from the Starter and reacts to SHUTDOWN
// (cancel the run and return) or START_NEXT_RUN (forward to the
// strategy's Advance, if it has one). Returning from this loop — either
// because SHUTDOWN arrived or because the read side was closed by
// deactivateAndSendDone — is this port's replacement for the original's
// self-addressed shutdown message.
func (c *Controller) listenForPipeMessages(cancel context.CancelFunc) {
	if c.Logger != nil {
		c.Logger.Debug("controller listening for pipe messages")
	}
	for {
		msg, err := c.Channel.Recv()
		if err != nil {
			return
		}
		switch msg {
		case ipc.MsgShutdown:
			if c.Logger != nil {
				c.Logger.Info("controller received shutdown message")
			}
			c.setActive(false)
			cancel()
			return
		case ipc.MsgStartNextRun:
			if c.Logger != nil {
				c.Logger.Debug("controller received start-next-run message")
			}
			if a, ok := c.Strategy.(advancer); ok {
				a.Advance()
			}
		default:
			if c.Logger != nil {
				c.Logger.Error("controller received unexpected message", "message", msg)
			}
		}
	}
}

// deactivateAndSendDone tells the Starter the controller is finished and
// tears down the fault logger and pipe listener.
func (c *Controller) deactivateAndSendDone(cancel context.CancelFunc) {
	if c.Logger != nil {
		c.Logger.Debug("controller initiating deactivation")
	}
	c.setActive(false)
	cancel()

	if err := c.Channel.Send(ipc.MsgInjectionDone); err != nil && c.Logger != nil {
		c.Logger.Warn("failed to send injection-done message", "error", err.Error())
	}

	if c.FaultLogger != nil {
		c.FaultLogger.Stop()
	}

	if err := c.Channel.CloseRecv(); err != nil && c.Logger != nil {
		c.Logger.Warn("failed to close pipe listener", "error", err.Error())
	}
}
