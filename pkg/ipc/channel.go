package ipc

import (
	"fmt"
	"os"
)

// Channel is one side's full-duplex view of the Starter/Controller
// connection: Send writes to the peer, Recv blocks for the peer's next
// frame.
type Channel struct {
	send *Writer
	recv *Reader
}

// Send writes msg to the peer.
func (c *Channel) Send(msg string) error { return c.send.Send(msg) }

// Recv blocks for the peer's next frame.
func (c *Channel) Recv() (string, error) { return c.recv.Recv() }

// CloseRecv closes only the read side, the way the Controller unblocks
// its own message listener once it has nothing left to wait for,
// without needing to send itself a message over the (unidirectional)
// pipe the way the originating design's self-addressed SHUTDOWN message
// does.
func (c *Channel) CloseRecv() error { return c.recv.Close() }

// Close closes both sides.
func (c *Channel) Close() error {
	sendErr := c.send.Close()
	recvErr := c.recv.Close()
	if sendErr != nil {
		return sendErr
	}
	return recvErr
}

// Pipes holds the four file descriptors that make up a Starter<->
// Controller connection: two os.Pipe() pairs, one per direction. The
// Controller-side files are the ones a spawned injector subprocess
// inherits via exec.Cmd.ExtraFiles.
type Pipes struct {
	StarterSend     *os.File // starter writes here
	ControllerRecv  *os.File // controller reads here (same pipe as StarterSend)
	ControllerSend  *os.File // controller writes here
	StarterRecv     *os.File // starter reads here (same pipe as ControllerSend)
}

// NewPipes allocates both directions of a fresh Starter<->Controller
// connection.
func NewPipes() (*Pipes, error) {
	controllerRecv, starterSend, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create starter->controller pipe: %w", err)
	}
	starterRecv, controllerSend, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create controller->starter pipe: %w", err)
	}

	return &Pipes{
		StarterSend:    starterSend,
		ControllerRecv: controllerRecv,
		ControllerSend: controllerSend,
		StarterRecv:    starterRecv,
	}, nil
}

// StarterChannel returns the Starter's view of the connection.
func (p *Pipes) StarterChannel() *Channel {
	return &Channel{send: NewWriter(p.StarterSend), recv: NewReader(p.StarterRecv)}
}

// ControllerChannel returns the Controller's view of the connection, for
// use when the Controller runs in the same process (e.g. under test, or
// a non-subprocess deployment). When the Controller runs as a spawned
// subprocess, use ControllerFiles + ChannelFromFiles in the child
// instead.
func (p *Pipes) ControllerChannel() *Channel {
	return &Channel{send: NewWriter(p.ControllerSend), recv: NewReader(p.ControllerRecv)}
}

// ControllerFiles returns the two files (recv, send) the Controller side
// needs, in the order a caller should place them into exec.Cmd.ExtraFiles
// when spawning the injector as a subprocess (recv first, send second).
func (p *Pipes) ControllerFiles() (recv, send *os.File) {
	return p.ControllerRecv, p.ControllerSend
}

// ChannelFromFiles builds a Channel from an already-open (recv, send)
// file pair — the shape a spawned injector subprocess reconstructs from
// its inherited ExtraFiles (conventionally fd 3 and fd 4).
func ChannelFromFiles(recv, send *os.File) *Channel {
	return &Channel{send: NewWriter(send), recv: NewReader(recv)}
}
