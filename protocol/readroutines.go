package protocol

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sireader/core/card"
	"github.com/sireader/core/frame"
)

func (d *Driver) send(ctx context.Context, f frame.Frame) error {
	d.sink.OnLog(LogSend, f.Hex())
	if err := d.port.Write(ctx, f.Bytes()); err != nil {
		return &PortFailureError{Err: err}
	}
	return nil
}

// sendAndExpectFrame sends req and waits up to timeout for a reply whose
// command byte is expectedCmd.
func (d *Driver) sendAndExpectFrame(ctx context.Context, req frame.Frame, expectedCmd byte, timeout time.Duration) (frame.Frame, error) {
	if err := d.send(ctx, req); err != nil {
		return frame.Frame{}, err
	}
	resp, err := d.queue.Take(ctx, timeout)
	if err != nil {
		return frame.Frame{}, err
	}
	if resp.Command() != expectedCmd {
		return resp, &InvalidMessageError{Received: resp, Expected: expectedCmd, HasExpected: true}
	}
	return resp, nil
}

func (d *Driver) sendAndExpect(ctx context.Context, req frame.Frame, expectedCmd byte, timeout time.Duration) error {
	_, err := d.sendAndExpectFrame(ctx, req, expectedCmd, timeout)
	return err
}

// readAll sends each of commands in turn, collecting one reply per command
// (matched by the request's own command byte, since block-read replies echo
// the command they answer).
func (d *Driver) readAll(ctx context.Context, commands []frame.Frame) ([]frame.Frame, error) {
	out := make([]frame.Frame, 0, len(commands))
	for _, req := range commands {
		resp, err := d.sendAndExpectFrame(ctx, req, req.Command(), requestTimeout)
		if err != nil {
			return nil, err
		}
		out = append(out, resp)
	}
	return out, nil
}

// readMultiple sends the first command, inspects the punch count at
// nbPunchesOffset in its reply to work out how many further 32-punch
// blocks are needed, then reads only that many of the remaining commands.
func (d *Driver) readMultiple(ctx context.Context, commands []frame.Frame, nbPunchesOffset int) ([]frame.Frame, error) {
	first := commands[0]
	resp, err := d.sendAndExpectFrame(ctx, first, first.Command(), requestTimeout)
	if err != nil {
		return nil, err
	}

	nb := int(resp.ByteAt(nbPunchesOffset))
	dataBlocks := nb / 32
	if nb%32 != 0 {
		dataBlocks++
	}
	total := 1 + dataBlocks
	if total > len(commands) {
		total = len(commands)
	}

	out := make([]frame.Frame, 0, total)
	out = append(out, resp)
	for _, req := range commands[1:total] {
		r, err := d.sendAndExpectFrame(ctx, req, req.Command(), requestTimeout)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func blockBytes(f frame.Frame, from, to int) ([]byte, error) {
	raw := f.Bytes()
	if len(raw) < to {
		return nil, fmt.Errorf("response too short (%d bytes, need %d)", len(raw), to)
	}
	return raw[from:to], nil
}

func (d *Driver) retrieveCard5(ctx context.Context) error {
	resp, err := d.sendAndExpectFrame(ctx, frame.ReadCard5, frame.CmdGetCard5, requestTimeout)
	if err != nil {
		return d.handleReadError(err)
	}

	block, berr := blockBytes(resp, 5, 133)
	if berr != nil {
		return d.handleReadError(&DecodeFailureError{Err: berr})
	}

	rec, derr := card.DecodeCard5(block, d.zeroHour)
	if derr != nil {
		return d.handleReadError(&DecodeFailureError{Err: derr})
	}

	d.sink.OnCardRead(rec)
	return d.ackAndWaitForRemoval(ctx)
}

func (d *Driver) retrieveCard6(ctx context.Context) error {
	reqs := make([]frame.Frame, len(frame.Card6BlockOrder))
	for i, n := range frame.Card6BlockOrder {
		reqs[i] = frame.ReadCard6Block(n)
	}

	resps, err := d.readMultiple(ctx, reqs, 24)
	if err != nil {
		return d.handleReadError(err)
	}

	return d.decodeAndDeliver(ctx, resps, card.DecodeCard6)
}

func (d *Driver) retrieveCard89(ctx context.Context) error {
	reqs := []frame.Frame{frame.ReadCard8PlusBlock(0), frame.ReadCard8PlusBlock(1)}

	resps, err := d.readAll(ctx, reqs)
	if err != nil {
		return d.handleReadError(err)
	}

	return d.decodeAndDeliver(ctx, resps, card.DecodeCard8Plus)
}

func (d *Driver) retrieveCard10Plus(ctx context.Context) error {
	reqs := []frame.Frame{
		frame.ReadCard8PlusBlock(0),
		frame.ReadCard8PlusBlock(4),
		frame.ReadCard8PlusBlock(5),
		frame.ReadCard8PlusBlock(6),
		frame.ReadCard8PlusBlock(7),
	}

	resps, err := d.readMultiple(ctx, reqs, 28)
	if err != nil {
		return d.handleReadError(err)
	}

	return d.decodeAndDeliver(ctx, resps, card.DecodeCard8Plus)
}

func (d *Driver) decodeAndDeliver(ctx context.Context, resps []frame.Frame, decode func([]byte, int64) (card.Record, error)) error {
	blocks := make([][]byte, 0, len(resps))
	for _, r := range resps {
		block, berr := blockBytes(r, 6, 134)
		if berr != nil {
			return d.handleReadError(&DecodeFailureError{Err: berr})
		}
		blocks = append(blocks, block)
	}

	buf, aerr := card.AssembleBlocks(blocks)
	if aerr != nil {
		return d.handleReadError(&DecodeFailureError{Err: aerr})
	}

	rec, derr := decode(buf, d.zeroHour)
	if derr != nil {
		return d.handleReadError(&DecodeFailureError{Err: derr})
	}

	d.sink.OnCardRead(rec)
	return d.ackAndWaitForRemoval(ctx)
}

// ackAndWaitForRemoval sends ACK and waits for the station's card-removed
// notification. Anything else that arrives in its place, or a timeout, is
// logged and the loop continues — the station will still resume on its own.
func (d *Driver) ackAndWaitForRemoval(ctx context.Context) error {
	if err := d.send(ctx, frame.Ack); err != nil {
		return err
	}

	resp, err := d.queue.Take(ctx, removalTimeout)
	if err != nil {
		d.sink.OnLog(LogInfo, "no card removal confirmation: "+err.Error())
		return nil
	}
	if resp.Command() != frame.CmdCardRemoved {
		d.sink.OnLog(LogInfo, fmt.Sprintf("unexpected message while waiting for card removal: %s", resp.Hex()))
	}
	return nil
}

// handleReadError surfaces err as a PROCESSING_ERROR status unless it is a
// PortFailureError, which the caller (mainLoop) escalates to FATAL_ERROR.
func (d *Driver) handleReadError(err error) error {
	d.sink.OnLog(LogError, err.Error())
	var portErr *PortFailureError
	if errors.As(err, &portErr) {
		return err
	}
	d.sink.OnStatus(Status{Kind: StatusProcessingError, Message: err.Error()})
	return err
}
