package protocol

import (
	"context"
	"testing"

	"github.com/bujia-iot/multiverse-display/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingDispatcher struct {
	frames []Frame
}

func (d *recordingDispatcher) Dispatch(_ context.Context, frame Frame) Outcome {
	d.frames = append(d.frames, frame)
	info := frame.Command.Info()
	return Outcome{
		Command:  frame.Command,
		Status:   "ok " + frame.Command.String(),
		Terminal: info != nil && info.Terminal,
	}
}

type recordingPrinter struct {
	lines []string
}

func (p *recordingPrinter) Print(line string) {
	p.lines = append(p.lines, line)
}

func TestSessionDispatchesInOrder(t *testing.T) {
	disp := &recordingDispatcher{}
	printer := &recordingPrinter{}
	s := NewSession("tcp", 0, disp, printer)
	ctx := context.Background()

	stream := append(EncodeFrame("kset", []byte("a:1")), EncodeFrame("kget", []byte("a"))...)
	stream = append(stream, EncodeFrame("stor", nil)...)

	s.OnData(ctx, stream[:7])
	s.OnData(ctx, stream[7:30])
	s.OnData(ctx, stream[30:])

	require.Len(t, disp.frames, 3)
	assert.Equal(t, Command("kset"), disp.frames[0].Command)
	assert.Equal(t, Command("kget"), disp.frames[1].Command)
	assert.Equal(t, Command("stor"), disp.frames[2].Command)

	frames, frameErrs, total := s.Stats()
	assert.EqualValues(t, 3, frames)
	assert.Zero(t, frameErrs)
	assert.EqualValues(t, len(stream), total)
	assert.NotEmpty(t, s.ID())
}

func TestSessionReportsFramingErrors(t *testing.T) {
	printer := &recordingPrinter{}
	var echoed []string
	s := NewSession("serial", 0, &recordingDispatcher{}, printer,
		WithStatusSink(func(line string) { echoed = append(echoed, line) }))

	outcomes := s.Process(context.Background(), append([]byte("junk"), EncodeFrame("clsc", nil)...))
	require.Len(t, outcomes, 2)
	assert.True(t, errors.IsErrCode(outcomes[0].Err, errors.ErrInvalidFraming))
	assert.Equal(t, "Invalid message prefix", outcomes[0].Status)
	assert.Equal(t, "ok clsc", outcomes[1].Status)

	assert.Equal(t, []string{"Invalid message prefix"}, printer.lines)
	assert.Equal(t, []string{"Invalid message prefix", "ok clsc"}, echoed)
}

func TestSessionStopsAfterTerminalCommand(t *testing.T) {
	disp := &recordingDispatcher{}
	s := NewSession("tcp", 0, disp, &recordingPrinter{})

	stream := append(EncodeFrame("RSET", nil), EncodeFrame("clsc", nil)...)
	outcomes := s.Process(context.Background(), stream)

	require.Len(t, outcomes, 1)
	assert.True(t, outcomes[0].Terminal)
	assert.True(t, s.Terminated())
	assert.Nil(t, s.Process(context.Background(), EncodeFrame("clsc", nil)))
	assert.Len(t, disp.frames, 1)
}

func TestSessionCloseResetsReceiveState(t *testing.T) {
	disp := &recordingDispatcher{}
	printer := &recordingPrinter{}
	s := NewSession("tcp", 0, disp, printer)
	ctx := context.Background()

	s.OnConnect(ctx)
	frame := EncodeFrame("prnt", []byte("hello"))
	s.OnData(ctx, frame[:len(frame)-2])
	s.OnClose()

	// 断开后残留的半帧不能与新数据拼接
	s.OnData(ctx, frame[len(frame)-2:])
	s.OnData(ctx, EncodeFrame("sync", nil))

	require.Len(t, disp.frames, 1)
	assert.Equal(t, Command("sync"), disp.frames[0].Command)
	assert.Equal(t, "Client connected", printer.lines[0])
	assert.Contains(t, printer.lines, "Client disconnected")
}

func TestParseKeyValue(t *testing.T) {
	key, value, err := ParseKeyValue([]byte("url:http://host:80"))
	require.NoError(t, err)
	assert.Equal(t, "url", string(key))
	assert.Equal(t, "http://host:80", string(value))

	key, value, err = ParseKeyValue([]byte("empty:"))
	require.NoError(t, err)
	assert.Equal(t, "empty", string(key))
	assert.Empty(t, value)

	_, _, err = ParseKeyValue([]byte("novalue"))
	assert.True(t, errors.IsErrCode(err, errors.ErrMalformedPayload))

	_, _, err = ParseKeyValue([]byte(":value"))
	assert.True(t, errors.IsErrCode(err, errors.ErrMalformedPayload))
}

func TestParseKey(t *testing.T) {
	for _, in := range []string{"ssid", "ssid:", "ssid:ignored"} {
		key, err := ParseKey([]byte(in))
		require.NoError(t, err, in)
		assert.Equal(t, "ssid", string(key))
	}
	_, err := ParseKey(nil)
	assert.True(t, errors.IsErrCode(err, errors.ErrMalformedPayload))
}
