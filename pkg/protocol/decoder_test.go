package protocol

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/bujia-iot/multiverse-display/pkg/constants"
	"github.com/bujia-iot/multiverse-display/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// summary 将解码事件压缩成便于比较的字符串
func summary(events []Decoded) []string {
	out := make([]string, 0, len(events))
	for _, ev := range events {
		if ev.Err != nil {
			out = append(out, "err:"+errors.CodeOf(ev.Err).String())
			continue
		}
		out = append(out, string(ev.Frame.Command)+":"+string(ev.Frame.Payload))
	}
	return out
}

func rawHeader(length uint32, cmd string) []byte {
	buf := make([]byte, constants.HeaderSize)
	copy(buf, constants.MessagePrefix)
	binary.BigEndian.PutUint32(buf[constants.LengthFieldPos:], length)
	copy(buf[constants.CommandPos:], cmd)
	return buf
}

func TestDecoderKeyValueExample(t *testing.T) {
	stream := []byte("multiverse:\x00\x00\x00\x0ckset" + "ssid:MyHome")
	// 长度字段声明12字节，但数据只有11字节，补一个字节
	stream = append(stream, '!')

	d := NewFrameDecoder(0)
	events := d.Feed(stream)
	require.Len(t, events, 1)
	require.NoError(t, events[0].Err)
	assert.Equal(t, Command("kset"), events[0].Frame.Command)
	assert.Equal(t, []byte("ssid:MyHome!"), events[0].Frame.Payload)
	assert.Equal(t, StateReadingHeader, d.State())
	assert.Zero(t, d.Buffered())
}

func TestDecoderEncodedFrame(t *testing.T) {
	stream := EncodeFrame("kset", EncodeKeyValue("ssid", "MyHome"))
	assert.Equal(t, "multiverse:\x00\x00\x00\x0bksetssid:MyHome", string(stream))

	events := NewFrameDecoder(0).Feed(stream)
	assert.Equal(t, []string{"kset:ssid:MyHome"}, summary(events))
}

func TestDecoderNoPayloadCommands(t *testing.T) {
	var stream []byte
	for _, cmd := range []Command{"RSET", "clsc", "sync", "ipv4", "stor"} {
		stream = append(stream, EncodeFrame(cmd, nil)...)
	}
	events := NewFrameDecoder(0).Feed(stream)
	assert.Equal(t, []string{"RSET:", "clsc:", "sync:", "ipv4:", "stor:"}, summary(events))
}

func TestDecoderNoPayloadCommandIgnoresLength(t *testing.T) {
	stream := append(rawHeader(5, "clsc"), EncodeFrame("sync", nil)...)
	events := NewFrameDecoder(0).Feed(stream)
	assert.Equal(t, []string{"clsc:", "sync:"}, summary(events))
}

// 同一字节流以任意位置切成两段，得到的帧序列必须一致
func TestDecoderSplitAtEveryOffset(t *testing.T) {
	var stream []byte
	stream = append(stream, EncodeFrame("kset", []byte("brightness:200"))...)
	stream = append(stream, EncodeFrame("clsc", nil)...)
	stream = append(stream, []byte("garbage!")...)
	stream = append(stream, EncodeFrame("data", bytes.Repeat([]byte{0xAB}, 40))...)
	stream = append(stream, EncodeFrame("kget", []byte("brightness"))...)

	expected := summary(NewFrameDecoder(0).Feed(stream))
	require.NotEmpty(t, expected)

	for split := 0; split <= len(stream); split++ {
		d := NewFrameDecoder(0)
		events := d.Feed(stream[:split])
		events = append(events, d.Feed(stream[split:])...)
		require.Equal(t, expected, summary(events), "split at %d", split)
	}
}

func TestDecoderByteAtATime(t *testing.T) {
	stream := append(EncodeFrame("prnt", []byte("hello")), EncodeFrame("sdat", []byte{1, 2, 3, 4})...)

	d := NewFrameDecoder(0)
	var events []Decoded
	for _, b := range stream {
		events = append(events, d.Feed([]byte{b})...)
	}
	assert.Equal(t, []string{"prnt:hello", "sdat:\x01\x02\x03\x04"}, summary(events))
}

func TestDecoderRejectsOversizedPayload(t *testing.T) {
	const limit = 16
	stream := rawHeader(limit+1, "data")
	stream = append(stream, bytes.Repeat([]byte{0xFF}, limit+1)...)
	stream = append(stream, EncodeFrame("kget", []byte("ssid"))...)

	d := NewFrameDecoder(limit)
	events := d.Feed(stream[:constants.HeaderSize])
	require.Len(t, events, 1)
	assert.True(t, errors.IsErrCode(events[0].Err, errors.ErrBufferOverflow))
	assert.Equal(t, StateSkippingPayload, d.State())
	assert.Zero(t, d.Buffered(), "超限数据不进入缓冲区")

	events = d.Feed(stream[constants.HeaderSize:])
	assert.Equal(t, []string{"kget:ssid"}, summary(events))
}

func TestDecoderAcceptsPayloadAtLimit(t *testing.T) {
	const limit = 16
	payload := bytes.Repeat([]byte{'x'}, limit)
	events := NewFrameDecoder(limit).Feed(EncodeFrame("prnt", payload))
	assert.Equal(t, []string{"prnt:" + string(payload)}, summary(events))
}

func TestDecoderUnknownCommand(t *testing.T) {
	stream := append(rawHeader(0, "nope"), EncodeFrame("ipv6", nil)...)
	events := NewFrameDecoder(0).Feed(stream)
	assert.Equal(t, []string{"err:UnknownCommand", "ipv6:"}, summary(events))
}

func TestDecoderDiscoveryNotAllowedOnStream(t *testing.T) {
	events := NewFrameDecoder(0).Feed(EncodeFrame("dscv", nil))
	assert.Equal(t, []string{"err:UnknownCommand"}, summary(events))
}

func TestDecoderResynchronisesOnPrefix(t *testing.T) {
	tests := []struct {
		name    string
		garbage []byte
	}{
		{"short garbage", []byte("xx")},
		{"long garbage", bytes.Repeat([]byte("z"), 100)},
		{"partial prefix", []byte("multiv")},
		{"prefix-like noise", []byte("mmmultimultiverse")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stream := append(append([]byte(nil), tt.garbage...), EncodeFrame("kset", []byte("a:b"))...)
			stream = append(stream, EncodeFrame("stor", nil)...)

			events := NewFrameDecoder(0).Feed(stream)
			assert.Equal(t, []string{"err:InvalidFraming", "kset:a:b", "stor:"}, summary(events))
		})
	}
}

func TestDecoderResetDropsPartialFrame(t *testing.T) {
	d := NewFrameDecoder(0)
	frame := EncodeFrame("prnt", []byte("partial"))
	assert.Empty(t, d.Feed(frame[:constants.HeaderSize+3]))
	assert.Equal(t, StateAwaitingPayload, d.State())

	d.Reset()
	assert.Equal(t, StateReadingHeader, d.State())
	assert.Zero(t, d.Buffered())

	events := d.Feed(EncodeFrame("clsc", nil))
	assert.Equal(t, []string{"clsc:"}, summary(events))
}

func TestDecoderZeroLengthPayloadCommand(t *testing.T) {
	events := NewFrameDecoder(0).Feed(EncodeFrame("kget", nil))
	assert.Equal(t, []string{"kget:"}, summary(events))
}
