package protocol

import (
	"bytes"
	"encoding/binary"

	"github.com/bujia-iot/multiverse-display/pkg/constants"
	"github.com/bujia-iot/multiverse-display/pkg/errors"
)

// ParseState 解析状态枚举
type ParseState int

const (
	StateReadingHeader   ParseState = iota // 累积帧头
	StateAwaitingPayload                   // 累积数据部分
	StateSkippingPayload                   // 丢弃超限帧的数据部分
)

// Decoded 解码产生的一个事件：完整帧或帧错误，二者只有一个有效
type Decoded struct {
	Frame *Frame
	Err   error
}

var prefix = []byte(constants.MessagePrefix)

// FrameDecoder 增量帧解码器，输出与数据分片方式无关。
// 每个会话独占一个实例，非并发安全。
type FrameDecoder struct {
	maxBuffer int

	state    ParseState
	header   []byte
	payload  []byte
	command  Command
	expected int
	skip     int

	// 前缀不匹配后只报告一次，直到重新对齐
	desynced bool
}

// NewFrameDecoder 创建解码器，maxBuffer 为单帧数据部分的上限
func NewFrameDecoder(maxBuffer int) *FrameDecoder {
	if maxBuffer <= 0 {
		maxBuffer = constants.DefaultMaxBufferSize
	}
	return &FrameDecoder{
		maxBuffer: maxBuffer,
		header:    make([]byte, 0, constants.HeaderSize),
	}
}

// State 当前解析状态
func (d *FrameDecoder) State() ParseState {
	return d.state
}

// Buffered 已缓存但尚未组成完整帧的字节数
func (d *FrameDecoder) Buffered() int {
	return len(d.header) + len(d.payload)
}

// Reset 丢弃所有未完成的数据，连接断开时调用
func (d *FrameDecoder) Reset() {
	d.state = StateReadingHeader
	d.header = d.header[:0]
	d.payload = nil
	d.command = ""
	d.expected = 0
	d.skip = 0
	d.desynced = false
}

// Feed 处理任意长度的数据块，按出现顺序返回完整帧和帧错误
func (d *FrameDecoder) Feed(chunk []byte) []Decoded {
	var out []Decoded
	for len(chunk) > 0 {
		switch d.state {
		case StateReadingHeader:
			n := min(constants.HeaderSize-len(d.header), len(chunk))
			d.header = append(d.header, chunk[:n]...)
			chunk = chunk[n:]
			if len(d.header) == constants.HeaderSize {
				out = d.parseHeader(out)
			}

		case StateAwaitingPayload:
			n := min(d.expected-len(d.payload), len(chunk))
			d.payload = append(d.payload, chunk[:n]...)
			chunk = chunk[n:]
			if len(d.payload) == d.expected {
				out = append(out, Decoded{Frame: &Frame{Command: d.command, Payload: d.payload}})
				d.finishFrame()
			}

		case StateSkippingPayload:
			n := min(d.skip, len(chunk))
			d.skip -= n
			chunk = chunk[n:]
			if d.skip == 0 {
				d.state = StateReadingHeader
			}
		}
	}
	return out
}

// parseHeader 处理一个完整的19字节帧头
func (d *FrameDecoder) parseHeader(out []Decoded) []Decoded {
	if !bytes.HasPrefix(d.header, prefix) {
		if !d.desynced {
			out = append(out, Decoded{Err: errors.Newf(errors.ErrInvalidFraming,
				"invalid message prefix %q", d.header[:constants.PrefixLength])})
			d.desynced = true
		}
		d.header = resync(d.header)
		return out
	}
	d.desynced = false

	length := binary.BigEndian.Uint32(d.header[constants.LengthFieldPos:constants.CommandPos])
	cmd := Command(d.header[constants.CommandPos:constants.HeaderSize])
	d.header = d.header[:0]

	info, ok := constants.LookupStreamCommand(string(cmd))
	if !ok {
		return append(out, Decoded{Err: errors.Newf(errors.ErrUnknownCommand, "unknown command %q", string(cmd))})
	}

	if !info.HasPayload || length == 0 {
		return append(out, Decoded{Frame: &Frame{Command: cmd, Payload: []byte{}}})
	}

	if uint64(length) > uint64(d.maxBuffer) {
		d.state = StateSkippingPayload
		d.skip = int(length)
		return append(out, Decoded{Err: errors.Newf(errors.ErrBufferOverflow,
			"command %s declares %d bytes, limit %d", string(cmd), length, d.maxBuffer)})
	}

	d.state = StateAwaitingPayload
	d.command = cmd
	d.expected = int(length)
	d.payload = make([]byte, 0, d.expected)
	return out
}

func (d *FrameDecoder) finishFrame() {
	d.state = StateReadingHeader
	d.payload = nil
	d.command = ""
	d.expected = 0
}

// resync 丢弃前缀之前的字节：保留下一个完整前缀出现的位置，
// 否则保留末尾可能是前缀开头的部分
func resync(header []byte) []byte {
	if i := bytes.Index(header[1:], prefix); i >= 0 {
		return append(header[:0], header[1+i:]...)
	}
	for k := min(len(header)-1, len(prefix)-1); k > 0; k-- {
		if bytes.HasPrefix(prefix, header[len(header)-k:]) {
			return append(header[:0], header[len(header)-k:]...)
		}
	}
	return header[:0]
}
