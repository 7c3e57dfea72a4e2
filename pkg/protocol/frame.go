package protocol

import (
	"encoding/binary"

	"github.com/bujia-iot/multiverse-display/pkg/constants"
)

// Command 4字节ASCII命令码
type Command string

// Frame 一个完整的协议帧
type Frame struct {
	Command Command
	Payload []byte
}

// String 返回命令码
func (c Command) String() string {
	return string(c)
}

// Info 返回命令注册信息，未注册的命令返回 nil
func (c Command) Info() *constants.CommandInfo {
	info, ok := constants.GetGlobalCommandRegistry().GetCommandInfo(string(c))
	if !ok {
		return nil
	}
	return info
}

// EncodeFrame 按线路格式编码一帧: 前缀 + 大端长度 + 命令 + 数据
func EncodeFrame(cmd Command, payload []byte) []byte {
	buf := make([]byte, constants.HeaderSize+len(payload))
	copy(buf, constants.MessagePrefix)
	binary.BigEndian.PutUint32(buf[constants.LengthFieldPos:], uint32(len(payload)))
	copy(buf[constants.CommandPos:constants.HeaderSize], padCommand(cmd))
	copy(buf[constants.HeaderSize:], payload)
	return buf
}

// padCommand 命令码不足4字节时补空格，超出部分截断
func padCommand(cmd Command) []byte {
	out := []byte("    ")
	copy(out, cmd)
	return out
}
