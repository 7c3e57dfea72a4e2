package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"github.com/bujia-iot/multiverse-display/pkg/constants"
	"github.com/bujia-iot/multiverse-display/pkg/discovery"
	"github.com/bujia-iot/multiverse-display/pkg/display"
	"github.com/bujia-iot/multiverse-display/pkg/protocol"
	"github.com/klauspost/compress/zlib"
	"go.bug.st/serial"
	"golang.org/x/net/ipv4"
)

// 客户端参数
type clientParams struct {
	addr         string        // TCP地址
	serialDev    string        // 串口设备，非空时使用串口
	baudRate     int           // 串口波特率
	group        string        // 组播地址
	multicastIfc string        // 组播网卡
	timeout      time.Duration // 等待应答时间
	zip          bool          // 图像使用zlib压缩
	zipLevel     int           // 压缩级别
	show         bool          // 图像发送后立即刷新
}

func main() {
	params := parseFlags()
	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	if err := run(params, args); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() clientParams {
	p := clientParams{}
	flag.StringVar(&p.addr, "addr", fmt.Sprintf("127.0.0.1:%d", constants.DefaultServerPort), "屏幕TCP地址")
	flag.StringVar(&p.serialDev, "serial", "", "串口设备（如 /dev/ttyACM0），设置后通过串口发送")
	flag.IntVar(&p.baudRate, "baud", 115200, "串口波特率")
	flag.StringVar(&p.group, "group", fmt.Sprintf("%s:%d", constants.DefaultMulticastIP, constants.DefaultMulticastPort), "组播地址")
	flag.StringVar(&p.multicastIfc, "iface", "", "组播网卡")
	flag.DurationVar(&p.timeout, "timeout", 2*time.Second, "等待应答时间")
	flag.BoolVar(&p.zip, "zip", false, "图像使用zlib压缩发送")
	flag.IntVar(&p.zipLevel, "level", zlib.BestCompression, "zlib压缩级别")
	flag.BoolVar(&p.show, "show", true, "图像发送后立即显示")
	flag.Usage = usage
	flag.Parse()
	return p
}

func usage() {
	fmt.Fprintf(os.Stderr, `用法: client [选项] <命令> [参数]

命令:
  RSET | BOOT | FRST | clsc | sync | ipv4 | ipv6 | stor
  kget <key>            查询配置
  kset <key> <value>    设置配置（需 stor 写入闪存）
  kdel <key>            删除配置
  prnt <text>           在屏幕上显示文本
  image <file>          发送原始像素文件（-zip 压缩，-show 立即刷新）
  discover              组播发现屏幕
  msync                 组播同步所有屏幕

选项:
`)
	flag.PrintDefaults()
}

func run(p clientParams, args []string) error {
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "discover":
		return discover(p)
	case "msync":
		return multicastSync(p)
	case "image":
		if len(rest) != 1 {
			return fmt.Errorf("image 需要一个文件参数")
		}
		return sendImage(p, rest[0])
	case constants.CmdSet:
		if len(rest) != 2 {
			return fmt.Errorf("kset 需要 key 和 value")
		}
		return sendFrames(p, protocol.EncodeFrame(protocol.Command(cmd), []byte(rest[0]+":"+rest[1])))
	case constants.CmdGet, constants.CmdDelete:
		if len(rest) != 1 {
			return fmt.Errorf("%s 需要 key", cmd)
		}
		return sendFrames(p, protocol.EncodeFrame(protocol.Command(cmd), []byte(rest[0])))
	case constants.CmdPrint:
		return sendFrames(p, protocol.EncodeFrame(protocol.Command(cmd), []byte(strings.Join(rest, " "))))
	}

	info, ok := constants.LookupStreamCommand(cmd)
	if !ok || info.HasPayload {
		return fmt.Errorf("未知命令: %s", cmd)
	}
	return sendFrames(p, protocol.EncodeFrame(protocol.Command(cmd), nil))
}

func sendImage(p clientParams, path string) error {
	pixels, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("读取图像失败: %w", err)
	}

	cmd := constants.CmdData
	if p.show {
		cmd = constants.CmdShowData
	}
	payload := pixels
	if p.zip {
		if payload, err = display.Deflate(pixels, p.zipLevel); err != nil {
			return fmt.Errorf("压缩失败: %w", err)
		}
		cmd = constants.CmdZipped
		if p.show {
			cmd = constants.CmdShowZipped
		}
	}
	fmt.Printf("📤 发送图像 %s: %d 字节 -> %d 字节 (%s)\n", path, len(pixels), len(payload), cmd)
	return sendFrames(p, protocol.EncodeFrame(protocol.Command(cmd), payload))
}

// sendFrames 通过TCP或串口发送，串口会回显状态行
func sendFrames(p clientParams, frame []byte) error {
	if p.serialDev != "" {
		return sendSerial(p, frame)
	}

	conn, err := net.DialTimeout("tcp", p.addr, p.timeout)
	if err != nil {
		return fmt.Errorf("连接失败: %w", err)
	}
	defer conn.Close()

	if _, err := conn.Write(frame); err != nil {
		return fmt.Errorf("发送失败: %w", err)
	}
	fmt.Printf("✅ 已发送 %d 字节到 %s\n", len(frame), p.addr)
	return nil
}

func sendSerial(p clientParams, frame []byte) error {
	port, err := serial.Open(p.serialDev, &serial.Mode{BaudRate: p.baudRate})
	if err != nil {
		return fmt.Errorf("打开串口失败: %w", err)
	}
	defer port.Close()

	if err := port.SetReadTimeout(p.timeout); err != nil {
		return fmt.Errorf("设置串口超时失败: %w", err)
	}
	if _, err := port.Write(frame); err != nil {
		return fmt.Errorf("串口发送失败: %w", err)
	}

	// 读到超时为止，打印屏幕回写的状态行
	scanner := bufio.NewScanner(timeoutReader{port})
	for scanner.Scan() {
		fmt.Printf("📟 %s\n", scanner.Text())
	}
	return nil
}

// timeoutReader 把串口读超时（0字节）转换为EOF
type timeoutReader struct {
	r io.Reader
}

func (t timeoutReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if n == 0 && err == nil {
		return 0, io.EOF
	}
	return n, err
}

func multicastConn(p clientParams) (*net.UDPConn, *net.UDPAddr, error) {
	group, err := net.ResolveUDPAddr("udp4", p.group)
	if err != nil {
		return nil, nil, fmt.Errorf("组播地址无效: %w", err)
	}
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4zero})
	if err != nil {
		return nil, nil, fmt.Errorf("创建UDP套接字失败: %w", err)
	}

	pc := ipv4.NewPacketConn(conn)
	_ = pc.SetMulticastTTL(2)
	if p.multicastIfc != "" {
		ifi, err := net.InterfaceByName(p.multicastIfc)
		if err != nil {
			conn.Close()
			return nil, nil, fmt.Errorf("网卡不存在: %w", err)
		}
		if err := pc.SetMulticastInterface(ifi); err != nil {
			conn.Close()
			return nil, nil, fmt.Errorf("设置组播网卡失败: %w", err)
		}
	}
	return conn, group, nil
}

func discover(p clientParams) error {
	conn, group, err := multicastConn(p)
	if err != nil {
		return err
	}
	defer conn.Close()

	if _, err := conn.WriteToUDP([]byte(constants.CmdDiscovery), group); err != nil {
		return fmt.Errorf("发送发现请求失败: %w", err)
	}
	if err := conn.SetReadDeadline(time.Now().Add(p.timeout)); err != nil {
		return err
	}

	found := 0
	buf := make([]byte, 2048)
	for {
		n, src, err := conn.ReadFromUDP(buf)
		if err != nil {
			break
		}
		var desc discovery.Descriptor
		if err := json.Unmarshal(buf[:n], &desc); err != nil {
			fmt.Printf("⚠️ %s 返回无法解析的应答: %q\n", src, buf[:n])
			continue
		}
		found++
		fmt.Printf("🖥️ %s  %dx%d rotation=%d order=%d color=%s tcp=%s:%d build=%s\n",
			src.IP, desc.Width, desc.Height, desc.Rotation, desc.Order, desc.ColorOrder, desc.IP, desc.Port, desc.Build)
	}
	fmt.Printf("共发现 %d 块屏幕\n", found)
	return nil
}

func multicastSync(p clientParams) error {
	conn, group, err := multicastConn(p)
	if err != nil {
		return err
	}
	defer conn.Close()

	if _, err := conn.WriteToUDP([]byte(constants.CmdSync), group); err != nil {
		return fmt.Errorf("发送同步失败: %w", err)
	}
	fmt.Printf("✅ 已向 %s 发送同步\n", group)
	return nil
}
