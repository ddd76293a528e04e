package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/hongjun500/chat-relay/internal/protocol"
)

const (
	defaultHost = "localhost"
	defaultPort = 5000
	debugFlag   = "--debug"
	prompt      = ">> "
)

var errUsage = errors.New("usage")

type options struct {
	host  string
	port  int
	debug bool
}

// parseArgs 解析 [host] [port] [--debug]，host/port 只能出现在前两个位置
func parseArgs(args []string) (options, error) {
	opt := options{host: defaultHost, port: defaultPort}
	for i, a := range args {
		switch {
		case a == debugFlag:
			opt.debug = true
		case i == 0 && !strings.HasPrefix(a, "-"):
			opt.host = a
		case i == 1 && !strings.HasPrefix(a, "-"):
			p, err := strconv.Atoi(a)
			if err != nil || p <= 0 || p > 65535 {
				return opt, fmt.Errorf("%w: bad port %q", errUsage, a)
			}
			opt.port = p
		default:
			return opt, fmt.Errorf("%w: unexpected argument %q", errUsage, a)
		}
	}
	return opt, nil
}

func showUsage(w io.Writer, program string) {
	fmt.Fprintf(w, "Usage: %s [host] [port] [options]\n", program)
	fmt.Fprintln(w, "Options:")
	fmt.Fprintln(w, "  --debug    Enable debug output")
}

// receive 打印服务端下发的每一帧，连接关闭时返回
func receive(r io.Reader, w io.Writer, debug bool) error {
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadBytes('\n')
		if len(line) > 0 {
			if debug {
				fmt.Fprintf(w, "[DEBUG] Received raw data (%d bytes): %q\n", len(line), line)
			}
			text, _ := protocol.Strip(line)
			fmt.Fprintf(w, "%s\n%s", text, prompt)
		}
		if err != nil {
			fmt.Fprintln(w, "\nDisconnected from server")
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

func main() {
	opt, err := parseArgs(os.Args[1:])
	if err != nil {
		showUsage(os.Stderr, os.Args[0])
		os.Exit(2)
	}
	addr := net.JoinHostPort(opt.host, strconv.Itoa(opt.port))
	if opt.debug {
		fmt.Printf("[DEBUG] Starting client with host=%s, port=%d\n", opt.host, opt.port)
	}

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to connect:", err)
		os.Exit(1)
	}
	defer conn.Close()
	fmt.Println("Connected to server! Type /help for commands")

	// 后台接收，服务端断开后退出进程
	go func() {
		if err := receive(conn, os.Stdout, opt.debug); err != nil {
			fmt.Fprintln(os.Stderr, "recv:", err)
		}
		os.Exit(0)
	}()

	// 主线程逐行发送标准输入，空行不发送
	in := bufio.NewScanner(os.Stdin)
	for in.Scan() {
		text := in.Text()
		if text == "" {
			fmt.Print(prompt)
			continue
		}
		if _, err := fmt.Fprintf(conn, "%s\n", text); err != nil {
			fmt.Fprintln(os.Stderr, "Failed to send message:", err)
			return
		}
	}
}
