package protocol

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strings"
)

// Prefix 服务端下发消息的固定前缀
const Prefix = "MSG:"

// DefaultMaxLineSize 单行最大字节数（不含换行）
const DefaultMaxLineSize = 4096

var ErrLineTooLong = errors.New("protocol: line too long")

// Encode 将文本编码为线上格式 MSG:<text>\n，text 中的换行不做转义
func Encode(text string) []byte {
	buf := make([]byte, 0, len(Prefix)+len(text)+1)
	buf = append(buf, Prefix...)
	buf = append(buf, text...)
	return append(buf, '\n')
}

// Decode 只去掉末尾的一个行结束符（\n 或 \r\n），其余空白原样保留
func Decode(chunk []byte) string {
	s := strings.TrimSuffix(string(chunk), "\n")
	return strings.TrimSuffix(s, "\r")
}

// SingleLine 把文本中的 \r、\n 替换为空格，保证 Encode 只产生一帧
func SingleLine(s string) string {
	if !strings.ContainsAny(s, "\r\n") {
		return s
	}
	return strings.Map(func(r rune) rune {
		if r == '\r' || r == '\n' {
			return ' '
		}
		return r
	}, s)
}

// Strip 是 Encode 的逆操作，供客户端使用；不是 MSG: 帧时 ok 为 false
func Strip(frame []byte) (text string, ok bool) {
	frame = bytes.TrimSuffix(frame, []byte("\n"))
	if !bytes.HasPrefix(frame, []byte(Prefix)) {
		return string(frame), false
	}
	return string(frame[len(Prefix):]), true
}

// LineReader 按 '\n' 切分入站字节流，处理一次读取包含多行或一行跨多次读取的情况
type LineReader struct {
	r   *bufio.Reader
	max int
}

func NewLineReader(r io.Reader, maxLine int) *LineReader {
	if maxLine <= 0 {
		maxLine = DefaultMaxLineSize
	}
	return &LineReader{r: bufio.NewReaderSize(r, maxLine+2), max: maxLine}
}

// ReadLine 读取一行并返回 Decode 后的文本。
// 连接在未以换行结尾的数据后关闭时，先返回这段数据，下一次调用返回 io.EOF。
func (l *LineReader) ReadLine() (string, error) {
	var line []byte
	for {
		frag, err := l.r.ReadSlice('\n')
		if len(line)+len(frag) > l.max+2 {
			return "", ErrLineTooLong
		}
		line = append(line, frag...)
		switch {
		case err == nil:
			return Decode(line), nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF) && len(line) > 0:
			return Decode(line), nil
		default:
			return "", err
		}
	}
}
