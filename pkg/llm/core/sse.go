package core

import (
	"bufio"
	"io"
	"strings"
)

// ═══════════════════════════════════════════════════════════════════════════
// SSE 帧读取
// ═══════════════════════════════════════════════════════════════════════════

// Frame 单个 SSE 帧
//
// SSE 格式：
//
//	event: event_type
//	data: {"key": "value"}
//
//	data: {"key": "value"}
//
// Event 可能为空（OpenAI 不使用 event 行）。多行 data 以 "\n" 拼接。
type Frame struct {
	Event string
	Data  string
}

// maxFrameLine 单行最大长度
const maxFrameLine = 1 << 20

// FrameReader SSE 帧读取器
//
// 职责：
//   - 按行扫描字节流，识别 event:/data: 行
//   - 空行或新的 event: 行触发帧派发
//   - 忽略注释行（以 ":" 开头）以及 id:/retry: 行
//
// FrameReader 不解析 data 内容，也不理解任何 Provider 的语义。
type FrameReader struct {
	scanner *bufio.Scanner

	event   string
	data    []string
	pending bool
}

// NewFrameReader 创建帧读取器
func NewFrameReader(r io.Reader) *FrameReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxFrameLine)
	return &FrameReader{scanner: scanner}
}

// Next 读取下一个帧
//
// 流正常结束时返回 io.EOF；末尾未以空行结束的帧仍会被返回。
func (r *FrameReader) Next() (Frame, error) {
	for r.scanner.Scan() {
		line := strings.TrimRight(r.scanner.Text(), "\r")

		if line == "" {
			if r.pending {
				return r.flush(), nil
			}
			continue
		}

		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")

		switch field {
		case "event":
			// 上一帧缺少空行分隔时，先派发上一帧
			if r.pending && len(r.data) > 0 {
				frame := r.flush()
				r.event = value
				r.pending = true
				return frame, nil
			}
			r.event = value
			r.pending = true
		case "data":
			r.data = append(r.data, value)
			r.pending = true
		default:
			// id:, retry: 以及未知字段
		}
	}

	if err := r.scanner.Err(); err != nil {
		return Frame{}, err
	}
	if r.pending {
		return r.flush(), nil
	}
	return Frame{}, io.EOF
}

func (r *FrameReader) flush() Frame {
	frame := Frame{Event: r.event, Data: strings.Join(r.data, "\n")}
	r.event = ""
	r.data = r.data[:0]
	r.pending = false
	return frame
}
