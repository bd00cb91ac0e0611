package mock

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ═══════════════════════════════════════════════════════════════════════════
// Wire 格式
// ═══════════════════════════════════════════════════════════════════════════

// wireFormat 由请求路径与请求体推断出的上游协议
type wireFormat int

const (
	wireOpenAI wireFormat = iota
	wireFastGPT
	wireAnthropic
	wireDify
)

// chunkRunes 流式响应每个增量的字符数
const chunkRunes = 4

func detectWire(url string, body map[string]any) wireFormat {
	path := url
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	path = strings.TrimRight(path, "/")

	switch {
	case strings.HasSuffix(path, "/chat-messages"):
		return wireDify
	case strings.HasSuffix(path, "/messages"):
		return wireAnthropic
	}
	if _, ok := body["chatId"]; ok {
		return wireFastGPT
	}
	return wireOpenAI
}

// input 提取请求中的用户输入
func (w wireFormat) input(body map[string]any) string {
	if w == wireDify {
		s, _ := body["query"].(string)
		return s
	}

	messages, _ := body["messages"].([]any)
	for i := len(messages) - 1; i >= 0; i-- {
		msg, _ := messages[i].(map[string]any)
		if role, _ := msg["role"].(string); role != "user" {
			continue
		}
		return contentText(msg["content"])
	}
	return ""
}

// contentText 兼容字符串内容与内容数组
func contentText(v any) string {
	switch c := v.(type) {
	case string:
		return c
	case []any:
		var sb strings.Builder
		for _, part := range c {
			p, _ := part.(map[string]any)
			if t, _ := p["type"].(string); t == "text" {
				s, _ := p["text"].(string)
				sb.WriteString(s)
			}
		}
		return sb.String()
	}
	return ""
}

// model 回显请求中的模型，缺省为 mock-model
func (ex *exchange) model() string {
	if m, _ := ex.body["model"].(string); m != "" {
		return m
	}
	return "mock-model"
}

func (ex *exchange) usage() (prompt, completion int) {
	return utf8.RuneCountInString(fmt.Sprint(ex.body["messages"], ex.body["query"])) / chunkRunes,
		utf8.RuneCountInString(ex.text) / chunkRunes
}

// ═══════════════════════════════════════════════════════════════════════════
// 缓冲响应
// ═══════════════════════════════════════════════════════════════════════════

func (w wireFormat) response(ex *exchange) map[string]any {
	prompt, completion := ex.usage()

	switch w {
	case wireAnthropic:
		return map[string]any{
			"id":          fmt.Sprintf("msg_mock_%d", ex.seq),
			"type":        "message",
			"role":        "assistant",
			"model":       ex.model(),
			"content":     []any{map[string]any{"type": "text", "text": ex.text}},
			"stop_reason": "end_turn",
			"usage":       map[string]any{"input_tokens": prompt, "output_tokens": completion},
		}

	case wireDify:
		conv, _ := ex.body["conversation_id"].(string)
		if conv == "" {
			conv = fmt.Sprintf("conv-mock-%d", ex.seq)
		}
		return map[string]any{
			"event":           "message",
			"message_id":      fmt.Sprintf("msg-mock-%d", ex.seq),
			"conversation_id": conv,
			"mode":            "chat",
			"answer":          ex.text,
			"created_at":      ex.created,
			"metadata": map[string]any{
				"usage": map[string]any{
					"prompt_tokens":     prompt,
					"completion_tokens": completion,
					"total_tokens":      prompt + completion,
				},
			},
		}

	default:
		return map[string]any{
			"id":      fmt.Sprintf("chatcmpl-mock-%d", ex.seq),
			"object":  "chat.completion",
			"created": ex.created,
			"model":   ex.model(),
			"choices": []any{map[string]any{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": ex.text},
				"finish_reason": "stop",
			}},
			"usage": map[string]any{
				"prompt_tokens":     prompt,
				"completion_tokens": completion,
				"total_tokens":      prompt + completion,
			},
		}
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// 流式响应
// ═══════════════════════════════════════════════════════════════════════════

// sseWriter 按 SSE 格式拼接事件
type sseWriter struct {
	sb strings.Builder
}

func (s *sseWriter) event(name string, data any) {
	if name != "" {
		s.sb.WriteString("event: ")
		s.sb.WriteString(name)
		s.sb.WriteByte('\n')
	}
	s.sb.WriteString("data: ")
	switch d := data.(type) {
	case string:
		s.sb.WriteString(d)
	default:
		b, _ := json.Marshal(d)
		s.sb.Write(b)
	}
	s.sb.WriteString("\n\n")
}

// splitText 按字符切分增量
func splitText(text string) []string {
	runes := []rune(text)
	var out []string
	for len(runes) > 0 {
		n := min(chunkRunes, len(runes))
		out = append(out, string(runes[:n]))
		runes = runes[n:]
	}
	return out
}

func (w wireFormat) stream(ex *exchange) string {
	var s sseWriter
	chunks := splitText(ex.text)

	switch w {
	case wireAnthropic:
		id := fmt.Sprintf("msg_mock_%d", ex.seq)
		s.event("message_start", map[string]any{
			"type":    "message_start",
			"message": map[string]any{"id": id, "type": "message", "role": "assistant", "model": ex.model()},
		})
		s.event("content_block_start", map[string]any{
			"type": "content_block_start", "index": 0,
			"content_block": map[string]any{"type": "text", "text": ""},
		})
		for _, c := range chunks {
			s.event("content_block_delta", map[string]any{
				"type": "content_block_delta", "index": 0,
				"delta": map[string]any{"type": "text_delta", "text": c},
			})
		}
		s.event("content_block_stop", map[string]any{"type": "content_block_stop", "index": 0})
		s.event("message_delta", map[string]any{
			"type":  "message_delta",
			"delta": map[string]any{"stop_reason": "end_turn"},
		})
		s.event("message_stop", map[string]any{"type": "message_stop"})

	case wireDify:
		msgID := fmt.Sprintf("msg-mock-%d", ex.seq)
		conv, _ := ex.body["conversation_id"].(string)
		if conv == "" {
			conv = fmt.Sprintf("conv-mock-%d", ex.seq)
		}
		s.event("", map[string]any{"event": "workflow_started", "conversation_id": conv})
		for i, node := range ex.nodes {
			s.event("", map[string]any{
				"event": "node_started",
				"data":  map[string]any{"node_id": fmt.Sprintf("node-%d", i+1), "title": node},
			})
		}
		for _, c := range chunks {
			s.event("", map[string]any{
				"event": "message", "message_id": msgID,
				"conversation_id": conv, "answer": c,
			})
		}
		prompt, completion := ex.usage()
		s.event("", map[string]any{
			"event": "message_end", "message_id": msgID, "conversation_id": conv,
			"metadata": map[string]any{"usage": map[string]any{
				"prompt_tokens": prompt, "completion_tokens": completion,
			}},
		})

	case wireFastGPT:
		detail, _ := ex.body["detail"].(bool)
		name := ""
		if detail {
			name = "answer"
			for _, node := range ex.nodes {
				s.event("flowNodeStatus", map[string]any{"status": "running", "name": node})
			}
		}
		for _, c := range chunks {
			s.event(name, openAIChunk(ex, c, nil))
		}
		s.event(name, openAIChunk(ex, "", "stop"))
		if detail {
			s.event("flowResponses", []any{map[string]any{"moduleName": "AI 对话", "runningTime": 0.1}})
		}
		s.event(name, "[DONE]")

	default:
		for _, c := range chunks {
			s.event("", openAIChunk(ex, c, nil))
		}
		s.event("", openAIChunk(ex, "", "stop"))
		s.event("", "[DONE]")
	}

	return s.sb.String()
}

func openAIChunk(ex *exchange, content string, finish any) map[string]any {
	delta := map[string]any{}
	if content != "" {
		delta["content"] = content
	}
	return map[string]any{
		"id":      fmt.Sprintf("chatcmpl-mock-%d", ex.seq),
		"object":  "chat.completion.chunk",
		"created": ex.created,
		"model":   ex.model(),
		"choices": []any{map[string]any{
			"index":         0,
			"delta":         delta,
			"finish_reason": finish,
		}},
	}
}
