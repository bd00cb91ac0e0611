package llm

// ═══════════════════════════════════════════════════════════════════════════
// 流式事件
// ═══════════════════════════════════════════════════════════════════════════

// EventType 流式事件类型
type EventType string

const (
	EventTypeChunk  EventType = "chunk"  // 文本增量
	EventTypeStatus EventType = "status" // 流程节点状态
	EventTypeEnd    EventType = "end"    // 正常结束
	EventTypeError  EventType = "error"  // 错误结束
)

// StreamEvent 统一的流式事件
//
// 每次流式交换以且仅以一个终止事件（end 或 error）结束，
// 终止事件之后不会再有任何事件。
//
// 使用示例：
//
//	for ev := range events {
//	    switch ev.Type {
//	    case llm.EventTypeChunk:
//	        fmt.Print(ev.Text)
//	    case llm.EventTypeStatus:
//	        log.Println("status:", ev.Payload)
//	    case llm.EventTypeError:
//	        log.Println("failed:", ev.Err)
//	    }
//	}
type StreamEvent struct {
	Type EventType `json:"type"`

	// Chunk event - 文本增量
	Text string `json:"text,omitempty"`

	// Status event - 上游原始状态负载
	Payload any `json:"payload,omitempty"`

	// Error event
	Err          error  `json:"-"`
	ErrorMessage string `json:"error,omitempty"`
}

// IsTerminal 判断是否为终止事件
func (e *StreamEvent) IsTerminal() bool {
	return e.Type == EventTypeEnd || e.Type == EventTypeError
}

// ChunkEvent 创建文本增量事件
func ChunkEvent(text string) *StreamEvent {
	return &StreamEvent{Type: EventTypeChunk, Text: text}
}

// StatusEvent 创建状态事件
func StatusEvent(payload any) *StreamEvent {
	return &StreamEvent{Type: EventTypeStatus, Payload: payload}
}

// EndEvent 创建结束事件
func EndEvent() *StreamEvent {
	return &StreamEvent{Type: EventTypeEnd}
}

// ErrorEvent 创建错误事件
func ErrorEvent(err error) *StreamEvent {
	ev := &StreamEvent{Type: EventTypeError, Err: err}
	if err != nil {
		ev.ErrorMessage = err.Error()
	}
	return ev
}
