// Package gateway 提供多 Provider 对话网关的入口
//
// [Gateway] 把一次与 Provider 无关的对话交换（消息 + 选项）发往某个 Agent：
// 从 [Directory] 读取 Agent 配置，按 Provider 选择协议适配器，构建上游请求，
// 经保护层与传输层执行，再把上游响应（同步或流式）归一化为统一结构。
//
// # 快速开始
//
//	dir, _ := directory.LoadFile("agents.yaml")
//	gw := gateway.NewFromConfig(llm.DefaultConfig(), dir,
//	    gateway.WithLogger(logger),
//	    gateway.WithMetrics(gateway.NewMetrics(prometheus.DefaultRegisterer)),
//	)
//
//	resp, err := gw.SendMessage(ctx, "support-bot", []llm.ChatMessage{
//	    {Role: llm.RoleUser, Content: "你好"},
//	}, nil)
//
// # 流式调用
//
// 回调形式，阻塞直到交换结束：
//
//	err := gw.SendStreamMessage(ctx, "support-bot", messages, gateway.StreamCallbacks{
//	    OnChunk: func(text string) { fmt.Print(text) },
//	    OnEnd:   func() { fmt.Println() },
//	    OnError: func(err error) { log.Println(err) },
//	}, nil)
//
// 通道形式：
//
//	events, err := gw.Stream(ctx, "support-bot", messages, nil)
//	for ev := range events {
//	    ...
//	}
//
// 两种形式的语义相同：查找与校验失败同步返回；之后的任何失败都作为唯一的
// error 终止事件送达，每次交换恰好一个终止事件。
//
// # 错误分类
//
// 所有错误都可以用 [llm.KindOf] 归类：
//
//	AGENT_NOT_FOUND        Agent 不存在
//	AGENT_INACTIVE         Agent 未启用
//	UNSUPPORTED_PROVIDER   Provider 没有适配器
//	VALIDATION_ERROR       配置或请求不合法（网络调用之前）
//	EXTERNAL_SERVICE_ERROR 超时、连接失败、非 2xx、上游错误帧
//	DECODE_ERROR           上游响应无法解码
//
// Directory 自身的故障不属于以上分类，以包装错误原样返回。
package gateway
