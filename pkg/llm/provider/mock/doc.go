// Package mock 提供脚本化的 Mock 上游
//
// [Upstream] 实现了 core.Transport 接口，可以直接通过 gateway.WithTransport 注入网关，
// 无需真实的 FastGPT / OpenAI / Anthropic / Dify 服务即可验证整条调用链路。
//
// # 概述
//
// [Upstream] 根据请求路径判断上游协议，返回对应形状的响应：
//
//   - {endpoint}/chat/completions: OpenAI 兼容格式；请求体带 chatId 时按 FastGPT 处理
//   - {endpoint}/messages: Anthropic Messages 格式
//   - {endpoint}/chat-messages: Dify 应用 API 格式
//
// 流式调用返回对应协议的 SSE 事件序列（FastGPT detail 模式带 flowNodeStatus 节点事件）。
//
// # 快速开始
//
//	// 无参数时加载内嵌示例配置 examples/unified.yaml
//	up := mock.New()
//	up.UseScenario("greeting")
//
//	gw := gateway.New(dir, gateway.WithTransport(up))
//	resp, err := gw.SendMessage(ctx, "a1", messages, nil)
//
// # 场景
//
// 场景按 name 标识，每次调用推进一轮：
//
//	cfg := &mock.Config{
//	    Scenarios: []mock.Scenario{
//	        {
//	            Name: "booking",
//	            Turns: []mock.Turn{
//	                {User: "订餐", Assistant: "几位？"},
//	                {User: "3位", Assistant: "什么时间？"},
//	                {User: "7点", Assistant: "预订完成！"},
//	            },
//	        },
//	    },
//	}
//
//	up := mock.New(mock.WithConfig(cfg))
//	up.UseScenario("booking")
//
// 轮次用尽后返回 "[场景已结束]"。
//
// # 模板语法
//
// 场景响应支持 Go 模板语法：
//
//   - {{.LAST_USER_MESSAGE}}: 本次请求最后一条用户消息
//   - {{.VAR}}: 直接访问环境变量
//   - {{.VAR | default "fallback"}}: 带默认值
//   - {{coalesce .VAR1 .VAR2 "default"}}: 多级回退
//   - {{env "VAR"}}: 显式获取环境变量
//
// # 故障模拟
//
//   - [WithError]: 不返回 HTTP 响应，对应网络层失败
//   - [WithStatus]: 返回非 2xx 状态码与 JSON 错误体
//   - [WithDelay]: 延迟响应，期间响应 ctx 取消
//
// # 线程安全
//
// [Upstream] 是线程安全的，可以并发调用 Do 和 Stream。
package mock
