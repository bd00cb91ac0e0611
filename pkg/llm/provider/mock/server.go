package mock

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/lwmacct/251215-go-pkg-chatgw/pkg/llm/core"
)

// ServeHTTP 将 Upstream 暴露为 HTTP 服务
//
// 请求头 Accept 包含 text/event-stream 时返回 SSE 流，否则返回缓冲响应。
// WithError 模拟的网络错误会中断连接，客户端拿不到 HTTP 响应。
//
//	server := httptest.NewServer(mock.New())
//	defer server.Close()
func (u *Upstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	headers := make(map[string]string, len(r.Header))
	for k := range r.Header {
		headers[k] = r.Header.Get(k)
	}

	req := &core.Request{
		Method:  r.Method,
		URL:     "http://" + r.Host + r.URL.RequestURI(),
		Headers: headers,
		Body:    body,
	}

	if strings.Contains(r.Header.Get("Accept"), "text/event-stream") {
		u.serveStream(w, r, req)
		return
	}

	resp, err := u.Do(r.Context(), req)
	if err != nil {
		abort(w, err)
		return
	}
	writeHeader(w, resp.Header, resp.StatusCode)
	_, _ = w.Write(resp.Body)
}

func (u *Upstream) serveStream(w http.ResponseWriter, r *http.Request, req *core.Request) {
	resp, err := u.Stream(r.Context(), req)
	if err != nil {
		abort(w, err)
		return
	}
	defer resp.Body.Close()

	writeHeader(w, resp.Header, resp.StatusCode)
	flusher, _ := w.(http.Flusher)

	buf := make([]byte, 512)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if err != nil {
			return
		}
	}
}

func writeHeader(w http.ResponseWriter, header http.Header, status int) {
	for k, v := range header {
		w.Header()[k] = v
	}
	w.WriteHeader(status)
}

// abort 请求体非法时返回 400，其余错误中断连接
func abort(w http.ResponseWriter, err error) {
	var syntaxErr *jsonBodyError
	if errors.As(err, &syntaxErr) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	panic(http.ErrAbortHandler)
}
