package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/cnmd-sb-git/aiproxy-sub001/internal/relay"
	"github.com/gin-gonic/gin"
)

type relayError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func errorBody(f *relay.Failure) relayError {
	var e relayError
	e.Error.Message = f.Error()
	e.Error.Type = f.Kind.String()
	return e
}

// sseSink 把执行器产出的数据块渲染为 SSE 流。首个 Chunk 写出响应头，
// 之后的失败只能以错误事件收尾。
type sseSink struct {
	c           *gin.Context
	wroteHeader bool
}

func newSSESink(c *gin.Context) *sseSink {
	return &sseSink{c: c}
}

func (s *sseSink) writeHeader() {
	if s.wroteHeader {
		return
	}
	h := s.c.Writer.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	s.c.Writer.WriteHeader(http.StatusOK)
	s.wroteHeader = true
}

func (s *sseSink) Chunk(data []byte) error {
	s.writeHeader()
	if _, err := fmt.Fprintf(s.c.Writer, "data: %s\n\n", data); err != nil {
		return err
	}
	s.c.Writer.Flush()
	return nil
}

func (s *sseSink) Done() {
	s.writeHeader()
	fmt.Fprint(s.c.Writer, "data: [DONE]\n\n")
	s.c.Writer.Flush()
}

func (s *sseSink) Fail(f *relay.Failure) {
	if s.c.Writer.Written() {
		b, _ := json.Marshal(errorBody(f))
		fmt.Fprintf(s.c.Writer, "data: %s\n\n", b)
		s.c.Writer.Flush()
		return
	}
	s.c.JSON(f.StatusCode, errorBody(f))
}

// jsonSink 非流式响应直接透传上游 JSON
type jsonSink struct {
	c *gin.Context
}

func newJSONSink(c *gin.Context) *jsonSink {
	return &jsonSink{c: c}
}

func (s *jsonSink) Chunk(data []byte) error {
	s.c.Data(http.StatusOK, "application/json", data)
	return nil
}

func (s *jsonSink) Done() {}

func (s *jsonSink) Fail(f *relay.Failure) {
	if s.c.Writer.Written() {
		return
	}
	s.c.JSON(f.StatusCode, errorBody(f))
}
