package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cnmd-sb-git/aiproxy-sub001/internal/billing"
	"github.com/cnmd-sb-git/aiproxy-sub001/internal/client"
	"github.com/cnmd-sb-git/aiproxy-sub001/internal/model"
	"github.com/cnmd-sb-git/aiproxy-sub001/internal/registry"
	"github.com/cnmd-sb-git/aiproxy-sub001/internal/utils/log"
	"github.com/tmaxmax/go-sse"
)

// Config 执行器运行参数，由 conf 注入，测试时可自由构造
type Config struct {
	RetryTimes       int
	DefaultTimeout   time.Duration
	// TimeoutFor 按渠道模型类型查超时，为 nil 时统一用 DefaultTimeout
	TimeoutFor       func(modelType string) time.Duration
	GroupMaxTokenNum int64
	// ConsumeRatio 按分组消费等级查折扣，为 nil 时不打折
	ConsumeRatio    func(level int) float64
	RequestBodyMax  int
	ResponseBodyMax int
}

// LogSink receives the consumption record of every finished request.
// Implementations must never block the relay path.
type LogSink interface {
	Enqueue(entry model.ConsumptionLog)
}

// GroupUsage applies billed usage back onto the group counters.
type GroupUsage interface {
	AddUsage(groupID string, tokens int64, amount float64)
}

// Request 一次已鉴权的中继请求
type Request struct {
	RequestID string
	Group     *model.Group
	Model     string
	Body      []byte
	Header    http.Header
	Stream    bool
	IP        string
}

// Executor drives the full relay lifecycle for one request: quota and
// price guards, channel selection, the retry loop, response streaming,
// outcome reporting and billing.
type Executor struct {
	cfg    Config
	reg    *registry.Registry
	sel    *Selector
	prices billing.PriceSource
	logs   LogSink
	groups GroupUsage

	clientFor func(*model.Channel) (*http.Client, error)
	now       func() time.Time
}

func NewExecutor(cfg Config, reg *registry.Registry, sel *Selector, prices billing.PriceSource, logs LogSink, groups GroupUsage) *Executor {
	if cfg.RetryTimes < 0 {
		cfg.RetryTimes = 0
	}
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = 60 * time.Second
	}
	return &Executor{
		cfg:       cfg,
		reg:       reg,
		sel:       sel,
		prices:    prices,
		logs:      logs,
		groups:    groups,
		clientFor: client.ForChannel,
		now:       time.Now,
	}
}

// SetClientFactory 测试注入用
func (e *Executor) SetClientFactory(fn func(*model.Channel) (*http.Client, error)) {
	e.clientFor = fn
}

func (e *Executor) SetNow(now func() time.Time) {
	e.now = now
}

type attemptResult struct {
	code          int
	usage         model.Usage
	usageFound    bool
	respBody      string
	respTruncated bool
	delivered     bool
	firstByteAt   time.Time
	err           error
}

type outcome struct {
	channelID   int
	code        int
	retries     int
	requestAt   time.Time
	retryAt     time.Time
	firstByteAt time.Time
	usage       model.Usage
	respBody    string
	respTrunc   bool
	failure     *Failure
}

// Relay executes the request against upstream channels and renders the
// response through sink. Retries happen only before the first byte has
// been delivered to the caller; after that any upstream failure is
// terminal. Every attempt is reported to the health registry.
func (e *Executor) Relay(ctx context.Context, req *Request, sink Sink) error {
	o := outcome{requestAt: e.now()}

	if err := billing.CheckQuota(req.Group, e.cfg.GroupMaxTokenNum); err != nil {
		f := newFailure(KindQuotaExceeded, http.StatusForbidden, err)
		o.code, o.failure = f.StatusCode, f
		sink.Fail(f)
		e.finish(req, model.Price{}, false, o)
		return f
	}

	// 无价格直接拒绝，绝不按零价放行
	price, priced := e.prices.PriceFor(req.Model)
	if !priced {
		f := newFailure(KindNoPriceData, http.StatusInternalServerError,
			fmt.Errorf("%w: %s", billing.ErrNoPriceData, req.Model))
		o.code, o.failure = f.StatusCode, f
		sink.Fail(f)
		e.finish(req, model.Price{}, false, o)
		return f
	}

	tried := make(map[int]struct{})
	var lastErr error
	var lastCode int
	for attempt := 0; attempt <= e.cfg.RetryTimes; attempt++ {
		ch, err := e.sel.Pick(req.Model, tried)
		if err != nil {
			f := err.(*Failure)
			if lastErr != nil {
				// 候选在重试期间耗尽，带上最后一次上游错误
				f = newFailure(KindUpstreamFailure, upstreamCode(lastCode), lastErr)
			}
			o.code, o.failure = f.StatusCode, f
			sink.Fail(f)
			e.finish(req, price, true, o)
			return f
		}
		tried[ch.ID] = struct{}{}
		if attempt > 0 {
			o.retries = attempt
			o.retryAt = e.now()
		}

		res := e.attempt(ctx, &ch, req, sink)
		e.reg.ReportOutcome(ch.ID, req.Model, res.err == nil)

		o.channelID = ch.ID
		if res.usageFound {
			o.usage = res.usage
		}
		if o.firstByteAt.IsZero() && !res.firstByteAt.IsZero() {
			o.firstByteAt = res.firstByteAt
		}
		if res.respBody != "" {
			o.respBody, o.respTrunc = res.respBody, res.respTruncated
		}

		if res.err == nil {
			o.code = res.code
			sink.Done()
			e.finish(req, price, true, o)
			return nil
		}
		lastErr, lastCode = res.err, res.code

		if ctx.Err() != nil {
			// 调用方已断开，上游随 context 取消，记失败但不再重试
			f := newFailure(KindUpstreamFailure, 499, res.err)
			o.code, o.failure = f.StatusCode, f
			e.finish(req, price, true, o)
			return f
		}
		if res.delivered {
			f := newFailure(KindPartialStreamFailure, upstreamCode(res.code), res.err)
			o.code, o.failure = f.StatusCode, f
			sink.Fail(f)
			e.finish(req, price, true, o)
			return f
		}
		log.Warnf("relay attempt %d on channel %d failed: %v", attempt+1, ch.ID, res.err)
	}

	f := newFailure(KindUpstreamFailure, upstreamCode(lastCode), lastErr)
	o.code, o.failure = f.StatusCode, f
	sink.Fail(f)
	e.finish(req, price, true, o)
	return f
}

// upstreamCode 上游未给出有效错误码时按 502 处理
func upstreamCode(code int) int {
	if code < http.StatusBadRequest {
		return http.StatusBadGateway
	}
	return code
}

func (e *Executor) timeoutFor(modelType string) time.Duration {
	if e.cfg.TimeoutFor != nil {
		if d := e.cfg.TimeoutFor(modelType); d > 0 {
			return d
		}
	}
	return e.cfg.DefaultTimeout
}

func (e *Executor) attempt(ctx context.Context, ch *model.Channel, req *Request, sink Sink) attemptResult {
	var res attemptResult

	actx, cancel := context.WithTimeout(ctx, e.timeoutFor(ch.ModelType))
	defer cancel()

	body := req.Body
	if upstream := ch.UpstreamModel(req.Model); upstream != req.Model {
		body = rewriteModel(body, upstream)
	}

	hreq, err := http.NewRequestWithContext(actx, http.MethodPost, ch.BaseUrl, bytes.NewReader(body))
	if err != nil {
		res.err = fmt.Errorf("build request: %w", err)
		return res
	}
	copyHeaders(hreq.Header, req.Header)
	if hreq.Header.Get("Content-Type") == "" {
		hreq.Header.Set("Content-Type", "application/json")
	}
	hreq.Header.Set("Authorization", "Bearer "+ch.ApiKey)

	hc, err := e.clientFor(ch)
	if err != nil {
		res.err = fmt.Errorf("build client: %w", err)
		return res
	}

	resp, err := hc.Do(hreq)
	if err != nil {
		res.err = fmt.Errorf("send request: %w", err)
		return res
	}
	defer resp.Body.Close()
	res.code = resp.StatusCode

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, int64(e.cfg.ResponseBodyMax)+1))
		res.respBody, res.respTruncated = clip(data, e.cfg.ResponseBodyMax)
		res.err = fmt.Errorf("upstream status %d: %s", resp.StatusCode, res.respBody)
		return res
	}

	if req.Stream && strings.Contains(resp.Header.Get("Content-Type"), "text/event-stream") {
		e.relayStream(resp.Body, sink, &res)
	} else {
		e.relayUnary(resp.Body, sink, &res)
	}
	return res
}

func (e *Executor) relayStream(body io.Reader, sink Sink, res *attemptResult) {
	var capture bytes.Buffer
	var toolCalls int64
	for ev, err := range sse.Read(body, nil) {
		if err != nil {
			res.err = fmt.Errorf("read stream: %w", err)
			return
		}
		data := ev.Data
		if data == "" {
			continue
		}
		if res.firstByteAt.IsZero() {
			res.firstByteAt = e.now()
		}
		if data == "[DONE]" {
			break
		}
		// usage 块携带的是累计值，直接覆盖；工具调用按事件累加
		if u, ok := parseUsage([]byte(data)); ok {
			res.usage, res.usageFound = u, true
		}
		if toolCalls += countToolCalls([]byte(data)); toolCalls > 0 {
			res.usage.ToolCallsCount = toolCalls
			res.usageFound = true
		}
		if e.cfg.ResponseBodyMax <= 0 || capture.Len() < e.cfg.ResponseBodyMax {
			capture.WriteString(data)
			capture.WriteByte('\n')
		}
		// 首字节一旦写出就不可再重试
		res.delivered = true
		if err := sink.Chunk([]byte(data)); err != nil {
			res.err = fmt.Errorf("write to client: %w", err)
			return
		}
	}
	res.respBody, res.respTruncated = clip(capture.Bytes(), e.cfg.ResponseBodyMax)
}

func (e *Executor) relayUnary(body io.Reader, sink Sink, res *attemptResult) {
	data, err := io.ReadAll(body)
	if err != nil {
		res.err = fmt.Errorf("read response: %w", err)
		return
	}
	res.firstByteAt = e.now()
	if u, ok := parseUsage(data); ok {
		res.usage, res.usageFound = u, true
	}
	if n := countToolCalls(data); n > 0 {
		res.usage.ToolCallsCount = n
		res.usageFound = true
	}
	res.respBody, res.respTruncated = clip(data, e.cfg.ResponseBodyMax)
	res.delivered = true
	if err := sink.Chunk(data); err != nil {
		res.err = fmt.Errorf("write to client: %w", err)
	}
}

// Probe sends a minimal completion request through the channel to check
// whether a banned pair has recovered.
func (e *Executor) Probe(ctx context.Context, ch *model.Channel, modelName string) error {
	payload, err := json.Marshal(map[string]any{
		"model":      ch.UpstreamModel(modelName),
		"max_tokens": 1,
		"messages": []map[string]string{
			{"role": "user", "content": "hi"},
		},
	})
	if err != nil {
		return err
	}

	actx, cancel := context.WithTimeout(ctx, e.timeoutFor(ch.ModelType))
	defer cancel()

	hreq, err := http.NewRequestWithContext(actx, http.MethodPost, ch.BaseUrl, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build probe request: %w", err)
	}
	hreq.Header.Set("Content-Type", "application/json")
	hreq.Header.Set("Authorization", "Bearer "+ch.ApiKey)

	hc, err := e.clientFor(ch)
	if err != nil {
		return err
	}
	resp, err := hc.Do(hreq)
	if err != nil {
		return fmt.Errorf("send probe: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("probe status %d", resp.StatusCode)
	}
	return nil
}

// finish settles billing and emits the consumption record. It runs on
// every exit path of Relay, success or failure.
func (e *Executor) finish(req *Request, price model.Price, priced bool, o outcome) {
	ratio := 1.0
	if e.cfg.ConsumeRatio != nil && req.Group != nil {
		ratio = e.cfg.ConsumeRatio(req.Group.ConsumeLevel)
	}
	var amount float64
	if priced {
		amount = billing.Amount(o.code, o.usage, price, ratio)
	}

	if e.groups != nil && req.Group != nil {
		e.groups.AddUsage(req.Group.ID, o.usage.TotalTokens, amount)
	}
	if e.logs == nil {
		return
	}

	reqBody, reqTrunc := clip(req.Body, e.cfg.RequestBodyMax)
	entry := model.ConsumptionLog{
		RequestID:  req.RequestID,
		ChannelID:  o.channelID,
		Model:      req.Model,
		Code:       o.code,
		IP:         req.IP,
		RetryTimes: o.retries,
		RequestAt:  o.requestAt.UnixMilli(),
		Usage:      o.usage,
		UsedAmount: amount,
		Detail: model.RequestDetail{
			RequestBody:           reqBody,
			ResponseBody:          o.respBody,
			RequestBodyTruncated:  reqTrunc,
			ResponseBodyTruncated: o.respTrunc,
		},
	}
	if req.Group != nil {
		entry.GroupID = req.Group.ID
	}
	if !o.firstByteAt.IsZero() {
		entry.FirstByteAt = o.firstByteAt.UnixMilli()
	}
	if !o.retryAt.IsZero() {
		entry.RetryAt = o.retryAt.UnixMilli()
	}
	if o.failure != nil {
		entry.Content = o.failure.Error()
	}
	e.logs.Enqueue(entry)
}

func rewriteModel(body []byte, upstream string) []byte {
	var m map[string]any
	if err := json.Unmarshal(body, &m); err != nil {
		return body
	}
	m["model"] = upstream
	out, err := json.Marshal(m)
	if err != nil {
		return body
	}
	return out
}

var skipHeaders = map[string]struct{}{
	"Authorization":   {},
	"Host":            {},
	"Connection":      {},
	"Content-Length":  {},
	"Accept-Encoding": {},
}

func copyHeaders(dst, src http.Header) {
	for k, vs := range src {
		if _, skip := skipHeaders[http.CanonicalHeaderKey(k)]; skip {
			continue
		}
		for _, v := range vs {
			dst.Add(k, v)
		}
	}
}

func clip(b []byte, max int) (string, bool) {
	if max <= 0 || len(b) <= max {
		return string(b), false
	}
	return string(b[:max]), true
}
