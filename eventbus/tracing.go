package eventbus

import "context"

// 链路元数据键
const (
	KeyCorrelationID = "correlation_id"
	KeyCausationID   = "causation_id"
)

type traceKey struct{}

type trace struct {
	correlationID string
	causationID   string
}

// TracingMiddleware 为事件注入 correlation_id/causation_id 并沿 Context 传播
//
// 规则：
//   - 顶层事件（Context 中无链路信息）：correlation_id 为自身 ID，无 causation_id
//   - 监听器内再次发布的事件：继承 correlation_id，causation_id 为触发它的事件 ID
type TracingMiddleware struct{}

func NewTracingMiddleware() *TracingMiddleware { return &TracingMiddleware{} }

func (m *TracingMiddleware) Name() string { return "Tracing" }

func (m *TracingMiddleware) Handle(ctx context.Context, evt *Event, next HandlerFunc) error {
	if evt == nil {
		return next(ctx, evt)
	}
	md := evt.GetMetadata()
	parent, hasParent := ctx.Value(traceKey{}).(trace)

	if s, _ := md[KeyCorrelationID].(string); s == "" {
		if hasParent && parent.correlationID != "" {
			md[KeyCorrelationID] = parent.correlationID
		} else {
			md[KeyCorrelationID] = evt.ID
		}
	}
	if s, _ := md[KeyCausationID].(string); s == "" && hasParent && parent.causationID != "" {
		md[KeyCausationID] = parent.causationID
	}

	ctx = context.WithValue(ctx, traceKey{}, trace{
		correlationID: evt.MetadataString(KeyCorrelationID),
		causationID:   evt.ID,
	})
	return next(ctx, evt)
}

// CorrelationID 读取 Context 中当前事件链的 correlation_id
func CorrelationID(ctx context.Context) string {
	t, _ := ctx.Value(traceKey{}).(trace)
	return t.correlationID
}
