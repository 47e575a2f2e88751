package relay

import (
	"encoding/json"
	"time"

	apperrors "projectvoice/errors"
	"projectvoice/eventbus"
)

// Envelope 事件的线上编码
type Envelope struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Timestamp int64           `json:"timestamp"` // unix 纳秒
	Payload   json.RawMessage `json:"payload"`
	Metadata  map[string]any  `json:"metadata"`
}

// Time 返回事件时间
func (e *Envelope) Time() time.Time {
	return time.Unix(0, e.Timestamp)
}

// Record 交给 ISink 的一条待发送记录
type Record struct {
	ID   string
	Name string
	Data []byte
}

// Encode 将事件编码为 JSON 信封
func Encode(evt *eventbus.Event) (Record, error) {
	if evt == nil {
		return Record{}, apperrors.NewError(apperrors.ErrCodeInvalidInput, "nil event")
	}
	payload, err := json.Marshal(evt.Payload)
	if err != nil {
		return Record{}, apperrors.WrapError(err, apperrors.ErrCodeInvalidInput, "encode event payload").
			WithContext("event", evt.Name)
	}
	metadata := evt.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	ts := evt.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	data, err := json.Marshal(Envelope{
		ID:        evt.ID,
		Name:      evt.Name,
		Timestamp: ts.UnixNano(),
		Payload:   payload,
		Metadata:  metadata,
	})
	if err != nil {
		return Record{}, apperrors.WrapError(err, apperrors.ErrCodeInvalidInput, "encode event envelope").
			WithContext("event", evt.Name)
	}
	return Record{ID: evt.ID, Name: evt.Name, Data: data}, nil
}

// Decode 解析 JSON 信封
func Decode(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, apperrors.WrapError(err, apperrors.ErrCodeInvalidInput, "decode event envelope")
	}
	if env.Metadata == nil {
		env.Metadata = map[string]any{}
	}
	return &env, nil
}
