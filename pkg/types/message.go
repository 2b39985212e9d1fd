package types

// Well-known bus message keys. The bus treats every other key as opaque
// payload.
const (
	MessageKeyType      = "type"
	MessageKeyTimestamp = "timestamp"
)

// BusMessage is a JSON-shaped record routed by the message bus. Messages are
// treated as immutable once published; producers must not retain and mutate
// the map they hand to Publish.
type BusMessage map[string]any

// Type returns the routing key of the message, or the empty string when the
// message carries none.
func (m BusMessage) Type() string {
	t, _ := m[MessageKeyType].(string)
	return t
}

// Timestamp returns the publish timestamp in Unix milliseconds, or zero when
// the bus has not stamped the message yet.
func (m BusMessage) Timestamp() int64 {
	switch v := m[MessageKeyTimestamp].(type) {
	case int64:
		return v
	case float64:
		return int64(v)
	}
	return 0
}

// Clone returns a shallow copy of the message. Nested values are shared;
// they are treated as immutable by convention.
func (m BusMessage) Clone() BusMessage {
	c := make(BusMessage, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

// BusMessageFilter is a map of required key/value equalities a message must
// satisfy to match. Values are compared after normalization (see
// ValuesEqual). An empty filter matches every message.
type BusMessageFilter map[string]any

// Matches reports whether the message satisfies every equality the filter
// requires.
func (f BusMessageFilter) Matches(m BusMessage) bool {
	for k, want := range f {
		got, ok := m[k]
		if !ok {
			return false
		}
		if !ValuesEqual(want, got) {
			return false
		}
	}
	return true
}
