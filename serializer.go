package revstream

import "encoding/json"

// Serializer converts values to and from the payload bytes stored in the
// segment. Implementations must be deterministic and must produce payloads
// within the segment's maximum record size; the client stores payload bytes
// verbatim and hands them back to Deserialize unaltered.
type Serializer[T any] interface {
	Serialize(value T) ([]byte, error)
	Deserialize(data []byte) (T, error)
}

// JSONSerializer serializes values with encoding/json.
type JSONSerializer[T any] struct{}

func (JSONSerializer[T]) Serialize(value T) ([]byte, error) {
	return json.Marshal(value)
}

func (JSONSerializer[T]) Deserialize(data []byte) (T, error) {
	var value T
	err := json.Unmarshal(data, &value)
	return value, err
}

// StringSerializer stores strings as their raw bytes.
type StringSerializer struct{}

func (StringSerializer) Serialize(value string) ([]byte, error) {
	return []byte(value), nil
}

func (StringSerializer) Deserialize(data []byte) (string, error) {
	return string(data), nil
}

// BytesSerializer stores byte slices verbatim. Serialize and Deserialize
// copy so callers and the client never alias each other's buffers.
type BytesSerializer struct{}

func (BytesSerializer) Serialize(value []byte) ([]byte, error) {
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (BytesSerializer) Deserialize(data []byte) ([]byte, error) {
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}
