package result

import "encoding/json"

// DecodeJSON unmarshals payload into a T, returning the outcome as a Result.
func DecodeJSON[T any](payload []byte) Result[T] {
	var out T
	if err := json.Unmarshal(payload, &out); err != nil {
		return Err[T](err)
	}
	return Ok(out)
}

// EncodeJSON marshals v, returning the outcome as a Result.
func EncodeJSON(v any) Result[[]byte] {
	payload, err := json.Marshal(v)
	if err != nil {
		return Err[[]byte](err)
	}
	return Ok(payload)
}
