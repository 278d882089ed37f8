// Package json wraps the sonic JSON implementation behind the familiar
// encoding/json surface used across the codebase.
package json

import (
	"io"

	"github.com/bytedance/sonic"
)

func Marshal(v interface{}) ([]byte, error) {
	return sonic.Marshal(v)
}

func MarshalString(v interface{}) (string, error) {
	return sonic.MarshalString(v)
}

func MarshalIndent(v interface{}, prefix, indent string) ([]byte, error) {
	return sonic.MarshalIndent(v, prefix, indent)
}

func Unmarshal(data []byte, v interface{}) error {
	return sonic.Unmarshal(data, v)
}

func UnmarshalString(data string, v interface{}) error {
	return sonic.UnmarshalString(data, v)
}

func NewDecoder(r io.Reader) sonic.Decoder {
	return sonic.ConfigDefault.NewDecoder(r)
}

func NewEncoder(w io.Writer) sonic.Encoder {
	return sonic.ConfigDefault.NewEncoder(w)
}
