package httputil

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

const maxBodySize = 1 << 20

// ErrEmptyBody is returned when a request carries no usable JSON object.
var ErrEmptyBody = errors.New("empty body")

// DecodeObject reads the request body as a non-empty JSON object.
// Missing, malformed, non-object and empty-object payloads all yield ErrEmptyBody.
// Numbers are kept as json.Number so re-encoding reproduces them exactly.
func DecodeObject(r *http.Request) (map[string]interface{}, error) {
	raw, err := io.ReadAll(http.MaxBytesReader(nil, r.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmptyBody, err)
	}

	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, ErrEmptyBody
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var obj map[string]interface{}
	if err := dec.Decode(&obj); err != nil || len(obj) == 0 {
		return nil, ErrEmptyBody
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, ErrEmptyBody
	}

	return obj, nil
}

// DecodeJSON decodes a non-empty JSON object from the request body into dst.
func DecodeJSON(r *http.Request, dst interface{}) error {
	obj, err := DecodeObject(r)
	if err != nil {
		return err
	}

	raw, err := json.Marshal(obj)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEmptyBody, err)
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrEmptyBody, err)
	}
	return nil
}
