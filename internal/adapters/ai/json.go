package ai

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"

	"brandpulse/pkg/errors"
)

// DecodeJSON strictly decodes a model answer into v. A surrounding
// markdown code fence is tolerated; unknown fields and trailing data are not.
func DecodeJSON(text string, v any) error {
	body := strings.TrimSpace(text)
	if strings.HasPrefix(body, "```") {
		body = strings.TrimPrefix(body, "```json")
		body = strings.TrimPrefix(body, "```")
		body = strings.TrimSuffix(strings.TrimSpace(body), "```")
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(body)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Join(errors.ErrExternal, errors.Wrap(err, "decode model output"))
	}
	if _, err := dec.Token(); err != io.EOF {
		return errors.Wrap(errors.ErrExternal, "trailing data after model output")
	}
	return nil
}
