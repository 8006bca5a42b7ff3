package client

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
)

// nestError is the NestJS error envelope. message is a string or a list.
type nestError struct {
	StatusCode int             `json:"statusCode"`
	Message    json.RawMessage `json:"message"`
	Error      string          `json:"error"`
}

// decodeAPIError maps a backend error body onto an APIError. Validation
// messages whose leading word names a field of the request body become field
// errors; the rest stay form-level.
func decodeAPIError(method, path string, status int, body, request []byte) *APIError {
	apiErr := &APIError{Method: method, Path: path, Status: status}

	var envelope nestError
	var messages []string
	if err := json.Unmarshal(body, &envelope); err == nil {
		messages = decodeMessages(envelope.Message)
		if len(messages) == 0 && strings.TrimSpace(envelope.Error) != "" {
			messages = []string{envelope.Error}
		}
	} else if text := strings.TrimSpace(string(body)); text != "" && len(text) < 512 {
		messages = []string{text}
	}

	known := requestFieldPaths(request)
	for _, msg := range normalizeMessages(messages) {
		field := leadingField(msg, known)
		if field == "" {
			apiErr.Form = append(apiErr.Form, msg)
			continue
		}
		if apiErr.Fields == nil {
			apiErr.Fields = make(map[string]string)
		}
		if _, exists := apiErr.Fields[field]; !exists {
			apiErr.Fields[field] = msg
		}
	}
	apiErr.Message = strings.Join(apiErr.Form, "; ")
	if apiErr.Message == "" && len(apiErr.Fields) == 0 {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}

func decodeMessages(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return []string{single}
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	return nil
}

func normalizeMessages(messages []string) []string {
	if len(messages) == 0 {
		return nil
	}
	out := make([]string, 0, len(messages))
	seen := make(map[string]struct{}, len(messages))
	for _, message := range messages {
		trimmed := strings.TrimSpace(message)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// leadingField resolves the first word of msg against the known dotted
// paths, preferring the longest match ("measurements.0.value" -> "measurements").
func leadingField(msg string, known map[string]struct{}) string {
	if len(known) == 0 {
		return ""
	}
	first, _, _ := strings.Cut(msg, " ")
	segments := strings.Split(strings.Trim(first, ".:,"), ".")
	stripped := make([]string, 0, len(segments))
	for _, segment := range segments {
		if _, err := strconv.Atoi(segment); err == nil {
			continue
		}
		stripped = append(stripped, segment)
	}
	for end := len(stripped); end > 0; end-- {
		candidate := strings.Join(stripped[:end], ".")
		if _, ok := known[candidate]; ok {
			return candidate
		}
	}
	return ""
}

// requestFieldPaths collects the dotted object keys of a JSON request body.
func requestFieldPaths(request []byte) map[string]struct{} {
	if len(request) == 0 {
		return nil
	}
	var doc any
	if err := json.Unmarshal(request, &doc); err != nil {
		return nil
	}
	out := make(map[string]struct{})
	collectPaths(doc, "", out)
	return out
}

func collectPaths(node any, prefix string, out map[string]struct{}) {
	switch typed := node.(type) {
	case map[string]any:
		for key, child := range typed {
			path := key
			if prefix != "" {
				path = prefix + "." + key
			}
			out[path] = struct{}{}
			collectPaths(child, path, out)
		}
	case []any:
		for _, child := range typed {
			collectPaths(child, prefix, out)
		}
	}
}
