package kratos

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	client "github.com/ory/kratos-client-go"

	"github.com/goliatone/go-educonnect"
)

// duplicateMarkers are fragments of the messages Kratos returns when the
// identifier is already registered.
var duplicateMarkers = []string{
	"exists already",
	"already exists",
	"duplicate",
	"already registered",
}

// transformError maps a failed Kratos call to the package errors of
// educonnect. resp may be nil when the request never reached Kratos.
func transformError(err error, resp *http.Response, operation string) error {
	if err == nil {
		return nil
	}

	status := 0
	if resp != nil {
		status = resp.StatusCode
	}

	meta := map[string]any{"operation": operation}
	if status > 0 {
		meta["http_status"] = status
	}

	if status == 0 || status >= http.StatusInternalServerError {
		return rebase(educonnect.ErrIdentityUnavailable, err, meta)
	}

	message := ""
	var apiErr *client.GenericOpenAPIError
	if errors.As(err, &apiErr) {
		message = errorMessage(apiErr.Body())
	}

	if message != "" {
		meta["reason"] = message
	}

	switch {
	case status == http.StatusConflict, isDuplicate(message):
		return rebase(educonnect.ErrIdentifierTaken, err, meta)
	case status == http.StatusTooManyRequests:
		return rebase(educonnect.ErrIdentityUnavailable, err, meta)
	default:
		return rebase(educonnect.ErrCredentials, err, meta)
	}
}

func isDuplicate(message string) bool {
	message = strings.ToLower(message)
	for _, marker := range duplicateMarkers {
		if strings.Contains(message, marker) {
			return true
		}
	}
	return false
}

// errorMessage extracts the first human readable message of a Kratos error
// body. Flow errors carry them under ui.messages or ui.nodes[].messages,
// generic errors under error.message or message.
func errorMessage(body []byte) string {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return strings.TrimSpace(string(body))
	}

	if ui, ok := payload["ui"].(map[string]any); ok {
		if text := firstText(ui["messages"]); text != "" {
			return text
		}
		if nodes, ok := ui["nodes"].([]any); ok {
			for _, node := range nodes {
				if nodeMap, ok := node.(map[string]any); ok {
					if text := firstText(nodeMap["messages"]); text != "" {
						return text
					}
				}
			}
		}
	}

	if errObj, ok := payload["error"].(map[string]any); ok {
		if reason, ok := errObj["reason"].(string); ok && reason != "" {
			return reason
		}
		if message, ok := errObj["message"].(string); ok && message != "" {
			return message
		}
	}

	for _, key := range []string{"reason", "message"} {
		if message, ok := payload[key].(string); ok && message != "" {
			return message
		}
	}

	return ""
}

func firstText(raw any) string {
	messages, ok := raw.([]any)
	if !ok {
		return ""
	}
	for _, msg := range messages {
		if msgMap, ok := msg.(map[string]any); ok {
			if text, ok := msgMap["text"].(string); ok && text != "" {
				return text
			}
		}
	}
	return ""
}

// rebase returns a copy of base with cause as its source.
func rebase(base *goerrors.Error, cause error, meta map[string]any) error {
	out := goerrors.New(base.Message, base.Category).
		WithTextCode(base.TextCode).
		WithCode(base.Code)
	if len(meta) > 0 {
		out = out.WithMetadata(meta)
	}
	out.Source = cause
	return out
}
