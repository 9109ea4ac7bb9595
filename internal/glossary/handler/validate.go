package handler

import (
	"fmt"
	"sort"
	"strings"
)

const (
	maxContentIDLength = 512
	maxTextLength      = 1 << 20
	maxFields          = 64
)

// MatchRequest is the JSON body of POST /api/v1/match. Either text or
// fields must be present; fields are joined in the configured scan order.
type MatchRequest struct {
	ContentID string            `json:"content_id"`
	Text      *string           `json:"text,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
}

// ReloadRequest is the optional JSON body of POST /api/v1/reload. A nil
// MuteTags keeps the current mute list.
type ReloadRequest struct {
	MuteTags *string `json:"mute_tags,omitempty"`
}

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s:%s", field, msg))
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}

// ValidateMatchRequest checks the identity and size of a match request.
func ValidateMatchRequest(req *MatchRequest) error {
	errs := make(map[string]string)

	id := strings.TrimSpace(req.ContentID)
	if id == "" {
		errs["content_id"] = "content_id is required"
	} else if len(id) > maxContentIDLength {
		errs["content_id"] = fmt.Sprintf("content_id must be at most %d characters", maxContentIDLength)
	}

	switch {
	case req.Text == nil && req.Fields == nil:
		errs["text"] = "either text or fields is required"
	case req.Text != nil && req.Fields != nil:
		errs["text"] = "text and fields are mutually exclusive"
	case req.Text != nil && len(*req.Text) > maxTextLength:
		errs["text"] = fmt.Sprintf("text must be at most %d bytes", maxTextLength)
	case req.Fields != nil:
		if len(req.Fields) > maxFields {
			errs["fields"] = fmt.Sprintf("at most %d fields are allowed", maxFields)
			break
		}
		total := 0
		for _, v := range req.Fields {
			total += len(v)
		}
		if total > maxTextLength {
			errs["fields"] = fmt.Sprintf("fields must total at most %d bytes", maxTextLength)
		}
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
