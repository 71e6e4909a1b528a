package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Conversation is a named conversation thread.
type Conversation struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

const conversationListSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "array",
  "items": {
    "type": "object",
    "required": ["id", "title"],
    "properties": {
      "id": {"type": "string"},
      "title": {"type": "string"}
    }
  }
}`

var conversationListValidator = jsonschema.MustCompileString("conversations.schema.json", conversationListSchema)

// demoConversations returns a fresh copy of the fixed conversation list.
func demoConversations() []Conversation {
	return []Conversation{
		{ID: "1", Title: "Demo1"},
		{ID: "2", Title: "Demo2"},
	}
}

func (s *Server) conversationRoutes(r chi.Router) {
	r.Get("/", s.handleListConversations)
}

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	body, err := encodeValidated(s.conversationSchema, demoConversations())
	if err != nil {
		s.logger.Error("conversation list response invalid: %v", err)
		writeError(w, http.StatusInternalServerError, "invalid response")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// encodeValidated marshals v and checks the encoded document against
// schema before it is written.
func encodeValidated(schema *jsonschema.Schema, v interface{}) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode response: %w", err)
	}

	var doc interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("response does not match schema: %w", err)
	}

	return body, nil
}
