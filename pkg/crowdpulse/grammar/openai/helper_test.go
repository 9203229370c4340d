package openai

import (
	"errors"
	"io"
	"testing"
)

func TestDecodeModelJSON(t *testing.T) {
	var out questionResponse
	if err := decodeModelJSON("sure:\n{\"is_question\": true}\nthanks", &out); err != nil {
		t.Fatalf("decodeModelJSON: %v", err)
	}
	if !out.IsQuestion {
		t.Error("expected is_question true")
	}

	var phrases phrasesResponse
	if err := decodeModelJSON(`{"phrases":["supply chain","job security"]}`, &phrases); err != nil {
		t.Fatalf("decodeModelJSON: %v", err)
	}
	if len(phrases.Phrases) != 2 {
		t.Errorf("phrases = %v", phrases.Phrases)
	}
}

func TestDecodeModelJSONTruncated(t *testing.T) {
	var out questionResponse
	if err := decodeModelJSON(`{"is_question": tr`, &out); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("truncated output err = %v, want ErrUnexpectedEOF", err)
	}
	if err := decodeModelJSON("   ", &out); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("empty output err = %v, want ErrUnexpectedEOF", err)
	}
	if err := decodeModelJSON("no json here", &out); err == nil {
		t.Error("expected error for prose-only output")
	}
}

func TestSchemasAreStrict(t *testing.T) {
	for name, schema := range map[string]map[string]interface{}{
		"question": questionSchema,
		"phrases":  phrasesSchema,
	} {
		if schema["type"] != "object" {
			t.Errorf("%s: type = %v", name, schema["type"])
		}
		if schema["additionalProperties"] != false {
			t.Errorf("%s: additionalProperties = %v", name, schema["additionalProperties"])
		}
		req, ok := schema["required"].([]string)
		if !ok || len(req) != 1 {
			t.Errorf("%s: required = %#v", name, schema["required"])
		}
	}
}

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("expected error for empty api key")
	}

	h, err := New(Config{APIKey: "sk-test"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if h.model != DefaultModel || h.maxOutput != 400 {
		t.Errorf("defaults not applied: model=%q maxOutput=%d", h.model, h.maxOutput)
	}
}
