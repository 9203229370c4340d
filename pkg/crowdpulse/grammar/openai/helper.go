// Package openai implements grammar.Helper on top of the OpenAI Responses API
// with strict JSON-schema output.
package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"

	"github.com/cognicore/crowdpulse/pkg/crowdpulse/grammar"
)

// DefaultModel is used when Config.Model is empty.
const DefaultModel = "gpt-5-mini"

const (
	questionPrompt = `You classify short audience comments from a live event.
Decide whether the comment is phrased as a question, including rhetorical questions and questions without a question mark.
Return JSON only.`

	phrasesPrompt = `You extract noun phrases from short audience comments from a live event.
Return the multi-word and single-word noun phrases that carry meaning, in the order they appear, lowercased.
Skip pronouns and generic words such as "thing" or "stuff". Return JSON only.`
)

type questionResponse struct {
	IsQuestion bool `json:"is_question" jsonschema:"required"`
}

type phrasesResponse struct {
	Phrases []string `json:"phrases" jsonschema:"required"`
}

var (
	questionSchema = generateSchema[questionResponse]()
	phrasesSchema  = generateSchema[phrasesResponse]()
)

// Config configures the helper.
type Config struct {
	APIKey          string
	BaseURL         string // optional, for compatible gateways
	Model           string
	MaxOutputTokens int64
	Logger          *slog.Logger
}

// Helper asks a language model for question detection and noun phrases.
type Helper struct {
	client    *openai.Client
	model     string
	maxOutput int64
	logger    *slog.Logger
}

var _ grammar.Helper = (*Helper)(nil)

// New creates a helper. An empty API key is rejected.
func New(cfg Config) (*Helper, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("openai grammar helper: api key is empty")
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := openai.NewClient(opts...)

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	maxOut := cfg.MaxOutputTokens
	if maxOut <= 0 {
		maxOut = 400
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Helper{client: &client, model: model, maxOutput: maxOut, logger: logger}, nil
}

// IsQuestion reports whether text reads as a question.
func (h *Helper) IsQuestion(ctx context.Context, text string) (bool, error) {
	var out questionResponse
	if err := h.ask(ctx, questionPrompt, text, "QuestionCheck", "Question classification JSON", questionSchema, &out); err != nil {
		return false, fmt.Errorf("question check: %w", err)
	}
	return out.IsQuestion, nil
}

// NounPhrases returns the noun phrases of text, cleaned and de-duplicated.
func (h *Helper) NounPhrases(ctx context.Context, text string) ([]string, error) {
	var out phrasesResponse
	if err := h.ask(ctx, phrasesPrompt, text, "NounPhrases", "Noun phrase extraction JSON", phrasesSchema, &out); err != nil {
		return nil, fmt.Errorf("noun phrases: %w", err)
	}
	return grammar.CleanPhrases(out.Phrases), nil
}

func (h *Helper) ask(ctx context.Context, instructions, input, name, description string, schema map[string]interface{}, out any) error {
	if h.client == nil {
		return grammar.ErrUnavailable
	}
	if strings.TrimSpace(input) == "" {
		return grammar.ErrUnavailable
	}

	params := responses.ResponseNewParams{
		Model:           h.model,
		MaxOutputTokens: openai.Int(h.maxOutput),
		Instructions:    openai.String(instructions),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: []responses.ResponseInputItemUnionParam{
				responses.ResponseInputItemParamOfMessage(input, responses.EasyInputMessageRoleUser),
			},
		},
		Text: responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
					Name:        name,
					Schema:      schema,
					Strict:      openai.Bool(true),
					Description: openai.String(description),
					Type:        "json_schema",
				},
			},
		},
	}

	resp, err := h.client.Responses.New(ctx, params)
	if err != nil {
		return err
	}

	if err := decodeModelJSON(resp.OutputText(), out); err != nil {
		h.logger.DebugContext(ctx, "unparsable model output", "request", name, "error", err)
		return err
	}
	return nil
}
