package providers

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/PadsterH2012/rpger-content-extractor-sub000/pkg/formatting"
)

// buildClassificationSchema returns a JSON-Schema map describing the
// classification response contract. It is validated locally; failures
// downgrade the result rather than discarding it.
func buildClassificationSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": true,
		"properties": map[string]any{
			"game_type":  map[string]any{"type": "string", "minLength": 1},
			"edition":    map[string]any{"type": "string", "minLength": 1},
			"book_type":  map[string]any{"type": "string", "minLength": 1},
			"confidence": map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0},
			"reasoning":  map[string]any{"type": "string"},
		},
		"required": []string{"game_type", "edition", "book_type", "confidence"},
	}
}

// buildLabelSchema returns a JSON-Schema map for a categorization response
// of exactly count labels drawn from the allowed categories.
func buildLabelSchema(count int, categories []string) map[string]any {
	category := map[string]any{"type": "string"}
	if len(categories) > 0 {
		enum := make([]any, len(categories))
		for i, c := range categories {
			enum[i] = c
		}
		category["enum"] = enum
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": true,
		"properties": map[string]any{
			"labels": map[string]any{
				"type":     "array",
				"minItems": count,
				"maxItems": count,
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"category":   category,
						"confidence": map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0},
					},
					"required": []string{"category"},
				},
			},
		},
		"required": []string{"labels"},
	}
}

// validateAgainstSchema checks data against a JSON-Schema map.
func validateAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}

	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}

	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}

	return schema.Validate(v)
}

type classificationPayload struct {
	GameType   string   `json:"game_type"`
	Edition    string   `json:"edition"`
	BookType   string   `json:"book_type"`
	Confidence *float64 `json:"confidence"`
	Reasoning  string   `json:"reasoning"`
}

type labelPayload struct {
	Category   string   `json:"category"`
	Confidence *float64 `json:"confidence"`
}

type labelsEnvelope struct {
	Labels []labelPayload `json:"labels"`
}

// decodeClassification parses a provider response into a normalized result.
// Unparseable content is a malformed provider error. Content that parses
// but violates the schema is repaired and marked degraded: missing strings
// become "Unknown" and confidence is clamped into [0,1].
func decodeClassification(provider Name, model string, content string, usage TokenUsage) (*ClassificationResult, error) {
	payload, err := formatting.Parse[classificationPayload](content)
	if err != nil {
		return nil, newError(provider, KindMalformed, err)
	}

	result := &ClassificationResult{
		GameType:  payload.GameType,
		Edition:   payload.Edition,
		BookType:  payload.BookType,
		Reasoning: payload.Reasoning,
		Usage:     usage,
		Provider:  provider,
		Model:     model,
	}

	if err := validateAgainstSchema(buildClassificationSchema(), mustMarshal(payload)); err != nil {
		result.Degraded = true
	}

	if result.GameType == "" {
		result.GameType = "Unknown"
	}
	if result.Edition == "" {
		result.Edition = "Unknown"
	}
	if result.BookType == "" {
		result.BookType = "Unknown"
	}

	if payload.Confidence != nil {
		result.Confidence = clampConfidence(*payload.Confidence)
	}

	return result, nil
}

// decodeLabels parses a categorization response and enforces the ordering
// contract: the label count must equal the section count or the response
// is malformed.
func decodeLabels(provider Name, content string, count int) ([]LabelSet, error) {
	envelope, err := formatting.Parse[labelsEnvelope](content)
	if err != nil || envelope.Labels == nil {
		bare, bareErr := formatting.Parse[[]labelPayload](content)
		if bareErr != nil {
			return nil, newError(provider, KindMalformed, fmt.Errorf("parse labels: %w", bareErr))
		}
		envelope.Labels = bare
	}

	if len(envelope.Labels) != count {
		return nil, newError(provider, KindMalformed,
			fmt.Errorf("label count %d does not match section count %d", len(envelope.Labels), count))
	}

	labels := make([]LabelSet, count)
	for i, l := range envelope.Labels {
		labels[i] = LabelSet{Category: l.Category}
		if l.Confidence != nil {
			labels[i].Confidence = clampConfidence(*l.Confidence)
		}
	}

	return labels, nil
}

func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

func mustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
