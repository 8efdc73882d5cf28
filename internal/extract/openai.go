package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIExtractor classifies documents and parses citizen data with a chat
// model. Responses are requested as JSON so parsing stays deterministic.
type OpenAIExtractor struct {
	client *openai.Client
	model  string
}

func NewOpenAIExtractor(apiKey, model string) *OpenAIExtractor {
	return &OpenAIExtractor{client: openai.NewClient(apiKey), model: model}
}

const classifyPrompt = `Classify the following German municipal document.
Answer with exactly one of: landlord_confirmation, address_form, unknown.

Document text:
%s`

func (e *OpenAIExtractor) Classify(ctx context.Context, text string) (DocumentType, error) {
	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(classifyPrompt, text)},
		},
		Temperature: 0,
	})
	if err != nil {
		return DocUnknown, fmt.Errorf("classify document: %w", err)
	}
	if len(resp.Choices) == 0 {
		return DocUnknown, nil
	}

	switch DocumentType(strings.TrimSpace(strings.ToLower(resp.Choices[0].Message.Content))) {
	case DocLandlordConfirmation:
		return DocLandlordConfirmation, nil
	case DocAddressForm:
		return DocAddressForm, nil
	}
	return DocUnknown, nil
}

const parsePrompt = `Extract the following fields from this German address-change form
and answer with a single JSON object using exactly these keys:
name, dob, email, old_address, new_address, move_in_date, landlord_name.
Use an empty string for fields not present. Dates as YYYY-MM-DD.

Form text:
%s`

func (e *OpenAIExtractor) Parse(ctx context.Context, text string) (*CitizenData, error) {
	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(parsePrompt, text)},
		},
		Temperature: 0,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("parse document: empty completion")
	}

	var data CitizenData
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &data); err != nil {
		return nil, fmt.Errorf("decode extraction result: %w", err)
	}
	return &data, nil
}
