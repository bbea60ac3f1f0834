// Package openai interprets free-text route requests with an OpenAI model
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Commands the model may choose
const (
	CommandGetRouteForecast = "GetRouteForecast"
	CommandGeneralQuery     = "GeneralQuery"
)

// AgentResponse defines the structured output from the OpenAI agent.
type AgentResponse struct {
	CommandName string   `json:"command_name" jsonschema_description:"The command to execute, either GetRouteForecast or GeneralQuery"`
	Cities      []string `json:"cities" jsonschema_description:"Cities of the route in travel order, empty for GeneralQuery"`
	Days        int      `json:"days" jsonschema_description:"Number of forecast days between 1 and 4, or 0 if the user did not say"`
	UserMessage string   `json:"user_message" jsonschema_description:"A short message to show back to the user in their original language"`
}

// RouteInterpreter turns a user's free-text message into a route request.
type RouteInterpreter interface {
	InterpretRouteQuery(ctx context.Context, userMessage string) (*AgentResponse, error)
}

// routeInterpreterImpl implements the RouteInterpreter interface.
type routeInterpreterImpl struct {
	client openai.Client
	schema interface{}
	model  openai.ChatModel
}

// GenerateSchema generates a JSON schema for a given type.
func GenerateSchema[T any]() interface{} {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	schema := reflector.Reflect(v)
	return schema
}

// NewRouteInterpreter creates a new RouteInterpreter. Extra request options (such as a
// base URL) are passed through to the client.
func NewRouteInterpreter(apiKey string, opts ...option.RequestOption) (RouteInterpreter, error) {
	if apiKey == "" {
		return nil, errors.New("OpenAI API key is not set")
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	client := openai.NewClient(opts...)

	return &routeInterpreterImpl{
		client: client,
		schema: GenerateSchema[AgentResponse](),
		model:  openai.ChatModelGPT4o,
	}, nil
}

const systemPrompt = `You are a travel weather assistant. Users describe a trip and want the weather along it.

Behavior:
1. If the user names a route of at least two places (for example "Moscow to Saint Petersburg via Tver, 3 days"):
   - command_name = "GetRouteForecast"
   - cities: the city names in travel order, in the form a weather service would recognise
   - days: the number of forecast days if stated and between 1 and 4, otherwise 0
   - user_message: a one-line confirmation in the user's language
2. Otherwise (greetings, small talk, a single city, anything else):
   - command_name = "GeneralQuery"
   - cities = [], days = 0
   - user_message: a short reply in the user's language suggesting the /weather command

Output **strictly** in JSON.`

// InterpretRouteQuery sends a message to the OpenAI agent and returns the structured response.
func (s *routeInterpreterImpl) InterpretRouteQuery(ctx context.Context, userMessage string) (*AgentResponse, error) {
	schemaParam := openai.ResponseFormatJSONSchemaJSONSchemaParam{
		Name:        "route_request",
		Description: openai.String("Structured route request with command, cities, days and user message"),
		Schema:      s.schema,
		Strict:      openai.Bool(true),
	}

	respFormat := openai.ChatCompletionNewParamsResponseFormatUnion{
		OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{JSONSchema: schemaParam},
	}

	chat, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userMessage),
		},
		ResponseFormat: respFormat,
		Model:          s.model,
	})
	if err != nil {
		return nil, fmt.Errorf("error calling OpenAI API: %w", err)
	}

	if len(chat.Choices) == 0 || chat.Choices[0].Message.Content == "" {
		return nil, errors.New("received empty response from OpenAI")
	}

	var agentResp AgentResponse
	if err := json.Unmarshal([]byte(chat.Choices[0].Message.Content), &agentResp); err != nil {
		log.Printf("Failed to unmarshal OpenAI response: %s\nRaw response: %s", err, chat.Choices[0].Message.Content)
		return nil, fmt.Errorf("error unmarshalling OpenAI response: %w", err)
	}

	cities := agentResp.Cities[:0]
	for _, city := range agentResp.Cities {
		if city = strings.TrimSpace(city); city != "" {
			cities = append(cities, city)
		}
	}
	agentResp.Cities = cities

	return &agentResp, nil
}
