package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/yanqian/ai-travel-planner/internal/infra/llm/chatgpt"
)

// ErrToolNotFound is returned when the model names a tool that is not registered.
var ErrToolNotFound = errors.New("agent: tool not found")

var validate = validator.New()

type cityArgs struct {
	City string `json:"city" validate:"required"`
}

type placeArgs struct {
	City      string `json:"city" validate:"required"`
	PlaceName string `json:"place_name" validate:"required"`
}

type weatherArgs struct {
	Lat        *float64 `json:"lat" validate:"required,latitude"`
	Lng        *float64 `json:"lng" validate:"required,longitude"`
	TargetDate string   `json:"target_date" validate:"required,datetime=2006-01-02"`
}

type airQualityArgs struct {
	Lat *float64 `json:"lat" validate:"required,latitude"`
	Lng *float64 `json:"lng" validate:"required,longitude"`
}

// Dispatcher exposes Tools to the model as function specs and routes calls back.
type Dispatcher struct {
	tools Tools
}

// NewDispatcher wraps tools.
func NewDispatcher(tools Tools) *Dispatcher {
	return &Dispatcher{tools: tools}
}

// Definitions returns the function definitions advertised to the model.
func (d *Dispatcher) Definitions() []chatgpt.Tool {
	str := map[string]any{"type": "string"}
	num := map[string]any{"type": "number"}
	return []chatgpt.Tool{
		functionTool(ToolSuggestAttractions,
			"Suggest 4-8 popular attractions for a city. Returns a JSON list of names.",
			map[string]any{"city": str}, "city"),
		functionTool(ToolCityLatLng,
			"Resolve a city to representative coordinates. Returns JSON with keys city, lat, lng.",
			map[string]any{"city": str}, "city"),
		functionTool(ToolPlaceAddress,
			"Resolve a place in a city to a formatted address plus lat/lng.",
			map[string]any{"city": str, "place_name": str}, "city", "place_name"),
		functionTool(ToolWeather,
			"Weather for the target date (if within the next 10 days), plus clothes, umbrella and risk score.",
			map[string]any{
				"lat":         num,
				"lng":         num,
				"target_date": map[string]any{"type": "string", "description": "YYYY-MM-DD"},
			}, "lat", "lng", "target_date"),
		functionTool(ToolAirQuality,
			"Current air quality plus mask suggestion and risk score (0-10).",
			map[string]any{"lat": num, "lng": num}, "lat", "lng"),
	}
}

func functionTool(name, description string, properties map[string]any, required ...string) chatgpt.Tool {
	return chatgpt.Tool{
		Type: "function",
		Function: chatgpt.ToolFunction{
			Name:        name,
			Description: description,
			Parameters: map[string]any{
				"type":       "object",
				"properties": properties,
				"required":   required,
			},
		},
	}
}

// Call decodes and validates arguments, runs the named tool and returns its JSON result.
func (d *Dispatcher) Call(ctx context.Context, name, arguments string) (json.RawMessage, error) {
	switch name {
	case ToolSuggestAttractions:
		var args cityArgs
		if err := decodeArgs(arguments, &args); err != nil {
			return nil, err
		}
		out, err := d.tools.SuggestAttractions(ctx, args.City)
		return marshalResult(out, err)
	case ToolCityLatLng:
		var args cityArgs
		if err := decodeArgs(arguments, &args); err != nil {
			return nil, err
		}
		out, err := d.tools.CityLatLng(ctx, args.City)
		return marshalResult(out, err)
	case ToolPlaceAddress:
		var args placeArgs
		if err := decodeArgs(arguments, &args); err != nil {
			return nil, err
		}
		out, err := d.tools.PlaceAddress(ctx, args.City, args.PlaceName)
		return marshalResult(out, err)
	case ToolWeather:
		var args weatherArgs
		if err := decodeArgs(arguments, &args); err != nil {
			return nil, err
		}
		out, err := d.tools.Weather(ctx, *args.Lat, *args.Lng, args.TargetDate)
		return marshalResult(out, err)
	case ToolAirQuality:
		var args airQualityArgs
		if err := decodeArgs(arguments, &args); err != nil {
			return nil, err
		}
		out, err := d.tools.AirQuality(ctx, *args.Lat, *args.Lng)
		return marshalResult(out, err)
	default:
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
}

func decodeArgs(arguments string, dst any) error {
	if strings.TrimSpace(arguments) == "" {
		arguments = "{}"
	}
	if err := json.Unmarshal([]byte(arguments), dst); err != nil {
		return fmt.Errorf("invalid tool arguments: %w", err)
	}
	if err := validate.Struct(dst); err != nil {
		return fmt.Errorf("invalid tool arguments: %w", err)
	}
	return nil
}

func marshalResult(v any, err error) (json.RawMessage, error) {
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode tool result: %w", err)
	}
	return raw, nil
}
