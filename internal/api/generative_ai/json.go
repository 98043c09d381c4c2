package generativeAI

import (
	"encoding/json"
	"fmt"
	"strings"
)

// CleanJSONResponse strips markdown fences and any prose around the first JSON
// object or array in a model response.
func CleanJSONResponse(response string) string {
	response = strings.TrimSpace(response)

	if strings.HasPrefix(response, "```json") {
		response = strings.TrimPrefix(response, "```json")
	} else if strings.HasPrefix(response, "```") {
		response = strings.TrimPrefix(response, "```")
	}
	response = strings.TrimSuffix(strings.TrimSpace(response), "```")
	response = strings.TrimSpace(response)

	open := strings.IndexAny(response, "{[")
	if open == -1 {
		return response
	}
	closer := "}"
	if response[open] == '[' {
		closer = "]"
	}
	end := strings.LastIndex(response, closer)
	if end <= open {
		return response
	}
	return strings.TrimSpace(response[open : end+1])
}

// DecodeJSON cleans a model response and unmarshals it into dst.
func DecodeJSON(response string, dst any) error {
	cleaned := CleanJSONResponse(response)
	if err := json.Unmarshal([]byte(cleaned), dst); err != nil {
		return fmt.Errorf("failed to parse model JSON: %w", err)
	}
	return nil
}
