package translate

// geminiStringFormats are the string formats Gemini tool parameters accept;
// every other format value is dropped.
var geminiStringFormats = map[string]struct{}{
	"enum":      {},
	"date-time": {},
}

// CleanGeminiSchema recursively strips JSON-schema keys Gemini's tool
// parameter dialect rejects: additionalProperties, default, and string
// formats outside the allowed set. Other targets receive schemas unmodified,
// so this is applied by the request translator only for gemini/ models.
// The input is not mutated.
func CleanGeminiSchema(schema any) any {
	switch s := schema.(type) {
	case map[string]any:
		cleaned := make(map[string]any, len(s))
		for key, value := range s {
			switch key {
			case "additionalProperties", "default":
				continue
			case "format":
				if typ, _ := s["type"].(string); typ == "string" {
					if format, ok := value.(string); ok {
						if _, allowed := geminiStringFormats[format]; !allowed {
							continue
						}
					}
				}
			}
			cleaned[key] = CleanGeminiSchema(value)
		}
		return cleaned
	case []any:
		cleaned := make([]any, len(s))
		for i, item := range s {
			cleaned[i] = CleanGeminiSchema(item)
		}
		return cleaned
	default:
		return schema
	}
}
