package util

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// PromptDir возвращает каталог с переопределёнными промптами.
func PromptDir() string {
	if d := strings.TrimSpace(os.Getenv("PROMPT_DIR")); d != "" {
		return d
	}
	return filepath.Join("api", "internal", "prompt")
}

// LoadPromptText читает <dir>/<name>.txt; если файла нет: отдаёт fallback.
func LoadPromptText(dir, name, fallback string) string {
	if dir == "" {
		dir = PromptDir()
	}
	b, err := os.ReadFile(filepath.Join(dir, name+".txt"))
	if err != nil || len(strings.TrimSpace(string(b))) == 0 {
		return strings.TrimSpace(fallback)
	}
	return strings.TrimSpace(string(b))
}

// LoadPromptSchema загружает <name>.schema.json из dir, иначе разбирает встроенную схему.
func LoadPromptSchema(dir, name, embedded string) (map[string]any, error) {
	if dir == "" {
		dir = PromptDir()
	}
	p := filepath.Join(dir, name+".schema.json")
	if b, err := os.ReadFile(p); err == nil && len(b) > 0 {
		var m map[string]any
		if err := json.Unmarshal(b, &m); err != nil {
			return nil, fmt.Errorf("bad %s schema (file): %w", name, err)
		}
		ensureSchemaMeta(m)
		return m, nil
	}
	if strings.TrimSpace(embedded) == "" {
		return nil, fmt.Errorf("unknown schema name: %s", name)
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(embedded), &m); err != nil {
		return nil, fmt.Errorf("bad %s schema (embedded): %w", name, err)
	}
	ensureSchemaMeta(m)
	return m, nil
}

// Мини-метаданные схемы (некоторые клиенты ожидают $schema).
func ensureSchemaMeta(m map[string]any) {
	if _, ok := m["$schema"]; !ok {
		m["$schema"] = "http://json-schema.org/draft-07/schema#"
	}
}

// Приводим схему к «строгому» виду для OpenAI: если есть properties, добавляем
// type=object, required со всеми полями и additionalProperties=false.
func FixJSONSchemaStrict(node any) {
	switch n := node.(type) {
	case map[string]any:
		if props, ok := n["properties"].(map[string]any); ok {
			if _, hasType := n["type"]; !hasType {
				n["type"] = "object"
			}
			req := make([]any, 0, len(props))
			for k := range props {
				req = append(req, k)
			}
			n["required"] = req
			if _, ok := n["additionalProperties"]; !ok {
				n["additionalProperties"] = false
			}
			for _, v := range props {
				FixJSONSchemaStrict(v)
			}
		}
		if items, ok := n["items"]; ok {
			switch it := items.(type) {
			case map[string]any:
				FixJSONSchemaStrict(it)
			case []any:
				for _, el := range it {
					FixJSONSchemaStrict(el)
				}
			}
		}
		for _, k := range []string{"oneOf", "anyOf", "allOf"} {
			if arr, ok := n[k].([]any); ok {
				for _, el := range arr {
					FixJSONSchemaStrict(el)
				}
			}
		}
	case []any:
		for _, v := range n {
			FixJSONSchemaStrict(v)
		}
	}
}
