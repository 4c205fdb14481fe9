package engine

import (
	"regexp"
)

// placeholder — плейсхолдер вида {{key}}.
var placeholder = regexp.MustCompile(`\{\{(\w+)\}\}`)

// Render заменяет плейсхолдеры {{key}} значениями из values.
//
// Плейсхолдеры без значения остаются без изменений:
//
//	Render("/check/{{processId}}/{{other}}", {"processId": "42"})
//	// "/check/42/{{other}}"
func Render(tmpl string, values map[string]string) string {
	if len(values) == 0 {
		return tmpl
	}

	return placeholder.ReplaceAllStringFunc(tmpl, func(m string) string {
		key := placeholder.FindStringSubmatch(m)[1]
		if v, ok := values[key]; ok {
			return v
		}
		return m
	})
}

// RenderValue рендерит произвольное значение.
// Рекурсивно обрабатывает map и slice, остальные типы возвращает как есть.
func RenderValue(value any, values map[string]string) any {
	switch v := value.(type) {
	case string:
		return Render(v, values)

	case map[string]any:
		result := make(map[string]any, len(v))
		for key, val := range v {
			result[key] = RenderValue(val, values)
		}
		return result

	case []any:
		result := make([]any, len(v))
		for i, val := range v {
			result[i] = RenderValue(val, values)
		}
		return result

	case map[string]string:
		result := make(map[string]string, len(v))
		for key, val := range v {
			result[key] = Render(val, values)
		}
		return result

	default:
		return value
	}
}
