package model

import (
	"encoding/json"
	"fmt"
)

// MergeJSON накладывает delta на base и возвращает результат.
// Правила: объект в объект — рекурсивно, массив и скаляр — заменой целиком.
// Чистая функция: входные документы не изменяются.
func MergeJSON(base, delta json.RawMessage) (json.RawMessage, error) {
	baseVal, err := decodeTree(base)
	if err != nil {
		return nil, fmt.Errorf("merge base: %w", err)
	}
	deltaVal, err := decodeTree(delta)
	if err != nil {
		return nil, fmt.Errorf("merge delta: %w", err)
	}
	merged := mergeValues(baseVal, deltaVal)
	out, err := json.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("merge result: %w", err)
	}
	return out, nil
}

func decodeTree(data json.RawMessage) (any, error) {
	if len(data) == 0 {
		return map[string]any{}, nil
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func mergeValues(base, delta any) any {
	baseObj, baseIsObj := base.(map[string]any)
	deltaObj, deltaIsObj := delta.(map[string]any)
	if !baseIsObj || !deltaIsObj {
		// Scalar or array delta replaces whatever was there.
		return delta
	}
	out := make(map[string]any, len(baseObj)+len(deltaObj))
	for k, v := range baseObj {
		out[k] = v
	}
	for k, v := range deltaObj {
		if prev, ok := out[k]; ok {
			out[k] = mergeValues(prev, v)
		} else {
			out[k] = v
		}
	}
	return out
}
