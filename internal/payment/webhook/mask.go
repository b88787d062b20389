package webhook

import (
	"encoding/json"
	"strings"
)

// maskedKeys are payer and card fields never persisted in webhook_events.
var maskedKeys = map[string]struct{}{
	"card":                   {},
	"payer":                  {},
	"cardholder":             {},
	"identification":         {},
	"email":                  {},
	"phone":                  {},
	"billing_details":        {},
	"payment_method_details": {},
	"additional_info":        {},
}

func maskPayload(raw []byte) []byte {
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil
	}
	maskMap(obj)
	masked, err := json.Marshal(obj)
	if err != nil {
		return nil
	}
	return masked
}

func maskMap(m map[string]any) {
	for k, v := range m {
		if _, ok := maskedKeys[strings.ToLower(k)]; ok {
			m[k] = "***"
			continue
		}
		switch nested := v.(type) {
		case map[string]any:
			maskMap(nested)
		case []any:
			for _, item := range nested {
				if itemMap, ok := item.(map[string]any); ok {
					maskMap(itemMap)
				}
			}
		}
	}
}
