package util

import (
	"encoding/json"
	"regexp"
	"strings"
)

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify 生成 URL 友好的标识，只保留小写字母与数字
func Slugify(s string) string {
	slug := nonSlug.ReplaceAllString(strings.ToLower(s), "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		return "course"
	}
	if len(slug) > 180 {
		slug = strings.TrimRight(slug[:180], "-")
	}
	return slug
}

// ParseStringList 列表字段接受 JSON 数组，或表单提交时的 JSON 字符串形式的数组。
// 空值视为空列表。
func ParseStringList(raw json.RawMessage) ([]string, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return []string{}, nil
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return normalizeList(list), nil
	}

	var encoded string
	if err := json.Unmarshal(raw, &encoded); err != nil {
		return nil, ErrInvalidListField
	}
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return []string{}, nil
	}
	if err := json.Unmarshal([]byte(encoded), &list); err != nil {
		return nil, ErrInvalidListField
	}
	return normalizeList(list), nil
}

func normalizeList(list []string) []string {
	out := make([]string, 0, len(list))
	for _, item := range list {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
