package ai

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

const maxRawInError = 120

// Decoding 说明 JSON 是如何得到的。
type Decoding int

const (
	// DecodedStrict: 整段回复（去掉代码围栏后）就是合法 JSON。
	DecodedStrict Decoding = iota + 1
	// DecodedRecovered: 从回复中截取最外层 {...} 后解析成功。
	DecodedRecovered
)

func (d Decoding) String() string {
	switch d {
	case DecodedStrict:
		return "strict"
	case DecodedRecovered:
		return "recovered"
	default:
		return "none"
	}
}

// ParseError 表示两个阶段都无法解析模型回复。
type ParseError struct {
	Raw   string
	Cause error
}

func (e *ParseError) Error() string {
	raw := e.Raw
	if len(raw) > maxRawInError {
		cut := maxRawInError
		for cut > 0 && !utf8.RuneStart(raw[cut]) {
			cut--
		}
		raw = raw[:cut] + "..."
	}
	return fmt.Sprintf("ai: unparseable completion %q: %v", raw, e.Cause)
}

func (e *ParseError) Unwrap() error { return e.Cause }

// Decode 先严格解析，失败后再从文本中截取 JSON 对象解析。
func Decode(raw string, v any) (Decoding, error) {
	body := stripCodeFence(strings.TrimSpace(raw))
	if body == "" {
		return 0, &ParseError{Raw: raw, Cause: fmt.Errorf("empty completion")}
	}

	strictErr := json.Unmarshal([]byte(body), v)
	if strictErr == nil {
		return DecodedStrict, nil
	}

	start := strings.Index(body, "{")
	end := strings.LastIndex(body, "}")
	if start < 0 || end <= start {
		return 0, &ParseError{Raw: raw, Cause: strictErr}
	}
	if err := json.Unmarshal([]byte(body[start:end+1]), v); err != nil {
		return 0, &ParseError{Raw: raw, Cause: err}
	}
	return DecodedRecovered, nil
}

func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
