package schema

import "strings"

// Имена встроенных правил валидации.
const (
	RuleRequired     = "REQUIRED"
	RuleCharLength   = "CHAR_LENGTH"
	RuleNumeric      = "IS_NUMERICALLY_PARSEABLE"
	RuleIndianMobile = "IS_INDIAN_MOBILE_NUMBER"
	RuleDate         = "IS_YYYY-MM-DD"
	RuleAfterToday   = "IS_AFTER_TODAY"
	RuleBeforeToday  = "IS_BEFORE_TODAY"
)

var knownRules = map[string]bool{
	RuleRequired:     true,
	RuleCharLength:   true,
	RuleNumeric:      true,
	RuleIndianMobile: true,
	RuleDate:         true,
	RuleAfterToday:   true,
	RuleBeforeToday:  true,
}

// SplitRule делит "CHAR_LENGTH:10" на имя и параметр.
func SplitRule(raw string) (name, param string) {
	raw = strings.TrimSpace(raw)
	if i := strings.IndexByte(raw, ':'); i >= 0 {
		return raw[:i], raw[i+1:]
	}
	return raw, ""
}

// KnownRule сообщает, есть ли у движка валидации такое правило.
func KnownRule(name string) bool { return knownRules[name] }
