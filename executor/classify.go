package executor

import "strings"

const selectKeyword = "SELECT"

// IsSelect reports whether sql starts with the keyword SELECT, ignoring case,
// leading whitespace and leading SQL comments. The check is lexical: a WITH
// clause or a parenthesized SELECT is not recognized.
func IsSelect(sql string) bool {
	s := skipLeading(sql)
	if len(s) < len(selectKeyword) {
		return false
	}
	return strings.EqualFold(s[:len(selectKeyword)], selectKeyword)
}

func skipLeading(s string) string {
	for {
		s = strings.TrimLeft(s, " \t\r\n\f\v")
		switch {
		case strings.HasPrefix(s, "--"):
			i := strings.IndexByte(s, '\n')
			if i < 0 {
				return ""
			}
			s = s[i+1:]
		case strings.HasPrefix(s, "/*"):
			i := strings.Index(s[2:], "*/")
			if i < 0 {
				return ""
			}
			s = s[i+4:]
		default:
			return s
		}
	}
}
