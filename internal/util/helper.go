package util

// TruncateString 截断字符串, 用于日志
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}

// MaskUID 遮蔽用户ID中间部分
func MaskUID(uid string) string {
	if len(uid) < 8 {
		return uid
	}
	return uid[:3] + "***" + uid[len(uid)-3:]
}
