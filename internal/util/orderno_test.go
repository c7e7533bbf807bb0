package util

import (
	"regexp"
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

func TestGenerateOrderNo(t *testing.T) {
	now := time.Unix(1760000000, 0)
	cases := []struct {
		uid  string
		tail string
	}{
		{"1234567890", "567890"},
		{"abc", "abc"},
		{"123456", "123456"},
		{"玩家一二三四五六", "一二三四五六"},
		{"user_张三丰", "er_张三丰"},
	}
	for _, tc := range cases {
		no := GenerateOrderNo(tc.uid, now)
		if !strings.HasPrefix(no, "ord_1760000000_"+tc.tail+"_") {
			t.Errorf("GenerateOrderNo(%q) = %q", tc.uid, no)
		}
		if !utf8.ValidString(no) {
			t.Errorf("GenerateOrderNo(%q) produced invalid UTF-8", tc.uid)
		}
		if !regexp.MustCompile(`_[0-9a-z]{4}$`).MatchString(no) {
			t.Errorf("random suffix malformed: %q", no)
		}
	}
}

func TestGenerateOrderNoUnique(t *testing.T) {
	now := time.Now()
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		seen[GenerateOrderNo("u1", now)] = true
	}
	// 36^4 空间, 200 次碰撞到个位数都算正常
	if len(seen) < 190 {
		t.Fatalf("too many collisions: %d unique of 200", len(seen))
	}
}
