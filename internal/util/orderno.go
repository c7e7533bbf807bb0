package util

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// GenerateOrderNo 生成订单号
// 格式: ord_{unix秒}_{uid后6位}_{4位随机base36}, uid 按字符截取, 不足6位时取全部
func GenerateOrderNo(uid string, now time.Time) string {
	tail := []rune(uid)
	if len(tail) > 6 {
		tail = tail[len(tail)-6:]
	}
	return fmt.Sprintf("ord_%d_%s_%s", now.Unix(), string(tail), RandomBase36(4))
}

// RandomBase36 生成随机 base36 字符串
func RandomBase36(length int) string {
	b := make([]byte, length)
	max := big.NewInt(int64(len(base36)))
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// 系统随机源不可用时退化为时间
			n = big.NewInt(time.Now().UnixNano() % int64(len(base36)))
		}
		b[i] = base36[n.Int64()]
	}
	return string(b)
}
