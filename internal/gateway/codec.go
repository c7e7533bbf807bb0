package gateway

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"gamepay/internal/errno"
)

var tokenPattern = regexp.MustCompile(`@(\d+)`)

// Codec 网关报文解码与校验
type Codec struct {
	decodeKey   string
	checksumKey string
}

func NewCodec(decodeKey, checksumKey string) *Codec {
	return &Codec{decodeKey: decodeKey, checksumKey: checksumKey}
}

// Decode 还原 @数字 编码的报文
// 第 i 个数字减去 key[i mod len(key)] 后取模 256 得到原始字节
// 不含 @数字 的输入视为明文原样返回
func (c *Codec) Decode(encoded string) (string, error) {
	if c.decodeKey == "" {
		return "", fmt.Errorf("%w: decode key is empty", errno.ErrConfiguration)
	}

	matches := tokenPattern.FindAllStringSubmatch(encoded, -1)
	if len(matches) == 0 {
		return encoded, nil
	}

	key := []byte(c.decodeKey)
	out := make([]byte, len(matches))
	for i, m := range matches {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return "", fmt.Errorf("%w: bad token %q", errno.ErrMalformedPayload, m[0])
		}
		v := (n - int(0xFF&key[i%len(key)])) % 256
		if v < 0 {
			v += 256
		}
		out[i] = byte(v)
	}
	return string(out), nil
}

// Verify 校验回调签名
// md5(nt_data + sign + checksumKey) 用的是未解码的原始 nt_data 和 sign,
// 只有 md5Sign 需要先解码再比较. 网关SDK就是这样算的, 不要改成先解码.
func (c *Codec) Verify(ntData, sign, md5Sign string) (bool, error) {
	if c.checksumKey == "" {
		return false, fmt.Errorf("%w: checksum key is empty", errno.ErrConfiguration)
	}
	if ntData == "" || sign == "" || md5Sign == "" {
		return false, nil
	}

	expected, err := c.Decode(md5Sign)
	if err != nil {
		return false, err
	}
	local := MD5(ntData + sign + c.checksumKey)
	return strings.EqualFold(local, strings.TrimSpace(expected)), nil
}

// MD5 计算MD5哈希值(小写hex)
func MD5(s string) string {
	hash := md5.Sum([]byte(s))
	return hex.EncodeToString(hash[:])
}
