package casclient

import "strings"

// ExtractTGT 从 Location 头中提取 TGT
// 形如 …/TGT-xyz 时返回最后一个 / 之后的部分；不含 TGT- 时返回空串
func ExtractTGT(location string) string {
	if !strings.Contains(location, "TGT-") {
		return ""
	}
	return location[strings.LastIndex(location, "/")+1:]
}

// TGTFromCookie 从 CASTGC cookie 串中解析 TGT
// 去掉 CASTGC= 前缀后截取到第一个分号为止
func TGTFromCookie(cookie string) string {
	value := strings.TrimPrefix(cookie, "CASTGC=")
	if i := strings.Index(value, ";"); i >= 0 {
		value = value[:i]
	}
	return value
}
