package mailparse

import "regexp"

// urlPattern 链接匹配模式。
// 字符类沿用线上版本：允许 $-_ 区间与未转义括号，
// 因此结尾标点偶尔会被并入匹配结果，这是既定行为，不做修正。
var urlPattern = regexp.MustCompile(`http[s]?://(?:[a-zA-Z]|[0-9]|[$-_@.&+]|[!*\(\),]|(?:%[0-9a-fA-F][0-9a-fA-F]))+`)

// ExtractURLs 从文本或 HTML 中提取链接。
// 保持首次出现顺序，允许重复，空输入返回空序列，永不报错。
func ExtractURLs(text string) []string {
	if text == "" {
		return []string{}
	}
	matches := urlPattern.FindAllString(text, -1)
	if matches == nil {
		return []string{}
	}
	return matches
}
