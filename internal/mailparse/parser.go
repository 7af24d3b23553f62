package mailparse

import (
	"bytes"
	"encoding/base64"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"regexp"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// ErrNoContent 表示请求未携带任何可用的邮件内容，属于客户端错误。
var ErrNoContent = errors.New("no email content supplied")

// Parsed 表示解析后的邮件内容。
type Parsed struct {
	Subject string
	From    string
	To      string
	Text    string
	HTML    string
}

// Body 返回规范正文：纯文本去空白后非空则用纯文本，否则回退到原始 HTML。
// HTML 不做转义或清洗，交给展示层处理。
func (p *Parsed) Body() string {
	if strings.TrimSpace(p.Text) != "" {
		return p.Text
	}
	return p.HTML
}

// ParseRaw 解析一封原始 MIME 邮件，提取主题、收发地址与正文。
//
// 解码失败按尽力而为降级：单个部分解不开不会中断整封邮件的摄入，
// 字符集无法识别时回退到 UTF-8 并用替换字符补位。
// 只有完全没有内容时才返回 ErrNoContent。
func ParseRaw(raw []byte) (*Parsed, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, ErrNoContent
	}

	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		// 不是合法的 MIME 结构，整体当作纯文本处理
		return &Parsed{Text: lossyUTF8(raw)}, nil
	}

	parsed := &Parsed{
		Subject: DecodeSubject(msg.Header.Get("Subject")),
		From:    BareAddress(msg.Header.Get("From")),
		To:      BareAddress(msg.Header.Get("To")),
	}

	contentType := msg.Header.Get("Content-Type")
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		// 没有 Content-Type 或解析失败，当作纯文本处理
		body, _ := io.ReadAll(msg.Body)
		parsed.Text = lossyUTF8(body)
		return parsed, nil
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		boundary := params["boundary"]
		if boundary != "" {
			mr := multipart.NewReader(msg.Body, boundary)
			walkMultipart(mr, parsed)
		}
		return parsed, nil
	}

	body := decodeBody(msg.Body, msg.Header.Get("Content-Transfer-Encoding"), params["charset"])
	if strings.HasPrefix(mediaType, "text/html") {
		parsed.HTML = body
	} else {
		parsed.Text = body
	}

	return parsed, nil
}

// walkMultipart 递归遍历多部分邮件，按类型收集文本与 HTML 部分。
// 同类型的多个部分以换行拼接。单个部分出错直接跳过。
func walkMultipart(mr *multipart.Reader, parsed *Parsed) {
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return
		}

		contentType := part.Header.Get("Content-Type")
		mediaType, params, err := mime.ParseMediaType(contentType)
		if err != nil {
			mediaType = "text/plain"
		}

		// 处理嵌套的 multipart
		if strings.HasPrefix(mediaType, "multipart/") {
			boundary := params["boundary"]
			if boundary != "" {
				walkMultipart(multipart.NewReader(part, boundary), parsed)
			}
			continue
		}

		body := decodeBody(part, part.Header.Get("Content-Transfer-Encoding"), params["charset"])

		switch {
		case strings.HasPrefix(mediaType, "text/html"):
			parsed.HTML = appendPart(parsed.HTML, body)
		case strings.HasPrefix(mediaType, "text/plain"):
			parsed.Text = appendPart(parsed.Text, body)
		}
	}
}

func appendPart(existing, body string) string {
	if existing == "" {
		return body
	}
	return existing + "\n" + body
}

// decodeBody 根据传输编码与字符集解码邮件体，失败时尽力返回已读内容。
func decodeBody(reader io.Reader, transferEncoding, charset string) string {
	transferEncoding = strings.ToLower(strings.TrimSpace(transferEncoding))

	var decoded io.Reader = reader
	switch transferEncoding {
	case "base64":
		decoded = base64.NewDecoder(base64.StdEncoding, reader)
	case "quoted-printable":
		decoded = quotedprintable.NewReader(reader)
	default:
		// 7bit/8bit/binary 或未知编码，直接读取
	}

	body, err := io.ReadAll(decoded)
	if err != nil {
		// 解码器中途失败，保留已成功读出的部分
		if len(body) == 0 {
			return ""
		}
	}

	return decodeCharset(body, charset)
}

// decodeCharset 按声明的字符集转换为 UTF-8。
// 字符集缺失、未知或转换失败时，回退为 UTF-8 并以替换字符补位。
func decodeCharset(body []byte, charset string) string {
	charset = strings.ToLower(strings.TrimSpace(charset))
	if charset == "" || charset == "utf-8" || charset == "us-ascii" {
		return lossyUTF8(body)
	}

	enc, err := htmlindex.Get(charset)
	if err != nil || enc == nil {
		return lossyUTF8(body)
	}

	converted, _, err := transform.Bytes(enc.NewDecoder(), body)
	if err != nil {
		return lossyUTF8(body)
	}
	return lossyUTF8(converted)
}

// lossyUTF8 将字节序列转为合法 UTF-8，非法字节用替换字符补位。
func lossyUTF8(body []byte) string {
	return strings.ToValidUTF8(string(body), "�")
}

var subjectDecoder = mime.WordDecoder{
	CharsetReader: func(charset string, input io.Reader) (io.Reader, error) {
		enc, err := htmlindex.Get(charset)
		if err != nil || enc == nil {
			// 未知字符集：原样读出，由上层做 UTF-8 补位
			return input, nil
		}
		return transform.NewReader(input, enc.NewDecoder()), nil
	},
}

// DecodeSubject 解码 MIME encoded-word 形式的主题。
// 多段编码主题重组为一个解码后的字符串；解不开的段落保留原文。
func DecodeSubject(encoded string) string {
	decoded, err := subjectDecoder.DecodeHeader(encoded)
	if err != nil {
		return strings.ToValidUTF8(encoded, "�")
	}
	return strings.ToValidUTF8(decoded, "�")
}

var addressPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

// BareAddress 从 To/From 头中提取裸邮件地址，剥离显示名。
func BareAddress(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	if addr, err := mail.ParseAddress(header); err == nil {
		return addr.Address
	}
	// 头部格式不规范时退回正则提取
	if match := addressPattern.FindString(header); match != "" {
		return match
	}
	return header
}
