package mailparse

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRaw(t *testing.T) {
	t.Run("空内容返回 ErrNoContent", func(t *testing.T) {
		_, err := ParseRaw([]byte("   \n  "))

		assert.ErrorIs(t, err, ErrNoContent)
	})

	t.Run("解析简单纯文本邮件", func(t *testing.T) {
		raw := "From: sender@example.com\r\n" +
			"To: inbox@mailfoxes.local\r\n" +
			"Subject: Hello\r\n" +
			"Content-Type: text/plain; charset=utf-8\r\n" +
			"\r\n" +
			"Body line one.\r\n"

		parsed, err := ParseRaw([]byte(raw))

		assert.NoError(t, err)
		assert.Equal(t, "Hello", parsed.Subject)
		assert.Equal(t, "sender@example.com", parsed.From)
		assert.Equal(t, "inbox@mailfoxes.local", parsed.To)
		assert.Contains(t, parsed.Text, "Body line one.")
		assert.Empty(t, parsed.HTML)
	})

	t.Run("解析 quoted-printable 的 latin1 正文", func(t *testing.T) {
		raw := "From: a@b.com\r\n" +
			"To: c@d.com\r\n" +
			"Subject: test\r\n" +
			"Content-Type: text/plain; charset=iso-8859-1\r\n" +
			"Content-Transfer-Encoding: quoted-printable\r\n" +
			"\r\n" +
			"caf=E9\r\n"

		parsed, err := ParseRaw([]byte(raw))

		assert.NoError(t, err)
		assert.Contains(t, parsed.Text, "café")
	})

	t.Run("解析 multipart 邮件的文本与 HTML 部分", func(t *testing.T) {
		raw := "From: a@b.com\r\n" +
			"To: c@d.com\r\n" +
			"Subject: mixed\r\n" +
			"Content-Type: multipart/alternative; boundary=BOUND\r\n" +
			"\r\n" +
			"--BOUND\r\n" +
			"Content-Type: text/plain; charset=utf-8\r\n" +
			"\r\n" +
			"plain part\r\n" +
			"--BOUND\r\n" +
			"Content-Type: text/html; charset=utf-8\r\n" +
			"\r\n" +
			"<p>html part</p>\r\n" +
			"--BOUND--\r\n"

		parsed, err := ParseRaw([]byte(raw))

		assert.NoError(t, err)
		assert.Contains(t, parsed.Text, "plain part")
		assert.Contains(t, parsed.HTML, "<p>html part</p>")
	})

	t.Run("解码 encoded-word 主题", func(t *testing.T) {
		raw := "From: a@b.com\r\n" +
			"To: c@d.com\r\n" +
			"Subject: =?utf-8?q?caf=C3=A9_offer?=\r\n" +
			"Content-Type: text/plain\r\n" +
			"\r\n" +
			"body\r\n"

		parsed, err := ParseRaw([]byte(raw))

		assert.NoError(t, err)
		assert.Equal(t, "café offer", parsed.Subject)
	})

	t.Run("非 MIME 内容降级为纯文本", func(t *testing.T) {
		parsed, err := ParseRaw([]byte("just a plain blob of text"))

		assert.NoError(t, err)
		assert.Equal(t, "just a plain blob of text", parsed.Text)
		assert.Empty(t, parsed.Subject)
	})

	t.Run("base64 正文解码", func(t *testing.T) {
		// "hello world" 的 base64
		raw := "From: a@b.com\r\n" +
			"To: c@d.com\r\n" +
			"Subject: b64\r\n" +
			"Content-Type: text/plain; charset=utf-8\r\n" +
			"Content-Transfer-Encoding: base64\r\n" +
			"\r\n" +
			"aGVsbG8gd29ybGQ=\r\n"

		parsed, err := ParseRaw([]byte(raw))

		assert.NoError(t, err)
		assert.Equal(t, "hello world", strings.TrimSpace(parsed.Text))
	})
}

func TestParsedBody(t *testing.T) {
	t.Run("纯文本非空时优先纯文本", func(t *testing.T) {
		parsed := &Parsed{Text: "plain", HTML: "<p>html</p>"}

		assert.Equal(t, "plain", parsed.Body())
	})

	t.Run("纯文本为空白时回退 HTML", func(t *testing.T) {
		parsed := &Parsed{Text: "   ", HTML: "<p>html</p>"}

		assert.Equal(t, "<p>html</p>", parsed.Body())
	})
}

func TestBareAddress(t *testing.T) {
	t.Run("剥离显示名", func(t *testing.T) {
		assert.Equal(t, "alice@example.com", BareAddress(`"Alice" <alice@example.com>`))
	})

	t.Run("裸地址原样返回", func(t *testing.T) {
		assert.Equal(t, "bob@example.com", BareAddress("bob@example.com"))
	})

	t.Run("格式不规范时正则提取", func(t *testing.T) {
		assert.Equal(t, "carol@example.com", BareAddress("Carol carol@example.com (newsletter)"))
	})

	t.Run("空头部返回空串", func(t *testing.T) {
		assert.Equal(t, "", BareAddress(""))
	})
}

func TestDecodeSubject(t *testing.T) {
	t.Run("多段 encoded-word 重组", func(t *testing.T) {
		subject := DecodeSubject("=?utf-8?q?Hello?= =?utf-8?q?_World?=")

		assert.Equal(t, "Hello World", subject)
	})

	t.Run("普通主题原样返回", func(t *testing.T) {
		assert.Equal(t, "Weekly Digest", DecodeSubject("Weekly Digest"))
	})
}
