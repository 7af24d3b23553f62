package smtp

import (
	"errors"
	"io"
	"strings"
	"time"

	gosmtp "github.com/emersion/go-smtp"
	"go.uber.org/zap"

	"mailfoxes/backend/internal/service"
	"mailfoxes/backend/internal/storage"
)

// maxMessageBytes 单封邮件原始内容上限
const maxMessageBytes = 10 << 20 // 10MB

// Backend 实现 go-smtp 的 Backend 接口。
//
// 这是一个只接收邮件的 SMTP 服务器，作为 webhook 之外的第二摄入口：
// 收到的邮件走与 webhook 完全相同的摄入管线（解码、链接提取、来源解析）。
// 不支持对外发送，不做邮件中继。
//
// 收件人验证策略：
//   - autoCreate 关闭时，收件地址必须已存在对应来源，否则 550 拒绝
//   - autoCreate 开启时接受任意收件人，来源在摄入时自动创建
type Backend struct {
	emails     *service.EmailService
	sources    *service.SourceService
	limiter    *ConnectionLimiter
	logger     *zap.Logger
	autoCreate bool
}

// NewBackend 创建 SMTP Backend。
func NewBackend(emails *service.EmailService, sources *service.SourceService, autoCreate bool, logger *zap.Logger) *Backend {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Backend{
		emails:     emails,
		sources:    sources,
		limiter:    NewConnectionLimiter(50, 10),
		logger:     logger,
		autoCreate: autoCreate,
	}
}

// NewSession 创建新的 SMTP 会话。
func (b *Backend) NewSession(c *gosmtp.Conn) (gosmtp.Session, error) {
	if !b.limiter.Acquire() {
		return nil, &gosmtp.SMTPError{
			Code:         421,
			EnhancedCode: gosmtp.EnhancedCode{4, 7, 0},
			Message:      "too many connections, try again later",
		}
	}
	return &session{backend: b}, nil
}

// NewServer 基于 Backend 组装 SMTP 服务器。
func NewServer(backend *Backend, addr, domain string) *gosmtp.Server {
	server := gosmtp.NewServer(backend)
	server.Addr = addr
	server.Domain = domain
	server.ReadTimeout = 30 * time.Second
	server.WriteTimeout = 30 * time.Second
	server.MaxMessageBytes = maxMessageBytes
	server.MaxRecipients = 20
	server.AllowInsecureAuth = true
	return server
}

type session struct {
	backend     *Backend
	fromAddress string
	recipients  []string
	released    bool
}

// Mail 处理 MAIL 命令。
func (s *session) Mail(from string, opts *gosmtp.MailOptions) error {
	s.fromAddress = from
	return nil
}

// Rcpt 处理 RCPT 命令。
// 非自动创建模式下只接受已知来源的收件地址，防止被当作中继滥用。
func (s *session) Rcpt(to string, _ *gosmtp.RcptOptions) error {
	addr := normalizeAddress(to)
	if !strings.Contains(addr, "@") {
		return &gosmtp.SMTPError{
			Code:         501,
			EnhancedCode: gosmtp.EnhancedCode{5, 1, 3},
			Message:      "invalid recipient address",
		}
	}

	if !s.backend.autoCreate {
		if _, err := s.backend.sources.GetByAddress(addr); err != nil {
			if errors.Is(err, storage.ErrSourceNotFound) {
				return &gosmtp.SMTPError{
					Code:         550,
					EnhancedCode: gosmtp.EnhancedCode{5, 1, 1},
					Message:      "recipient source not found",
				}
			}
			return err
		}
	}

	s.recipients = append(s.recipients, addr)
	return nil
}

// Data 处理邮件内容。整封原始 MIME 交给摄入管线解码。
func (s *session) Data(r io.Reader) error {
	rawBytes, err := io.ReadAll(io.LimitReader(r, maxMessageBytes))
	if err != nil {
		return err
	}

	for _, rcpt := range s.recipients {
		record, err := s.backend.emails.Ingest(service.IngestInput{
			To:      rcpt,
			From:    normalizeAddress(s.fromAddress),
			RawMIME: string(rawBytes),
		})
		if err != nil {
			if errors.Is(err, service.ErrNoContent) {
				return &gosmtp.SMTPError{
					Code:         554,
					EnhancedCode: gosmtp.EnhancedCode{5, 6, 0},
					Message:      "message has no usable content",
				}
			}
			s.backend.logger.Error("smtp ingest failed",
				zap.String("to", rcpt),
				zap.String("from", s.fromAddress),
				zap.Error(err),
			)
			return err
		}

		s.backend.logger.Info("email received via smtp",
			zap.String("email_id", record.ID),
			zap.String("to", rcpt),
		)
	}
	return nil
}

// AuthPlain 处理 PLAIN 认证（此处允许匿名）。
func (s *session) AuthPlain(username, password string) error {
	return nil
}

// Reset 重置状态。
func (s *session) Reset() {
	s.fromAddress = ""
	s.recipients = nil
}

// Logout 会话结束，释放连接许可。
func (s *session) Logout() error {
	if !s.released {
		s.backend.limiter.Release()
		s.released = true
	}
	return nil
}

func normalizeAddress(addr string) string {
	addr = strings.TrimSpace(addr)
	addr = strings.Trim(addr, "<>")
	return strings.ToLower(addr)
}
