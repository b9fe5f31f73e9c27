// Package mailer は確認メール・パスワードリセットメールの送信を提供する。
package mailer

import (
	"fmt"

	"gopkg.in/gomail.v2"
)

// Sender はトランザクションメール送信のインターフェース。
// 認証サービスから利用する。テストではモック実装を注入する。
type Sender interface {
	// SendConfirmation はメールアドレス確認リンクを送信する。
	SendConfirmation(to, confirmURL string) error
	// SendPasswordReset はパスワードリセットリンクを送信する。
	SendPasswordReset(to, resetURL string) error
}

// Config はSMTP接続の設定。
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer はgomailを使用したSenderの実装。
type SMTPMailer struct {
	config Config
	dialer *gomail.Dialer
}

// NewSMTPMailer はSMTPMailerを生成する。
func NewSMTPMailer(config Config) *SMTPMailer {
	dialer := gomail.NewDialer(config.Host, config.Port, config.Username, config.Password)
	return &SMTPMailer{
		config: config,
		dialer: dialer,
	}
}

// SendConfirmation はメールアドレス確認リンクを送信する。
func (m *SMTPMailer) SendConfirmation(to, confirmURL string) error {
	subject := "UG-Research : confirmez votre adresse email"
	body := fmt.Sprintf(
		"Bonjour,\n\n"+
			"Merci de votre inscription sur UG-Research.\n"+
			"Pour activer votre compte, cliquez sur le lien suivant :\n\n%s\n\n"+
			"Ce lien est valable 24 heures et ne peut être utilisé qu'une seule fois.\n\n"+
			"Si vous n'êtes pas à l'origine de cette inscription, ignorez cet email.\n",
		confirmURL,
	)
	return m.send(to, subject, body)
}

// SendPasswordReset はパスワードリセットリンクを送信する。
func (m *SMTPMailer) SendPasswordReset(to, resetURL string) error {
	subject := "UG-Research : réinitialisation de votre mot de passe"
	body := fmt.Sprintf(
		"Bonjour,\n\n"+
			"Une demande de réinitialisation de mot de passe a été effectuée pour votre compte.\n"+
			"Pour choisir un nouveau mot de passe, cliquez sur le lien suivant :\n\n%s\n\n"+
			"Ce lien est valable 1 heure et ne peut être utilisé qu'une seule fois.\n\n"+
			"Si vous n'êtes pas à l'origine de cette demande, ignorez cet email.\n",
		resetURL,
	)
	return m.send(to, subject, body)
}

// send は単一のテキストメールを送信する。
func (m *SMTPMailer) send(to, subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.config.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// compile-time interface check
var _ Sender = (*SMTPMailer)(nil)
