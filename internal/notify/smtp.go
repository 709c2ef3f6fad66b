package notify

import (
	"context"
	"fmt"
	"log"
	"net/smtp"
	"strings"
)

// SMTPConfig holds the mail account settings. An empty Username or Password
// puts the notifier into simulation mode.
type SMTPConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	From        string
	FrontendURL string
}

// SMTPNotifier delivers notifications over plain SMTP. Failures are logged and
// surfaced to the optional hook, never to the caller's control flow.
type SMTPNotifier struct {
	cfg       SMTPConfig
	onFailure FailureHook
}

func NewSMTPNotifier(cfg SMTPConfig, onFailure FailureHook) *SMTPNotifier {
	if cfg.FrontendURL == "" {
		cfg.FrontendURL = "http://localhost:3001"
	}
	return &SMTPNotifier{cfg: cfg, onFailure: onFailure}
}

func (n *SMTPNotifier) Notify(ctx context.Context, kind Kind, recipient string, payload Payload) bool {
	subject, body := n.compose(kind, payload)

	if n.cfg.Username == "" || n.cfg.Password == "" {
		log.Printf("[simulated] %s email for %s: %s", kind, recipient, subject)
		return true
	}

	msg := buildMessage(n.cfg.From, recipient, subject, body)
	addr := fmt.Sprintf("%s:%d", n.cfg.Host, n.cfg.Port)
	auth := smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)

	if err := smtp.SendMail(addr, auth, n.cfg.From, []string{recipient}, msg); err != nil {
		log.Printf("%s email to %s failed: %v", kind, recipient, err)
		if n.onFailure != nil {
			n.onFailure(kind, recipient)
		}
		return false
	}
	return true
}

func (n *SMTPNotifier) compose(kind Kind, payload Payload) (subject, body string) {
	team := payload["team_name"]
	switch kind {
	case KindVerification:
		url := n.cfg.FrontendURL + "/verify-email?token=" + payload["token"]
		return "Verify Your Email - CipherQuest",
			fmt.Sprintf("Hello %s,\n\nVerify your email to complete registration:\n%s\n\nThis link expires in 24 hours.", team, url)
	case KindPasswordReset:
		url := n.cfg.FrontendURL + "/reset-password?token=" + payload["token"]
		return "Password Reset - CipherQuest",
			fmt.Sprintf("Hello %s,\n\nReset your password here:\n%s\n\nThis link expires in 1 hour. If you didn't request this, ignore this email.", team, url)
	case KindQualification:
		return "Congratulations! You Qualified for the Build Phase",
			fmt.Sprintf("Congratulations %s!\n\nYou passed the cipher quest.\n\nAssigned problem: %s\n%s\n\nLog in to your dashboard for the full statement and guidelines.",
				team, payload["problem_title"], payload["problem_description"])
	case KindSubmissionConfirmation:
		return "CipherQuest Submission Received",
			fmt.Sprintf("Hello %s,\n\nYour project submission has been received and is now under review.\nCheck the leaderboard for updates.", team)
	default:
		return "CipherQuest Notification", fmt.Sprintf("Hello %s,\n\nYou have a new notification.", team)
	}
}

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: CipherQuest <%s>\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(body)
	return []byte(b.String())
}
