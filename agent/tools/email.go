package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/smtp"
	"strings"

	"go.uber.org/zap"

	"github.com/flowgrid-io/flowgrid/graph"
	"github.com/flowgrid-io/flowgrid/types"
)

// smtpSender is swapped in tests; the default sends over net/smtp.
type smtpSender func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

func newEmailTool(node graph.Node, deps Deps) Tool {
	return newEmailToolWithSender(node, deps, smtp.SendMail)
}

func newEmailToolWithSender(node graph.Node, deps Deps, send smtpSender) Tool {
	logger := deps.logger().With(zap.String("tool", "send_email"))

	cfgString := func(key string) string {
		s, _ := node.Data[key].(string)
		return s
	}

	return Tool{
		Schema: types.ToolSchema{
			Name:        "send_email",
			Description: "Sends an email through the configured SMTP account.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"to": {"type": "string", "description": "Recipient address"},
					"subject": {"type": "string"},
					"body": {"type": "string"}
				},
				"required": ["to", "subject", "body"]
			}`),
		},
		Execute: func(ctx context.Context, args json.RawMessage) (string, error) {
			var params struct {
				To      string `json:"to"`
				Subject string `json:"subject"`
				Body    string `json:"body"`
			}
			if err := json.Unmarshal(args, &params); err != nil {
				return "", fmt.Errorf("invalid send_email arguments: %w", err)
			}
			if params.To == "" || params.Subject == "" {
				return "", fmt.Errorf("to and subject are required")
			}

			host := cfgString("host")
			port := cfgString("port")
			user := cfgString("user")
			pass := cfgString("password")
			fromAddr := cfgString("fromAddress")
			if host == "" || fromAddr == "" {
				return "", fmt.Errorf("email tool is not configured: host and fromAddress are required")
			}
			if port == "" {
				port = "587"
			}

			from := fromAddr
			if name := cfgString("fromName"); name != "" {
				from = fmt.Sprintf("%s <%s>", name, fromAddr)
			}

			var msg strings.Builder
			fmt.Fprintf(&msg, "From: %s\r\n", from)
			fmt.Fprintf(&msg, "To: %s\r\n", params.To)
			fmt.Fprintf(&msg, "Subject: %s\r\n", params.Subject)
			msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n")
			msg.WriteString(params.Body)

			var auth smtp.Auth
			if user != "" {
				auth = smtp.PlainAuth("", user, pass, host)
			}
			addr := net.JoinHostPort(host, port)
			if err := send(addr, auth, fromAddr, []string{params.To}, []byte(msg.String())); err != nil {
				logger.Warn("smtp send failed", zap.String("host", host), zap.Error(err))
				return "", fmt.Errorf("send failed: %w", err)
			}
			return fmt.Sprintf("Email sent to %s", params.To), nil
		},
	}
}
