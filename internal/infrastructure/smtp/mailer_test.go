package smtp

import (
	"bufio"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/dmca-notices/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMessage_Headers(t *testing.T) {
	msg := string(buildMessage("jane@example.com", "abuse@host.example", "DMCA Notice", "body text"))

	assert.True(t, strings.HasPrefix(msg, "From: jane@example.com\r\nTo: abuse@host.example\r\nSubject: DMCA Notice\r\n"))
	assert.True(t, strings.HasSuffix(msg, "\r\n\r\nbody text"))
}

func TestBuildMessage_StripsHeaderInjection(t *testing.T) {
	msg := string(buildMessage("jane@example.com\r\nBcc: victim@example.com", "abuse@host.example", "DMCA Notice", "body"))
	assert.NotContains(t, msg, "\r\nBcc:")
}

type envelope struct {
	mailFrom, rcptTo, data string
}

// fakeSMTP accepts a single session and reports what it received.
func fakeSMTP(t *testing.T) (host, port string, got <-chan envelope) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	ch := make(chan envelope, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		r := bufio.NewReader(conn)
		reply := func(s string) { _, _ = conn.Write([]byte(s + "\r\n")) }

		reply("220 fake ESMTP")
		var env envelope
		var data strings.Builder
		inData := false
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			if inData {
				if line == ".\r\n" {
					inData = false
					env.data = data.String()
					reply("250 queued")
					continue
				}
				data.WriteString(line)
				continue
			}
			cmd := strings.TrimSpace(line)
			switch upper := strings.ToUpper(cmd); {
			case strings.HasPrefix(upper, "EHLO"), strings.HasPrefix(upper, "HELO"):
				reply("250 fake")
			case strings.HasPrefix(upper, "MAIL FROM:"):
				env.mailFrom = cmd[len("MAIL FROM:"):]
				reply("250 ok")
			case strings.HasPrefix(upper, "RCPT TO:"):
				env.rcptTo = cmd[len("RCPT TO:"):]
				reply("250 ok")
			case upper == "DATA":
				inData = true
				reply("354 go ahead")
			case upper == "QUIT":
				reply("221 bye")
				ch <- env
				return
			default:
				reply("502 not implemented")
			}
		}
	}()

	host, port, err = net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	return host, port, ch
}

func TestSendEmail_DeliversToRelay(t *testing.T) {
	host, port, got := fakeSMTP(t)
	m := NewMailer(&config.Config{SMTPHost: host, SMTPPort: port})

	require.NoError(t, m.SendEmail("jane@example.com", "abuse@host.example", "DMCA Notice", "Dear Sir or Madam"))

	select {
	case env := <-got:
		assert.Equal(t, "<jane@example.com>", env.mailFrom)
		assert.Equal(t, "<abuse@host.example>", env.rcptTo)
		assert.Contains(t, env.data, "Subject: DMCA Notice\r\n")
		assert.Contains(t, env.data, "Dear Sir or Madam")
	case <-time.After(5 * time.Second):
		t.Fatal("relay never saw QUIT")
	}
}

func TestSendEmail_UnreachableRelay(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	host, port, _ := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, ln.Close())

	err = NewMailer(&config.Config{SMTPHost: host, SMTPPort: port}).SendEmail("a@example.com", "b@example.com", "s", "b")
	assert.Error(t, err)
}
