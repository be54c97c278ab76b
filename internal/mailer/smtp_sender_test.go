package mailer

import (
	"context"
	"errors"
	"net"
	"net/smtp"
	"net/textproto"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMTPSender_Send(t *testing.T) {
	s := NewSMTPSender("mail.example.com", 587, "user", "pass", "noreply@yamdb.local")

	var gotFrom string
	var gotTo []string
	var gotMsg []byte
	s.send = func(_ context.Context, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotFrom, gotTo, gotMsg = from, to, msg
		return nil
	}

	require.NoError(t, s.Send(context.Background(), "bob@x.com", "Confirmation code", "hello"))

	assert.Equal(t, "mail.example.com:587", s.addr)
	assert.Equal(t, "noreply@yamdb.local", gotFrom)
	assert.Equal(t, []string{"bob@x.com"}, gotTo)
	assert.Contains(t, string(gotMsg), "Subject: Confirmation code\r\n")
	assert.Contains(t, string(gotMsg), "\r\n\r\nhello")
}

func TestSMTPSender_RejectsHeaderInjection(t *testing.T) {
	s := NewSMTPSender("mail.example.com", 25, "", "", "noreply@yamdb.local")
	s.send = func(context.Context, smtp.Auth, string, []string, []byte) error {
		t.Fatal("send must not be called")
		return nil
	}

	err := s.Send(context.Background(), "bob@x.com\r\nBcc: all@x.com", "s", "b")
	assert.Error(t, err)
}

func TestSMTPSender_WrapsTransportError(t *testing.T) {
	s := NewSMTPSender("mail.example.com", 25, "", "", "noreply@yamdb.local")
	boom := errors.New("connection refused")
	s.send = func(context.Context, smtp.Auth, string, []string, []byte) error { return boom }

	err := s.Send(context.Background(), "bob@x.com", "s", "b")
	assert.ErrorIs(t, err, boom)
}

// serveSMTP answers one session with the minimal command set the sender uses
// and hands the received DATA payload to the returned channel.
func serveSMTP(t *testing.T, ln net.Listener) <-chan string {
	t.Helper()
	received := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		tp := textproto.NewConn(conn)
		_ = tp.PrintfLine("220 localhost ESMTP")
		for {
			line, err := tp.ReadLine()
			if err != nil {
				return
			}
			switch cmd := strings.ToUpper(line); {
			case strings.HasPrefix(cmd, "EHLO"):
				_ = tp.PrintfLine("250-localhost")
				_ = tp.PrintfLine("250 8BITMIME")
			case strings.HasPrefix(cmd, "MAIL FROM"), strings.HasPrefix(cmd, "RCPT TO"):
				_ = tp.PrintfLine("250 OK")
			case cmd == "DATA":
				_ = tp.PrintfLine("354 End data with <CR><LF>.<CR><LF>")
				lines, err := tp.ReadDotLines()
				if err != nil {
					return
				}
				received <- strings.Join(lines, "\n")
				_ = tp.PrintfLine("250 OK")
			case cmd == "QUIT":
				_ = tp.PrintfLine("221 Bye")
				return
			default:
				_ = tp.PrintfLine("502 Command not implemented")
			}
		}
	}()
	return received
}

func listen(t *testing.T) (net.Listener, string, int) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })
	host, portStr, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return ln, host, port
}

func TestSMTPSender_DeliversOverSession(t *testing.T) {
	ln, host, port := listen(t)
	received := serveSMTP(t, ln)

	s := NewSMTPSender(host, port, "", "", "noreply@yamdb.local")
	require.NoError(t, s.Send(context.Background(), "bob@x.com", "Confirmation code", "hello"))

	select {
	case data := <-received:
		assert.Contains(t, data, "To: bob@x.com")
		assert.Contains(t, data, "hello")
	case <-time.After(5 * time.Second):
		t.Fatal("message was not delivered")
	}
}

func TestSMTPSender_StalledServerHonoursContext(t *testing.T) {
	ln, host, port := listen(t)
	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			accepted <- conn
		}
	}()
	t.Cleanup(func() {
		select {
		case conn := <-accepted:
			conn.Close()
		default:
		}
	})

	s := NewSMTPSender(host, port, "", "", "noreply@yamdb.local")
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := s.Send(ctx, "bob@x.com", "s", "b")

	assert.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestSMTPSender_TimeoutBoundsSession(t *testing.T) {
	ln, host, port := listen(t)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		time.Sleep(2 * time.Second)
	}()

	s := NewSMTPSender(host, port, "", "", "noreply@yamdb.local")
	s.timeout = 100 * time.Millisecond

	start := time.Now()
	err := s.Send(context.Background(), "bob@x.com", "s", "b")

	assert.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}
