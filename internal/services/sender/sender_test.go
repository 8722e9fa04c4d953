package sender

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/onirworld/legalassist/internal/lib/smtp"
	"github.com/onirworld/legalassist/internal/services/auth"
)

type MockTransport struct {
	mock.Mock
}

func (m *MockTransport) Connect() (smtp.Client, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(smtp.Client), args.Error(1)
}

func (m *MockTransport) GetSMTPUser() string {
	args := m.Called()
	return args.String(0)
}

type MockSMTPClient struct {
	mock.Mock
}

func (m *MockSMTPClient) Mail(from string) error {
	args := m.Called(from)
	return args.Error(0)
}

func (m *MockSMTPClient) Rcpt(to string) error {
	args := m.Called(to)
	return args.Error(0)
}

func (m *MockSMTPClient) Data() (io.WriteCloser, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.WriteCloser), args.Error(1)
}

func (m *MockSMTPClient) Close() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockSMTPClient) Quit() error {
	args := m.Called()
	return args.Error(0)
}

type MockWriter struct {
	mock.Mock
	written []byte
}

func (m *MockWriter) Write(p []byte) (int, error) {
	m.written = append(m.written, p...)
	args := m.Called(p)
	return len(p), args.Error(0)
}

func (m *MockWriter) Close() error {
	args := m.Called()
	return args.Error(0)
}

func NewNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func resetTaskBody(t *testing.T, email, link string) []byte {
	t.Helper()
	body, err := json.Marshal(auth.ResetTask{Email: email, ResetLink: link})
	require.NoError(t, err)
	return body
}

func TestSendPasswordReset_Success(t *testing.T) {
	transport := new(MockTransport)
	client := new(MockSMTPClient)
	writer := new(MockWriter)
	svc := New(transport, NewNoopLogger())

	transport.On("GetSMTPUser").Return("noreply@legalassist.example")
	transport.On("Connect").Return(client, nil)
	client.On("Mail", "noreply@legalassist.example").Return(nil)
	client.On("Rcpt", "user@example.com").Return(nil)
	client.On("Data").Return(writer, nil)
	writer.On("Write", mock.Anything).Return(nil)
	writer.On("Close").Return(nil)
	client.On("Quit").Return(nil)
	client.On("Close").Return(nil)

	err := svc.SendPasswordReset(resetTaskBody(t,
		"user@example.com", "https://app.example.com/reset-password?token=abc"))

	require.NoError(t, err)
	msg := string(writer.written)
	assert.True(t, strings.Contains(msg, "Subject: Password reset request"))
	assert.True(t, strings.Contains(msg, "https://app.example.com/reset-password?token=abc"))
	assert.True(t, strings.Contains(msg, "To: user@example.com"))
	transport.AssertExpectations(t)
	client.AssertExpectations(t)
}

func TestSendPasswordReset_InvalidBody(t *testing.T) {
	transport := new(MockTransport)
	svc := New(transport, NewNoopLogger())

	err := svc.SendPasswordReset([]byte("not json"))

	require.Error(t, err)
	transport.AssertNotCalled(t, "Connect")
}

func TestSendPasswordReset_ConnectError(t *testing.T) {
	transport := new(MockTransport)
	svc := New(transport, NewNoopLogger())

	transport.On("GetSMTPUser").Return("noreply@legalassist.example")
	transport.On("Connect").Return(nil, errors.New("connection refused"))

	err := svc.SendPasswordReset(resetTaskBody(t, "user@example.com", "link"))

	require.Error(t, err)
}

func TestSendPasswordReset_RcptError(t *testing.T) {
	transport := new(MockTransport)
	client := new(MockSMTPClient)
	svc := New(transport, NewNoopLogger())

	transport.On("GetSMTPUser").Return("noreply@legalassist.example")
	transport.On("Connect").Return(client, nil)
	client.On("Mail", mock.Anything).Return(nil)
	client.On("Rcpt", "bad@example.com").Return(errors.New("mailbox unavailable"))
	client.On("Close").Return(nil)

	err := svc.SendPasswordReset(resetTaskBody(t, "bad@example.com", "link"))

	require.Error(t, err)
	client.AssertNotCalled(t, "Data")
}
