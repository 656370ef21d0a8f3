package runner

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"net"
	"strings"
	"syscall"
)

// Transport error classes.
const (
	ErrClassRefused = "connection-refused"
	ErrClassReset   = "connection-reset"
	ErrClassTimeout = "timeout"
	ErrClassDNS     = "dns"
	ErrClassTLS     = "tls"
	ErrClassEOF     = "eof"
	ErrClassUnknown = "unknown"
)

// Classify maps a transport error to one of the ErrClass constants.
func Classify(err error) string {
	if err == nil {
		return ""
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return ErrClassDNS
	}

	switch {
	case errors.Is(err, syscall.ECONNREFUSED):
		return ErrClassRefused
	case errors.Is(err, syscall.ECONNRESET), errors.Is(err, syscall.EPIPE):
		return ErrClassReset
	case errors.Is(err, context.DeadlineExceeded):
		return ErrClassTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrClassTimeout
	}

	if isTLSError(err) {
		return ErrClassTLS
	}

	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrClassEOF
	}

	return classifyMessage(err.Error())
}

func isTLSError(err error) bool {
	var (
		recordErr   tls.RecordHeaderError
		verifyErr   *tls.CertificateVerificationError
		authErr     x509.UnknownAuthorityError
		hostErr     x509.HostnameError
		invalidCert x509.CertificateInvalidError
	)
	return errors.As(err, &recordErr) ||
		errors.As(err, &verifyErr) ||
		errors.As(err, &authErr) ||
		errors.As(err, &hostErr) ||
		errors.As(err, &invalidCert)
}

// classifyMessage is the fallback for errors that lost their type on the way up.
func classifyMessage(msg string) string {
	m := strings.ToLower(msg)

	switch {
	case strings.Contains(m, "connection refused"):
		return ErrClassRefused
	case strings.Contains(m, "connection reset"), strings.Contains(m, "broken pipe"):
		return ErrClassReset
	case strings.Contains(m, "no such host"), strings.Contains(m, "dial tcp: lookup"):
		return ErrClassDNS
	case strings.Contains(m, "timeout"), strings.Contains(m, "timed out"), strings.Contains(m, "deadline exceeded"):
		return ErrClassTimeout
	case strings.Contains(m, "tls"), strings.Contains(m, "x509"), strings.Contains(m, "certificate"):
		return ErrClassTLS
	case strings.Contains(m, "eof"):
		return ErrClassEOF
	}
	return ErrClassUnknown
}
