package imapmail

import (
	"fmt"
	"net"
	"strings"
	"time"
)

// Common IMAP servers for popular email providers that are connected with
// app passwords rather than OAuth.
var knownIMAPServers = map[string]string{
	"yahoo.com":      "imap.mail.yahoo.com",
	"yahoo.co.uk":    "imap.mail.yahoo.com",
	"yandex.ru":      "imap.yandex.ru",
	"yandex.com":     "imap.yandex.com",
	"mail.ru":        "imap.mail.ru",
	"icloud.com":     "imap.mail.me.com",
	"me.com":         "imap.mail.me.com",
	"mac.com":        "imap.mail.me.com",
	"aol.com":        "imap.aol.com",
	"zoho.com":       "imap.zoho.com",
	"fastmail.com":   "imap.fastmail.com",
	"gmx.com":        "imap.gmx.com",
	"gmx.de":         "imap.gmx.net",
	"web.de":         "imap.web.de",
	"t-online.de":    "secureimap.t-online.de",
	"protonmail.com": "127.0.0.1", // ProtonMail Bridge
	"proton.me":      "127.0.0.1",
}

// ResolveIMAPServer determines the IMAP server for an email address when the
// account was connected without an explicit host.
func ResolveIMAPServer(email string) (string, int, error) {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return "", 0, fmt.Errorf("invalid email address %q", email)
	}

	domain := strings.ToLower(parts[1])

	// Known providers first
	if host, ok := knownIMAPServers[domain]; ok {
		if host == "127.0.0.1" {
			return host, 1143, nil
		}
		return host, 993, nil
	}

	// Try common IMAP server patterns
	for _, host := range []string{"imap." + domain, "mail." + domain, domain} {
		if reachable(host, 993) {
			return host, 993, nil
		}
	}

	// Try to derive from MX records
	if host, err := resolveViaMX(domain); err == nil {
		return host, 993, nil
	}

	// Default fallback
	return "imap." + domain, 993, nil
}

// reachable checks whether a TCP endpoint accepts connections.
func reachable(host string, port int) bool {
	address := fmt.Sprintf("%s:%d", host, port)
	conn, err := net.DialTimeout("tcp", address, 3*time.Second)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// resolveViaMX tries to determine the IMAP server from MX records,
// e.g. mx.example.com -> imap.example.com.
func resolveViaMX(domain string) (string, error) {
	mxRecords, err := net.LookupMX(domain)
	if err != nil || len(mxRecords) == 0 {
		return "", fmt.Errorf("no MX records found for %s", domain)
	}

	mxHost := strings.TrimSuffix(mxRecords[0].Host, ".")
	parts := strings.SplitN(mxHost, ".", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("could not derive IMAP server from %s", mxHost)
	}

	baseDomain := parts[1]
	for _, host := range []string{"imap." + baseDomain, "mail." + baseDomain} {
		if reachable(host, 993) {
			return host, nil
		}
	}

	return "", fmt.Errorf("could not determine IMAP server for %s", domain)
}
