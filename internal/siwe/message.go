// Package siwe composes and parses EIP-4361 (Sign-In with Ethereum)
// messages. Rendering is byte-deterministic: the verifier checks the
// signature over the exact bytes the composer produced.
package siwe

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/onchain-guard/gatekeeper/core"
)

// Version is the only EIP-4361 message version in existence.
const Version = "1"

const headerSuffix = " wants you to sign in with your Ethereum account:"

var nonceRe = regexp.MustCompile(`^[a-zA-Z0-9]{8,}$`)

// Message is a structured EIP-4361 challenge.
type Message struct {
	Domain         string
	Address        string
	Statement      string
	URI            string
	ChainID        uint64
	Nonce          string
	IssuedAt       time.Time
	ExpirationTime time.Time // zero means no expiration line
}

// Validate rejects messages whose field values could alter the line
// structure of the rendered message (field-boundary injection) or that
// would not round-trip through Parse.
func (m *Message) Validate() error {
	if m.Domain == "" || strings.ContainsAny(m.Domain, " \n\r") {
		return fmt.Errorf("%w: bad domain", core.ErrMalformedMessage)
	}
	if !common.IsHexAddress(m.Address) {
		return core.ErrInvalidAddress
	}
	if strings.ContainsAny(m.Statement, "\n\r") {
		return fmt.Errorf("%w: statement must be a single line", core.ErrMalformedMessage)
	}
	if m.URI == "" || strings.ContainsAny(m.URI, " \n\r") {
		return fmt.Errorf("%w: bad uri", core.ErrMalformedMessage)
	}
	if !nonceRe.MatchString(m.Nonce) {
		return fmt.Errorf("%w: bad nonce", core.ErrMalformedMessage)
	}
	if m.IssuedAt.IsZero() {
		return fmt.Errorf("%w: missing issued-at", core.ErrMalformedMessage)
	}
	return nil
}

// String renders the canonical EIP-4361 layout. Timestamps are RFC 3339
// in UTC so identical inputs always produce identical bytes.
func (m *Message) String() string {
	var b strings.Builder
	b.WriteString(m.Domain)
	b.WriteString(headerSuffix)
	b.WriteString("\n")
	b.WriteString(common.HexToAddress(m.Address).Hex())
	b.WriteString("\n\n")
	if m.Statement != "" {
		b.WriteString(m.Statement)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString("URI: " + m.URI + "\n")
	b.WriteString("Version: " + Version + "\n")
	b.WriteString("Chain ID: " + strconv.FormatUint(m.ChainID, 10) + "\n")
	b.WriteString("Nonce: " + m.Nonce + "\n")
	b.WriteString("Issued At: " + m.IssuedAt.UTC().Format(time.RFC3339))
	if !m.ExpirationTime.IsZero() {
		b.WriteString("\nExpiration Time: " + m.ExpirationTime.UTC().Format(time.RFC3339))
	}
	return b.String()
}

// Parse reads a canonical EIP-4361 message back into its fields. The
// parser is strict: anything that does not match the layout String
// produces is rejected with core.ErrMalformedMessage.
func Parse(raw string) (*Message, error) {
	lines := strings.Split(raw, "\n")
	if len(lines) < 8 {
		return nil, fmt.Errorf("%w: too few lines", core.ErrMalformedMessage)
	}

	domain, ok := strings.CutSuffix(lines[0], headerSuffix)
	if !ok || domain == "" {
		return nil, fmt.Errorf("%w: bad header line", core.ErrMalformedMessage)
	}

	msg := &Message{Domain: domain, Address: lines[1]}
	if !common.IsHexAddress(msg.Address) {
		return nil, fmt.Errorf("%w: bad address line", core.ErrMalformedMessage)
	}
	if lines[2] != "" {
		return nil, fmt.Errorf("%w: missing separator", core.ErrMalformedMessage)
	}

	// Optional single-line statement between the two blank lines.
	rest := lines[3:]
	if rest[0] != "" {
		msg.Statement = rest[0]
		rest = rest[1:]
		if len(rest) == 0 || rest[0] != "" {
			return nil, fmt.Errorf("%w: missing separator after statement", core.ErrMalformedMessage)
		}
	}
	rest = rest[1:]

	fields := make(map[string]string, len(rest))
	order := make([]string, 0, len(rest))
	for _, line := range rest {
		name, value, found := strings.Cut(line, ": ")
		if !found {
			return nil, fmt.Errorf("%w: bad field line %q", core.ErrMalformedMessage, line)
		}
		if _, dup := fields[name]; dup {
			return nil, fmt.Errorf("%w: duplicate field %q", core.ErrMalformedMessage, name)
		}
		fields[name] = value
		order = append(order, name)
	}

	required := []string{"URI", "Version", "Chain ID", "Nonce", "Issued At"}
	for i, name := range required {
		if i >= len(order) || order[i] != name {
			return nil, fmt.Errorf("%w: missing field %q", core.ErrMalformedMessage, name)
		}
	}
	for _, name := range order[len(required):] {
		if name != "Expiration Time" {
			return nil, fmt.Errorf("%w: unexpected field %q", core.ErrMalformedMessage, name)
		}
	}

	if fields["Version"] != Version {
		return nil, fmt.Errorf("%w: unsupported version %q", core.ErrMalformedMessage, fields["Version"])
	}
	msg.URI = fields["URI"]

	chainID, err := strconv.ParseUint(fields["Chain ID"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad chain id", core.ErrMalformedMessage)
	}
	msg.ChainID = chainID

	msg.Nonce = fields["Nonce"]
	if !nonceRe.MatchString(msg.Nonce) {
		return nil, fmt.Errorf("%w: bad nonce", core.ErrMalformedMessage)
	}

	msg.IssuedAt, err = time.Parse(time.RFC3339, fields["Issued At"])
	if err != nil {
		return nil, fmt.Errorf("%w: bad issued-at", core.ErrMalformedMessage)
	}

	if exp, present := fields["Expiration Time"]; present {
		msg.ExpirationTime, err = time.Parse(time.RFC3339, exp)
		if err != nil {
			return nil, fmt.Errorf("%w: bad expiration time", core.ErrMalformedMessage)
		}
	}

	return msg, nil
}
