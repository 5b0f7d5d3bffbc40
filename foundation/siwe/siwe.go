// Package siwe provides support for Sign-In-With-Ethereum (EIP-4361)
// messages and the personal_sign signatures wallets produce for them.
package siwe

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// Set of error variables for message handling.
var (
	ErrMalformed        = errors.New("malformed siwe message")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrExpired          = errors.New("message expired")
	ErrNotYetValid      = errors.New("message not yet valid")
)

// Version is the only message version defined by EIP-4361.
const Version = "1"

const (
	headerSuffix = " wants you to sign in with your Ethereum account:"

	tagURI            = "URI: "
	tagVersion        = "Version: "
	tagChainID        = "Chain ID: "
	tagNonce          = "Nonce: "
	tagIssuedAt       = "Issued At: "
	tagExpirationTime = "Expiration Time: "
	tagNotBefore      = "Not Before: "
	tagRequestID      = "Request ID: "
	tagResources      = "Resources:"
)

// Message represents the fields of a sign in request.
type Message struct {
	Domain         string
	Address        common.Address
	Statement      string
	URI            string
	Version        string
	ChainID        int64
	Nonce          string
	IssuedAt       time.Time
	ExpirationTime time.Time
	NotBefore      time.Time
	RequestID      string
	Resources      []string
}

// String renders the message in the exact text form that gets signed.
func (m Message) String() string {
	var sb strings.Builder

	sb.WriteString(m.Domain + headerSuffix + "\n")
	sb.WriteString(m.Address.Hex() + "\n\n")
	if m.Statement != "" {
		sb.WriteString(m.Statement + "\n")
	}
	sb.WriteString("\n")

	sb.WriteString(tagURI + m.URI + "\n")
	sb.WriteString(tagVersion + m.Version + "\n")
	sb.WriteString(tagChainID + strconv.FormatInt(m.ChainID, 10) + "\n")
	sb.WriteString(tagNonce + m.Nonce + "\n")
	sb.WriteString(tagIssuedAt + m.IssuedAt.UTC().Format(time.RFC3339))

	if !m.ExpirationTime.IsZero() {
		sb.WriteString("\n" + tagExpirationTime + m.ExpirationTime.UTC().Format(time.RFC3339))
	}
	if !m.NotBefore.IsZero() {
		sb.WriteString("\n" + tagNotBefore + m.NotBefore.UTC().Format(time.RFC3339))
	}
	if m.RequestID != "" {
		sb.WriteString("\n" + tagRequestID + m.RequestID)
	}
	if len(m.Resources) > 0 {
		sb.WriteString("\n" + tagResources)
		for _, r := range m.Resources {
			sb.WriteString("\n- " + r)
		}
	}

	return sb.String()
}

// CheckTime validates the message time window against the specified time.
func (m Message) CheckTime(now time.Time) error {
	if !m.ExpirationTime.IsZero() && !now.Before(m.ExpirationTime) {
		return ErrExpired
	}

	if !m.NotBefore.IsZero() && now.Before(m.NotBefore) {
		return ErrNotYetValid
	}

	return nil
}

// =============================================================================

// Parse decodes the text form of a sign in message.
func Parse(raw string) (Message, error) {
	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")
	if len(lines) < 8 {
		return Message{}, fmt.Errorf("%w: too few lines", ErrMalformed)
	}

	var m Message

	domain, ok := strings.CutSuffix(lines[0], headerSuffix)
	if !ok || domain == "" {
		return Message{}, fmt.Errorf("%w: bad header", ErrMalformed)
	}
	m.Domain = domain

	if !common.IsHexAddress(lines[1]) {
		return Message{}, fmt.Errorf("%w: bad address %q", ErrMalformed, lines[1])
	}
	m.Address = common.HexToAddress(lines[1])

	if lines[2] != "" {
		return Message{}, fmt.Errorf("%w: missing blank line after address", ErrMalformed)
	}

	// The statement is optional and is followed by its own blank line.
	i := 3
	if lines[i] != "" {
		m.Statement = lines[i]
		i++
	}
	if lines[i] != "" {
		return Message{}, fmt.Errorf("%w: missing blank line before fields", ErrMalformed)
	}
	i++

	required := []struct {
		tag string
		dst *string
	}{
		{tagURI, &m.URI},
		{tagVersion, &m.Version},
	}
	for _, r := range required {
		v, err := take(lines, &i, r.tag)
		if err != nil {
			return Message{}, err
		}
		*r.dst = v
	}

	if m.Version != Version {
		return Message{}, fmt.Errorf("%w: unsupported version %q", ErrMalformed, m.Version)
	}

	chainID, err := take(lines, &i, tagChainID)
	if err != nil {
		return Message{}, err
	}
	if m.ChainID, err = strconv.ParseInt(chainID, 10, 64); err != nil {
		return Message{}, fmt.Errorf("%w: chain id: %s", ErrMalformed, err)
	}

	if m.Nonce, err = take(lines, &i, tagNonce); err != nil {
		return Message{}, err
	}
	if len(m.Nonce) < 8 {
		return Message{}, fmt.Errorf("%w: nonce too short", ErrMalformed)
	}

	issuedAt, err := take(lines, &i, tagIssuedAt)
	if err != nil {
		return Message{}, err
	}
	if m.IssuedAt, err = time.Parse(time.RFC3339, issuedAt); err != nil {
		return Message{}, fmt.Errorf("%w: issued at: %s", ErrMalformed, err)
	}

	optional := []struct {
		tag string
		dst *time.Time
	}{
		{tagExpirationTime, &m.ExpirationTime},
		{tagNotBefore, &m.NotBefore},
	}
	for _, o := range optional {
		if i < len(lines) && strings.HasPrefix(lines[i], o.tag) {
			t, err := time.Parse(time.RFC3339, strings.TrimPrefix(lines[i], o.tag))
			if err != nil {
				return Message{}, fmt.Errorf("%w: %s%s", ErrMalformed, o.tag, err)
			}
			*o.dst = t
			i++
		}
	}

	if i < len(lines) && strings.HasPrefix(lines[i], tagRequestID) {
		m.RequestID = strings.TrimPrefix(lines[i], tagRequestID)
		i++
	}

	if i < len(lines) && lines[i] == tagResources {
		i++
		for ; i < len(lines) && strings.HasPrefix(lines[i], "- "); i++ {
			m.Resources = append(m.Resources, strings.TrimPrefix(lines[i], "- "))
		}
	}

	if i != len(lines) {
		return Message{}, fmt.Errorf("%w: unexpected line %q", ErrMalformed, lines[i])
	}

	return m, nil
}

// take consumes the line at the index if it carries the tag.
func take(lines []string, i *int, tag string) (string, error) {
	if *i >= len(lines) || !strings.HasPrefix(lines[*i], tag) {
		return "", fmt.Errorf("%w: missing %q", ErrMalformed, strings.TrimSpace(tag))
	}

	v := strings.TrimPrefix(lines[*i], tag)
	*i++
	return v, nil
}

// =============================================================================

// Sign uses the specified private key to sign the message the way a wallet
// does for personal_sign. The signature is returned hex encoded.
func Sign(raw string, privateKey *ecdsa.PrivateKey) (string, error) {
	sig, err := crypto.Sign(stamp(raw), privateKey)
	if err != nil {
		return "", err
	}

	// Wallets report the recovery id in the legacy 27/28 form.
	sig[crypto.RecoveryIDOffset] += 27

	return hexutil.Encode(sig), nil
}

// Verify parses the message and checks the signature was produced by the
// address named in the message.
func Verify(raw string, sigHex string) (Message, error) {
	m, err := Parse(raw)
	if err != nil {
		return Message{}, err
	}

	from, err := FromAddress(raw, sigHex)
	if err != nil {
		return Message{}, err
	}

	if from != m.Address {
		return Message{}, fmt.Errorf("%w: signed by %s, message names %s", ErrInvalidSignature, from, m.Address)
	}

	return m, nil
}

// FromAddress extracts the address for the account that signed the message.
func FromAddress(raw string, sigHex string) (common.Address, error) {
	sig, err := hexutil.Decode(sigHex)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %s", ErrInvalidSignature, err)
	}

	if len(sig) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("%w: length %d", ErrInvalidSignature, len(sig))
	}

	// Normalize the recovery id back to 0 or 1.
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}
	if sig[crypto.RecoveryIDOffset] > 1 {
		return common.Address{}, fmt.Errorf("%w: recovery id", ErrInvalidSignature)
	}

	publicKey, err := crypto.SigToPub(stamp(raw), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %s", ErrInvalidSignature, err)
	}

	return crypto.PubkeyToAddress(*publicKey), nil
}

// stamp returns the EIP-191 hash of the message, which embeds the Ethereum
// prefix and the message length so a signature can't be replayed as a
// transaction.
func stamp(raw string) []byte {
	prefix := fmt.Sprintf("\x19Ethereum Signed Message:\n%d", len(raw))
	return crypto.Keccak256([]byte(prefix), []byte(raw))
}
