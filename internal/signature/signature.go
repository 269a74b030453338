// Package signature builds and verifies HTTP message signatures in the
// cavage-draft format used across the fediverse: RSA-SHA256 over an ordered
// set of pseudo and real headers. The signing-string layout must stay
// byte-compatible with Mastodon's, so the header order and casing here are
// part of the wire contract.
package signature

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sidereusnuntius/gomarks/internal/utils"
)

// ErrMalformedHeader reports a Signature header that could not be parsed.
// Verification failures are not errors; they surface as a false result.
var ErrMalformedHeader = errors.New("malformed signature header")

const (
	requestTarget = "(request-target)"
	algorithm     = "rsa-sha256"
)

// Data is the parsed content of a Signature header.
type Data struct {
	// KeyID is the absolute URL of the signer's key, usually the actor uri
	// plus a #main-key fragment.
	KeyID *url.URL
	// Headers lists the lowercase names signed, in signing-string order.
	Headers   []string
	Algorithm string
	// Signature is the base64-encoded raw signature.
	Signature string
}

// ParseHeader parses the key="value" pairs of a Signature header. It is a
// strict parser: pairs are split on bare commas and no surrounding whitespace
// is tolerated, which matches what mainstream fediverse servers emit.
func ParseHeader(raw string) (Data, error) {
	if raw == "" {
		return Data{}, fmt.Errorf("%w: empty header", ErrMalformedHeader)
	}

	fields := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		name, value, found := strings.Cut(pair, "=")
		if !found {
			return Data{}, fmt.Errorf("%w: %q is not a key=\"value\" pair", ErrMalformedHeader, pair)
		}
		if len(value) < 2 || value[0] != '"' || value[len(value)-1] != '"' {
			return Data{}, fmt.Errorf("%w: value of %q is not quoted", ErrMalformedHeader, name)
		}
		fields[name] = value[1 : len(value)-1]
	}

	rawKeyId, ok := fields["keyId"]
	if !ok {
		return Data{}, fmt.Errorf("%w: missing keyId", ErrMalformedHeader)
	}
	keyId, err := url.Parse(rawKeyId)
	if err != nil || !keyId.IsAbs() {
		return Data{}, fmt.Errorf("%w: keyId %q is not an absolute URL", ErrMalformedHeader, rawKeyId)
	}

	headerList, ok := fields["headers"]
	if !ok {
		return Data{}, fmt.Errorf("%w: missing headers", ErrMalformedHeader)
	}

	sig, ok := fields["signature"]
	if !ok {
		return Data{}, fmt.Errorf("%w: missing signature", ErrMalformedHeader)
	}

	return Data{
		KeyID:     keyId,
		Headers:   strings.Fields(strings.ToLower(headerList)),
		Algorithm: fields["algorithm"],
		Signature: sig,
	}, nil
}

// Build signs a POST to target on behalf of keyId and returns the headers to
// send with it: Host, Date, Digest (when a payload is given), Content-Type
// and the Signature header itself. The (request-target) pseudo-header is part
// of the signing string but is not returned.
func Build(target *url.URL, keyId string, privateKeyPem string, payload []byte) (map[string]string, error) {
	key, err := utils.ParsePrivateKeyPem(privateKeyPem)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	date := time.Now().UTC().Format(http.TimeFormat)
	names := []string{requestTarget, "host", "date"}
	values := map[string]string{
		requestTarget: "post " + target.RequestURI(),
		"host":        target.Host,
		"date":        date,
	}

	headers := map[string]string{
		"Host":         target.Host,
		"Date":         date,
		"Content-Type": "application/activity+json",
	}

	if payload != nil {
		sum := sha256.Sum256(payload)
		digest := "SHA-256=" + base64.StdEncoding.EncodeToString(sum[:])
		names = append(names, "digest")
		values["digest"] = digest
		headers["Digest"] = digest
	}

	signed, err := sign(key, signingString(names, values))
	if err != nil {
		return nil, err
	}

	headers["Signature"] = fmt.Sprintf(
		"keyId=%q,headers=%q,algorithm=%q,signature=%q",
		keyId, strings.Join(names, " "), algorithm, signed,
	)
	return headers, nil
}

// BuildGet signs a GET of target, for instances that require signed fetches.
// The signing string covers (request-target), host and date; there is no body
// and therefore no digest.
func BuildGet(target *url.URL, keyId string, privateKeyPem string) (map[string]string, error) {
	key, err := utils.ParsePrivateKeyPem(privateKeyPem)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	date := time.Now().UTC().Format(http.TimeFormat)
	names := []string{requestTarget, "host", "date"}
	values := map[string]string{
		requestTarget: "get " + target.RequestURI(),
		"host":        target.Host,
		"date":        date,
	}

	signed, err := sign(key, signingString(names, values))
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"Host": target.Host,
		"Date": date,
		"Signature": fmt.Sprintf(
			"keyId=%q,headers=%q,algorithm=%q,signature=%q",
			keyId, strings.Join(names, " "), algorithm, signed,
		),
	}, nil
}

// Verify checks data's signature against the actor's public key. The signing
// string is reconstructed from exactly the header names data lists, in that
// order: (request-target) from path, digest recomputed from body, everything
// else taken from the request headers. A header that was signed but is absent
// from the request simply drops out of the string, which makes verification
// fail. The returned error only reports malformed input, never a bad
// signature.
func Verify(path string, key *rsa.PublicKey, data Data, headers map[string][]string, body []byte) (bool, error) {
	sum := sha256.Sum256(body)
	digest := "SHA-256=" + base64.StdEncoding.EncodeToString(sum[:])

	var entries []string
	for _, name := range data.Headers {
		switch name = strings.ToLower(name); name {
		case requestTarget:
			entries = append(entries, requestTarget+": post "+path)
		case "digest":
			entries = append(entries, "digest: "+digest)
		default:
			if vs := headers[name]; len(vs) != 0 {
				entries = append(entries, name+": "+vs[0])
			}
		}
	}

	sig, err := base64.StdEncoding.DecodeString(data.Signature)
	if err != nil {
		return false, fmt.Errorf("signature is not valid base64: %w", err)
	}

	hashed := sha256.Sum256([]byte(strings.Join(entries, "\n")))
	if err = rsa.VerifyPKCS1v15(key, crypto.SHA256, hashed[:], sig); err != nil {
		return false, nil
	}
	return true, nil
}

// NormalizeHeaders lowercases the header names of an inbound request so they
// can be matched against the names listed in the Signature header.
func NormalizeHeaders(h http.Header) map[string][]string {
	out := make(map[string][]string, len(h))
	for name, values := range h {
		out[strings.ToLower(name)] = values
	}
	return out
}

func signingString(names []string, values map[string]string) string {
	entries := make([]string, 0, len(names))
	for _, name := range names {
		entries = append(entries, name+": "+values[name])
	}
	return strings.Join(entries, "\n")
}

func sign(key *rsa.PrivateKey, signingString string) (string, error) {
	hashed := sha256.Sum256([]byte(signingString))
	sig, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, hashed[:])
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}
