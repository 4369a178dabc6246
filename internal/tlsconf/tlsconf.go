// Package tlsconf derives matching TLS credentials from a shared passphrase.
//
// Both sides derive the same ECDSA P-256 key with HKDF. The server presents a
// throwaway self-signed certificate for that key; the client ignores the
// chain and checks only that the presented public key equals the one it
// derived itself. Same passphrase, same key, connection succeeds. A different
// passphrase fails the handshake.
//
// Key derivation:
//
//	HKDF-SHA256(ikm=passphrase, salt="clipshare-tls-v1", info="private-key")
//	→ 64 bytes → reduced mod curve order → ECDSA P-256 key
package tlsconf

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"math/big"
	"time"

	"golang.org/x/crypto/hkdf"
	"google.golang.org/grpc/credentials"
)

// DefaultPassphrase is used when no --passphrase is configured.
const DefaultPassphrase = "clipshare"

const serverName = "clipshare"

// Credentials holds both ends of a passphrase-derived TLS pairing.
type Credentials struct {
	// Server is for tls.NewListener. ALPN offers h2 and http/1.1 so gRPC,
	// the HTTP gateway and the data plane can share one port.
	Server *tls.Config
	// Client dials a server started with the same passphrase.
	Client *tls.Config
}

// New derives Credentials from passphrase.
func New(passphrase string) (*Credentials, error) {
	key, err := deriveKey(passphrase)
	if err != nil {
		return nil, fmt.Errorf("tlsconf: derive key: %w", err)
	}
	cert, err := keyPair(key)
	if err != nil {
		return nil, fmt.Errorf("tlsconf: %w", err)
	}
	expected, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("tlsconf: marshal pubkey: %w", err)
	}

	return &Credentials{
		Server: &tls.Config{
			Certificates: []tls.Certificate{cert},
			NextProtos:   []string{"h2", "http/1.1"},
			MinVersion:   tls.VersionTLS13,
		},
		Client: &tls.Config{
			// The chain is never checked; verifyPublicKey is.
			InsecureSkipVerify:    true, //nolint:gosec
			ServerName:            serverName,
			MinVersion:            tls.VersionTLS13,
			VerifyPeerCertificate: verifyPublicKey(expected),
		},
	}, nil
}

// GRPC returns gRPC transport credentials for the client side.
func (c *Credentials) GRPC() credentials.TransportCredentials {
	return credentials.NewTLS(c.Client.Clone())
}

// ClientConfig returns a client *tls.Config for passphrase.
func ClientConfig(passphrase string) (*tls.Config, error) {
	creds, err := New(passphrase)
	if err != nil {
		return nil, err
	}
	return creds.Client, nil
}

func verifyPublicKey(expected []byte) func([][]byte, [][]*x509.Certificate) error {
	return func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
		if len(rawCerts) == 0 {
			return errors.New("tlsconf: server presented no certificate")
		}
		cert, err := x509.ParseCertificate(rawCerts[0])
		if err != nil {
			return fmt.Errorf("tlsconf: parse server cert: %w", err)
		}
		pub, err := x509.MarshalPKIXPublicKey(cert.PublicKey)
		if err != nil {
			return fmt.Errorf("tlsconf: marshal server pubkey: %w", err)
		}
		if !bytes.Equal(pub, expected) {
			return errors.New("tlsconf: server public key does not match passphrase")
		}
		return nil
	}
}

// deriveKey derives a deterministic ECDSA P-256 private key from passphrase.
func deriveKey(passphrase string) (*ecdsa.PrivateKey, error) {
	r := hkdf.New(sha256.New, []byte(passphrase), []byte("clipshare-tls-v1"), []byte("private-key"))
	buf := make([]byte, 64)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("hkdf read: %w", err)
	}

	curve := elliptic.P256()
	n := curve.Params().N
	k := new(big.Int).SetBytes(buf)
	k.Mod(k, new(big.Int).Sub(n, big.NewInt(1)))
	k.Add(k, big.NewInt(1)) // k ∈ [1, N-1]

	key := new(ecdsa.PrivateKey)
	key.PublicKey.Curve = curve
	key.D = k
	key.PublicKey.X, key.PublicKey.Y = curve.ScalarBaseMult(k.Bytes())
	return key, nil
}

// keyPair wraps key in a freshly generated self-signed certificate.
func keyPair(key *ecdsa.PrivateKey) (tls.Certificate, error) {
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return tls.Certificate{}, err
	}
	tmpl := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: serverName},
		DNSNames:              []string{serverName},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(100 * 365 * 24 * time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
	}
	certDER, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("cert: %w", err)
	}
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("marshal key: %w", err)
	}
	return tls.X509KeyPair(
		pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER}),
		pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}),
	)
}
