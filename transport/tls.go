package transport

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"net"
	"time"

	"golang.org/x/crypto/acme/autocert"
)

// TLS wraps TCP with a certificate set, following the teacher's transport/tls.go: the raw
// *net.TCPListener stays reachable for deadline-based accept-loop control (tls.Listener alone
// doesn't expose SetDeadline), while tls.NewListener supplies the actual handshake.
type TLS struct {
	certs          []tls.Certificate
	getCertificate func(*tls.ClientHelloInfo) (*tls.Certificate, error)
	TCP
}

func NewTLS(certs []tls.Certificate) *TLS {
	return &TLS{certs: certs}
}

func (t *TLS) Bind(addr string) error {
	tcp, err := bindTCP(addr)
	if err != nil {
		return err
	}

	l := tls.NewListener(tcp, &tls.Config{
		Certificates:   t.certs,
		GetCertificate: t.getCertificate,
	})
	t.TCP = newTCP(tlsAdapter{tcp, l})

	return nil
}

type tlsAdapter struct {
	*net.TCPListener
	tls net.Listener
}

func (t tlsAdapter) Accept() (net.Conn, error) {
	return t.tls.Accept()
}

// NewAutoTLS builds a TLS transport that fetches certificates on demand from Let's Encrypt via
// ACME for the given domains, following the teacher's https.go AutoHTTPS. certCacheDir stores
// issued certificates across restarts.
func NewAutoTLS(certCacheDir string, domains ...string) *TLS {
	manager := &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(domains...),
		Cache:      autocert.DirCache(certCacheDir),
	}

	return &TLS{getCertificate: manager.GetCertificate}
}

// SelfSigned generates an in-memory, self-signed certificate for localhost development, mirroring
// the teacher's https.go local-development branch of AutoHTTPS.
func SelfSigned() (tls.Certificate, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return tls.Certificate{}, err
	}

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "localhost"},
		NotBefore:    time.Now(),
		NotAfter:     time.Now().Add(365 * 24 * time.Hour),
		DNSNames:     []string{"localhost"},
		KeyUsage:     x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		return tls.Certificate{}, err
	}

	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key}, nil
}
