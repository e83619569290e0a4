package testutil

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"path/filepath"
	"testing"
	"time"
)

// TLSFixture is a throwaway CA with a server and a client certificate, laid out
// the way Core Lightning's grpc plugin writes them.
type TLSFixture struct {
	CAPath         string
	ClientCertPath string
	ClientKeyPath  string

	CAPool     *x509.CertPool
	ServerCert tls.Certificate
}

// CreateHomeDir returns a not yet existing home directory inside a temp dir
func CreateHomeDir(t *testing.T) string {
	t.Helper()
	return filepath.Join(CreateTempDir(t), ".corebos")
}

// CreateTLSFixture writes ca.pem, client.pem and client-key.pem into dir
func CreateTLSFixture(t *testing.T, dir string) TLSFixture {
	t.Helper()

	caKey := newKey(t)
	caTmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "cln Root CA"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
	}
	caDER, err := x509.CreateCertificate(rand.Reader, caTmpl, caTmpl, &caKey.PublicKey, caKey)
	if err != nil {
		t.Fatalf("Failed to create CA certificate: %v", err)
	}
	caCert, err := x509.ParseCertificate(caDER)
	if err != nil {
		t.Fatalf("Failed to parse CA certificate: %v", err)
	}

	serverKey := newKey(t)
	serverDER := signLeaf(t, caCert, caKey, serverKey, 2, "cln grpc Server", x509.ExtKeyUsageServerAuth)
	clientKey := newKey(t)
	clientDER := signLeaf(t, caCert, caKey, clientKey, 3, "cln grpc Client", x509.ExtKeyUsageClientAuth)

	fx := TLSFixture{
		CAPath:         WriteFile(t, dir, "ca.pem", pemBlock("CERTIFICATE", caDER)),
		ClientCertPath: WriteFile(t, dir, "client.pem", pemBlock("CERTIFICATE", clientDER)),
		ClientKeyPath:  WriteFile(t, dir, "client-key.pem", pemBlock("PRIVATE KEY", marshalKey(t, clientKey))),
		CAPool:         x509.NewCertPool(),
	}
	fx.CAPool.AddCert(caCert)

	fx.ServerCert, err = tls.X509KeyPair(pemBlock("CERTIFICATE", serverDER), pemBlock("PRIVATE KEY", marshalKey(t, serverKey)))
	if err != nil {
		t.Fatalf("Failed to load server key pair: %v", err)
	}

	return fx
}

func newKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("Failed to generate key: %v", err)
	}
	return key
}

func signLeaf(t *testing.T, ca *x509.Certificate, caKey, key *ecdsa.PrivateKey, serial int64, cn string, usage x509.ExtKeyUsage) []byte {
	t.Helper()
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(serial),
		Subject:      pkix.Name{CommonName: cn},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{usage},
		DNSNames:     []string{"localhost", "cln"},
		IPAddresses:  []net.IP{net.ParseIP("127.0.0.1")},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, ca, &key.PublicKey, caKey)
	if err != nil {
		t.Fatalf("Failed to create %s certificate: %v", cn, err)
	}
	return der
}

func marshalKey(t *testing.T, key *ecdsa.PrivateKey) []byte {
	t.Helper()
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatalf("Failed to marshal key: %v", err)
	}
	return der
}

func pemBlock(typ string, der []byte) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: typ, Bytes: der})
}
