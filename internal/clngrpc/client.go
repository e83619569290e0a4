package clngrpc

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
)

// DefaultServerName is the name Core Lightning puts in the grpc server
// certificate it generates.
const DefaultServerName = "cln"

const (
	methodGetinfo   = "/cln.Node/Getinfo"
	methodListFunds = "/cln.Node/ListFunds"
	methodNewAddr   = "/cln.Node/NewAddr"
)

// TLSConfig builds a mutual TLS client config from PEM blobs.
func TLSConfig(caPEM, certPEM, keyPEM []byte, serverName string) (*tls.Config, error) {
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caPEM) {
		return nil, errors.New("clngrpc: no certificates found in ca cert")
	}
	pair, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return nil, fmt.Errorf("clngrpc: client key pair: %w", err)
	}
	if serverName == "" {
		serverName = DefaultServerName
	}
	return &tls.Config{
		RootCAs:      pool,
		Certificates: []tls.Certificate{pair},
		ServerName:   serverName,
		MinVersion:   tls.VersionTLS12,
	}, nil
}

// Client calls the cln.Node service.
type Client struct {
	conn *grpc.ClientConn
}

// Dial creates a client for addr. The connection is established lazily by the
// first call.
func Dial(addr string, tlsConfig *tls.Config, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(credentials.NewTLS(tlsConfig)),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(codec{})),
	}, opts...)

	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn}, nil
}

func (c *Client) Getinfo(ctx context.Context) (*GetinfoResponse, error) {
	resp := new(GetinfoResponse)
	if err := c.conn.Invoke(ctx, methodGetinfo, &GetinfoRequest{}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) ListFunds(ctx context.Context) (*ListfundsResponse, error) {
	resp := new(ListfundsResponse)
	if err := c.conn.Invoke(ctx, methodListFunds, &ListfundsRequest{}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) NewAddr(ctx context.Context, t AddressType) (*NewaddrResponse, error) {
	resp := new(NewaddrResponse)
	if err := c.conn.Invoke(ctx, methodNewAddr, &NewaddrRequest{AddressType: t}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
