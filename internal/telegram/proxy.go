package telegram

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/iksnae/corebos/internal"
	"golang.org/x/net/proxy"
	"gopkg.in/yaml.v3"
)

// ProxyConfig is a SOCKS5 proxy read from a JSON or YAML file.
type ProxyConfig struct {
	Host     string `json:"host" yaml:"host"`
	Port     Port   `json:"port" yaml:"port"`
	UserID   string `json:"userId" yaml:"userId"`
	Password string `json:"password" yaml:"password"`
}

// Port is a proxy port written either as a number or as a numeric string.
type Port int

func (p *Port) UnmarshalJSON(data []byte) error {
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return fmt.Errorf("port must be a number: %s", data)
		}
		n = json.Number(str)
	}
	return p.parse(n.String())
}

func (p *Port) UnmarshalYAML(value *yaml.Node) error {
	return p.parse(value.Value)
}

func (p *Port) parse(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 || n > 65535 {
		return fmt.Errorf("invalid port %q", s)
	}
	*p = Port(n)
	return nil
}

// LoadProxyConfig reads the proxy file at path.
func LoadProxyConfig(path string) (ProxyConfig, error) {
	path = internal.ExpandPath(path)
	data, err := os.ReadFile(path)
	if err != nil {
		return ProxyConfig{}, internal.NewError(internal.KindInvalidArgument, "FailedToFindFileAtProxySpecifiedPath",
			&internal.StorageError{Path: path, Op: "read", Err: err})
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return ProxyConfig{}, internal.Errorf(internal.KindInvalidArgument, "ExpectedFileDataAtProxySpecifiedPath", "%s is empty", path)
	}

	var cfg ProxyConfig
	if json.Valid(data) {
		err = json.Unmarshal(data, &cfg)
	} else {
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return ProxyConfig{}, internal.NewError(internal.KindInvalidArgument, "ExpectedValidJsonConfigFileForProxy",
			&internal.ParseError{Source: "proxy", Key: path, Err: err})
	}
	if cfg.Host == "" || cfg.Port <= 0 {
		return ProxyConfig{}, internal.Errorf(internal.KindInvalidArgument, "ExpectedValidJsonConfigFileForProxy", "%s needs a host and a port", path)
	}

	return cfg, nil
}

// Address is host:port of the proxy
func (c ProxyConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(int(c.Port)))
}

// HTTPClient returns a client whose connections go through the proxy.
func (c ProxyConfig) HTTPClient() (*http.Client, error) {
	var auth *proxy.Auth
	if c.UserID != "" || c.Password != "" {
		auth = &proxy.Auth{User: c.UserID, Password: c.Password}
	}

	dialer, err := proxy.SOCKS5("tcp", c.Address(), auth, proxy.Direct)
	if err != nil {
		return nil, internal.NewError(internal.KindConnectFailed, "FailedToCreateSocksProxyAgent", err)
	}
	contextDialer, ok := dialer.(proxy.ContextDialer)
	if !ok {
		return nil, internal.Errorf(internal.KindConnectFailed, "FailedToCreateSocksProxyAgent", "proxy dialer does not support contexts")
	}

	return &http.Client{Transport: &http.Transport{DialContext: contextDialer.DialContext}}, nil
}
