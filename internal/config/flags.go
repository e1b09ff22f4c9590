package config

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// NetAddress holds a host and port. It implements flag.Value.
type NetAddress struct {
	Host string
	Port int
}

// ParseFlags parses args into a configuration layer.
//
// Flags:
//
//	-a             server address host:port
//	-grpc-address  gRPC health server address host:port
//	-api           remote API address used by the client
//	-d             database DSN
//	-c / -config   JSON config file path
//	-dev           development mode
//	-log-dir       client log directory
//	-token-sign-key, -token-issuer, -token-duration
//	-request-timeout
//	-sync-interval
//	-target-hash-time
//	-rsa-key-size
func ParseFlags(args []string) (*StructuredConfig, error) {
	fs := flag.NewFlagSet("vault-sync", flag.ContinueOnError)

	var serverAddress, grpcServerAddress NetAddress
	var apiAddress, databaseDSN, jsonConfigPath, logDir string
	var tokenSignKey, tokenIssuer string
	var development bool
	var tokenDuration, requestTimeout, syncInterval, targetHashTime time.Duration
	var rsaKeySize int

	fs.Var(&serverAddress, "a", "Net address host:port")
	fs.Var(&grpcServerAddress, "grpc-address", "Net grpc server address host:port")
	fs.StringVar(&apiAddress, "api", "", "Remote API address")
	fs.StringVar(&databaseDSN, "d", "", "Database DSN")
	fs.StringVar(&jsonConfigPath, "c", "", "JSON config file path")
	fs.StringVar(&jsonConfigPath, "config", "", "JSON config file path (alias)")
	fs.BoolVar(&development, "dev", false, "Development mode")
	fs.StringVar(&logDir, "log-dir", "", "Client log directory")
	fs.StringVar(&tokenSignKey, "token-sign-key", "", "Token signing key")
	fs.StringVar(&tokenIssuer, "token-issuer", "", "Token issuer")
	fs.DurationVar(&tokenDuration, "token-duration", 0, "Token duration (e.g., 1h, 30m)")
	fs.DurationVar(&requestTimeout, "request-timeout", 0, "Request timeout (e.g., 30s, 1m)")
	fs.DurationVar(&syncInterval, "sync-interval", 0, "Background sync interval")
	fs.DurationVar(&targetHashTime, "target-hash-time", 0, "Password hashing calibration target")
	fs.IntVar(&rsaKeySize, "rsa-key-size", 0, "Master keypair modulus size")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("error parsing flags: %w", err)
	}

	return &StructuredConfig{
		App: App{
			Development:   development,
			LogDir:        logDir,
			TokenSignKey:  tokenSignKey,
			TokenIssuer:   tokenIssuer,
			TokenDuration: tokenDuration,
		},
		Crypto: Crypto{
			TargetHashTime: targetHashTime,
			RSAKeySize:     rsaKeySize,
		},
		Storage: Storage{
			DB: DB{DSN: databaseDSN},
		},
		Server: Server{
			HTTPAddress:    serverAddress.String(),
			GRPCAddress:    grpcServerAddress.String(),
			RequestTimeout: requestTimeout,
		},
		Adapter: Adapter{
			HTTPAddress:    apiAddress,
			RequestTimeout: requestTimeout,
		},
		Workers:      Workers{SyncInterval: syncInterval},
		JSONFilePath: jsonConfigPath,
	}, nil
}

// String returns host:port, or an empty string for an unset address.
func (a *NetAddress) String() string {
	if a.Host == "" && a.Port == 0 {
		return ""
	}

	return a.Host + ":" + strconv.Itoa(a.Port)
}

// Set parses host:port. The host must be "localhost" or an IP address.
func (a *NetAddress) Set(s string) error {
	hostAndPort := strings.Split(s, ":")
	if len(hostAndPort) != 2 {
		return errors.New("need address in a form `host:port`")
	}

	host := hostAndPort[0]
	port, err := strconv.Atoi(hostAndPort[1])
	if err != nil {
		return err
	}

	if port < 1 || port > 65535 {
		return errors.New("port number must be in range 1..65535")
	}

	if host != "localhost" && host != "" {
		if ip := net.ParseIP(host); ip == nil {
			return errors.New("incorrect IP-address provided")
		}
	}

	a.Host = host
	a.Port = port
	return nil
}
