package transport

import (
	"crypto/tls"
	"crypto/x509"
	"os"
	"path/filepath"

	"github.com/unkn0wn-root/flightdesk/internal/errdef"
)

type TLSFiles struct {
	RootCAs    []string
	ClientCert string
	ClientKey  string
	Insecure   bool
	RootMode   RootMode
}

type RootMode string

const (
	RootModeReplace RootMode = "replace"
	RootModeAppend  RootMode = "append"
)

// BuildTLS assembles a tls.Config from PEM files. Relative paths resolve
// against baseDir (normally the config directory).
func BuildTLS(files TLSFiles, baseDir string) (*tls.Config, error) {
	mode := files.RootMode
	if mode == "" {
		mode = RootModeReplace
	}

	tc := &tls.Config{InsecureSkipVerify: files.Insecure} // nolint:gosec

	if len(files.RootCAs) > 0 {
		pool, err := loadRootCAs(files.RootCAs, baseDir, mode == RootModeAppend)
		if err != nil {
			return nil, err
		}
		tc.RootCAs = pool
	}

	if files.ClientCert != "" || files.ClientKey != "" {
		if files.ClientCert == "" || files.ClientKey == "" {
			return nil, errdef.New(errdef.CodeConfig, "client certificate and key are both required")
		}
		cert, err := tls.LoadX509KeyPair(resolvePath(files.ClientCert, baseDir), resolvePath(files.ClientKey, baseDir))
		if err != nil {
			return nil, errdef.Wrap(errdef.CodeConfig, err, "load client certificate")
		}
		tc.Certificates = []tls.Certificate{cert}
	}

	return tc, nil
}

func loadRootCAs(paths []string, baseDir string, mergeSystem bool) (*x509.CertPool, error) {
	var pool *x509.CertPool
	if mergeSystem {
		pool, _ = x509.SystemCertPool()
	}
	if pool == nil {
		pool = x509.NewCertPool()
	}

	for _, p := range paths {
		data, err := os.ReadFile(resolvePath(p, baseDir))
		if err != nil {
			return nil, errdef.Wrap(errdef.CodeFilesystem, err, "read root ca %s", p)
		}
		if !pool.AppendCertsFromPEM(data) {
			return nil, errdef.New(errdef.CodeConfig, "no certificates in %s", p)
		}
	}
	return pool, nil
}

func resolvePath(path, baseDir string) string {
	if filepath.IsAbs(path) || baseDir == "" {
		return filepath.Clean(path)
	}
	return filepath.Clean(filepath.Join(baseDir, path))
}
