// Package tlsclient 构建访问 CAS 服务器的 HTTP 客户端
//
// 优先信任配置的固定证书（server.crt）；证书缺失或解析失败时
// 降级为信任所有证书，仅供开发环境使用。
package tlsclient

import (
	"bytes"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"net"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"
)

// Options 客户端构建参数
type Options struct {
	// CertPath CAS 服务器证书（PEM 编码 X.509）路径
	CertPath string
	// ConnectTimeout 连接超时，默认 10 秒
	ConnectTimeout time.Duration
	// ReadTimeout 读取超时，默认 10 秒
	ReadTimeout time.Duration
}

// New 构建 HTTP 客户端
// 任何证书读取/解析错误都只降级，不会中断进程
func New(opts Options, logger *zap.Logger) *http.Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = 10 * time.Second
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = 10 * time.Second
	}

	tlsConfig, err := pinnedConfig(opts.CertPath)
	if err != nil {
		logger.Warn("加载 CAS 服务器证书失败，降级为信任所有证书（INSECURE，仅限开发环境）",
			zap.String("cert_path", opts.CertPath),
			zap.Error(err),
		)
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	} else {
		logger.Info("已加载 CAS 服务器证书", zap.String("cert_path", opts.CertPath))
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: opts.ConnectTimeout,
		}).DialContext,
		TLSHandshakeTimeout: opts.ConnectTimeout,
		TLSClientConfig:     tlsConfig,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   opts.ReadTimeout,
	}
}

// pinnedConfig 构建只信任固定证书的 TLS 配置
// 证书本身即认证了对端，因此跳过主机名校验，仅校验证书本身
func pinnedConfig(certPath string) (*tls.Config, error) {
	pemData, err := os.ReadFile(certPath)
	if err != nil {
		return nil, err
	}

	pinned, err := parseCertificates(pemData)
	if err != nil {
		return nil, err
	}

	pool := x509.NewCertPool()
	for _, cert := range pinned {
		pool.AddCert(cert)
	}

	return &tls.Config{
		// 关闭默认校验，由 VerifyPeerCertificate 针对固定证书验证
		InsecureSkipVerify: true,
		VerifyPeerCertificate: func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
			if len(rawCerts) == 0 {
				return errors.New("对端未提供证书")
			}

			// 对端叶子证书与固定证书完全一致时直接通过
			for _, cert := range pinned {
				if bytes.Equal(rawCerts[0], cert.Raw) {
					return nil
				}
			}

			// 否则按证书链校验，固定证书作为信任根
			certs := make([]*x509.Certificate, 0, len(rawCerts))
			for _, raw := range rawCerts {
				cert, err := x509.ParseCertificate(raw)
				if err != nil {
					return err
				}
				certs = append(certs, cert)
			}

			intermediates := x509.NewCertPool()
			for _, cert := range certs[1:] {
				intermediates.AddCert(cert)
			}

			_, err := certs[0].Verify(x509.VerifyOptions{
				Roots:         pool,
				Intermediates: intermediates,
			})
			return err
		},
	}, nil
}

// parseCertificates 解析 PEM 数据中的全部 X.509 证书
func parseCertificates(pemData []byte) ([]*x509.Certificate, error) {
	var certs []*x509.Certificate
	for len(pemData) > 0 {
		var block *pem.Block
		block, pemData = pem.Decode(pemData)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, err
		}
		certs = append(certs, cert)
	}
	if len(certs) == 0 {
		return nil, errors.New("证书文件不是合法的 PEM 编码 X.509 证书")
	}
	return certs, nil
}
