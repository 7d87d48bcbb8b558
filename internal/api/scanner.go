package api

import (
	"errors"
	"fmt"
	"io"

	"github.com/dutchcoders/go-clamd"
)

// ErrMalicious 表示上传文件未通过病毒扫描。
var ErrMalicious = errors.New("malicious file detected")

// VirusScanner 扫描上传内容，发现病毒时返回 ErrMalicious。
type VirusScanner interface {
	Scan(r io.Reader) error
}

// ClamdScanner 通过 clamd 的 INSTREAM 接口扫描。
type ClamdScanner struct {
	Addr string
}

func (s ClamdScanner) Scan(r io.Reader) error {
	client := clamd.NewClamd(s.Addr)
	abort := make(chan bool)
	defer close(abort)

	results, err := client.ScanStream(r, abort)
	if err != nil {
		return fmt.Errorf("scan stream: %w", err)
	}
	for result := range results {
		switch result.Status {
		case clamd.RES_OK:
		case clamd.RES_FOUND:
			return fmt.Errorf("%w: %s", ErrMalicious, result.Description)
		default:
			return fmt.Errorf("clamd returned %s: %s", result.Status, result.Description)
		}
	}
	return nil
}
