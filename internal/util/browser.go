package util

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os/exec"
	"runtime"
	"time"
)

// browserCommands 按平台列出打开网址的候选命令，依次尝试
func browserCommands(goos, url string) [][]string {
	switch goos {
	case "windows":
		// rundll32 在 Windows 7 上也能用
		return [][]string{
			{"rundll32", "url.dll,FileProtocolHandler", url},
			{"explorer", url},
		}
	case "darwin":
		return [][]string{{"open", url}}
	default:
		return [][]string{
			{"xdg-open", url},
			{"sensible-browser", url},
			{"google-chrome", url},
			{"firefox", url},
			{"chromium-browser", url},
		}
	}
}

// OpenBrowser 用第一个能启动的命令打开网址
func OpenBrowser(url string) error {
	var firstErr error
	for _, argv := range browserCommands(runtime.GOOS, url) {
		err := exec.Command(argv[0], argv[1:]...).Start()
		if err == nil {
			return nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	if firstErr == nil {
		firstErr = errors.New("no browser command for " + runtime.GOOS)
	}
	return firstErr
}

// WaitForPort 等到本机端口可以连上，超时或 ctx 取消返回错误
func WaitForPort(ctx context.Context, port int, interval time.Duration) error {
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	for {
		conn, err := net.DialTimeout("tcp", addr, interval)
		if err == nil {
			_ = conn.Close()
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("wait for %s: %w", addr, ctx.Err())
		case <-time.After(interval):
		}
	}
}

// OpenWhenReady 服务开始监听后再打开浏览器，避免页面打开时连接被拒
func OpenWhenReady(ctx context.Context, port int) error {
	if err := WaitForPort(ctx, port, 100*time.Millisecond); err != nil {
		return err
	}
	return OpenBrowser(fmt.Sprintf("http://localhost:%d", port))
}

// FindAvailablePort 从 startPort 起找第一个能监听的端口，最多尝试 tries 个
// 都被占用时返回 startPort，交给启动时报错
func FindAvailablePort(startPort, tries int) int {
	for p := startPort; p < startPort+tries; p++ {
		ln, err := net.Listen("tcp", fmt.Sprintf(":%d", p))
		if err != nil {
			continue
		}
		_ = ln.Close()
		return p
	}
	return startPort
}
