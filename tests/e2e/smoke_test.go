package e2e

import (
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"
)

// 冒烟测试：需要一个已启动的服务实例
// 运行方式: SHARETRUST_E2E_BASE_URL=http://localhost:9000 go test ./tests/e2e/
func baseURL(t *testing.T) string {
	t.Helper()
	url := os.Getenv("SHARETRUST_E2E_BASE_URL")
	if url == "" {
		t.Skip("SHARETRUST_E2E_BASE_URL 未设置，跳过 e2e 冒烟测试")
	}
	return url
}

func TestHealth(t *testing.T) {
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(baseURL(t) + "/health")
	if err != nil {
		t.Fatalf("健康检查请求失败: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("健康检查返回 %d", resp.StatusCode)
	}

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("解析健康检查响应失败: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("健康检查状态异常: %v", body)
	}
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	client := &http.Client{Timeout: 5 * time.Second}
	base := baseURL(t)

	paths := []string{
		"/api/v1/me",
		"/api/v1/groups",
		"/api/v1/transactions",
		"/api/v1/reports",
	}
	for _, path := range paths {
		resp, err := client.Get(base + path)
		if err != nil {
			t.Fatalf("请求 %s 失败: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("%s 未带 token 应返回 401，实际 %d", path, resp.StatusCode)
		}
	}
}

func TestAuthRejectsBadCode(t *testing.T) {
	client := &http.Client{Timeout: 10 * time.Second}

	body := strings.NewReader(`{"code":"definitely-not-a-valid-line-code"}`)
	resp, err := client.Post(baseURL(t)+"/auth/line", "application/json", body)
	if err != nil {
		t.Fatalf("登录请求失败: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("伪造授权码应返回 401，实际 %d", resp.StatusCode)
	}
}
