package e2e

import (
	"net/http"
	"testing"
	"time"
)

// TestScenario_TokenCacheInvalidation revokes cached grants through NOTIFY
func TestScenario_TokenCacheInvalidation(t *testing.T) {
	s := SetupE2ETest(t, WithTokenCache())
	defer s.Teardown(t)

	var memberID int64
	if err := s.DB.QueryRow(`INSERT INTO dtb_member (name, login_id) VALUES ('スタッフ', 'staff') RETURNING member_id`).Scan(&memberID); err != nil {
		t.Fatalf("failed to insert member: %v", err)
	}
	s.IssueToken(t, "stafftoken", "member_read customer_read", memberID, 0)

	// Step 1: The grant is loaded and cached
	resp, _ := s.Do(t, http.MethodGet, "/api/member", "stafftoken", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("initial read: status = %d", resp.StatusCode)
	}

	// Step 2: Narrowing the scope takes effect once the notification arrives
	if _, err := s.DB.Exec(`UPDATE plg_oauth2_access_token SET scope = 'customer_read' WHERE token = 'stafftoken'`); err != nil {
		t.Fatalf("failed to update scope: %v", err)
	}
	ok := Eventually(t, 5*time.Second, func() bool {
		resp, _ := s.Do(t, http.MethodGet, "/api/member", "stafftoken", nil)
		return resp.StatusCode == http.StatusForbidden
	})
	if !ok {
		t.Fatal("expected narrowed scope to be enforced after invalidation")
	}

	// Step 3: Revoking the token takes effect the same way
	if _, err := s.DB.Exec(`DELETE FROM plg_oauth2_access_token WHERE token = 'stafftoken'`); err != nil {
		t.Fatalf("failed to revoke token: %v", err)
	}
	ok = Eventually(t, 5*time.Second, func() bool {
		resp, _ := s.Do(t, http.MethodGet, "/api/customer", "stafftoken", nil)
		return resp.StatusCode == http.StatusUnauthorized
	})
	if !ok {
		t.Fatal("expected revoked token to be rejected after invalidation")
	}
}
