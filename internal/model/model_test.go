package model

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

// The API answers in snake_case everywhere, matching ExecutionResult.
func TestJSONKeysAreSnakeCase(t *testing.T) {
	out, dur, limit, ok, gh := "hi", int64(12), 600, true, int64(7)

	tests := []struct {
		name string
		v    any
		keys []string
	}{
		{
			name: "code session",
			v: CodeSession{
				ID: "s1", UserID: "u1", CourseID: "cs101", Language: "python", Code: "print(1)",
				Output: &out, Success: &ok, FailureKind: "timeout", DurationMs: &dur,
				TimeLimitSeconds: &limit, CreatedAt: time.Unix(0, 0).UTC(),
			},
			keys: []string{"id", "user_id", "course_id", "language", "code", "output", "success",
				"failure_kind", "duration_ms", "time_limit_seconds", "created_at"},
		},
		{
			name: "user",
			v:    User{ID: "u1", Username: "ada", Email: "a@example.com", PasswordHash: "secret", GitHubID: &gh, AvatarURL: "x"},
			keys: []string{"id", "username", "email", "github_id", "avatar_url", "created_at", "updated_at"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := json.Marshal(tt.v)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			var got map[string]any
			if err := json.Unmarshal(raw, &got); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if len(got) != len(tt.keys) {
				t.Errorf("got %d keys %v, want %v", len(got), got, tt.keys)
			}
			for _, k := range tt.keys {
				if _, ok := got[k]; !ok {
					t.Errorf("missing key %q in %s", k, raw)
				}
			}
		})
	}
}

func TestUser_PasswordHashNeverSerialized(t *testing.T) {
	raw, err := json.Marshal(User{PasswordHash: "$2a$12$secret"})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if strings.Contains(string(raw), "secret") {
		t.Errorf("password hash leaked: %s", raw)
	}
}
