package config

import "testing"

func TestParseSeedUsers(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    []SeedUser
		wantErr bool
	}{
		{
			name: "single with role",
			raw:  "root:root@example.com:changeme1:admin",
			want: []SeedUser{{Username: "root", Email: "root@example.com", Password: "changeme1", Role: "admin"}},
		},
		{
			name: "role defaults to viewer",
			raw:  "reader:reader@example.com:changeme1",
			want: []SeedUser{{Username: "reader", Email: "reader@example.com", Password: "changeme1", Role: "viewer"}},
		},
		{
			name: "multiple entries with spaces",
			raw:  "root:root@example.com:changeme1:admin, reader:reader@example.com:changeme1",
			want: []SeedUser{
				{Username: "root", Email: "root@example.com", Password: "changeme1", Role: "admin"},
				{Username: "reader", Email: "reader@example.com", Password: "changeme1", Role: "viewer"},
			},
		},
		{
			name: "empty input",
			raw:  "",
			want: nil,
		},
		{
			name:    "missing password",
			raw:     "root:root@example.com",
			wantErr: true,
		},
		{
			name:    "too many segments",
			raw:     "root:root@example.com:changeme1:admin:extra",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseSeedUsers(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d seeds, got %d", len(tt.want), len(got))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("seed %d: got %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestIsDevelopment(t *testing.T) {
	for _, env := range []string{"development", "dev", "DEV"} {
		if !(&Config{Env: env}).IsDevelopment() {
			t.Errorf("expected %q to count as development", env)
		}
	}
	if (&Config{Env: "production"}).IsDevelopment() {
		t.Error("expected production to not count as development")
	}
}
