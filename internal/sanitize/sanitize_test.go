package sanitize

import "testing"

func TestText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain text unchanged", "Gandalf the Grey", "Gandalf the Grey"},
		{"script tag stripped", `<script>alert("xss")</script>Gandalf`, "Gandalf"},
		{"markup stripped, text kept", "<b>Bold</b> name", "Bold name"},
		{"image tag removed", `<img src=x onerror=alert(1)>`, ""},
		{"anchor stripped to text", `<a href="https://spam.example">click</a>`, "click"},
		{"whitespace trimmed", "  spaced out  ", "spaced out"},
		{"empty stays empty", "", ""},
		{"unicode preserved", "Éowyn ✨", "Éowyn ✨"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Text(tt.input); got != tt.want {
				t.Errorf("Text(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
