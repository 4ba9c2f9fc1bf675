package utils

import "testing"

func TestContainsAny(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		keywords []string
		expected bool
	}{
		{name: "Contains one keyword", text: "huge pothole near school", keywords: []string{"huge", "massive"}, expected: true},
		{name: "Substring match", text: "dangerously deep", keywords: []string{"danger"}, expected: true},
		{name: "No keywords present", text: "a faded sign", keywords: []string{"urgent", "severe"}, expected: false},
		{name: "Case sensitive", text: "URGENT repair", keywords: []string{"urgent"}, expected: false},
		{name: "Empty keywords", text: "anything", keywords: nil, expected: false},
		{name: "Empty keyword ignored", text: "anything", keywords: []string{""}, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ContainsAny(tt.text, tt.keywords); got != tt.expected {
				t.Errorf("ContainsAny(%q, %v) = %v, want %v", tt.text, tt.keywords, got, tt.expected)
			}
		})
	}
}

func TestFirstContained(t *testing.T) {
	kw, ok := FirstContained("a small minor crack", []string{"minor", "small"})
	if !ok || kw != "minor" {
		t.Errorf("expected first keyword in slice order, got %q %v", kw, ok)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly", 7, "exactly"},
		{"Straßenlaterne", 6, "Straße..."},
		{"anything", 0, ""},
	}
	for _, tt := range tests {
		if got := Truncate(tt.in, tt.max); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}
