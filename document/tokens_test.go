package document

import "testing"

func TestGetEncodingForModel(t *testing.T) {
	tests := []struct {
		model string
		want  string
	}{
		{"gpt-4o-mini", "o200k_base"},
		{"gpt-4", "cl100k_base"},
		{"llama-3.3-70b-versatile", "cl100k_base"},
		{"code-davinci-002", "p50k_base"},
	}

	for _, tt := range tests {
		if got := getEncodingForModel(tt.model); got != tt.want {
			t.Errorf("getEncodingForModel(%q) = %q, want %q", tt.model, got, tt.want)
		}
	}
}

func TestApproxCounter(t *testing.T) {
	var c ApproxCounter
	if got := c.Count(""); got != 0 {
		t.Errorf("Count(\"\") = %d, want 0", got)
	}
	if got := c.Count("abcd"); got != 1 {
		t.Errorf("Count(abcd) = %d, want 1", got)
	}
	if got := c.Count("abcde"); got != 2 {
		t.Errorf("Count(abcde) = %d, want 2", got)
	}
}

func TestTiktokenCounter(t *testing.T) {
	counter, err := NewTiktokenCounter("gpt-4")
	if err != nil {
		t.Skipf("tiktoken encoding unavailable: %v", err)
	}

	if got := counter.Count(""); got != 0 {
		t.Errorf("Count(\"\") = %d, want 0", got)
	}
	short := counter.Count("hello")
	long := counter.Count("hello there, this is a longer sentence")
	if short <= 0 || long <= short {
		t.Errorf("Count() short=%d long=%d, want 0 < short < long", short, long)
	}
}
