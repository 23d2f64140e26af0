package util

import "testing"

func TestFirstJSONObject(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		want   string
		wantOK bool
	}{
		{
			name:   "object in prose",
			in:     `Sure! {"a":"b"} Hope it helps.`,
			want:   `{"a":"b"}`,
			wantOK: true,
		},
		{
			name:   "nested object kept whole",
			in:     `x {"a":{"b":1},"c":2} y`,
			want:   `{"a":{"b":1},"c":2}`,
			wantOK: true,
		},
		{
			name:   "brace inside string ignored",
			in:     `{"a":"use } carefully","b":"{"}`,
			want:   `{"a":"use } carefully","b":"{"}`,
			wantOK: true,
		},
		{
			name:   "escaped quote inside string",
			in:     `{"a":"say \"}\" now"} tail`,
			want:   `{"a":"say \"}\" now"}`,
			wantOK: true,
		},
		{
			name:   "first balanced object wins",
			in:     `{"first":1} and {"second":2}`,
			want:   `{"first":1}`,
			wantOK: true,
		},
		{
			name:   "unbalanced opener skipped",
			in:     "maybe { not closed\n```\n{\"ok\":true}",
			want:   `{"ok":true}`,
			wantOK: true,
		},
		{
			name:   "no braces",
			in:     "I cannot determine the disease from this image.",
			wantOK: false,
		},
		{
			name:   "multiline fenced block",
			in:     "```\n{\n\"a\": \"b\"\n}\n```",
			want:   "{\n\"a\": \"b\"\n}",
			wantOK: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FirstJSONObject(tt.in)
			if ok != tt.wantOK {
				t.Fatalf("FirstJSONObject() ok = %v, want %v (got %q)", ok, tt.wantOK, got)
			}
			if got != tt.want {
				t.Errorf("FirstJSONObject() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFirstBracedLazy(t *testing.T) {
	got, ok := FirstBracedLazy(`x {"a":{"b":1},"c":2} y`)
	if !ok {
		t.Fatal("expected a match")
	}
	if got != `{"a":{"b":1}` {
		t.Errorf("FirstBracedLazy() = %q, want truncated fragment", got)
	}

	got, ok = FirstBracedLazy("line1 {\n\"a\": 1\n} tail")
	if !ok || got != "{\n\"a\": 1\n}" {
		t.Errorf("FirstBracedLazy() across newlines = %q, %v", got, ok)
	}

	if _, ok := FirstBracedLazy("no json here"); ok {
		t.Error("expected no match")
	}
}
