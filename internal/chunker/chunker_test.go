package chunker

import (
	"errors"
	"strings"
	"testing"
)

func Test_Chunk_InvalidConfig(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		opts Options
	}{
		{"zero size", Options{Size: 0, Overlap: 0}},
		{"negative size", Options{Size: -5, Overlap: 0}},
		{"negative overlap", Options{Size: 10, Overlap: -1}},
		{"overlap equals size", Options{Size: 10, Overlap: 10}},
		{"overlap exceeds size", Options{Size: 10, Overlap: 15}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := Split("some text", tc.opts)
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("want ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func Test_Chunk_CountFor1000Chars(t *testing.T) {
	t.Parallel()
	text := strings.Repeat("x", 1000)
	chunks, err := Split(text, Options{Size: 100, Overlap: 20})
	if err != nil {
		t.Fatalf("chunk: %v", err)
	}
	// Window advances by 80; starts at 0, 80, ..., 960 — 13 windows.
	if len(chunks) != 13 {
		t.Fatalf("want 13 chunks, got %d", len(chunks))
	}
	if got := len(chunks[len(chunks)-1].Text); got != 40 {
		t.Errorf("want final chunk of 40 chars, got %d", got)
	}
}

func Test_Chunk_ReconstructsInput(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name    string
		text    string
		size    int
		overlap int
	}{
		{"no overlap", "abcdefghijklmnopqrstuvwxyz", 5, 0},
		{"with overlap", "the quick brown fox jumps over the lazy dog", 10, 3},
		{"text shorter than size", "tiny", 100, 20},
		{"exact multiple", strings.Repeat("ab", 50), 20, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			chunks, err := Split(tc.text, Options{Size: tc.size, Overlap: tc.overlap})
			if err != nil {
				t.Fatalf("chunk: %v", err)
			}

			var sb strings.Builder
			for i, c := range chunks {
				if len([]rune(c.Text)) > tc.size {
					t.Errorf("chunk %d exceeds size: %d > %d", i, len(c.Text), tc.size)
				}
				if i == 0 {
					sb.WriteString(c.Text)
					continue
				}
				// Drop the leading overlap shared with the previous chunk.
				r := []rune(c.Text)
				if len(r) > tc.overlap {
					sb.WriteString(string(r[tc.overlap:]))
				}
			}
			if sb.String() != tc.text {
				t.Errorf("reconstruction mismatch:\nwant %q\ngot  %q", tc.text, sb.String())
			}
		})
	}
}

func Test_Chunk_OffsetsAndIDs(t *testing.T) {
	t.Parallel()
	chunks, err := Split(strings.Repeat("y", 25), Options{Size: 10, Overlap: 5})
	if err != nil {
		t.Fatalf("chunk: %v", err)
	}
	// Step is 5; the window starting at 15 reaches the end of the 25-char
	// input, so no further window is emitted.
	wantOffsets := []int{0, 5, 10, 15}
	if len(chunks) != len(wantOffsets) {
		t.Fatalf("want %d chunks, got %d", len(wantOffsets), len(chunks))
	}
	for i, c := range chunks {
		if c.SourceOffset != wantOffsets[i] {
			t.Errorf("chunk %d: want offset %d, got %d", i, wantOffsets[i], c.SourceOffset)
		}
		want := "chunk-" + string(rune('0'+i))
		if c.ID != want {
			t.Errorf("chunk %d: want id %q, got %q", i, want, c.ID)
		}
	}
}

func Test_Chunk_EmptyInput(t *testing.T) {
	t.Parallel()
	chunks, err := Split("", Options{Size: 10, Overlap: 2})
	if err != nil {
		t.Fatalf("chunk: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("want no chunks for empty input, got %d", len(chunks))
	}
}

func Test_CleanMarkdown(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"header", "# Title\nbody", "Title\nbody"},
		{"bold and italic", "**bold** and *italic*", "bold and italic"},
		{"inline code", "run `go build` now", "run go build now"},
		{"link keeps text", "see [the docs](https://example.com)", "see the docs"},
		{"image removed", "before ![alt](img.png) after", "before after"},
		{"bullets", "- one\n- two", "one\ntwo"},
		{"blank runs collapse", "a\n\n\n\nb", "a\n\nb"},
		{"html tags", "x <b>y</b> z", "x y z"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := CleanMarkdown(tc.in); got != tc.want {
				t.Errorf("CleanMarkdown(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
