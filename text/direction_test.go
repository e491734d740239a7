package text

import "testing"

func TestCharDirection(t *testing.T) {
	tests := []struct {
		name string
		char rune
		want Direction
	}{
		{"Arabic alif", 'ا', RTL},
		{"Hebrew alef", 'א', RTL},
		{"Latin A", 'A', LTR},
		{"Latin é", 'é', LTR},
		{"Cyrillic я", 'я', LTR},
		{"CJK 中", '中', LTR},
		{"Space", ' ', Neutral},
		{"Digit 5", '5', Neutral},
		{"Period", '.', Neutral},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CharDirection(tt.char); got != tt.want {
				t.Errorf("CharDirection(%q) = %v, want %v", tt.char, got, tt.want)
			}
		})
	}
}

func TestDetectDirection(t *testing.T) {
	tests := []struct {
		text string
		want Direction
	}{
		{"", Neutral},
		{"123 !", Neutral},
		{"Hello", LTR},
		{"שלום", RTL},
		{"مرحبا Hi", RTL},
		{"Hello שם", LTR},
	}
	for _, tt := range tests {
		if got := DetectDirection(tt.text); got != tt.want {
			t.Errorf("DetectDirection(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
	if RTL.String() != "RTL" || Direction(9).String() != "Unknown" {
		t.Error("String() wrong")
	}
}
