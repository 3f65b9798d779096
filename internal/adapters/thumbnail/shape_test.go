package thumbnail

import "testing"

func TestShapeArabic(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"initial final isolated", "باب", "ﺑﺎﺏ"},
		{"medial", "قصة", "ﻗﺻﺔ"},
		{"lam alef alone", "لا", "ﻻ"},
		{"lam alef joined", "سلام", "ﺳﻼﻡ"},
		{"right joining letters break the word", "درس", "ﺩﺭﺱ"},
		{"vowel marks dropped", "دَرْس", "ﺩﺭﺱ"},
		{"words shaped separately", "بب بب", "ﺑﺐ ﺑﺐ"},
		{"latin untouched", "Story 7", "Story 7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShapeArabic(tt.in); got != tt.want {
				t.Errorf("ShapeArabic(%q) = %+q, want %+q", tt.in, got, tt.want)
			}
		})
	}
}

func TestVisualOrder(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"arabic reversed", "ﺑﺎﺏ", "ﺏﺎﺑ"},
		{"latin kept", "Story Time", "Story Time"},
		{"mixed runs swap", "قصة Story", "Story ةصق"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VisualOrder(tt.in); got != tt.want {
				t.Errorf("VisualOrder(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
