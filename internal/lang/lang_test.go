package lang

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"en", "en"},
		{"FR", "fr"},
		{" de ", "de"},
		{"xx", "en"}, // unsupported codes fall back
		{"hi", "en"}, // real language, not in the engine's set
		{"", "en"},
	}
	for _, c := range cases {
		if got := Normalize(c.in); got != c.want {
			t.Errorf("Normalize(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestSupported(t *testing.T) {
	for _, code := range []string{"en", "fr", "zh", "hu"} {
		if !Supported(code) {
			t.Errorf("Supported(%q) = false", code)
		}
	}
	if Supported("xx") {
		t.Error("Supported(xx) = true")
	}
}

func TestDetectEnglish(t *testing.T) {
	d := NewDetector()
	text := "Welcome to our podcast on artificial intelligence. Today we are exploring the basics of machine learning."
	if got := d.Detect(text); got != "en" {
		t.Errorf("Detect(english) = %q, want en", got)
	}
}

func TestDetectFrench(t *testing.T) {
	d := NewDetector()
	text := "Bienvenue dans notre podcast. Aujourd'hui nous allons parler de l'intelligence artificielle et de ses applications."
	if got := d.Detect(text); got != "fr" {
		t.Errorf("Detect(french) = %q, want fr", got)
	}
}

func TestDetectEmptyTextDefaults(t *testing.T) {
	d := NewDetector()
	if got := d.Detect("   "); got != Default {
		t.Errorf("Detect(blank) = %q, want %q", got, Default)
	}
}
