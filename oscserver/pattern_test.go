package oscserver

import "testing"

func TestCompilePatternWildcards(t *testing.T) {
	cases := []struct {
		pattern string
		addr    string
		want    bool
	}{
		{"/1/channel/?/volume", "/1/channel/3/volume", true},
		{"/1/channel/?/volume", "/1/channel/33/volume", false},
		{"/1/*/volume", "/1/channel/3/volume", false},
		{"/1/*/volume", "/1/volume", false},
		{"/1/channel/[0-9]/volume", "/1/channel/5/volume", true},
		{"/1/channel/[0-9]/volume", "/1/channel/a/volume", false},
		{"/1/channel/[!0-9]/volume", "/1/channel/a/volume", true},
		{"/1/{volume,mute,pan}/set", "/1/mute/set", true},
		{"/1/{volume,mute,pan}/set", "/1/solo/set", false},
		{"/1/channel/3/volume", "/1/channel/3/volume", true},
		{"/1/channel/3/volume", "/1/channel/30/volume", false},
	}
	for _, c := range cases {
		re, err := compilePattern(c.pattern)
		if err != nil {
			t.Fatalf("compilePattern(%q): %v", c.pattern, err)
		}
		if got := re.MatchString(c.addr); got != c.want {
			t.Errorf("pattern %q vs addr %q: got %v want %v", c.pattern, c.addr, got, c.want)
		}
	}
}
