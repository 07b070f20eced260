package tween

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// number is a numeric CSS value with its unit, such as 12px or 90deg.
type number struct {
	value float64
	unit  string
}

var numberPattern = regexp.MustCompile(`^\s*([+-]?(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?)\s*([a-zA-Z%]*)\s*$`)

func parseNumber(s string) (number, bool) {
	m := numberPattern.FindStringSubmatch(s)
	if m == nil {
		return number{}, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return number{}, false
	}
	return number{value: v, unit: strings.ToLower(m[2])}, true
}

func formatNumber(v float64, unit string) string {
	v = math.Round(v*1e4) / 1e4
	if v == 0 {
		v = 0 // drop negative zero
	}
	return strconv.FormatFloat(v, 'f', -1, 64) + unit
}

// rgba is a color with straight alpha.
type rgba struct {
	color colorful.Color
	alpha float64
}

var namedColors = map[string]string{
	"black":   "#000000",
	"white":   "#ffffff",
	"red":     "#ff0000",
	"green":   "#008000",
	"blue":    "#0000ff",
	"yellow":  "#ffff00",
	"cyan":    "#00ffff",
	"magenta": "#ff00ff",
	"gray":    "#808080",
	"orange":  "#ffa500",
	"purple":  "#800080",
}

var rgbPattern = regexp.MustCompile(`^rgba?\(\s*([\d.]+)\s*[, ]\s*([\d.]+)\s*[, ]\s*([\d.]+)\s*(?:[,/]\s*([\d.]+%?)\s*)?\)$`)

func parseColor(s string) (rgba, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "transparent" {
		return rgba{color: colorful.Color{}, alpha: 0}, true
	}
	if hex, ok := namedColors[s]; ok {
		s = hex
	}
	if strings.HasPrefix(s, "#") {
		return parseHex(s)
	}
	m := rgbPattern.FindStringSubmatch(s)
	if m == nil {
		return rgba{}, false
	}
	var ch [3]float64
	for i := range ch {
		v, err := strconv.ParseFloat(m[i+1], 64)
		if err != nil {
			return rgba{}, false
		}
		ch[i] = math.Min(v, 255) / 255
	}
	alpha := 1.0
	if m[4] != "" {
		a, err := strconv.ParseFloat(strings.TrimSuffix(m[4], "%"), 64)
		if err != nil {
			return rgba{}, false
		}
		if strings.HasSuffix(m[4], "%") {
			a /= 100
		}
		alpha = math.Max(0, math.Min(1, a))
	}
	return rgba{color: colorful.Color{R: ch[0], G: ch[1], B: ch[2]}, alpha: alpha}, true
}

func parseHex(s string) (rgba, bool) {
	alpha := 1.0
	switch len(s) {
	case 4: // #rgb
		s = "#" + strings.Repeat(s[1:2], 2) + strings.Repeat(s[2:3], 2) + strings.Repeat(s[3:4], 2)
	case 9: // #rrggbbaa
		a, err := strconv.ParseUint(s[7:], 16, 8)
		if err != nil {
			return rgba{}, false
		}
		alpha = float64(a) / 255
		s = s[:7]
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return rgba{}, false
	}
	return rgba{color: c, alpha: alpha}, true
}

func blend(a, b rgba, t float64) rgba {
	return rgba{
		color: a.color.BlendLab(b.color, t).Clamped(),
		alpha: math.Max(0, math.Min(1, a.alpha+(b.alpha-a.alpha)*t)),
	}
}

func (c rgba) String() string {
	if c.alpha >= 1 {
		return c.color.Hex()
	}
	r, g, b := c.color.RGB255()
	return fmt.Sprintf("rgba(%d, %d, %d, %s)", r, g, b, formatNumber(c.alpha, ""))
}
