package element

import (
	"maps"
	"slices"
)

// Style is the accessor surface over an element's style cache. Reads return
// the last written value or "" when unset. Every write goes through
// Element.SetStyleProperty.
type Style struct {
	el *Element
}

// Get returns the cached value of a property in either naming form.
func (s Style) Get(name string) string {
	return s.el.styles[Kebab(name)]
}

// Set writes one property.
func (s Style) Set(name, value string) {
	s.el.SetStyleProperty(name, value)
}

// SetProperty writes one property by name.
func (s Style) SetProperty(name, value string) {
	s.el.SetStyleProperty(name, value)
}

// GetPropertyValue is Get under its CSSOM name.
func (s Style) GetPropertyValue(name string) string {
	return s.Get(name)
}

// Assign writes every entry of values in sorted key order.
func (s Style) Assign(values map[string]string) {
	for _, name := range slices.Sorted(maps.Keys(values)) {
		s.el.SetStyleProperty(name, values[name])
	}
}

// Values returns a copy of the cache keyed by wire name.
func (s Style) Values() map[string]string {
	return maps.Clone(s.el.styles)
}

// Named accessors for common properties.

func (s Style) BackgroundColor() string     { return s.el.styles["background-color"] }
func (s Style) SetBackgroundColor(v string) { s.el.SetStyleProperty("background-color", v) }

func (s Style) Color() string     { return s.el.styles["color"] }
func (s Style) SetColor(v string) { s.el.SetStyleProperty("color", v) }

func (s Style) FontSize() string     { return s.el.styles["font-size"] }
func (s Style) SetFontSize(v string) { s.el.SetStyleProperty("font-size", v) }

func (s Style) Width() string     { return s.el.styles["width"] }
func (s Style) SetWidth(v string) { s.el.SetStyleProperty("width", v) }

func (s Style) Height() string     { return s.el.styles["height"] }
func (s Style) SetHeight(v string) { s.el.SetStyleProperty("height", v) }

func (s Style) Margin() string     { return s.el.styles["margin"] }
func (s Style) SetMargin(v string) { s.el.SetStyleProperty("margin", v) }

func (s Style) Padding() string     { return s.el.styles["padding"] }
func (s Style) SetPadding(v string) { s.el.SetStyleProperty("padding", v) }

func (s Style) Display() string     { return s.el.styles["display"] }
func (s Style) SetDisplay(v string) { s.el.SetStyleProperty("display", v) }

func (s Style) Position() string     { return s.el.styles["position"] }
func (s Style) SetPosition(v string) { s.el.SetStyleProperty("position", v) }

func (s Style) Top() string     { return s.el.styles["top"] }
func (s Style) SetTop(v string) { s.el.SetStyleProperty("top", v) }

func (s Style) Left() string     { return s.el.styles["left"] }
func (s Style) SetLeft(v string) { s.el.SetStyleProperty("left", v) }

func (s Style) Right() string     { return s.el.styles["right"] }
func (s Style) SetRight(v string) { s.el.SetStyleProperty("right", v) }

func (s Style) Bottom() string     { return s.el.styles["bottom"] }
func (s Style) SetBottom(v string) { s.el.SetStyleProperty("bottom", v) }
