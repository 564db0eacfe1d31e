package htmldom

import (
	"strconv"
	"strings"
)

// inlineStyle is the subset of a style="" attribute the layout understands.
type inlineStyle struct {
	display    string
	visibility string
	position   string
	overflowX  string
	overflowY  string

	opacity    float64
	hasOpacity bool

	left, top     float64
	width, height float64
	hasWidth      bool
	hasHeight     bool
}

func parseStyle(s string) inlineStyle {
	var st inlineStyle
	for _, decl := range strings.Split(s, ";") {
		key, val, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		val = strings.ToLower(strings.TrimSpace(val))
		switch key {
		case "display":
			st.display = val
		case "visibility":
			st.visibility = val
		case "position":
			st.position = val
		case "overflow":
			st.overflowX = val
			st.overflowY = val
		case "overflow-x":
			st.overflowX = val
		case "overflow-y":
			st.overflowY = val
		case "opacity":
			if f, err := strconv.ParseFloat(val, 64); err == nil {
				st.opacity = f
				st.hasOpacity = true
			}
		case "left":
			st.left, _ = cssLength(val)
		case "top":
			st.top, _ = cssLength(val)
		case "width":
			st.width, st.hasWidth = cssLength(val)
		case "height":
			st.height, st.hasHeight = cssLength(val)
		}
	}
	return st
}

func cssLength(v string) (float64, bool) {
	v = strings.TrimSuffix(strings.TrimSpace(v), "px")
	f, err := strconv.ParseFloat(v, 64)
	return f, err == nil
}
