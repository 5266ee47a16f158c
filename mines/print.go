package mines

import (
	"strconv"
	"strings"
)

// FormatField renders a display projection as text with column and row
// indices (mod 10) along the edges. Hidden cells print as '#'.
func FormatField(field [][]string) string {
	var sb strings.Builder
	sb.WriteString(" ")
	if len(field) > 0 {
		for x := range field[0] {
			sb.WriteString(strconv.Itoa(x % 10))
		}
	}
	sb.WriteString("\n")
	for y, row := range field {
		sb.WriteString(strconv.Itoa(y % 10))
		for _, token := range row {
			if token == Hidden.String() {
				sb.WriteString("#")
			} else {
				sb.WriteString(token)
			}
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
