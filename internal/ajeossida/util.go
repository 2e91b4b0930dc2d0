package ajeossida

import (
	"fmt"
	"io"
)

// color-compatible printer interface (works with *color.Theme and *color.Style)
type colorPrinter interface {
	Printf(format string, a ...any)
	Println(a ...any)
}

// cPrintf prints with a colored style or falls back to fmt.Printf when nil
func cPrintf(p colorPrinter, format string, a ...any) {
	if p == nil {
		fmt.Printf(format, a...)
		return
	}
	p.Printf(format, a...)
}

// cPrintln prints a line with the given style or falls back to fmt.Println when nil
func cPrintln(p colorPrinter, a ...any) {
	if p == nil {
		fmt.Println(a...)
		return
	}
	p.Println(a...)
}

// debugf prints debug messages when Debug is true
func debugf(format string, args ...any) {
	if Debug {
		fmt.Printf(format, args...)
	}
}

// step prints an arrow-prefixed progress line to w.
func step(w io.Writer, format string, a ...any) {
	fmt.Fprint(w, colArrow.Sprint("-> "))
	fmt.Fprintln(w, colSuccess.Sprintf(format, a...))
}

// warn prints an arrow-prefixed warning line to w.
func warn(w io.Writer, format string, a ...any) {
	fmt.Fprint(w, colArrow.Sprint("-> "))
	fmt.Fprintln(w, colWarn.Sprintf(format, a...))
}

func humanReadableSize(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}
