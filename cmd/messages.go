package cmd

import (
	"fmt"
	"io"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

func printInfo(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintf(w, "[INFO] %s\n", printer.Sprintf(format, args...))
}

func printSuccess(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintf(w, "[SUCCESS] %s\n", printer.Sprintf(format, args...))
}

func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "[ERROR] %v\n", err)
}

// printBuildSummary reports the route count with digit grouping and the
// build time in the largest unit that keeps it readable.
func printBuildSummary(w io.Writer, routes int, took time.Duration) {
	printInfo(w, "Build finished in %s with %d routes", humanDuration(took), routes)
}

func humanDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return printer.Sprintf("%d μs", d.Microseconds())
	case d < time.Second:
		return printer.Sprintf("%d ms", d.Milliseconds())
	default:
		return printer.Sprintf("%.2f s", d.Seconds())
	}
}
