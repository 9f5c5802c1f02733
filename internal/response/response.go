// Package response turns raw console captures into the output a check
// cares about.
//
// A capture taken right after writing a command to an echoing shell looks
// like:
//
//	free -h            <- echoed command
//	...output...
//	root@adcu:~#       <- prompt
//
// Strip drops the first and last of those lines.
package response

import "strings"

// Strip removes the echoed command (first line) and the trailing prompt
// (last line) from raw. Lines are split on "\n" only, so a "\r" left by a
// CRLF terminal stays attached to its line. Captures of fewer than three
// lines yield "".
func Strip(raw string) string {
	lines := strings.Split(raw, "\n")
	if len(lines) <= 2 {
		return ""
	}
	return strings.Join(lines[1:len(lines)-1], "\n")
}

// Lines splits s at "\r\n", "\r" or "\n". A terminator at the very end
// does not produce a trailing empty line, and "" has no lines.
func Lines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\n':
			lines = append(lines, s[start:i])
			start = i + 1
		case '\r':
			lines = append(lines, s[start:i])
			if i+1 < len(s) && s[i+1] == '\n' {
				i++
			}
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}

// Clean trims the carriage returns and trailing blanks a serial terminal
// leaves on a line.
func Clean(line string) string {
	return strings.TrimRight(line, "\r \t")
}
