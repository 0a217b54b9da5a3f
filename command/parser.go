package command

import (
	"regexp"
	"strings"
)

// bracketSpan matches non-nested bracketed spans. The content class
// excludes brackets, which keeps matches non-overlapping.
var bracketSpan = regexp.MustCompile(`\[([^\[\]]+)\]`)

// Parse scans text for bracketed directive tokens and returns the ordered
// list of unique invocations. Within a span the =-form takes priority
// over the :-form; a span with neither delimiter yields nothing. The
// result may be empty but dispatching an empty list is harmless, so
// callers rarely need to check.
func Parse(text string) []Invocation {
	var invs []Invocation
	for _, m := range bracketSpan.FindAllStringSubmatch(text, -1) {
		invs = append(invs, parseSpan(m[1])...)
	}
	return dedupe(invs)
}

func parseSpan(span string) []Invocation {
	if strings.Contains(span, "=") {
		return []Invocation{parseAssign(span)}
	}
	if strings.Contains(span, ":") {
		return parseColon(span)
	}
	return nil
}

// parseAssign handles NAME=args. Only the first = separates the name
// from the arguments; later = signs are literal argument text. The
// argument separator is | when the rest contains one, otherwise a comma,
// which lets callers pass comma-containing values by switching to pipes.
// Argument whitespace is preserved as written.
func parseAssign(span string) Invocation {
	name, rest, _ := strings.Cut(span, "=")
	sep := ","
	if strings.Contains(rest, "|") {
		sep = "|"
	}
	return Invocation{Name: name, Args: strings.Split(rest, sep)}
}

// parseColon handles comma-separated name:arg groups, so one bracket
// pair can carry several invocations. The span is split on commas before
// colons are considered, so each group carries exactly one argument;
// items without a colon are dropped. Names and arguments are trimmed.
func parseColon(span string) []Invocation {
	var invs []Invocation
	for _, item := range strings.Split(span, ",") {
		name, arg, ok := strings.Cut(item, ":")
		if !ok {
			continue
		}
		invs = append(invs, Invocation{
			Name: strings.TrimSpace(name),
			Args: []string{strings.TrimSpace(arg)},
		})
	}
	return invs
}

// dedupe drops structurally equal repeats, keeping first-seen order.
func dedupe(invs []Invocation) []Invocation {
	var unique []Invocation
next:
	for _, inv := range invs {
		for _, seen := range unique {
			if inv.Equal(seen) {
				continue next
			}
		}
		unique = append(unique, inv)
	}
	return unique
}
