// Package command implements the in-band directive language: bracketed
// tokens embedded in free-form chat text are parsed into structured
// invocations and dispatched to registered handlers.
//
// The wire syntax supports three shapes:
//
//	[NAME=a|b|c]       pipe-separated arguments (commas stay literal)
//	[NAME=a,b,c]       comma-separated arguments
//	[N1:a, N2:b]       comma-separated name:arg groups
//
// Directive names match handlers case-sensitively as authored. Parsing
// never fails: spans that fit neither encoding simply contribute nothing.
package command

import "strings"

// Invocation is one parsed directive: a name plus ordered positional
// arguments. Arguments are addressed 1-based to mirror the arg1/arg2
// naming of the wire syntax.
type Invocation struct {
	Name string
	Args []string
}

// Arg returns the n-th positional argument (1-based), or "" when absent.
func (inv Invocation) Arg(n int) string {
	if n < 1 || n > len(inv.Args) {
		return ""
	}
	return inv.Args[n-1]
}

// Equal reports structural equality: same name and the same argument
// values in the same order. Parsing deduplicates on this.
func (inv Invocation) Equal(other Invocation) bool {
	if inv.Name != other.Name || len(inv.Args) != len(other.Args) {
		return false
	}
	for i := range inv.Args {
		if inv.Args[i] != other.Args[i] {
			return false
		}
	}
	return true
}

// String renders the invocation back into the =-form wire syntax.
// Multi-argument invocations use the pipe separator so comma-containing
// values survive a round trip through Parse.
func (inv Invocation) String() string {
	return "[" + inv.Name + "=" + strings.Join(inv.Args, "|") + "]"
}
