package template

import "strings"

// Token is one parsed <%NAME(arg1,arg2,...)%> unit found in a template.
// Start and End are byte offsets of the full token text in the scanned
// string.
type Token struct {
	Name  string
	Args  []string
	Start int
	End   int
}

// scan finds all well-formed tokens in s.
//
// A tag name consumes any character that is not '(' and not a '%'
// immediately followed by '>'; an argument blob consumes anything up to
// the ')%>' that closes the tag, but never an interior '<%'. A token
// whose arguments still contain a nested '<%' is therefore not matched
// in this pass: the scan lands on the inner token instead, which is what
// makes evaluation proceed innermost-first.
func scan(s string) []Token {
	var tokens []Token
	i := 0
	for i < len(s) {
		open := strings.Index(s[i:], "<%")
		if open < 0 {
			break
		}
		start := i + open
		tok, next, ok := scanToken(s, start)
		if !ok {
			i = next
			continue
		}
		tokens = append(tokens, tok)
		i = tok.End
	}
	return tokens
}

// scanToken attempts to parse one token starting at the "<%" at start.
// When the attempt fails, next is where the outer scan should resume.
func scanToken(s string, start int) (tok Token, next int, ok bool) {
	j := start + 2

	// Tag name.
	nameStart := j
	for {
		if j >= len(s) {
			return Token{}, len(s), false
		}
		c := s[j]
		if c == '(' {
			break
		}
		if c == '%' {
			if j+1 < len(s) && s[j+1] == '>' {
				// Argument-less token.
				name := s[nameStart:j]
				if name == "" {
					return Token{}, j, false
				}
				return Token{Name: name, Start: start, End: j + 2}, 0, true
			}
			return Token{}, j, false
		}
		if c == '<' && j+1 < len(s) && s[j+1] == '%' {
			return Token{}, j, false
		}
		j++
	}
	name := s[nameStart:j]
	if name == "" {
		return Token{}, j, false
	}

	// Argument blob, up to the closing ")%>".
	j++ // consume '('
	argStart := j
	for {
		if j >= len(s) {
			return Token{}, len(s), false
		}
		c := s[j]
		if c == ')' && strings.HasPrefix(s[j+1:], "%>") {
			args := strings.Split(s[argStart:j], ",")
			return Token{Name: name, Args: args, Start: start, End: j + 3}, 0, true
		}
		if c == '<' && j+1 < len(s) && s[j+1] == '%' {
			return Token{}, j, false
		}
		j++
	}
}
