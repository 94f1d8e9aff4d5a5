package control

// Reply is the ordered collection of lines tor sent in response to one
// command. A Reply is produced and consumed within a single SendCommand
// call and never persisted.
type Reply struct {
	// Lines holds every reply line, continuation and final, in arrival
	// order with the CRLF terminators stripped.
	Lines []string

	// Status is the 3-digit code of the final line.
	Status int
}

// OK reports overall success: the final status line's leading digit is
// the 2xx success class. The coarse classification is deliberate - tor
// uses 4xx/5xx for both transient and fatal conditions and callers here
// treat every non-2xx the same way.
func (r *Reply) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// FinalLine returns the last line of the reply, or empty when the reply
// holds no lines. Used for error messages.
func (r *Reply) FinalLine() string {
	if len(r.Lines) == 0 {
		return ""
	}
	return r.Lines[len(r.Lines)-1]
}

// lineKind classifies a reply line by its 4th byte.
type lineKind int

const (
	lineContinuation lineKind = iota // "250-..."
	lineFinal                        // "250 ..."
)

// classifyLine validates the "NNN-" / "NNN " framing of one reply line
// and extracts the status code. The line must be at least 4 bytes: a
// 3-digit status, then a dash (continuation) or space (final).
func classifyLine(line string) (status int, kind lineKind, err error) {
	if len(line) < 4 {
		return 0, 0, ErrProtocol
	}
	for i := range 3 {
		c := line[i]
		if c < '0' || c > '9' {
			return 0, 0, ErrProtocol
		}
		status = status*10 + int(c-'0')
	}
	switch line[3] {
	case '-':
		return status, lineContinuation, nil
	case ' ':
		return status, lineFinal, nil
	default:
		return 0, 0, ErrProtocol
	}
}
