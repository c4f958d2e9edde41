// Package filter selects which frames enter the decoder.
package filter

// Filter decides whether a datagram is processed. Implementations see the
// bytes where the IPv4 header would start, with any envelope removed.
type Filter interface {
	Match(datagram []byte) bool
}

// Chain matches when every filter in it matches. An empty chain matches
// everything.
type Chain []Filter

// Match implements Filter.
func (c Chain) Match(datagram []byte) bool {
	for _, f := range c {
		if !f.Match(datagram) {
			return false
		}
	}
	return true
}
