package target

import (
	"fmt"
	"net/netip"
	"strconv"
	"strings"
)

// Policy controls which hosts may be scanned.
type Policy struct {
	// AllowRestricted permits loopback, private, link-local and
	// unspecified addresses.
	AllowRestricted bool
}

// Check validates t against the policy. Host names are not resolved, so only
// IP literals and localhost names are recognized as restricted. Literals
// include the numeric IPv4 spellings HTTP clients accept, such as
// 2130706433, 0x7f.1 and 0177.0.0.1.
func (p Policy) Check(t *Target) error {
	if t == nil {
		return fmt.Errorf("%w: nil target", ErrInvalidURL)
	}
	if p.AllowRestricted {
		return nil
	}
	if reason := restrictedReason(t.Host); reason != "" {
		return fmt.Errorf("%w: %s is %s (set allow_private_targets to override)", ErrRestricted, t.Host, reason)
	}
	return nil
}

func restrictedReason(host string) string {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return "loopback"
	}

	addr, ok := hostAddr(host)
	if !ok {
		return ""
	}
	addr = addr.Unmap()
	switch {
	case addr.IsLoopback():
		return "loopback"
	case addr.IsPrivate():
		return "a private address"
	case addr.IsLinkLocalUnicast(), addr.IsLinkLocalMulticast():
		return "link-local"
	case addr.IsUnspecified():
		return "unspecified"
	}
	return ""
}

// hostAddr parses host as an IP literal.
func hostAddr(host string) (netip.Addr, bool) {
	if addr, err := netip.ParseAddr(strings.Trim(host, "[]")); err == nil {
		return addr, true
	}
	return numericIPv4(host)
}

// numericIPv4 parses the inet_aton forms: one to four dot-separated parts,
// each decimal, octal with a leading 0 or hex with 0x. The last part fills
// the remaining bytes, so 127.1 is 127.0.0.1.
func numericIPv4(host string) (netip.Addr, bool) {
	parts := strings.Split(host, ".")
	if len(parts) > 4 {
		return netip.Addr{}, false
	}
	vals := make([]uint64, len(parts))
	for i, part := range parts {
		v, ok := parseIPv4Part(part)
		if !ok {
			return netip.Addr{}, false
		}
		vals[i] = v
	}

	var n uint64
	for _, v := range vals[:len(vals)-1] {
		if v > 0xff {
			return netip.Addr{}, false
		}
		n = n<<8 | v
	}
	rest := 4 - (len(vals) - 1)
	last := vals[len(vals)-1]
	if last >= 1<<(8*rest) {
		return netip.Addr{}, false
	}
	n = n<<(8*rest) | last

	return netip.AddrFrom4([4]byte{byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)}), true
}

func parseIPv4Part(s string) (uint64, bool) {
	base := 10
	switch {
	case strings.HasPrefix(s, "0x"):
		s, base = s[2:], 16
	case len(s) > 1 && s[0] == '0':
		s, base = s[1:], 8
	}
	if s == "" || strings.ContainsAny(s, "+-_") {
		return 0, false
	}
	v, err := strconv.ParseUint(s, base, 32)
	if err != nil {
		return 0, false
	}
	return v, true
}
