package filter

import (
	"fmt"
	"regexp"
	"sync"

	"firestige.xyz/netmon/internal/core"
)

// compileRegexp is the single compilation point for filter patterns.
var compileRegexp = regexp.Compile

// pattern is a write-once cache for one regular-expression field of a Filter.
type pattern struct {
	expr string
	once sync.Once
	re   *regexp.Regexp
	err  error
}

func (p *pattern) compile() (*regexp.Regexp, error) {
	p.once.Do(func() {
		if p.expr == "" {
			return
		}
		re, err := compileRegexp(p.expr)
		if err != nil {
			p.err = fmt.Errorf("%w %q: %v", core.ErrInvalidPattern, p.expr, err)
			return
		}
		p.re = re
	})
	return p.re, p.err
}

// match reports whether the pattern is set, valid and found in s.
// s is only computed when the pattern is set.
func (p *pattern) match(s func() string) bool {
	if p.expr == "" {
		return false
	}
	re, err := p.compile()
	if err != nil {
		return false
	}
	return re.MatchString(s())
}
