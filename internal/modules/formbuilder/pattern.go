package formbuilder

import (
	"time"

	"emperror.dev/errors"
	"github.com/dlclark/regexp2"
	"github.com/patrickmn/go-cache"
)

const (
	patternTTL     = 30 * time.Minute
	patternCleanup = 10 * time.Minute
	matchTimeout   = 100 * time.Millisecond
)

var patterns = cache.New(patternTTL, patternCleanup)

// CompilePattern compiles a pattern rule source with JavaScript RegExp
// semantics. Compiled patterns are cached and expire when unused.
func CompilePattern(expr string) (*regexp2.Regexp, error) {
	if v, ok := patterns.Get(expr); ok {
		return v.(*regexp2.Regexp), nil
	}
	re, err := regexp2.Compile(expr, regexp2.ECMAScript)
	if err != nil {
		return nil, errors.WrapIff(err, "compile pattern %q", expr)
	}
	re.MatchTimeout = matchTimeout
	patterns.SetDefault(expr, re)
	return re, nil
}

// MatchPattern reports whether s contains a match for expr. A pattern that
// fails to compile or times out never matches.
func MatchPattern(expr, s string) bool {
	re, err := CompilePattern(expr)
	if err != nil {
		return false
	}
	ok, err := re.MatchString(s)
	return err == nil && ok
}
