package stealth

import (
	"fmt"
	"unicode"
	"unicode/utf8"
)

// TypoTable maps a lowercase letter to the neighbouring keys a finger is
// likely to hit instead.
type TypoTable struct {
	subs map[rune][]rune
}

// commonTypos is the QWERTY adjacency table used by default. 'p' has no
// entry and goes through the code point fallback.
var commonTypos = map[rune]string{
	'a': "sqw", 'e': "rwd", 'i': "ouk", 'o': "ipl", 'u': "yij",
	's': "adw", 'd': "sef", 'f': "dgr", 'g': "fht", 'h': "gjy",
	'j': "hku", 'k': "jli", 'l': "kop", 'q': "was", 'w': "qes",
	'r': "etf", 't': "ryg", 'y': "tuh", 'z': "xas", 'x': "zcd",
	'c': "xvf", 'v': "cbg", 'b': "vnh", 'n': "bmj", 'm': "nkl",
}

// DefaultTypoTable returns the built-in adjacency table
func DefaultTypoTable() *TypoTable {
	t := &TypoTable{subs: make(map[rune][]rune, len(commonTypos))}
	for k, v := range commonTypos {
		t.subs[k] = []rune(v)
	}
	return t
}

// NewTypoTable validates and builds a table. Keys must be lowercase, each
// entry must hold 1-3 substitutes and never the key itself.
func NewTypoTable(entries map[rune][]rune) (*TypoTable, error) {
	t := &TypoTable{subs: make(map[rune][]rune, len(entries))}
	for k, subs := range entries {
		if unicode.ToLower(k) != k {
			return nil, fmt.Errorf("typo table key %q is not lowercase", k)
		}
		if len(subs) == 0 || len(subs) > 3 {
			return nil, fmt.Errorf("typo table key %q needs 1-3 substitutes, got %d", k, len(subs))
		}
		for _, s := range subs {
			if unicode.ToLower(s) == k {
				return nil, fmt.Errorf("typo table key %q lists itself as a substitute", k)
			}
		}
		t.subs[k] = append([]rune(nil), subs...)
	}
	return t, nil
}

// Substitutes returns the entry for ch's lowercase form
func (t *TypoTable) Substitutes(ch rune) ([]rune, bool) {
	subs, ok := t.subs[unicode.ToLower(ch)]
	return subs, ok
}

// Generate picks the wrong character typed in place of ch.
//
// Table hits keep the case of ch. Anything else is shifted by -1, 0 or +1
// code points; the 0 shift reproduces ch itself.
func (t *TypoTable) Generate(ch rune, rng Rand) rune {
	if subs, ok := t.Substitutes(ch); ok {
		typo := subs[rng.Intn(len(subs))]
		if unicode.IsUpper(ch) {
			return unicode.ToUpper(typo)
		}
		return unicode.ToLower(typo)
	}

	shifted := ch + rune(rng.Intn(3)-1)
	if shifted < 0 || !utf8.ValidRune(shifted) {
		return ch
	}
	return shifted
}
