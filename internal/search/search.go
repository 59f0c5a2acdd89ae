// Package search implements the free-text product match used by the home
// screen: case-insensitive substring, kana folding and a fixed synonym table.
package search

import (
	"strings"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"

	"github.com/dukerupert/sokone/internal/model"
)

// synonyms pairs spellings that should find each other. Matching is
// bidirectional.
var synonyms = []struct {
	a, b string
}{
	{"しょうゆ", "醤油"},
	{"たまご", "卵"},
	{"ぎゅうにゅう", "牛乳"},
}

// Fold lowercases s, unifies full- and half-width forms and maps hiragana
// onto katakana so that "ｷｬﾍﾞﾂ", "キャベツ" and "きゃべつ" compare equal.
func Fold(s string) string {
	s = strings.ToLower(norm.NFC.String(width.Fold.String(s)))
	return strings.Map(func(r rune) rune {
		if r >= 'ぁ' && r <= 'ゖ' {
			return r + 0x60
		}
		return r
	}, s)
}

// Match reports whether query finds target. An empty query matches nothing.
func Match(query, target string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return false
	}
	t := strings.ToLower(target)
	if strings.Contains(t, q) {
		return true
	}

	fq, ft := Fold(q), Fold(t)
	if strings.Contains(ft, fq) {
		return true
	}

	for _, syn := range synonyms {
		if synonymMatch(q, t, syn.a, syn.b) || synonymMatch(q, t, syn.b, syn.a) {
			return true
		}
		if synonymMatch(fq, ft, Fold(syn.a), Fold(syn.b)) || synonymMatch(fq, ft, Fold(syn.b), Fold(syn.a)) {
			return true
		}
	}
	return false
}

func synonymMatch(query, target, key, value string) bool {
	return strings.Contains(query, key) && strings.Contains(target, value)
}

// Target returns the text a product is searched by: name, brand and barcode.
func Target(p model.Product) string {
	return p.Name + p.Brand + p.JAN
}

// Products returns the products matching query, preserving order.
func Products(query string, products []model.Product) []model.Product {
	var out []model.Product
	for _, p := range products {
		if Match(query, Target(p)) {
			out = append(out, p)
		}
	}
	return out
}
