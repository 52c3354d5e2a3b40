package adapter

import "github.com/jinzhu/inflection"

// Singularize returns the singular form of an English plural noun. Words
// that are not plural are returned unchanged.
func Singularize(word string) string {
	if word == "" {
		return word
	}
	return inflection.Singular(word)
}
