package core

import (
	"fmt"
	"strings"
)

func safeString(s string) string {
	return fmt.Sprintf("%s\x00", s)
}

func safeStrings(sgs []string) []string {
	safe := []string{}
	for _, s := range sgs {
		safe = append(safe, fmt.Sprintf("%s\x00", s))
	}
	return safe
}

// parseList splits a list separated by commas, semicolons or spaces
func parseList(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\t'
	})
}

// appendUnique appends the names not already present in list
func appendUnique(list []string, names ...string) []string {
	for _, name := range names {
		if !containsString(list, name) {
			list = append(list, name)
		}
	}
	return list
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
